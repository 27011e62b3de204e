package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"dukapos/internal/cache"
	"dukapos/internal/domain"
	"dukapos/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// dueSoonWindowDays is how far ahead of the due date a pending credit starts
// showing up in alerts.
const dueSoonWindowDays = 3

const alertsTTL = 30 * time.Second

type Service struct {
	repo   store.Repository
	alerts cache.AlertsCache
}

func New(repo store.Repository, alerts cache.AlertsCache) *Service {
	if alerts == nil {
		alerts = cache.NoopAlertsCache{}
	}
	return &Service{repo: repo, alerts: alerts}
}

func (s *Service) Signup(ctx context.Context, req domain.SignupRequest) (*domain.StoreOwner, *domain.Store, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.StoreName = strings.TrimSpace(req.StoreName)
	if req.Email == "" || !strings.Contains(req.Email, "@") || req.StoreName == "" {
		return nil, nil, store.ErrInvalidArgument
	}
	if len(req.Password) < 6 {
		return nil, nil, store.ErrInvalidArgument
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	owner, err := s.repo.CreateOwner(ctx, domain.StoreOwner{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(req.FullName),
		CreatedAt:    now,
	})
	if err != nil {
		return nil, nil, err
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}
	symbol := req.CurrencySym
	if symbol == "" {
		symbol = "$"
	}
	st, err := s.repo.CreateStore(ctx, domain.Store{
		ID:             uuid.NewString(),
		OwnerID:        owner.ID,
		Name:           req.StoreName,
		Address:        strings.TrimSpace(req.Address),
		Phone:          strings.TrimSpace(req.Phone),
		Currency:       currency,
		CurrencySymbol: symbol,
		CreatedAt:      now,
	})
	if err != nil {
		// Roll the owner back so a retried signup does not hit the
		// duplicate-email conflict.
		if delErr := s.repo.DeleteOwner(ctx, owner.ID); delErr != nil {
			log.Printf("[service] WARN: orphaned owner %s after failed store create: %v", owner.ID, delErr)
		}
		return nil, nil, err
	}

	return owner, st, nil
}

func (s *Service) AuthenticateOwner(ctx context.Context, email string, password string) (*domain.StoreOwner, *domain.Store, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, nil, store.ErrInvalidArgument
	}

	owner, err := s.repo.GetOwnerByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(owner.PasswordHash), []byte(password)) != nil {
		return nil, nil, store.ErrNotFound
	}

	st, err := s.repo.GetStoreByOwner(ctx, owner.ID)
	if err != nil {
		return nil, nil, err
	}
	return owner, st, nil
}

func (s *Service) GetStore(ctx context.Context, storeID string) (domain.Store, error) {
	st, err := s.repo.GetStore(ctx, storeID)
	if err != nil {
		return domain.Store{}, err
	}
	return *st, nil
}

func (s *Service) UpdateStore(ctx context.Context, storeID string, req domain.StoreUpdateRequest) (domain.Store, error) {
	st, err := s.repo.UpdateStore(ctx, storeID, req)
	if err != nil {
		return domain.Store{}, err
	}
	return *st, nil
}

func (s *Service) ListItems(ctx context.Context, storeID string) ([]domain.Item, error) {
	return s.repo.ListItems(ctx, storeID)
}

func (s *Service) CreateItem(ctx context.Context, storeID string, req domain.ItemCreateRequest) (domain.Item, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Price.IsNegative() || req.Cost.IsNegative() || req.Stock < 0 {
		return domain.Item{}, store.ErrInvalidArgument
	}

	created, err := s.repo.CreateItem(ctx, domain.Item{
		ID:        uuid.NewString(),
		StoreID:   storeID,
		Name:      req.Name,
		Category:  strings.TrimSpace(req.Category),
		Price:     req.Price,
		Cost:      req.Cost,
		Stock:     req.Stock,
		Barcode:   strings.TrimSpace(req.Barcode),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return domain.Item{}, err
	}
	return *created, nil
}

func (s *Service) UpdateItem(ctx context.Context, storeID string, itemID string, req domain.ItemUpdateRequest) (domain.Item, error) {
	updated, err := s.repo.UpdateItem(ctx, storeID, itemID, req)
	if err != nil {
		return domain.Item{}, err
	}
	return *updated, nil
}

func (s *Service) DeleteItem(ctx context.Context, storeID string, itemID string) error {
	return s.repo.DeleteItem(ctx, storeID, itemID)
}

func (s *Service) ListCustomers(ctx context.Context, storeID string) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx, storeID)
}

func (s *Service) GetCustomerDetail(ctx context.Context, storeID string, customerID string) (domain.CustomerDetail, error) {
	customer, err := s.repo.GetCustomer(ctx, storeID, customerID)
	if err != nil {
		return domain.CustomerDetail{}, err
	}
	credits, err := s.repo.ListCreditsByCustomer(ctx, storeID, customerID)
	if err != nil {
		return domain.CustomerDetail{}, err
	}
	return domain.CustomerDetail{Customer: *customer, Credits: credits}, nil
}

func (s *Service) CreateCustomer(ctx context.Context, storeID string, req domain.CustomerCreateRequest) (domain.Customer, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Customer{}, store.ErrInvalidArgument
	}

	created, err := s.repo.CreateCustomer(ctx, domain.Customer{
		ID:        uuid.NewString(),
		StoreID:   storeID,
		Name:      req.Name,
		Phone:     strings.TrimSpace(req.Phone),
		Address:   strings.TrimSpace(req.Address),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return domain.Customer{}, err
	}
	return *created, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, storeID string, customerID string, req domain.CustomerUpdateRequest) (domain.Customer, error) {
	updated, err := s.repo.UpdateCustomer(ctx, storeID, customerID, req)
	if err != nil {
		return domain.Customer{}, err
	}
	return *updated, nil
}

func (s *Service) DeleteCustomer(ctx context.Context, storeID string, customerID string) error {
	return s.repo.DeleteCustomer(ctx, storeID, customerID)
}

// RecordSale writes the transaction, its line items, the stock decrements
// and, for credit sales, the customer balance increment as one atomic unit.
// Unit prices come from the catalog at sale time, never from the caller.
func (s *Service) RecordSale(ctx context.Context, storeID string, req domain.SaleRequest) (domain.Transaction, error) {
	if len(req.Items) == 0 {
		return domain.Transaction{}, store.ErrInvalidArgument
	}
	for _, line := range req.Items {
		if line.ItemID == "" || line.Quantity < 1 {
			return domain.Transaction{}, store.ErrInvalidArgument
		}
	}
	if req.PaymentType != domain.PaymentCash && req.PaymentType != domain.PaymentCredit {
		return domain.Transaction{}, store.ErrInvalidArgument
	}
	if req.PaymentType == domain.PaymentCredit && (req.CustomerID == "" || req.DueDate == "") {
		return domain.Transaction{}, store.ErrInvalidArgument
	}

	var dueDate *time.Time
	if req.DueDate != "" {
		parsed, err := time.Parse("2006-01-02", req.DueDate)
		if err != nil {
			return domain.Transaction{}, store.ErrInvalidArgument
		}
		d := parsed.UTC()
		dueDate = &d
	}

	tx := domain.Transaction{
		ID:          uuid.NewString(),
		StoreID:     storeID,
		CustomerID:  req.CustomerID,
		PaymentType: req.PaymentType,
		DueDate:     dueDate,
		CreatedAt:   time.Now().UTC(),
	}
	if req.PaymentType == domain.PaymentCredit {
		tx.CreditStatus = domain.CreditPending
	}
	lines := make([]domain.TransactionItem, 0, len(req.Items))
	for _, line := range req.Items {
		lines = append(lines, domain.TransactionItem{ItemID: line.ItemID, Quantity: line.Quantity})
	}
	tx.Items = lines

	created, err := s.repo.CreateSale(ctx, tx)
	if err != nil {
		return domain.Transaction{}, err
	}

	s.invalidateAlerts(ctx, storeID)
	log.Printf("[service] sale recorded store=%s tx=%s type=%s total=%s", storeID, created.ID, created.PaymentType, created.TotalAmount.StringFixed(2))
	return *created, nil
}

// RecordReturn restocks the returned lines and refunds at the original sale
// price. The returned quantity is not checked against the quantity sold, and
// the balance decrement applies to any sale with a customer attached.
func (s *Service) RecordReturn(ctx context.Context, storeID string, req domain.ReturnRequest) (domain.Return, error) {
	if req.TransactionID == "" || len(req.Items) == 0 {
		return domain.Return{}, store.ErrInvalidArgument
	}
	for _, line := range req.Items {
		if line.ItemID == "" || line.Quantity < 1 {
			return domain.Return{}, store.ErrInvalidArgument
		}
	}

	ret := domain.Return{
		ID:            uuid.NewString(),
		StoreID:       storeID,
		TransactionID: req.TransactionID,
		Reason:        strings.TrimSpace(req.Reason),
		CreatedAt:     time.Now().UTC(),
	}
	lines := make([]domain.ReturnItem, 0, len(req.Items))
	for _, line := range req.Items {
		lines = append(lines, domain.ReturnItem{ItemID: line.ItemID, Quantity: line.Quantity})
	}
	ret.Items = lines

	created, err := s.repo.CreateReturn(ctx, ret)
	if err != nil {
		return domain.Return{}, err
	}

	s.invalidateAlerts(ctx, storeID)
	log.Printf("[service] return recorded store=%s return=%s tx=%s refund=%s", storeID, created.ID, created.TransactionID, created.TotalRefund.StringFixed(2))
	return *created, nil
}

// MarkCreditPaid settles a credit transaction. Calling it on an already-paid
// credit settles again and decrements the balance again; callers that need
// exactly-once settlement must check the status first.
func (s *Service) MarkCreditPaid(ctx context.Context, storeID string, transactionID string, req domain.MarkPaidRequest) (domain.Transaction, error) {
	if transactionID == "" {
		return domain.Transaction{}, store.ErrInvalidArgument
	}
	method := strings.TrimSpace(req.PaymentMethod)
	if method == "" {
		method = domain.PaymentCash
	}

	updated, err := s.repo.MarkCreditPaid(ctx, storeID, transactionID, method, strings.TrimSpace(req.PaymentNotes), time.Now().UTC())
	if err != nil {
		return domain.Transaction{}, err
	}

	s.invalidateAlerts(ctx, storeID)
	log.Printf("[service] credit settled store=%s tx=%s method=%s", storeID, transactionID, method)
	return *updated, nil
}

func (s *Service) GetTransaction(ctx context.Context, storeID string, transactionID string) (domain.Transaction, error) {
	tx, err := s.repo.GetTransaction(ctx, storeID, transactionID)
	if err != nil {
		return domain.Transaction{}, err
	}
	return *tx, nil
}

func (s *Service) ListTransactions(ctx context.Context, storeID string, limit int) ([]domain.Transaction, error) {
	return s.repo.ListTransactions(ctx, storeID, limit)
}

func (s *Service) ListReturns(ctx context.Context, storeID string, limit int) ([]domain.Return, error) {
	return s.repo.ListReturns(ctx, storeID, limit)
}

func (s *Service) ListPendingCredits(ctx context.Context, storeID string) ([]domain.Transaction, error) {
	return s.repo.ListCreditsByStatus(ctx, storeID, domain.CreditPending)
}

// ListOverdueCredits triggers the lazy pending -> overdue transition before
// returning the overdue set. This is the only read with a write side effect.
func (s *Service) ListOverdueCredits(ctx context.Context, storeID string) ([]domain.Transaction, error) {
	overdue, err := s.repo.ListOverdueCredits(ctx, storeID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	s.invalidateAlerts(ctx, storeID)
	return overdue, nil
}

func (s *Service) ListPaidCredits(ctx context.Context, storeID string) ([]domain.Transaction, error) {
	return s.repo.ListCreditsByStatus(ctx, storeID, domain.CreditPaid)
}

// CreditAlerts aggregates overdue and due-soon credits without mutating any
// credit status. Overdue is derived from the due date, so a pending credit
// past its due date shows up here even before ListOverdueCredits has
// persisted the flip. Results are cached briefly per store.
func (s *Service) CreditAlerts(ctx context.Context, storeID string) (domain.CreditAlerts, error) {
	key := alertsKey(storeID)
	if cached, found, err := s.alerts.Get(ctx, key); err == nil && found {
		return *cached, nil
	}

	today := time.Now().UTC()
	overdue, err := s.repo.ListCreditsPastDue(ctx, storeID, today)
	if err != nil {
		return domain.CreditAlerts{}, err
	}
	dueSoon, err := s.repo.ListCreditsDueSoon(ctx, storeID, today, today.AddDate(0, 0, dueSoonWindowDays))
	if err != nil {
		return domain.CreditAlerts{}, err
	}

	alerts := domain.CreditAlerts{
		Overdue: bucket(overdue),
		DueSoon: bucket(dueSoon),
		Soon:    dueSoon,
	}
	if err := s.alerts.Set(ctx, key, &alerts, alertsTTL); err != nil {
		log.Printf("[service] WARN: alerts cache set store=%s: %v", storeID, err)
	}
	return alerts, nil
}

func (s *Service) DailyIncome(ctx context.Context, storeID string) ([]domain.DailyAmount, error) {
	to := time.Now().UTC()
	return s.repo.DailyIncome(ctx, storeID, to.AddDate(0, 0, -30), to)
}

func (s *Service) DailyProfit(ctx context.Context, storeID string) ([]domain.DailyAmount, error) {
	to := time.Now().UTC()
	return s.repo.DailyProfit(ctx, storeID, to.AddDate(0, 0, -30), to)
}

func (s *Service) AdminStats(ctx context.Context) (domain.AdminStats, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.AdminStats{}, err
	}
	return s.repo.AdminStats(ctx)
}

func (s *Service) AdminListStores(ctx context.Context) ([]domain.Store, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.repo.AdminListStores(ctx)
}

func (s *Service) AdminListOwners(ctx context.Context) ([]domain.StoreOwner, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.repo.AdminListOwners(ctx)
}

func (s *Service) AdminListCustomers(ctx context.Context) ([]domain.Customer, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.repo.AdminListCustomers(ctx)
}

func (s *Service) AdminListTransactions(ctx context.Context, limit int) ([]domain.Transaction, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.repo.AdminListTransactions(ctx, limit)
}

// AdminDeleteStore removes the store and everything under it, then the
// owning account.
func (s *Service) AdminDeleteStore(ctx context.Context, storeID string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	st, err := s.repo.GetStore(ctx, storeID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteStoreCascade(ctx, storeID); err != nil {
		return err
	}
	if err := s.repo.DeleteOwner(ctx, st.OwnerID); err != nil {
		log.Printf("[service] WARN: owner %s not removed with store %s: %v", st.OwnerID, storeID, err)
	}
	s.invalidateAlerts(ctx, storeID)
	return nil
}

func (s *Service) AdminDeleteCustomer(ctx context.Context, storeID string, customerID string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	return s.repo.DeleteCustomer(ctx, storeID, customerID)
}

func (s *Service) AdminDeleteTransaction(ctx context.Context, storeID string, transactionID string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if err := s.repo.DeleteTransactionCascade(ctx, storeID, transactionID); err != nil {
		return err
	}
	s.invalidateAlerts(ctx, storeID)
	return nil
}

func requireAdmin(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return fmt.Errorf("admin role required: %w", store.ErrForbidden)
	}
	return nil
}

func bucket(txs []domain.Transaction) domain.CreditBucket {
	total := decimal.Zero
	for _, tx := range txs {
		total = total.Add(tx.TotalAmount)
	}
	return domain.CreditBucket{Count: len(txs), TotalAmount: total}
}

func alertsKey(storeID string) string {
	return "credit-alerts:" + storeID
}

func (s *Service) invalidateAlerts(ctx context.Context, storeID string) {
	if err := s.alerts.Delete(ctx, alertsKey(storeID)); err != nil {
		log.Printf("[service] WARN: alerts cache delete store=%s: %v", storeID, err)
	}
}
