package memory

import (
	"context"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"dukapos/internal/domain"
	"dukapos/internal/store"
)

type Store struct {
	mu           sync.RWMutex
	owners       map[string]domain.StoreOwner
	stores       map[string]domain.Store
	items        map[string]domain.Item
	customers    map[string]domain.Customer
	transactions map[string]*domain.Transaction
	returns      map[string]domain.Return
}

func New() *Store {
	return &Store{
		owners:       make(map[string]domain.StoreOwner),
		stores:       make(map[string]domain.Store),
		items:        make(map[string]domain.Item),
		customers:    make(map[string]domain.Customer),
		transactions: make(map[string]*domain.Transaction),
		returns:      make(map[string]domain.Return),
	}
}

// NewSeeded builds a store pre-loaded with a demo tenant for dev mode and
// tests. The owner password comes from SEED_OWNER_PASSWORD; a hardcoded dev
// default is used with a warning when unset. These credentials are never
// used in production (the backend uses PostgreSQL when DATABASE_URL is set).
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	password := envOr("SEED_OWNER_PASSWORD", "owner123")
	if os.Getenv("SEED_OWNER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_OWNER_PASSWORD to override.")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("[memory-store] failed to hash seed password: %v", err)
	}

	s.owners["owner-demo"] = domain.StoreOwner{
		ID:           "owner-demo",
		Email:        "owner@demo.local",
		PasswordHash: string(hash),
		FullName:     "Demo Owner",
		CreatedAt:    now,
	}
	s.stores["store-demo"] = domain.Store{
		ID:             "store-demo",
		OwnerID:        "owner-demo",
		Name:           "Demo Grocery",
		Currency:       "USD",
		CurrencySymbol: "$",
		CreatedAt:      now,
	}

	seedItems := []struct {
		id    string
		name  string
		cat   string
		price string
		cost  string
		stock int64
	}{
		{"item-water", "Mineral Water 600ml", "beverage", "3.99", "2.50", 50},
		{"item-rice", "Rice 5kg", "grocery", "12.50", "10.00", 40},
		{"item-eggs", "Eggs Dozen", "grocery", "4.25", "3.40", 60},
		{"item-bread", "White Bread", "bakery", "2.75", "1.80", 30},
		{"item-coffee", "Ground Coffee 250g", "beverage", "8.60", "6.10", 25},
		{"item-soap", "Bath Soap", "household", "1.90", "1.20", 80},
	}
	for _, it := range seedItems {
		s.items[it.id] = domain.Item{
			ID:        it.id,
			StoreID:   "store-demo",
			Name:      it.name,
			Category:  it.cat,
			Price:     decimal.RequireFromString(it.price),
			Cost:      decimal.RequireFromString(it.cost),
			Stock:     it.stock,
			CreatedAt: now,
		}
	}

	s.customers["cust-amina"] = domain.Customer{
		ID:             "cust-amina",
		StoreID:        "store-demo",
		Name:           "Amina K",
		Phone:          "+255700000001",
		CurrentBalance: decimal.Zero,
		CreatedAt:      now,
	}
	s.customers["cust-joseph"] = domain.Customer{
		ID:             "cust-joseph",
		StoreID:        "store-demo",
		Name:           "Joseph M",
		Phone:          "+255700000002",
		CurrentBalance: decimal.Zero,
		CreatedAt:      now,
	}

	return s
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (s *Store) CreateOwner(_ context.Context, owner domain.StoreOwner) (*domain.StoreOwner, error) {
	if owner.Email == "" || owner.PasswordHash == "" {
		return nil, store.ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.owners {
		if strings.EqualFold(existing.Email, owner.Email) {
			return nil, store.ErrConflict
		}
	}
	s.owners[owner.ID] = owner
	created := owner
	return &created, nil
}

func (s *Store) GetOwnerByEmail(_ context.Context, email string) (*domain.StoreOwner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, owner := range s.owners {
		if strings.EqualFold(owner.Email, email) {
			found := owner
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) DeleteOwner(_ context.Context, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.owners[ownerID]; !exists {
		return store.ErrNotFound
	}
	delete(s.owners, ownerID)
	return nil
}

func (s *Store) CreateStore(_ context.Context, st domain.Store) (*domain.Store, error) {
	if st.Name == "" || st.OwnerID == "" {
		return nil, store.ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.stores[st.ID]; exists {
		return nil, store.ErrConflict
	}
	s.stores[st.ID] = st
	created := st
	return &created, nil
}

func (s *Store) GetStore(_ context.Context, storeID string) (*domain.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, exists := s.stores[storeID]
	if !exists {
		return nil, store.ErrNotFound
	}
	found := st
	return &found, nil
}

func (s *Store) GetStoreByOwner(_ context.Context, ownerID string) (*domain.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, st := range s.stores {
		if st.OwnerID == ownerID {
			found := st
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) UpdateStore(_ context.Context, storeID string, req domain.StoreUpdateRequest) (*domain.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, exists := s.stores[storeID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if req.Name != nil {
		st.Name = *req.Name
	}
	if req.Address != nil {
		st.Address = *req.Address
	}
	if req.Phone != nil {
		st.Phone = *req.Phone
	}
	if req.Currency != nil {
		st.Currency = *req.Currency
	}
	if req.CurrencySymbol != nil {
		st.CurrencySymbol = *req.CurrencySymbol
	}
	if st.Name == "" {
		return nil, store.ErrInvalidArgument
	}
	s.stores[storeID] = st
	updated := st
	return &updated, nil
}

func (s *Store) ListItems(_ context.Context, storeID string) ([]domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.Item, 0, len(s.items))
	for _, it := range s.items {
		if it.StoreID == storeID {
			items = append(items, it)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

func (s *Store) GetItem(_ context.Context, storeID string, itemID string) (*domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, exists := s.items[itemID]
	if !exists || it.StoreID != storeID {
		return nil, store.ErrNotFound
	}
	found := it
	return &found, nil
}

func (s *Store) CreateItem(_ context.Context, item domain.Item) (*domain.Item, error) {
	if item.Name == "" || item.Price.IsNegative() || item.Stock < 0 {
		return nil, store.ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[item.ID]; exists {
		return nil, store.ErrConflict
	}
	s.items[item.ID] = item
	created := item
	return &created, nil
}

func (s *Store) UpdateItem(_ context.Context, storeID string, itemID string, req domain.ItemUpdateRequest) (*domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, exists := s.items[itemID]
	if !exists || it.StoreID != storeID {
		return nil, store.ErrNotFound
	}
	if req.Name != nil {
		it.Name = *req.Name
	}
	if req.Category != nil {
		it.Category = *req.Category
	}
	if req.Price != nil {
		it.Price = *req.Price
	}
	if req.Cost != nil {
		it.Cost = *req.Cost
	}
	if req.Stock != nil {
		it.Stock = *req.Stock
	}
	if req.Barcode != nil {
		it.Barcode = *req.Barcode
	}
	if it.Name == "" || it.Price.IsNegative() || it.Stock < 0 {
		return nil, store.ErrInvalidArgument
	}
	s.items[itemID] = it
	updated := it
	return &updated, nil
}

func (s *Store) DeleteItem(_ context.Context, storeID string, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, exists := s.items[itemID]
	if !exists || it.StoreID != storeID {
		return store.ErrNotFound
	}
	for _, tx := range s.transactions {
		for _, line := range tx.Items {
			if line.ItemID == itemID {
				return store.ErrConflict
			}
		}
	}
	delete(s.items, itemID)
	return nil
}

func (s *Store) ListCustomers(_ context.Context, storeID string) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customers := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		if c.StoreID == storeID {
			customers = append(customers, c)
		}
	}
	sort.Slice(customers, func(i, j int) bool { return customers[i].Name < customers[j].Name })
	return customers, nil
}

func (s *Store) GetCustomer(_ context.Context, storeID string, customerID string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.customers[customerID]
	if !exists || c.StoreID != storeID {
		return nil, store.ErrNotFound
	}
	found := c
	return &found, nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.Name == "" {
		return nil, store.ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.customers[customer.ID]; exists {
		return nil, store.ErrConflict
	}
	s.customers[customer.ID] = customer
	created := customer
	return &created, nil
}

func (s *Store) UpdateCustomer(_ context.Context, storeID string, customerID string, req domain.CustomerUpdateRequest) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists := s.customers[customerID]
	if !exists || c.StoreID != storeID {
		return nil, store.ErrNotFound
	}
	if req.Name != nil {
		c.Name = *req.Name
	}
	if req.Phone != nil {
		c.Phone = *req.Phone
	}
	if req.Address != nil {
		c.Address = *req.Address
	}
	if c.Name == "" {
		return nil, store.ErrInvalidArgument
	}
	s.customers[customerID] = c
	updated := c
	return &updated, nil
}

func (s *Store) DeleteCustomer(_ context.Context, storeID string, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists := s.customers[customerID]
	if !exists || c.StoreID != storeID {
		return store.ErrNotFound
	}
	for _, tx := range s.transactions {
		if tx.CustomerID == customerID {
			tx.CustomerID = ""
			tx.CustomerName = ""
		}
	}
	for id, ret := range s.returns {
		if ret.CustomerID == customerID {
			ret.CustomerID = ""
			s.returns[id] = ret
		}
	}
	delete(s.customers, customerID)
	return nil
}

func (s *Store) CreateSale(_ context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	if len(tx.Items) == 0 {
		return nil, store.ErrInvalidArgument
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, line := range tx.Items {
		if line.Quantity < 1 {
			return nil, store.ErrInvalidArgument
		}
		it, exists := s.items[line.ItemID]
		if !exists || it.StoreID != tx.StoreID {
			return nil, store.ErrNotFound
		}
		if it.Stock < line.Quantity {
			return nil, store.ErrInsufficientStock
		}
	}

	var customerName string
	if tx.CustomerID != "" {
		c, exists := s.customers[tx.CustomerID]
		if !exists || c.StoreID != tx.StoreID {
			return nil, store.ErrNotFound
		}
		customerName = c.Name
	}

	total := decimal.Zero
	lines := make([]domain.TransactionItem, 0, len(tx.Items))
	for _, line := range tx.Items {
		it := s.items[line.ItemID]
		it.Stock -= line.Quantity
		s.items[line.ItemID] = it

		total = total.Add(it.Price.Mul(decimal.NewFromInt(line.Quantity)))
		lines = append(lines, domain.TransactionItem{
			ID:            uuid.NewString(),
			TransactionID: tx.ID,
			ItemID:        line.ItemID,
			ItemName:      it.Name,
			Quantity:      line.Quantity,
			UnitPrice:     it.Price,
		})
	}
	tx.TotalAmount = total
	tx.CustomerName = customerName
	tx.Items = lines

	if tx.PaymentType == domain.PaymentCredit {
		c := s.customers[tx.CustomerID]
		c.CurrentBalance = c.CurrentBalance.Add(total)
		s.customers[tx.CustomerID] = c
	}

	saved := tx
	s.transactions[tx.ID] = &saved
	created := cloneTransaction(saved)
	return &created, nil
}

func (s *Store) CreateReturn(_ context.Context, ret domain.Return) (*domain.Return, error) {
	if len(ret.Items) == 0 {
		return nil, store.ErrInvalidArgument
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, exists := s.transactions[ret.TransactionID]
	if !exists || tx.StoreID != ret.StoreID {
		return nil, store.ErrNotFound
	}
	ret.CustomerID = tx.CustomerID

	sold := make(map[string]domain.TransactionItem, len(tx.Items))
	for _, line := range tx.Items {
		sold[line.ItemID] = line
	}

	refund := decimal.Zero
	lines := make([]domain.ReturnItem, 0, len(ret.Items))
	for _, line := range ret.Items {
		if line.Quantity < 1 {
			return nil, store.ErrInvalidArgument
		}
		orig, onTx := sold[line.ItemID]
		if !onTx {
			return nil, store.ErrInvalidArgument
		}
		refund = refund.Add(orig.UnitPrice.Mul(decimal.NewFromInt(line.Quantity)))
		lines = append(lines, domain.ReturnItem{
			ID:        uuid.NewString(),
			ReturnID:  ret.ID,
			ItemID:    line.ItemID,
			ItemName:  orig.ItemName,
			Quantity:  line.Quantity,
			UnitPrice: orig.UnitPrice,
		})
	}
	ret.TotalRefund = refund
	ret.Items = lines

	for _, line := range ret.Items {
		if it, exists := s.items[line.ItemID]; exists && it.StoreID == ret.StoreID {
			it.Stock += line.Quantity
			s.items[line.ItemID] = it
		}
	}

	if ret.CustomerID != "" {
		if c, exists := s.customers[ret.CustomerID]; exists {
			c.CurrentBalance = c.CurrentBalance.Sub(refund)
			s.customers[ret.CustomerID] = c
		}
	}

	s.returns[ret.ID] = ret
	created := ret
	created.Items = append([]domain.ReturnItem(nil), ret.Items...)
	return &created, nil
}

func (s *Store) MarkCreditPaid(_ context.Context, storeID string, transactionID string, method string, notes string, at time.Time) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, exists := s.transactions[transactionID]
	if !exists || tx.StoreID != storeID {
		return nil, store.ErrNotFound
	}
	if tx.PaymentType != domain.PaymentCredit {
		return nil, store.ErrInvalidArgument
	}

	tx.CreditStatus = domain.CreditPaid
	paidAt := at
	tx.PaidAt = &paidAt
	tx.PaymentMethod = method
	tx.PaymentNotes = notes

	if tx.CustomerID != "" {
		if c, exists := s.customers[tx.CustomerID]; exists {
			c.CurrentBalance = c.CurrentBalance.Sub(tx.TotalAmount)
			s.customers[tx.CustomerID] = c
		}
	}

	updated := cloneTransaction(*tx)
	return &updated, nil
}

func (s *Store) GetTransaction(_ context.Context, storeID string, transactionID string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, exists := s.transactions[transactionID]
	if !exists || tx.StoreID != storeID {
		return nil, store.ErrNotFound
	}
	found := cloneTransaction(*tx)
	return &found, nil
}

func (s *Store) ListTransactions(_ context.Context, storeID string, limit int) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listTransactionsLocked(storeID, limit, func(tx *domain.Transaction) bool { return true }), nil
}

func (s *Store) listTransactionsLocked(storeID string, limit int, match func(*domain.Transaction) bool) []domain.Transaction {
	txs := make([]domain.Transaction, 0, 16)
	for _, tx := range s.transactions {
		if storeID != "" && tx.StoreID != storeID {
			continue
		}
		if !match(tx) {
			continue
		}
		txs = append(txs, cloneTransaction(*tx))
	}
	sort.Slice(txs, func(i, j int) bool { return txs[i].CreatedAt.After(txs[j].CreatedAt) })
	if limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}
	return txs
}

func (s *Store) ListReturns(_ context.Context, storeID string, limit int) ([]domain.Return, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rets := make([]domain.Return, 0, 16)
	for _, ret := range s.returns {
		if ret.StoreID == storeID {
			rets = append(rets, ret)
		}
	}
	sort.Slice(rets, func(i, j int) bool { return rets[i].CreatedAt.After(rets[j].CreatedAt) })
	if limit > 0 && len(rets) > limit {
		rets = rets[:limit]
	}
	return rets, nil
}

func (s *Store) ListCreditsByStatus(_ context.Context, storeID string, status string) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listTransactionsLocked(storeID, 0, func(tx *domain.Transaction) bool {
		return tx.PaymentType == domain.PaymentCredit && tx.CreditStatus == status
	}), nil
}

// ListOverdueCredits persists pending -> overdue for credits past due before
// reading, mirroring the SQL implementation.
func (s *Store) ListOverdueCredits(_ context.Context, storeID string, today time.Time) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	day := dateUTC(today)
	for _, tx := range s.transactions {
		if tx.StoreID != storeID || tx.PaymentType != domain.PaymentCredit {
			continue
		}
		if tx.CreditStatus != domain.CreditPending || tx.DueDate == nil {
			continue
		}
		if dateUTC(*tx.DueDate).Before(day) {
			tx.CreditStatus = domain.CreditOverdue
		}
	}

	return s.listTransactionsLocked(storeID, 0, func(tx *domain.Transaction) bool {
		return tx.PaymentType == domain.PaymentCredit && tx.CreditStatus == domain.CreditOverdue
	}), nil
}

// ListCreditsPastDue derives overdue from the due date without touching
// the stored status.
func (s *Store) ListCreditsPastDue(_ context.Context, storeID string, today time.Time) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day := dateUTC(today)
	return s.listTransactionsLocked(storeID, 0, func(tx *domain.Transaction) bool {
		if tx.PaymentType != domain.PaymentCredit || tx.DueDate == nil {
			return false
		}
		if tx.CreditStatus != domain.CreditPending && tx.CreditStatus != domain.CreditOverdue {
			return false
		}
		return dateUTC(*tx.DueDate).Before(day)
	}), nil
}

func (s *Store) ListCreditsDueSoon(_ context.Context, storeID string, from time.Time, to time.Time) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lo, hi := dateUTC(from), dateUTC(to)
	return s.listTransactionsLocked(storeID, 0, func(tx *domain.Transaction) bool {
		if tx.PaymentType != domain.PaymentCredit || tx.CreditStatus != domain.CreditPending || tx.DueDate == nil {
			return false
		}
		due := dateUTC(*tx.DueDate)
		return !due.Before(lo) && !due.After(hi)
	}), nil
}

func (s *Store) ListCreditsByCustomer(_ context.Context, storeID string, customerID string) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listTransactionsLocked(storeID, 0, func(tx *domain.Transaction) bool {
		return tx.CustomerID == customerID && tx.PaymentType == domain.PaymentCredit
	}), nil
}

func (s *Store) DailyIncome(_ context.Context, storeID string, from time.Time, to time.Time) ([]domain.DailyAmount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[string]decimal.Decimal)
	for _, tx := range s.transactions {
		if tx.StoreID != storeID || tx.CreatedAt.Before(from) || !tx.CreatedAt.Before(to) {
			continue
		}
		day := tx.CreatedAt.UTC().Format("2006-01-02")
		totals[day] = totals[day].Add(tx.TotalAmount)
	}
	return sortedDailyAmounts(totals), nil
}

func (s *Store) DailyProfit(_ context.Context, storeID string, from time.Time, to time.Time) ([]domain.DailyAmount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[string]decimal.Decimal)
	for _, tx := range s.transactions {
		if tx.StoreID != storeID || tx.CreatedAt.Before(from) || !tx.CreatedAt.Before(to) {
			continue
		}
		day := tx.CreatedAt.UTC().Format("2006-01-02")
		for _, line := range tx.Items {
			cost := decimal.Zero
			if it, exists := s.items[line.ItemID]; exists {
				cost = it.Cost
			}
			margin := line.UnitPrice.Sub(cost).Mul(decimal.NewFromInt(line.Quantity))
			totals[day] = totals[day].Add(margin)
		}
	}
	return sortedDailyAmounts(totals), nil
}

func sortedDailyAmounts(totals map[string]decimal.Decimal) []domain.DailyAmount {
	out := make([]domain.DailyAmount, 0, len(totals))
	for day, amount := range totals {
		out = append(out, domain.DailyAmount{Date: day, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func (s *Store) AdminStats(_ context.Context) (domain.AdminStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := domain.AdminStats{
		Stores:       int64(len(s.stores)),
		Owners:       int64(len(s.owners)),
		Customers:    int64(len(s.customers)),
		Transactions: int64(len(s.transactions)),
		TotalVolume:  decimal.Zero,
	}
	for _, tx := range s.transactions {
		stats.TotalVolume = stats.TotalVolume.Add(tx.TotalAmount)
	}
	return stats, nil
}

func (s *Store) AdminListStores(_ context.Context) ([]domain.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stores := make([]domain.Store, 0, len(s.stores))
	for _, st := range s.stores {
		stores = append(stores, st)
	}
	sort.Slice(stores, func(i, j int) bool { return stores[i].CreatedAt.After(stores[j].CreatedAt) })
	return stores, nil
}

func (s *Store) AdminListOwners(_ context.Context) ([]domain.StoreOwner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owners := make([]domain.StoreOwner, 0, len(s.owners))
	for _, o := range s.owners {
		o.PasswordHash = ""
		owners = append(owners, o)
	}
	sort.Slice(owners, func(i, j int) bool { return owners[i].CreatedAt.After(owners[j].CreatedAt) })
	return owners, nil
}

func (s *Store) AdminListCustomers(_ context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customers := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		customers = append(customers, c)
	}
	sort.Slice(customers, func(i, j int) bool { return customers[i].CreatedAt.After(customers[j].CreatedAt) })
	return customers, nil
}

func (s *Store) AdminListTransactions(_ context.Context, limit int) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listTransactionsLocked("", limit, func(tx *domain.Transaction) bool { return true }), nil
}

func (s *Store) DeleteStoreCascade(_ context.Context, storeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.stores[storeID]; !exists {
		return store.ErrNotFound
	}
	for id, ret := range s.returns {
		if ret.StoreID == storeID {
			delete(s.returns, id)
		}
	}
	for id, tx := range s.transactions {
		if tx.StoreID == storeID {
			delete(s.transactions, id)
		}
	}
	for id, c := range s.customers {
		if c.StoreID == storeID {
			delete(s.customers, id)
		}
	}
	for id, it := range s.items {
		if it.StoreID == storeID {
			delete(s.items, id)
		}
	}
	delete(s.stores, storeID)
	return nil
}

func (s *Store) DeleteTransactionCascade(_ context.Context, storeID string, transactionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, exists := s.transactions[transactionID]
	if !exists || tx.StoreID != storeID {
		return store.ErrNotFound
	}
	for id, ret := range s.returns {
		if ret.TransactionID == transactionID {
			delete(s.returns, id)
		}
	}
	delete(s.transactions, transactionID)
	return nil
}

func cloneTransaction(tx domain.Transaction) domain.Transaction {
	out := tx
	out.Items = append([]domain.TransactionItem(nil), tx.Items...)
	if tx.DueDate != nil {
		d := *tx.DueDate
		out.DueDate = &d
	}
	if tx.PaidAt != nil {
		p := *tx.PaidAt
		out.PaidAt = &p
	}
	return out
}

func dateUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
