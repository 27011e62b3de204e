package store

import (
	"context"
	"errors"
	"time"

	"dukapos/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrConflict          = errors.New("conflict")
	ErrForbidden         = errors.New("forbidden")
)

type Repository interface {
	// Stores and owners.
	CreateOwner(ctx context.Context, owner domain.StoreOwner) (*domain.StoreOwner, error)
	GetOwnerByEmail(ctx context.Context, email string) (*domain.StoreOwner, error)
	DeleteOwner(ctx context.Context, ownerID string) error
	CreateStore(ctx context.Context, s domain.Store) (*domain.Store, error)
	GetStore(ctx context.Context, storeID string) (*domain.Store, error)
	GetStoreByOwner(ctx context.Context, ownerID string) (*domain.Store, error)
	UpdateStore(ctx context.Context, storeID string, req domain.StoreUpdateRequest) (*domain.Store, error)

	// Item catalog.
	ListItems(ctx context.Context, storeID string) ([]domain.Item, error)
	GetItem(ctx context.Context, storeID string, itemID string) (*domain.Item, error)
	CreateItem(ctx context.Context, item domain.Item) (*domain.Item, error)
	UpdateItem(ctx context.Context, storeID string, itemID string, req domain.ItemUpdateRequest) (*domain.Item, error)
	DeleteItem(ctx context.Context, storeID string, itemID string) error

	// Customers.
	ListCustomers(ctx context.Context, storeID string) ([]domain.Customer, error)
	GetCustomer(ctx context.Context, storeID string, customerID string) (*domain.Customer, error)
	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	UpdateCustomer(ctx context.Context, storeID string, customerID string, req domain.CustomerUpdateRequest) (*domain.Customer, error)
	DeleteCustomer(ctx context.Context, storeID string, customerID string) error

	// Ledger. Each of these runs as a single datastore transaction.
	CreateSale(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error)
	CreateReturn(ctx context.Context, ret domain.Return) (*domain.Return, error)
	MarkCreditPaid(ctx context.Context, storeID string, transactionID string, method string, notes string, at time.Time) (*domain.Transaction, error)

	GetTransaction(ctx context.Context, storeID string, transactionID string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, storeID string, limit int) ([]domain.Transaction, error)
	ListReturns(ctx context.Context, storeID string, limit int) ([]domain.Return, error)

	// Credit views. ListOverdueCredits is the one deliberately impure read:
	// it first persists pending -> overdue for credits past due as of the
	// given date, then returns the overdue set. ListCreditsPastDue is its
	// pure counterpart: overdue derived from the due date regardless of
	// whether the stored status has flipped yet.
	ListCreditsByStatus(ctx context.Context, storeID string, status string) ([]domain.Transaction, error)
	ListOverdueCredits(ctx context.Context, storeID string, today time.Time) ([]domain.Transaction, error)
	ListCreditsPastDue(ctx context.Context, storeID string, today time.Time) ([]domain.Transaction, error)
	ListCreditsDueSoon(ctx context.Context, storeID string, from time.Time, to time.Time) ([]domain.Transaction, error)
	ListCreditsByCustomer(ctx context.Context, storeID string, customerID string) ([]domain.Transaction, error)

	// Analytics.
	DailyIncome(ctx context.Context, storeID string, from time.Time, to time.Time) ([]domain.DailyAmount, error)
	DailyProfit(ctx context.Context, storeID string, from time.Time, to time.Time) ([]domain.DailyAmount, error)

	// Admin console.
	AdminStats(ctx context.Context) (domain.AdminStats, error)
	AdminListStores(ctx context.Context) ([]domain.Store, error)
	AdminListOwners(ctx context.Context) ([]domain.StoreOwner, error)
	AdminListCustomers(ctx context.Context) ([]domain.Customer, error)
	AdminListTransactions(ctx context.Context, limit int) ([]domain.Transaction, error)
	DeleteStoreCascade(ctx context.Context, storeID string) error
	DeleteTransactionCascade(ctx context.Context, storeID string, transactionID string) error
}
