package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"dukapos/internal/domain"
	"dukapos/internal/store"
)

func TestCreditSaleLifecycle(t *testing.T) {
	databaseURL := os.Getenv("DUKAPOS_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set DUKAPOS_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	ownerID := fmt.Sprintf("owner-it-%d", stamp)
	storeID := fmt.Sprintf("store-it-%d", stamp)
	itemID := fmt.Sprintf("item-it-%d", stamp)
	customerID := fmt.Sprintf("cust-it-%d", stamp)
	txID := fmt.Sprintf("tx-it-%d", stamp)
	lineID := fmt.Sprintf("line-it-%d", stamp)

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM transaction_items WHERE transaction_id = $1`, txID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, txID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, customerID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, itemID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM stores WHERE id = $1`, storeID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM store_owners WHERE id = $1`, ownerID)
	})

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO store_owners (id, email, password_hash, full_name, created_at)
		VALUES ($1, $2, 'x', 'Integration Owner', now())
	`, ownerID, fmt.Sprintf("it-%d@example.com", stamp)); err != nil {
		t.Fatalf("insert owner: %v", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO stores (id, owner_id, name, currency, currency_symbol, created_at)
		VALUES ($1, $2, 'Integration Store', 'USD', '$', now())
	`, storeID, ownerID); err != nil {
		t.Fatalf("insert store: %v", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO items (id, store_id, name, category, price, cost, stock, created_at)
		VALUES ($1, $2, 'Integration Item', 'test', 4.50, 3.00, 10, now())
	`, itemID, storeID); err != nil {
		t.Fatalf("insert item: %v", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, store_id, name, current_balance, created_at)
		VALUES ($1, $2, 'Integration Customer', 0, now())
	`, customerID, storeID); err != nil {
		t.Fatalf("insert customer: %v", err)
	}

	due := time.Now().UTC().AddDate(0, 0, 7)
	created, err := s.CreateSale(ctx, domain.Transaction{
		ID:           txID,
		StoreID:      storeID,
		CustomerID:   customerID,
		PaymentType:  domain.PaymentCredit,
		CreditStatus: domain.CreditPending,
		DueDate:      &due,
		CreatedAt:    time.Now().UTC(),
		Items:        []domain.TransactionItem{{ID: lineID, ItemID: itemID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if !created.TotalAmount.Equal(decimal.RequireFromString("9")) {
		t.Fatalf("expected total 9.00, got %s", created.TotalAmount)
	}

	var stock int64
	if err := s.db.QueryRowContext(ctx, `SELECT stock FROM items WHERE id = $1`, itemID).Scan(&stock); err != nil {
		t.Fatalf("query stock: %v", err)
	}
	if stock != 8 {
		t.Fatalf("expected stock 8 after the sale, got %d", stock)
	}

	var balance decimal.Decimal
	if err := s.db.QueryRowContext(ctx, `SELECT current_balance FROM customers WHERE id = $1`, customerID).Scan(&balance); err != nil {
		t.Fatalf("query balance: %v", err)
	}
	if !balance.Equal(decimal.RequireFromString("9")) {
		t.Fatalf("expected balance 9.00 after credit sale, got %s", balance)
	}

	// Oversold quantity fails atomically: stock stays at 8.
	_, err = s.CreateSale(ctx, domain.Transaction{
		ID:          fmt.Sprintf("tx-it-over-%d", stamp),
		StoreID:     storeID,
		PaymentType: domain.PaymentCash,
		CreatedAt:   time.Now().UTC(),
		Items:       []domain.TransactionItem{{ID: fmt.Sprintf("line-it-over-%d", stamp), ItemID: itemID, Quantity: 99}},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT stock FROM items WHERE id = $1`, itemID).Scan(&stock); err != nil {
		t.Fatalf("query stock: %v", err)
	}
	if stock != 8 {
		t.Fatalf("expected stock unchanged at 8 after failed sale, got %d", stock)
	}

	paid, err := s.MarkCreditPaid(ctx, storeID, txID, "cash", "integration settle", time.Now().UTC())
	if err != nil {
		t.Fatalf("mark credit paid: %v", err)
	}
	if paid.CreditStatus != domain.CreditPaid || paid.PaidAt == nil {
		t.Fatalf("expected settled credit, got %+v", paid)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT current_balance FROM customers WHERE id = $1`, customerID).Scan(&balance); err != nil {
		t.Fatalf("query balance: %v", err)
	}
	if !balance.IsZero() {
		t.Fatalf("expected zero balance after settlement, got %s", balance)
	}
}
