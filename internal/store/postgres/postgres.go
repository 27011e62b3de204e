package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"dukapos/internal/domain"
	"dukapos/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateOwner(ctx context.Context, owner domain.StoreOwner) (*domain.StoreOwner, error) {
	if owner.Email == "" || owner.PasswordHash == "" {
		return nil, store.ErrInvalidArgument
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO store_owners (id, email, password_hash, full_name, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, owner.ID, owner.Email, owner.PasswordHash, owner.FullName, owner.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	created := owner
	return &created, nil
}

func (s *Store) GetOwnerByEmail(ctx context.Context, email string) (*domain.StoreOwner, error) {
	var owner domain.StoreOwner
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, COALESCE(full_name,''), created_at
		FROM store_owners
		WHERE email = $1
	`, email).Scan(&owner.ID, &owner.Email, &owner.PasswordHash, &owner.FullName, &owner.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &owner, nil
}

func (s *Store) DeleteOwner(ctx context.Context, ownerID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM store_owners WHERE id = $1`, ownerID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateStore(ctx context.Context, st domain.Store) (*domain.Store, error) {
	if st.Name == "" || st.OwnerID == "" {
		return nil, store.ErrInvalidArgument
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stores (id, owner_id, name, address, phone, currency, currency_symbol, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, st.ID, st.OwnerID, st.Name, st.Address, st.Phone, st.Currency, st.CurrencySymbol, st.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	created := st
	return &created, nil
}

func (s *Store) GetStore(ctx context.Context, storeID string) (*domain.Store, error) {
	return s.getStoreWhere(ctx, `id = $1`, storeID)
}

func (s *Store) GetStoreByOwner(ctx context.Context, ownerID string) (*domain.Store, error) {
	return s.getStoreWhere(ctx, `owner_id = $1`, ownerID)
}

func (s *Store) getStoreWhere(ctx context.Context, where string, arg any) (*domain.Store, error) {
	var st domain.Store
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, COALESCE(address,''), COALESCE(phone,''),
		       COALESCE(currency,'USD'), COALESCE(currency_symbol,'$'), created_at
		FROM stores
		WHERE `+where, arg).Scan(
		&st.ID, &st.OwnerID, &st.Name, &st.Address, &st.Phone,
		&st.Currency, &st.CurrencySymbol, &st.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &st, nil
}

func (s *Store) UpdateStore(ctx context.Context, storeID string, req domain.StoreUpdateRequest) (*domain.Store, error) {
	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	var st domain.Store
	err = pgTx.QueryRowContext(ctx, `
		SELECT id, owner_id, name, COALESCE(address,''), COALESCE(phone,''),
		       COALESCE(currency,'USD'), COALESCE(currency_symbol,'$'), created_at
		FROM stores
		WHERE id = $1
		FOR UPDATE
	`, storeID).Scan(&st.ID, &st.OwnerID, &st.Name, &st.Address, &st.Phone,
		&st.Currency, &st.CurrencySymbol, &st.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
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

	_, err = pgTx.ExecContext(ctx, `
		UPDATE stores
		SET name = $2, address = $3, phone = $4, currency = $5, currency_symbol = $6
		WHERE id = $1
	`, st.ID, st.Name, st.Address, st.Phone, st.Currency, st.CurrencySymbol)
	if err != nil {
		return nil, err
	}
	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Store) ListItems(ctx context.Context, storeID string) ([]domain.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, store_id, name, COALESCE(category,''), price, cost, stock, COALESCE(barcode,''), created_at
		FROM items
		WHERE store_id = $1
		ORDER BY name ASC
	`, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Item, 0, 64)
	for rows.Next() {
		var it domain.Item
		if err := rows.Scan(&it.ID, &it.StoreID, &it.Name, &it.Category, &it.Price, &it.Cost, &it.Stock, &it.Barcode, &it.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) GetItem(ctx context.Context, storeID string, itemID string) (*domain.Item, error) {
	var it domain.Item
	err := s.db.QueryRowContext(ctx, `
		SELECT id, store_id, name, COALESCE(category,''), price, cost, stock, COALESCE(barcode,''), created_at
		FROM items
		WHERE store_id = $1 AND id = $2
	`, storeID, itemID).Scan(&it.ID, &it.StoreID, &it.Name, &it.Category, &it.Price, &it.Cost, &it.Stock, &it.Barcode, &it.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &it, nil
}

func (s *Store) CreateItem(ctx context.Context, item domain.Item) (*domain.Item, error) {
	if item.Name == "" || item.Price.IsNegative() || item.Stock < 0 {
		return nil, store.ErrInvalidArgument
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (id, store_id, name, category, price, cost, stock, barcode, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, item.ID, item.StoreID, item.Name, item.Category, item.Price, item.Cost, item.Stock, nullIfEmpty(item.Barcode), item.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	created := item
	return &created, nil
}

func (s *Store) UpdateItem(ctx context.Context, storeID string, itemID string, req domain.ItemUpdateRequest) (*domain.Item, error) {
	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	var it domain.Item
	err = pgTx.QueryRowContext(ctx, `
		SELECT id, store_id, name, COALESCE(category,''), price, cost, stock, COALESCE(barcode,''), created_at
		FROM items
		WHERE store_id = $1 AND id = $2
		FOR UPDATE
	`, storeID, itemID).Scan(&it.ID, &it.StoreID, &it.Name, &it.Category, &it.Price, &it.Cost, &it.Stock, &it.Barcode, &it.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
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

	_, err = pgTx.ExecContext(ctx, `
		UPDATE items
		SET name = $3, category = $4, price = $5, cost = $6, stock = $7, barcode = $8
		WHERE store_id = $1 AND id = $2
	`, storeID, itemID, it.Name, it.Category, it.Price, it.Cost, it.Stock, nullIfEmpty(it.Barcode))
	if err != nil {
		return nil, err
	}
	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	return &it, nil
}

func (s *Store) DeleteItem(ctx context.Context, storeID string, itemID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM items WHERE store_id = $1 AND id = $2
	`, storeID, itemID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListCustomers(ctx context.Context, storeID string) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, store_id, name, COALESCE(phone,''), COALESCE(address,''), current_balance, created_at
		FROM customers
		WHERE store_id = $1
		ORDER BY name ASC
	`, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 32)
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.StoreID, &c.Name, &c.Phone, &c.Address, &c.CurrentBalance, &c.CreatedAt); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *Store) GetCustomer(ctx context.Context, storeID string, customerID string) (*domain.Customer, error) {
	var c domain.Customer
	err := s.db.QueryRowContext(ctx, `
		SELECT id, store_id, name, COALESCE(phone,''), COALESCE(address,''), current_balance, created_at
		FROM customers
		WHERE store_id = $1 AND id = $2
	`, storeID, customerID).Scan(&c.ID, &c.StoreID, &c.Name, &c.Phone, &c.Address, &c.CurrentBalance, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.Name == "" {
		return nil, store.ErrInvalidArgument
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, store_id, name, phone, address, current_balance, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, customer.ID, customer.StoreID, customer.Name, customer.Phone, customer.Address, customer.CurrentBalance, customer.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	created := customer
	return &created, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, storeID string, customerID string, req domain.CustomerUpdateRequest) (*domain.Customer, error) {
	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	var c domain.Customer
	err = pgTx.QueryRowContext(ctx, `
		SELECT id, store_id, name, COALESCE(phone,''), COALESCE(address,''), current_balance, created_at
		FROM customers
		WHERE store_id = $1 AND id = $2
		FOR UPDATE
	`, storeID, customerID).Scan(&c.ID, &c.StoreID, &c.Name, &c.Phone, &c.Address, &c.CurrentBalance, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
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

	_, err = pgTx.ExecContext(ctx, `
		UPDATE customers
		SET name = $3, phone = $4, address = $5
		WHERE store_id = $1 AND id = $2
	`, storeID, customerID, c.Name, c.Phone, c.Address)
	if err != nil {
		return nil, err
	}
	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) DeleteCustomer(ctx context.Context, storeID string, customerID string) error {
	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = pgTx.Rollback() }()

	_, err = pgTx.ExecContext(ctx, `
		UPDATE transactions SET customer_id = NULL WHERE store_id = $1 AND customer_id = $2
	`, storeID, customerID)
	if err != nil {
		return err
	}
	_, err = pgTx.ExecContext(ctx, `
		UPDATE returns SET customer_id = NULL WHERE store_id = $1 AND customer_id = $2
	`, storeID, customerID)
	if err != nil {
		return err
	}

	res, err := pgTx.ExecContext(ctx, `
		DELETE FROM customers WHERE store_id = $1 AND id = $2
	`, storeID, customerID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return pgTx.Commit()
}

func (s *Store) CreateSale(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	if len(tx.Items) == 0 {
		return nil, store.ErrInvalidArgument
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	itemIDs := make([]string, 0, len(tx.Items))
	for _, line := range tx.Items {
		if line.Quantity < 1 {
			return nil, store.ErrInvalidArgument
		}
		itemIDs = append(itemIDs, line.ItemID)
	}

	itemRows, err := pgTx.QueryContext(ctx, `
		SELECT id, name, price
		FROM items
		WHERE store_id = $1 AND id = ANY($2)
		FOR UPDATE
	`, tx.StoreID, itemIDs)
	if err != nil {
		return nil, err
	}
	type priced struct {
		name  string
		price decimal.Decimal
	}
	itemMap := make(map[string]priced, len(itemIDs))
	for itemRows.Next() {
		var id, name string
		var price decimal.Decimal
		if err := itemRows.Scan(&id, &name, &price); err != nil {
			_ = itemRows.Close()
			return nil, err
		}
		itemMap[id] = priced{name: name, price: price}
	}
	if err := itemRows.Err(); err != nil {
		_ = itemRows.Close()
		return nil, err
	}
	_ = itemRows.Close()

	total := decimal.Zero
	lines := make([]domain.TransactionItem, 0, len(tx.Items))
	for _, line := range tx.Items {
		it, exists := itemMap[line.ItemID]
		if !exists {
			return nil, store.ErrNotFound
		}

		// Guarded decrement: zero rows affected means the stock would
		// have gone negative, and the whole sale rolls back.
		res, err := pgTx.ExecContext(ctx, `
			UPDATE items
			SET stock = stock - $3
			WHERE store_id = $1 AND id = $2 AND stock >= $3
		`, tx.StoreID, line.ItemID, line.Quantity)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, store.ErrInsufficientStock
		}

		total = total.Add(it.price.Mul(decimal.NewFromInt(line.Quantity)))
		lines = append(lines, domain.TransactionItem{
			ID:            uuid.NewString(),
			TransactionID: tx.ID,
			ItemID:        line.ItemID,
			ItemName:      it.name,
			Quantity:      line.Quantity,
			UnitPrice:     it.price,
		})
	}
	tx.TotalAmount = total
	tx.Items = lines

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO transactions (id, store_id, customer_id, total_amount, payment_type, credit_status, due_date, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, tx.ID, tx.StoreID, nullIfEmpty(tx.CustomerID), tx.TotalAmount, tx.PaymentType,
		nullIfEmpty(tx.CreditStatus), nullDate(tx.DueDate), tx.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	for _, line := range tx.Items {
		_, err = pgTx.ExecContext(ctx, `
			INSERT INTO transaction_items (id, transaction_id, item_id, item_name, quantity, unit_price)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, line.ID, line.TransactionID, line.ItemID, line.ItemName, line.Quantity, line.UnitPrice)
		if err != nil {
			return nil, err
		}
	}

	if tx.PaymentType == domain.PaymentCredit {
		res, err := pgTx.ExecContext(ctx, `
			UPDATE customers
			SET current_balance = current_balance + $3
			WHERE store_id = $1 AND id = $2
		`, tx.StoreID, tx.CustomerID, tx.TotalAmount)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, store.ErrNotFound
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	created := tx
	return &created, nil
}

func (s *Store) CreateReturn(ctx context.Context, ret domain.Return) (*domain.Return, error) {
	if len(ret.Items) == 0 {
		return nil, store.ErrInvalidArgument
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	var customerID sql.NullString
	err = pgTx.QueryRowContext(ctx, `
		SELECT customer_id
		FROM transactions
		WHERE store_id = $1 AND id = $2
		FOR UPDATE
	`, ret.StoreID, ret.TransactionID).Scan(&customerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if customerID.Valid {
		ret.CustomerID = customerID.String
	}

	soldRows, err := pgTx.QueryContext(ctx, `
		SELECT item_id, item_name, unit_price
		FROM transaction_items
		WHERE transaction_id = $1
	`, ret.TransactionID)
	if err != nil {
		return nil, err
	}
	type soldLine struct {
		name  string
		price decimal.Decimal
	}
	sold := make(map[string]soldLine, 8)
	for soldRows.Next() {
		var id, name string
		var price decimal.Decimal
		if err := soldRows.Scan(&id, &name, &price); err != nil {
			_ = soldRows.Close()
			return nil, err
		}
		sold[id] = soldLine{name: name, price: price}
	}
	if err := soldRows.Err(); err != nil {
		_ = soldRows.Close()
		return nil, err
	}
	_ = soldRows.Close()

	refund := decimal.Zero
	lines := make([]domain.ReturnItem, 0, len(ret.Items))
	for _, line := range ret.Items {
		if line.Quantity < 1 {
			return nil, store.ErrInvalidArgument
		}
		orig, exists := sold[line.ItemID]
		if !exists {
			return nil, store.ErrInvalidArgument
		}
		refund = refund.Add(orig.price.Mul(decimal.NewFromInt(line.Quantity)))
		lines = append(lines, domain.ReturnItem{
			ID:        uuid.NewString(),
			ReturnID:  ret.ID,
			ItemID:    line.ItemID,
			ItemName:  orig.name,
			Quantity:  line.Quantity,
			UnitPrice: orig.price,
		})
	}
	ret.TotalRefund = refund
	ret.Items = lines

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO returns (id, store_id, transaction_id, customer_id, total_refund, reason, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, ret.ID, ret.StoreID, ret.TransactionID, nullIfEmpty(ret.CustomerID), ret.TotalRefund, ret.Reason, ret.CreatedAt)
	if err != nil {
		return nil, err
	}

	for _, line := range ret.Items {
		_, err = pgTx.ExecContext(ctx, `
			INSERT INTO return_items (id, return_id, item_id, item_name, quantity, unit_price)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, line.ID, line.ReturnID, line.ItemID, line.ItemName, line.Quantity, line.UnitPrice)
		if err != nil {
			return nil, err
		}

		// Restock. The item may have been deleted since the sale; the
		// return still goes through, so the row count is not checked.
		_, err = pgTx.ExecContext(ctx, `
			UPDATE items
			SET stock = stock + $3
			WHERE store_id = $1 AND id = $2
		`, ret.StoreID, line.ItemID, line.Quantity)
		if err != nil {
			return nil, err
		}
	}

	// The balance decrement happens for any sale with a customer attached,
	// cash included, and may go below zero.
	if ret.CustomerID != "" {
		_, err = pgTx.ExecContext(ctx, `
			UPDATE customers
			SET current_balance = current_balance - $3
			WHERE store_id = $1 AND id = $2
		`, ret.StoreID, ret.CustomerID, ret.TotalRefund)
		if err != nil {
			return nil, err
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	created := ret
	return &created, nil
}

func (s *Store) MarkCreditPaid(ctx context.Context, storeID string, transactionID string, method string, notes string, at time.Time) (*domain.Transaction, error) {
	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	var tx domain.Transaction
	var customerID sql.NullString
	err = pgTx.QueryRowContext(ctx, `
		SELECT id, store_id, customer_id, total_amount, payment_type, COALESCE(credit_status,''), created_at
		FROM transactions
		WHERE store_id = $1 AND id = $2
		FOR UPDATE
	`, storeID, transactionID).Scan(&tx.ID, &tx.StoreID, &customerID, &tx.TotalAmount, &tx.PaymentType, &tx.CreditStatus, &tx.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if tx.PaymentType != domain.PaymentCredit {
		return nil, store.ErrInvalidArgument
	}
	if customerID.Valid {
		tx.CustomerID = customerID.String
	}

	_, err = pgTx.ExecContext(ctx, `
		UPDATE transactions
		SET credit_status = $3, paid_at = $4, payment_method = $5, payment_notes = $6
		WHERE store_id = $1 AND id = $2
	`, storeID, transactionID, domain.CreditPaid, at, method, nullIfEmpty(notes))
	if err != nil {
		return nil, err
	}

	if tx.CustomerID != "" {
		_, err = pgTx.ExecContext(ctx, `
			UPDATE customers
			SET current_balance = current_balance - $3
			WHERE store_id = $1 AND id = $2
		`, storeID, tx.CustomerID, tx.TotalAmount)
		if err != nil {
			return nil, err
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	tx.CreditStatus = domain.CreditPaid
	paidAt := at
	tx.PaidAt = &paidAt
	tx.PaymentMethod = method
	tx.PaymentNotes = notes
	return &tx, nil
}

const transactionColumns = `
	t.id, t.store_id, COALESCE(t.customer_id,''), COALESCE(c.name,''),
	t.total_amount, t.payment_type, COALESCE(t.credit_status,''),
	t.due_date, t.paid_at, COALESCE(t.payment_method,''), COALESCE(t.payment_notes,''), t.created_at
`

func scanTransactionRows(rows *sql.Rows) ([]domain.Transaction, error) {
	defer rows.Close()
	txs := make([]domain.Transaction, 0, 32)
	for rows.Next() {
		var tx domain.Transaction
		var dueDate, paidAt sql.NullTime
		if err := rows.Scan(&tx.ID, &tx.StoreID, &tx.CustomerID, &tx.CustomerName,
			&tx.TotalAmount, &tx.PaymentType, &tx.CreditStatus,
			&dueDate, &paidAt, &tx.PaymentMethod, &tx.PaymentNotes, &tx.CreatedAt); err != nil {
			return nil, err
		}
		if dueDate.Valid {
			d := dueDate.Time.UTC()
			tx.DueDate = &d
		}
		if paidAt.Valid {
			p := paidAt.Time.UTC()
			tx.PaidAt = &p
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return txs, nil
}

func (s *Store) GetTransaction(ctx context.Context, storeID string, transactionID string) (*domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions t
		LEFT JOIN customers c ON c.id = t.customer_id
		WHERE t.store_id = $1 AND t.id = $2
	`, storeID, transactionID)
	if err != nil {
		return nil, err
	}
	txs, err := scanTransactionRows(rows)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, store.ErrNotFound
	}
	tx := txs[0]

	lineRows, err := s.db.QueryContext(ctx, `
		SELECT id, transaction_id, item_id, item_name, quantity, unit_price
		FROM transaction_items
		WHERE transaction_id = $1
	`, transactionID)
	if err != nil {
		return nil, err
	}
	defer lineRows.Close()
	for lineRows.Next() {
		var line domain.TransactionItem
		if err := lineRows.Scan(&line.ID, &line.TransactionID, &line.ItemID, &line.ItemName, &line.Quantity, &line.UnitPrice); err != nil {
			return nil, err
		}
		tx.Items = append(tx.Items, line)
	}
	if err := lineRows.Err(); err != nil {
		return nil, err
	}
	return &tx, nil
}

func (s *Store) ListTransactions(ctx context.Context, storeID string, limit int) ([]domain.Transaction, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions t
		LEFT JOIN customers c ON c.id = t.customer_id
		WHERE t.store_id = $1
		ORDER BY t.created_at DESC
		LIMIT $2
	`, storeID, limit)
	if err != nil {
		return nil, err
	}
	return scanTransactionRows(rows)
}

func (s *Store) ListReturns(ctx context.Context, storeID string, limit int) ([]domain.Return, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, store_id, transaction_id, COALESCE(customer_id,''), total_refund, COALESCE(reason,''), created_at
		FROM returns
		WHERE store_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, storeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rets := make([]domain.Return, 0, 16)
	for rows.Next() {
		var r domain.Return
		if err := rows.Scan(&r.ID, &r.StoreID, &r.TransactionID, &r.CustomerID, &r.TotalRefund, &r.Reason, &r.CreatedAt); err != nil {
			return nil, err
		}
		rets = append(rets, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rets, nil
}

func (s *Store) ListCreditsByStatus(ctx context.Context, storeID string, status string) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions t
		LEFT JOIN customers c ON c.id = t.customer_id
		WHERE t.store_id = $1 AND t.payment_type = 'credit' AND t.credit_status = $2
		ORDER BY t.due_date ASC NULLS LAST, t.created_at DESC
	`, storeID, status)
	if err != nil {
		return nil, err
	}
	return scanTransactionRows(rows)
}

// ListOverdueCredits persists pending -> overdue for every credit past due
// before reading, so the flip survives restarts. Paid credits and credits
// without a due date are never touched.
func (s *Store) ListOverdueCredits(ctx context.Context, storeID string, today time.Time) ([]domain.Transaction, error) {
	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	_, err = pgTx.ExecContext(ctx, `
		UPDATE transactions
		SET credit_status = $3
		WHERE store_id = $1 AND payment_type = 'credit' AND credit_status = $4 AND due_date < $2
	`, storeID, dateUTC(today), domain.CreditOverdue, domain.CreditPending)
	if err != nil {
		return nil, err
	}

	rows, err := pgTx.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions t
		LEFT JOIN customers c ON c.id = t.customer_id
		WHERE t.store_id = $1 AND t.payment_type = 'credit' AND t.credit_status = $2
		ORDER BY t.due_date ASC, t.created_at DESC
	`, storeID, domain.CreditOverdue)
	if err != nil {
		return nil, err
	}
	txs, err := scanTransactionRows(rows)
	if err != nil {
		return nil, err
	}
	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	return txs, nil
}

// ListCreditsPastDue returns credits whose due date has passed, whether or
// not ListOverdueCredits has persisted the status flip yet. Pure read.
func (s *Store) ListCreditsPastDue(ctx context.Context, storeID string, today time.Time) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions t
		LEFT JOIN customers c ON c.id = t.customer_id
		WHERE t.store_id = $1 AND t.payment_type = 'credit'
		  AND t.credit_status IN ($2, $3) AND t.due_date < $4
		ORDER BY t.due_date ASC
	`, storeID, domain.CreditPending, domain.CreditOverdue, dateUTC(today))
	if err != nil {
		return nil, err
	}
	return scanTransactionRows(rows)
}

func (s *Store) ListCreditsDueSoon(ctx context.Context, storeID string, from time.Time, to time.Time) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions t
		LEFT JOIN customers c ON c.id = t.customer_id
		WHERE t.store_id = $1 AND t.payment_type = 'credit' AND t.credit_status = $2
		  AND t.due_date >= $3 AND t.due_date <= $4
		ORDER BY t.due_date ASC
	`, storeID, domain.CreditPending, dateUTC(from), dateUTC(to))
	if err != nil {
		return nil, err
	}
	return scanTransactionRows(rows)
}

func (s *Store) ListCreditsByCustomer(ctx context.Context, storeID string, customerID string) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions t
		LEFT JOIN customers c ON c.id = t.customer_id
		WHERE t.store_id = $1 AND t.customer_id = $2 AND t.payment_type = 'credit'
		ORDER BY t.created_at DESC
	`, storeID, customerID)
	if err != nil {
		return nil, err
	}
	return scanTransactionRows(rows)
}

func (s *Store) DailyIncome(ctx context.Context, storeID string, from time.Time, to time.Time) ([]domain.DailyAmount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT created_at::date AS day, SUM(total_amount)
		FROM transactions
		WHERE store_id = $1 AND created_at >= $2 AND created_at < $3
		GROUP BY day
		ORDER BY day ASC
	`, storeID, from, to)
	if err != nil {
		return nil, err
	}
	return scanDailyAmounts(rows)
}

func (s *Store) DailyProfit(ctx context.Context, storeID string, from time.Time, to time.Time) ([]domain.DailyAmount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.created_at::date AS day,
		       SUM(ti.quantity * (ti.unit_price - COALESCE(i.cost, 0)))
		FROM transactions t
		JOIN transaction_items ti ON ti.transaction_id = t.id
		LEFT JOIN items i ON i.id = ti.item_id
		WHERE t.store_id = $1 AND t.created_at >= $2 AND t.created_at < $3
		GROUP BY day
		ORDER BY day ASC
	`, storeID, from, to)
	if err != nil {
		return nil, err
	}
	return scanDailyAmounts(rows)
}

func scanDailyAmounts(rows *sql.Rows) ([]domain.DailyAmount, error) {
	defer rows.Close()
	out := make([]domain.DailyAmount, 0, 31)
	for rows.Next() {
		var day time.Time
		var amount decimal.Decimal
		if err := rows.Scan(&day, &amount); err != nil {
			return nil, err
		}
		out = append(out, domain.DailyAmount{Date: day.UTC().Format("2006-01-02"), Amount: amount})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) AdminStats(ctx context.Context) (domain.AdminStats, error) {
	var stats domain.AdminStats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM stores),
			(SELECT COUNT(*) FROM store_owners),
			(SELECT COUNT(*) FROM customers),
			(SELECT COUNT(*) FROM transactions),
			(SELECT COALESCE(SUM(total_amount), 0) FROM transactions)
	`).Scan(&stats.Stores, &stats.Owners, &stats.Customers, &stats.Transactions, &stats.TotalVolume)
	if err != nil {
		return domain.AdminStats{}, err
	}
	return stats, nil
}

func (s *Store) AdminListStores(ctx context.Context) ([]domain.Store, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, name, COALESCE(address,''), COALESCE(phone,''),
		       COALESCE(currency,'USD'), COALESCE(currency_symbol,'$'), created_at
		FROM stores
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stores := make([]domain.Store, 0, 32)
	for rows.Next() {
		var st domain.Store
		if err := rows.Scan(&st.ID, &st.OwnerID, &st.Name, &st.Address, &st.Phone, &st.Currency, &st.CurrencySymbol, &st.CreatedAt); err != nil {
			return nil, err
		}
		stores = append(stores, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stores, nil
}

func (s *Store) AdminListOwners(ctx context.Context) ([]domain.StoreOwner, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, COALESCE(full_name,''), created_at
		FROM store_owners
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	owners := make([]domain.StoreOwner, 0, 32)
	for rows.Next() {
		var o domain.StoreOwner
		if err := rows.Scan(&o.ID, &o.Email, &o.FullName, &o.CreatedAt); err != nil {
			return nil, err
		}
		owners = append(owners, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return owners, nil
}

func (s *Store) AdminListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, store_id, name, COALESCE(phone,''), COALESCE(address,''), current_balance, created_at
		FROM customers
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 64)
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.StoreID, &c.Name, &c.Phone, &c.Address, &c.CurrentBalance, &c.CreatedAt); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *Store) AdminListTransactions(ctx context.Context, limit int) ([]domain.Transaction, error) {
	if limit < 1 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions t
		LEFT JOIN customers c ON c.id = t.customer_id
		ORDER BY t.created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return scanTransactionRows(rows)
}

func (s *Store) DeleteStoreCascade(ctx context.Context, storeID string) error {
	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = pgTx.Rollback() }()

	statements := []string{
		`DELETE FROM return_items WHERE return_id IN (SELECT id FROM returns WHERE store_id = $1)`,
		`DELETE FROM returns WHERE store_id = $1`,
		`DELETE FROM transaction_items WHERE transaction_id IN (SELECT id FROM transactions WHERE store_id = $1)`,
		`DELETE FROM transactions WHERE store_id = $1`,
		`DELETE FROM customers WHERE store_id = $1`,
		`DELETE FROM items WHERE store_id = $1`,
	}
	for _, stmt := range statements {
		if _, err := pgTx.ExecContext(ctx, stmt, storeID); err != nil {
			return err
		}
	}

	res, err := pgTx.ExecContext(ctx, `DELETE FROM stores WHERE id = $1`, storeID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return pgTx.Commit()
}

func (s *Store) DeleteTransactionCascade(ctx context.Context, storeID string, transactionID string) error {
	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = pgTx.Rollback() }()

	statements := []string{
		`DELETE FROM return_items WHERE return_id IN (SELECT id FROM returns WHERE store_id = $1 AND transaction_id = $2)`,
		`DELETE FROM returns WHERE store_id = $1 AND transaction_id = $2`,
	}
	for _, stmt := range statements {
		if _, err := pgTx.ExecContext(ctx, stmt, storeID, transactionID); err != nil {
			return err
		}
	}
	if _, err := pgTx.ExecContext(ctx, `DELETE FROM transaction_items WHERE transaction_id = $1`, transactionID); err != nil {
		return err
	}

	res, err := pgTx.ExecContext(ctx, `
		DELETE FROM transactions WHERE store_id = $1 AND id = $2
	`, storeID, transactionID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return pgTx.Commit()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullDate(val *time.Time) any {
	if val == nil {
		return nil
	}
	return dateUTC(*val)
}

func dateUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
