package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Store struct {
	ID             string    `json:"id"`
	OwnerID        string    `json:"owner_id"`
	Name           string    `json:"name"`
	Address        string    `json:"address,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	Currency       string    `json:"currency"`
	CurrencySymbol string    `json:"currency_symbol"`
	CreatedAt      time.Time `json:"created_at"`
}

type StoreUpdateRequest struct {
	Name           *string `json:"name,omitempty"`
	Address        *string `json:"address,omitempty"`
	Phone          *string `json:"phone,omitempty"`
	Currency       *string `json:"currency,omitempty"`
	CurrencySymbol *string `json:"currency_symbol,omitempty"`
}

type StoreOwner struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	CreatedAt    time.Time `json:"created_at"`
}

type Item struct {
	ID        string          `json:"id"`
	StoreID   string          `json:"store_id"`
	Name      string          `json:"name"`
	Category  string          `json:"category,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Cost      decimal.Decimal `json:"cost"`
	Stock     int64           `json:"stock"`
	Barcode   string          `json:"barcode,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type ItemCreateRequest struct {
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	Cost     decimal.Decimal `json:"cost"`
	Stock    int64           `json:"stock"`
	Barcode  string          `json:"barcode"`
}

type ItemUpdateRequest struct {
	Name     *string          `json:"name,omitempty"`
	Category *string          `json:"category,omitempty"`
	Price    *decimal.Decimal `json:"price,omitempty"`
	Cost     *decimal.Decimal `json:"cost,omitempty"`
	Stock    *int64           `json:"stock,omitempty"`
	Barcode  *string          `json:"barcode,omitempty"`
}

type Customer struct {
	ID             string          `json:"id"`
	StoreID        string          `json:"store_id"`
	Name           string          `json:"name"`
	Phone          string          `json:"phone,omitempty"`
	Address        string          `json:"address,omitempty"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	CreatedAt      time.Time       `json:"created_at"`
}

type CustomerCreateRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type CustomerUpdateRequest struct {
	Name    *string `json:"name,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
}

type CustomerDetail struct {
	Customer Customer      `json:"customer"`
	Credits  []Transaction `json:"credits"`
}

type SaleLine struct {
	ItemID   string `json:"item_id"`
	Quantity int64  `json:"quantity"`
}

type SaleRequest struct {
	CustomerID  string     `json:"customer_id,omitempty"`
	PaymentType string     `json:"payment_type"`
	DueDate     string     `json:"due_date,omitempty"`
	Items       []SaleLine `json:"items"`
}

type Transaction struct {
	ID            string            `json:"id"`
	StoreID       string            `json:"store_id"`
	CustomerID    string            `json:"customer_id,omitempty"`
	CustomerName  string            `json:"customer_name,omitempty"`
	TotalAmount   decimal.Decimal   `json:"total_amount"`
	PaymentType   string            `json:"payment_type"`
	CreditStatus  string            `json:"credit_status,omitempty"`
	DueDate       *time.Time        `json:"due_date,omitempty"`
	PaidAt        *time.Time        `json:"paid_at,omitempty"`
	PaymentMethod string            `json:"payment_method,omitempty"`
	PaymentNotes  string            `json:"payment_notes,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	Items         []TransactionItem `json:"items,omitempty"`
}

type TransactionItem struct {
	ID            string          `json:"id"`
	TransactionID string          `json:"transaction_id"`
	ItemID        string          `json:"item_id"`
	ItemName      string          `json:"item_name"`
	Quantity      int64           `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
}

type ReturnLine struct {
	ItemID   string `json:"item_id"`
	Quantity int64  `json:"quantity"`
}

type ReturnRequest struct {
	TransactionID string       `json:"transaction_id"`
	Reason        string       `json:"reason"`
	Items         []ReturnLine `json:"items"`
}

type Return struct {
	ID            string          `json:"id"`
	StoreID       string          `json:"store_id"`
	TransactionID string          `json:"transaction_id"`
	CustomerID    string          `json:"customer_id,omitempty"`
	TotalRefund   decimal.Decimal `json:"total_refund"`
	Reason        string          `json:"reason,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	Items         []ReturnItem    `json:"items,omitempty"`
}

type ReturnItem struct {
	ID        string          `json:"id"`
	ReturnID  string          `json:"return_id"`
	ItemID    string          `json:"item_id"`
	ItemName  string          `json:"item_name"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type MarkPaidRequest struct {
	PaymentMethod string `json:"payment_method"`
	PaymentNotes  string `json:"payment_notes,omitempty"`
}

type CreditBucket struct {
	Count       int             `json:"count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

type CreditAlerts struct {
	Overdue CreditBucket  `json:"overdue"`
	DueSoon CreditBucket  `json:"due_soon"`
	Soon    []Transaction `json:"due_soon_transactions"`
}

type DailyAmount struct {
	Date   string          `json:"date"`
	Amount decimal.Decimal `json:"amount"`
}

type SignupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FullName    string `json:"full_name"`
	StoreName   string `json:"store_name"`
	Address     string `json:"address"`
	Phone       string `json:"phone"`
	Currency    string `json:"currency"`
	CurrencySym string `json:"currency_symbol"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	StoreID     string `json:"store_id,omitempty"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	OwnerID string
	StoreID string
	Role    string
}

type AdminStats struct {
	Stores       int64           `json:"stores"`
	Owners       int64           `json:"owners"`
	Customers    int64           `json:"customers"`
	Transactions int64           `json:"transactions"`
	TotalVolume  decimal.Decimal `json:"total_volume"`
}

const (
	PaymentCash   = "cash"
	PaymentCredit = "credit"
)

const (
	CreditPending = "pending"
	CreditOverdue = "overdue"
	CreditPaid    = "paid"
)

const (
	RoleOwner = "owner"
	RoleAdmin = "admin"
)
