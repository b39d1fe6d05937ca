package domain

import "time"

type Product struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	PriceCents int64  `json:"price_cents"`
	Active     bool   `json:"active"`
}

type ProductCreateRequest struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	PriceCents int64  `json:"price_cents"`
}

type ProductUpdateRequest struct {
	Name       *string `json:"name,omitempty"`
	Category   *string `json:"category,omitempty"`
	PriceCents *int64  `json:"price_cents,omitempty"`
	Active     *bool   `json:"active,omitempty"`
}

type ProductPriceHistory struct {
	ID            string    `json:"id"`
	Code          string    `json:"code"`
	OldPriceCents int64     `json:"old_price_cents"`
	NewPriceCents int64     `json:"new_price_cents"`
	ChangedBy     string    `json:"changed_by"`
	ChangedAt     time.Time `json:"changed_at"`
}

// DiscountItem is a synthetic, typically negative-priced receipt line
// produced by a pricing rule. It is never mutated after creation.
type DiscountItem struct {
	Name        string `json:"name"`
	AmountCents int64  `json:"amount_cents"`
}

// RuleConfig is the persisted definition of a checkout pricing rule.
// A config describes one rule over a single product code:
//   - TriggerEvery n > 0 grants the discount only on every n-th matching
//     product; 0 grants it on every matching product.
//   - MinCount k > 0 keeps the rule's discount lines suppressed until more
//     than k matching products have been scanned; 0 means always visible.
//   - Bulk recomputes one discount line from the cumulative qualifying
//     price instead of appending a line per qualifying product.
//
// Discount magnitudes are negative by convention: DiscountCents -50 takes
// 50 minor units off each qualifying product, ShareParts/ShareOf -1/3
// takes a third off.
type RuleConfig struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	ProductCode   string    `json:"product_code"`
	DiscountCents int64     `json:"discount_cents"`
	ShareParts    int64     `json:"share_parts"`
	ShareOf       int64     `json:"share_of"`
	Bulk          bool      `json:"bulk"`
	TriggerEvery  int       `json:"trigger_every"`
	MinCount      int       `json:"min_count"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
}

type RuleCreateRequest struct {
	Name          string `json:"name"`
	ProductCode   string `json:"product_code"`
	DiscountCents int64  `json:"discount_cents"`
	ShareParts    int64  `json:"share_parts"`
	ShareOf       int64  `json:"share_of"`
	Bulk          bool   `json:"bulk"`
	TriggerEvery  int    `json:"trigger_every"`
	MinCount      int    `json:"min_count"`
}

type RuleToggleRequest struct {
	Active bool `json:"active"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

// CheckoutRequest carries product codes in the exact order they were
// scanned. Order matters: pricing conditions are sequence-sensitive.
type CheckoutRequest struct {
	StoreID           string   `json:"store_id"`
	TerminalID        string   `json:"terminal_id"`
	IdempotencyKey    string   `json:"idempotency_key"`
	PaymentMethod     string   `json:"payment_method"`
	PaymentReference  string   `json:"payment_reference,omitempty"`
	CashReceivedCents int64    `json:"cash_received_cents"`
	Scans             []string `json:"scans"`
}

type ReceiptLine struct {
	Code        string `json:"code,omitempty"`
	Name        string `json:"name"`
	AmountCents int64  `json:"amount_cents"`
	Discount    bool   `json:"discount,omitempty"`
}

type CheckoutResponse struct {
	TransactionID string        `json:"transaction_id"`
	Status        string        `json:"status"`
	PaymentMethod string        `json:"payment_method"`
	SubtotalCents int64         `json:"subtotal_cents"`
	DiscountCents int64         `json:"discount_cents"`
	TotalCents    int64         `json:"total_cents"`
	CashReceived  int64         `json:"cash_received_cents"`
	ChangeCents   int64         `json:"change_cents"`
	ItemCount     int           `json:"item_count"`
	Lines         []ReceiptLine `json:"lines"`
	Duplicate     bool          `json:"duplicate"`
	CreatedAt     string        `json:"created_at"`
}

type CheckoutLookupResponse struct {
	Found    bool              `json:"found"`
	Checkout *CheckoutResponse `json:"checkout,omitempty"`
}

type VoidTransactionRequest struct {
	TransactionID string `json:"transaction_id"`
	Reason        string `json:"reason"`
}

type VoidTransactionResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	VoidedAt      string `json:"voided_at"`
}

type ReceiptRequest struct {
	TransactionID string `json:"transaction_id"`
}

type ReceiptResponse struct {
	TransactionID string `json:"transaction_id"`
	EscposBase64  string `json:"escpos_base64"`
	PreviewText   string `json:"preview_text"`
	FileName      string `json:"file_name"`
}

// TransactionLine is one persisted receipt line. Discount lines carry no
// product code and a negative amount.
type TransactionLine struct {
	Code        string
	Name        string
	AmountCents int64
	Discount    bool
}

type Transaction struct {
	ID                string
	StoreID           string
	TerminalID        string
	IdempotencyKey    string
	PaymentMethod     string
	PaymentReference  string
	SubtotalCents     int64
	DiscountCents     int64
	TotalCents        int64
	CashReceivedCents int64
	ChangeCents       int64
	Status            string
	VoidReason        string
	VoidedAt          *time.Time
	CreatedAt         time.Time
	Lines             []TransactionLine
}

type AuditLog struct {
	ID            string    `json:"id"`
	StoreID       string    `json:"store_id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

const (
	TxStatusPaid   = "paid"
	TxStatusVoided = "voided"
)
