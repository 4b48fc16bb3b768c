package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a capital ledger entry.
type TransactionType string

const (
	TxRevenue          TransactionType = "REVENUE"
	TxExpense          TransactionType = "EXPENSE"
	TxCapitalInjection TransactionType = "CAPITAL_INJECTION"
	TxWithdrawal       TransactionType = "WITHDRAWAL"
	TxSale             TransactionType = "SALE"
	TxPurchase         TransactionType = "PURCHASE"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TxRevenue, TxExpense, TxCapitalInjection, TxWithdrawal, TxSale, TxPurchase:
		return true
	}
	return false
}

// Manual reports whether t may be entered by hand. SALE and PURCHASE entries
// are only ever written by the sale, payment and reception engines.
func (t TransactionType) Manual() bool {
	return t.Valid() && t != TxSale && t != TxPurchase
}

// Outflow reports whether t takes money out of the boutique's balance.
func (t TransactionType) Outflow() bool {
	return t == TxExpense || t == TxPurchase || t == TxWithdrawal
}

// NormalizeAmount applies the storage sign rule: EXPENSE is stored negative,
// every other type positive. The input sign is ignored.
func NormalizeAmount(t TransactionType, amount decimal.Decimal) decimal.Decimal {
	if t == TxExpense {
		return amount.Abs().Neg()
	}
	return amount.Abs()
}

// Transaction is an append-only capital ledger entry.
// At most one of SaleID/PaymentID/PurchaseOrderID chains back to the engine that wrote it
// (a payment entry carries both PaymentID and SaleID).
type Transaction struct {
	ID              int             `json:"id"`
	BoutiqueID      int             `json:"boutique_id"`
	UserID          *int            `json:"user_id,omitempty"`
	Type            TransactionType `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	Description     string          `json:"description"`
	SaleID          *int            `json:"sale_id,omitempty"`
	PaymentID       *int            `json:"payment_id,omitempty"`
	PurchaseOrderID *int            `json:"purchase_order_id,omitempty"`
	OccurredAt      time.Time       `json:"occurred_at"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Effect is the signed contribution of the entry to the running balance.
func (t Transaction) Effect() decimal.Decimal {
	return TransactionEffect(t.Type, t.Amount)
}

// TransactionEffect is -|amount| for outflows and +|amount| otherwise.
func TransactionEffect(t TransactionType, amount decimal.Decimal) decimal.Decimal {
	if t.Outflow() {
		return amount.Abs().Neg()
	}
	return amount.Abs()
}

// Linked reports whether an engine owns this entry.
func (t Transaction) Linked() bool {
	return t.SaleID != nil || t.PaymentID != nil || t.PurchaseOrderID != nil
}

// TransactionEntry is the input of Ledger.RecordTx.
type TransactionEntry struct {
	BoutiqueID      int
	UserID          *int
	Type            TransactionType
	Amount          decimal.Decimal
	Description     string
	SaleID          *int
	PaymentID       *int
	PurchaseOrderID *int
	OccurredAt      *time.Time // defaults to NOW()
}

func (e TransactionEntry) validate() error {
	v := &ValidationError{}
	if !e.Type.Valid() {
		v.Add("type", "type de transaction invalide")
	}
	if e.Amount.IsZero() {
		v.Add("amount", "le montant doit être non nul")
	}
	if strings.TrimSpace(e.Description) == "" {
		v.Add("description", "la description est obligatoire")
	}
	return v.Err()
}

// TransactionInput is a manual capital ledger entry.
type TransactionInput struct {
	Type        TransactionType
	Amount      decimal.Decimal
	Description string
	OccurredAt  *time.Time
}

func (in TransactionInput) validate() error {
	v := &ValidationError{}
	if !in.Type.Manual() {
		v.Add("type", "type invalide : REVENUE, EXPENSE, CAPITAL_INJECTION ou WITHDRAWAL")
	}
	if !in.Amount.IsPositive() {
		v.Add("amount", "le montant doit être strictement positif")
	}
	v.Money("amount", in.Amount)
	if strings.TrimSpace(in.Description) == "" {
		v.Add("description", "la description est obligatoire")
	}
	return v.Err()
}

// TransactionFilter narrows ListTransactions.
type TransactionFilter struct {
	Type *TransactionType
	DateRange
	Page
}
