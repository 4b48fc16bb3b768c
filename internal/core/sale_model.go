package core

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the settlement state of a sale (or of a purchase order's payments).
type PaymentStatus string

const (
	StatusUnpaid  PaymentStatus = "UNPAID"
	StatusPartial PaymentStatus = "PARTIAL"
	StatusPaid    PaymentStatus = "PAID"
)

// DeriveStatus is the only place a payment status is computed.
// Comparison is exact: a remaining balance of exactly zero is PAID.
func DeriveStatus(paid, total decimal.Decimal) PaymentStatus {
	switch {
	case paid.IsZero():
		return StatusUnpaid
	case paid.LessThan(total):
		return StatusPartial
	default:
		return StatusPaid
	}
}

// PaymentMethod is how a customer settled a payment.
type PaymentMethod string

const (
	MethodCash        PaymentMethod = "ESPECES"
	MethodCard        PaymentMethod = "CARTE"
	MethodTransfer    PaymentMethod = "VIREMENT"
	MethodCheque      PaymentMethod = "CHEQUE"
	MethodMobileMoney PaymentMethod = "MOBILE_MONEY"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodCard, MethodTransfer, MethodCheque, MethodMobileMoney:
		return true
	}
	return false
}

// orDefault returns m, or ESPECES when m is blank.
func (m PaymentMethod) orDefault() PaymentMethod {
	if m == "" {
		return MethodCash
	}
	return m
}

// Sale is a committed customer sale. AmountPaid always equals the sum of its payments.
type Sale struct {
	ID              int             `json:"id"`
	BoutiqueID      int             `json:"boutique_id"`
	UserID          int             `json:"user_id"`
	UserName        string          `json:"user_name"`
	ClientID        *int            `json:"client_id,omitempty"`
	ClientName      *string         `json:"client_name,omitempty"`
	Number          string          `json:"number"`
	AmountTotal     decimal.Decimal `json:"amount_total"`
	AmountPaid      decimal.Decimal `json:"amount_paid"`
	AmountRemaining decimal.Decimal `json:"amount_remaining"`
	Status          PaymentStatus   `json:"status"`
	Notes           *string         `json:"notes,omitempty"`
	Lines           []SaleLine      `json:"lines,omitempty"`
	Payments        []Payment       `json:"payments,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// SaleLine is immutable once the sale is committed.
type SaleLine struct {
	ID          int             `json:"id"`
	SaleID      int             `json:"sale_id"`
	ProductID   int             `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// SaleLineInput is one requested line. A zero UnitPrice means the catalog sale price.
type SaleLineInput struct {
	ProductID int
	Quantity  int
	UnitPrice decimal.Decimal
}

// SaleInput is the request of CreateSale. A nil AmountPaid means the sale is paid in full.
type SaleInput struct {
	ClientID      *int
	Lines         []SaleLineInput
	AmountPaid    *decimal.Decimal
	PaymentMethod PaymentMethod
	Notes         string
}

func (in SaleInput) validate() error {
	v := &ValidationError{}
	if len(in.Lines) == 0 {
		v.Add("lines", "la vente doit contenir au moins une ligne")
	}
	for i, l := range in.Lines {
		field := fmt.Sprintf("lines[%d]", i)
		if l.ProductID <= 0 {
			v.Add(field+".product_id", "produit obligatoire")
		}
		if l.Quantity <= 0 {
			v.Add(field+".quantity", "la quantité doit être strictement positive")
		}
		if l.UnitPrice.IsNegative() {
			v.Add(field+".unit_price", "le prix unitaire ne peut pas être négatif")
		}
		v.Money(field+".unit_price", l.UnitPrice)
	}
	if in.AmountPaid != nil {
		if in.AmountPaid.IsNegative() {
			v.Add("amount_paid", "le montant payé ne peut pas être négatif")
		}
		v.Money("amount_paid", *in.AmountPaid)
	}
	if in.PaymentMethod != "" && !in.PaymentMethod.Valid() {
		v.Add("payment_method", "mode de paiement invalide")
	}
	return v.Err()
}

// SaleUpdate changes header metadata only; lines and amounts are never edited.
type SaleUpdate struct {
	ClientID *int
	Notes    string
}

// SaleFilter narrows ListSales. Number matches as a case-insensitive substring.
type SaleFilter struct {
	Status   *PaymentStatus
	ClientID *int
	Number   string
	DateRange
	Page
}

// Payment is one settlement against a sale.
type Payment struct {
	ID         int             `json:"id"`
	SaleID     int             `json:"sale_id"`
	SaleNumber string          `json:"sale_number"`
	UserID     *int            `json:"user_id,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Method     PaymentMethod   `json:"method"`
	Reference  *string         `json:"reference,omitempty"`
	Notes      *string         `json:"notes,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// PaymentInput is the request of AddPayment and UpdatePayment.
type PaymentInput struct {
	Amount    decimal.Decimal
	Method    PaymentMethod
	Reference string
	Notes     string
}

func (in PaymentInput) validate() error {
	v := &ValidationError{}
	if !in.Amount.IsPositive() {
		v.Add("amount", "le montant doit être strictement positif")
	}
	v.Money("amount", in.Amount)
	if in.Method != "" && !in.Method.Valid() {
		v.Add("method", "mode de paiement invalide")
	}
	return v.Err()
}

func saleDescription(number string) string   { return "Vente " + number }
func paymentDescription(number string) string { return "Paiement vente " + number }

// SaleService is the sale engine.
type SaleService interface {
	// CreateSale validates every line against locked stock before any write, then commits the
	// sale, its lines, one OUT movement per line and the initial payment in one transaction.
	CreateSale(ctx context.Context, p Principal, boutiqueID int, in SaleInput) (*Sale, error)
	GetSale(ctx context.Context, p Principal, saleID int) (*Sale, error)
	ListSales(ctx context.Context, p Principal, boutiqueID int, filter SaleFilter) ([]Sale, error)
	UpdateSale(ctx context.Context, p Principal, saleID int, in SaleUpdate) (*Sale, error)
	// CancelSale voids a sale: stock is restored with IN movements and the sale with its
	// lines, payments, OUT movements and linked ledger entries is deleted.
	CancelSale(ctx context.Context, p Principal, saleID int) error
}

// PaymentService reconciles payments against a sale's total.
type PaymentService interface {
	AddPayment(ctx context.Context, p Principal, saleID int, in PaymentInput) (*Payment, error)
	UpdatePayment(ctx context.Context, p Principal, paymentID int, in PaymentInput) (*Payment, error)
	DeletePayment(ctx context.Context, p Principal, paymentID int) error
	ListPayments(ctx context.Context, p Principal, saleID int) ([]Payment, error)
}
