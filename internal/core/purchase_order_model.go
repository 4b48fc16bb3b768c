package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the reception state of a purchase order.
//
//	PENDING → IN_PROGRESS → RECEIVED
//	PENDING → CANCELLED (nothing received yet)
type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderInProgress OrderStatus = "IN_PROGRESS"
	OrderReceived   OrderStatus = "RECEIVED"
	OrderCancelled  OrderStatus = "CANCELLED"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderInProgress, OrderReceived, OrderCancelled:
		return true
	}
	return false
}

// Closed reports whether no further reception is possible.
func (s OrderStatus) Closed() bool { return s == OrderReceived || s == OrderCancelled }

// PurchaseOrder is a supplier order. PaymentStatus is derived from the paid amount, never stored.
type PurchaseOrder struct {
	ID              int                 `json:"id"`
	BoutiqueID      int                 `json:"boutique_id"`
	SupplierID      int                 `json:"supplier_id"`
	SupplierName    string              `json:"supplier_name"`
	UserID          *int                `json:"user_id,omitempty"`
	Number          string              `json:"number"`
	AmountTotal     decimal.Decimal     `json:"amount_total"`
	AmountPaid      decimal.Decimal     `json:"amount_paid"`
	AmountRemaining decimal.Decimal     `json:"amount_remaining"`
	Status          OrderStatus         `json:"status"`
	PaymentStatus   PaymentStatus       `json:"payment_status"`
	DueDate         *time.Time          `json:"due_date,omitempty"`
	Notes           *string             `json:"notes,omitempty"`
	ReceivedAt      *time.Time          `json:"received_at,omitempty"`
	Lines           []PurchaseOrderLine `json:"lines,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// PurchaseOrderLine tracks ordered versus received quantities.
// QuantityReceived only grows and never exceeds Quantity.
type PurchaseOrderLine struct {
	ID               int             `json:"id"`
	OrderID          int             `json:"order_id"`
	ProductID        int             `json:"product_id"`
	ProductName      string          `json:"product_name"`
	Quantity         int             `json:"quantity"`
	QuantityReceived int             `json:"quantity_received"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Subtotal         decimal.Decimal `json:"subtotal"`
}

// Outstanding is the quantity still expected from the supplier.
func (l PurchaseOrderLine) Outstanding() int { return l.Quantity - l.QuantityReceived }

// OrderLineInput is one requested line. A zero UnitPrice means the catalog purchase price.
type OrderLineInput struct {
	ProductID int
	Quantity  int
	UnitPrice decimal.Decimal
}

// OrderInput is the request of CreateOrder.
type OrderInput struct {
	SupplierID int
	DueDate    *time.Time
	Notes      string
	Lines      []OrderLineInput
}

func (in OrderInput) validate() error {
	v := &ValidationError{}
	if in.SupplierID <= 0 {
		v.Add("supplier_id", "le fournisseur est obligatoire")
	}
	if len(in.Lines) == 0 {
		v.Add("lines", "la commande doit contenir au moins une ligne")
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
	return v.Err()
}

// ReceivedLine is a quantity delta received against one order line.
type ReceivedLine struct {
	OrderLineID      int
	QuantityReceived int
}

// ReceptionInput is the request of ReceiveOrder.
// CancelRemainder shrinks every line to what has been received and closes the order.
type ReceptionInput struct {
	Lines           []ReceivedLine
	AmountPaid      decimal.Decimal
	CancelRemainder bool
}

func (in ReceptionInput) validate() error {
	v := &ValidationError{}
	for i, l := range in.Lines {
		if l.QuantityReceived < 0 {
			v.Add(fmt.Sprintf("lines[%d].quantity_received", i), "la quantité reçue ne peut pas être négative")
		}
	}
	if in.AmountPaid.IsNegative() {
		v.Add("amount_paid", "le montant payé ne peut pas être négatif")
	}
	v.Money("amount_paid", in.AmountPaid)
	if len(in.Lines) == 0 && !in.CancelRemainder && in.AmountPaid.IsZero() {
		v.Add("lines", "aucune quantité à réceptionner")
	}
	return v.Err()
}

// OrderFilter narrows ListOrders.
type OrderFilter struct {
	Status     *OrderStatus
	SupplierID *int
	DateRange
	Page
}

// receipt is one stock entry a reception will write.
type receipt struct {
	lineID    int
	productID int
	quantity  int
}

// planReception checks every requested quantity against the order lines before
// anything is written. Entries naming the same line are summed. The result is
// sorted by product id, the order in which sales lock stock rows too.
func planReception(lines []PurchaseOrderLine, requested []ReceivedLine) ([]receipt, error) {
	byID := make(map[int]PurchaseOrderLine, len(lines))
	for _, l := range lines {
		byID[l.ID] = l
	}
	delta := make(map[int]int, len(requested))
	for _, rl := range requested {
		if _, ok := byID[rl.OrderLineID]; !ok {
			return nil, notFound("ligne de commande", rl.OrderLineID)
		}
		delta[rl.OrderLineID] += rl.QuantityReceived
	}

	out := make([]receipt, 0, len(delta))
	for lineID, qty := range delta {
		line := byID[lineID]
		if line.QuantityReceived+qty > line.Quantity {
			return nil, &OverReceiptError{
				Product:         line.ProductName,
				Ordered:         line.Quantity,
				AlreadyReceived: line.QuantityReceived,
				Attempted:       qty,
			}
		}
		if qty > 0 {
			out = append(out, receipt{lineID: lineID, productID: line.ProductID, quantity: qty})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].productID != out[j].productID {
			return out[i].productID < out[j].productID
		}
		return out[i].lineID < out[j].lineID
	})
	return out, nil
}

func receptionReason(number, product string) string {
	return "Réception commande " + number + " - " + product
}

func orderPaymentDescription(number string) string { return "Paiement commande " + number }

// PurchaseOrderService is the purchase order and reception engine.
type PurchaseOrderService interface {
	CreateOrder(ctx context.Context, p Principal, boutiqueID int, in OrderInput) (*PurchaseOrder, error)
	GetOrder(ctx context.Context, p Principal, orderID int) (*PurchaseOrder, error)
	ListOrders(ctx context.Context, p Principal, boutiqueID int, filter OrderFilter) ([]PurchaseOrder, error)

	// ReceiveOrder applies received quantities, stock IN movements, the optional remainder
	// cancellation and the optional payment in one transaction. Any failure leaves nothing behind.
	ReceiveOrder(ctx context.Context, p Principal, orderID int, in ReceptionInput) (*PurchaseOrder, error)

	CancelOrder(ctx context.Context, p Principal, orderID int) (*PurchaseOrder, error)
	PayOrder(ctx context.Context, p Principal, orderID int, amount decimal.Decimal, description string) (*PurchaseOrder, error)
}
