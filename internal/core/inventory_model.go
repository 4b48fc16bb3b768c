package core

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// MovementKind is the direction of a stock movement.
type MovementKind string

const (
	MovementIn  MovementKind = "IN"
	MovementOut MovementKind = "OUT"
)

// Valid reports whether k is IN or OUT.
func (k MovementKind) Valid() bool { return k == MovementIn || k == MovementOut }

// Stock is the on-hand quantity of one product, joined with product info for display.
type Stock struct {
	ID             int        `json:"id"`
	BoutiqueID     int        `json:"boutique_id"`
	ProductID      int        `json:"product_id"`
	ProductName    string     `json:"product_name"`
	CategoryName   string     `json:"category_name"`
	Quantity       int        `json:"quantity"`
	AlertThreshold int        `json:"alert_threshold"`
	IsLow          bool       `json:"is_low"` // quantity <= alert threshold
	LastEntry      *time.Time `json:"last_entry,omitempty"`
	LastExit       *time.Time `json:"last_exit,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// StockMovement is one append-only entry of the stock audit log.
// Quantity is always positive; Kind carries the sign.
type StockMovement struct {
	ID          int          `json:"id"`
	BoutiqueID  int          `json:"boutique_id"`
	StockID     int          `json:"stock_id"`
	ProductID   int          `json:"product_id"`
	ProductName string       `json:"product_name"`
	Kind        MovementKind `json:"kind"`
	Quantity    int          `json:"quantity"`
	Reason      string       `json:"reason"`
	SaleID      *int         `json:"sale_id,omitempty"`
	UserID      *int         `json:"user_id,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// SignedQuantity returns +Quantity for IN and -Quantity for OUT.
func (m StockMovement) SignedQuantity() int {
	if m.Kind == MovementOut {
		return -m.Quantity
	}
	return m.Quantity
}

// StockAdjustment is the input of the stock ledger primitive.
// Delta is positive for IN and negative for OUT.
type StockAdjustment struct {
	StockID int
	Delta   int
	Kind    MovementKind
	Reason  string
	SaleID  *int
	UserID  *int
}

func (a StockAdjustment) validate() error {
	v := &ValidationError{}
	if a.Delta == 0 {
		v.Add("quantity", "la quantité doit être non nulle")
	}
	switch a.Kind {
	case MovementIn:
		if a.Delta < 0 {
			v.Add("quantity", "une entrée doit avoir une quantité positive")
		}
	case MovementOut:
		if a.Delta > 0 {
			v.Add("quantity", "une sortie doit avoir une quantité négative")
		}
	default:
		v.Add("kind", "type de mouvement invalide")
	}
	if a.Reason == "" {
		v.Add("reason", "le motif est obligatoire")
	}
	return v.Err()
}

// StockFilter narrows GetStockLevels.
type StockFilter struct {
	LowStockOnly bool
	CategoryID   *int
}

// MovementFilter narrows ListMovements.
type MovementFilter struct {
	ProductID *int
	Kind      *MovementKind
	DateRange
	Page
}

// InventoryService owns every write to stocks.quantity.
type InventoryService interface {
	// AdjustStockTx is the only code path allowed to change a stock quantity.
	// It locks the stock row, rejects an OUT that would go negative with
	// InsufficientStockError, and writes the matching movement in the same TX.
	AdjustStockTx(ctx context.Context, tx pgx.Tx, adj StockAdjustment) (*StockMovement, error)

	// EnsureStockTx returns the stock row id for a product, creating an empty row if missing.
	EnsureStockTx(ctx context.Context, tx pgx.Tx, boutiqueID, productID int) (int, error)

	// AdjustStock is a manual inventory correction in its own transaction.
	AdjustStock(ctx context.Context, p Principal, productID int, kind MovementKind, quantity int, reason string) (*StockMovement, error)

	GetStockLevels(ctx context.Context, p Principal, boutiqueID int, filter StockFilter) ([]Stock, error)
	ListMovements(ctx context.Context, p Principal, boutiqueID int, filter MovementFilter) ([]StockMovement, error)
}
