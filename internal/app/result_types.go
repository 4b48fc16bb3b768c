package app

import (
	"github.com/Drasasse/gestion-commerce-sub001/internal/core"

	"github.com/shopspring/decimal"
)

// UserSession is returned by AuthenticateUser and carried in the auth token.
type UserSession struct {
	UserID     int       `json:"user_id"`
	Username   string    `json:"username"`
	FullName   string    `json:"full_name"`
	Role       core.Role `json:"role"`
	BoutiqueID *int      `json:"boutique_id,omitempty"`
}

// Principal returns the identity core operations run under for the session.
func (s UserSession) Principal() core.Principal {
	return core.Principal{UserID: s.UserID, Role: s.Role, BoutiqueID: s.BoutiqueID}
}

// SaleListResult is returned by ListSales. Outstanding sums the listed sales only.
type SaleListResult struct {
	BoutiqueID  int             `json:"boutique_id"`
	Sales       []core.Sale     `json:"sales"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

// OrderListResult is returned by ListPurchaseOrders.
type OrderListResult struct {
	BoutiqueID int                  `json:"boutique_id"`
	Orders     []core.PurchaseOrder `json:"orders"`
}

// StockResult is returned by GetStockLevels.
type StockResult struct {
	BoutiqueID int          `json:"boutique_id"`
	Levels     []core.Stock `json:"levels"`
	LowCount   int          `json:"low_count"`
}

// TransactionListResult is returned by ListTransactions.
type TransactionListResult struct {
	BoutiqueID   int                `json:"boutique_id"`
	Transactions []core.Transaction `json:"transactions"`
}

// InvariantReport is returned by CheckInvariants.
type InvariantReport struct {
	BoutiqueID int              `json:"boutique_id"`
	Violations []core.Violation `json:"violations"`
}

// OK reports whether no invariant is violated.
func (r InvariantReport) OK() bool { return len(r.Violations) == 0 }
