package app

import (
	"context"
	"errors"
	"time"

	"github.com/Drasasse/gestion-commerce-sub001/internal/core"
)

// ErrInternal is what callers see in place of any infrastructure failure.
// The underlying error is logged by the application service, never returned.
var ErrInternal = errors.New("erreur interne du serveur")

// ApplicationService is the single interface all adapters (CLI, Web) call.
// It decouples presentation from business logic. Implementations contain
// no display logic: they parse requests, resolve the target boutique, call
// core and log infrastructure errors.
//
// Boutique-scoped methods take the boutique named by the caller; a
// GESTIONNAIRE naming another boutique is refused before core is reached.
type ApplicationService interface {
	// Ping reports whether the database is reachable.
	Ping(ctx context.Context) error

	// AuthenticateUser verifies credentials and returns a session on success.
	AuthenticateUser(ctx context.Context, username, password string) (*UserSession, error)
	// CurrentUser returns the profile of the authenticated caller.
	CurrentUser(ctx context.Context, p core.Principal) (*core.User, error)

	ListBoutiques(ctx context.Context, p core.Principal) ([]core.Boutique, error)
	GetBoutique(ctx context.Context, p core.Principal, boutiqueID int) (*core.Boutique, error)
	CreateBoutique(ctx context.Context, p core.Principal, req BoutiqueRequest) (*core.Boutique, error)
	UpdateBoutique(ctx context.Context, p core.Principal, boutiqueID int, req BoutiqueRequest) (*core.Boutique, error)
	DeleteBoutique(ctx context.Context, p core.Principal, boutiqueID int) error

	ListUsers(ctx context.Context, p core.Principal, boutiqueID *int) ([]core.User, error)
	GetUser(ctx context.Context, p core.Principal, userID int) (*core.User, error)
	CreateUser(ctx context.Context, p core.Principal, req UserRequest) (*core.User, error)
	UpdateUser(ctx context.Context, p core.Principal, userID int, req UserRequest) (*core.User, error)
	DeleteUser(ctx context.Context, p core.Principal, userID int) error

	ListCategories(ctx context.Context, p core.Principal, boutiqueID int) ([]core.Category, error)
	CreateCategory(ctx context.Context, p core.Principal, boutiqueID int, req CategoryRequest) (*core.Category, error)
	UpdateCategory(ctx context.Context, p core.Principal, categoryID int, req CategoryRequest) (*core.Category, error)
	DeleteCategory(ctx context.Context, p core.Principal, categoryID int) error

	ListProducts(ctx context.Context, p core.Principal, boutiqueID int, filter core.ProductFilter) ([]core.Product, error)
	GetProduct(ctx context.Context, p core.Principal, productID int) (*core.Product, error)
	CreateProduct(ctx context.Context, p core.Principal, boutiqueID int, req ProductRequest) (*core.Product, error)
	UpdateProduct(ctx context.Context, p core.Principal, productID int, req ProductRequest) (*core.Product, error)
	DeleteProduct(ctx context.Context, p core.Principal, productID int) error

	// GetStockLevels returns the on-hand quantity of every product of the boutique.
	GetStockLevels(ctx context.Context, p core.Principal, boutiqueID int, filter core.StockFilter) (*StockResult, error)
	ListMovements(ctx context.Context, p core.Principal, boutiqueID int, q MovementQuery) ([]core.StockMovement, error)
	// AdjustStock records a manual inventory correction through the stock ledger.
	AdjustStock(ctx context.Context, p core.Principal, productID int, req AdjustStockRequest) (*core.StockMovement, error)

	ListClients(ctx context.Context, p core.Principal, boutiqueID int, search string) ([]core.Client, error)
	GetClient(ctx context.Context, p core.Principal, clientID int) (*core.Client, error)
	CreateClient(ctx context.Context, p core.Principal, boutiqueID int, req PartnerRequest) (*core.Client, error)
	UpdateClient(ctx context.Context, p core.Principal, clientID int, req PartnerRequest) (*core.Client, error)
	DeleteClient(ctx context.Context, p core.Principal, clientID int) error

	ListSuppliers(ctx context.Context, p core.Principal, boutiqueID int, search string) ([]core.Supplier, error)
	GetSupplier(ctx context.Context, p core.Principal, supplierID int) (*core.Supplier, error)
	CreateSupplier(ctx context.Context, p core.Principal, boutiqueID int, req PartnerRequest) (*core.Supplier, error)
	UpdateSupplier(ctx context.Context, p core.Principal, supplierID int, req PartnerRequest) (*core.Supplier, error)
	DeleteSupplier(ctx context.Context, p core.Principal, supplierID int) error

	// CreateSale records a sale with its stock exits and initial payment atomically.
	CreateSale(ctx context.Context, p core.Principal, boutiqueID int, req CreateSaleRequest) (*core.Sale, error)
	GetSale(ctx context.Context, p core.Principal, saleID int) (*core.Sale, error)
	ListSales(ctx context.Context, p core.Principal, boutiqueID int, q SaleQuery) (*SaleListResult, error)
	UpdateSale(ctx context.Context, p core.Principal, saleID int, req UpdateSaleRequest) (*core.Sale, error)
	// CancelSale voids a sale and restores its stock.
	CancelSale(ctx context.Context, p core.Principal, saleID int) error

	ListPayments(ctx context.Context, p core.Principal, saleID int) ([]core.Payment, error)
	AddPayment(ctx context.Context, p core.Principal, saleID int, req PaymentRequest) (*core.Payment, error)
	UpdatePayment(ctx context.Context, p core.Principal, paymentID int, req PaymentRequest) (*core.Payment, error)
	DeletePayment(ctx context.Context, p core.Principal, paymentID int) error

	CreatePurchaseOrder(ctx context.Context, p core.Principal, boutiqueID int, req CreateOrderRequest) (*core.PurchaseOrder, error)
	GetPurchaseOrder(ctx context.Context, p core.Principal, orderID int) (*core.PurchaseOrder, error)
	ListPurchaseOrders(ctx context.Context, p core.Principal, boutiqueID int, q OrderQuery) (*OrderListResult, error)
	// ReceivePurchaseOrder records received quantities, remainder cancellation and payment in one step.
	ReceivePurchaseOrder(ctx context.Context, p core.Principal, orderID int, req ReceiveOrderRequest) (*core.PurchaseOrder, error)
	CancelPurchaseOrder(ctx context.Context, p core.Principal, orderID int) (*core.PurchaseOrder, error)
	PayPurchaseOrder(ctx context.Context, p core.Principal, orderID int, req PayOrderRequest) (*core.PurchaseOrder, error)

	ListTransactions(ctx context.Context, p core.Principal, boutiqueID int, q TransactionQuery) (*TransactionListResult, error)
	GetTransaction(ctx context.Context, p core.Principal, transactionID int) (*core.Transaction, error)
	RecordTransaction(ctx context.Context, p core.Principal, boutiqueID int, req TransactionRequest) (*core.Transaction, error)
	UpdateTransaction(ctx context.Context, p core.Principal, transactionID int, req TransactionRequest) (*core.Transaction, error)
	DeleteTransaction(ctx context.Context, p core.Principal, transactionID int) error

	MonthlySummary(ctx context.Context, p core.Principal, boutiqueID, year int) (*core.MonthlySummary, error)
	// BalanceStatement accepts optional YYYY-MM-DD bounds, both inclusive.
	BalanceStatement(ctx context.Context, p core.Principal, boutiqueID int, from, to string) (*core.BalanceStatement, error)
	ReceivablesAging(ctx context.Context, p core.Principal, boutiqueID int, asOf time.Time) (*core.ReceivablesAging, error)
	TopProducts(ctx context.Context, p core.Principal, boutiqueID int, from, to string, limit int) ([]core.TopProduct, error)
	Dashboard(ctx context.Context, p core.Principal, boutiqueID int) (*core.Dashboard, error)

	// CheckInvariants audits stock, sales and purchase orders of a boutique.
	CheckInvariants(ctx context.Context, p core.Principal, boutiqueID int) (*InvariantReport, error)
}
