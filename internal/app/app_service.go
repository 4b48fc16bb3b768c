package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Drasasse/gestion-commerce-sub001/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type appService struct {
	pool      *pgxpool.Pool
	log       *zap.Logger
	now       func() time.Time
	boutiques core.BoutiqueService
	users     core.UserService
	catalog   core.CatalogService
	inventory core.InventoryService
	clients   core.ClientService
	suppliers core.SupplierService
	sales     core.SaleService
	payments  core.PaymentService
	orders    core.PurchaseOrderService
	ledger    core.LedgerService
	reports   core.ReportingService
}

// NewAppService wires every core service over pool and returns the ApplicationService.
func NewAppService(pool *pgxpool.Pool, log *zap.Logger) ApplicationService {
	inventory := core.NewInventoryService(pool)
	docs := core.NewDocumentService()
	ledger := core.NewLedger(pool)
	return &appService{
		pool:      pool,
		log:       log,
		now:       time.Now,
		boutiques: core.NewBoutiqueService(pool),
		users:     core.NewUserService(pool),
		catalog:   core.NewCatalogService(pool, inventory),
		inventory: inventory,
		clients:   core.NewClientService(pool),
		suppliers: core.NewSupplierService(pool),
		sales:     core.NewSaleService(pool, inventory, docs, ledger),
		payments:  core.NewPaymentService(pool, ledger),
		orders:    core.NewPurchaseOrderService(pool, inventory, docs, ledger),
		ledger:    ledger,
		reports:   core.NewReportingService(pool),
	}
}

// check passes domain errors through and replaces anything else with ErrInternal
// after logging it with the operation context.
func (s *appService) check(op string, boutiqueID, entityID int, err error) error {
	if err == nil {
		return nil
	}
	fields := []zap.Field{
		zap.String("op", op),
		zap.Int("boutique_id", boutiqueID),
		zap.Int("entity_id", entityID),
		zap.Error(err),
	}
	if core.IsDomainError(err) {
		s.log.Debug("operation refused", fields...)
		return err
	}
	s.log.Error("operation failed", fields...)
	return ErrInternal
}

// boutique resolves the boutique a scoped request targets.
func (s *appService) boutique(op string, p core.Principal, boutiqueID int) (int, error) {
	id, err := core.ResolveBoutique(p, &boutiqueID)
	return id, s.check(op, boutiqueID, 0, err)
}

func (s *appService) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return s.check("ping", 0, 0, fmt.Errorf("ping database: %w", err))
	}
	return nil
}

// ── Auth ────────────────────────────────────────────────────────────────────

func (s *appService) AuthenticateUser(ctx context.Context, username, password string) (*UserSession, error) {
	u, err := s.users.Authenticate(ctx, username, password)
	if err != nil {
		return nil, s.check("authenticate", 0, 0, err)
	}
	s.log.Info("user authenticated", zap.Int("user_id", u.ID), zap.String("role", string(u.Role)))
	return &UserSession{
		UserID:     u.ID,
		Username:   u.Username,
		FullName:   u.FullName,
		Role:       u.Role,
		BoutiqueID: u.BoutiqueID,
	}, nil
}

func (s *appService) CurrentUser(ctx context.Context, p core.Principal) (*core.User, error) {
	u, err := s.users.GetByID(ctx, p.UserID)
	return u, s.check("current_user", 0, p.UserID, err)
}

// ── Boutiques & users ───────────────────────────────────────────────────────

func (s *appService) ListBoutiques(ctx context.Context, p core.Principal) ([]core.Boutique, error) {
	list, err := s.boutiques.ListBoutiques(ctx, p)
	return list, s.check("list_boutiques", 0, 0, err)
}

func (s *appService) GetBoutique(ctx context.Context, p core.Principal, boutiqueID int) (*core.Boutique, error) {
	b, err := s.boutiques.GetBoutique(ctx, p, boutiqueID)
	return b, s.check("get_boutique", boutiqueID, boutiqueID, err)
}

func (s *appService) CreateBoutique(ctx context.Context, p core.Principal, req BoutiqueRequest) (*core.Boutique, error) {
	b, err := s.boutiques.CreateBoutique(ctx, p, req.toInput())
	return b, s.check("create_boutique", 0, 0, err)
}

func (s *appService) UpdateBoutique(ctx context.Context, p core.Principal, boutiqueID int, req BoutiqueRequest) (*core.Boutique, error) {
	b, err := s.boutiques.UpdateBoutique(ctx, p, boutiqueID, req.toInput())
	return b, s.check("update_boutique", boutiqueID, boutiqueID, err)
}

func (s *appService) DeleteBoutique(ctx context.Context, p core.Principal, boutiqueID int) error {
	return s.check("delete_boutique", boutiqueID, boutiqueID, s.boutiques.DeleteBoutique(ctx, p, boutiqueID))
}

func (s *appService) ListUsers(ctx context.Context, p core.Principal, boutiqueID *int) ([]core.User, error) {
	list, err := s.users.ListUsers(ctx, p, boutiqueID)
	return list, s.check("list_users", 0, 0, err)
}

func (s *appService) GetUser(ctx context.Context, p core.Principal, userID int) (*core.User, error) {
	if err := core.RequireAdmin(p); err != nil {
		return nil, s.check("get_user", 0, userID, err)
	}
	u, err := s.users.GetByID(ctx, userID)
	return u, s.check("get_user", 0, userID, err)
}

func (s *appService) CreateUser(ctx context.Context, p core.Principal, req UserRequest) (*core.User, error) {
	u, err := s.users.CreateUser(ctx, p, req.toInput())
	return u, s.check("create_user", 0, 0, err)
}

func (s *appService) UpdateUser(ctx context.Context, p core.Principal, userID int, req UserRequest) (*core.User, error) {
	u, err := s.users.UpdateUser(ctx, p, userID, req.toInput())
	return u, s.check("update_user", 0, userID, err)
}

func (s *appService) DeleteUser(ctx context.Context, p core.Principal, userID int) error {
	return s.check("delete_user", 0, userID, s.users.DeleteUser(ctx, p, userID))
}

// ── Catalog ─────────────────────────────────────────────────────────────────

func (s *appService) ListCategories(ctx context.Context, p core.Principal, boutiqueID int) ([]core.Category, error) {
	b, err := s.boutique("list_categories", p, boutiqueID)
	if err != nil {
		return nil, err
	}
	list, err := s.catalog.ListCategories(ctx, p, b)
	return list, s.check("list_categories", b, 0, err)
}

func (s *appService) CreateCategory(ctx context.Context, p core.Principal, boutiqueID int, req CategoryRequest) (*core.Category, error) {
	b, err := s.boutique("create_category", p, boutiqueID)
	if err != nil {
		return nil, err
	}
	c, err := s.catalog.CreateCategory(ctx, p, b, req.toInput())
	return c, s.check("create_category", b, 0, err)
}

func (s *appService) UpdateCategory(ctx context.Context, p core.Principal, categoryID int, req CategoryRequest) (*core.Category, error) {
	c, err := s.catalog.UpdateCategory(ctx, p, categoryID, req.toInput())
	return c, s.check("update_category", 0, categoryID, err)
}

func (s *appService) DeleteCategory(ctx context.Context, p core.Principal, categoryID int) error {
	return s.check("delete_category", 0, categoryID, s.catalog.DeleteCategory(ctx, p, categoryID))
}

func (s *appService) ListProducts(ctx context.Context, p core.Principal, boutiqueID int, filter core.ProductFilter) ([]core.Product, error) {
	b, err := s.boutique("list_products", p, boutiqueID)
	if err != nil {
		return nil, err
	}
	list, err := s.catalog.ListProducts(ctx, p, b, filter)
	return list, s.check("list_products", b, 0, err)
}

func (s *appService) GetProduct(ctx context.Context, p core.Principal, productID int) (*core.Product, error) {
	prod, err := s.catalog.GetProduct(ctx, p, productID)
	return prod, s.check("get_product", 0, productID, err)
}

func (s *appService) CreateProduct(ctx context.Context, p core.Principal, boutiqueID int, req ProductRequest) (*core.Product, error) {
	b, err := s.boutique("create_product", p, boutiqueID)
	if err != nil {
		return nil, err
	}
	in, err := req.toInput()
	if err != nil {
		return nil, err
	}
	prod, err := s.catalog.CreateProduct(ctx, p, b, in)
	return prod, s.check("create_product", b, 0, err)
}

func (s *appService) UpdateProduct(ctx context.Context, p core.Principal, productID int, req ProductRequest) (*core.Product, error) {
	in, err := req.toInput()
	if err != nil {
		return nil, err
	}
	prod, err := s.catalog.UpdateProduct(ctx, p, productID, in)
	return prod, s.check("update_product", 0, productID, err)
}

func (s *appService) DeleteProduct(ctx context.Context, p core.Principal, productID int) error {
	return s.check("delete_product", 0, productID, s.catalog.DeleteProduct(ctx, p, productID))
}

// ── Stock ───────────────────────────────────────────────────────────────────

func (s *appService) GetStockLevels(ctx context.Context, p core.Principal, boutiqueID int, filter core.StockFilter) (*StockResult, error) {
	b, err := s.boutique("stock_levels", p, boutiqueID)
	if err != nil {
		return nil, err
	}
	levels, err := s.inventory.GetStockLevels(ctx, p, b, filter)
	if err != nil {
		return nil, s.check("stock_levels", b, 0, err)
	}
	res := &StockResult{BoutiqueID: b, Levels: levels}
	for _, l := range levels {
		if l.IsLow {
			res.LowCount++
		}
	}
	return res, nil
}

func (s *appService) ListMovements(ctx context.Context, p core.Principal, boutiqueID int, q MovementQuery) ([]core.StockMovement, error) {
	b, err := s.boutique("list_movements", p, boutiqueID)
	if err != nil {
		return nil, err
	}
	filter, err := q.toFilter()
	if err != nil {
		return nil, err
	}
	list, err := s.inventory.ListMovements(ctx, p, b, filter)
	return list, s.check("list_movements", b, 0, err)
}

func (s *appService) AdjustStock(ctx context.Context, p core.Principal, productID int, req AdjustStockRequest) (*core.StockMovement, error) {
	kind := core.MovementKind(strings.ToUpper(strings.TrimSpace(req.Kind)))
	m, err := s.inventory.AdjustStock(ctx, p, productID, kind, req.Quantity, req.Reason)
	return m, s.check("adjust_stock", 0, productID, err)
}

// ── Clients & suppliers ─────────────────────────────────────────────────────

func (s *appService) ListClients(ctx context.Context, p core.Principal, boutiqueID int, search string) ([]core.Client, error) {
	b, err := s.boutique("list_clients", p, boutiqueID)
	if err != nil {
		return nil, err
	}
	list, err := s.clients.ListClients(ctx, p, b, search)
	return list, s.check("list_clients", b, 0, err)
}

func (s *appService) GetClient(ctx context.Context, p core.Principal, clientID int) (*core.Client, error) {
	c, err := s.clients.GetClient(ctx, p, clientID)
	return c, s.check("get_client", 0, clientID, err)
}

func (s *appService) CreateClient(ctx context.Context, p core.Principal, boutiqueID int, req PartnerRequest) (*core.Client, error) {
	b, err := s.boutique("create_client", p, boutiqueID)
	if err != nil {
		return nil, err
	}
	c, err := s.clients.CreateClient(ctx, p, b, req.clientInput())
	return c, s.check("create_client", b, 0, err)
}

func (s *appService) UpdateClient(ctx context.Context, p core.Principal, clientID int, req PartnerRequest) (*core.Client, error) {
	c, err := s.clients.UpdateClient(ctx, p, clientID, req.clientInput())
	return c, s.check("update_client", 0, clientID, err)
}

func (s *appService) DeleteClient(ctx context.Context, p core.Principal, clientID int) error {
	return s.check("delete_client", 0, clientID, s.clients.DeleteClient(ctx, p, clientID))
}

func (s *appService) ListSuppliers(ctx context.Context, p core.Principal, boutiqueID int, search string) ([]core.Supplier, error) {
	b, err := s.boutique("list_suppliers", p, boutiqueID)
	if err != nil {
		return nil, err
	}
	list, err := s.suppliers.ListSuppliers(ctx, p, b, search)
	return list, s.check("list_suppliers", b, 0, err)
}

func (s *appService) GetSupplier(ctx context.Context, p core.Principal, supplierID int) (*core.Supplier, error) {
	sup, err := s.suppliers.GetSupplier(ctx, p, supplierID)
	return sup, s.check("get_supplier", 0, supplierID, err)
}

func (s *appService) CreateSupplier(ctx context.Context, p core.Principal, boutiqueID int, req PartnerRequest) (*core.Supplier, error) {
	b, err := s.boutique("create_supplier", p, boutiqueID)
	if err != nil {
		return nil, err
	}
	sup, err := s.suppliers.CreateSupplier(ctx, p, b, req.supplierInput())
	return sup, s.check("create_supplier", b, 0, err)
}

func (s *appService) UpdateSupplier(ctx context.Context, p core.Principal, supplierID int, req PartnerRequest) (*core.Supplier, error) {
	sup, err := s.suppliers.UpdateSupplier(ctx, p, supplierID, req.supplierInput())
	return sup, s.check("update_supplier", 0, supplierID, err)
}

func (s *appService) DeleteSupplier(ctx context.Context, p core.Principal, supplierID int) error {
	return s.check("delete_supplier", 0, supplierID, s.suppliers.DeleteSupplier(ctx, p, supplierID))
}

// ── Sales & payments ────────────────────────────────────────────────────────

func (s *appService) CreateSale(ctx context.Context, p core.Principal, boutiqueID int, req CreateSaleRequest) (*core.Sale, error) {
	b, err := s.boutique("create_sale", p, boutiqueID)
	if err != nil {
		return nil, err
	}
	in, err := req.toInput()
	if err != nil {
		return nil, err
	}
	sale, err := s.sales.CreateSale(ctx, p, b, in)
	if err != nil {
		return nil, s.check("create_sale", b, 0, err)
	}
	s.log.Info("sale recorded",
		zap.Int("boutique_id", b),
		zap.String("number", sale.Number),
		zap.String("total", sale.AmountTotal.StringFixed(2)),
		zap.String("status", string(sale.Status)))
	return sale, nil
}

func (s *appService) GetSale(ctx context.Context, p core.Principal, saleID int) (*core.Sale, error) {
	sale, err := s.sales.GetSale(ctx, p, saleID)
	return sale, s.check("get_sale", 0, saleID, err)
}

func (s *appService) ListSales(ctx context.Context, p core.Principal, boutiqueID int, q SaleQuery) (*SaleListResult, error) {
	b, err := s.boutique("list_sales", p, boutiqueID)
	if err != nil {
		return nil, err
	}
	filter, err := q.toFilter()
	if err != nil {
		return nil, err
	}
	list, err := s.sales.ListSales(ctx, p, b, filter)
	if err != nil {
		return nil, s.check("list_sales", b, 0, err)
	}
	return &SaleListResult{BoutiqueID: b, Sales: list, Outstanding: sumRemaining(list)}, nil
}

func (s *appService) UpdateSale(ctx context.Context, p core.Principal, saleID int, req UpdateSaleRequest) (*core.Sale, error) {
	sale, err := s.sales.UpdateSale(ctx, p, saleID, core.SaleUpdate{ClientID: req.ClientID, Notes: req.Notes})
	return sale, s.check("update_sale", 0, saleID, err)
}

func (s *appService) CancelSale(ctx context.Context, p core.Principal, saleID int) error {
	if err := s.sales.CancelSale(ctx, p, saleID); err != nil {
		return s.check("cancel_sale", 0, saleID, err)
	}
	s.log.Info("sale cancelled", zap.Int("sale_id", saleID), zap.Int("user_id", p.UserID))
	return nil
}

func (s *appService) ListPayments(ctx context.Context, p core.Principal, saleID int) ([]core.Payment, error) {
	list, err := s.payments.ListPayments(ctx, p, saleID)
	return list, s.check("list_payments", 0, saleID, err)
}

func (s *appService) AddPayment(ctx context.Context, p core.Principal, saleID int, req PaymentRequest) (*core.Payment, error) {
	in, err := req.toInput()
	if err != nil {
		return nil, err
	}
	pay, err := s.payments.AddPayment(ctx, p, saleID, in)
	return pay, s.check("add_payment", 0, saleID, err)
}

func (s *appService) UpdatePayment(ctx context.Context, p core.Principal, paymentID int, req PaymentRequest) (*core.Payment, error) {
	in, err := req.toInput()
	if err != nil {
		return nil, err
	}
	pay, err := s.payments.UpdatePayment(ctx, p, paymentID, in)
	return pay, s.check("update_payment", 0, paymentID, err)
}

func (s *appService) DeletePayment(ctx context.Context, p core.Principal, paymentID int) error {
	return s.check("delete_payment", 0, paymentID, s.payments.DeletePayment(ctx, p, paymentID))
}

// ── Purchase orders ─────────────────────────────────────────────────────────

func (s *appService) CreatePurchaseOrder(ctx context.Context, p core.Principal, boutiqueID int, req CreateOrderRequest) (*core.PurchaseOrder, error) {
	b, err := s.boutique("create_order", p, boutiqueID)
	if err != nil {
		return nil, err
	}
	in, err := req.toInput()
	if err != nil {
		return nil, err
	}
	order, err := s.orders.CreateOrder(ctx, p, b, in)
	return order, s.check("create_order", b, 0, err)
}

func (s *appService) GetPurchaseOrder(ctx context.Context, p core.Principal, orderID int) (*core.PurchaseOrder, error) {
	order, err := s.orders.GetOrder(ctx, p, orderID)
	return order, s.check("get_order", 0, orderID, err)
}

func (s *appService) ListPurchaseOrders(ctx context.Context, p core.Principal, boutiqueID int, q OrderQuery) (*OrderListResult, error) {
	b, err := s.boutique("list_orders", p, boutiqueID)
	if err != nil {
		return nil, err
	}
	filter, err := q.toFilter()
	if err != nil {
		return nil, err
	}
	list, err := s.orders.ListOrders(ctx, p, b, filter)
	if err != nil {
		return nil, s.check("list_orders", b, 0, err)
	}
	return &OrderListResult{BoutiqueID: b, Orders: list}, nil
}

func (s *appService) ReceivePurchaseOrder(ctx context.Context, p core.Principal, orderID int, req ReceiveOrderRequest) (*core.PurchaseOrder, error) {
	in, err := req.toInput()
	if err != nil {
		return nil, err
	}
	order, err := s.orders.ReceiveOrder(ctx, p, orderID, in)
	if err != nil {
		return nil, s.check("receive_order", 0, orderID, err)
	}
	s.log.Info("order received",
		zap.Int("boutique_id", order.BoutiqueID),
		zap.String("number", order.Number),
		zap.String("status", string(order.Status)))
	return order, nil
}

func (s *appService) CancelPurchaseOrder(ctx context.Context, p core.Principal, orderID int) (*core.PurchaseOrder, error) {
	order, err := s.orders.CancelOrder(ctx, p, orderID)
	return order, s.check("cancel_order", 0, orderID, err)
}

func (s *appService) PayPurchaseOrder(ctx context.Context, p core.Principal, orderID int, req PayOrderRequest) (*core.PurchaseOrder, error) {
	var f fieldParser
	amount := f.amount("amount", req.Amount)
	if err := f.err(); err != nil {
		return nil, err
	}
	order, err := s.orders.PayOrder(ctx, p, orderID, amount, req.Description)
	return order, s.check("pay_order", 0, orderID, err)
}

// ── Capital ledger ──────────────────────────────────────────────────────────

func (s *appService) ListTransactions(ctx context.Context, p core.Principal, boutiqueID int, q TransactionQuery) (*TransactionListResult, error) {
	b, err := s.boutique("list_transactions", p, boutiqueID)
	if err != nil {
		return nil, err
	}
	filter, err := q.toFilter()
	if err != nil {
		return nil, err
	}
	list, err := s.ledger.ListTransactions(ctx, p, b, filter)
	if err != nil {
		return nil, s.check("list_transactions", b, 0, err)
	}
	return &TransactionListResult{BoutiqueID: b, Transactions: list}, nil
}

func (s *appService) GetTransaction(ctx context.Context, p core.Principal, transactionID int) (*core.Transaction, error) {
	t, err := s.ledger.GetTransaction(ctx, p, transactionID)
	return t, s.check("get_transaction", 0, transactionID, err)
}

func (s *appService) RecordTransaction(ctx context.Context, p core.Principal, boutiqueID int, req TransactionRequest) (*core.Transaction, error) {
	b, err := s.boutique("record_transaction", p, boutiqueID)
	if err != nil {
		return nil, err
	}
	in, err := req.toInput()
	if err != nil {
		return nil, err
	}
	t, err := s.ledger.RecordTransaction(ctx, p, b, in)
	return t, s.check("record_transaction", b, 0, err)
}

func (s *appService) UpdateTransaction(ctx context.Context, p core.Principal, transactionID int, req TransactionRequest) (*core.Transaction, error) {
	in, err := req.toInput()
	if err != nil {
		return nil, err
	}
	t, err := s.ledger.UpdateTransaction(ctx, p, transactionID, in)
	return t, s.check("update_transaction", 0, transactionID, err)
}

func (s *appService) DeleteTransaction(ctx context.Context, p core.Principal, transactionID int) error {
	return s.check("delete_transaction", 0, transactionID, s.ledger.DeleteTransaction(ctx, p, transactionID))
}

// ── Reporting ───────────────────────────────────────────────────────────────

func (s *appService) MonthlySummary(ctx context.Context, p core.Principal, boutiqueID, year int) (*core.MonthlySummary, error) {
	b, err := s.boutique("monthly_summary", p, boutiqueID)
	if err != nil {
		return nil, err
	}
	if year == 0 {
		year = s.now().Year()
	}
	sum, err := s.reports.MonthlySummary(ctx, p, b, year)
	return sum, s.check("monthly_summary", b, 0, err)
}

func (s *appService) BalanceStatement(ctx context.Context, p core.Principal, boutiqueID int, from, to string) (*core.BalanceStatement, error) {
	b, err := s.boutique("balance_statement", p, boutiqueID)
	if err != nil {
		return nil, err
	}
	var f fieldParser
	period := f.period(from, to)
	if err := f.err(); err != nil {
		return nil, err
	}
	st, err := s.reports.BalanceStatement(ctx, p, b, period)
	return st, s.check("balance_statement", b, 0, err)
}

func (s *appService) ReceivablesAging(ctx context.Context, p core.Principal, boutiqueID int, asOf time.Time) (*core.ReceivablesAging, error) {
	b, err := s.boutique("receivables_aging", p, boutiqueID)
	if err != nil {
		return nil, err
	}
	if asOf.IsZero() {
		asOf = s.now()
	}
	aging, err := s.reports.ReceivablesAging(ctx, p, b, asOf)
	return aging, s.check("receivables_aging", b, 0, err)
}

func (s *appService) TopProducts(ctx context.Context, p core.Principal, boutiqueID int, from, to string, limit int) ([]core.TopProduct, error) {
	b, err := s.boutique("top_products", p, boutiqueID)
	if err != nil {
		return nil, err
	}
	var f fieldParser
	period := f.period(from, to)
	if err := f.err(); err != nil {
		return nil, err
	}
	top, err := s.reports.TopProducts(ctx, p, b, period, limit)
	return top, s.check("top_products", b, 0, err)
}

func (s *appService) Dashboard(ctx context.Context, p core.Principal, boutiqueID int) (*core.Dashboard, error) {
	b, err := s.boutique("dashboard", p, boutiqueID)
	if err != nil {
		return nil, err
	}
	d, err := s.reports.Dashboard(ctx, p, b, s.now())
	return d, s.check("dashboard", b, 0, err)
}

func (s *appService) CheckInvariants(ctx context.Context, p core.Principal, boutiqueID int) (*InvariantReport, error) {
	b, err := s.boutique("check_invariants", p, boutiqueID)
	if err != nil {
		return nil, err
	}
	violations, err := core.CheckInvariants(ctx, s.pool, b)
	if err != nil {
		return nil, s.check("check_invariants", b, 0, err)
	}
	for _, v := range violations {
		s.log.Warn("invariant violated", zap.Int("boutique_id", b), zap.String("violation", v.String()))
	}
	return &InvariantReport{BoutiqueID: b, Violations: violations}, nil
}

// sumRemaining totals the outstanding amount of a sale list.
func sumRemaining(sales []core.Sale) decimal.Decimal {
	total := decimal.Zero
	for _, s := range sales {
		total = total.Add(s.AmountRemaining)
	}
	return total
}
