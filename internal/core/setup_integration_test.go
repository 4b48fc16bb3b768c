package core_test

import (
	"context"
	"os"
	"testing"

	"github.com/Drasasse/gestion-commerce-sub001/internal/core"
	"github.com/Drasasse/gestion-commerce-sub001/internal/db"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// env bundles the services wired the way cmd/server wires them, plus two seeded boutiques.
type env struct {
	pool      *pgxpool.Pool
	inventory core.InventoryService
	catalog   core.CatalogService
	clients   core.ClientService
	suppliers core.SupplierService
	sales     core.SaleService
	payments  core.PaymentService
	orders    core.PurchaseOrderService
	ledger    core.LedgerService
	boutiques core.BoutiqueService
	users     core.UserService
	reports   core.ReportingService

	admin    core.Principal
	managerA core.Principal
	managerB core.Principal

	boutiqueA, boutiqueB int
	categoryA, categoryB int
}

func setupTestDB(t *testing.T) *env {
	t.Helper()
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test to protect live database")
	}
	if err := db.Migrate(dbURL); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE transactions, payments, stock_movements, sale_lines, sales,
		               purchase_order_lines, purchase_orders, stocks, products, categories,
		               clients, suppliers, document_sequences, users, boutiques
		RESTART IDENTITY CASCADE;

		INSERT INTO boutiques (id, name) VALUES (1, 'Boutique A'), (2, 'Boutique B');
		SELECT setval('boutiques_id_seq', 2);

		INSERT INTO users (id, boutique_id, username, full_name, password_hash, role) VALUES
		(1, NULL, 'admin',   'Admin',        'x', 'ADMIN'),
		(2, 1,    'gerantA', 'Gérant A',     'x', 'GESTIONNAIRE'),
		(3, 2,    'gerantB', 'Gérant B',     'x', 'GESTIONNAIRE');
		SELECT setval('users_id_seq', 3);

		INSERT INTO categories (id, boutique_id, name) VALUES (1, 1, 'Général'), (2, 2, 'Général');
		SELECT setval('categories_id_seq', 2);
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	inventory := core.NewInventoryService(pool)
	docs := core.NewDocumentService()
	ledger := core.NewLedger(pool)
	a, b := 1, 2
	return &env{
		pool:      pool,
		inventory: inventory,
		catalog:   core.NewCatalogService(pool, inventory),
		clients:   core.NewClientService(pool),
		suppliers: core.NewSupplierService(pool),
		sales:     core.NewSaleService(pool, inventory, docs, ledger),
		payments:  core.NewPaymentService(pool, ledger),
		orders:    core.NewPurchaseOrderService(pool, inventory, docs, ledger),
		ledger:    ledger,
		boutiques: core.NewBoutiqueService(pool),
		users:     core.NewUserService(pool),
		reports:   core.NewReportingService(pool),
		admin:     core.Principal{UserID: 1, Role: core.RoleAdmin},
		managerA:  core.Principal{UserID: 2, Role: core.RoleGestionnaire, BoutiqueID: &a},
		managerB:  core.Principal{UserID: 3, Role: core.RoleGestionnaire, BoutiqueID: &b},
		boutiqueA: 1,
		boutiqueB: 2,
		categoryA: 1,
		categoryB: 2,
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	v := dec(s)
	return &v
}

// newProduct creates a product in boutique A with the given opening stock.
func (e *env) newProduct(t *testing.T, name string, qty int, salePrice string) *core.Product {
	t.Helper()
	p, err := e.catalog.CreateProduct(context.Background(), e.managerA, e.boutiqueA, core.ProductInput{
		CategoryID:      e.categoryA,
		Name:            name,
		PurchasePrice:   dec("1"),
		SalePrice:       dec(salePrice),
		AlertThreshold:  2,
		InitialQuantity: qty,
	})
	if err != nil {
		t.Fatalf("CreateProduct(%s): %v", name, err)
	}
	return p
}

func (e *env) stockOf(t *testing.T, productID int) int {
	t.Helper()
	var qty int
	if err := e.pool.QueryRow(context.Background(),
		"SELECT quantity FROM stocks WHERE product_id = $1", productID).Scan(&qty); err != nil {
		t.Fatalf("read stock of product %d: %v", productID, err)
	}
	return qty
}

func (e *env) count(t *testing.T, query string, args ...any) int {
	t.Helper()
	var n int
	if err := e.pool.QueryRow(context.Background(), query, args...).Scan(&n); err != nil {
		t.Fatalf("count %q: %v", query, err)
	}
	return n
}

// assertConsistent runs the invariant checker on boutique A.
func (e *env) assertConsistent(t *testing.T) {
	t.Helper()
	violations, err := core.CheckInvariants(context.Background(), e.pool, e.boutiqueA)
	if err != nil {
		t.Fatalf("CheckInvariants: %v", err)
	}
	for _, v := range violations {
		t.Errorf("invariant violated: %s", v)
	}
}
