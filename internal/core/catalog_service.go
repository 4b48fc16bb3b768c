package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type catalogService struct {
	pool      *pgxpool.Pool
	inventory InventoryService
}

// NewCatalogService constructs a CatalogService backed by PostgreSQL.
func NewCatalogService(pool *pgxpool.Pool, inventory InventoryService) CatalogService {
	return &catalogService{pool: pool, inventory: inventory}
}

// ── Categories ────────────────────────────────────────────────────────────────

const categoryColumns = `
	c.id, c.boutique_id, c.name, c.description,
	(SELECT COUNT(*) FROM products p WHERE p.category_id = c.id),
	c.created_at, c.updated_at`

func scanCategory(row pgx.Row) (*Category, error) {
	c := &Category{}
	err := row.Scan(&c.ID, &c.BoutiqueID, &c.Name, &c.Description, &c.ProductCount, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (s *catalogService) ListCategories(ctx context.Context, p Principal, boutiqueID int) ([]Category, error) {
	if err := AssertTenantAccess(p, boutiqueID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		"SELECT "+categoryColumns+" FROM categories c WHERE c.boutique_id = $1 ORDER BY c.name",
		boutiqueID,
	)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, *c)
	}
	return categories, rows.Err()
}

func (s *catalogService) getCategory(ctx context.Context, q pgxQuerier, categoryID int) (*Category, error) {
	c, err := scanCategory(q.QueryRow(ctx,
		"SELECT "+categoryColumns+" FROM categories c WHERE c.id = $1", categoryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("catégorie", categoryID)
		}
		return nil, fmt.Errorf("get category %d: %w", categoryID, err)
	}
	return c, nil
}

func (s *catalogService) CreateCategory(ctx context.Context, p Principal, boutiqueID int, in CategoryInput) (*Category, error) {
	if err := AssertTenantAccess(p, boutiqueID); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)

	var id int
	err := s.pool.QueryRow(ctx, `
		INSERT INTO categories (boutique_id, name, description)
		VALUES ($1, $2, $3)
		RETURNING id`,
		boutiqueID, name, toPtr(in.Description),
	).Scan(&id)
	if err != nil {
		return nil, uniqueOr(err, "create category", "catégorie", "nom", name)
	}
	return s.getCategory(ctx, s.pool, id)
}

func (s *catalogService) UpdateCategory(ctx context.Context, p Principal, categoryID int, in CategoryInput) (*Category, error) {
	if _, err := authorizeRow(ctx, s.pool, p, "categories", "catégorie", categoryID); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)

	if _, err := s.pool.Exec(ctx, `
		UPDATE categories SET name = $1, description = $2, updated_at = NOW()
		WHERE id = $3`,
		name, toPtr(in.Description), categoryID,
	); err != nil {
		return nil, uniqueOr(err, "update category", "catégorie", "nom", name)
	}
	return s.getCategory(ctx, s.pool, categoryID)
}

func (s *catalogService) DeleteCategory(ctx context.Context, p Principal, categoryID int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := authorizeRow(ctx, tx, p, "categories", "catégorie", categoryID); err != nil {
		return err
	}

	var products int
	if err := tx.QueryRow(ctx,
		"SELECT COUNT(*) FROM products WHERE category_id = $1", categoryID,
	).Scan(&products); err != nil {
		return fmt.Errorf("count category products: %w", err)
	}
	if products > 0 {
		return conflict("impossible de supprimer la catégorie : %d produit(s) y sont rattachés", products)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM categories WHERE id = $1", categoryID); err != nil {
		return fmt.Errorf("delete category %d: %w", categoryID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit category deletion: %w", err)
	}
	return nil
}

// ── Products ──────────────────────────────────────────────────────────────────

const productColumns = `
	p.id, p.boutique_id, p.category_id, c.name, p.name, p.description,
	p.purchase_price, p.sale_price, p.alert_threshold, COALESCE(s.quantity, 0),
	p.created_at, p.updated_at`

const productFrom = `
	FROM products p
	JOIN categories c ON c.id = p.category_id
	LEFT JOIN stocks s ON s.product_id = p.id`

func scanProduct(row pgx.Row) (*Product, error) {
	pr := &Product{}
	err := row.Scan(
		&pr.ID, &pr.BoutiqueID, &pr.CategoryID, &pr.CategoryName, &pr.Name, &pr.Description,
		&pr.PurchasePrice, &pr.SalePrice, &pr.AlertThreshold, &pr.Quantity,
		&pr.CreatedAt, &pr.UpdatedAt,
	)
	return pr, err
}

func (s *catalogService) ListProducts(ctx context.Context, p Principal, boutiqueID int, filter ProductFilter) ([]Product, error) {
	if err := AssertTenantAccess(p, boutiqueID); err != nil {
		return nil, err
	}

	f := &filterBuilder{}
	f.add("p.boutique_id = ?", boutiqueID)
	if filter.CategoryID != nil {
		f.add("p.category_id = ?", *filter.CategoryID)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		f.add("p.name ILIKE ?", "%"+search+"%")
	}

	rows, err := s.pool.Query(ctx, "SELECT "+productColumns+productFrom+f.where()+" ORDER BY p.name", f.args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		pr, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *pr)
	}
	return products, rows.Err()
}

func (s *catalogService) getProduct(ctx context.Context, q pgxQuerier, productID int) (*Product, error) {
	pr, err := scanProduct(q.QueryRow(ctx, "SELECT "+productColumns+productFrom+" WHERE p.id = $1", productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("produit", productID)
		}
		return nil, fmt.Errorf("get product %d: %w", productID, err)
	}
	return pr, nil
}

func (s *catalogService) GetProduct(ctx context.Context, p Principal, productID int) (*Product, error) {
	pr, err := s.getProduct(ctx, s.pool, productID)
	if err != nil {
		return nil, err
	}
	if err := AssertTenantAccess(p, pr.BoutiqueID); err != nil {
		return nil, err
	}
	return pr, nil
}

// checkCategory asserts the category exists in the given boutique.
func checkCategory(ctx context.Context, q pgxQuerier, boutiqueID, categoryID int) error {
	var exists bool
	if err := q.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM categories WHERE id = $1 AND boutique_id = $2)",
		categoryID, boutiqueID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("validate category: %w", err)
	}
	if !exists {
		return notFound("catégorie", categoryID)
	}
	return nil
}

func (s *catalogService) CreateProduct(ctx context.Context, p Principal, boutiqueID int, in ProductInput) (*Product, error) {
	if err := AssertTenantAccess(p, boutiqueID); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := checkCategory(ctx, tx, boutiqueID, in.CategoryID); err != nil {
		return nil, err
	}

	var productID int
	err = tx.QueryRow(ctx, `
		INSERT INTO products (boutique_id, category_id, name, description,
		                      purchase_price, sale_price, alert_threshold)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		boutiqueID, in.CategoryID, name, toPtr(in.Description),
		in.PurchasePrice, in.SalePrice, in.AlertThreshold,
	).Scan(&productID)
	if err != nil {
		return nil, uniqueOr(err, "create product", "produit", "nom", name)
	}

	stockID, err := s.inventory.EnsureStockTx(ctx, tx, boutiqueID, productID)
	if err != nil {
		return nil, err
	}
	if in.InitialQuantity > 0 {
		userID := p.UserID
		if _, err := s.inventory.AdjustStockTx(ctx, tx, StockAdjustment{
			StockID: stockID,
			Delta:   in.InitialQuantity,
			Kind:    MovementIn,
			Reason:  "Stock initial",
			UserID:  &userID,
		}); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit product: %w", err)
	}
	return s.getProduct(ctx, s.pool, productID)
}

func (s *catalogService) UpdateProduct(ctx context.Context, p Principal, productID int, in ProductInput) (*Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	boutiqueID, err := authorizeRow(ctx, tx, p, "products", "produit", productID)
	if err != nil {
		return nil, err
	}
	if err := checkCategory(ctx, tx, boutiqueID, in.CategoryID); err != nil {
		return nil, err
	}

	// Quantity is deliberately absent: stock only moves through the inventory primitive.
	if _, err := tx.Exec(ctx, `
		UPDATE products
		SET category_id = $1, name = $2, description = $3,
		    purchase_price = $4, sale_price = $5, alert_threshold = $6, updated_at = NOW()
		WHERE id = $7`,
		in.CategoryID, name, toPtr(in.Description),
		in.PurchasePrice, in.SalePrice, in.AlertThreshold, productID,
	); err != nil {
		return nil, uniqueOr(err, "update product", "produit", "nom", name)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit product update: %w", err)
	}
	return s.getProduct(ctx, s.pool, productID)
}

func (s *catalogService) DeleteProduct(ctx context.Context, p Principal, productID int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := authorizeRow(ctx, tx, p, "products", "produit", productID); err != nil {
		return err
	}

	var saleLines, orderLines int
	if err := tx.QueryRow(ctx, `
		SELECT (SELECT COUNT(*) FROM sale_lines WHERE product_id = $1),
		       (SELECT COUNT(*) FROM purchase_order_lines WHERE product_id = $1)`,
		productID,
	).Scan(&saleLines, &orderLines); err != nil {
		return fmt.Errorf("count product references: %w", err)
	}
	if saleLines > 0 {
		return conflict("impossible de supprimer le produit : il figure dans %d ligne(s) de vente", saleLines)
	}
	if orderLines > 0 {
		return conflict("impossible de supprimer le produit : il figure dans %d ligne(s) de commande", orderLines)
	}

	// stocks and stock_movements go with it (ON DELETE CASCADE).
	if _, err := tx.Exec(ctx, "DELETE FROM products WHERE id = $1", productID); err != nil {
		return fmt.Errorf("delete product %d: %w", productID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit product deletion: %w", err)
	}
	return nil
}
