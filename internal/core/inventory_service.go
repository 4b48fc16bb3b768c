package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type inventoryService struct {
	pool *pgxpool.Pool
}

func NewInventoryService(pool *pgxpool.Pool) InventoryService {
	return &inventoryService{pool: pool}
}

// ── TX-scoped primitive ───────────────────────────────────────────────────────

func (s *inventoryService) AdjustStockTx(ctx context.Context, tx pgx.Tx, adj StockAdjustment) (*StockMovement, error) {
	if err := adj.validate(); err != nil {
		return nil, err
	}

	// Re-read the quantity under a row lock; never trust a value read earlier in the request.
	var boutiqueID, productID, current int
	var productName string
	err := tx.QueryRow(ctx, `
		SELECT s.boutique_id, s.product_id, s.quantity, p.name
		FROM stocks s
		JOIN products p ON p.id = s.product_id
		WHERE s.id = $1
		FOR UPDATE OF s`,
		adj.StockID,
	).Scan(&boutiqueID, &productID, &current, &productName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("stock", adj.StockID)
		}
		return nil, fmt.Errorf("lock stock %d: %w", adj.StockID, err)
	}

	newQty := current + adj.Delta
	if newQty < 0 {
		return nil, &InsufficientStockError{Product: productName, Available: current, Requested: -adj.Delta}
	}

	touch := "last_entry"
	if adj.Kind == MovementOut {
		touch = "last_exit"
	}
	if _, err := tx.Exec(ctx,
		"UPDATE stocks SET quantity = $1, "+touch+" = NOW(), updated_at = NOW() WHERE id = $2",
		newQty, adj.StockID,
	); err != nil {
		return nil, fmt.Errorf("update stock %d: %w", adj.StockID, err)
	}

	qty := adj.Delta
	if qty < 0 {
		qty = -qty
	}
	m := &StockMovement{
		BoutiqueID:  boutiqueID,
		StockID:     adj.StockID,
		ProductID:   productID,
		ProductName: productName,
		Kind:        adj.Kind,
		Quantity:    qty,
		Reason:      adj.Reason,
		SaleID:      adj.SaleID,
		UserID:      adj.UserID,
	}
	if err := tx.QueryRow(ctx, `
		INSERT INTO stock_movements (boutique_id, stock_id, kind, quantity, reason, sale_id, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		boutiqueID, adj.StockID, string(adj.Kind), qty, adj.Reason, adj.SaleID, adj.UserID,
	).Scan(&m.ID, &m.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert stock movement: %w", err)
	}
	return m, nil
}

func (s *inventoryService) EnsureStockTx(ctx context.Context, tx pgx.Tx, boutiqueID, productID int) (int, error) {
	if _, err := tx.Exec(ctx, `
		INSERT INTO stocks (boutique_id, product_id, quantity)
		VALUES ($1, $2, 0)
		ON CONFLICT (product_id) DO NOTHING`,
		boutiqueID, productID,
	); err != nil {
		return 0, fmt.Errorf("ensure stock for product %d: %w", productID, err)
	}
	var stockID int
	if err := tx.QueryRow(ctx, "SELECT id FROM stocks WHERE product_id = $1", productID).Scan(&stockID); err != nil {
		return 0, fmt.Errorf("resolve stock for product %d: %w", productID, err)
	}
	return stockID, nil
}

// ── Standalone operations ─────────────────────────────────────────────────────

func (s *inventoryService) AdjustStock(ctx context.Context, p Principal, productID int, kind MovementKind, quantity int, reason string) (*StockMovement, error) {
	v := &ValidationError{}
	if quantity <= 0 {
		v.Add("quantity", "la quantité doit être strictement positive")
	}
	if !kind.Valid() {
		v.Add("kind", "type de mouvement invalide (IN ou OUT)")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		v.Add("reason", "le motif est obligatoire")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	boutiqueID, err := authorizeRow(ctx, tx, p, "products", "produit", productID)
	if err != nil {
		return nil, err
	}
	stockID, err := s.EnsureStockTx(ctx, tx, boutiqueID, productID)
	if err != nil {
		return nil, err
	}

	delta := quantity
	if kind == MovementOut {
		delta = -quantity
	}
	userID := p.UserID
	m, err := s.AdjustStockTx(ctx, tx, StockAdjustment{
		StockID: stockID,
		Delta:   delta,
		Kind:    kind,
		Reason:  reason,
		UserID:  &userID,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit stock adjustment: %w", err)
	}
	return m, nil
}

func (s *inventoryService) GetStockLevels(ctx context.Context, p Principal, boutiqueID int, filter StockFilter) ([]Stock, error) {
	if err := AssertTenantAccess(p, boutiqueID); err != nil {
		return nil, err
	}

	f := &filterBuilder{}
	f.add("s.boutique_id = ?", boutiqueID)
	if filter.CategoryID != nil {
		f.add("p.category_id = ?", *filter.CategoryID)
	}
	q := `
		SELECT s.id, s.boutique_id, s.product_id, p.name, c.name,
		       s.quantity, p.alert_threshold, s.quantity <= p.alert_threshold,
		       s.last_entry, s.last_exit, s.updated_at
		FROM stocks s
		JOIN products p   ON p.id = s.product_id
		JOIN categories c ON c.id = p.category_id` + f.where()
	if filter.LowStockOnly {
		q += " AND s.quantity <= p.alert_threshold"
	}
	q += " ORDER BY p.name"

	rows, err := s.pool.Query(ctx, q, f.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock levels: %w", err)
	}
	defer rows.Close()

	var levels []Stock
	for rows.Next() {
		var st Stock
		if err := rows.Scan(
			&st.ID, &st.BoutiqueID, &st.ProductID, &st.ProductName, &st.CategoryName,
			&st.Quantity, &st.AlertThreshold, &st.IsLow,
			&st.LastEntry, &st.LastExit, &st.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan stock level: %w", err)
		}
		levels = append(levels, st)
	}
	return levels, rows.Err()
}

func (s *inventoryService) ListMovements(ctx context.Context, p Principal, boutiqueID int, filter MovementFilter) ([]StockMovement, error) {
	if err := AssertTenantAccess(p, boutiqueID); err != nil {
		return nil, err
	}

	f := &filterBuilder{}
	f.add("m.boutique_id = ?", boutiqueID)
	if filter.ProductID != nil {
		f.add("s.product_id = ?", *filter.ProductID)
	}
	if filter.Kind != nil {
		f.add("m.kind = ?", string(*filter.Kind))
	}
	if filter.From != nil {
		f.add("m.created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		f.add("m.created_at < ?", *filter.To)
	}
	q := `
		SELECT m.id, m.boutique_id, m.stock_id, s.product_id, p.name,
		       m.kind, m.quantity, m.reason, m.sale_id, m.user_id, m.created_at
		FROM stock_movements m
		JOIN stocks s   ON s.id = m.stock_id
		JOIN products p ON p.id = s.product_id` + f.where() +
		" ORDER BY m.created_at DESC, m.id DESC" + f.paginate(filter.Page)

	rows, err := s.pool.Query(ctx, q, f.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock movements: %w", err)
	}
	defer rows.Close()

	var movements []StockMovement
	for rows.Next() {
		var m StockMovement
		if err := rows.Scan(
			&m.ID, &m.BoutiqueID, &m.StockID, &m.ProductID, &m.ProductName,
			&m.Kind, &m.Quantity, &m.Reason, &m.SaleID, &m.UserID, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan stock movement: %w", err)
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}
