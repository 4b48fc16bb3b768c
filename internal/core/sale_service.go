package core

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type saleService struct {
	pool      *pgxpool.Pool
	inventory InventoryService
	docs      DocumentService
	ledger    LedgerService
}

func NewSaleService(pool *pgxpool.Pool, inventory InventoryService, docs DocumentService, ledger LedgerService) SaleService {
	return &saleService{pool: pool, inventory: inventory, docs: docs, ledger: ledger}
}

// checkClient ensures an optional client reference belongs to boutiqueID.
func checkClient(ctx context.Context, q pgxQuerier, boutiqueID int, clientID *int) error {
	if clientID == nil {
		return nil
	}
	owner, err := boutiqueOf(ctx, q, "clients", "client", *clientID)
	if err != nil {
		return err
	}
	if owner != boutiqueID {
		return notFound("client", *clientID)
	}
	return nil
}

// lockedProduct is a product resolved for a sale, with its stock row held under FOR UPDATE.
type lockedProduct struct {
	name      string
	salePrice decimal.Decimal
	stockID   int
	available int
}

func (s *saleService) CreateSale(ctx context.Context, p Principal, boutiqueID int, in SaleInput) (*Sale, error) {
	if err := AssertTenantAccess(p, boutiqueID); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := checkClient(ctx, tx, boutiqueID, in.ClientID); err != nil {
		return nil, err
	}

	// Several lines may name the same product: availability is checked on the total.
	requested := make(map[int]int)
	for _, l := range in.Lines {
		requested[l.ProductID] += l.Quantity
	}
	productIDs := make([]int, 0, len(requested))
	for id := range requested {
		productIDs = append(productIDs, id)
	}
	// Lock in a stable order so two concurrent sales cannot deadlock.
	sort.Ints(productIDs)

	products := make(map[int]*lockedProduct, len(productIDs))
	for _, productID := range productIDs {
		lp := &lockedProduct{}
		err := tx.QueryRow(ctx,
			"SELECT name, sale_price FROM products WHERE id = $1 AND boutique_id = $2",
			productID, boutiqueID,
		).Scan(&lp.name, &lp.salePrice)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, notFound("produit", productID)
			}
			return nil, fmt.Errorf("resolve product %d: %w", productID, err)
		}
		if lp.stockID, err = s.inventory.EnsureStockTx(ctx, tx, boutiqueID, productID); err != nil {
			return nil, err
		}
		if err := tx.QueryRow(ctx,
			"SELECT quantity FROM stocks WHERE id = $1 FOR UPDATE", lp.stockID,
		).Scan(&lp.available); err != nil {
			return nil, fmt.Errorf("lock stock for product %d: %w", productID, err)
		}
		products[productID] = lp
	}

	// Fail fast: every line is checked before the first write.
	for _, productID := range productIDs {
		lp := products[productID]
		if lp.available < requested[productID] {
			return nil, &InsufficientStockError{Product: lp.name, Available: lp.available, Requested: requested[productID]}
		}
	}

	type resolvedLine struct {
		productID int
		quantity  int
		unitPrice decimal.Decimal
		subtotal  decimal.Decimal
	}
	resolved := make([]resolvedLine, 0, len(in.Lines))
	total := decimal.Zero
	for _, l := range in.Lines {
		price := products[l.ProductID].salePrice
		if !l.UnitPrice.IsZero() {
			price = l.UnitPrice
		}
		subtotal := price.Mul(decimal.NewFromInt(int64(l.Quantity)))
		total = total.Add(subtotal)
		resolved = append(resolved, resolvedLine{l.ProductID, l.Quantity, price, subtotal})
	}

	paid := total
	if in.AmountPaid != nil {
		paid = *in.AmountPaid
	}
	if paid.GreaterThan(total) {
		return nil, &OverpaymentError{Remaining: total, Attempted: paid}
	}

	number, err := s.docs.NextNumberTx(ctx, tx, boutiqueID, DocSale)
	if err != nil {
		return nil, err
	}

	var saleID int
	err = tx.QueryRow(ctx, `
		INSERT INTO sales (boutique_id, user_id, client_id, number, amount_total, amount_paid, amount_remaining, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		boutiqueID, p.UserID, in.ClientID, number, total, paid, total.Sub(paid),
		string(DeriveStatus(paid, total)), toPtr(in.Notes),
	).Scan(&saleID)
	if err != nil {
		return nil, uniqueOr(err, "insert sale", "vente", "numéro", number)
	}

	userID := p.UserID
	reason := saleDescription(number)
	for i, rl := range resolved {
		if _, err := tx.Exec(ctx, `
			INSERT INTO sale_lines (sale_id, product_id, quantity, unit_price, subtotal)
			VALUES ($1, $2, $3, $4, $5)`,
			saleID, rl.productID, rl.quantity, rl.unitPrice, rl.subtotal,
		); err != nil {
			return nil, fmt.Errorf("insert sale line %d: %w", i+1, err)
		}
		if _, err := s.inventory.AdjustStockTx(ctx, tx, StockAdjustment{
			StockID: products[rl.productID].stockID,
			Delta:   -rl.quantity,
			Kind:    MovementOut,
			Reason:  reason,
			SaleID:  &saleID,
			UserID:  &userID,
		}); err != nil {
			return nil, err
		}
	}

	if paid.IsPositive() {
		paymentID, err := insertPaymentTx(ctx, tx, saleID, p.UserID, PaymentInput{Amount: paid, Method: in.PaymentMethod})
		if err != nil {
			return nil, err
		}
		if _, err := s.ledger.RecordTx(ctx, tx, TransactionEntry{
			BoutiqueID:  boutiqueID,
			UserID:      &userID,
			Type:        TxSale,
			Amount:      paid,
			Description: reason,
			SaleID:      &saleID,
			PaymentID:   &paymentID,
		}); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit sale: %w", err)
	}
	return getSale(ctx, s.pool, saleID)
}

func (s *saleService) GetSale(ctx context.Context, p Principal, saleID int) (*Sale, error) {
	sale, err := getSale(ctx, s.pool, saleID)
	if err != nil {
		return nil, err
	}
	if err := AssertTenantAccess(p, sale.BoutiqueID); err != nil {
		return nil, err
	}
	return sale, nil
}

func (s *saleService) ListSales(ctx context.Context, p Principal, boutiqueID int, filter SaleFilter) ([]Sale, error) {
	if err := AssertTenantAccess(p, boutiqueID); err != nil {
		return nil, err
	}

	f := &filterBuilder{}
	f.add("s.boutique_id = ?", boutiqueID)
	if filter.Status != nil {
		f.add("s.status = ?", string(*filter.Status))
	}
	if filter.ClientID != nil {
		f.add("s.client_id = ?", *filter.ClientID)
	}
	if filter.Number != "" {
		f.add("s.number ILIKE ?", "%"+filter.Number+"%")
	}
	if filter.From != nil {
		f.add("s.created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		f.add("s.created_at < ?", *filter.To)
	}
	q := saleSelect + f.where() + " ORDER BY s.created_at DESC, s.id DESC" + f.paginate(filter.Page)

	rows, err := s.pool.Query(ctx, q, f.args...)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()

	var sales []Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		sales = append(sales, *sale)
	}
	return sales, rows.Err()
}

func (s *saleService) UpdateSale(ctx context.Context, p Principal, saleID int, in SaleUpdate) (*Sale, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	locked, err := lockSaleTx(ctx, tx, p, saleID)
	if err != nil {
		return nil, err
	}
	if err := checkClient(ctx, tx, locked.boutiqueID, in.ClientID); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx,
		"UPDATE sales SET client_id = $1, notes = $2, updated_at = NOW() WHERE id = $3",
		in.ClientID, toPtr(in.Notes), saleID,
	); err != nil {
		return nil, fmt.Errorf("update sale %d: %w", saleID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit sale update: %w", err)
	}
	return getSale(ctx, s.pool, saleID)
}

func (s *saleService) CancelSale(ctx context.Context, p Principal, saleID int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	locked, err := lockSaleTx(ctx, tx, p, saleID)
	if err != nil {
		return err
	}
	lines, err := fetchSaleLines(ctx, tx, saleID)
	if err != nil {
		return err
	}

	// Stable lock order, as in CreateSale.
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })

	userID := p.UserID
	reason := "Annulation vente " + locked.number
	for _, l := range lines {
		stockID, err := s.inventory.EnsureStockTx(ctx, tx, locked.boutiqueID, l.ProductID)
		if err != nil {
			return err
		}
		// No sale link: the restoring movements outlive the sale.
		if _, err := s.inventory.AdjustStockTx(ctx, tx, StockAdjustment{
			StockID: stockID,
			Delta:   l.Quantity,
			Kind:    MovementIn,
			Reason:  reason,
			UserID:  &userID,
		}); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx, "DELETE FROM stock_movements WHERE sale_id = $1", saleID); err != nil {
		return fmt.Errorf("delete sale movements: %w", err)
	}
	if err := s.ledger.DeleteForSaleTx(ctx, tx, saleID); err != nil {
		return err
	}
	for _, stmt := range []string{
		"DELETE FROM payments WHERE sale_id = $1",
		"DELETE FROM sale_lines WHERE sale_id = $1",
		"DELETE FROM sales WHERE id = $1",
	} {
		if _, err := tx.Exec(ctx, stmt, saleID); err != nil {
			return fmt.Errorf("void sale %d: %w", saleID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit sale cancellation: %w", err)
	}
	return nil
}

// ── Shared helpers (sale and payment engines) ─────────────────────────────────

type lockedSale struct {
	boutiqueID int
	number     string
	total      decimal.Decimal
}

// lockSaleTx takes the sale row lock that serializes every write to a sale's amounts.
func lockSaleTx(ctx context.Context, tx pgx.Tx, p Principal, saleID int) (*lockedSale, error) {
	ls := &lockedSale{}
	err := tx.QueryRow(ctx,
		"SELECT boutique_id, number, amount_total FROM sales WHERE id = $1 FOR UPDATE", saleID,
	).Scan(&ls.boutiqueID, &ls.number, &ls.total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("vente", saleID)
		}
		return nil, fmt.Errorf("lock sale %d: %w", saleID, err)
	}
	if err := AssertTenantAccess(p, ls.boutiqueID); err != nil {
		return nil, err
	}
	return ls, nil
}

// recomputeSaleTx re-sums payments and rewrites paid, remaining and status.
// Amounts are never incremented in place.
func recomputeSaleTx(ctx context.Context, tx pgx.Tx, saleID int, total decimal.Decimal) error {
	var paid decimal.Decimal
	if err := tx.QueryRow(ctx,
		"SELECT COALESCE(SUM(amount), 0) FROM payments WHERE sale_id = $1", saleID,
	).Scan(&paid); err != nil {
		return fmt.Errorf("sum payments of sale %d: %w", saleID, err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE sales SET amount_paid = $1, amount_remaining = $2, status = $3, updated_at = NOW()
		WHERE id = $4`,
		paid, total.Sub(paid), string(DeriveStatus(paid, total)), saleID,
	); err != nil {
		return fmt.Errorf("update sale %d amounts: %w", saleID, err)
	}
	return nil
}

func insertPaymentTx(ctx context.Context, tx pgx.Tx, saleID, userID int, in PaymentInput) (int, error) {
	var paymentID int
	err := tx.QueryRow(ctx, `
		INSERT INTO payments (sale_id, user_id, amount, method, reference, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		saleID, userID, in.Amount, string(in.Method.orDefault()), toPtr(in.Reference), toPtr(in.Notes),
	).Scan(&paymentID)
	if err != nil {
		return 0, fmt.Errorf("insert payment: %w", err)
	}
	return paymentID, nil
}

const saleSelect = `
	SELECT s.id, s.boutique_id, s.user_id, u.username, s.client_id, c.name, s.number,
	       s.amount_total, s.amount_paid, s.amount_remaining, s.status, s.notes,
	       s.created_at, s.updated_at
	FROM sales s
	JOIN users u ON u.id = s.user_id
	LEFT JOIN clients c ON c.id = s.client_id`

func scanSale(row pgx.Row) (*Sale, error) {
	sale := &Sale{}
	err := row.Scan(
		&sale.ID, &sale.BoutiqueID, &sale.UserID, &sale.UserName, &sale.ClientID, &sale.ClientName, &sale.Number,
		&sale.AmountTotal, &sale.AmountPaid, &sale.AmountRemaining, &sale.Status, &sale.Notes,
		&sale.CreatedAt, &sale.UpdatedAt,
	)
	return sale, err
}

// getSale returns the sale hydrated with lines and payments.
func getSale(ctx context.Context, q interface {
	pgxQuerier
	pgxRowQuerier
}, saleID int) (*Sale, error) {
	sale, err := scanSale(q.QueryRow(ctx, saleSelect+" WHERE s.id = $1", saleID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("vente", saleID)
		}
		return nil, fmt.Errorf("get sale %d: %w", saleID, err)
	}
	if sale.Lines, err = fetchSaleLines(ctx, q, saleID); err != nil {
		return nil, err
	}
	if sale.Payments, err = fetchPayments(ctx, q, saleID); err != nil {
		return nil, err
	}
	return sale, nil
}

func fetchSaleLines(ctx context.Context, q pgxRowQuerier, saleID int) ([]SaleLine, error) {
	rows, err := q.Query(ctx, `
		SELECT l.id, l.sale_id, l.product_id, p.name, l.quantity, l.unit_price, l.subtotal
		FROM sale_lines l
		JOIN products p ON p.id = l.product_id
		WHERE l.sale_id = $1
		ORDER BY l.id`, saleID)
	if err != nil {
		return nil, fmt.Errorf("fetch sale lines: %w", err)
	}
	defer rows.Close()

	var lines []SaleLine
	for rows.Next() {
		var l SaleLine
		if err := rows.Scan(&l.ID, &l.SaleID, &l.ProductID, &l.ProductName, &l.Quantity, &l.UnitPrice, &l.Subtotal); err != nil {
			return nil, fmt.Errorf("scan sale line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
