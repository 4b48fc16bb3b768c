package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type purchaseOrderService struct {
	pool      *pgxpool.Pool
	inventory InventoryService
	docs      DocumentService
	ledger    LedgerService
}

func NewPurchaseOrderService(pool *pgxpool.Pool, inventory InventoryService, docs DocumentService, ledger LedgerService) PurchaseOrderService {
	return &purchaseOrderService{pool: pool, inventory: inventory, docs: docs, ledger: ledger}
}

func (s *purchaseOrderService) CreateOrder(ctx context.Context, p Principal, boutiqueID int, in OrderInput) (*PurchaseOrder, error) {
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

	owner, err := boutiqueOf(ctx, tx, "suppliers", "fournisseur", in.SupplierID)
	if err != nil {
		return nil, err
	}
	if owner != boutiqueID {
		return nil, notFound("fournisseur", in.SupplierID)
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
		var purchasePrice decimal.Decimal
		err := tx.QueryRow(ctx,
			"SELECT purchase_price FROM products WHERE id = $1 AND boutique_id = $2",
			l.ProductID, boutiqueID,
		).Scan(&purchasePrice)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, notFound("produit", l.ProductID)
			}
			return nil, fmt.Errorf("resolve product %d: %w", l.ProductID, err)
		}
		price := purchasePrice
		if !l.UnitPrice.IsZero() {
			price = l.UnitPrice
		}
		subtotal := price.Mul(decimal.NewFromInt(int64(l.Quantity)))
		total = total.Add(subtotal)
		resolved = append(resolved, resolvedLine{l.ProductID, l.Quantity, price, subtotal})
	}

	number, err := s.docs.NextNumberTx(ctx, tx, boutiqueID, DocOrder)
	if err != nil {
		return nil, err
	}

	var orderID int
	err = tx.QueryRow(ctx, `
		INSERT INTO purchase_orders (boutique_id, supplier_id, user_id, number, amount_total, amount_paid,
		                             amount_remaining, status, due_date, notes)
		VALUES ($1, $2, $3, $4, $5, 0, $5, $6, $7, $8)
		RETURNING id`,
		boutiqueID, in.SupplierID, p.UserID, number, total, string(OrderPending), in.DueDate, toPtr(in.Notes),
	).Scan(&orderID)
	if err != nil {
		return nil, uniqueOr(err, "insert purchase order", "commande", "numéro", number)
	}

	for i, rl := range resolved {
		if _, err := tx.Exec(ctx, `
			INSERT INTO purchase_order_lines (order_id, product_id, quantity, quantity_received, unit_price, subtotal)
			VALUES ($1, $2, $3, 0, $4, $5)`,
			orderID, rl.productID, rl.quantity, rl.unitPrice, rl.subtotal,
		); err != nil {
			return nil, fmt.Errorf("insert order line %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit purchase order: %w", err)
	}
	return getOrder(ctx, s.pool, orderID)
}

func (s *purchaseOrderService) ReceiveOrder(ctx context.Context, p Principal, orderID int, in ReceptionInput) (*PurchaseOrder, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := lockOrderTx(ctx, tx, p, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.Closed() {
		return nil, conflict("la commande %s est déjà clôturée (%s)", order.Number, order.Status)
	}

	lines, err := fetchOrderLines(ctx, tx, orderID, true)
	if err != nil {
		return nil, err
	}
	byID := make(map[int]*PurchaseOrderLine, len(lines))
	for i := range lines {
		byID[lines[i].ID] = &lines[i]
	}

	receipts, err := planReception(lines, in.Lines)
	if err != nil {
		return nil, err
	}

	userID := p.UserID
	for _, rc := range receipts {
		line := byID[rc.lineID]
		received := line.QuantityReceived + rc.quantity
		if _, err := tx.Exec(ctx,
			"UPDATE purchase_order_lines SET quantity_received = $1 WHERE id = $2", received, line.ID,
		); err != nil {
			return nil, fmt.Errorf("update order line %d: %w", line.ID, err)
		}
		line.QuantityReceived = received

		stockID, err := s.inventory.EnsureStockTx(ctx, tx, order.BoutiqueID, line.ProductID)
		if err != nil {
			return nil, err
		}
		if _, err := s.inventory.AdjustStockTx(ctx, tx, StockAdjustment{
			StockID: stockID,
			Delta:   rc.quantity,
			Kind:    MovementIn,
			Reason:  receptionReason(order.Number, line.ProductName),
			UserID:  &userID,
		}); err != nil {
			return nil, err
		}
	}

	total := order.AmountTotal
	if in.CancelRemainder {
		total = decimal.Zero
		for _, line := range lines {
			if line.Outstanding() > 0 {
				line.Quantity = line.QuantityReceived
				line.Subtotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
				if _, err := tx.Exec(ctx,
					"UPDATE purchase_order_lines SET quantity = $1, subtotal = $2 WHERE id = $3",
					line.Quantity, line.Subtotal, line.ID,
				); err != nil {
					return nil, fmt.Errorf("clamp order line %d: %w", line.ID, err)
				}
			}
			total = total.Add(line.Subtotal)
		}
		if total.LessThan(order.AmountPaid) {
			return nil, &OverpaymentError{Remaining: total, Attempted: order.AmountPaid}
		}
	}

	status := OrderReceived
	if !in.CancelRemainder {
		anyReceived := false
		for _, line := range lines {
			if line.QuantityReceived > 0 {
				anyReceived = true
			}
			if line.Outstanding() > 0 {
				status = OrderInProgress
			}
		}
		// A payment-only call on an untouched order leaves it PENDING.
		if status == OrderInProgress && !anyReceived {
			status = OrderPending
		}
	}

	if _, err := tx.Exec(ctx, `
		UPDATE purchase_orders
		SET status = $1, amount_total = $2, amount_remaining = $2 - amount_paid,
		    received_at = CASE WHEN $1 = 'RECEIVED' THEN NOW() ELSE received_at END,
		    updated_at = NOW()
		WHERE id = $3`,
		string(status), total, orderID,
	); err != nil {
		return nil, fmt.Errorf("update purchase order %d: %w", orderID, err)
	}
	order.AmountTotal = total

	if in.AmountPaid.IsPositive() {
		if err := s.payOrderTx(ctx, tx, p, order, in.AmountPaid, ""); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit reception: %w", err)
	}
	return getOrder(ctx, s.pool, orderID)
}

func (s *purchaseOrderService) CancelOrder(ctx context.Context, p Principal, orderID int) (*PurchaseOrder, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := lockOrderTx(ctx, tx, p, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != OrderPending {
		return nil, conflict("seule une commande en attente peut être annulée (statut actuel : %s) ; utilisez la clôture du reliquat", order.Status)
	}
	var received int
	if err := tx.QueryRow(ctx,
		"SELECT COALESCE(SUM(quantity_received), 0) FROM purchase_order_lines WHERE order_id = $1", orderID,
	).Scan(&received); err != nil {
		return nil, fmt.Errorf("sum received quantities: %w", err)
	}
	if received > 0 {
		return nil, conflict("la commande %s a déjà été partiellement réceptionnée", order.Number)
	}

	if _, err := tx.Exec(ctx,
		"UPDATE purchase_orders SET status = $1, updated_at = NOW() WHERE id = $2",
		string(OrderCancelled), orderID,
	); err != nil {
		return nil, fmt.Errorf("cancel purchase order %d: %w", orderID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit order cancellation: %w", err)
	}
	return getOrder(ctx, s.pool, orderID)
}

func (s *purchaseOrderService) PayOrder(ctx context.Context, p Principal, orderID int, amount decimal.Decimal, description string) (*PurchaseOrder, error) {
	v := &ValidationError{}
	if !amount.IsPositive() {
		v.Add("amount", "le montant doit être strictement positif")
	}
	v.Money("amount", amount)
	if err := v.Err(); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := lockOrderTx(ctx, tx, p, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == OrderCancelled {
		return nil, conflict("la commande %s est annulée", order.Number)
	}
	if err := s.payOrderTx(ctx, tx, p, order, amount, description); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit order payment: %w", err)
	}
	return getOrder(ctx, s.pool, orderID)
}

// payOrderTx records a PURCHASE entry linked to the order and moves paid/remaining.
// order must be locked and carry the current AmountTotal.
func (s *purchaseOrderService) payOrderTx(ctx context.Context, tx pgx.Tx, p Principal, order *PurchaseOrder, amount decimal.Decimal, description string) error {
	remaining := order.AmountTotal.Sub(order.AmountPaid)
	if amount.GreaterThan(remaining) {
		return &OverpaymentError{Remaining: remaining, Attempted: amount}
	}
	if strings.TrimSpace(description) == "" {
		description = orderPaymentDescription(order.Number)
	}

	userID := p.UserID
	orderID := order.ID
	if _, err := s.ledger.RecordTx(ctx, tx, TransactionEntry{
		BoutiqueID:      order.BoutiqueID,
		UserID:          &userID,
		Type:            TxPurchase,
		Amount:          amount,
		Description:     description,
		PurchaseOrderID: &orderID,
	}); err != nil {
		return err
	}

	paid := order.AmountPaid.Add(amount)
	if _, err := tx.Exec(ctx, `
		UPDATE purchase_orders SET amount_paid = $1, amount_remaining = $2, updated_at = NOW()
		WHERE id = $3`,
		paid, order.AmountTotal.Sub(paid), order.ID,
	); err != nil {
		return fmt.Errorf("update purchase order %d amounts: %w", order.ID, err)
	}
	order.AmountPaid = paid
	order.AmountRemaining = order.AmountTotal.Sub(paid)
	return nil
}

func (s *purchaseOrderService) GetOrder(ctx context.Context, p Principal, orderID int) (*PurchaseOrder, error) {
	order, err := getOrder(ctx, s.pool, orderID)
	if err != nil {
		return nil, err
	}
	if err := AssertTenantAccess(p, order.BoutiqueID); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *purchaseOrderService) ListOrders(ctx context.Context, p Principal, boutiqueID int, filter OrderFilter) ([]PurchaseOrder, error) {
	if err := AssertTenantAccess(p, boutiqueID); err != nil {
		return nil, err
	}

	f := &filterBuilder{}
	f.add("o.boutique_id = ?", boutiqueID)
	if filter.Status != nil {
		f.add("o.status = ?", string(*filter.Status))
	}
	if filter.SupplierID != nil {
		f.add("o.supplier_id = ?", *filter.SupplierID)
	}
	if filter.From != nil {
		f.add("o.created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		f.add("o.created_at < ?", *filter.To)
	}
	q := orderSelect + f.where() + " ORDER BY o.created_at DESC, o.id DESC" + f.paginate(filter.Page)

	rows, err := s.pool.Query(ctx, q, f.args...)
	if err != nil {
		return nil, fmt.Errorf("list purchase orders: %w", err)
	}
	defer rows.Close()

	var orders []PurchaseOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan purchase order: %w", err)
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

// ── Helpers ───────────────────────────────────────────────────────────────────

const orderSelect = `
	SELECT o.id, o.boutique_id, o.supplier_id, sp.name, o.user_id, o.number,
	       o.amount_total, o.amount_paid, o.amount_remaining, o.status,
	       o.due_date, o.notes, o.received_at, o.created_at, o.updated_at
	FROM purchase_orders o
	JOIN suppliers sp ON sp.id = o.supplier_id`

func scanOrder(row pgx.Row) (*PurchaseOrder, error) {
	o := &PurchaseOrder{}
	err := row.Scan(
		&o.ID, &o.BoutiqueID, &o.SupplierID, &o.SupplierName, &o.UserID, &o.Number,
		&o.AmountTotal, &o.AmountPaid, &o.AmountRemaining, &o.Status,
		&o.DueDate, &o.Notes, &o.ReceivedAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.PaymentStatus = DeriveStatus(o.AmountPaid, o.AmountTotal)
	return o, nil
}

// lockOrderTx locks the order header; every reception and payment of an order serializes on it.
func lockOrderTx(ctx context.Context, tx pgx.Tx, p Principal, orderID int) (*PurchaseOrder, error) {
	o, err := scanOrder(tx.QueryRow(ctx, orderSelect+" WHERE o.id = $1 FOR UPDATE OF o", orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("commande", orderID)
		}
		return nil, fmt.Errorf("lock purchase order %d: %w", orderID, err)
	}
	if err := AssertTenantAccess(p, o.BoutiqueID); err != nil {
		return nil, err
	}
	return o, nil
}

func getOrder(ctx context.Context, q interface {
	pgxQuerier
	pgxRowQuerier
}, orderID int) (*PurchaseOrder, error) {
	o, err := scanOrder(q.QueryRow(ctx, orderSelect+" WHERE o.id = $1", orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("commande", orderID)
		}
		return nil, fmt.Errorf("get purchase order %d: %w", orderID, err)
	}
	if o.Lines, err = fetchOrderLines(ctx, q, orderID, false); err != nil {
		return nil, err
	}
	return o, nil
}

func fetchOrderLines(ctx context.Context, q pgxRowQuerier, orderID int, forUpdate bool) ([]PurchaseOrderLine, error) {
	sql := `
		SELECT l.id, l.order_id, l.product_id, p.name, l.quantity, l.quantity_received, l.unit_price, l.subtotal
		FROM purchase_order_lines l
		JOIN products p ON p.id = l.product_id
		WHERE l.order_id = $1
		ORDER BY l.id`
	if forUpdate {
		sql += " FOR UPDATE OF l"
	}
	rows, err := q.Query(ctx, sql, orderID)
	if err != nil {
		return nil, fmt.Errorf("fetch order lines: %w", err)
	}
	defer rows.Close()

	var lines []PurchaseOrderLine
	for rows.Next() {
		var l PurchaseOrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.ProductName,
			&l.Quantity, &l.QuantityReceived, &l.UnitPrice, &l.Subtotal); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
