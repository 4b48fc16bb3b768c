package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Violation is one consistency problem found by CheckInvariants.
type Violation struct {
	Entity string `json:"entity"`
	ID     int    `json:"id"`
	Ref    string `json:"ref"`
	Detail string `json:"detail"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s %s (#%d): %s", v.Entity, v.Ref, v.ID, v.Detail)
}

// CheckInvariants re-derives stored totals and statuses of a boutique and reports every mismatch.
// It only reads; an empty result means the boutique is consistent.
func CheckInvariants(ctx context.Context, pool *pgxpool.Pool, boutiqueID int) ([]Violation, error) {
	var out []Violation

	stockRows, err := pool.Query(ctx, `
		SELECT s.id, p.name, s.quantity FROM stocks s JOIN products p ON p.id = s.product_id
		WHERE s.boutique_id = $1 AND s.quantity < 0`, boutiqueID)
	if err != nil {
		return nil, fmt.Errorf("check stocks: %w", err)
	}
	for stockRows.Next() {
		var id, qty int
		var name string
		if err := stockRows.Scan(&id, &name, &qty); err != nil {
			stockRows.Close()
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		out = append(out, Violation{"stock", id, name, fmt.Sprintf("quantité négative (%d)", qty)})
	}
	stockRows.Close()
	if err := stockRows.Err(); err != nil {
		return nil, err
	}

	saleRows, err := pool.Query(ctx, `
		SELECT s.id, s.number, s.amount_total, s.amount_paid, s.amount_remaining, s.status,
		       COALESCE((SELECT SUM(amount) FROM payments WHERE sale_id = s.id), 0)
		FROM sales s WHERE s.boutique_id = $1 ORDER BY s.id`, boutiqueID)
	if err != nil {
		return nil, fmt.Errorf("check sales: %w", err)
	}
	for saleRows.Next() {
		var sc saleCheck
		if err := saleRows.Scan(&sc.id, &sc.number, &sc.total, &sc.paid, &sc.remaining, &sc.status, &sc.payments); err != nil {
			saleRows.Close()
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		out = append(out, sc.violations()...)
	}
	saleRows.Close()
	if err := saleRows.Err(); err != nil {
		return nil, err
	}

	orderRows, err := pool.Query(ctx, `
		SELECT o.id, o.number, o.amount_total, o.amount_paid, o.amount_remaining,
		       COALESCE((SELECT SUM(subtotal) FROM purchase_order_lines WHERE order_id = o.id), 0),
		       (SELECT COUNT(*) FROM purchase_order_lines WHERE order_id = o.id AND quantity_received > quantity)
		FROM purchase_orders o WHERE o.boutique_id = $1 ORDER BY o.id`, boutiqueID)
	if err != nil {
		return nil, fmt.Errorf("check purchase orders: %w", err)
	}
	defer orderRows.Close()
	for orderRows.Next() {
		var oc orderCheck
		if err := orderRows.Scan(&oc.id, &oc.number, &oc.total, &oc.paid, &oc.remaining, &oc.lineSum, &oc.overReceived); err != nil {
			return nil, fmt.Errorf("scan purchase order: %w", err)
		}
		out = append(out, oc.violations()...)
	}
	return out, orderRows.Err()
}

type saleCheck struct {
	id                               int
	number                           string
	total, paid, remaining, payments decimal.Decimal
	status                           PaymentStatus
}

func (c saleCheck) violations() []Violation {
	var out []Violation
	add := func(format string, args ...any) {
		out = append(out, Violation{"vente", c.id, c.number, fmt.Sprintf(format, args...)})
	}
	if want := DeriveStatus(c.paid, c.total); c.status != want {
		add("statut %s, attendu %s", c.status, want)
	}
	if !c.remaining.Equal(c.total.Sub(c.paid)) {
		add("reste %s ≠ total %s − payé %s", c.remaining, c.total, c.paid)
	}
	if !c.paid.Equal(c.payments) {
		add("payé %s ≠ somme des paiements %s", c.paid, c.payments)
	}
	return out
}

type orderCheck struct {
	id                              int
	number                          string
	total, paid, remaining, lineSum decimal.Decimal
	overReceived                    int
}

func (c orderCheck) violations() []Violation {
	var out []Violation
	add := func(format string, args ...any) {
		out = append(out, Violation{"commande", c.id, c.number, fmt.Sprintf(format, args...)})
	}
	if c.overReceived > 0 {
		add("%d ligne(s) reçue(s) au-delà de la quantité commandée", c.overReceived)
	}
	if !c.total.Equal(c.lineSum) {
		add("total %s ≠ somme des lignes %s", c.total, c.lineSum)
	}
	if !c.remaining.Equal(c.total.Sub(c.paid)) {
		add("reste %s ≠ total %s − payé %s", c.remaining, c.total, c.paid)
	}
	return out
}
