package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type paymentService struct {
	pool   *pgxpool.Pool
	ledger LedgerService
}

func NewPaymentService(pool *pgxpool.Pool, ledger LedgerService) PaymentService {
	return &paymentService{pool: pool, ledger: ledger}
}

const paymentColumns = `
	p.id, p.sale_id, s.number, p.user_id, p.amount, p.method, p.reference, p.notes,
	p.created_at, p.updated_at`

func scanPayment(row pgx.Row) (*Payment, error) {
	pm := &Payment{}
	err := row.Scan(
		&pm.ID, &pm.SaleID, &pm.SaleNumber, &pm.UserID, &pm.Amount, &pm.Method, &pm.Reference, &pm.Notes,
		&pm.CreatedAt, &pm.UpdatedAt,
	)
	return pm, err
}

func getPayment(ctx context.Context, q pgxQuerier, paymentID int) (*Payment, error) {
	pm, err := scanPayment(q.QueryRow(ctx,
		"SELECT "+paymentColumns+" FROM payments p JOIN sales s ON s.id = p.sale_id WHERE p.id = $1", paymentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("paiement", paymentID)
		}
		return nil, fmt.Errorf("get payment %d: %w", paymentID, err)
	}
	return pm, nil
}

func fetchPayments(ctx context.Context, q pgxRowQuerier, saleID int) ([]Payment, error) {
	rows, err := q.Query(ctx,
		"SELECT "+paymentColumns+" FROM payments p JOIN sales s ON s.id = p.sale_id WHERE p.sale_id = $1 ORDER BY p.created_at, p.id",
		saleID)
	if err != nil {
		return nil, fmt.Errorf("fetch payments: %w", err)
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		pm, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, *pm)
	}
	return payments, rows.Err()
}

func (s *paymentService) AddPayment(ctx context.Context, p Principal, saleID int, in PaymentInput) (*Payment, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	sale, err := lockSaleTx(ctx, tx, p, saleID)
	if err != nil {
		return nil, err
	}
	if err := checkPaymentBound(ctx, tx, saleID, 0, sale, in); err != nil {
		return nil, err
	}

	paymentID, err := insertPaymentTx(ctx, tx, saleID, p.UserID, in)
	if err != nil {
		return nil, err
	}
	userID := p.UserID
	if _, err := s.ledger.RecordTx(ctx, tx, TransactionEntry{
		BoutiqueID:  sale.boutiqueID,
		UserID:      &userID,
		Type:        TxRevenue,
		Amount:      in.Amount,
		Description: paymentDescription(sale.number),
		SaleID:      &saleID,
		PaymentID:   &paymentID,
	}); err != nil {
		return nil, err
	}
	if err := recomputeSaleTx(ctx, tx, saleID, sale.total); err != nil {
		return nil, err
	}

	pm, err := getPayment(ctx, tx, paymentID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit payment: %w", err)
	}
	return pm, nil
}

// checkPaymentBound rejects in when the sale's other payments plus in.Amount exceed its total.
// excludeID names the payment being edited, or 0.
func checkPaymentBound(ctx context.Context, tx pgx.Tx, saleID, excludeID int, sale *lockedSale, in PaymentInput) error {
	var others decimal.Decimal
	if err := tx.QueryRow(ctx,
		"SELECT COALESCE(SUM(amount), 0) FROM payments WHERE sale_id = $1 AND id <> $2",
		saleID, excludeID,
	).Scan(&others); err != nil {
		return fmt.Errorf("sum payments of sale %d: %w", saleID, err)
	}
	remaining := sale.total.Sub(others)
	if in.Amount.GreaterThan(remaining) {
		return &OverpaymentError{Remaining: remaining, Attempted: in.Amount}
	}
	return nil
}

// lockPaymentTx resolves a payment's sale and locks the sale before the payment is touched,
// keeping the same lock order as AddPayment.
func lockPaymentTx(ctx context.Context, tx pgx.Tx, p Principal, paymentID int) (int, *lockedSale, error) {
	var saleID int
	err := tx.QueryRow(ctx, "SELECT sale_id FROM payments WHERE id = $1", paymentID).Scan(&saleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil, notFound("paiement", paymentID)
		}
		return 0, nil, fmt.Errorf("resolve payment %d: %w", paymentID, err)
	}
	sale, err := lockSaleTx(ctx, tx, p, saleID)
	if err != nil {
		return 0, nil, err
	}
	return saleID, sale, nil
}

func (s *paymentService) UpdatePayment(ctx context.Context, p Principal, paymentID int, in PaymentInput) (*Payment, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	saleID, sale, err := lockPaymentTx(ctx, tx, p, paymentID)
	if err != nil {
		return nil, err
	}
	if err := checkPaymentBound(ctx, tx, saleID, paymentID, sale, in); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE payments SET amount = $1, method = $2, reference = $3, notes = $4, updated_at = NOW()
		WHERE id = $5`,
		in.Amount, string(in.Method.orDefault()), toPtr(in.Reference), toPtr(in.Notes), paymentID,
	); err != nil {
		return nil, fmt.Errorf("update payment %d: %w", paymentID, err)
	}
	if err := s.ledger.UpdateForPaymentTx(ctx, tx, paymentID, in.Amount, paymentDescription(sale.number)); err != nil {
		return nil, err
	}
	if err := recomputeSaleTx(ctx, tx, saleID, sale.total); err != nil {
		return nil, err
	}

	pm, err := getPayment(ctx, tx, paymentID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit payment update: %w", err)
	}
	return pm, nil
}

func (s *paymentService) DeletePayment(ctx context.Context, p Principal, paymentID int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	saleID, sale, err := lockPaymentTx(ctx, tx, p, paymentID)
	if err != nil {
		return err
	}
	if err := s.ledger.DeleteForPaymentTx(ctx, tx, paymentID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, "DELETE FROM payments WHERE id = $1", paymentID); err != nil {
		return fmt.Errorf("delete payment %d: %w", paymentID, err)
	}
	if err := recomputeSaleTx(ctx, tx, saleID, sale.total); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit payment deletion: %w", err)
	}
	return nil
}

func (s *paymentService) ListPayments(ctx context.Context, p Principal, saleID int) ([]Payment, error) {
	if _, err := authorizeRow(ctx, s.pool, p, "sales", "vente", saleID); err != nil {
		return nil, err
	}
	return fetchPayments(ctx, s.pool, saleID)
}
