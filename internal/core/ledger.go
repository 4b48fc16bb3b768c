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

type LedgerService interface {
	// RecordTx appends an entry inside the caller's transaction, normalizing the sign.
	RecordTx(ctx context.Context, tx pgx.Tx, e TransactionEntry) (*Transaction, error)
	// UpdateForPaymentTx patches the entry linked to paymentID.
	UpdateForPaymentTx(ctx context.Context, tx pgx.Tx, paymentID int, amount decimal.Decimal, description string) error
	// DeleteForPaymentTx removes the entry linked to paymentID, if any.
	DeleteForPaymentTx(ctx context.Context, tx pgx.Tx, paymentID int) error
	// DeleteForSaleTx removes every entry linked to saleID (sale voiding).
	DeleteForSaleTx(ctx context.Context, tx pgx.Tx, saleID int) error

	RecordTransaction(ctx context.Context, p Principal, boutiqueID int, in TransactionInput) (*Transaction, error)
	UpdateTransaction(ctx context.Context, p Principal, transactionID int, in TransactionInput) (*Transaction, error)
	DeleteTransaction(ctx context.Context, p Principal, transactionID int) error
	GetTransaction(ctx context.Context, p Principal, transactionID int) (*Transaction, error)
	ListTransactions(ctx context.Context, p Principal, boutiqueID int, filter TransactionFilter) ([]Transaction, error)
}

// Ledger is the capital/transaction ledger. Balances are never stored:
// ReportingService derives them from these rows at read time.
type Ledger struct {
	pool *pgxpool.Pool
}

func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

const transactionColumns = `
	id, boutique_id, user_id, type, amount, description,
	sale_id, payment_id, purchase_order_id, occurred_at, created_at, updated_at`

func scanTransaction(row pgx.Row) (*Transaction, error) {
	t := &Transaction{}
	err := row.Scan(
		&t.ID, &t.BoutiqueID, &t.UserID, &t.Type, &t.Amount, &t.Description,
		&t.SaleID, &t.PaymentID, &t.PurchaseOrderID, &t.OccurredAt, &t.CreatedAt, &t.UpdatedAt,
	)
	return t, err
}

// ── TX-scoped operations (engines) ────────────────────────────────────────────

func (l *Ledger) RecordTx(ctx context.Context, tx pgx.Tx, e TransactionEntry) (*Transaction, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}
	t, err := scanTransaction(tx.QueryRow(ctx, `
		INSERT INTO transactions (boutique_id, user_id, type, amount, description,
		                          sale_id, payment_id, purchase_order_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, NOW()))
		RETURNING `+transactionColumns,
		e.BoutiqueID, e.UserID, string(e.Type), NormalizeAmount(e.Type, e.Amount),
		strings.TrimSpace(e.Description), e.SaleID, e.PaymentID, e.PurchaseOrderID, e.OccurredAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}
	return t, nil
}

func (l *Ledger) UpdateForPaymentTx(ctx context.Context, tx pgx.Tx, paymentID int, amount decimal.Decimal, description string) error {
	var txType TransactionType
	err := tx.QueryRow(ctx, "SELECT type FROM transactions WHERE payment_id = $1 FOR UPDATE", paymentID).Scan(&txType)
	if errors.Is(err, pgx.ErrNoRows) {
		// Entries may have been removed by hand before the link existed; nothing to patch.
		return nil
	}
	if err != nil {
		return fmt.Errorf("lock payment transaction: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE transactions SET amount = $1, description = $2, updated_at = NOW()
		WHERE payment_id = $3`,
		NormalizeAmount(txType, amount), description, paymentID,
	); err != nil {
		return fmt.Errorf("update payment transaction: %w", err)
	}
	return nil
}

func (l *Ledger) DeleteForPaymentTx(ctx context.Context, tx pgx.Tx, paymentID int) error {
	if _, err := tx.Exec(ctx, "DELETE FROM transactions WHERE payment_id = $1", paymentID); err != nil {
		return fmt.Errorf("delete payment transaction: %w", err)
	}
	return nil
}

func (l *Ledger) DeleteForSaleTx(ctx context.Context, tx pgx.Tx, saleID int) error {
	if _, err := tx.Exec(ctx,
		"DELETE FROM transactions WHERE sale_id = $1 OR payment_id IN (SELECT id FROM payments WHERE sale_id = $1)",
		saleID,
	); err != nil {
		return fmt.Errorf("delete sale transactions: %w", err)
	}
	return nil
}

// ── Manual entries ────────────────────────────────────────────────────────────

func (l *Ledger) RecordTransaction(ctx context.Context, p Principal, boutiqueID int, in TransactionInput) (*Transaction, error) {
	if err := AssertTenantAccess(p, boutiqueID); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	userID := p.UserID
	t, err := l.RecordTx(ctx, tx, TransactionEntry{
		BoutiqueID:  boutiqueID,
		UserID:      &userID,
		Type:        in.Type,
		Amount:      in.Amount,
		Description: in.Description,
		OccurredAt:  in.OccurredAt,
	})
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return t, nil
}

// lockManual loads a transaction for update and refuses entries owned by an engine.
func (l *Ledger) lockManual(ctx context.Context, tx pgx.Tx, p Principal, transactionID int) (*Transaction, error) {
	t, err := scanTransaction(tx.QueryRow(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE id = $1 FOR UPDATE", transactionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("transaction", transactionID)
		}
		return nil, fmt.Errorf("fetch transaction %d: %w", transactionID, err)
	}
	if err := AssertTenantAccess(p, t.BoutiqueID); err != nil {
		return nil, err
	}
	if t.Linked() {
		return nil, conflict("cette transaction est liée à une vente, un paiement ou une commande : modifiez l'opération d'origine")
	}
	return t, nil
}

func (l *Ledger) UpdateTransaction(ctx context.Context, p Principal, transactionID int, in TransactionInput) (*Transaction, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := l.lockManual(ctx, tx, p, transactionID); err != nil {
		return nil, err
	}
	t, err := scanTransaction(tx.QueryRow(ctx, `
		UPDATE transactions
		SET type = $1, amount = $2, description = $3,
		    occurred_at = COALESCE($4, occurred_at), updated_at = NOW()
		WHERE id = $5
		RETURNING `+transactionColumns,
		string(in.Type), NormalizeAmount(in.Type, in.Amount), strings.TrimSpace(in.Description),
		in.OccurredAt, transactionID,
	))
	if err != nil {
		return nil, fmt.Errorf("update transaction %d: %w", transactionID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return t, nil
}

func (l *Ledger) DeleteTransaction(ctx context.Context, p Principal, transactionID int) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := l.lockManual(ctx, tx, p, transactionID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, "DELETE FROM transactions WHERE id = $1", transactionID); err != nil {
		return fmt.Errorf("delete transaction %d: %w", transactionID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (l *Ledger) GetTransaction(ctx context.Context, p Principal, transactionID int) (*Transaction, error) {
	t, err := scanTransaction(l.pool.QueryRow(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE id = $1", transactionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("transaction", transactionID)
		}
		return nil, fmt.Errorf("get transaction %d: %w", transactionID, err)
	}
	if err := AssertTenantAccess(p, t.BoutiqueID); err != nil {
		return nil, err
	}
	return t, nil
}

func (l *Ledger) ListTransactions(ctx context.Context, p Principal, boutiqueID int, filter TransactionFilter) ([]Transaction, error) {
	if err := AssertTenantAccess(p, boutiqueID); err != nil {
		return nil, err
	}

	f := &filterBuilder{}
	f.add("boutique_id = ?", boutiqueID)
	if filter.Type != nil {
		f.add("type = ?", string(*filter.Type))
	}
	if filter.From != nil {
		f.add("occurred_at >= ?", *filter.From)
	}
	if filter.To != nil {
		f.add("occurred_at < ?", *filter.To)
	}
	q := "SELECT " + transactionColumns + " FROM transactions" + f.where() +
		" ORDER BY occurred_at DESC, id DESC" + f.paginate(filter.Page)

	rows, err := l.pool.Query(ctx, q, f.args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}
