package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ── Report types ──────────────────────────────────────────────────────────────

// MonthlyRow aggregates one calendar month of ledger entries.
//   - Revenue:  SALE + REVENUE
//   - Expenses: |EXPENSE| + |PURCHASE|
//   - Capital:  CAPITAL_INJECTION − WITHDRAWAL
//   - Net:      Revenue − Expenses
type MonthlyRow struct {
	Month    int             `json:"month"`
	Revenue  decimal.Decimal `json:"revenue"`
	Expenses decimal.Decimal `json:"expenses"`
	Capital  decimal.Decimal `json:"capital"`
	Net      decimal.Decimal `json:"net"`
}

// MonthlySummary holds twelve MonthlyRows plus their totals (Month = 0).
type MonthlySummary struct {
	Year   int          `json:"year"`
	Months []MonthlyRow `json:"months"`
	Totals MonthlyRow   `json:"totals"`
}

// BalanceLine is one ledger entry in a balance statement.
// Balance is the running balance after this entry.
type BalanceLine struct {
	TransactionID int             `json:"transaction_id"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Type          TransactionType `json:"type"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	Effect        decimal.Decimal `json:"effect"`
	Balance       decimal.Decimal `json:"balance"`
}

// BalanceStatement is a chronological statement over [From, To).
type BalanceStatement struct {
	From           *time.Time      `json:"from,omitempty"`
	To             *time.Time      `json:"to,omitempty"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
	Lines          []BalanceLine   `json:"lines"`
}

// Aging bucket labels, in display order.
const (
	Bucket0To30  = "0-30"
	Bucket31To60 = "31-60"
	Bucket61To90 = "61-90"
	BucketOver90 = "90+"
)

const hoursPerDay = 24

var agingLabels = []string{Bucket0To30, Bucket31To60, Bucket61To90, BucketOver90}

// AgingBucketFor maps an age in whole days to its bucket label.
func AgingBucketFor(days int) string {
	switch {
	case days <= 30:
		return Bucket0To30
	case days <= 60:
		return Bucket31To60
	case days <= 90:
		return Bucket61To90
	default:
		return BucketOver90
	}
}

type AgingBucket struct {
	Label  string          `json:"label"`
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

type Receivable struct {
	SaleID          int             `json:"sale_id"`
	Number          string          `json:"number"`
	ClientName      *string         `json:"client_name,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	AmountRemaining decimal.Decimal `json:"amount_remaining"`
	AgeDays         int             `json:"age_days"`
	Bucket          string          `json:"bucket"`
}

// ReceivablesAging lists unpaid balances grouped by age.
type ReceivablesAging struct {
	AsOf        time.Time       `json:"as_of"`
	Buckets     []AgingBucket   `json:"buckets"`
	Receivables []Receivable    `json:"receivables"`
	Total       decimal.Decimal `json:"total"`
}

type TopProduct struct {
	ProductID int             `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// Dashboard is the landing snapshot of a boutique.
type Dashboard struct {
	TodaySalesCount  int             `json:"today_sales_count"`
	TodaySalesAmount decimal.Decimal `json:"today_sales_amount"`
	MonthRevenue     decimal.Decimal `json:"month_revenue"`
	MonthExpenses    decimal.Decimal `json:"month_expenses"`
	Balance          decimal.Decimal `json:"balance"`
	Receivables      decimal.Decimal `json:"receivables"`
	LowStockCount    int             `json:"low_stock_count"`
}

// ── Interface ─────────────────────────────────────────────────────────────────

// ReportingService provides read-only views derived from sales, payments and the ledger.
// No balance is ever stored; every figure is summed at read time.
type ReportingService interface {
	MonthlySummary(ctx context.Context, p Principal, boutiqueID, year int) (*MonthlySummary, error)
	BalanceStatement(ctx context.Context, p Principal, boutiqueID int, period DateRange) (*BalanceStatement, error)
	ReceivablesAging(ctx context.Context, p Principal, boutiqueID int, asOf time.Time) (*ReceivablesAging, error)
	TopProducts(ctx context.Context, p Principal, boutiqueID int, period DateRange, limit int) ([]TopProduct, error)
	Dashboard(ctx context.Context, p Principal, boutiqueID int, now time.Time) (*Dashboard, error)
}

// ── Implementation ────────────────────────────────────────────────────────────

type reportingService struct {
	pool *pgxpool.Pool
	loc  *time.Location
}

// NewReportingService constructs a ReportingService. Months and days are cut in the server's local zone.
func NewReportingService(pool *pgxpool.Pool) ReportingService {
	return &reportingService{pool: pool, loc: time.Local}
}

// ledgerEntry is the minimal projection folded by the pure report builders below.
type ledgerEntry struct {
	ID          int
	OccurredAt  time.Time
	Type        TransactionType
	Description string
	Amount      decimal.Decimal
}

func (s *reportingService) ledgerEntries(ctx context.Context, boutiqueID int, period DateRange) ([]ledgerEntry, error) {
	f := &filterBuilder{}
	f.add("boutique_id = ?", boutiqueID)
	if period.From != nil {
		f.add("occurred_at >= ?", *period.From)
	}
	if period.To != nil {
		f.add("occurred_at < ?", *period.To)
	}
	rows, err := s.pool.Query(ctx,
		"SELECT id, occurred_at, type, description, amount FROM transactions"+f.where()+" ORDER BY occurred_at, id",
		f.args...)
	if err != nil {
		return nil, fmt.Errorf("query ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []ledgerEntry
	for rows.Next() {
		var e ledgerEntry
		if err := rows.Scan(&e.ID, &e.OccurredAt, &e.Type, &e.Description, &e.Amount); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// balanceBefore sums the effect of every entry strictly before t (or all entries when t is nil).
// Within one type all stored amounts share a sign, so the effect of a per-type sum is exact.
func (s *reportingService) balanceBefore(ctx context.Context, boutiqueID int, t *time.Time) (decimal.Decimal, error) {
	f := &filterBuilder{}
	f.add("boutique_id = ?", boutiqueID)
	if t != nil {
		f.add("occurred_at < ?", *t)
	}
	rows, err := s.pool.Query(ctx, "SELECT type, SUM(amount) FROM transactions"+f.where()+" GROUP BY type", f.args...)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum ledger by type: %w", err)
	}
	defer rows.Close()

	balance := decimal.Zero
	for rows.Next() {
		var typ TransactionType
		var sum decimal.Decimal
		if err := rows.Scan(&typ, &sum); err != nil {
			return decimal.Zero, fmt.Errorf("scan ledger sum: %w", err)
		}
		balance = balance.Add(TransactionEffect(typ, sum))
	}
	return balance, rows.Err()
}

func (s *reportingService) MonthlySummary(ctx context.Context, p Principal, boutiqueID, year int) (*MonthlySummary, error) {
	if err := AssertTenantAccess(p, boutiqueID); err != nil {
		return nil, err
	}
	if year < 2000 || year > 9999 {
		return nil, invalid("year", "année invalide")
	}
	from := time.Date(year, 1, 1, 0, 0, 0, 0, s.loc)
	to := from.AddDate(1, 0, 0)
	entries, err := s.ledgerEntries(ctx, boutiqueID, DateRange{From: &from, To: &to})
	if err != nil {
		return nil, err
	}
	return buildMonthlySummary(year, entries, s.loc), nil
}

func buildMonthlySummary(year int, entries []ledgerEntry, loc *time.Location) *MonthlySummary {
	sum := &MonthlySummary{Year: year, Months: make([]MonthlyRow, 12)}
	for i := range sum.Months {
		sum.Months[i].Month = i + 1
	}
	for _, e := range entries {
		row := &sum.Months[e.OccurredAt.In(loc).Month()-1]
		amount := e.Amount.Abs()
		switch e.Type {
		case TxSale, TxRevenue:
			row.Revenue = row.Revenue.Add(amount)
		case TxExpense, TxPurchase:
			row.Expenses = row.Expenses.Add(amount)
		case TxCapitalInjection:
			row.Capital = row.Capital.Add(amount)
		case TxWithdrawal:
			row.Capital = row.Capital.Sub(amount)
		}
	}
	for i := range sum.Months {
		row := &sum.Months[i]
		row.Net = row.Revenue.Sub(row.Expenses)
		sum.Totals.Revenue = sum.Totals.Revenue.Add(row.Revenue)
		sum.Totals.Expenses = sum.Totals.Expenses.Add(row.Expenses)
		sum.Totals.Capital = sum.Totals.Capital.Add(row.Capital)
	}
	sum.Totals.Net = sum.Totals.Revenue.Sub(sum.Totals.Expenses)
	return sum
}

func (s *reportingService) BalanceStatement(ctx context.Context, p Principal, boutiqueID int, period DateRange) (*BalanceStatement, error) {
	if err := AssertTenantAccess(p, boutiqueID); err != nil {
		return nil, err
	}
	if period.From != nil && period.To != nil && !period.From.Before(*period.To) {
		return nil, invalid("to", "la date de fin doit suivre la date de début")
	}
	opening := decimal.Zero
	if period.From != nil {
		var err error
		if opening, err = s.balanceBefore(ctx, boutiqueID, period.From); err != nil {
			return nil, err
		}
	}
	entries, err := s.ledgerEntries(ctx, boutiqueID, period)
	if err != nil {
		return nil, err
	}
	st := buildBalanceStatement(opening, entries)
	st.From, st.To = period.From, period.To
	return st, nil
}

func buildBalanceStatement(opening decimal.Decimal, entries []ledgerEntry) *BalanceStatement {
	st := &BalanceStatement{OpeningBalance: opening, Lines: make([]BalanceLine, 0, len(entries))}
	running := opening
	for _, e := range entries {
		effect := TransactionEffect(e.Type, e.Amount)
		running = running.Add(effect)
		st.Lines = append(st.Lines, BalanceLine{
			TransactionID: e.ID,
			OccurredAt:    e.OccurredAt,
			Type:          e.Type,
			Description:   e.Description,
			Amount:        e.Amount,
			Effect:        effect,
			Balance:       running,
		})
	}
	st.ClosingBalance = running
	return st
}

func (s *reportingService) ReceivablesAging(ctx context.Context, p Principal, boutiqueID int, asOf time.Time) (*ReceivablesAging, error) {
	if err := AssertTenantAccess(p, boutiqueID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT s.id, s.number, c.name, s.created_at, s.amount_remaining
		FROM sales s
		LEFT JOIN clients c ON c.id = s.client_id
		WHERE s.boutique_id = $1 AND s.amount_remaining > 0 AND s.created_at <= $2
		ORDER BY s.created_at`,
		boutiqueID, asOf)
	if err != nil {
		return nil, fmt.Errorf("query receivables: %w", err)
	}
	defer rows.Close()

	var receivables []Receivable
	for rows.Next() {
		var r Receivable
		if err := rows.Scan(&r.SaleID, &r.Number, &r.ClientName, &r.CreatedAt, &r.AmountRemaining); err != nil {
			return nil, fmt.Errorf("scan receivable: %w", err)
		}
		receivables = append(receivables, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return buildAging(asOf, receivables), nil
}

func buildAging(asOf time.Time, receivables []Receivable) *ReceivablesAging {
	aging := &ReceivablesAging{AsOf: asOf, Receivables: receivables, Buckets: make([]AgingBucket, len(agingLabels))}
	index := make(map[string]int, len(agingLabels))
	for i, label := range agingLabels {
		aging.Buckets[i].Label = label
		index[label] = i
	}
	for i := range aging.Receivables {
		r := &aging.Receivables[i]
		r.AgeDays = int(asOf.Sub(r.CreatedAt).Hours() / hoursPerDay)
		r.Bucket = AgingBucketFor(r.AgeDays)
		b := &aging.Buckets[index[r.Bucket]]
		b.Count++
		b.Amount = b.Amount.Add(r.AmountRemaining)
		aging.Total = aging.Total.Add(r.AmountRemaining)
	}
	return aging
}

func (s *reportingService) TopProducts(ctx context.Context, p Principal, boutiqueID int, period DateRange, limit int) ([]TopProduct, error) {
	if err := AssertTenantAccess(p, boutiqueID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}
	f := &filterBuilder{}
	f.add("s.boutique_id = ?", boutiqueID)
	if period.From != nil {
		f.add("s.created_at >= ?", *period.From)
	}
	if period.To != nil {
		f.add("s.created_at < ?", *period.To)
	}
	f.args = append(f.args, limit)
	q := `
		SELECT p.id, p.name, SUM(l.quantity)::int, SUM(l.subtotal)
		FROM sale_lines l
		JOIN sales s    ON s.id = l.sale_id
		JOIN products p ON p.id = l.product_id` + f.where() + `
		GROUP BY p.id, p.name
		ORDER BY SUM(l.subtotal) DESC, p.name
		LIMIT $` + fmt.Sprint(len(f.args))

	rows, err := s.pool.Query(ctx, q, f.args...)
	if err != nil {
		return nil, fmt.Errorf("query top products: %w", err)
	}
	defer rows.Close()

	var top []TopProduct
	for rows.Next() {
		var t TopProduct
		if err := rows.Scan(&t.ProductID, &t.Name, &t.Quantity, &t.Revenue); err != nil {
			return nil, fmt.Errorf("scan top product: %w", err)
		}
		top = append(top, t)
	}
	return top, rows.Err()
}

func (s *reportingService) Dashboard(ctx context.Context, p Principal, boutiqueID int, now time.Time) (*Dashboard, error) {
	if err := AssertTenantAccess(p, boutiqueID); err != nil {
		return nil, err
	}
	now = now.In(s.loc)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc)

	d := &Dashboard{}
	if err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(amount_total), 0)
		FROM sales WHERE boutique_id = $1 AND created_at >= $2`,
		boutiqueID, dayStart,
	).Scan(&d.TodaySalesCount, &d.TodaySalesAmount); err != nil {
		return nil, fmt.Errorf("dashboard sales: %w", err)
	}
	if err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount_remaining), 0) FROM sales WHERE boutique_id = $1 AND amount_remaining > 0`,
		boutiqueID,
	).Scan(&d.Receivables); err != nil {
		return nil, fmt.Errorf("dashboard receivables: %w", err)
	}
	if err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM stocks s JOIN products p ON p.id = s.product_id
		WHERE s.boutique_id = $1 AND s.quantity <= p.alert_threshold`,
		boutiqueID,
	).Scan(&d.LowStockCount); err != nil {
		return nil, fmt.Errorf("dashboard low stock: %w", err)
	}

	monthEnd := monthStart.AddDate(0, 1, 0)
	entries, err := s.ledgerEntries(ctx, boutiqueID, DateRange{From: &monthStart, To: &monthEnd})
	if err != nil {
		return nil, err
	}
	month := buildMonthlySummary(now.Year(), entries, s.loc).Months[now.Month()-1]
	d.MonthRevenue, d.MonthExpenses = month.Revenue, month.Expenses

	if d.Balance, err = s.balanceBefore(ctx, boutiqueID, nil); err != nil {
		return nil, err
	}
	return d, nil
}
