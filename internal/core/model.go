package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Boutique is the tenant: every other row is owned by exactly one boutique.
type Boutique struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Address   *string   `json:"address,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BoutiqueInput holds the editable fields of a boutique.
type BoutiqueInput struct {
	Name    string
	Address string
	Phone   string
}

// Page bounds list queries. Zero values mean "first page, default size".
type Page struct {
	Limit  int
	Offset int
}

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

func (p Page) normalized() Page {
	if p.Limit <= 0 {
		p.Limit = defaultPageSize
	}
	if p.Limit > maxPageSize {
		p.Limit = maxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// DateRange is an optional half-open [From, To) interval; nil bounds are open.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx, enabling shared query helpers.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pgxRowQuerier is satisfied by both *pgxpool.Pool and pgx.Tx (for Query).
type pgxRowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// pgxExecer is satisfied by both *pgxpool.Pool and pgx.Tx (for Exec).
type pgxExecer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// toPtr returns nil for blank strings so optional columns store NULL.
func toPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// filterBuilder accumulates WHERE clauses with positional arguments.
type filterBuilder struct {
	clauses []string
	args    []any
}

func (f *filterBuilder) add(clause string, arg any) {
	f.args = append(f.args, arg)
	f.clauses = append(f.clauses, strings.ReplaceAll(clause, "?", "$"+strconv.Itoa(len(f.args))))
}

func (f *filterBuilder) where() string {
	if len(f.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.clauses, " AND ")
}

// paginate appends LIMIT/OFFSET placeholders for p.
func (f *filterBuilder) paginate(p Page) string {
	p = p.normalized()
	f.args = append(f.args, p.Limit, p.Offset)
	return " LIMIT $" + strconv.Itoa(len(f.args)-1) + " OFFSET $" + strconv.Itoa(len(f.args))
}

// boutiqueOf returns the boutique owning row id of table, or a NotFoundError naming entity.
// table is always a package constant, never caller input.
func boutiqueOf(ctx context.Context, q pgxQuerier, table, entity string, id int) (int, error) {
	var boutiqueID int
	err := q.QueryRow(ctx, "SELECT boutique_id FROM "+table+" WHERE id = $1", id).Scan(&boutiqueID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, notFound(entity, id)
		}
		return 0, fmt.Errorf("resolve %s %d: %w", table, id, err)
	}
	return boutiqueID, nil
}

// authorizeRow resolves the owner of a row and applies AssertTenantAccess.
func authorizeRow(ctx context.Context, q pgxQuerier, p Principal, table, entity string, id int) (int, error) {
	boutiqueID, err := boutiqueOf(ctx, q, table, entity, id)
	if err != nil {
		return 0, err
	}
	if err := AssertTenantAccess(p, boutiqueID); err != nil {
		return 0, err
	}
	return boutiqueID, nil
}
