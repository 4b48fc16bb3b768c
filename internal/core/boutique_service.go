package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BoutiqueService administers tenants. Reads are open to the boutique's own manager;
// writes are ADMIN only.
type BoutiqueService interface {
	ListBoutiques(ctx context.Context, p Principal) ([]Boutique, error)
	GetBoutique(ctx context.Context, p Principal, boutiqueID int) (*Boutique, error)
	CreateBoutique(ctx context.Context, p Principal, in BoutiqueInput) (*Boutique, error)
	UpdateBoutique(ctx context.Context, p Principal, boutiqueID int, in BoutiqueInput) (*Boutique, error)
	// DeleteBoutique refuses while any row still belongs to the boutique.
	DeleteBoutique(ctx context.Context, p Principal, boutiqueID int) error
}

type boutiqueService struct {
	pool *pgxpool.Pool
}

func NewBoutiqueService(pool *pgxpool.Pool) BoutiqueService {
	return &boutiqueService{pool: pool}
}

const boutiqueColumns = `id, name, address, phone, created_at, updated_at`

func scanBoutique(row pgx.Row) (*Boutique, error) {
	b := &Boutique{}
	err := row.Scan(&b.ID, &b.Name, &b.Address, &b.Phone, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func (in BoutiqueInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return invalid("name", "le nom est obligatoire")
	}
	return nil
}

func (s *boutiqueService) ListBoutiques(ctx context.Context, p Principal) ([]Boutique, error) {
	f := &filterBuilder{}
	if !p.IsAdmin() {
		if p.BoutiqueID == nil {
			return nil, &AuthorizationError{Reason: "aucune boutique associée à cet utilisateur"}
		}
		f.add("id = ?", *p.BoutiqueID)
	}
	rows, err := s.pool.Query(ctx, "SELECT "+boutiqueColumns+" FROM boutiques"+f.where()+" ORDER BY name", f.args...)
	if err != nil {
		return nil, fmt.Errorf("list boutiques: %w", err)
	}
	defer rows.Close()

	var boutiques []Boutique
	for rows.Next() {
		b, err := scanBoutique(rows)
		if err != nil {
			return nil, fmt.Errorf("scan boutique: %w", err)
		}
		boutiques = append(boutiques, *b)
	}
	return boutiques, rows.Err()
}

func (s *boutiqueService) GetBoutique(ctx context.Context, p Principal, boutiqueID int) (*Boutique, error) {
	b, err := scanBoutique(s.pool.QueryRow(ctx, "SELECT "+boutiqueColumns+" FROM boutiques WHERE id = $1", boutiqueID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("boutique", boutiqueID)
		}
		return nil, fmt.Errorf("get boutique %d: %w", boutiqueID, err)
	}
	if err := AssertTenantAccess(p, b.ID); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *boutiqueService) CreateBoutique(ctx context.Context, p Principal, in BoutiqueInput) (*Boutique, error) {
	if err := RequireAdmin(p); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	b, err := scanBoutique(s.pool.QueryRow(ctx, `
		INSERT INTO boutiques (name, address, phone) VALUES ($1, $2, $3)
		RETURNING `+boutiqueColumns,
		name, toPtr(in.Address), toPtr(in.Phone),
	))
	if err != nil {
		return nil, uniqueOr(err, "insert boutique", "boutique", "nom", name)
	}
	return b, nil
}

func (s *boutiqueService) UpdateBoutique(ctx context.Context, p Principal, boutiqueID int, in BoutiqueInput) (*Boutique, error) {
	if err := RequireAdmin(p); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	b, err := scanBoutique(s.pool.QueryRow(ctx, `
		UPDATE boutiques SET name = $1, address = $2, phone = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING `+boutiqueColumns,
		name, toPtr(in.Address), toPtr(in.Phone), boutiqueID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("boutique", boutiqueID)
		}
		return nil, uniqueOr(err, "update boutique", "boutique", "nom", name)
	}
	return b, nil
}

func (s *boutiqueService) DeleteBoutique(ctx context.Context, p Principal, boutiqueID int) error {
	if err := RequireAdmin(p); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.QueryRow(ctx, "SELECT id FROM boutiques WHERE id = $1 FOR UPDATE", boutiqueID).Scan(new(int)); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return notFound("boutique", boutiqueID)
		}
		return fmt.Errorf("lock boutique %d: %w", boutiqueID, err)
	}

	var used bool
	if err := tx.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM products        WHERE boutique_id = $1)
		    OR EXISTS(SELECT 1 FROM sales           WHERE boutique_id = $1)
		    OR EXISTS(SELECT 1 FROM purchase_orders WHERE boutique_id = $1)
		    OR EXISTS(SELECT 1 FROM users           WHERE boutique_id = $1)
		    OR EXISTS(SELECT 1 FROM transactions    WHERE boutique_id = $1)`,
		boutiqueID,
	).Scan(&used); err != nil {
		return fmt.Errorf("check boutique usage: %w", err)
	}
	if used {
		return conflict("la boutique contient encore des données ; supprimez-les d'abord")
	}

	for _, stmt := range []string{
		"DELETE FROM document_sequences WHERE boutique_id = $1",
		"DELETE FROM categories WHERE boutique_id = $1",
		"DELETE FROM clients WHERE boutique_id = $1",
		"DELETE FROM suppliers WHERE boutique_id = $1",
		"DELETE FROM boutiques WHERE id = $1",
	} {
		if _, err := tx.Exec(ctx, stmt, boutiqueID); err != nil {
			return fmt.Errorf("delete boutique %d: %w", boutiqueID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit boutique deletion: %w", err)
	}
	return nil
}
