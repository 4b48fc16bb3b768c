package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type supplierService struct {
	pool *pgxpool.Pool
}

// NewSupplierService constructs a SupplierService backed by PostgreSQL.
func NewSupplierService(pool *pgxpool.Pool) SupplierService {
	return &supplierService{pool: pool}
}

const supplierColumns = `
	v.id, v.boutique_id, v.name, v.contact_person, v.phone, v.email, v.address,
	(SELECT COUNT(*) FROM purchase_orders po WHERE po.supplier_id = v.id),
	v.created_at, v.updated_at`

func scanSupplier(row pgx.Row) (*Supplier, error) {
	v := &Supplier{}
	err := row.Scan(
		&v.ID, &v.BoutiqueID, &v.Name, &v.ContactPerson, &v.Phone, &v.Email, &v.Address,
		&v.OrderCount, &v.CreatedAt, &v.UpdatedAt,
	)
	return v, err
}

// ListSuppliers returns the boutique's suppliers ordered by name.
func (s *supplierService) ListSuppliers(ctx context.Context, p Principal, boutiqueID int, search string) ([]Supplier, error) {
	if err := AssertTenantAccess(p, boutiqueID); err != nil {
		return nil, err
	}
	f := &filterBuilder{}
	f.add("v.boutique_id = ?", boutiqueID)
	if search = strings.TrimSpace(search); search != "" {
		f.add("(v.name ILIKE ? OR v.contact_person ILIKE ?)", "%"+search+"%")
	}

	rows, err := s.pool.Query(ctx, "SELECT "+supplierColumns+" FROM suppliers v"+f.where()+" ORDER BY v.name", f.args...)
	if err != nil {
		return nil, fmt.Errorf("get suppliers: %w", err)
	}
	defer rows.Close()

	var suppliers []Supplier
	for rows.Next() {
		v, err := scanSupplier(rows)
		if err != nil {
			return nil, fmt.Errorf("scan supplier: %w", err)
		}
		suppliers = append(suppliers, *v)
	}
	return suppliers, rows.Err()
}

// GetSupplier returns a supplier by id, scoped to the caller's boutique.
func (s *supplierService) GetSupplier(ctx context.Context, p Principal, supplierID int) (*Supplier, error) {
	v, err := scanSupplier(s.pool.QueryRow(ctx, "SELECT "+supplierColumns+" FROM suppliers v WHERE v.id = $1", supplierID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("fournisseur", supplierID)
		}
		return nil, fmt.Errorf("get supplier %d: %w", supplierID, err)
	}
	if err := AssertTenantAccess(p, v.BoutiqueID); err != nil {
		return nil, err
	}
	return v, nil
}

// CreateSupplier inserts a new supplier record for the given boutique.
func (s *supplierService) CreateSupplier(ctx context.Context, p Principal, boutiqueID int, in SupplierInput) (*Supplier, error) {
	if err := AssertTenantAccess(p, boutiqueID); err != nil {
		return nil, err
	}
	if err := validatePartner(in.Name, in.Email); err != nil {
		return nil, err
	}

	var id int
	if err := s.pool.QueryRow(ctx, `
		INSERT INTO suppliers (boutique_id, name, contact_person, phone, email, address)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		boutiqueID, strings.TrimSpace(in.Name), toPtr(in.ContactPerson),
		toPtr(in.Phone), toPtr(in.Email), toPtr(in.Address),
	).Scan(&id); err != nil {
		return nil, fmt.Errorf("create supplier %q: %w", in.Name, err)
	}
	return s.GetSupplier(ctx, p, id)
}

func (s *supplierService) UpdateSupplier(ctx context.Context, p Principal, supplierID int, in SupplierInput) (*Supplier, error) {
	if _, err := authorizeRow(ctx, s.pool, p, "suppliers", "fournisseur", supplierID); err != nil {
		return nil, err
	}
	if err := validatePartner(in.Name, in.Email); err != nil {
		return nil, err
	}

	if _, err := s.pool.Exec(ctx, `
		UPDATE suppliers
		SET name = $1, contact_person = $2, phone = $3, email = $4, address = $5, updated_at = NOW()
		WHERE id = $6`,
		strings.TrimSpace(in.Name), toPtr(in.ContactPerson), toPtr(in.Phone),
		toPtr(in.Email), toPtr(in.Address), supplierID,
	); err != nil {
		return nil, fmt.Errorf("update supplier %d: %w", supplierID, err)
	}
	return s.GetSupplier(ctx, p, supplierID)
}

func (s *supplierService) DeleteSupplier(ctx context.Context, p Principal, supplierID int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := authorizeRow(ctx, tx, p, "suppliers", "fournisseur", supplierID); err != nil {
		return err
	}

	var orders int
	if err := tx.QueryRow(ctx, "SELECT COUNT(*) FROM purchase_orders WHERE supplier_id = $1", supplierID).Scan(&orders); err != nil {
		return fmt.Errorf("count supplier orders: %w", err)
	}
	if orders > 0 {
		return conflict("impossible de supprimer le fournisseur : %d commande(s) lui sont associées", orders)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM suppliers WHERE id = $1", supplierID); err != nil {
		return fmt.Errorf("delete supplier %d: %w", supplierID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit supplier deletion: %w", err)
	}
	return nil
}
