package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type clientService struct {
	pool *pgxpool.Pool
}

// NewClientService constructs a ClientService backed by PostgreSQL.
func NewClientService(pool *pgxpool.Pool) ClientService {
	return &clientService{pool: pool}
}

const clientColumns = `
	c.id, c.boutique_id, c.name, c.phone, c.email, c.address,
	(SELECT COUNT(*) FROM sales s WHERE s.client_id = c.id),
	c.created_at, c.updated_at`

func scanClient(row pgx.Row) (*Client, error) {
	c := &Client{}
	err := row.Scan(&c.ID, &c.BoutiqueID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.SaleCount, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (s *clientService) ListClients(ctx context.Context, p Principal, boutiqueID int, search string) ([]Client, error) {
	if err := AssertTenantAccess(p, boutiqueID); err != nil {
		return nil, err
	}
	f := &filterBuilder{}
	f.add("c.boutique_id = ?", boutiqueID)
	if search = strings.TrimSpace(search); search != "" {
		f.add("(c.name ILIKE ? OR c.phone ILIKE ?)", "%"+search+"%")
	}

	rows, err := s.pool.Query(ctx, "SELECT "+clientColumns+" FROM clients c"+f.where()+" ORDER BY c.name", f.args...)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var clients []Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		clients = append(clients, *c)
	}
	return clients, rows.Err()
}

func (s *clientService) GetClient(ctx context.Context, p Principal, clientID int) (*Client, error) {
	c, err := scanClient(s.pool.QueryRow(ctx, "SELECT "+clientColumns+" FROM clients c WHERE c.id = $1", clientID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("client", clientID)
		}
		return nil, fmt.Errorf("get client %d: %w", clientID, err)
	}
	if err := AssertTenantAccess(p, c.BoutiqueID); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *clientService) CreateClient(ctx context.Context, p Principal, boutiqueID int, in ClientInput) (*Client, error) {
	if err := AssertTenantAccess(p, boutiqueID); err != nil {
		return nil, err
	}
	if err := validatePartner(in.Name, in.Email); err != nil {
		return nil, err
	}

	var id int
	if err := s.pool.QueryRow(ctx, `
		INSERT INTO clients (boutique_id, name, phone, email, address)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		boutiqueID, strings.TrimSpace(in.Name), toPtr(in.Phone), toPtr(in.Email), toPtr(in.Address),
	).Scan(&id); err != nil {
		return nil, fmt.Errorf("create client %q: %w", in.Name, err)
	}
	return s.GetClient(ctx, p, id)
}

func (s *clientService) UpdateClient(ctx context.Context, p Principal, clientID int, in ClientInput) (*Client, error) {
	if _, err := authorizeRow(ctx, s.pool, p, "clients", "client", clientID); err != nil {
		return nil, err
	}
	if err := validatePartner(in.Name, in.Email); err != nil {
		return nil, err
	}

	if _, err := s.pool.Exec(ctx, `
		UPDATE clients SET name = $1, phone = $2, email = $3, address = $4, updated_at = NOW()
		WHERE id = $5`,
		strings.TrimSpace(in.Name), toPtr(in.Phone), toPtr(in.Email), toPtr(in.Address), clientID,
	); err != nil {
		return nil, fmt.Errorf("update client %d: %w", clientID, err)
	}
	return s.GetClient(ctx, p, clientID)
}

func (s *clientService) DeleteClient(ctx context.Context, p Principal, clientID int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := authorizeRow(ctx, tx, p, "clients", "client", clientID); err != nil {
		return err
	}

	var sales int
	if err := tx.QueryRow(ctx, "SELECT COUNT(*) FROM sales WHERE client_id = $1", clientID).Scan(&sales); err != nil {
		return fmt.Errorf("count client sales: %w", err)
	}
	if sales > 0 {
		return conflict("impossible de supprimer le client : %d vente(s) lui sont associées", sales)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM clients WHERE id = $1", clientID); err != nil {
		return fmt.Errorf("delete client %d: %w", clientID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit client deletion: %w", err)
	}
	return nil
}
