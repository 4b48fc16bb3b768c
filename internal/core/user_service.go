package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

type userService struct {
	pool *pgxpool.Pool
}

// NewUserService constructs a UserService backed by PostgreSQL.
func NewUserService(pool *pgxpool.Pool) UserService {
	return &userService{pool: pool}
}

const userColumns = `id, boutique_id, username, full_name, email, password_hash, role, is_active, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	u := &User{}
	err := row.Scan(&u.ID, &u.BoutiqueID, &u.Username, &u.FullName, &u.Email, &u.PasswordHash,
		&u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

var errBadCredentials = &AuthorizationError{Reason: "identifiant ou mot de passe incorrect"}

func (s *userService) Authenticate(ctx context.Context, username, password string) (*User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = $1 AND is_active = true",
		strings.TrimSpace(username)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errBadCredentials
		}
		return nil, fmt.Errorf("lookup user %q: %w", username, err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, errBadCredentials
	}
	return u, nil
}

func (s *userService) GetByID(ctx context.Context, userID int) (*User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("utilisateur", userID)
		}
		return nil, fmt.Errorf("get user %d: %w", userID, err)
	}
	return u, nil
}

func (s *userService) ListUsers(ctx context.Context, p Principal, boutiqueID *int) ([]User, error) {
	if err := RequireAdmin(p); err != nil {
		return nil, err
	}
	f := &filterBuilder{}
	if boutiqueID != nil {
		f.add("boutique_id = ?", *boutiqueID)
	}
	rows, err := s.pool.Query(ctx, "SELECT "+userColumns+" FROM users"+f.where()+" ORDER BY username", f.args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// HashPassword returns the bcrypt hash stored for password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (s *userService) checkBoutique(ctx context.Context, boutiqueID *int) error {
	if boutiqueID == nil {
		return nil
	}
	var exists bool
	if err := s.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM boutiques WHERE id = $1)", *boutiqueID).Scan(&exists); err != nil {
		return fmt.Errorf("check boutique %d: %w", *boutiqueID, err)
	}
	if !exists {
		return notFound("boutique", *boutiqueID)
	}
	return nil
}

func (s *userService) CreateUser(ctx context.Context, p Principal, in UserInput) (*User, error) {
	if err := RequireAdmin(p); err != nil {
		return nil, err
	}
	if err := in.validate(true); err != nil {
		return nil, err
	}
	if err := s.checkBoutique(ctx, in.BoutiqueID); err != nil {
		return nil, err
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	username := strings.TrimSpace(in.Username)
	u, err := scanUser(s.pool.QueryRow(ctx, `
		INSERT INTO users (boutique_id, username, full_name, email, password_hash, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, true)
		RETURNING `+userColumns,
		in.BoutiqueID, username, strings.TrimSpace(in.FullName), toPtr(in.Email), hash, string(in.Role),
	))
	if err != nil {
		return nil, uniqueOr(err, "insert user", "utilisateur", "identifiant", username)
	}
	return u, nil
}

func (s *userService) UpdateUser(ctx context.Context, p Principal, userID int, in UserInput) (*User, error) {
	if err := RequireAdmin(p); err != nil {
		return nil, err
	}
	if err := in.validate(false); err != nil {
		return nil, err
	}
	if userID == p.UserID && (!in.IsActive || in.Role != RoleAdmin) {
		return nil, conflict("un administrateur ne peut pas se désactiver ni se rétrograder lui-même")
	}
	if err := s.checkBoutique(ctx, in.BoutiqueID); err != nil {
		return nil, err
	}

	var hash *string
	if in.Password != "" {
		h, err := HashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		hash = &h
	}
	username := strings.TrimSpace(in.Username)
	u, err := scanUser(s.pool.QueryRow(ctx, `
		UPDATE users
		SET boutique_id = $1, username = $2, full_name = $3, email = $4,
		    password_hash = COALESCE($5, password_hash), role = $6, is_active = $7, updated_at = NOW()
		WHERE id = $8
		RETURNING `+userColumns,
		in.BoutiqueID, username, strings.TrimSpace(in.FullName), toPtr(in.Email), hash,
		string(in.Role), in.IsActive, userID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("utilisateur", userID)
		}
		return nil, uniqueOr(err, "update user", "utilisateur", "identifiant", username)
	}
	return u, nil
}

func (s *userService) DeleteUser(ctx context.Context, p Principal, userID int) error {
	if err := RequireAdmin(p); err != nil {
		return err
	}
	if userID == p.UserID {
		return conflict("un administrateur ne peut pas supprimer son propre compte")
	}
	var sales int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM sales WHERE user_id = $1", userID).Scan(&sales); err != nil {
		return fmt.Errorf("count user sales: %w", err)
	}
	if sales > 0 {
		return conflict("cet utilisateur a enregistré %d vente(s) : désactivez-le plutôt", sales)
	}
	tag, err := s.pool.Exec(ctx, "DELETE FROM users WHERE id = $1", userID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return conflict("cet utilisateur est référencé par des opérations : désactivez-le plutôt")
		}
		return fmt.Errorf("delete user %d: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("utilisateur", userID)
	}
	return nil
}
