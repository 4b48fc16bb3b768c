package core

import (
	"context"
	"strings"
	"time"
)

// User is an account that can sign in. A GESTIONNAIRE is always attached to a boutique.
type User struct {
	ID           int       `json:"id"`
	BoutiqueID   *int      `json:"boutique_id,omitempty"`
	Username     string    `json:"username"`
	FullName     string    `json:"full_name"`
	Email        *string   `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Principal returns the identity core operations run under for u.
func (u *User) Principal() Principal {
	return Principal{UserID: u.ID, Role: u.Role, BoutiqueID: u.BoutiqueID}
}

// UserInput holds the editable fields of a user. An empty Password keeps the current one on update.
type UserInput struct {
	BoutiqueID *int
	Username   string
	FullName   string
	Email      string
	Password   string
	Role       Role
	IsActive   bool
}

const minPasswordLength = 8

func (in UserInput) validate(creating bool) error {
	v := &ValidationError{}
	if strings.TrimSpace(in.Username) == "" {
		v.Add("username", "l'identifiant est obligatoire")
	}
	if !in.Role.Valid() {
		v.Add("role", "rôle invalide (ADMIN ou GESTIONNAIRE)")
	}
	if in.Role == RoleGestionnaire && in.BoutiqueID == nil {
		v.Add("boutique_id", "un gestionnaire doit être rattaché à une boutique")
	}
	if creating || in.Password != "" {
		if len(in.Password) < minPasswordLength {
			v.Add("password", "le mot de passe doit contenir au moins 8 caractères")
		}
	}
	if e := strings.TrimSpace(in.Email); e != "" && !strings.Contains(e, "@") {
		v.Add("email", "adresse e-mail invalide")
	}
	return v.Err()
}

// UserService manages accounts. Every operation except Authenticate and GetByID is ADMIN only.
type UserService interface {
	// Authenticate checks credentials against the stored bcrypt hash.
	// Unknown users, inactive users and wrong passwords all yield the same AuthorizationError.
	Authenticate(ctx context.Context, username, password string) (*User, error)

	GetByID(ctx context.Context, userID int) (*User, error)

	ListUsers(ctx context.Context, p Principal, boutiqueID *int) ([]User, error)
	CreateUser(ctx context.Context, p Principal, in UserInput) (*User, error)
	UpdateUser(ctx context.Context, p Principal, userID int, in UserInput) (*User, error)
	DeleteUser(ctx context.Context, p Principal, userID int) error
}
