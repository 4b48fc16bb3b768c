package core

import "fmt"

// Role is the coarse permission level of a user.
type Role string

const (
	RoleAdmin        Role = "ADMIN"
	RoleGestionnaire Role = "GESTIONNAIRE"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleGestionnaire
}

// Principal is the authenticated caller of every core operation.
// BoutiqueID is nil for an ADMIN not attached to a boutique.
// Scope is set when the caller addresses one boutique explicitly; rows of any
// other boutique are then reported as absent, whatever the role.
type Principal struct {
	UserID     int
	Role       Role
	BoutiqueID *int
	Scope      *int
}

// Within returns p restricted to boutiqueID.
func (p Principal) Within(boutiqueID int) Principal {
	p.Scope = &boutiqueID
	return p
}

// IsAdmin reports whether the principal may act across boutiques.
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// AssertTenantAccess is the single tenant check applied by every core entry point.
// ADMIN may act on any boutique; GESTIONNAIRE only on their own.
func AssertTenantAccess(p Principal, resourceBoutiqueID int) error {
	switch p.Role {
	case RoleAdmin:
	case RoleGestionnaire:
		if p.BoutiqueID == nil || *p.BoutiqueID != resourceBoutiqueID {
			return &AuthorizationError{Reason: "cette ressource appartient à une autre boutique"}
		}
	default:
		return &AuthorizationError{Reason: "rôle inconnu"}
	}
	if p.Scope != nil && *p.Scope != resourceBoutiqueID {
		return &NotFoundError{Entity: "ressource", Key: fmt.Sprintf("dans la boutique %d", *p.Scope)}
	}
	return nil
}

// ResolveBoutique returns the boutique an operation should target.
// A GESTIONNAIRE is pinned to their boutique; an ADMIN names one explicitly
// or falls back to the boutique attached to their account.
func ResolveBoutique(p Principal, requested *int) (int, error) {
	switch p.Role {
	case RoleGestionnaire:
		if p.BoutiqueID == nil {
			return 0, &AuthorizationError{Reason: "aucune boutique associée à cet utilisateur"}
		}
		if requested != nil && *requested != *p.BoutiqueID {
			return 0, &AuthorizationError{Reason: "cette ressource appartient à une autre boutique"}
		}
		return *p.BoutiqueID, nil
	case RoleAdmin:
		if requested != nil {
			return *requested, nil
		}
		if p.BoutiqueID != nil {
			return *p.BoutiqueID, nil
		}
		return 0, invalid("boutique_id", "la boutique cible est obligatoire pour un administrateur")
	default:
		return 0, &AuthorizationError{Reason: "rôle inconnu"}
	}
}

// RequireAdmin guards administration operations (boutiques, users).
func RequireAdmin(p Principal) error {
	if !p.IsAdmin() {
		return &AuthorizationError{Reason: "réservé aux administrateurs"}
	}
	return nil
}
