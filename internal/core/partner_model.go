package core

import (
	"context"
	"strings"
	"time"
)

// Client is a customer of a boutique. Sales may reference a client or be anonymous.
type Client struct {
	ID         int       `json:"id"`
	BoutiqueID int       `json:"boutique_id"`
	Name       string    `json:"name"`
	Phone      *string   `json:"phone,omitempty"`
	Email      *string   `json:"email,omitempty"`
	Address    *string   `json:"address,omitempty"`
	SaleCount  int       `json:"sale_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ClientInput holds the editable fields of a client.
type ClientInput struct {
	Name    string
	Phone   string
	Email   string
	Address string
}

// Supplier provides goods through purchase orders.
type Supplier struct {
	ID            int       `json:"id"`
	BoutiqueID    int       `json:"boutique_id"`
	Name          string    `json:"name"`
	ContactPerson *string   `json:"contact_person,omitempty"`
	Phone         *string   `json:"phone,omitempty"`
	Email         *string   `json:"email,omitempty"`
	Address       *string   `json:"address,omitempty"`
	OrderCount    int       `json:"order_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SupplierInput holds the editable fields of a supplier.
type SupplierInput struct {
	Name          string
	ContactPerson string
	Phone         string
	Email         string
	Address       string
}

func validatePartner(name, email string) error {
	v := &ValidationError{}
	if strings.TrimSpace(name) == "" {
		v.Add("name", "le nom est obligatoire")
	}
	if e := strings.TrimSpace(email); e != "" && !strings.Contains(e, "@") {
		v.Add("email", "adresse e-mail invalide")
	}
	return v.Err()
}

// ClientService provides client master data operations.
type ClientService interface {
	ListClients(ctx context.Context, p Principal, boutiqueID int, search string) ([]Client, error)
	GetClient(ctx context.Context, p Principal, clientID int) (*Client, error)
	CreateClient(ctx context.Context, p Principal, boutiqueID int, in ClientInput) (*Client, error)
	UpdateClient(ctx context.Context, p Principal, clientID int, in ClientInput) (*Client, error)
	// DeleteClient is refused with ConflictError while sales reference the client.
	DeleteClient(ctx context.Context, p Principal, clientID int) error
}

// SupplierService provides supplier master data operations.
type SupplierService interface {
	ListSuppliers(ctx context.Context, p Principal, boutiqueID int, search string) ([]Supplier, error)
	GetSupplier(ctx context.Context, p Principal, supplierID int) (*Supplier, error)
	CreateSupplier(ctx context.Context, p Principal, boutiqueID int, in SupplierInput) (*Supplier, error)
	UpdateSupplier(ctx context.Context, p Principal, supplierID int, in SupplierInput) (*Supplier, error)
	// DeleteSupplier is refused with ConflictError while purchase orders reference the supplier.
	DeleteSupplier(ctx context.Context, p Principal, supplierID int) error
}
