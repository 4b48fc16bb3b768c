package core

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Category groups products within a boutique. Names are unique per boutique.
type Category struct {
	ID           int       `json:"id"`
	BoutiqueID   int       `json:"boutique_id"`
	Name         string    `json:"name"`
	Description  *string   `json:"description,omitempty"`
	ProductCount int       `json:"product_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CategoryInput holds the editable fields of a category.
type CategoryInput struct {
	Name        string
	Description string
}

func (in CategoryInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return invalid("name", "le nom est obligatoire")
	}
	return nil
}

// Product is a sellable item. Quantity is read from its stock row.
type Product struct {
	ID             int             `json:"id"`
	BoutiqueID     int             `json:"boutique_id"`
	CategoryID     int             `json:"category_id"`
	CategoryName   string          `json:"category_name"`
	Name           string          `json:"name"`
	Description    *string         `json:"description,omitempty"`
	PurchasePrice  decimal.Decimal `json:"purchase_price"`
	SalePrice      decimal.Decimal `json:"sale_price"`
	AlertThreshold int             `json:"alert_threshold"`
	Quantity       int             `json:"quantity"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ProductInput holds the editable fields of a product.
// InitialQuantity is only honoured on creation and is booked as an IN movement.
type ProductInput struct {
	CategoryID      int
	Name            string
	Description     string
	PurchasePrice   decimal.Decimal
	SalePrice       decimal.Decimal
	AlertThreshold  int
	InitialQuantity int
}

func (in ProductInput) validate() error {
	v := &ValidationError{}
	if strings.TrimSpace(in.Name) == "" {
		v.Add("name", "le nom est obligatoire")
	}
	if in.CategoryID <= 0 {
		v.Add("category_id", "la catégorie est obligatoire")
	}
	if !in.PurchasePrice.IsPositive() {
		v.Add("purchase_price", "le prix d'achat doit être strictement positif")
	}
	if !in.SalePrice.IsPositive() {
		v.Add("sale_price", "le prix de vente doit être strictement positif")
	}
	v.Money("purchase_price", in.PurchasePrice)
	v.Money("sale_price", in.SalePrice)
	if in.AlertThreshold < 0 {
		v.Add("alert_threshold", "le seuil d'alerte ne peut pas être négatif")
	}
	if in.InitialQuantity < 0 {
		v.Add("initial_quantity", "la quantité initiale ne peut pas être négative")
	}
	return v.Err()
}

// ProductFilter narrows ListProducts.
type ProductFilter struct {
	CategoryID *int
	Search     string // case-insensitive substring of the name
}

// CatalogService manages categories and products.
type CatalogService interface {
	ListCategories(ctx context.Context, p Principal, boutiqueID int) ([]Category, error)
	CreateCategory(ctx context.Context, p Principal, boutiqueID int, in CategoryInput) (*Category, error)
	UpdateCategory(ctx context.Context, p Principal, categoryID int, in CategoryInput) (*Category, error)
	// DeleteCategory is refused with ConflictError while products reference the category.
	DeleteCategory(ctx context.Context, p Principal, categoryID int) error

	ListProducts(ctx context.Context, p Principal, boutiqueID int, filter ProductFilter) ([]Product, error)
	GetProduct(ctx context.Context, p Principal, productID int) (*Product, error)
	// CreateProduct inserts the product and its stock row in one transaction.
	CreateProduct(ctx context.Context, p Principal, boutiqueID int, in ProductInput) (*Product, error)
	UpdateProduct(ctx context.Context, p Principal, productID int, in ProductInput) (*Product, error)
	// DeleteProduct cascades to the stock row and its movements, but is refused
	// with ConflictError while sale lines or purchase order lines reference it.
	DeleteProduct(ctx context.Context, p Principal, productID int) error
}
