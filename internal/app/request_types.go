package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/Drasasse/gestion-commerce-sub001/internal/core"

	"github.com/shopspring/decimal"
)

// Request types are what adapters decode from JSON bodies or CLI flags.
// Money travels as a decimal string and dates as YYYY-MM-DD; both are parsed
// here so that core only ever sees typed inputs.

const dateLayout = "2006-01-02"

// fieldParser collects parse failures into a single core.ValidationError.
type fieldParser struct {
	v core.ValidationError
}

func (f *fieldParser) amount(field, s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		f.v.Add(field, "montant invalide : "+s)
		return decimal.Zero
	}
	if !core.ValidMoney(d) {
		f.v.Add(field, "montant invalide : au plus 2 décimales ("+s+")")
		return decimal.Zero
	}
	return d
}

func (f *fieldParser) optionalAmount(field, s string) *decimal.Decimal {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	d := f.amount(field, s)
	return &d
}

func (f *fieldParser) date(field, s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		f.v.Add(field, "date invalide (attendu AAAA-MM-JJ) : "+s)
		return nil
	}
	return &t
}

// period parses an inclusive [from, to] day range into a half-open DateRange.
func (f *fieldParser) period(from, to string) core.DateRange {
	r := core.DateRange{From: f.date("from", from), To: f.date("to", to)}
	if r.To != nil {
		end := r.To.AddDate(0, 0, 1)
		r.To = &end
	}
	return r
}

func (f *fieldParser) err() error { return f.v.Err() }

// ── Master data ─────────────────────────────────────────────────────────────

// BoutiqueRequest creates or updates a boutique.
type BoutiqueRequest struct {
	Name    string `json:"name" jsonschema:"required,minLength=1" jsonschema_description:"Nom unique de la boutique"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

func (r BoutiqueRequest) toInput() core.BoutiqueInput {
	return core.BoutiqueInput{Name: r.Name, Address: r.Address, Phone: r.Phone}
}

// UserRequest creates or updates a user. Password may be empty on update.
type UserRequest struct {
	BoutiqueID *int   `json:"boutique_id,omitempty" jsonschema_description:"Obligatoire pour un GESTIONNAIRE"`
	Username   string `json:"username" jsonschema:"required,minLength=1"`
	FullName   string `json:"full_name,omitempty"`
	Email      string `json:"email,omitempty"`
	Password   string `json:"password,omitempty" jsonschema:"minLength=8"`
	Role       string `json:"role" jsonschema:"required,enum=ADMIN,enum=GESTIONNAIRE"`
	IsActive   *bool  `json:"is_active,omitempty" jsonschema_description:"Vrai par défaut"`
}

func (r UserRequest) toInput() core.UserInput {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return core.UserInput{
		BoutiqueID: r.BoutiqueID,
		Username:   r.Username,
		FullName:   r.FullName,
		Email:      r.Email,
		Password:   r.Password,
		Role:       core.Role(strings.ToUpper(strings.TrimSpace(r.Role))),
		IsActive:   active,
	}
}

// CategoryRequest creates or updates a category.
type CategoryRequest struct {
	Name        string `json:"name" jsonschema:"required,minLength=1"`
	Description string `json:"description,omitempty"`
}

func (r CategoryRequest) toInput() core.CategoryInput {
	return core.CategoryInput{Name: r.Name, Description: r.Description}
}

// ProductRequest creates or updates a product. InitialQuantity is only read on creation.
type ProductRequest struct {
	CategoryID      int    `json:"category_id" jsonschema:"required"`
	Name            string `json:"name" jsonschema:"required,minLength=1"`
	Description     string `json:"description,omitempty"`
	PurchasePrice   string `json:"purchase_price" jsonschema:"required" jsonschema_description:"Prix d'achat, montant décimal positif en chaîne"`
	SalePrice       string `json:"sale_price" jsonschema:"required" jsonschema_description:"Prix de vente, montant décimal positif en chaîne"`
	AlertThreshold  int    `json:"alert_threshold,omitempty" jsonschema:"minimum=0"`
	InitialQuantity int    `json:"initial_quantity,omitempty" jsonschema:"minimum=0"`
}

func (r ProductRequest) toInput() (core.ProductInput, error) {
	var f fieldParser
	in := core.ProductInput{
		CategoryID:      r.CategoryID,
		Name:            r.Name,
		Description:     r.Description,
		PurchasePrice:   f.amount("purchase_price", r.PurchasePrice),
		SalePrice:       f.amount("sale_price", r.SalePrice),
		AlertThreshold:  r.AlertThreshold,
		InitialQuantity: r.InitialQuantity,
	}
	return in, f.err()
}

// PartnerRequest creates or updates a client or a supplier.
type PartnerRequest struct {
	Name          string `json:"name" jsonschema:"required,minLength=1"`
	ContactPerson string `json:"contact_person,omitempty" jsonschema_description:"Fournisseurs uniquement"`
	Phone         string `json:"phone,omitempty"`
	Email         string `json:"email,omitempty"`
	Address       string `json:"address,omitempty"`
}

func (r PartnerRequest) clientInput() core.ClientInput {
	return core.ClientInput{Name: r.Name, Phone: r.Phone, Email: r.Email, Address: r.Address}
}

func (r PartnerRequest) supplierInput() core.SupplierInput {
	return core.SupplierInput{
		Name: r.Name, ContactPerson: r.ContactPerson, Phone: r.Phone, Email: r.Email, Address: r.Address,
	}
}

// ── Stock ───────────────────────────────────────────────────────────────────

// AdjustStockRequest is a manual inventory correction.
type AdjustStockRequest struct {
	Kind     string `json:"kind" jsonschema:"required,enum=IN,enum=OUT"`
	Quantity int    `json:"quantity" jsonschema:"required,minimum=1"`
	Reason   string `json:"reason" jsonschema:"required,minLength=1"`
}

// MovementQuery narrows the movement journal.
type MovementQuery struct {
	ProductID *int
	Kind      string
	From, To  string
	Limit     int
	Offset    int
}

func (q MovementQuery) toFilter() (core.MovementFilter, error) {
	var f fieldParser
	filter := core.MovementFilter{
		ProductID: q.ProductID,
		DateRange: f.period(q.From, q.To),
		Page:      core.Page{Limit: q.Limit, Offset: q.Offset},
	}
	if q.Kind != "" {
		k := core.MovementKind(strings.ToUpper(q.Kind))
		if !k.Valid() {
			f.v.Add("kind", "type de mouvement invalide : IN ou OUT")
		}
		filter.Kind = &k
	}
	return filter, f.err()
}

// ── Sales & payments ────────────────────────────────────────────────────────

// SaleLineRequest is one requested line of a sale.
type SaleLineRequest struct {
	ProductID int    `json:"product_id" jsonschema:"required"`
	Quantity  int    `json:"quantity" jsonschema:"required,minimum=1"`
	UnitPrice string `json:"unit_price,omitempty" jsonschema_description:"Vide pour le prix catalogue"`
}

// CreateSaleRequest is the input of a new sale.
type CreateSaleRequest struct {
	ClientID      *int              `json:"client_id,omitempty"`
	Lines         []SaleLineRequest `json:"lines" jsonschema:"required,minItems=1"`
	AmountPaid    string            `json:"amount_paid,omitempty" jsonschema_description:"Montant encaissé à la vente ; vide pour le total"`
	PaymentMethod string            `json:"payment_method,omitempty" jsonschema:"enum=ESPECES,enum=CARTE,enum=VIREMENT,enum=CHEQUE,enum=MOBILE_MONEY"`
	Notes         string            `json:"notes,omitempty"`
}

func (r CreateSaleRequest) toInput() (core.SaleInput, error) {
	var f fieldParser
	in := core.SaleInput{
		ClientID:      r.ClientID,
		AmountPaid:    f.optionalAmount("amount_paid", r.AmountPaid),
		PaymentMethod: core.PaymentMethod(strings.ToUpper(strings.TrimSpace(r.PaymentMethod))),
		Notes:         r.Notes,
	}
	for i, l := range r.Lines {
		in.Lines = append(in.Lines, core.SaleLineInput{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: f.amount(fmt.Sprintf("lines[%d].unit_price", i), l.UnitPrice),
		})
	}
	return in, f.err()
}

// UpdateSaleRequest changes sale header metadata only.
type UpdateSaleRequest struct {
	ClientID *int   `json:"client_id,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// SaleQuery narrows the sales list.
type SaleQuery struct {
	Status   string
	ClientID *int
	Number   string
	From, To string
	Limit    int
	Offset   int
}

func (q SaleQuery) toFilter() (core.SaleFilter, error) {
	var f fieldParser
	filter := core.SaleFilter{
		ClientID:  q.ClientID,
		Number:    q.Number,
		DateRange: f.period(q.From, q.To),
		Page:      core.Page{Limit: q.Limit, Offset: q.Offset},
	}
	if q.Status != "" {
		s := core.PaymentStatus(strings.ToUpper(q.Status))
		filter.Status = &s
	}
	return filter, f.err()
}

// PaymentRequest adds or edits a payment.
type PaymentRequest struct {
	Amount    string `json:"amount" jsonschema:"required" jsonschema_description:"Montant strictement positif en chaîne"`
	Method    string `json:"method,omitempty" jsonschema:"enum=ESPECES,enum=CARTE,enum=VIREMENT,enum=CHEQUE,enum=MOBILE_MONEY"`
	Reference string `json:"reference,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

func (r PaymentRequest) toInput() (core.PaymentInput, error) {
	var f fieldParser
	in := core.PaymentInput{
		Amount:    f.amount("amount", r.Amount),
		Method:    core.PaymentMethod(strings.ToUpper(strings.TrimSpace(r.Method))),
		Reference: r.Reference,
		Notes:     r.Notes,
	}
	return in, f.err()
}

// ── Purchase orders ─────────────────────────────────────────────────────────

// OrderLineRequest is one ordered product.
type OrderLineRequest struct {
	ProductID int    `json:"product_id" jsonschema:"required"`
	Quantity  int    `json:"quantity" jsonschema:"required,minimum=1"`
	UnitPrice string `json:"unit_price,omitempty" jsonschema_description:"Vide pour le prix d'achat du produit"`
}

// CreateOrderRequest is the input of a new purchase order.
type CreateOrderRequest struct {
	SupplierID int                `json:"supplier_id" jsonschema:"required"`
	DueDate    string             `json:"due_date,omitempty" jsonschema:"format=date"`
	Notes      string             `json:"notes,omitempty"`
	Lines      []OrderLineRequest `json:"lines" jsonschema:"required,minItems=1"`
}

func (r CreateOrderRequest) toInput() (core.OrderInput, error) {
	var f fieldParser
	in := core.OrderInput{
		SupplierID: r.SupplierID,
		DueDate:    f.date("due_date", r.DueDate),
		Notes:      r.Notes,
	}
	for i, l := range r.Lines {
		in.Lines = append(in.Lines, core.OrderLineInput{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: f.amount(fmt.Sprintf("lines[%d].unit_price", i), l.UnitPrice),
		})
	}
	return in, f.err()
}

// ReceivedLineRequest is the quantity received now for one order line.
type ReceivedLineRequest struct {
	OrderLineID      int `json:"order_line_id" jsonschema:"required"`
	QuantityReceived int `json:"quantity_received" jsonschema:"minimum=0" jsonschema_description:"Quantité reçue lors de cette réception (pas le cumul)"`
}

// ReceiveOrderRequest records a delivery against a purchase order.
type ReceiveOrderRequest struct {
	Lines           []ReceivedLineRequest `json:"lines,omitempty"`
	AmountPaid      string                `json:"amount_paid,omitempty" jsonschema_description:"Règlement fournisseur enregistré avec la réception"`
	CancelRemainder bool                  `json:"cancel_remainder,omitempty" jsonschema_description:"Clôture le reliquat non livré"`
}

func (r ReceiveOrderRequest) toInput() (core.ReceptionInput, error) {
	var f fieldParser
	in := core.ReceptionInput{
		AmountPaid:      f.amount("amount_paid", r.AmountPaid),
		CancelRemainder: r.CancelRemainder,
	}
	for _, l := range r.Lines {
		in.Lines = append(in.Lines, core.ReceivedLine{OrderLineID: l.OrderLineID, QuantityReceived: l.QuantityReceived})
	}
	return in, f.err()
}

// PayOrderRequest settles part of a purchase order.
type PayOrderRequest struct {
	Amount      string `json:"amount" jsonschema:"required"`
	Description string `json:"description,omitempty"`
}

// OrderQuery narrows the purchase order list.
type OrderQuery struct {
	Status     string
	SupplierID *int
	From, To   string
	Limit      int
	Offset     int
}

func (q OrderQuery) toFilter() (core.OrderFilter, error) {
	var f fieldParser
	filter := core.OrderFilter{
		SupplierID: q.SupplierID,
		DateRange:  f.period(q.From, q.To),
		Page:       core.Page{Limit: q.Limit, Offset: q.Offset},
	}
	if q.Status != "" {
		s := core.OrderStatus(strings.ToUpper(q.Status))
		if !s.Valid() {
			f.v.Add("status", "statut de commande invalide")
		}
		filter.Status = &s
	}
	return filter, f.err()
}

// ── Capital ledger ──────────────────────────────────────────────────────────

// TransactionRequest records or edits a manual ledger entry.
type TransactionRequest struct {
	Type        string `json:"type" jsonschema:"required,enum=REVENUE,enum=EXPENSE,enum=CAPITAL_INJECTION,enum=WITHDRAWAL"`
	Amount      string `json:"amount" jsonschema:"required"`
	Description string `json:"description" jsonschema:"required,minLength=1"`
	Date        string `json:"date,omitempty" jsonschema:"format=date" jsonschema_description:"Date de l'opération ; aujourd'hui par défaut"`
}

func (r TransactionRequest) toInput() (core.TransactionInput, error) {
	var f fieldParser
	in := core.TransactionInput{
		Type:        core.TransactionType(strings.ToUpper(strings.TrimSpace(r.Type))),
		Amount:      f.amount("amount", r.Amount),
		Description: r.Description,
		OccurredAt:  f.date("date", r.Date),
	}
	return in, f.err()
}

// TransactionQuery narrows the ledger listing.
type TransactionQuery struct {
	Type     string
	From, To string
	Limit    int
	Offset   int
}

func (q TransactionQuery) toFilter() (core.TransactionFilter, error) {
	var f fieldParser
	filter := core.TransactionFilter{
		DateRange: f.period(q.From, q.To),
		Page:      core.Page{Limit: q.Limit, Offset: q.Offset},
	}
	if q.Type != "" {
		t := core.TransactionType(strings.ToUpper(q.Type))
		if !t.Valid() {
			f.v.Add("type", "type de transaction invalide")
		}
		filter.Type = &t
	}
	return filter, f.err()
}
