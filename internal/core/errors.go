package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// Sentinels matched with errors.Is. Every typed domain error below unwraps to one of them.
var (
	ErrNotFound          = errors.New("ressource introuvable")
	ErrValidation        = errors.New("données invalides")
	ErrInsufficientStock = errors.New("stock insuffisant")
	ErrOverpayment       = errors.New("montant supérieur au reste à payer")
	ErrOverReceipt       = errors.New("quantité reçue supérieure à la quantité commandée")
	ErrDuplicate         = errors.New("doublon")
	ErrConflict          = errors.New("conflit")
	ErrUnauthorized      = errors.New("accès refusé")
)

// NotFoundError reports an entity that is absent or outside the caller's boutique.
type NotFoundError struct {
	Entity string // e.g. "produit", "vente"
	Key    any
}

func (e *NotFoundError) Error() string {
	if e.Key == nil {
		return fmt.Sprintf("%s introuvable", e.Entity)
	}
	return fmt.Sprintf("%s %v introuvable", e.Entity, e.Key)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func notFound(entity string, key any) error {
	return &NotFoundError{Entity: entity, Key: key}
}

// FieldIssue is a single input problem attached to a ValidationError.
type FieldIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every input problem found before any write.
type ValidationError struct {
	Issues []FieldIssue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return ErrValidation.Error()
	}
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		if is.Field == "" {
			parts = append(parts, is.Message)
			continue
		}
		parts = append(parts, is.Field+": "+is.Message)
	}
	return ErrValidation.Error() + " (" + strings.Join(parts, "; ") + ")"
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Add records an issue on field.
func (e *ValidationError) Add(field, message string) {
	e.Issues = append(e.Issues, FieldIssue{Field: field, Message: message})
}

// Err returns nil when no issues were recorded, otherwise the receiver.
func (e *ValidationError) Err() error {
	if e == nil || len(e.Issues) == 0 {
		return nil
	}
	return e
}

// Stored amounts are NUMERIC(15,2): two decimal places, thirteen integer digits.
var maxMoney = decimal.New(1, 13)

// ValidMoney reports whether d can be stored as an amount without rounding or overflow.
func ValidMoney(d decimal.Decimal) bool {
	return d.Equal(d.Round(2)) && d.Abs().LessThan(maxMoney)
}

// Money records an issue on field when d is not a storable amount.
func (e *ValidationError) Money(field string, d decimal.Decimal) {
	if !ValidMoney(d) {
		e.Add(field, "montant invalide : au plus 2 décimales et 13 chiffres avant la virgule")
	}
}

func invalid(field, message string) error {
	return &ValidationError{Issues: []FieldIssue{{Field: field, Message: message}}}
}

// InsufficientStockError is returned when an OUT movement would drive stock below zero.
type InsufficientStockError struct {
	Product   string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuffisant pour %s : disponible %d, demandé %d", e.Product, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// OverpaymentError is returned when a payment would exceed the outstanding balance.
type OverpaymentError struct {
	Remaining decimal.Decimal
	Attempted decimal.Decimal
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("le montant %s dépasse le reste à payer (%s)",
		e.Attempted.StringFixed(2), e.Remaining.StringFixed(2))
}

func (e *OverpaymentError) Unwrap() error { return ErrOverpayment }

// OverReceiptError is returned when a reception would exceed the ordered quantity of a line.
type OverReceiptError struct {
	Product         string
	Ordered         int
	AlreadyReceived int
	Attempted       int
}

func (e *OverReceiptError) Error() string {
	return fmt.Sprintf("réception impossible pour %s : %d commandé(s), %d déjà reçu(s), %d supplémentaire(s) demandé(s)",
		e.Product, e.Ordered, e.AlreadyReceived, e.Attempted)
}

func (e *OverReceiptError) Unwrap() error { return ErrOverReceipt }

// DuplicateError reports a unique-constraint violation.
type DuplicateError struct {
	Entity string
	Field  string
	Value  string
}

func (e *DuplicateError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("un(e) %s avec ce %s existe déjà", e.Entity, e.Field)
	}
	return fmt.Sprintf("un(e) %s avec le %s %q existe déjà", e.Entity, e.Field, e.Value)
}

func (e *DuplicateError) Unwrap() error { return ErrDuplicate }

// ConflictError reports an operation refused because of the resource's current state.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

func (e *ConflictError) Unwrap() error { return ErrConflict }

func conflict(format string, args ...any) error {
	return &ConflictError{Reason: fmt.Sprintf(format, args...)}
}

// AuthorizationError reports a principal acting outside its role or boutique.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	if e.Reason == "" {
		return ErrUnauthorized.Error()
	}
	return ErrUnauthorized.Error() + " : " + e.Reason
}

func (e *AuthorizationError) Unwrap() error { return ErrUnauthorized }

// IsDomainError reports whether err belongs to the domain taxonomy.
// Anything else is an infrastructure failure and must not be shown to callers verbatim.
func IsDomainError(err error) bool {
	for _, s := range []error{
		ErrNotFound, ErrValidation, ErrInsufficientStock, ErrOverpayment,
		ErrOverReceipt, ErrDuplicate, ErrConflict, ErrUnauthorized,
	} {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}

// uniqueOr maps a PostgreSQL unique violation (23505) to a DuplicateError;
// any other error is wrapped with op.
func uniqueOr(err error, op, entity, field, value string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return &DuplicateError{Entity: entity, Field: field, Value: value}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// isForeignKeyViolation reports a PostgreSQL 23503 error (row still referenced).
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
