package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Drasasse/gestion-commerce-sub001/internal/core"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

const internalErrorMessage = "erreur interne du serveur"

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	writeErrorDetails(w, r, message, code, status, nil)
}

func writeErrorDetails(w http.ResponseWriter, r *http.Request, message, code string, status int, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{
		Error:     message,
		Code:      code,
		Details:   details,
		RequestID: requestIDFromContext(r.Context()),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

type stockDetails struct {
	Product   string `json:"product"`
	Available int    `json:"available"`
	Requested int    `json:"requested"`
}

// writeDomainError maps a core error to its HTTP status and code.
// Anything that is not a domain error answers 500 without leaking its text.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		stock *core.InsufficientStockError
		ve    *core.ValidationError
	)
	switch {
	case errors.As(err, &ve):
		writeErrorDetails(w, r, err.Error(), "VALIDATION_ERROR", http.StatusUnprocessableEntity, ve.Issues)
	case errors.As(err, &stock):
		writeErrorDetails(w, r, err.Error(), "INSUFFICIENT_STOCK", http.StatusConflict,
			stockDetails{Product: stock.Product, Available: stock.Available, Requested: stock.Requested})
	case errors.Is(err, core.ErrNotFound):
		writeError(w, r, err.Error(), "NOT_FOUND", http.StatusNotFound)
	case errors.Is(err, core.ErrValidation):
		writeError(w, r, err.Error(), "VALIDATION_ERROR", http.StatusUnprocessableEntity)
	case errors.Is(err, core.ErrOverpayment):
		writeError(w, r, err.Error(), "OVERPAYMENT", http.StatusConflict)
	case errors.Is(err, core.ErrOverReceipt):
		writeError(w, r, err.Error(), "OVER_RECEIPT", http.StatusConflict)
	case errors.Is(err, core.ErrDuplicate):
		writeError(w, r, err.Error(), "DUPLICATE", http.StatusConflict)
	case errors.Is(err, core.ErrConflict):
		writeError(w, r, err.Error(), "CONFLICT", http.StatusConflict)
	case errors.Is(err, core.ErrUnauthorized):
		writeError(w, r, err.Error(), "FORBIDDEN", http.StatusForbidden)
	default:
		writeError(w, r, internalErrorMessage, "INTERNAL_ERROR", http.StatusInternalServerError)
	}
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
