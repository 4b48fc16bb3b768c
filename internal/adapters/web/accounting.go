package web

import (
	"net/http"
	"time"

	"github.com/Drasasse/gestion-commerce-sub001/internal/app"
)

// ── Capital ledger ──────────────────────────────────────────────────────────

func (h *Handler) apiListTransactions(w http.ResponseWriter, r *http.Request) {
	b, ok := boutiqueID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	res, err := h.svc.ListTransactions(r.Context(), principal(r), b, app.TransactionQuery{
		Type:   q.Get("type"),
		From:   q.Get("from"),
		To:     q.Get("to"),
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	})
	respond(w, r, res, err)
}

func (h *Handler) apiRecordTransaction(w http.ResponseWriter, r *http.Request) {
	b, ok := boutiqueID(w, r)
	if !ok {
		return
	}
	var req app.TransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.svc.RecordTransaction(r.Context(), principal(r), b, req)
	created(w, r, t, err)
}

func (h *Handler) apiGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	t, err := h.svc.GetTransaction(r.Context(), principal(r), id)
	respond(w, r, t, err)
}

func (h *Handler) apiUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req app.TransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.svc.UpdateTransaction(r.Context(), principal(r), id, req)
	respond(w, r, t, err)
}

func (h *Handler) apiDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	noContent(w, r, h.svc.DeleteTransaction(r.Context(), principal(r), id))
}

// ── Reports ─────────────────────────────────────────────────────────────────

func (h *Handler) apiMonthlySummary(w http.ResponseWriter, r *http.Request) {
	b, ok := boutiqueID(w, r)
	if !ok {
		return
	}
	res, err := h.svc.MonthlySummary(r.Context(), principal(r), b, queryInt(r, "year"))
	respond(w, r, res, err)
}

func (h *Handler) apiBalanceStatement(w http.ResponseWriter, r *http.Request) {
	b, ok := boutiqueID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	res, err := h.svc.BalanceStatement(r.Context(), principal(r), b, q.Get("from"), q.Get("to"))
	respond(w, r, res, err)
}

// apiReceivablesAging accepts an optional as_of=YYYY-MM-DD, counted up to the end of that day.
func (h *Handler) apiReceivablesAging(w http.ResponseWriter, r *http.Request) {
	b, ok := boutiqueID(w, r)
	if !ok {
		return
	}
	var asOf time.Time
	if s := r.URL.Query().Get("as_of"); s != "" {
		d, err := time.ParseInLocation("2006-01-02", s, time.Local)
		if err != nil {
			writeError(w, r, "date invalide (attendu AAAA-MM-JJ) : "+s, "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		asOf = d.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	res, err := h.svc.ReceivablesAging(r.Context(), principal(r), b, asOf)
	respond(w, r, res, err)
}

func (h *Handler) apiTopProducts(w http.ResponseWriter, r *http.Request) {
	b, ok := boutiqueID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	res, err := h.svc.TopProducts(r.Context(), principal(r), b, q.Get("from"), q.Get("to"), queryInt(r, "limit"))
	respond(w, r, res, err)
}

func (h *Handler) apiDashboard(w http.ResponseWriter, r *http.Request) {
	b, ok := boutiqueID(w, r)
	if !ok {
		return
	}
	res, err := h.svc.Dashboard(r.Context(), principal(r), b)
	respond(w, r, res, err)
}

func (h *Handler) apiCheckInvariants(w http.ResponseWriter, r *http.Request) {
	b, ok := boutiqueID(w, r)
	if !ok {
		return
	}
	res, err := h.svc.CheckInvariants(r.Context(), principal(r), b)
	respond(w, r, res, err)
}
