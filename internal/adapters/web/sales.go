package web

import (
	"net/http"

	"github.com/Drasasse/gestion-commerce-sub001/internal/app"
)

func (h *Handler) apiListSales(w http.ResponseWriter, r *http.Request) {
	b, ok := boutiqueID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	res, err := h.svc.ListSales(r.Context(), principal(r), b, app.SaleQuery{
		Status:   q.Get("status"),
		ClientID: queryIntPtr(r, "client_id"),
		Number:   q.Get("number"),
		From:     q.Get("from"),
		To:       q.Get("to"),
		Limit:    queryInt(r, "limit"),
		Offset:   queryInt(r, "offset"),
	})
	respond(w, r, res, err)
}

func (h *Handler) apiCreateSale(w http.ResponseWriter, r *http.Request) {
	b, ok := boutiqueID(w, r)
	if !ok {
		return
	}
	var req app.CreateSaleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sale, err := h.svc.CreateSale(r.Context(), principal(r), b, req)
	created(w, r, sale, err)
}

func (h *Handler) apiGetSale(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	sale, err := h.svc.GetSale(r.Context(), principal(r), id)
	respond(w, r, sale, err)
}

func (h *Handler) apiUpdateSale(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req app.UpdateSaleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sale, err := h.svc.UpdateSale(r.Context(), principal(r), id, req)
	respond(w, r, sale, err)
}

// apiCancelSale voids the sale; DELETE is the only way to undo one.
func (h *Handler) apiCancelSale(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	noContent(w, r, h.svc.CancelSale(r.Context(), principal(r), id))
}

// ── Payments ────────────────────────────────────────────────────────────────

func (h *Handler) apiListPayments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	list, err := h.svc.ListPayments(r.Context(), principal(r), id)
	respond(w, r, list, err)
}

func (h *Handler) apiAddPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req app.PaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.svc.AddPayment(r.Context(), principal(r), id, req)
	created(w, r, p, err)
}

func (h *Handler) apiUpdatePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req app.PaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.svc.UpdatePayment(r.Context(), principal(r), id, req)
	respond(w, r, p, err)
}

func (h *Handler) apiDeletePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	noContent(w, r, h.svc.DeletePayment(r.Context(), principal(r), id))
}
