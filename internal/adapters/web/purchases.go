package web

import (
	"net/http"

	"github.com/Drasasse/gestion-commerce-sub001/internal/app"
)

// ── Suppliers ───────────────────────────────────────────────────────────────

func (h *Handler) apiListSuppliers(w http.ResponseWriter, r *http.Request) {
	b, ok := boutiqueID(w, r)
	if !ok {
		return
	}
	list, err := h.svc.ListSuppliers(r.Context(), principal(r), b, r.URL.Query().Get("q"))
	respond(w, r, list, err)
}

func (h *Handler) apiGetSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	s, err := h.svc.GetSupplier(r.Context(), principal(r), id)
	respond(w, r, s, err)
}

func (h *Handler) apiCreateSupplier(w http.ResponseWriter, r *http.Request) {
	b, ok := boutiqueID(w, r)
	if !ok {
		return
	}
	var req app.PartnerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s, err := h.svc.CreateSupplier(r.Context(), principal(r), b, req)
	created(w, r, s, err)
}

func (h *Handler) apiUpdateSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req app.PartnerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s, err := h.svc.UpdateSupplier(r.Context(), principal(r), id, req)
	respond(w, r, s, err)
}

func (h *Handler) apiDeleteSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	noContent(w, r, h.svc.DeleteSupplier(r.Context(), principal(r), id))
}

// ── Purchase orders ─────────────────────────────────────────────────────────

func (h *Handler) apiListPurchaseOrders(w http.ResponseWriter, r *http.Request) {
	b, ok := boutiqueID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	res, err := h.svc.ListPurchaseOrders(r.Context(), principal(r), b, app.OrderQuery{
		Status:     q.Get("status"),
		SupplierID: queryIntPtr(r, "supplier_id"),
		From:       q.Get("from"),
		To:         q.Get("to"),
		Limit:      queryInt(r, "limit"),
		Offset:     queryInt(r, "offset"),
	})
	respond(w, r, res, err)
}

func (h *Handler) apiCreatePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	b, ok := boutiqueID(w, r)
	if !ok {
		return
	}
	var req app.CreateOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	order, err := h.svc.CreatePurchaseOrder(r.Context(), principal(r), b, req)
	created(w, r, order, err)
}

func (h *Handler) apiGetPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	order, err := h.svc.GetPurchaseOrder(r.Context(), principal(r), id)
	respond(w, r, order, err)
}

func (h *Handler) apiReceivePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req app.ReceiveOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	order, err := h.svc.ReceivePurchaseOrder(r.Context(), principal(r), id, req)
	respond(w, r, order, err)
}

func (h *Handler) apiCancelPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	order, err := h.svc.CancelPurchaseOrder(r.Context(), principal(r), id)
	respond(w, r, order, err)
}

func (h *Handler) apiPayPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req app.PayOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	order, err := h.svc.PayPurchaseOrder(r.Context(), principal(r), id, req)
	respond(w, r, order, err)
}
