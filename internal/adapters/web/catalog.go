package web

import (
	"net/http"

	"github.com/Drasasse/gestion-commerce-sub001/internal/app"
	"github.com/Drasasse/gestion-commerce-sub001/internal/core"
)

// ── Categories ──────────────────────────────────────────────────────────────

func (h *Handler) apiListCategories(w http.ResponseWriter, r *http.Request) {
	b, ok := boutiqueID(w, r)
	if !ok {
		return
	}
	list, err := h.svc.ListCategories(r.Context(), principal(r), b)
	respond(w, r, list, err)
}

func (h *Handler) apiCreateCategory(w http.ResponseWriter, r *http.Request) {
	b, ok := boutiqueID(w, r)
	if !ok {
		return
	}
	var req app.CategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.svc.CreateCategory(r.Context(), principal(r), b, req)
	created(w, r, c, err)
}

func (h *Handler) apiUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req app.CategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.svc.UpdateCategory(r.Context(), principal(r), id, req)
	respond(w, r, c, err)
}

func (h *Handler) apiDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	noContent(w, r, h.svc.DeleteCategory(r.Context(), principal(r), id))
}

// ── Products & stock ────────────────────────────────────────────────────────

func (h *Handler) apiListProducts(w http.ResponseWriter, r *http.Request) {
	b, ok := boutiqueID(w, r)
	if !ok {
		return
	}
	filter := core.ProductFilter{
		CategoryID: queryIntPtr(r, "category_id"),
		Search:     r.URL.Query().Get("q"),
	}
	list, err := h.svc.ListProducts(r.Context(), principal(r), b, filter)
	respond(w, r, list, err)
}

func (h *Handler) apiGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.svc.GetProduct(r.Context(), principal(r), id)
	respond(w, r, p, err)
}

func (h *Handler) apiCreateProduct(w http.ResponseWriter, r *http.Request) {
	b, ok := boutiqueID(w, r)
	if !ok {
		return
	}
	var req app.ProductRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.svc.CreateProduct(r.Context(), principal(r), b, req)
	created(w, r, p, err)
}

func (h *Handler) apiUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req app.ProductRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.svc.UpdateProduct(r.Context(), principal(r), id, req)
	respond(w, r, p, err)
}

func (h *Handler) apiDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	noContent(w, r, h.svc.DeleteProduct(r.Context(), principal(r), id))
}

func (h *Handler) apiAdjustStock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req app.AdjustStockRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := h.svc.AdjustStock(r.Context(), principal(r), id, req)
	created(w, r, m, err)
}

func (h *Handler) apiStockLevels(w http.ResponseWriter, r *http.Request) {
	b, ok := boutiqueID(w, r)
	if !ok {
		return
	}
	filter := core.StockFilter{
		LowStockOnly: r.URL.Query().Get("low") == "true",
		CategoryID:   queryIntPtr(r, "category_id"),
	}
	res, err := h.svc.GetStockLevels(r.Context(), principal(r), b, filter)
	respond(w, r, res, err)
}

func (h *Handler) apiListMovements(w http.ResponseWriter, r *http.Request) {
	b, ok := boutiqueID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	list, err := h.svc.ListMovements(r.Context(), principal(r), b, app.MovementQuery{
		ProductID: queryIntPtr(r, "product_id"),
		Kind:      q.Get("kind"),
		From:      q.Get("from"),
		To:        q.Get("to"),
		Limit:     queryInt(r, "limit"),
		Offset:    queryInt(r, "offset"),
	})
	respond(w, r, list, err)
}

// ── Clients ─────────────────────────────────────────────────────────────────

func (h *Handler) apiListClients(w http.ResponseWriter, r *http.Request) {
	b, ok := boutiqueID(w, r)
	if !ok {
		return
	}
	list, err := h.svc.ListClients(r.Context(), principal(r), b, r.URL.Query().Get("q"))
	respond(w, r, list, err)
}

func (h *Handler) apiGetClient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	c, err := h.svc.GetClient(r.Context(), principal(r), id)
	respond(w, r, c, err)
}

func (h *Handler) apiCreateClient(w http.ResponseWriter, r *http.Request) {
	b, ok := boutiqueID(w, r)
	if !ok {
		return
	}
	var req app.PartnerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.svc.CreateClient(r.Context(), principal(r), b, req)
	created(w, r, c, err)
}

func (h *Handler) apiUpdateClient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req app.PartnerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.svc.UpdateClient(r.Context(), principal(r), id, req)
	respond(w, r, c, err)
}

func (h *Handler) apiDeleteClient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	noContent(w, r, h.svc.DeleteClient(r.Context(), principal(r), id))
}
