package web

import (
	"net/http"

	"github.com/Drasasse/gestion-commerce-sub001/internal/app"
)

// ── Boutiques ───────────────────────────────────────────────────────────────

func (h *Handler) apiListBoutiques(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListBoutiques(r.Context(), principal(r))
	respond(w, r, list, err)
}

func (h *Handler) apiGetBoutique(w http.ResponseWriter, r *http.Request) {
	id, ok := boutiqueID(w, r)
	if !ok {
		return
	}
	b, err := h.svc.GetBoutique(r.Context(), principal(r), id)
	respond(w, r, b, err)
}

func (h *Handler) apiCreateBoutique(w http.ResponseWriter, r *http.Request) {
	var req app.BoutiqueRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	b, err := h.svc.CreateBoutique(r.Context(), principal(r), req)
	created(w, r, b, err)
}

func (h *Handler) apiUpdateBoutique(w http.ResponseWriter, r *http.Request) {
	id, ok := boutiqueID(w, r)
	if !ok {
		return
	}
	var req app.BoutiqueRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	b, err := h.svc.UpdateBoutique(r.Context(), principal(r), id, req)
	respond(w, r, b, err)
}

func (h *Handler) apiDeleteBoutique(w http.ResponseWriter, r *http.Request) {
	id, ok := boutiqueID(w, r)
	if !ok {
		return
	}
	noContent(w, r, h.svc.DeleteBoutique(r.Context(), principal(r), id))
}

// ── Users ───────────────────────────────────────────────────────────────────

func (h *Handler) apiListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListUsers(r.Context(), principal(r), queryIntPtr(r, "boutique_id"))
	respond(w, r, list, err)
}

func (h *Handler) apiGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	u, err := h.svc.GetUser(r.Context(), principal(r), id)
	respond(w, r, u, err)
}

func (h *Handler) apiCreateUser(w http.ResponseWriter, r *http.Request) {
	var req app.UserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.svc.CreateUser(r.Context(), principal(r), req)
	created(w, r, u, err)
}

func (h *Handler) apiUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	var req app.UserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.svc.UpdateUser(r.Context(), principal(r), id, req)
	respond(w, r, u, err)
}

func (h *Handler) apiDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	noContent(w, r, h.svc.DeleteUser(r.Context(), principal(r), id))
}
