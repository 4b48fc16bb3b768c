package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Drasasse/gestion-commerce-sub001/internal/app"
	"github.com/Drasasse/gestion-commerce-sub001/internal/core"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Options configures NewHandler.
type Options struct {
	AllowedOrigins string
	JWTSecret      string
	TokenTTL       time.Duration
	// SecureCookie marks the auth cookie Secure; disable only for plain-HTTP development.
	SecureCookie bool
}

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc          app.ApplicationService
	log          *zap.Logger
	router       chi.Router
	jwtSecret    []byte
	tokenTTL     time.Duration
	secureCookie bool
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, log *zap.Logger, opts Options) http.Handler {
	h := &Handler{
		svc:          svc,
		log:          log,
		jwtSecret:    []byte(opts.JWTSecret),
		tokenTTL:     opts.TokenTTL,
		secureCookie: opts.SecureCookie,
	}
	if h.tokenTTL <= 0 {
		h.tokenTTL = 8 * time.Hour
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(log))
	r.Use(Recoverer(log))
	r.Use(CORS(opts.AllowedOrigins))

	// ── Public ───────────────────────────────────────────────────────────────
	r.Get("/api/health", h.health)
	r.Get("/api/schemas/{name}", h.schema)
	r.With(RequestBodyLimit(1<<20)).Post("/api/auth/login", h.login)
	r.Post("/api/auth/logout", h.logout)

	// ── Protected ────────────────────────────────────────────────────────────
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		r.Get("/api/auth/me", h.me)

		r.Route("/api/boutiques", func(r chi.Router) {
			r.Get("/", h.apiListBoutiques)
			r.Post("/", h.apiCreateBoutique)

			r.Route("/{boutiqueID}", func(r chi.Router) {
				r.Use(ScopeBoutique)

				r.Get("/", h.apiGetBoutique)
				r.Put("/", h.apiUpdateBoutique)
				r.Delete("/", h.apiDeleteBoutique)

				r.Get("/categories", h.apiListCategories)
				r.Post("/categories", h.apiCreateCategory)
				r.Put("/categories/{id}", h.apiUpdateCategory)
				r.Delete("/categories/{id}", h.apiDeleteCategory)

				r.Get("/products", h.apiListProducts)
				r.Post("/products", h.apiCreateProduct)
				r.Get("/products/{id}", h.apiGetProduct)
				r.Put("/products/{id}", h.apiUpdateProduct)
				r.Delete("/products/{id}", h.apiDeleteProduct)
				r.Post("/products/{id}/adjust", h.apiAdjustStock)

				r.Get("/stock", h.apiStockLevels)
				r.Get("/stock/movements", h.apiListMovements)

				r.Get("/clients", h.apiListClients)
				r.Post("/clients", h.apiCreateClient)
				r.Get("/clients/{id}", h.apiGetClient)
				r.Put("/clients/{id}", h.apiUpdateClient)
				r.Delete("/clients/{id}", h.apiDeleteClient)

				r.Get("/suppliers", h.apiListSuppliers)
				r.Post("/suppliers", h.apiCreateSupplier)
				r.Get("/suppliers/{id}", h.apiGetSupplier)
				r.Put("/suppliers/{id}", h.apiUpdateSupplier)
				r.Delete("/suppliers/{id}", h.apiDeleteSupplier)

				r.Get("/sales", h.apiListSales)
				r.Post("/sales", h.apiCreateSale)
				r.Get("/sales/{id}", h.apiGetSale)
				r.Put("/sales/{id}", h.apiUpdateSale)
				r.Delete("/sales/{id}", h.apiCancelSale)
				r.Get("/sales/{id}/payments", h.apiListPayments)
				r.Post("/sales/{id}/payments", h.apiAddPayment)
				r.Put("/payments/{id}", h.apiUpdatePayment)
				r.Delete("/payments/{id}", h.apiDeletePayment)

				r.Get("/purchase-orders", h.apiListPurchaseOrders)
				r.Post("/purchase-orders", h.apiCreatePurchaseOrder)
				r.Get("/purchase-orders/{id}", h.apiGetPurchaseOrder)
				r.Post("/purchase-orders/{id}/receive", h.apiReceivePurchaseOrder)
				r.Post("/purchase-orders/{id}/cancel", h.apiCancelPurchaseOrder)
				r.Post("/purchase-orders/{id}/payments", h.apiPayPurchaseOrder)

				r.Get("/transactions", h.apiListTransactions)
				r.Post("/transactions", h.apiRecordTransaction)
				r.Get("/transactions/{id}", h.apiGetTransaction)
				r.Put("/transactions/{id}", h.apiUpdateTransaction)
				r.Delete("/transactions/{id}", h.apiDeleteTransaction)

				r.Get("/reports/monthly", h.apiMonthlySummary)
				r.Get("/reports/balance", h.apiBalanceStatement)
				r.Get("/reports/receivables", h.apiReceivablesAging)
				r.Get("/reports/top-products", h.apiTopProducts)
				r.Get("/reports/dashboard", h.apiDashboard)
				r.Get("/reports/invariants", h.apiCheckInvariants)
			})
		})

		r.Route("/api/users", func(r chi.Router) {
			r.Get("/", h.apiListUsers)
			r.Post("/", h.apiCreateUser)
			r.Get("/{userID}", h.apiGetUser)
			r.Put("/{userID}", h.apiUpdateUser)
			r.Delete("/{userID}", h.apiDeleteUser)
		})
	})

	h.router = r
	return r
}

// health returns service status and database reachability.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status   string `json:"status"`
		Database string `json:"database"`
	}
	if err := h.svc.Ping(r.Context()); err != nil {
		writeJSONStatus(w, http.StatusServiceUnavailable, response{Status: "degraded", Database: "unreachable"})
		return
	}
	writeJSON(w, response{Status: "ok", Database: "ok"})
}

// principal returns the authenticated caller. RequireAuth guarantees its presence.
func principal(r *http.Request) core.Principal {
	p, _ := principalFromContext(r.Context())
	return p
}

// pathID parses the integer URL parameter name, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		writeError(w, r, "identifiant invalide : "+name, "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// boutiqueID extracts {boutiqueID}.
func boutiqueID(w http.ResponseWriter, r *http.Request) (int, bool) {
	return pathID(w, r, "boutiqueID")
}

// queryInt reads an optional integer query parameter; malformed values count as absent.
func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}

func queryIntPtr(r *http.Request, key string) *int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return nil
	}
	return &n
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "corps de requête trop volumineux", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "JSON invalide : "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}

// respond writes v, or maps err.
func respond(w http.ResponseWriter, r *http.Request, v any, err error) {
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, v)
}

// created writes v with 201, or maps err.
func created(w http.ResponseWriter, r *http.Request, v any, err error) {
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, v)
}

// noContent answers 204, or maps err.
func noContent(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
