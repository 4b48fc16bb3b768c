package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Drasasse/gestion-commerce-sub001/internal/app"
	"github.com/Drasasse/gestion-commerce-sub001/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// fakeService overrides the few methods a test needs; any other call panics
// through the nil embedded interface and surfaces as a 500.
type fakeService struct {
	app.ApplicationService
	pingErr    error
	session    *app.UserSession
	authErr    error
	saleErr    error
	gotSaleReq app.CreateSaleRequest
	gotCaller  core.Principal
	gotBoutique  int
	saleBoutique int
}

func (f *fakeService) Ping(context.Context) error { return f.pingErr }

func (f *fakeService) AuthenticateUser(_ context.Context, _, _ string) (*app.UserSession, error) {
	return f.session, f.authErr
}

func (f *fakeService) CreateSale(_ context.Context, p core.Principal, boutiqueID int, req app.CreateSaleRequest) (*core.Sale, error) {
	f.gotCaller, f.gotBoutique, f.gotSaleReq = p, boutiqueID, req
	if f.saleErr != nil {
		return nil, f.saleErr
	}
	return &core.Sale{ID: 1, BoutiqueID: boutiqueID, Number: "V001", Status: core.StatusPaid}, nil
}

// GetSale stands in for a sale stored in saleBoutique, checked the way core checks loaded rows.
func (f *fakeService) GetSale(_ context.Context, p core.Principal, saleID int) (*core.Sale, error) {
	f.gotCaller = p
	if err := core.AssertTenantAccess(p, f.saleBoutique); err != nil {
		return nil, err
	}
	return &core.Sale{ID: saleID, BoutiqueID: f.saleBoutique, Number: "V007"}, nil
}

func newTestServer(svc app.ApplicationService) (http.Handler, *Handler) {
	h := &Handler{jwtSecret: []byte(testSecret), tokenTTL: time.Hour}
	return NewHandler(svc, zap.NewNop(), Options{JWTSecret: testSecret, TokenTTL: time.Hour}), h
}

func tokenFor(t *testing.T, h *Handler, s *app.UserSession) string {
	t.Helper()
	tok, err := h.signToken(s, time.Now())
	require.NoError(t, err)
	return tok
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestWriteDomainError_Mapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", &core.NotFoundError{Entity: "vente", Key: 4}, http.StatusNotFound, "NOT_FOUND"},
		{"validation", &core.ValidationError{Issues: []core.FieldIssue{{Field: "lines", Message: "vide"}}}, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"stock", &core.InsufficientStockError{Product: "Sac", Available: 1, Requested: 3}, http.StatusConflict, "INSUFFICIENT_STOCK"},
		{"overpayment", &core.OverpaymentError{}, http.StatusConflict, "OVERPAYMENT"},
		{"over receipt", &core.OverReceiptError{Product: "Sac", Ordered: 5, Attempted: 6}, http.StatusConflict, "OVER_RECEIPT"},
		{"duplicate", &core.DuplicateError{Entity: "catégorie", Field: "nom", Value: "A"}, http.StatusConflict, "DUPLICATE"},
		{"conflict", &core.ConflictError{Reason: "déjà réceptionnée"}, http.StatusConflict, "CONFLICT"},
		{"forbidden", &core.AuthorizationError{Reason: "autre boutique"}, http.StatusForbidden, "FORBIDDEN"},
		{"wrapped", fmt.Errorf("create sale: %w", &core.ConflictError{Reason: "x"}), http.StatusConflict, "CONFLICT"},
		{"internal", app.ErrInternal, http.StatusInternalServerError, "INTERNAL_ERROR"},
		{"raw infra", errors.New("pq: connection refused"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			writeDomainError(rec, req, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tt.code, body.Code)
			if tt.status == http.StatusInternalServerError {
				assert.Equal(t, internalErrorMessage, body.Error)
			}
		})
	}
}

func TestRequireAuth(t *testing.T) {
	srv, h := newTestServer(&fakeService{})
	b := 1
	manager := &app.UserSession{UserID: 2, Role: core.RoleGestionnaire, BoutiqueID: &b}

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/boutiques/1/sales", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := &Handler{jwtSecret: []byte("another-secret-another-secret-!!"), tokenTTL: time.Hour}
		req := httptest.NewRequest(http.MethodPost, "/api/boutiques/1/sales", strings.NewReader(`{}`))
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, other, manager))
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired", func(t *testing.T) {
		tok, err := h.signToken(manager, time.Now().Add(-2*time.Hour))
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/api/boutiques/1/sales", strings.NewReader(`{}`))
		req.AddCookie(&http.Cookie{Name: authCookie, Value: tok})
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestCreateSale_PassesPrincipalAndBoutique(t *testing.T) {
	svc := &fakeService{}
	srv, h := newTestServer(svc)
	b := 3
	manager := &app.UserSession{UserID: 7, Role: core.RoleGestionnaire, BoutiqueID: &b}

	body := `{"lines":[{"product_id":5,"quantity":2}],"amount_paid":"100","payment_method":"CARTE"}`
	req := httptest.NewRequest(http.MethodPost, "/api/boutiques/3/sales", strings.NewReader(body))
	req.AddCookie(&http.Cookie{Name: authCookie, Value: tokenFor(t, h, manager)})
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, core.Principal{UserID: 7, Role: core.RoleGestionnaire, BoutiqueID: &b}.Within(3), svc.gotCaller)
	assert.Equal(t, 3, svc.gotBoutique)
	assert.Equal(t, []app.SaleLineRequest{{ProductID: 5, Quantity: 2}}, svc.gotSaleReq.Lines)
	assert.Equal(t, "100", svc.gotSaleReq.AmountPaid)

	var sale core.Sale
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&sale))
	assert.Equal(t, "V001", sale.Number)
}

func TestCreateSale_InsufficientStockDetails(t *testing.T) {
	svc := &fakeService{saleErr: &core.InsufficientStockError{Product: "Robe", Available: 0, Requested: 1}}
	srv, h := newTestServer(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/boutiques/1/sales",
		strings.NewReader(`{"lines":[{"product_id":1,"quantity":1}]}`))
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, h, &app.UserSession{UserID: 1, Role: core.RoleAdmin}))
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	var body struct {
		Code      string       `json:"code"`
		Details   stockDetails `json:"details"`
		RequestID string       `json:"request_id"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "INSUFFICIENT_STOCK", body.Code)
	assert.Equal(t, stockDetails{Product: "Robe", Available: 0, Requested: 1}, body.Details)
	assert.Equal(t, "req-42", body.RequestID)
}

func TestLogin(t *testing.T) {
	b := 1
	svc := &fakeService{session: &app.UserSession{UserID: 2, Username: "awa", Role: core.RoleGestionnaire, BoutiqueID: &b}}
	srv, h := newTestServer(svc)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"username":"awa","password":"motdepasse"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == authCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	p, err := h.parseToken(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, 2, p.UserID)
	require.NotNil(t, p.BoutiqueID)
	assert.Equal(t, 1, *p.BoutiqueID)

	svc.authErr = &core.AuthorizationError{Reason: "identifiant ou mot de passe incorrect"}
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"username":"awa","password":"x"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealth(t *testing.T) {
	svc := &fakeService{}
	srv, _ := newTestServer(svc)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	svc.pingErr = app.ErrInternal
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSchemaEndpoint(t *testing.T) {
	srv, _ := newTestServer(&fakeService{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/schemas/sale", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var schema map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&schema))
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "lines")
	assert.Contains(t, props, "amount_paid")

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/schemas/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecoverer_AnswersInternalError(t *testing.T) {
	srv, h := newTestServer(&fakeService{})

	// GetProduct is not overridden by fakeService, so the call panics.
	req := httptest.NewRequest(http.MethodGet, "/api/boutiques/1/products/9", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, h, &app.UserSession{UserID: 1, Role: core.RoleAdmin}))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", decodeError(t, rec).Code)
}

func TestRequestBodyLimit(t *testing.T) {
	srv, h := newTestServer(&fakeService{})
	big := `{"notes":"` + strings.Repeat("x", 2<<20) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/boutiques/1/sales", strings.NewReader(big))
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, h, &app.UserSession{UserID: 1, Role: core.RoleAdmin}))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestBoutiquePath_ScopesEntityRoutes(t *testing.T) {
	svc := &fakeService{saleBoutique: 1}
	srv, h := newTestServer(svc)
	admin := tokenFor(t, h, &app.UserSession{UserID: 1, Role: core.RoleAdmin})
	b := 1
	manager := tokenFor(t, h, &app.UserSession{UserID: 2, Role: core.RoleGestionnaire, BoutiqueID: &b})

	get := func(path, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		return rec
	}

	rec := get("/api/boutiques/1/sales/7", admin)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.gotCaller.Scope)
	assert.Equal(t, 1, *svc.gotCaller.Scope)

	rec = get("/api/boutiques/2/sales/7", admin)
	assert.Equal(t, http.StatusNotFound, rec.Code, "sale 7 lives in boutique 1")
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Code)

	svc.gotCaller = core.Principal{}
	rec = get("/api/boutiques/2/sales/7", manager)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, svc.gotCaller.UserID, "the service is not reached")
}
