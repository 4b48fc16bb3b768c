package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Drasasse/gestion-commerce-sub001/internal/app"
	"github.com/Drasasse/gestion-commerce-sub001/internal/core"

	"github.com/golang-jwt/jwt/v5"
)

const authCookie = "auth_token"

type principalKey struct{}

// principalFromContext returns the caller stored by RequireAuth.
func principalFromContext(ctx context.Context) (core.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(core.Principal)
	return p, ok
}

// jwtClaims is the JWT payload struct used for signing and parsing.
type jwtClaims struct {
	UserID     int    `json:"user_id"`
	Role       string `json:"role"`
	BoutiqueID *int   `json:"boutique_id,omitempty"`
	jwt.RegisteredClaims
}

func (h *Handler) signToken(s *app.UserSession, now time.Time) (string, error) {
	claims := &jwtClaims{
		UserID:     s.UserID,
		Role:       string(s.Role),
		BoutiqueID: s.BoutiqueID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(h.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.jwtSecret)
}

func (h *Handler) parseToken(raw string) (core.Principal, error) {
	claims := &jwtClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return h.jwtSecret, nil
	})
	if err != nil {
		return core.Principal{}, err
	}
	if !token.Valid {
		return core.Principal{}, errors.New("invalid token")
	}
	role := core.Role(claims.Role)
	if !role.Valid() || claims.UserID <= 0 {
		return core.Principal{}, errors.New("invalid token claims")
	}
	return core.Principal{UserID: claims.UserID, Role: role, BoutiqueID: claims.BoutiqueID}, nil
}

// tokenFromRequest reads the auth cookie, falling back to an Authorization bearer header.
func tokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(authCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// RequireAuth is chi middleware that validates the token and injects the caller's
// core.Principal into the request context. Returns 401 if the token is absent or invalid.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := tokenFromRequest(r)
		if raw == "" {
			writeError(w, r, "authentification requise", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}
		p, err := h.parseToken(raw)
		if err != nil {
			writeError(w, r, "jeton invalide ou expiré", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), principalKey{}, p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ScopeBoutique pins the caller to the {boutiqueID} path segment. A GESTIONNAIRE
// naming another boutique gets 403; afterwards any row loaded by id that belongs
// to a different boutique answers 404, for ADMIN callers too.
func ScopeBoutique(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, ok := boutiqueID(w, r)
		if !ok {
			return
		}
		p := principal(r)
		if err := core.AssertTenantAccess(p, b); err != nil {
			writeDomainError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), principalKey{}, p.Within(b))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// login handles POST /api/auth/login.
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.svc.AuthenticateUser(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, core.ErrUnauthorized) {
			writeError(w, r, "identifiant ou mot de passe incorrect", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}
		writeDomainError(w, r, err)
		return
	}

	signed, err := h.signToken(session, time.Now())
	if err != nil {
		writeError(w, r, internalErrorMessage, "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    signed,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(h.tokenTTL.Seconds()),
	})
	writeJSON(w, struct {
		*app.UserSession
		Token string `json:"token"`
	}{session, signed})
}

// logout handles POST /api/auth/logout and clears the auth cookie.
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})
	w.WriteHeader(http.StatusNoContent)
}

// me handles GET /api/auth/me.
func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	user, err := h.svc.CurrentUser(r.Context(), p)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, user)
}
