// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ShopNest Contributors

// Package httpapi exposes the auth core over HTTP. Handlers are a thin
// translation layer: decode JSON, invoke the service, map the error
// taxonomy to status codes. No business policy lives here.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/shopnest/userd/internal/auth"
	"github.com/shopnest/userd/pkg/errutil"
)

// serviceName appears in health responses, matching the docs listing.
const serviceName = "user-service"

// AuthService is the interface the handlers need from the auth core.
type AuthService interface {
	Register(ctx context.Context, email, rawPassword string) (*auth.Identity, error)
	Login(ctx context.Context, email, rawPassword string) (*auth.Session, string, error)
	Validate(ctx context.Context, token string) (ulid.ULID, error)
}

// Handlers holds the HTTP handlers for the user service API.
type Handlers struct {
	svc    AuthService
	logger *slog.Logger
}

// NewHandlers creates the API handlers.
func NewHandlers(svc AuthService, logger *slog.Logger) *Handlers {
	return &Handlers{svc: svc, logger: logger}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type identityResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type meResponse struct {
	IdentityID string `json:"identity_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Register handles POST /api/auth/register.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	identity, err := h.svc.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeAuthError(w, "registration failed", err)
		return
	}

	// The password hash never crosses the trust boundary.
	writeJSON(w, http.StatusCreated, identityResponse{
		ID:        identity.ID.String(),
		Email:     identity.Email,
		CreatedAt: identity.CreatedAt,
	})
}

// Login handles POST /api/auth/login.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, token, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeAuthError(w, "login failed", err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: session.ExpiresAt,
	})
}

// Me handles GET /api/users/me with a bearer token.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing or malformed bearer token")
		return
	}

	identityID, err := h.svc.Validate(r.Context(), token)
	if err != nil {
		h.writeAuthError(w, "session validation failed", err)
		return
	}

	writeJSON(w, http.StatusOK, meResponse{IdentityID: identityID.String()})
}

// Health handles GET /health, a trivial liveness probe.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"service":   serviceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Docs handles GET /api/docs, the endpoint listing.
func (h *Handlers) Docs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "User Service",
		"endpoints": map[string]string{
			"health":   "GET /health",
			"register": "POST /api/auth/register",
			"login":    "POST /api/auth/login",
			"profile":  "GET /api/users/me",
		},
	})
}

// writeAuthError maps the auth error taxonomy to HTTP status codes.
// Validation messages are user-correctable and pass through; everything else
// gets a fixed message so internals never leak to clients.
func (h *Handlers) writeAuthError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, auth.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, "email is already registered")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, auth.ErrInvalidSession):
		writeError(w, http.StatusUnauthorized, "invalid or expired session")
	case errors.Is(err, auth.ErrStoreUnavailable):
		errutil.LogError(h.logger, msg, err)
		writeError(w, http.StatusServiceUnavailable, "service temporarily unavailable")
	default:
		errutil.LogError(h.logger, msg, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// bearerToken extracts the token from an Authorization: Bearer header.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if token == "" {
		return "", false
	}
	return token, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	//nolint:errcheck // response write error is acceptable, client may disconnect
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
