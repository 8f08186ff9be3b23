// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Userhub Contributors

package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/userhub/userhub/internal/auth"
	"github.com/userhub/userhub/internal/observability"
)

// tokenResponse is the body returned by every operation that mints or
// returns a session pair.
type tokenResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func newTokenResponse(pair *auth.SessionPair) tokenResponse {
	return tokenResponse{Access: pair.Access, Refresh: pair.Refresh}
}

// userResponse is the principal's own account view.
type userResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Role        auth.Role  `json:"role"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	CreatedAt   time.Time  `json:"created_at"`
	LastVisitAt *time.Time `json:"last_visit_at"`
}

// Handlers holds the HTTP handlers for the auth routes.
type Handlers struct {
	service AuthService
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewHandlers creates the route handlers. metrics may be nil.
func NewHandlers(service AuthService, metrics *observability.Metrics, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{service: service, metrics: metrics, logger: logger}
}

// Login handles POST /v1/auth/login.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if req.Email == "" {
		writeError(w, h.logger, auth.NewInvalidRequestError("email", "Email is required", "error_required"))
		return
	}
	if req.Password == "" {
		writeError(w, h.logger, auth.NewInvalidRequestError("password", "Password is required", "error_required"))
		return
	}

	pair, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.metrics.RecordLogin("failure")
		writeError(w, h.logger, err)
		return
	}
	h.metrics.RecordLogin("success")
	writeJSON(w, http.StatusOK, newTokenResponse(pair))
}

// Refresh handles POST /v1/auth/refresh.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Refresh string `json:"refresh"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if req.Refresh == "" {
		writeError(w, h.logger, auth.NewInvalidRequestError("refresh", "Refresh token is required", "error_required"))
		return
	}

	pair, err := h.service.Refresh(r.Context(), req.Refresh)
	if err != nil {
		h.metrics.RecordRefresh("failure")
		writeError(w, h.logger, err)
		return
	}
	h.metrics.RecordRefresh("success")
	writeJSON(w, http.StatusOK, newTokenResponse(pair))
}

// Logout handles POST /v1/auth/logout.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), r.Header.Get("Authorization")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

// ForgotPassword handles POST /v1/auth/forgot_password. The response is
// 200 whether or not the email exists.
func (h *Handlers) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if req.Email == "" {
		writeError(w, h.logger, auth.NewInvalidRequestError("email", "Email is required", "error_required"))
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.metrics.RecordPasswordReset("requested")
	writeJSON(w, http.StatusOK, struct{}{})
}

// ResetPassword handles POST /v1/auth/reset_password.
func (h *Handlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var params auth.ResetPasswordParams
	if err := decodeBody(r, &params); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.service.ResetPassword(r.Context(), params); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.metrics.RecordPasswordReset("completed")
	writeJSON(w, http.StatusOK, struct{}{})
}

// ChangePassword handles PUT /v1/users/{id}/password. Self-service
// only; the service enforces that the principal is the target user.
func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var params auth.ChangePasswordParams
	if err := decodeBody(r, &params); err != nil {
		writeError(w, h.logger, err)
		return
	}

	pair, err := h.service.ChangePassword(
		r.Context(),
		PrincipalFrom(r.Context()),
		r.PathValue("id"),
		r.Header.Get("Authorization"),
		params,
	)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newTokenResponse(pair))
}

// Me handles GET /v1/users/me.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	principal := PrincipalFrom(r.Context())
	if principal == nil {
		writeError(w, h.logger, auth.ErrUnauthenticated)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{
		ID:          principal.ID.String(),
		Email:       principal.Email,
		Role:        principal.Role,
		FirstName:   principal.Profile.FirstName,
		LastName:    principal.Profile.LastName,
		CreatedAt:   principal.CreatedAt,
		LastVisitAt: principal.LastVisitAt,
	})
}
