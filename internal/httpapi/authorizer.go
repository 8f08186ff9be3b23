// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Userhub Contributors

package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/userhub/userhub/internal/auth"
	"github.com/userhub/userhub/pkg/errutil"
)

// AuthService is the slice of the auth service the HTTP layer depends
// on. Implemented by *auth.Service.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*auth.SessionPair, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.SessionPair, error)
	Logout(ctx context.Context, authHeader string) error
	Authenticate(ctx context.Context, authHeader string, allowAnonymous bool) (*auth.User, error)
	Authorize(user *auth.User, policy auth.Policy) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, params auth.ResetPasswordParams) error
	ChangePassword(ctx context.Context, principal *auth.User, targetUserID, authHeader string, params auth.ChangePasswordParams) (*auth.SessionPair, error)
}

type principalKey struct{}

// WithPrincipal stores the authenticated principal on the context.
func WithPrincipal(ctx context.Context, user *auth.User) context.Context {
	return context.WithValue(ctx, principalKey{}, user)
}

// PrincipalFrom returns the principal resolved by the Authorizer, or
// nil on anonymous-allowed routes with no credential.
func PrincipalFrom(ctx context.Context) *auth.User {
	user, _ := ctx.Value(principalKey{}).(*auth.User)
	return user
}

// Authorizer guards routes: it authenticates the request, enforces the
// route's policy, and stamps the principal's last visit in the
// background before handing off to the handler.
type Authorizer struct {
	service AuthService
	queue   auth.NotificationQueue
	logger  *slog.Logger

	wg sync.WaitGroup
}

// NewAuthorizer creates an Authorizer. The queue receives fire-and-
// forget last-visit updates; it may be nil to disable them.
func NewAuthorizer(service AuthService, queue auth.NotificationQueue, logger *slog.Logger) *Authorizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authorizer{service: service, queue: queue, logger: logger}
}

// Protect wraps a handler with authentication and the given policy.
// A failed authentication renders 401 before the handler runs; a
// principal outside the policy's roles renders 403. On success the
// principal (possibly nil under an anonymous-allowed policy) is
// available via PrincipalFrom.
func (a *Authorizer) Protect(policy auth.Policy, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := a.service.Authenticate(r.Context(), r.Header.Get("Authorization"), policy.AllowsAnonymous())
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		if err := a.service.Authorize(principal, policy); err != nil {
			writeError(w, a.logger, err)
			return
		}

		if principal != nil {
			a.recordVisit(principal)
		}

		next(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	}
}

// recordVisit enqueues a last-visit update without blocking the request
// or tying the write to the request context. Failures are logged and
// dropped; the visit stamp is best effort.
func (a *Authorizer) recordVisit(principal *auth.User) {
	if a.queue == nil {
		return
	}
	job := auth.LastVisitJob{UserID: principal.ID.String(), At: time.Now().UTC()}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.queue.Enqueue(ctx, auth.KindUpdateLastVisit, job); err != nil {
			errutil.LogError(a.logger, "failed to enqueue last-visit update", err)
		}
	}()
}

// Wait blocks until all in-flight last-visit updates have finished.
// Called during shutdown, after the HTTP server has drained.
func (a *Authorizer) Wait() {
	a.wg.Wait()
}
