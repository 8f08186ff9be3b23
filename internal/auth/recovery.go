// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Userhub Contributors

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/samber/oops"

	"github.com/userhub/userhub/pkg/errutil"
)

// ResetPasswordParams is the payload for ResetPassword.
type ResetPasswordParams struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

// ChangePasswordParams is the payload for ChangePassword.
type ChangePasswordParams struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// RequestPasswordReset issues a fresh reset code for the account and
// enqueues the recovery notification. An unknown email returns success
// with no side effect so the endpoint cannot be used to enumerate
// accounts. Any prior reset request is replaced, never appended to.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.directory.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "find user by email").
			Wrap(err)
	}

	reset, err := NewResetRequest()
	if err != nil {
		return err
	}

	user.ResetRequest = reset
	if err := s.directory.Save(ctx, user); err != nil {
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "persist reset request").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	// Delivery is fire-and-forget: a dropped notification must not fail
	// the request, the user can simply ask again.
	if err := s.queue.Enqueue(ctx, KindSendEmail, NewRecoveryEmailJob(user, reset.Code)); err != nil {
		errutil.LogError(s.logger, "failed to enqueue recovery email", err)
	}
	return nil
}

// ResetPassword consumes a reset code and sets a new password. Code not
// found, email mismatch, and code expiry all fail with the same generic
// invalid-code error so validity and expiry state never leak. Success
// retires every session and the reset request itself.
func (s *Service) ResetPassword(ctx context.Context, params ResetPasswordParams) error {
	user, err := s.directory.FindByActiveResetCode(ctx, params.Code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return invalidCodeError()
		}
		return oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "find user by reset code").
			Wrap(err)
	}
	if NormalizeEmail(params.Email) != user.Email {
		return invalidCodeError()
	}
	if user.ResetRequest == nil || user.ResetRequest.Code != params.Code {
		return invalidCodeError()
	}
	if user.ResetRequest.IsExpired(time.Now()) {
		return invalidCodeError()
	}

	if err := s.passwords.Validate(params.NewPassword); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(params.NewPassword)
	if err != nil {
		return oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "hash new password").
			Wrap(err)
	}

	user.PasswordHash = hash
	user.ClearSessions()
	if err := s.directory.Save(ctx, user); err != nil {
		return oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "persist new password").
			With("user_id", user.ID.String()).
			Wrap(err)
	}
	return nil
}

// ChangePassword is self-service only: the calling principal must be the
// target user regardless of role. The caller is re-authenticated from
// the header as defense in depth. Success retires every prior session
// and returns a fresh pair from an internal re-login with the new
// credentials.
func (s *Service) ChangePassword(ctx context.Context, principal *User, targetUserID, authHeader string, params ChangePasswordParams) (*SessionPair, error) {
	if principal == nil || principal.ID.String() != targetUserID {
		return nil, oops.Code("AUTH_NOT_SELF").Wrap(ErrUnauthorized)
	}

	principal, err := s.Authenticate(ctx, authHeader, false)
	if err != nil {
		return nil, err
	}

	if err := s.passwords.Validate(params.NewPassword); err != nil {
		return nil, err
	}

	ok, err := s.hasher.Check(params.OldPassword, principal.PasswordHash)
	if err != nil {
		return nil, oops.Code("CHANGE_PASSWORD_FAILED").
			With("operation", "check old password").
			Wrap(err)
	}
	if !ok {
		return nil, NewInvalidRequestError("old_password", "Invalid password", "error_invalid_password")
	}

	hash, err := s.hasher.Hash(params.NewPassword)
	if err != nil {
		return nil, oops.Code("CHANGE_PASSWORD_FAILED").
			With("operation", "hash new password").
			Wrap(err)
	}

	principal.PasswordHash = hash
	principal.ClearSessions()
	if err := s.directory.Save(ctx, principal); err != nil {
		return nil, oops.Code("CHANGE_PASSWORD_FAILED").
			With("operation", "persist new password").
			With("user_id", principal.ID.String()).
			Wrap(err)
	}

	return s.Login(ctx, principal.Email, params.NewPassword)
}
