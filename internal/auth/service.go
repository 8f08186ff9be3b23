// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Userhub Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// authScheme is the Authorization header scheme keyword. Matching is
// case-insensitive and the header must be exactly two space-separated
// parts; any other shape is treated as "no credential".
const authScheme = "token"

// dummyPasswordHash is verified when a login targets an unknown email so
// response time stays consistent with the known-email path. It is a fake
// hash that never matches any password, not a credential.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Service owns the session-token lifecycle: login, refresh, logout,
// authenticate, authorize, and the password flows in recovery.go.
type Service struct {
	directory UserDirectory
	codec     *TokenCodec
	hasher    PasswordHasher
	passwords PasswordValidator
	queue     NotificationQueue
	logger    *slog.Logger
}

// NewService creates a Service, validating its dependencies.
func NewService(
	directory UserDirectory,
	codec *TokenCodec,
	hasher PasswordHasher,
	passwords PasswordValidator,
	queue NotificationQueue,
	logger *slog.Logger,
) (*Service, error) {
	if directory == nil {
		return nil, oops.Code("AUTH_CONFIG_INVALID").Errorf("user directory is required")
	}
	if codec == nil {
		return nil, oops.Code("AUTH_CONFIG_INVALID").Errorf("token codec is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_CONFIG_INVALID").Errorf("password hasher is required")
	}
	if passwords == nil {
		return nil, oops.Code("AUTH_CONFIG_INVALID").Errorf("password validator is required")
	}
	if queue == nil {
		return nil, oops.Code("AUTH_CONFIG_INVALID").Errorf("notification queue is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		directory: directory,
		codec:     codec,
		hasher:    hasher,
		passwords: passwords,
		queue:     queue,
		logger:    logger,
	}, nil
}

// Login authenticates the credentials and mints a new session pair,
// appended to the user's existing sessions.
func (s *Service) Login(ctx context.Context, email, password string) (*SessionPair, error) {
	user, err := s.directory.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Verify against the dummy hash anyway to keep response
			// time consistent with the known-email path.
			_, _ = s.hasher.Check(password, dummyPasswordHash)
			return nil, oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrUnauthenticated)
		}
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "find user by email").
			Wrap(err)
	}

	ok, err := s.hasher.Check(password, user.PasswordHash)
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "check password").
			Wrap(err)
	}
	if !ok {
		return nil, oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrUnauthenticated)
	}

	// Accounts imported with a legacy hash get rehashed now that the
	// plaintext is available.
	if s.hasher.NeedsUpgrade(user.PasswordHash) {
		if upgraded, err := s.hasher.Hash(password); err != nil {
			s.logger.Warn("password hash upgrade failed",
				"user_id", user.ID.String(), "error", err)
		} else {
			user.PasswordHash = upgraded
		}
	}

	pair, err := s.mintPair(user, ulid.Make(), "")
	if err != nil {
		return nil, err
	}

	user.TokenPairs = append(user.TokenPairs, *pair)
	if err := s.directory.Save(ctx, user); err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "persist session pair").
			With("user_id", user.ID.String()).
			Wrap(err)
	}
	return pair, nil
}

// Refresh exchanges a refresh token for a session pair. While the pair's
// current access token is still valid the stored pair is returned
// unchanged. Otherwise a new access token is minted under the same pair
// id and the same refresh token, and the old pair entry is replaced.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*SessionPair, error) {
	claims, err := s.codec.Decode(refreshToken)
	if err != nil {
		return nil, oops.Code("AUTH_INVALID_TOKEN").Wrap(ErrUnauthenticated)
	}

	user, err := s.userByClaims(ctx, claims)
	if err != nil {
		return nil, err
	}

	pair, found := user.Pair(claims.PairID)
	if !found {
		// Covers sessions already retired by logout or password change.
		return nil, oops.Code("AUTH_SESSION_REVOKED").Wrap(ErrUnauthenticated)
	}

	if _, err := s.codec.Decode(pair.Access); err == nil {
		// Access token still alive: idempotent, no rotation.
		rotated := *pair
		return &rotated, nil
	}

	fresh, err := s.mintPair(user, pair.ID, refreshToken)
	if err != nil {
		return nil, err
	}

	user.RemovePair(pair.ID.String())
	user.TokenPairs = append(user.TokenPairs, *fresh)
	if err := s.directory.Save(ctx, user); err != nil {
		return nil, oops.Code("AUTH_REFRESH_FAILED").
			With("operation", "persist rotated pair").
			With("user_id", user.ID.String()).
			Wrap(err)
	}
	return fresh, nil
}

// Logout retires the single session matching the presented token's pair
// id. Other sessions for the same user stay valid.
func (s *Service) Logout(ctx context.Context, authHeader string) error {
	token := tokenFromHeader(authHeader)
	if token == "" {
		return oops.Code("AUTH_NO_CREDENTIAL").Wrap(ErrUnauthenticated)
	}
	claims, err := s.codec.Decode(token)
	if err != nil {
		return oops.Code("AUTH_INVALID_TOKEN").Wrap(ErrUnauthenticated)
	}

	user, err := s.userByClaims(ctx, claims)
	if err != nil {
		return err
	}

	user.RemovePair(claims.PairID)
	if err := s.directory.Save(ctx, user); err != nil {
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "persist session removal").
			With("user_id", user.ID.String()).
			Wrap(err)
	}
	return nil
}

// Authenticate resolves the principal presented by an Authorization
// header. Every failure mode - absent credential, invalid token,
// unknown user, revoked session - takes the same branch: a nil principal
// when anonymous access is allowed, ErrUnauthenticated otherwise.
func (s *Service) Authenticate(ctx context.Context, authHeader string, allowAnonymous bool) (*User, error) {
	token := tokenFromHeader(authHeader)
	if token == "" {
		return s.anonymousOr(allowAnonymous, "AUTH_NO_CREDENTIAL")
	}

	claims, err := s.codec.Decode(token)
	if err != nil {
		return s.anonymousOr(allowAnonymous, "AUTH_INVALID_TOKEN")
	}

	id, err := ulid.Parse(claims.UserID)
	if err != nil {
		return s.anonymousOr(allowAnonymous, "AUTH_INVALID_TOKEN")
	}
	user, err := s.directory.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return s.anonymousOr(allowAnonymous, "AUTH_UNKNOWN_USER")
		}
		return nil, oops.Code("AUTH_AUTHENTICATE_FAILED").
			With("operation", "find user by id").
			Wrap(err)
	}

	// Signature validity is not enough: the literal token must still be
	// stored on the user, so logout and rotation revoke it.
	if !user.HasAccessToken(token) {
		return s.anonymousOr(allowAnonymous, "AUTH_SESSION_REVOKED")
	}
	return user, nil
}

// Authorize checks the principal against the policy's role requirement.
func (s *Service) Authorize(user *User, policy Policy) error {
	if !policy.permits(user) {
		return oops.Code("AUTH_ROLE_NOT_ALLOWED").Wrap(ErrUnauthorized)
	}
	return nil
}

func (s *Service) anonymousOr(allowAnonymous bool, code string) (*User, error) {
	if allowAnonymous {
		return nil, nil
	}
	return nil, oops.Code(code).Wrap(ErrUnauthenticated)
}

// mintPair signs a new access token for the pair id, plus a new refresh
// token unless one is carried over from the rotated pair.
func (s *Service) mintPair(user *User, pairID ulid.ULID, refresh string) (*SessionPair, error) {
	access, err := s.codec.Encode(PurposeAccess, pairID.String(), user.ID.String(), user.Role)
	if err != nil {
		return nil, err
	}
	if refresh == "" {
		refresh, err = s.codec.Encode(PurposeRefresh, pairID.String(), user.ID.String(), user.Role)
		if err != nil {
			return nil, err
		}
	}
	return &SessionPair{ID: pairID, Access: access, Refresh: refresh}, nil
}

// userByClaims loads the token's owner, mapping unknown users to
// ErrUnauthenticated. Used by the strict (non-anonymous) operations.
func (s *Service) userByClaims(ctx context.Context, claims *Claims) (*User, error) {
	id, err := ulid.Parse(claims.UserID)
	if err != nil {
		return nil, oops.Code("AUTH_INVALID_TOKEN").Wrap(ErrUnauthenticated)
	}
	user, err := s.directory.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("AUTH_UNKNOWN_USER").Wrap(ErrUnauthenticated)
		}
		return nil, oops.Code("AUTH_LOOKUP_FAILED").
			With("operation", "find user by id").
			Wrap(err)
	}
	return user, nil
}

// tokenFromHeader extracts the bearer credential. The scheme keyword
// must equal "token" case-insensitively and the header must be exactly
// two space-delimited parts; anything else yields no credential.
func tokenFromHeader(authHeader string) string {
	if authHeader == "" {
		return ""
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], authScheme) {
		return ""
	}
	return parts[1]
}
