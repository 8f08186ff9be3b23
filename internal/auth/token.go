// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Userhub Contributors

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"
)

// Token purposes. Access and refresh tokens for one session share their
// pair id, user id, and role claims and differ only in purpose and TTL.
type Purpose string

const (
	PurposeAccess  Purpose = "access"
	PurposeRefresh Purpose = "refresh"
)

// Decode failure reasons. All of them match ErrInvalidToken with
// errors.Is, so callers that do not care about the reason can collapse
// them to a single outcome while diagnostics stay distinguishable.
var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = fmt.Errorf("%w: expired", ErrInvalidToken)
	ErrTokenMalformed = fmt.Errorf("%w: malformed", ErrInvalidToken)
	ErrBadSignature   = fmt.Errorf("%w: bad signature", ErrInvalidToken)
)

// Claims is the payload carried by every Userhub session token.
type Claims struct {
	Purpose Purpose `json:"purpose"`
	PairID  string  `json:"id"`
	UserID  string  `json:"user_id"`
	Role    Role    `json:"role"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies compact, self-contained session tokens.
// Tokens are HS256 JWTs with iat and exp stamped at encode time.
type TokenCodec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenCodec creates a TokenCodec. The secret is shared between all
// instances that must verify each other's tokens.
func NewTokenCodec(secret string, accessTTL, refreshTTL time.Duration) (*TokenCodec, error) {
	if secret == "" {
		return nil, oops.Code("TOKEN_CONFIG_INVALID").Errorf("signing secret is required")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, oops.Code("TOKEN_CONFIG_INVALID").
			With("access_ttl", accessTTL.String()).
			With("refresh_ttl", refreshTTL.String()).
			Errorf("token TTLs must be positive")
	}
	return &TokenCodec{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

// TTL returns the configured lifetime for the given purpose.
func (c *TokenCodec) TTL(purpose Purpose) time.Duration {
	if purpose == PurposeRefresh {
		return c.refreshTTL
	}
	return c.accessTTL
}

// Encode mints a signed token for the given purpose. iat is stamped now
// and exp at now plus the purpose's TTL.
func (c *TokenCodec) Encode(purpose Purpose, pairID, userID string, role Role) (string, error) {
	now := time.Now()
	claims := &Claims{
		Purpose: purpose,
		PairID:  pairID,
		UserID:  userID,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.TTL(purpose))),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", oops.Code("TOKEN_SIGN_FAILED").
			With("purpose", string(purpose)).
			Wrap(err)
	}
	return signed, nil
}

// Decode verifies the signature and the expiry of a token and returns
// its claims. Failures are reported as ErrTokenExpired, ErrBadSignature,
// or ErrTokenMalformed; the raw library error is never surfaced. Tokens
// without iat or exp are rejected as malformed.
func (c *TokenCodec) Decode(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, ErrBadSignature
	case err != nil:
		return nil, ErrTokenMalformed
	case !parsed.Valid:
		return nil, ErrTokenMalformed
	case claims.IssuedAt == nil:
		return nil, ErrTokenMalformed
	}
	return claims, nil
}
