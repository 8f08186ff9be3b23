// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Userhub Contributors

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Role is a user's authorization role.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Profile holds the user's display data. Field validation lives with the
// profile endpoints, not here.
type Profile struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// User is an account with its live session state. TokenPairs is the
// ordered list of active sessions, unique by pair id. ResetRequest is
// the at-most-one active password-reset request; any newer request
// replaces it.
type User struct {
	ID           ulid.ULID
	Email        string
	Role         Role
	PasswordHash string
	TokenPairs   []SessionPair
	ResetRequest *ResetRequest
	Profile      Profile
	CreatedAt    time.Time
	LastVisitAt  *time.Time
}

// NewUser creates a User with a normalized email and the given password
// hash. Role defaults to RoleUser when empty.
func NewUser(email, passwordHash string, role Role) (*User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, oops.Code("USER_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	if passwordHash == "" {
		return nil, oops.Code("USER_INVALID_HASH").Errorf("password hash cannot be empty")
	}
	if role == "" {
		role = RoleUser
	}
	return &User{
		ID:           ulid.Make(),
		Email:        email,
		Role:         role,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// NormalizeEmail lowercases and trims an email address. Uniqueness and
// lookups are defined over the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Pair returns the session pair with the given id, if present.
func (u *User) Pair(pairID string) (*SessionPair, bool) {
	for i := range u.TokenPairs {
		if u.TokenPairs[i].ID.String() == pairID {
			return &u.TokenPairs[i], true
		}
	}
	return nil, false
}

// RemovePair removes the session pair with the given id. Removing an
// absent id is not an error.
func (u *User) RemovePair(pairID string) {
	kept := u.TokenPairs[:0]
	for _, p := range u.TokenPairs {
		if p.ID.String() != pairID {
			kept = append(kept, p)
		}
	}
	u.TokenPairs = kept
}

// HasAccessToken reports whether the literal token string is one of the
// user's current access tokens.
func (u *User) HasAccessToken(token string) bool {
	for _, p := range u.TokenPairs {
		if p.Access == token {
			return true
		}
	}
	return false
}

// ClearSessions retires every session and any active reset request.
// Used by the password reset and change flows.
func (u *User) ClearSessions() {
	u.TokenPairs = nil
	u.ResetRequest = nil
}

// UserDirectory persists User aggregates including their live session
// lists. Email lookups are case-insensitive exact matches over the
// normalized email.
type UserDirectory interface {
	// FindByID retrieves a user by id.
	FindByID(ctx context.Context, id ulid.ULID) (*User, error)

	// FindByEmail retrieves a user by email (case-insensitive).
	FindByEmail(ctx context.Context, email string) (*User, error)

	// FindByActiveResetCode retrieves the user whose active reset
	// request carries the given code.
	FindByActiveResetCode(ctx context.Context, code string) (*User, error)

	// Create stores a new user.
	Create(ctx context.Context, user *User) error

	// Save writes back the full user aggregate, session state included.
	Save(ctx context.Context, user *User) error

	// UpdateLastVisit records the user's last visit time.
	UpdateLastVisit(ctx context.Context, id ulid.ULID, at time.Time) error
}
