// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Userhub Contributors

package auth

import "fmt"

// DefaultMinPasswordLength is the policy floor used when no explicit
// minimum is configured.
const DefaultMinPasswordLength = 8

// PasswordValidator checks a proposed new password against policy.
// A violation is reported as an *InvalidRequestError keyed on the
// new_password field.
type PasswordValidator interface {
	Validate(password string) error
}

// LengthPolicy is a PasswordValidator enforcing a minimum length.
type LengthPolicy struct {
	Min int
}

// NewLengthPolicy creates a LengthPolicy, applying the default floor
// when min is not positive.
func NewLengthPolicy(min int) *LengthPolicy {
	if min <= 0 {
		min = DefaultMinPasswordLength
	}
	return &LengthPolicy{Min: min}
}

// Validate checks the password against the policy.
func (p *LengthPolicy) Validate(password string) error {
	if len(password) < p.Min {
		return NewInvalidRequestError(
			"new_password",
			fmt.Sprintf("Password must be at least %d characters", p.Min),
			"error_password_too_short",
		)
	}
	return nil
}
