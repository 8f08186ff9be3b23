// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Userhub Contributors

package auth

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrUnauthenticated is returned when a request carries no usable
// credential: missing or malformed header, invalid or expired token,
// revoked session, or bad login credentials.
var ErrUnauthenticated = errors.New("unauthenticated")

// ErrUnauthorized is returned when an authenticated principal is not
// permitted to perform the operation.
var ErrUnauthorized = errors.New("unauthorized")

// FieldError is a single validation failure for one request field.
type FieldError struct {
	Message string `json:"message"`
	Key     string `json:"key"`
}

// InvalidRequestError carries field-keyed validation failures. The
// transport layer renders it as a 400 response with the Fields map as
// the body.
type InvalidRequestError struct {
	Fields map[string][]FieldError
}

// NewInvalidRequestError creates an InvalidRequestError with a single
// entry for the given field.
func NewInvalidRequestError(field, message, key string) *InvalidRequestError {
	return &InvalidRequestError{
		Fields: map[string][]FieldError{
			field: {{Message: message, Key: key}},
		},
	}
}

func (e *InvalidRequestError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fmt.Sprintf("invalid request: %s", strings.Join(fields, ", "))
}

// invalidCodeError is the single generic failure for the reset-password
// flow. Code not found, email mismatch, and expiry all produce this same
// error so a caller cannot probe which codes exist or are still alive.
func invalidCodeError() *InvalidRequestError {
	return NewInvalidRequestError("code", "Invalid code", "error_invalid_code")
}
