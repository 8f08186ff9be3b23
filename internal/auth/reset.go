// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Userhub Contributors

package auth

import (
	"crypto/rand"
	"time"

	"github.com/samber/oops"
)

// Reset code configuration.
const (
	ResetCodeLength = 6
	ResetCodeExpiry = 24 * time.Hour
)

// resetCodeAlphabet is restricted to uppercase letters so the code stays
// human-enterable over the phone or from an email.
const resetCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// ResetRequest is a time-boxed, single-use code authorizing a password
// change without a prior session. A user holds at most one active
// request; issuing a new one replaces the old.
type ResetRequest struct {
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
}

// NewResetRequest generates a fresh reset request with a random
// fixed-length code.
func NewResetRequest() (*ResetRequest, error) {
	code, err := randomCode(ResetCodeLength)
	if err != nil {
		return nil, oops.Code("RESET_CODE_GENERATE_FAILED").Wrap(err)
	}
	return &ResetRequest{
		Code:      code,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// IsExpired returns true if the request is older than ResetCodeExpiry
// at the given instant.
func (r *ResetRequest) IsExpired(now time.Time) bool {
	return now.After(r.CreatedAt.Add(ResetCodeExpiry))
}

func randomCode(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = resetCodeAlphabet[int(b[i])%len(resetCodeAlphabet)]
	}
	return string(b), nil
}
