// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Userhub Contributors

package auth

import "github.com/oklog/ulid/v2"

// SessionPair is one logical session's linked access and refresh tokens.
// The pair id correlates the two tokens with the stored session entry;
// it survives rotation, as does the refresh token. Pairs are created by
// login or refresh rotation, destroyed individually by logout, and en
// masse by password reset or change.
type SessionPair struct {
	ID      ulid.ULID `json:"id"`
	Access  string    `json:"access"`
	Refresh string    `json:"refresh"`
}
