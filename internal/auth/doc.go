// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Userhub Contributors

// Package auth provides the authentication and session-token lifecycle
// for Userhub.
//
// # Domain Types
//
// Domain types (User, SessionPair, ResetRequest) should be created using
// their respective constructors:
//   - NewUser - creates a User with a normalized email and hashed password
//   - NewResetRequest - creates a time-boxed password-reset request
//
// Session pairs are minted only by the Service (login and refresh
// rotation); direct construction bypasses token signing.
//
// # Service
//
// Service coordinates the whole token lifecycle: login, refresh, logout,
// authenticate, authorize, and the password-reset and change-password
// flows. It is created with NewService, which validates dependencies.
//
// A token's cryptographic validity is necessary but not sufficient for
// authentication: the literal token string must also appear in the
// owning user's stored session pairs, so logout and rotation revoke
// tokens that are otherwise unexpired and correctly signed.
package auth
