// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Userhub Contributors

// Package httpapi exposes the authentication service over HTTP.
//
// Routes are declared against an AuthService and guarded by the
// Authorizer middleware, which resolves the request principal from the
// Authorization header and enforces a per-route access Policy before
// the handler runs. Error rendering is centralized in writeError so
// every handler maps domain errors to status codes the same way.
package httpapi
