// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Userhub Contributors

package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/userhub/userhub/internal/auth"
	"github.com/userhub/userhub/pkg/errutil"
)

// messageBody is the generic single-message error payload.
type messageBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response body", "error", err)
	}
}

// writeError maps domain errors to HTTP responses:
//
//	InvalidRequestError  400 with the field-error map as body
//	ErrUnauthenticated   401 with an empty object body
//	ErrUnauthorized      403 with an access_not_allowed message
//	ErrNotFound          404
//	anything else        500, logged with its error code and context
//
// The 401 body is deliberately an empty object: which check failed
// (missing header, bad token, revoked session, unknown user) must not
// be distinguishable by the client.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var invalid *auth.InvalidRequestError
	switch {
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusBadRequest, invalid.Fields)
	case errors.Is(err, auth.ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, struct{}{})
	case errors.Is(err, auth.ErrUnauthorized):
		writeJSON(w, http.StatusForbidden, messageBody{Message: "access_not_allowed"})
	case errors.Is(err, auth.ErrNotFound):
		writeJSON(w, http.StatusNotFound, messageBody{Message: "not_found"})
	default:
		errutil.LogError(logger, "request failed", err)
		writeJSON(w, http.StatusInternalServerError, messageBody{Message: "internal_error"})
	}
}

// decodeBody parses a JSON request body into dst. A body that does not
// parse is a client error, reported in the same field-error shape the
// validators use.
func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return auth.NewInvalidRequestError("body", "Invalid request body", "error_invalid_body")
	}
	return nil
}
