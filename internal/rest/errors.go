// Copyright (c) 2026 The passkeyblog Authors
//
// This file is part of the passkeyblog backend.
//
// Licensed under the MIT License. See the LICENSE file for details.

package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/passkeyblog/backend/pkg/passkey"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Default().Error("failed to encode response", "error", err)
	}
}

// writeErrorCode writes an error body with just a code.
func writeErrorCode(w http.ResponseWriter, statusCode int, code string) {
	writeJSON(w, statusCode, ErrorResponse{Code: code})
}

// writeValidationError writes a 400 with field-level detail.
func writeValidationError(w http.ResponseWriter, fields ...string) {
	resp := ErrorResponse{Code: CodeValidationError}
	for _, field := range fields {
		resp.Errors = append(resp.Errors, FieldError{Field: field})
	}
	writeJSON(w, http.StatusBadRequest, resp)
}

// writeWorkflowError maps a workflow failure to the wire contract. The
// domain conflicts get specific 400 codes; store and ceremony failures are
// opaque to clients and surface as a generic 500, with the cause logged by
// the handler.
func (h *Handlers) writeWorkflowError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case passkey.IsUserAlreadyExists(err):
		writeErrorCode(w, http.StatusBadRequest, CodeUserAlreadyExists)
	case passkey.IsAuthenticatorNotFound(err):
		writeErrorCode(w, http.StatusBadRequest, CodeInvalidRequest)
	default:
		h.logger.ErrorContext(r.Context(), "request failed",
			"path", r.URL.Path, "error", err)
		writeErrorCode(w, http.StatusInternalServerError, CodeInternalServerError)
	}
}
