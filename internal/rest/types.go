// Copyright (c) 2026 The passkeyblog Authors
//
// This file is part of the passkeyblog backend.
//
// Licensed under the MIT License. See the LICENSE file for details.

package rest

// Wire error codes.
const (
	CodeValidationError     = "ValidationError"
	CodeUserAlreadyExists   = "UserAlreadyExists"
	CodeInvalidRequest      = "InvalidRequest"
	CodeInternalServerError = "InternalServerError"
)

// ErrorResponse is the error body for all failed requests.
type ErrorResponse struct {
	Code   string       `json:"code"`
	Errors []FieldError `json:"errors,omitempty"`
}

// FieldError names one request field that failed validation.
type FieldError struct {
	Field string `json:"field"`
}

// GenerateRegistrationOptionsRequest is the body of
// POST /auth/generate-registration-options.
type GenerateRegistrationOptionsRequest struct {
	UserName string `json:"userName"`
}

// VerifyResponse is the body of a successful verify-registration or
// verify-authentication call.
type VerifyResponse struct {
	Verified bool `json:"verified"`
}

// SessionUser is the user payload of a logged-in SessionResponse.
type SessionUser struct {
	UserName string `json:"userName"`
}

// SessionResponse is the body of GET /auth/session. User is present only
// when the session is logged in.
type SessionResponse struct {
	IsLoggedIn bool         `json:"isLoggedIn"`
	User       *SessionUser `json:"user,omitempty"`
}

// LogoutResponse is the body of POST /auth/logout.
type LogoutResponse struct {
	Success bool `json:"success"`
}
