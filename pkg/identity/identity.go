// Copyright (c) 2026 The passkeyblog Authors
//
// This file is part of the passkeyblog backend.
//
// Licensed under the MIT License. See the LICENSE file for details.

// Package identity defines the validated identifier types used across the
// authentication flow. A UserID or UserName value only exists after its
// input passed the format check, so the rest of the system never has to
// re-validate raw strings.
package identity

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

// UserID is an opaque per-user identifier. It is a version-4 UUID, used as
// the partition key in the credential store and, as UTF-8 bytes, as the
// WebAuthn user handle.
type UserID string

// UserName is a human-chosen handle, 1-10 ASCII letters, unique across all
// identities.
type UserName string

var (
	userIDPattern   = regexp.MustCompile(`^(?i)[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
	userNamePattern = regexp.MustCompile(`^[a-zA-Z]{1,10}$`)
)

// ParseError reports a value that failed identity validation. Field names
// the offending input field so transport layers can build field-level
// validation responses.
type ParseError struct {
	Field string
	Value string
}

// Error returns the error message. The offending value is intentionally not
// included; it may be attacker-controlled.
func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid %s", e.Field)
}

// ParseUserID validates value as a version-4 UUID and returns it as a
// UserID. Only version-4 UUIDs pass; a syntactically valid UUID of another
// version is rejected.
func ParseUserID(value string) (UserID, error) {
	if !userIDPattern.MatchString(value) {
		return "", &ParseError{Field: "userID", Value: value}
	}
	return UserID(value), nil
}

// ParseUserName validates value as a user name (1-10 ASCII letters).
func ParseUserName(value string) (UserName, error) {
	if !userNamePattern.MatchString(value) {
		return "", &ParseError{Field: "userName", Value: value}
	}
	return UserName(value), nil
}

// NewUserID mints a fresh random UserID.
func NewUserID() UserID {
	return UserID(uuid.NewString())
}

// Bytes returns the UTF-8 bytes of the UserID, the form used as the
// WebAuthn user handle.
func (id UserID) Bytes() []byte {
	return []byte(id)
}

func (id UserID) String() string {
	return string(id)
}

func (n UserName) String() string {
	return string(n)
}
