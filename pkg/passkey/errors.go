// Copyright (c) 2026 The passkeyblog Authors
//
// This file is part of the passkeyblog backend.
//
// Licensed under the MIT License. See the LICENSE file for details.

package passkey

import (
	"errors"
	"fmt"
)

// Sentinel errors for the ceremony workflow and the credential store.
var (
	// ErrUserNotFound is returned when a user cannot be found.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists is returned when a registration targets a user
	// name or user ID that is already taken.
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrCredentialNotFound is returned by the store when a credential
	// cannot be found.
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrAuthenticatorNotFound is returned when an assertion references a
	// credential this relying party never stored for the claimed user.
	ErrAuthenticatorNotFound = errors.New("authenticator not found")
)

// StoreError wraps an opaque persistence failure: I/O errors, and
// data-corruption conditions such as two records sharing a user name or a
// stored value failing identity validation. It is never exposed to clients.
type StoreError struct {
	Op  string // Operation that failed
	Err error  // Underlying error
}

// Error returns the error message.
func (e *StoreError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a StoreError for the given operation.
func NewStoreError(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}

// CeremonyError wraps a failure inside a WebAuthn ceremony: a structurally
// invalid authenticator response, a challenge/origin/RP mismatch, an expired
// challenge, or a verification result missing required fields. The cause is
// opaque to clients.
type CeremonyError struct {
	Op  string
	Err error
}

// Error returns the error message.
func (e *CeremonyError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("ceremony: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("ceremony: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *CeremonyError) Unwrap() error {
	return e.Err
}

// NewCeremonyError creates a CeremonyError for the given operation.
func NewCeremonyError(op string, err error) error {
	return &CeremonyError{Op: op, Err: err}
}

// IsUserNotFound returns true if the error indicates a user was not found.
func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

// IsUserAlreadyExists returns true if the error indicates a registration
// conflict.
func IsUserAlreadyExists(err error) bool {
	return errors.Is(err, ErrUserAlreadyExists)
}

// IsCredentialNotFound returns true if the error indicates a credential was
// not found in the store.
func IsCredentialNotFound(err error) bool {
	return errors.Is(err, ErrCredentialNotFound)
}

// IsAuthenticatorNotFound returns true if the error indicates an assertion
// referenced an unknown credential.
func IsAuthenticatorNotFound(err error) bool {
	return errors.Is(err, ErrAuthenticatorNotFound)
}

// IsStoreError returns true if the error is an opaque persistence failure.
func IsStoreError(err error) bool {
	var storeErr *StoreError
	return errors.As(err, &storeErr)
}

// IsCeremonyError returns true if the error is a ceremony verification
// failure.
func IsCeremonyError(err error) bool {
	var ceremonyErr *CeremonyError
	return errors.As(err, &ceremonyErr)
}
