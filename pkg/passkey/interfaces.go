// Copyright (c) 2026 The passkeyblog Authors
//
// This file is part of the passkeyblog backend.
//
// Licensed under the MIT License. See the LICENSE file for details.

package passkey

import (
	"context"

	"github.com/passkeyblog/backend/pkg/identity"
)

// Store is the credential persistence contract the workflow depends on.
// Implementations report absence with the package sentinels and wrap every
// other failure (I/O, corrupt data) in *StoreError.
type Store interface {
	// FindUserIDByUserName resolves a user name to its user ID.
	// Returns ErrUserNotFound if no identity owns the name. More than one
	// record sharing a name is a store integrity error, not a hit.
	FindUserIDByUserName(ctx context.Context, name identity.UserName) (identity.UserID, error)

	// FindUser retrieves a user record by ID.
	// Returns ErrUserNotFound if the user does not exist.
	FindUser(ctx context.Context, userID identity.UserID) (*UserRecord, error)

	// FindCredential retrieves the credential identified by
	// (userID, credentialID). Returns ErrCredentialNotFound if absent.
	FindCredential(ctx context.Context, userID identity.UserID, credentialID string) (*Credential, error)

	// CreateUserWithCredential writes the user record and its first
	// credential record atomically: either both are written or neither
	// is. Returns ErrUserAlreadyExists when either key is already taken,
	// so a duplicate registration never partially succeeds.
	CreateUserWithCredential(ctx context.Context, params CreateUserParams) error

	// UpdateCredentialCounter persists the signature-use counter after a
	// verified authentication. Returns ErrCredentialNotFound if the
	// credential vanished.
	UpdateCredentialCounter(ctx context.Context, userID identity.UserID, credentialID string, signCount uint32, cloneWarning bool) error
}
