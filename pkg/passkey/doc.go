// Copyright (c) 2026 The passkeyblog Authors
//
// This file is part of the passkeyblog backend.
//
// Licensed under the MIT License. See the LICENSE file for details.

// Package passkey implements the WebAuthn ceremony orchestration for the
// blog's passwordless login: generating registration and authentication
// options, verifying authenticator responses, and the session workflow that
// ties both to the credential store.
//
// The package is transport-agnostic. Callers (the REST layer) own the
// cookie session; they pass the outstanding challenge into the ceremony
// operations and persist the fields each operation hands back. Persistence
// is behind the Store interface; pkg/storage/dynamodb provides the
// production implementation and MemoryStore backs tests and local
// development.
//
// Every operation returns either a typed result or an error from a closed
// set: the sentinel errors in this package, *StoreError for opaque
// persistence failures, and *CeremonyError for protocol-level failures.
// Callers are expected to handle each variant; anything unrecognized maps
// to a generic internal error.
package passkey
