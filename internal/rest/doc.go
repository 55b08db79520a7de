// Copyright (c) 2026 The passkeyblog Authors
//
// This file is part of the passkeyblog backend.
//
// Licensed under the MIT License. See the LICENSE file for details.

// Package rest is the HTTP transport boundary of the passkey backend. It
// exposes the ceremony workflow over six /auth routes, owns the encrypted
// cookie session that carries per-ceremony state between the start and
// finish of each ceremony, and maps workflow failures to the wire error
// codes clients rely on.
package rest
