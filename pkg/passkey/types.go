// Copyright (c) 2026 The passkeyblog Authors
//
// This file is part of the passkeyblog backend.
//
// Licensed under the MIT License. See the LICENSE file for details.

package passkey

import (
	"encoding/base64"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"

	"github.com/passkeyblog/backend/pkg/identity"
)

// UserRecord is one registered identity.
type UserRecord struct {
	UserID    identity.UserID
	UserName  identity.UserName
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Credential is one authenticator bound to one user.
type Credential struct {
	// UserID is the owning user.
	UserID identity.UserID

	// CredentialID is the authenticator-assigned credential identifier,
	// base64url-encoded without padding (the same form the browser sends
	// as the assertion's "id" field).
	CredentialID string

	// PublicKey is the credential's public key in COSE format.
	PublicKey []byte

	// SignCount is the signature-use counter reported by the
	// authenticator, used to detect cloned-credential replay.
	SignCount uint32

	// CloneWarning records that a counter regression was observed.
	CloneWarning bool

	// Transports lists the transport hints reported at registration.
	Transports []protocol.AuthenticatorTransport

	CreatedAt time.Time
	UpdatedAt time.Time
}

// toWebAuthn converts the stored record to the go-webauthn credential used
// during assertion validation.
func (c *Credential) toWebAuthn() (webauthn.Credential, error) {
	rawID, err := base64.RawURLEncoding.DecodeString(c.CredentialID)
	if err != nil {
		return webauthn.Credential{}, err
	}
	return webauthn.Credential{
		ID:        rawID,
		PublicKey: c.PublicKey,
		Transport: c.Transports,
		Authenticator: webauthn.Authenticator{
			SignCount:    c.SignCount,
			CloneWarning: c.CloneWarning,
		},
	}, nil
}

// CreateUserParams carries everything needed for the atomic dual write of a
// user record and its first credential.
type CreateUserParams struct {
	UserID       identity.UserID
	UserName     identity.UserName
	CredentialID string
	PublicKey    []byte
	SignCount    uint32
	Transports   []protocol.AuthenticatorTransport
}

// credentialIDString encodes a raw credential ID the way the browser does
// in the credential's "id" field: base64url without padding.
func credentialIDString(rawID []byte) string {
	return base64.RawURLEncoding.EncodeToString(rawID)
}

// ceremonyUser adapts an identity to the webauthn.User interface for the
// duration of one ceremony. The user handle is the UTF-8 bytes of the
// UserID.
type ceremonyUser struct {
	id          identity.UserID
	name        string
	credentials []webauthn.Credential
}

func (u *ceremonyUser) WebAuthnID() []byte {
	return u.id.Bytes()
}

func (u *ceremonyUser) WebAuthnName() string {
	return u.name
}

func (u *ceremonyUser) WebAuthnDisplayName() string {
	return u.name
}

func (u *ceremonyUser) WebAuthnCredentials() []webauthn.Credential {
	return u.credentials
}
