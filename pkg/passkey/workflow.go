// Copyright (c) 2026 The passkeyblog Authors
//
// This file is part of the passkeyblog backend.
//
// Licensed under the MIT License. See the LICENSE file for details.

package passkey

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"

	"github.com/passkeyblog/backend/pkg/identity"
)

// Workflow orchestrates the four ceremony steps and the session check over
// a credential store. It is safe for concurrent use; all per-ceremony state
// lives in the caller's session.
type Workflow struct {
	webauthn *webauthn.WebAuthn
	config   *Config
	store    Store
}

// NewWorkflow creates a Workflow from a validated relying-party
// configuration and a credential store.
func NewWorkflow(config *Config, store Store) (*Workflow, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}

	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	wa, err := webauthn.New(config.toWebAuthnConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create webauthn instance: %w", err)
	}

	return &Workflow{
		webauthn: wa,
		config:   config,
		store:    store,
	}, nil
}

// Config returns the workflow's relying-party configuration.
func (w *Workflow) Config() *Config {
	return w.config
}

// RegistrationStart is the outcome of StartRegistration. The caller stores
// UserID, UserName, Challenge and Expires in the session before sending
// Options to the browser.
type RegistrationStart struct {
	UserID    identity.UserID
	UserName  identity.UserName
	Options   *protocol.CredentialCreation
	Challenge string
	Expires   time.Time
}

// StartRegistration begins a registration ceremony for a new user name.
// It fails with ErrUserAlreadyExists when the name is taken, and otherwise
// mints a fresh UserID and builds creation options requiring a resident
// key with user verification, offering ES256 and RS256, with no excluded
// credentials.
func (w *Workflow) StartRegistration(ctx context.Context, userName identity.UserName) (*RegistrationStart, error) {
	_, err := w.store.FindUserIDByUserName(ctx, userName)
	switch {
	case err == nil:
		return nil, ErrUserAlreadyExists
	case IsUserNotFound(err):
		// Name is free.
	default:
		return nil, err
	}

	userID := identity.NewUserID()
	user := &ceremonyUser{id: userID, name: userName.String()}

	creation, session, err := w.webauthn.BeginRegistration(user,
		webauthn.WithAuthenticatorSelection(protocol.AuthenticatorSelection{
			ResidentKey:      protocol.ResidentKeyRequirementRequired,
			UserVerification: protocol.VerificationRequired,
		}),
		webauthn.WithCredentialParameters(credentialParameters()),
		webauthn.WithExclusions(nil),
	)
	if err != nil {
		return nil, NewCeremonyError("begin registration", err)
	}

	return &RegistrationStart{
		UserID:    userID,
		UserName:  userName,
		Options:   creation,
		Challenge: session.Challenge,
		Expires:   session.Expires,
	}, nil
}

// CompleteRegistrationParams carries the authenticator's attestation
// response together with the session state captured at StartRegistration.
type CompleteRegistrationParams struct {
	Response  *protocol.ParsedCredentialCreationData
	UserID    identity.UserID
	UserName  identity.UserName
	Challenge string
	Expires   time.Time
}

// RegistrationCompletion is the outcome of a verified registration.
type RegistrationCompletion struct {
	UserID   identity.UserID
	Verified bool
}

// CompleteRegistration verifies the attestation response against the
// outstanding challenge, origin and RP ID, requiring user verification,
// then atomically creates the user and its credential. A verification
// result missing a credential ID, public key or transport list is a
// CeremonyError, never a partial success.
func (w *Workflow) CompleteRegistration(ctx context.Context, params CompleteRegistrationParams) (*RegistrationCompletion, error) {
	if params.Response == nil {
		return nil, NewCeremonyError("complete registration", errors.New("missing attestation response"))
	}

	user := &ceremonyUser{id: params.UserID, name: params.UserName.String()}
	session := webauthn.SessionData{
		Challenge:        params.Challenge,
		UserID:           params.UserID.Bytes(),
		Expires:          params.Expires,
		UserVerification: protocol.VerificationRequired,
		CredParams:       credentialParameters(),
	}

	credential, err := w.webauthn.CreateCredential(user, session, params.Response)
	if err != nil {
		return nil, NewCeremonyError("verify registration", err)
	}
	if len(credential.ID) == 0 || len(credential.PublicKey) == 0 || len(credential.Transport) == 0 {
		return nil, NewCeremonyError("verify registration", errors.New("unexpected registration info"))
	}

	err = w.store.CreateUserWithCredential(ctx, CreateUserParams{
		UserID:       params.UserID,
		UserName:     params.UserName,
		CredentialID: credentialIDString(credential.ID),
		PublicKey:    credential.PublicKey,
		SignCount:    credential.Authenticator.SignCount,
		Transports:   credential.Transport,
	})
	if err != nil {
		return nil, err
	}

	return &RegistrationCompletion{UserID: params.UserID, Verified: true}, nil
}

// AuthenticationStart is the outcome of StartAuthentication. The caller
// stores Challenge and Expires in the session before sending Options to
// the browser.
type AuthenticationStart struct {
	Options   *protocol.CredentialAssertion
	Challenge string
	Expires   time.Time
}

// StartAuthentication begins a discoverable-credential authentication
// ceremony: no allow list, user verification preferred.
func (w *Workflow) StartAuthentication(ctx context.Context) (*AuthenticationStart, error) {
	assertion, session, err := w.webauthn.BeginDiscoverableLogin(
		webauthn.WithUserVerification(protocol.VerificationPreferred),
	)
	if err != nil {
		return nil, NewCeremonyError("begin authentication", err)
	}

	return &AuthenticationStart{
		Options:   assertion,
		Challenge: session.Challenge,
		Expires:   session.Expires,
	}, nil
}

// CompleteAuthenticationParams carries the authenticator's assertion
// response together with the session state captured at
// StartAuthentication.
type CompleteAuthenticationParams struct {
	Response  *protocol.ParsedCredentialAssertionData
	Challenge string
	Expires   time.Time
}

// AuthenticationCompletion is the outcome of a verified authentication.
type AuthenticationCompletion struct {
	UserID   identity.UserID
	Verified bool
}

// CompleteAuthentication resolves the assertion's user handle to a UserID,
// loads the referenced credential, and validates the signed assertion
// against the outstanding challenge, origin, RP ID and stored public key.
// An unknown (user, credential) pair fails with ErrAuthenticatorNotFound.
// On success the stored signature counter is advanced.
func (w *Workflow) CompleteAuthentication(ctx context.Context, params CompleteAuthenticationParams) (*AuthenticationCompletion, error) {
	if params.Response == nil {
		return nil, NewCeremonyError("complete authentication", errors.New("missing assertion response"))
	}

	userHandle := params.Response.Response.UserHandle
	if len(userHandle) == 0 {
		return nil, NewCeremonyError("complete authentication", errors.New("missing user handle"))
	}
	userID, err := identity.ParseUserID(string(userHandle))
	if err != nil {
		return nil, NewCeremonyError("complete authentication", err)
	}

	credentialID := params.Response.ID
	stored, err := w.store.FindCredential(ctx, userID, credentialID)
	if err != nil {
		if IsCredentialNotFound(err) {
			return nil, ErrAuthenticatorNotFound
		}
		return nil, err
	}

	waCredential, err := stored.toWebAuthn()
	if err != nil {
		return nil, NewStoreError("decode credential", err)
	}

	// Discoverable validation requires an empty session user ID; the user
	// is identified by the handle inside the assertion instead.
	session := webauthn.SessionData{
		Challenge:        params.Challenge,
		Expires:          params.Expires,
		UserVerification: protocol.VerificationPreferred,
	}

	handler := func(rawID, handle []byte) (webauthn.User, error) {
		return &ceremonyUser{
			id:          userID,
			name:        userID.String(),
			credentials: []webauthn.Credential{waCredential},
		}, nil
	}

	_, validated, err := w.webauthn.ValidatePasskeyLogin(handler, session, params.Response)
	if err != nil {
		return nil, NewCeremonyError("verify authentication", err)
	}
	if validated.Authenticator.CloneWarning {
		return nil, NewCeremonyError("verify authentication", errors.New("signature counter regression, possible cloned authenticator"))
	}

	err = w.store.UpdateCredentialCounter(ctx, userID, credentialID,
		validated.Authenticator.SignCount, validated.Authenticator.CloneWarning)
	if err != nil {
		return nil, err
	}

	return &AuthenticationCompletion{UserID: userID, Verified: true}, nil
}

// SessionStatus is the outcome of CheckSession.
type SessionStatus struct {
	IsLoggedIn bool
	UserName   identity.UserName
}

// CheckSession resolves a logged-in session's user ID to its user record.
// Fails with ErrUserNotFound when the identity no longer exists.
func (w *Workflow) CheckSession(ctx context.Context, userID identity.UserID) (*SessionStatus, error) {
	user, err := w.store.FindUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &SessionStatus{IsLoggedIn: true, UserName: user.UserName}, nil
}
