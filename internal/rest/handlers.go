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
	"time"

	"github.com/go-webauthn/webauthn/protocol"

	"github.com/passkeyblog/backend/pkg/identity"
	"github.com/passkeyblog/backend/pkg/metrics"
	"github.com/passkeyblog/backend/pkg/passkey"
)

// Handlers implements the /auth route handlers over the ceremony workflow
// and the cookie session.
type Handlers struct {
	workflow *passkey.Workflow
	sessions *sessionManager
	logger   *slog.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(workflow *passkey.Workflow, sessions *sessionManager, logger *slog.Logger) *Handlers {
	return &Handlers{
		workflow: workflow,
		sessions: sessions,
		logger:   logger,
	}
}

// SessionHandler handles GET /auth/session. A request without a valid
// logged-in session is a soft negative, not an error.
func (h *Handlers) SessionHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	outcome := metrics.StatusSuccess
	defer func() {
		metrics.RecordCeremony(metrics.CeremonySessionCheck, outcome, time.Since(start).Seconds())
	}()

	_, state := h.sessions.load(r)
	if !state.IsLoggedIn || state.UserID == "" {
		writeJSON(w, http.StatusOK, SessionResponse{IsLoggedIn: false})
		return
	}

	userID, err := identity.ParseUserID(state.UserID)
	if err != nil {
		// A cookie that decrypted but carries a malformed user ID was
		// not produced by this server.
		writeJSON(w, http.StatusOK, SessionResponse{IsLoggedIn: false})
		return
	}

	status, err := h.workflow.CheckSession(r.Context(), userID)
	if err != nil {
		outcome = metrics.StatusError
		if passkey.IsUserNotFound(err) {
			// The session outlived the account.
			writeJSON(w, http.StatusBadRequest, SessionResponse{IsLoggedIn: false})
			return
		}
		h.writeWorkflowError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, SessionResponse{
		IsLoggedIn: status.IsLoggedIn,
		User:       &SessionUser{UserName: status.UserName.String()},
	})
}

// LogoutHandler handles POST /auth/logout. Logout is idempotent and
// cannot fail: with or without a session the outcome is the same.
func (h *Handlers) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	session, _ := h.sessions.load(r)
	reset(session)
	if err := session.Save(r, w); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to clear session", "error", err)
	}
	writeJSON(w, http.StatusOK, LogoutResponse{Success: true})
}

// GenerateRegistrationOptionsHandler handles
// POST /auth/generate-registration-options.
func (h *Handlers) GenerateRegistrationOptionsHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req GenerateRegistrationOptionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "userName")
		return
	}
	userName, err := identity.ParseUserName(req.UserName)
	if err != nil {
		writeValidationError(w, "userName")
		return
	}

	result, err := h.workflow.StartRegistration(r.Context(), userName)
	if err != nil {
		metrics.RecordCeremony(metrics.CeremonyRegistrationStart, metrics.StatusError, time.Since(start).Seconds())
		h.writeWorkflowError(w, r, err)
		return
	}

	session, _ := h.sessions.load(r)
	setChallenge(session, result.Challenge, result.Expires)
	setPendingUser(session, result.UserID.String(), result.UserName.String())
	if err := session.Save(r, w); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to save session", "error", err)
		writeErrorCode(w, http.StatusInternalServerError, CodeInternalServerError)
		return
	}

	metrics.RecordCeremony(metrics.CeremonyRegistrationStart, metrics.StatusSuccess, time.Since(start).Seconds())
	writeJSON(w, http.StatusOK, result.Options.Response)
}

// VerifyRegistrationHandler handles POST /auth/verify-registration.
func (h *Handlers) VerifyRegistrationHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	session, state := h.sessions.load(r)

	var missing []string
	if state.Challenge == "" {
		missing = append(missing, "challenge")
	}
	if state.UserID == "" {
		missing = append(missing, "userID")
	}
	if state.UserName == "" {
		missing = append(missing, "userName")
	}
	if len(missing) > 0 {
		writeValidationError(w, missing...)
		return
	}

	userID, err := identity.ParseUserID(state.UserID)
	if err != nil {
		writeValidationError(w, "userID")
		return
	}
	userName, err := identity.ParseUserName(state.UserName)
	if err != nil {
		writeValidationError(w, "userName")
		return
	}

	response, err := protocol.ParseCredentialCreationResponseBody(r.Body)
	if err != nil {
		writeValidationError(w, "response")
		return
	}

	result, err := h.workflow.CompleteRegistration(r.Context(), passkey.CompleteRegistrationParams{
		Response:  response,
		UserID:    userID,
		UserName:  userName,
		Challenge: state.Challenge,
		Expires:   state.ChallengeExpires,
	})
	if err != nil {
		metrics.RecordCeremony(metrics.CeremonyRegistrationFinish, metrics.StatusError, time.Since(start).Seconds())
		h.writeWorkflowError(w, r, err)
		return
	}

	clearChallenge(session)
	setLoggedIn(session, result.UserID.String(), userName.String())
	if err := session.Save(r, w); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to save session", "error", err)
		writeErrorCode(w, http.StatusInternalServerError, CodeInternalServerError)
		return
	}

	metrics.RecordCeremony(metrics.CeremonyRegistrationFinish, metrics.StatusSuccess, time.Since(start).Seconds())
	writeJSON(w, http.StatusOK, VerifyResponse{Verified: result.Verified})
}

// GenerateAuthenticationOptionsHandler handles
// POST /auth/generate-authentication-options.
func (h *Handlers) GenerateAuthenticationOptionsHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	result, err := h.workflow.StartAuthentication(r.Context())
	if err != nil {
		metrics.RecordCeremony(metrics.CeremonyAuthenticationStart, metrics.StatusError, time.Since(start).Seconds())
		h.writeWorkflowError(w, r, err)
		return
	}

	session, _ := h.sessions.load(r)
	setChallenge(session, result.Challenge, result.Expires)
	if err := session.Save(r, w); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to save session", "error", err)
		writeErrorCode(w, http.StatusInternalServerError, CodeInternalServerError)
		return
	}

	metrics.RecordCeremony(metrics.CeremonyAuthenticationStart, metrics.StatusSuccess, time.Since(start).Seconds())
	writeJSON(w, http.StatusOK, result.Options.Response)
}

// VerifyAuthenticationHandler handles POST /auth/verify-authentication.
func (h *Handlers) VerifyAuthenticationHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	session, state := h.sessions.load(r)
	if state.Challenge == "" {
		writeValidationError(w, "challenge")
		return
	}

	response, err := protocol.ParseCredentialRequestResponseBody(r.Body)
	if err != nil {
		writeValidationError(w, "response")
		return
	}

	result, err := h.workflow.CompleteAuthentication(r.Context(), passkey.CompleteAuthenticationParams{
		Response:  response,
		Challenge: state.Challenge,
		Expires:   state.ChallengeExpires,
	})
	if err != nil {
		metrics.RecordCeremony(metrics.CeremonyAuthenticationFinish, metrics.StatusError, time.Since(start).Seconds())
		h.writeWorkflowError(w, r, err)
		return
	}

	// The assertion carries no user name, so resolve it for the session.
	status, err := h.workflow.CheckSession(r.Context(), result.UserID)
	if err != nil {
		metrics.RecordCeremony(metrics.CeremonyAuthenticationFinish, metrics.StatusError, time.Since(start).Seconds())
		h.writeWorkflowError(w, r, err)
		return
	}

	clearChallenge(session)
	setLoggedIn(session, result.UserID.String(), status.UserName.String())
	if err := session.Save(r, w); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to save session", "error", err)
		writeErrorCode(w, http.StatusInternalServerError, CodeInternalServerError)
		return
	}

	metrics.RecordCeremony(metrics.CeremonyAuthenticationFinish, metrics.StatusSuccess, time.Since(start).Seconds())
	writeJSON(w, http.StatusOK, VerifyResponse{Verified: result.Verified})
}

// HealthHandler reports process liveness.
func (h *Handlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
