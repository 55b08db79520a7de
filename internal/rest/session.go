// Copyright (c) 2026 The passkeyblog Authors
//
// This file is part of the passkeyblog backend.
//
// Licensed under the MIT License. See the LICENSE file for details.

package rest

import (
	"net/http"
	"time"

	"github.com/gorilla/sessions"

	"github.com/passkeyblog/backend/internal/config"
)

// Session value keys. The cookie is encrypted, so the challenge can live
// in it without being readable by the client.
const (
	sessionKeyChallenge        = "challenge"
	sessionKeyChallengeExpires = "challengeExpires"
	sessionKeyUserID           = "userID"
	sessionKeyUserName         = "userName"
	sessionKeyIsLoggedIn       = "isLoggedIn"
)

// sessionState is the decoded view of the cookie session.
type sessionState struct {
	Challenge        string
	ChallengeExpires time.Time
	UserID           string
	UserName         string
	IsLoggedIn       bool
}

// sessionManager wraps the encrypted cookie store.
type sessionManager struct {
	store *sessions.CookieStore
	name  string
}

func newSessionManager(cfg config.SessionConfig) *sessionManager {
	store := sessions.NewCookieStore([]byte(cfg.HashKey), []byte(cfg.BlockKey))
	store.Options = &sessions.Options{
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   int(cfg.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &sessionManager{store: store, name: cfg.CookieName}
}

// load decodes the request's session cookie. A missing or undecodable
// cookie yields a fresh empty session, never an error; a client with a
// stale key set simply starts over.
func (m *sessionManager) load(r *http.Request) (*sessions.Session, sessionState) {
	session, _ := m.store.Get(r, m.name)

	var state sessionState
	if challenge, ok := session.Values[sessionKeyChallenge].(string); ok {
		state.Challenge = challenge
	}
	if expires, ok := session.Values[sessionKeyChallengeExpires].(int64); ok {
		state.ChallengeExpires = time.Unix(expires, 0).UTC()
	}
	if userID, ok := session.Values[sessionKeyUserID].(string); ok {
		state.UserID = userID
	}
	if userName, ok := session.Values[sessionKeyUserName].(string); ok {
		state.UserName = userName
	}
	if loggedIn, ok := session.Values[sessionKeyIsLoggedIn].(bool); ok {
		state.IsLoggedIn = loggedIn
	}
	return session, state
}

// setChallenge stores a pending ceremony's challenge and expiry.
func setChallenge(session *sessions.Session, challenge string, expires time.Time) {
	session.Values[sessionKeyChallenge] = challenge
	session.Values[sessionKeyChallengeExpires] = expires.Unix()
}

// clearChallenge removes the pending ceremony state. Challenges are
// single-use; a finished ceremony, successful or not, consumes its
// challenge.
func clearChallenge(session *sessions.Session) {
	delete(session.Values, sessionKeyChallenge)
	delete(session.Values, sessionKeyChallengeExpires)
}

// setPendingUser stores the identity minted at registration start.
func setPendingUser(session *sessions.Session, userID, userName string) {
	session.Values[sessionKeyUserID] = userID
	session.Values[sessionKeyUserName] = userName
}

// setLoggedIn marks the session authenticated.
func setLoggedIn(session *sessions.Session, userID, userName string) {
	session.Values[sessionKeyUserID] = userID
	session.Values[sessionKeyUserName] = userName
	session.Values[sessionKeyIsLoggedIn] = true
}

// reset drops every session value and expires the cookie.
func reset(session *sessions.Session) {
	for key := range session.Values {
		delete(session.Values, key)
	}
	session.Options.MaxAge = -1
}
