// Copyright (c) 2026 The passkeyblog Authors
//
// This file is part of the passkeyblog backend.
//
// Licensed under the MIT License. See the LICENSE file for details.

package passkey

import (
	"context"
	"sync"
	"time"

	"github.com/passkeyblog/backend/pkg/identity"
)

// MemoryStore is an in-memory implementation of Store with the same
// uniqueness and atomicity semantics as the DynamoDB store. It backs tests
// and local development.
type MemoryStore struct {
	mu          sync.RWMutex
	users       map[identity.UserID]*UserRecord
	userNames   map[identity.UserName]identity.UserID
	credentials map[credentialKey]*Credential
}

type credentialKey struct {
	userID       identity.UserID
	credentialID string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[identity.UserID]*UserRecord),
		userNames:   make(map[identity.UserName]identity.UserID),
		credentials: make(map[credentialKey]*Credential),
	}
}

// FindUserIDByUserName resolves a user name to its user ID.
func (s *MemoryStore) FindUserIDByUserName(ctx context.Context, name identity.UserName) (identity.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, ok := s.userNames[name]
	if !ok {
		return "", ErrUserNotFound
	}
	return userID, nil
}

// FindUser retrieves a user record by ID.
func (s *MemoryStore) FindUser(ctx context.Context, userID identity.UserID) (*UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

// FindCredential retrieves the credential identified by (userID, credentialID).
func (s *MemoryStore) FindCredential(ctx context.Context, userID identity.UserID, credentialID string) (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	credential, ok := s.credentials[credentialKey{userID: userID, credentialID: credentialID}]
	if !ok {
		return nil, ErrCredentialNotFound
	}
	copied := *credential
	return &copied, nil
}

// CreateUserWithCredential writes the user record and its first credential
// atomically. The whole write fails with ErrUserAlreadyExists when the
// user ID, the user name, or the credential key is already taken.
func (s *MemoryStore) CreateUserWithCredential(ctx context.Context, params CreateUserParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[params.UserID]; ok {
		return ErrUserAlreadyExists
	}
	if _, ok := s.userNames[params.UserName]; ok {
		return ErrUserAlreadyExists
	}
	key := credentialKey{userID: params.UserID, credentialID: params.CredentialID}
	if _, ok := s.credentials[key]; ok {
		return ErrUserAlreadyExists
	}

	now := time.Now().UTC()
	s.users[params.UserID] = &UserRecord{
		UserID:    params.UserID,
		UserName:  params.UserName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.userNames[params.UserName] = params.UserID
	s.credentials[key] = &Credential{
		UserID:       params.UserID,
		CredentialID: params.CredentialID,
		PublicKey:    params.PublicKey,
		SignCount:    params.SignCount,
		Transports:   params.Transports,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	return nil
}

// UpdateCredentialCounter persists a new signature counter value.
func (s *MemoryStore) UpdateCredentialCounter(ctx context.Context, userID identity.UserID, credentialID string, signCount uint32, cloneWarning bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	credential, ok := s.credentials[credentialKey{userID: userID, credentialID: credentialID}]
	if !ok {
		return ErrCredentialNotFound
	}
	credential.SignCount = signCount
	credential.CloneWarning = cloneWarning
	credential.UpdatedAt = time.Now().UTC()
	return nil
}

// Count returns the number of users in the store.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}
