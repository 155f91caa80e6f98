// Package session persists the dashboard's credentials: the bearer token
// obtained from login and the cached admin profile. Nothing here validates
// the token — that is the backend's job via the verify endpoint.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

// Fixed storage keys, shared by every store implementation.
const (
	TokenKey = "crm_admin_token"
	AdminKey = "crm_admin_user"
)

// ErrNotFound is returned when no value is stored under the requested key.
var ErrNotFound = errors.New("session: not found")

// AdminProfile is the cached admin identity stored alongside the token.
type AdminProfile struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Store is the credential store contract. Implementations must treat the
// token and profile as independent entries under TokenKey and AdminKey.
type Store interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	AdminUser(ctx context.Context) (*AdminProfile, error)
	SetAdminUser(ctx context.Context, admin *AdminProfile) error
	// Clear removes both the token and the cached profile.
	Clear(ctx context.Context) error
}

// MemoryStore is an in-process Store for development and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty in-memory credential store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Token returns the stored bearer token
func (s *MemoryStore) Token(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	token, ok := s.values[TokenKey]
	if !ok {
		return "", ErrNotFound
	}
	return token, nil
}

// SetToken stores the bearer token
func (s *MemoryStore) SetToken(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[TokenKey] = token
	return nil
}

// AdminUser returns the cached admin profile
func (s *MemoryStore) AdminUser(ctx context.Context) (*AdminProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.values[AdminKey]
	if !ok {
		return nil, ErrNotFound
	}
	var admin AdminProfile
	if err := json.Unmarshal([]byte(raw), &admin); err != nil {
		return nil, ErrNotFound
	}
	return &admin, nil
}

// SetAdminUser caches the admin profile as JSON
func (s *MemoryStore) SetAdminUser(ctx context.Context, admin *AdminProfile) error {
	raw, err := json.Marshal(admin)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[AdminKey] = string(raw)
	return nil
}

// Clear removes the token and the cached profile
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, TokenKey)
	delete(s.values, AdminKey)
	return nil
}
