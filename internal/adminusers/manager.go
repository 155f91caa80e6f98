// Package adminusers manages operator accounts: listing, creation with
// local validation, and guarded delete/activate/deactivate. The guards are
// an authorization boundary: super_admin accounts and the caller's own
// account can never be acted on, re-checked against a fresh list right
// before dispatch so a stale view cannot slip through.
package adminusers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gurulink/crm-dashboard/internal/backend"
)

// Gateway is the slice of the admin API client the manager needs
type Gateway interface {
	ListAdminUsers(ctx context.Context) ([]backend.AdminUser, error)
	CreateAdminUser(ctx context.Context, username, password, role string) error
	DeleteAdminUser(ctx context.Context, userID int) error
	ActivateAdminUser(ctx context.Context, userID int) error
	DeactivateAdminUser(ctx context.Context, userID int) error
}

var (
	ErrUsernameTooShort = errors.New("username must be at least 3 characters")
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrInvalidRole      = errors.New("role must be admin or viewer")
	ErrProtectedAccount = errors.New("cannot modify a super admin account")
	ErrOwnAccount       = errors.New("cannot modify your own account")
	ErrUnknownUser      = errors.New("admin user not found")
)

// CreateInput is a new operator account request
type CreateInput struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	Role            string `json:"role"`
}

// Validate applies the creation rules. super_admin is deliberately not
// creatable through this interface.
func (in CreateInput) Validate() error {
	if len(strings.TrimSpace(in.Username)) < 3 {
		return ErrUsernameTooShort
	}
	if len(in.Password) < 6 {
		return ErrPasswordTooShort
	}
	if in.Password != in.ConfirmPassword {
		return ErrPasswordMismatch
	}
	if in.Role != backend.RoleAdmin && in.Role != backend.RoleViewer {
		return ErrInvalidRole
	}
	return nil
}

// Manager caches the operator list and applies local mutations only after
// the backend confirms.
type Manager struct {
	gateway Gateway

	mu    sync.RWMutex
	users []backend.AdminUser
}

// NewManager creates a manager with an empty cache
func NewManager(gateway Gateway) *Manager {
	return &Manager{gateway: gateway}
}

// Refresh replaces the cached list with backend truth
func (m *Manager) Refresh(ctx context.Context) error {
	users, err := m.gateway.ListAdminUsers(ctx)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.users = users
	m.mu.Unlock()
	return nil
}

// Users returns a copy of the cached operator list
func (m *Manager) Users() []backend.AdminUser {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]backend.AdminUser, len(m.users))
	copy(out, m.users)
	return out
}

// Create validates and creates a new operator account, then refreshes the
// cache so the new row carries backend-assigned fields.
func (m *Manager) Create(ctx context.Context, in CreateInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	if err := m.gateway.CreateAdminUser(ctx, strings.TrimSpace(in.Username), in.Password, in.Role); err != nil {
		return err
	}
	return m.Refresh(ctx)
}

// guard refetches the list and rejects actions on protected targets before
// anything is dispatched. Returns the target row from the fresh list.
func (m *Manager) guard(ctx context.Context, callerID, userID int) (*backend.AdminUser, error) {
	users, err := m.gateway.ListAdminUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("revalidating admin users: %w", err)
	}
	m.mu.Lock()
	m.users = users
	m.mu.Unlock()

	for i := range users {
		if users[i].ID != userID {
			continue
		}
		if userID == callerID {
			return nil, ErrOwnAccount
		}
		if users[i].Role == backend.RoleSuperAdmin {
			return nil, ErrProtectedAccount
		}
		return &users[i], nil
	}
	return nil, ErrUnknownUser
}

// Delete removes an operator account. The cached row is dropped only after
// the backend confirms.
func (m *Manager) Delete(ctx context.Context, callerID, userID int) error {
	if _, err := m.guard(ctx, callerID, userID); err != nil {
		return err
	}
	if err := m.gateway.DeleteAdminUser(ctx, userID); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].ID == userID {
			m.users = append(m.users[:i], m.users[i+1:]...)
			break
		}
	}
	return nil
}

// Activate re-enables an operator account
func (m *Manager) Activate(ctx context.Context, callerID, userID int) error {
	return m.setActive(ctx, callerID, userID, true)
}

// Deactivate disables an operator account
func (m *Manager) Deactivate(ctx context.Context, callerID, userID int) error {
	return m.setActive(ctx, callerID, userID, false)
}

func (m *Manager) setActive(ctx context.Context, callerID, userID int, active bool) error {
	if _, err := m.guard(ctx, callerID, userID); err != nil {
		return err
	}

	var err error
	if active {
		err = m.gateway.ActivateAdminUser(ctx, userID)
	} else {
		err = m.gateway.DeactivateAdminUser(ctx, userID)
	}
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].ID == userID {
			m.users[i].IsActive = active
			break
		}
	}
	return nil
}
