// Package api is the dashboard's HTTP surface: session-backed auth routes
// plus the customer, notification and admin-user endpoints the frontend
// consumes.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gurulink/crm-dashboard/internal/actions"
	"github.com/gurulink/crm-dashboard/internal/adminusers"
	"github.com/gurulink/crm-dashboard/internal/backend"
	"github.com/gurulink/crm-dashboard/internal/notifications"
	"github.com/gurulink/crm-dashboard/internal/roster"
	"github.com/gurulink/crm-dashboard/internal/session"
)

// Gateway is the slice of the admin API client the handlers call directly.
// Roster, actions, notifications and admin-user traffic goes through the
// respective controllers instead.
type Gateway interface {
	Login(ctx context.Context, username, password string) (*backend.LoginResult, error)
	VerifyToken(ctx context.Context) (*backend.AdminUser, error)
	GetCustomerDetail(ctx context.Context, email string) (*backend.CustomerDetail, error)
}

// Handlers contains all HTTP handlers
type Handlers struct {
	gateway       Gateway
	sessions      session.Store
	roster        *roster.Controller
	actions       *actions.Orchestrator
	notifications *notifications.Poller
	admins        *adminusers.Manager
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	gateway Gateway,
	sessions session.Store,
	rosterCtl *roster.Controller,
	orchestrator *actions.Orchestrator,
	poller *notifications.Poller,
	admins *adminusers.Manager,
) *Handlers {
	return &Handlers{
		gateway:       gateway,
		sessions:      sessions,
		roster:        rosterCtl,
		actions:       orchestrator,
		notifications: poller,
		admins:        admins,
	}
}

// Response helpers

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondBackendError maps a gateway failure to an HTTP response: transport
// failures become 502 with connectivity guidance, application errors keep
// the backend's status and message.
func respondBackendError(w http.ResponseWriter, err error) {
	if errors.Is(err, backend.ErrBackendUnreachable) {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		respondError(w, apiErr.Status, apiErr.Message)
		return
	}
	respondError(w, http.StatusInternalServerError, err.Error())
}

// HealthCheck returns the health status of the API
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "healthy",
		"last_refresh":   h.roster.LastRefreshed(),
		"last_poll":      h.notifications.LastPolled(),
		"unread":         h.notifications.Unread(),
		"working_emails": len(h.actions.WorkingEmails()),
	})
}
