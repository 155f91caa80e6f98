package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gurulink/crm-dashboard/internal/adminusers"
)

// HandleListAdminUsers refreshes and returns the operator list
func (h *Handlers) HandleListAdminUsers(w http.ResponseWriter, r *http.Request) {
	if err := h.admins.Refresh(r.Context()); err != nil {
		respondBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":    true,
		"users": h.admins.Users(),
	})
}

// HandleCreateAdminUser creates a new operator account
func (h *Handlers) HandleCreateAdminUser(w http.ResponseWriter, r *http.Request) {
	var in adminusers.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.admins.Create(r.Context(), in); err != nil {
		respondAdminUserError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"ok":    true,
		"users": h.admins.Users(),
	})
}

// HandleDeleteAdminUser removes an operator account
func (h *Handlers) HandleDeleteAdminUser(w http.ResponseWriter, r *http.Request) {
	h.guardedAdminUserAction(w, r, h.admins.Delete)
}

// HandleActivateAdminUser re-enables an operator account
func (h *Handlers) HandleActivateAdminUser(w http.ResponseWriter, r *http.Request) {
	h.guardedAdminUserAction(w, r, h.admins.Activate)
}

// HandleDeactivateAdminUser disables an operator account
func (h *Handlers) HandleDeactivateAdminUser(w http.ResponseWriter, r *http.Request) {
	h.guardedAdminUserAction(w, r, h.admins.Deactivate)
}

func (h *Handlers) guardedAdminUserAction(w http.ResponseWriter, r *http.Request, do func(ctx context.Context, callerID, userID int) error) {
	userID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	caller, err := h.sessions.AdminUser(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "no admin profile in session")
		return
	}

	if err := do(r.Context(), caller.ID, userID); err != nil {
		respondAdminUserError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":    true,
		"users": h.admins.Users(),
	})
}

func respondAdminUserError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, adminusers.ErrUsernameTooShort),
		errors.Is(err, adminusers.ErrPasswordTooShort),
		errors.Is(err, adminusers.ErrPasswordMismatch),
		errors.Is(err, adminusers.ErrInvalidRole):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, adminusers.ErrOwnAccount),
		errors.Is(err, adminusers.ErrProtectedAccount):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, adminusers.ErrUnknownUser):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		respondBackendError(w, err)
	}
}
