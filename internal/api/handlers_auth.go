package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gurulink/crm-dashboard/internal/backend"
	"github.com/gurulink/crm-dashboard/internal/session"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleLogin authenticates against the admin API and establishes the
// session: the bearer token and the admin profile are persisted in the
// credential store.
func (h *Handlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	result, err := h.gateway.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		respondBackendError(w, err)
		return
	}

	if err := h.sessions.SetToken(r.Context(), result.Token); err != nil {
		respondError(w, http.StatusInternalServerError, "storing session token: "+err.Error())
		return
	}
	if result.Admin != nil {
		profile := &session.AdminProfile{
			ID:       result.Admin.ID,
			Username: result.Admin.Username,
			Role:     result.Admin.Role,
		}
		if err := h.sessions.SetAdminUser(r.Context(), profile); err != nil {
			respondError(w, http.StatusInternalServerError, "storing admin profile: "+err.Error())
			return
		}
	}

	log.Printf("Auth: %s logged in", req.Username)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":    true,
		"admin": result.Admin,
	})
}

// HandleLogout clears the session
func (h *Handlers) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Clear(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, "clearing session: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleMe verifies the stored token against the backend. A credential
// failure tears the session down so the frontend returns to the login view.
func (h *Handlers) HandleMe(w http.ResponseWriter, r *http.Request) {
	admin, err := h.gateway.VerifyToken(r.Context())
	if err != nil {
		if backend.IsAuthError(err) {
			if clearErr := h.sessions.Clear(r.Context()); clearErr != nil {
				log.Printf("Auth: clearing dead session failed: %v", clearErr)
			}
			respondError(w, http.StatusUnauthorized, "session expired")
			return
		}
		respondBackendError(w, err)
		return
	}

	if admin != nil {
		profile := &session.AdminProfile{ID: admin.ID, Username: admin.Username, Role: admin.Role}
		if err := h.sessions.SetAdminUser(r.Context(), profile); err != nil {
			log.Printf("Auth: refreshing stored profile failed: %v", err)
		}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":    true,
		"admin": admin,
	})
}
