package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// HandleListNotifications returns the local copy of the feed. With
// refresh=true (panel open) the backend is consulted first and a failure
// surfaces, unlike the silent background poll.
func (h *Handlers) HandleListNotifications(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") == "true" {
		if err := h.notifications.Refresh(r.Context()); err != nil {
			respondBackendError(w, err)
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":            true,
		"notifications": h.notifications.Notifications(),
		"unread_count":  h.notifications.Unread(),
	})
}

// HandleUnreadCount returns the locally tracked unread count
func (h *Handlers) HandleUnreadCount(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":    true,
		"count": h.notifications.Unread(),
	})
}

// HandleMarkRead marks one notification as read
func (h *Handlers) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid notification id")
		return
	}

	if err := h.notifications.MarkRead(r.Context(), id); err != nil {
		respondBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":           true,
		"unread_count": h.notifications.Unread(),
	})
}

// HandleMarkAllRead marks every notification as read
func (h *Handlers) HandleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	if err := h.notifications.MarkAllRead(r.Context()); err != nil {
		respondBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":           true,
		"unread_count": h.notifications.Unread(),
	})
}
