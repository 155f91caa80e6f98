package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gurulink/crm-dashboard/internal/actions"
)

// HandleListCustomers returns one page of the filtered roster along with
// the derived cancelled set and the in-flight working markers. Query
// params: filter, uid, activeOnly, page, limit, refresh.
func (h *Handlers) HandleListCustomers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if q.Get("refresh") == "true" || h.roster.LastRefreshed().IsZero() {
		if err := h.roster.Refresh(r.Context()); err != nil {
			respondBackendError(w, err)
			return
		}
	}

	h.roster.SetFilter(q.Get("filter"))
	h.roster.SetUIDFilter(q.Get("uid"))
	h.roster.SetShowOnlyActive(q.Get("activeOnly") == "true")
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 {
		h.roster.SetPageSize(limit)
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		h.roster.SetPage(page)
	}

	view := h.roster.Page()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":          true,
		"customers":   view.Customers,
		"page":        view.Page,
		"page_size":   view.PageSize,
		"total_pages": view.TotalPages,
		"total":       view.Total,
		"cancelled":   h.roster.CancelledEmails(),
		"working":     h.actions.WorkingEmails(),
	})
}

// HandleCustomerDetail returns one customer's profile and subscription
// snapshot straight from the backend.
func (h *Handlers) HandleCustomerDetail(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	if email == "" {
		respondError(w, http.StatusBadRequest, "email is required")
		return
	}

	detail, err := h.gateway.GetCustomerDetail(r.Context(), email)
	if err != nil {
		respondBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

type customerActionRequest struct {
	Email     string `json:"email"`
	Confirmed bool   `json:"confirmed"`
}

// HandleCustomerAction builds the handler for one mutating customer action.
// Unconfirmed requests are rejected before anything reaches the backend; a
// duplicate trigger while the first is outstanding gets a 409.
func (h *Handlers) HandleCustomerAction(action actions.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req customerActionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Email == "" {
			respondError(w, http.StatusBadRequest, "email is required")
			return
		}
		if !req.Confirmed {
			respondError(w, http.StatusBadRequest, "confirmation required")
			return
		}

		var (
			detail interface{}
			err    error
		)
		switch action {
		case actions.ActionCancel:
			detail, err = h.actions.Cancel(r.Context(), req.Email)
		case actions.ActionRestore:
			detail, err = h.actions.Restore(r.Context(), req.Email)
		case actions.ActionActivate:
			detail, err = h.actions.Activate(r.Context(), req.Email)
		case actions.ActionDeactivate:
			detail, err = h.actions.Deactivate(r.Context(), req.Email)
		default:
			respondError(w, http.StatusNotFound, "unknown action")
			return
		}

		if err != nil {
			if errors.Is(err, actions.ErrActionInFlight) {
				respondError(w, http.StatusConflict, err.Error())
				return
			}
			if errors.Is(err, actions.ErrNotConfirmed) {
				respondError(w, http.StatusBadRequest, err.Error())
				return
			}
			respondBackendError(w, err)
			return
		}

		// Actions tend to generate notifications, so pull the feed forward
		if err := h.notifications.Refresh(r.Context()); err != nil {
			log.Printf("API: notification refresh after %s failed: %v", action, err)
		}

		respondJSON(w, http.StatusOK, map[string]interface{}{
			"ok":        true,
			"detail":    detail,
			"cancelled": h.roster.CancelledEmails(),
		})
	}
}
