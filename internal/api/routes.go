package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/gurulink/crm-dashboard/internal/actions"
	"github.com/gurulink/crm-dashboard/internal/session"
)

// SetupRoutes configures all API routes. Everything under /api requires an
// established session; auth and health stay open.
func SetupRoutes(h *Handlers, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	// CORS - allow credentials so the dashboard can carry session cookies
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (no auth required)
	r.Get("/health", h.HealthCheck)

	// Auth routes (no auth required)
	r.Post("/auth/login", h.HandleLogin)
	r.Post("/auth/logout", h.HandleLogout)
	r.Get("/auth/me", h.HandleMe)

	// API routes (protected by the session middleware)
	r.Route("/api", func(r chi.Router) {
		r.Use(h.requireSession)

		r.Route("/customers", func(r chi.Router) {
			r.Get("/", h.HandleListCustomers)
			r.Post("/cancel-subscription", h.HandleCustomerAction(actions.ActionCancel))
			r.Post("/restore-subscription", h.HandleCustomerAction(actions.ActionRestore))
			r.Post("/activate", h.HandleCustomerAction(actions.ActionActivate))
			r.Post("/deactivate", h.HandleCustomerAction(actions.ActionDeactivate))
			r.Get("/{email}", h.HandleCustomerDetail)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", h.HandleListNotifications)
			r.Get("/unread-count", h.HandleUnreadCount)
			r.Post("/mark-all-read", h.HandleMarkAllRead)
			r.Post("/{id}/read", h.HandleMarkRead)
		})

		r.Route("/admin-users", func(r chi.Router) {
			r.Get("/", h.HandleListAdminUsers)
			r.Post("/", h.HandleCreateAdminUser)
			r.Delete("/{id}", h.HandleDeleteAdminUser)
			r.Post("/{id}/activate", h.HandleActivateAdminUser)
			r.Post("/{id}/deactivate", h.HandleDeactivateAdminUser)
		})
	})

	return r
}

// requireSession rejects /api requests without a stored bearer token
func (h *Handlers) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := h.sessions.Token(r.Context())
		if err != nil || token == "" {
			if err != nil && !errors.Is(err, session.ErrNotFound) {
				respondError(w, http.StatusInternalServerError, "reading session: "+err.Error())
				return
			}
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
