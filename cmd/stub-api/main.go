package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
)

// stubState is the in-memory stand-in for the real admin backend
type stubState struct {
	mu            sync.Mutex
	tokens        map[string]int // token -> admin id
	admins        []adminUser
	passwords     map[string]string
	customers     []customer
	subscriptions map[string]*subscription // email -> subscription, nil entry means none
	notifications []notification
	nextNotifID   int64
	nextAdminID   int
}

type adminUser struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

type customer struct {
	ID        int    `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	BirthDate string `json:"birth_date,omitempty"`
	IsActive  bool   `json:"is_active"`
	IsTest    bool   `json:"is_test"`
	CreatedAt string `json:"created_at"`
}

type subscription struct {
	Status            string `json:"status"`
	CancelAtPeriodEnd bool   `json:"cancelAtPeriodEnd"`
	CurrentPeriodEnd  int64  `json:"currentPeriodEnd"`
}

type notification struct {
	ID        int64  `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	IsRead    bool   `json:"is_read"`
	CreatedAt string `json:"created_at"`
}

func seed() *stubState {
	now := time.Now().UTC().Format(time.RFC3339)
	s := &stubState{
		tokens: make(map[string]int),
		admins: []adminUser{
			{ID: 1, Username: "admin", Role: "super_admin", IsActive: true},
			{ID: 2, Username: "alice", Role: "admin", IsActive: true},
			{ID: 3, Username: "bob", Role: "viewer", IsActive: true},
		},
		passwords: map[string]string{
			"admin": "admin123",
			"alice": "alice123",
			"bob":   "bob123",
		},
		customers: []customer{
			{ID: 101, Email: "ann@example.com", Name: "Ann Martin", IsActive: true, CreatedAt: now},
			{ID: 102, Email: "ben@example.com", Name: "Ben Ortiz", IsActive: true, CreatedAt: now},
			{ID: 103, Email: "cleo@example.com", Name: "Cleo Park", IsActive: true, CreatedAt: now},
			{ID: 104, Email: "dan@example.com", Name: "Dan Webb", IsActive: false, CreatedAt: now},
			{ID: 105, Email: "test@example.com", Name: "Test Account", IsActive: true, IsTest: true, CreatedAt: now},
		},
		subscriptions: map[string]*subscription{
			"ann@example.com":  {Status: "active", CurrentPeriodEnd: time.Now().AddDate(0, 1, 0).Unix()},
			"ben@example.com":  {Status: "active", CancelAtPeriodEnd: true, CurrentPeriodEnd: time.Now().AddDate(0, 1, 0).Unix()},
			"cleo@example.com": {Status: "canceled"},
		},
		notifications: []notification{
			{ID: 2, Type: "new_subscription", Title: "New subscription", Message: "ann@example.com subscribed", CreatedAt: now},
			{ID: 1, Type: "new_registration", Title: "New registration", Message: "dan@example.com registered", IsRead: true, CreatedAt: now},
		},
		nextNotifID: 3,
		nextAdminID: 4,
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// notify appends a notification to the front of the feed. Callers hold mu.
func (s *stubState) notify(kind, title, message string) {
	n := notification{
		ID:        s.nextNotifID,
		Type:      kind,
		Title:     title,
		Message:   message,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	s.nextNotifID++
	s.notifications = append([]notification{n}, s.notifications...)
}

func (s *stubState) authenticated(r *http.Request) bool {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tokens[strings.TrimPrefix(header, "Bearer ")]
	return ok
}

func (s *stubState) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	password, ok := s.passwords[body.Username]
	if !ok || password != body.Password {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	var admin *adminUser
	for i := range s.admins {
		if s.admins[i].Username == body.Username {
			admin = &s.admins[i]
		}
	}
	if admin == nil || !admin.IsActive {
		writeError(w, http.StatusForbidden, "Account is deactivated")
		return
	}

	token := uuid.NewString()
	s.tokens[token] = admin.ID
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":    true,
		"token": token,
		"admin": admin,
	})
}

func (s *stubState) handleMe(w http.ResponseWriter, r *http.Request) {
	header := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.mu.Lock()
	defer s.mu.Unlock()
	adminID, ok := s.tokens[header]
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	for i := range s.admins {
		if s.admins[i].ID == adminID {
			writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "admin": s.admins[i]})
			return
		}
	}
	writeError(w, http.StatusUnauthorized, "Invalid token")
}

func (s *stubState) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "customers": s.customers})
}

func (s *stubState) handleCustomerDetail(w http.ResponseWriter, r *http.Request) {
	email := r.PathValue("email")
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.customers {
		if s.customers[i].Email != email {
			continue
		}
		sub := s.subscriptions[email]
		snapshot := map[string]interface{}{"hasSubscription": sub != nil}
		if sub != nil {
			snapshot["subscription"] = sub
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ok":           true,
			"customer":     s.customers[i],
			"subscription": snapshot,
		})
		return
	}
	writeError(w, http.StatusNotFound, "Customer not found")
}

func (s *stubState) findCustomer(email string) *customer {
	for i := range s.customers {
		if s.customers[i].Email == email {
			return &s.customers[i]
		}
	}
	return nil
}

func decodeEmail(w http.ResponseWriter, r *http.Request) (string, bool) {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return "", false
	}
	return body.Email, true
}

func (s *stubState) handleCancel(w http.ResponseWriter, r *http.Request) {
	email, ok := decodeEmail(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findCustomer(email) == nil {
		writeError(w, http.StatusNotFound, "Customer not found")
		return
	}
	sub := s.subscriptions[email]
	if sub == nil || sub.Status == "canceled" {
		writeError(w, http.StatusBadRequest, "No active subscription found")
		return
	}
	sub.CancelAtPeriodEnd = true
	s.notify("cancellation", "Cancellation scheduled", email+" will cancel at period end")
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *stubState) handleRestore(w http.ResponseWriter, r *http.Request) {
	email, ok := decodeEmail(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := s.subscriptions[email]
	if sub == nil {
		writeError(w, http.StatusBadRequest, "No subscription found")
		return
	}
	sub.CancelAtPeriodEnd = false
	if sub.Status == "canceled" {
		sub.Status = "active"
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *stubState) handleSetActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email, ok := decodeEmail(w, r)
		if !ok {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		c := s.findCustomer(email)
		if c == nil {
			writeError(w, http.StatusNotFound, "Customer not found")
			return
		}
		c.IsActive = active
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

func (s *stubState) handleListAdmins(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "users": s.admins})
}

func (s *stubState) handleCreateAdmin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Role != "admin" && body.Role != "viewer" {
		writeError(w, http.StatusBadRequest, "Invalid role")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.passwords[body.Username]; exists {
		writeError(w, http.StatusConflict, "Username already exists")
		return
	}
	user := adminUser{ID: s.nextAdminID, Username: body.Username, Role: body.Role, IsActive: true}
	s.nextAdminID++
	s.admins = append(s.admins, user)
	s.passwords[body.Username] = body.Password
	writeJSON(w, http.StatusCreated, map[string]interface{}{"ok": true, "user": user})
}

func (s *stubState) adminByID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return 0, false
	}
	for i := range s.admins {
		if s.admins[i].ID == id {
			if s.admins[i].Role == "super_admin" {
				writeError(w, http.StatusForbidden, "Cannot modify a super admin account")
				return 0, false
			}
			return i, true
		}
	}
	writeError(w, http.StatusNotFound, "User not found")
	return 0, false
}

func (s *stubState) handleDeleteAdmin(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.adminByID(w, r)
	if !ok {
		return
	}
	delete(s.passwords, s.admins[i].Username)
	s.admins = append(s.admins[:i], s.admins[i+1:]...)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *stubState) handleSetAdminActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		i, ok := s.adminByID(w, r)
		if !ok {
			return
		}
		s.admins[i].IsActive = active
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "user": s.admins[i]})
	}
}

func (s *stubState) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	unreadOnly := r.URL.Query().Get("unreadOnly") == "true"

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]notification, 0, limit)
	for _, n := range s.notifications {
		if unreadOnly && n.IsRead {
			continue
		}
		out = append(out, n)
		if len(out) == limit {
			break
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "notifications": out})
}

func (s *stubState) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.notifications {
		if !n.IsRead {
			count++
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "count": count})
}

func (s *stubState) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid notification id")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		if s.notifications[i].ID == id {
			s.notifications[i].IsRead = true
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
			return
		}
	}
	writeError(w, http.StatusNotFound, "Notification not found")
}

func (s *stubState) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		s.notifications[i].IsRead = true
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// requireAuth guards everything except login behind a bearer token
func (s *stubState) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticated(r) {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		next(w, r)
	}
}

func main() {
	log.Println("╔════════════════════════════════════════════════════════════╗")
	log.Println("║  WARNING: This is a STUB admin API for local testing.     ║")
	log.Println("║  All data is seeded in memory and resets on restart.      ║")
	log.Println("║                                                           ║")
	log.Println("║  For the dashboard server, run:                           ║")
	log.Println("║    go run cmd/server/main.go                              ║")
	log.Println("╚════════════════════════════════════════════════════════════╝")

	state := seed()
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "gurulink-stub-api"})
	})

	mux.HandleFunc("POST /api/admin/auth/login", state.handleLogin)
	mux.HandleFunc("GET /api/admin/auth/me", state.handleMe)

	mux.HandleFunc("GET /api/admin/auth/users", state.requireAuth(state.handleListAdmins))
	mux.HandleFunc("POST /api/admin/auth/users", state.requireAuth(state.handleCreateAdmin))
	mux.HandleFunc("DELETE /api/admin/auth/users/{id}", state.requireAuth(state.handleDeleteAdmin))
	mux.HandleFunc("POST /api/admin/auth/users/{id}/activate", state.requireAuth(state.handleSetAdminActive(true)))
	mux.HandleFunc("POST /api/admin/auth/users/{id}/deactivate", state.requireAuth(state.handleSetAdminActive(false)))

	mux.HandleFunc("GET /api/admin/customers", state.requireAuth(state.handleListCustomers))
	mux.HandleFunc("GET /api/admin/customers/{email}", state.requireAuth(state.handleCustomerDetail))
	mux.HandleFunc("POST /api/admin/customers/cancel-subscription", state.requireAuth(state.handleCancel))
	mux.HandleFunc("POST /api/admin/customers/restore-subscription", state.requireAuth(state.handleRestore))
	mux.HandleFunc("POST /api/admin/customers/activate", state.requireAuth(state.handleSetActive(true)))
	mux.HandleFunc("POST /api/admin/customers/deactivate", state.requireAuth(state.handleSetActive(false)))

	mux.HandleFunc("GET /api/admin/notifications", state.requireAuth(state.handleListNotifications))
	mux.HandleFunc("GET /api/admin/notifications/unread-count", state.requireAuth(state.handleUnreadCount))
	mux.HandleFunc("POST /api/admin/notifications/{id}/read", state.requireAuth(state.handleMarkRead))
	mux.HandleFunc("POST /api/admin/notifications/mark-all-read", state.requireAuth(state.handleMarkAllRead))

	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%s", port),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Stub admin API listening on :%s (admin/admin123)", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down stub API...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Stub API stopped")
}
