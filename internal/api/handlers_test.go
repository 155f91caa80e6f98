package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gurulink/crm-dashboard/internal/actions"
	"github.com/gurulink/crm-dashboard/internal/adminusers"
	"github.com/gurulink/crm-dashboard/internal/backend"
	"github.com/gurulink/crm-dashboard/internal/config"
	"github.com/gurulink/crm-dashboard/internal/notifications"
	"github.com/gurulink/crm-dashboard/internal/roster"
	"github.com/gurulink/crm-dashboard/internal/session"
)

const testToken = "tok-123"

// stubBackend is a minimal in-memory admin API for handler tests
type stubBackend struct {
	mu          sync.Mutex
	cancelCalls int
	deleteCalls int
}

func (s *stubBackend) router() http.Handler {
	r := chi.NewRouter()

	r.Post("/api/admin/auth/login", func(w http.ResponseWriter, req *http.Request) {
		var body map[string]string
		json.NewDecoder(req.Body).Decode(&body)
		if body["username"] != "admin" || body["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "Invalid credentials"})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ok":    true,
			"token": testToken,
			"admin": map[string]interface{}{"id": 1, "username": "admin", "role": "super_admin"},
		})
	})

	r.Get("/api/admin/auth/me", func(w http.ResponseWriter, req *http.Request) {
		if req.Header.Get("Authorization") != "Bearer "+testToken {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "Invalid token"})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ok":    true,
			"admin": map[string]interface{}{"id": 1, "username": "admin", "role": "super_admin"},
		})
	})

	r.Get("/api/admin/customers", func(w http.ResponseWriter, req *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ok": true,
			"customers": []map[string]interface{}{
				{"id": 1, "email": "a@x.com", "name": "Ann", "is_active": true},
				{"id": 2, "email": "b@x.com", "name": "Bob", "is_active": true},
			},
		})
	})

	r.Get("/api/admin/customers/{email}", func(w http.ResponseWriter, req *http.Request) {
		email := chi.URLParam(req, "email")
		sub := map[string]interface{}{
			"hasSubscription": true,
			"subscription":    map[string]interface{}{"status": "active", "cancelAtPeriodEnd": email == "b@x.com"},
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ok":           true,
			"customer":     map[string]interface{}{"email": email, "is_active": true},
			"subscription": sub,
		})
	})

	r.Post("/api/admin/customers/cancel-subscription", func(w http.ResponseWriter, req *http.Request) {
		s.mu.Lock()
		s.cancelCalls++
		s.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	})
	r.Post("/api/admin/customers/restore-subscription", func(w http.ResponseWriter, req *http.Request) {
		json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	})
	r.Post("/api/admin/customers/activate", func(w http.ResponseWriter, req *http.Request) {
		json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	})
	r.Post("/api/admin/customers/deactivate", func(w http.ResponseWriter, req *http.Request) {
		json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	})

	r.Get("/api/admin/notifications", func(w http.ResponseWriter, req *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ok": true,
			"notifications": []map[string]interface{}{
				{"id": 1, "type": "new_subscription", "title": "New subscription", "is_read": false},
			},
		})
	})
	r.Get("/api/admin/notifications/unread-count", func(w http.ResponseWriter, req *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"ok": true, "count": 1})
	})
	r.Post("/api/admin/notifications/{id}/read", func(w http.ResponseWriter, req *http.Request) {
		json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	})
	r.Post("/api/admin/notifications/mark-all-read", func(w http.ResponseWriter, req *http.Request) {
		json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	})

	r.Get("/api/admin/auth/users", func(w http.ResponseWriter, req *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ok": true,
			"users": []map[string]interface{}{
				{"id": 1, "username": "admin", "role": "super_admin", "is_active": true},
				{"id": 2, "username": "alice", "role": "admin", "is_active": true},
			},
		})
	})
	r.Post("/api/admin/auth/users", func(w http.ResponseWriter, req *http.Request) {
		json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	})
	r.Delete("/api/admin/auth/users/{id}", func(w http.ResponseWriter, req *http.Request) {
		s.mu.Lock()
		s.deleteCalls++
		s.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	})

	return r
}

func (s *stubBackend) cancelCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelCalls
}

func (s *stubBackend) deleteCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteCalls
}

type testEnv struct {
	router   *chi.Mux
	sessions session.Store
	stub     *stubBackend
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	stub := &stubBackend{}
	backendSrv := httptest.NewServer(stub.router())
	t.Cleanup(backendSrv.Close)

	sessions := session.NewMemoryStore()
	client := backend.NewClient(config.BackendConfig{BaseURL: backendSrv.URL, TimeoutSeconds: 5}, sessions)

	rosterCtl := roster.NewController(client, 10, 4)
	orchestrator := actions.NewOrchestrator(client, rosterCtl, nil)
	poller := notifications.NewPoller(client, time.Second, 50)
	admins := adminusers.NewManager(client)

	h := NewHandlers(client, sessions, rosterCtl, orchestrator, poller, admins)
	return &testEnv{
		router:   SetupRoutes(h, []string{"http://localhost:5173"}),
		sessions: sessions,
		stub:     stub,
	}
}

func (e *testEnv) authenticate(t *testing.T) {
	t.Helper()
	require.NoError(t, e.sessions.SetToken(context.Background(), testToken))
	require.NoError(t, e.sessions.SetAdminUser(context.Background(), &session.AdminProfile{
		ID: 1, Username: "admin", Role: "super_admin",
	}))
}

func (e *testEnv) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestLogin(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(http.MethodPost, "/auth/login", map[string]string{"username": "admin", "password": "secret"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["ok"])

	token, err := env.sessions.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testToken, token)

	profile, err := env.sessions.AdminUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "admin", profile.Username)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(http.MethodPost, "/auth/login", map[string]string{"username": "admin", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", decode(t, rec)["error"])

	_, err := env.sessions.Token(context.Background())
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestMe_DeadSessionTornDown(t *testing.T) {
	env := setupEnv(t)
	require.NoError(t, env.sessions.SetToken(context.Background(), "stale-token"))

	rec := env.do(http.MethodGet, "/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	_, err := env.sessions.Token(context.Background())
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestLogout(t *testing.T) {
	env := setupEnv(t)
	env.authenticate(t)

	rec := env.do(http.MethodPost, "/auth/logout", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	_, err := env.sessions.Token(context.Background())
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestAPIRequiresSession(t *testing.T) {
	env := setupEnv(t)

	for _, path := range []string{"/api/customers", "/api/notifications", "/api/admin-users"} {
		rec := env.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestListCustomers(t *testing.T) {
	env := setupEnv(t)
	env.authenticate(t)

	rec := env.do(http.MethodGet, "/api/customers?refresh=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Len(t, body["customers"], 2)
	assert.Equal(t, float64(1), body["page"])
	assert.Equal(t, float64(1), body["total_pages"])

	// b@x.com has cancelAtPeriodEnd in the stub detail
	cancelled, ok := body["cancelled"].([]interface{})
	require.True(t, ok)
	require.Len(t, cancelled, 1)
	assert.Equal(t, "b@x.com", cancelled[0])
}

func TestListCustomers_Filtered(t *testing.T) {
	env := setupEnv(t)
	env.authenticate(t)

	rec := env.do(http.MethodGet, "/api/customers?refresh=true&filter=ann", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	customers := body["customers"].([]interface{})
	require.Len(t, customers, 1)
	assert.Equal(t, "a@x.com", customers[0].(map[string]interface{})["email"])
}

func TestCustomerDetail(t *testing.T) {
	env := setupEnv(t)
	env.authenticate(t)

	rec := env.do(http.MethodGet, "/api/customers/a@x.com", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["ok"])
}

func TestCustomerAction_RequiresConfirmation(t *testing.T) {
	env := setupEnv(t)
	env.authenticate(t)

	rec := env.do(http.MethodPost, "/api/customers/cancel-subscription", map[string]interface{}{
		"email": "a@x.com", "confirmed": false,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "confirmation")
	assert.Equal(t, 0, env.stub.cancelCount())
}

func TestCustomerAction_Cancel(t *testing.T) {
	env := setupEnv(t)
	env.authenticate(t)

	rec := env.do(http.MethodPost, "/api/customers/cancel-subscription", map[string]interface{}{
		"email": "a@x.com", "confirmed": true,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.NotNil(t, body["detail"])
	assert.Equal(t, 1, env.stub.cancelCount())

	// The reconciling refresh recomputes the set from the stub, where
	// a@x.com's subscription is healthy and b@x.com's is ending
	cancelled := body["cancelled"].([]interface{})
	require.Len(t, cancelled, 1)
	assert.Equal(t, "b@x.com", cancelled[0])
}

func TestNotifications(t *testing.T) {
	env := setupEnv(t)
	env.authenticate(t)

	rec := env.do(http.MethodGet, "/api/notifications?refresh=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Len(t, body["notifications"], 1)
	assert.Equal(t, float64(1), body["unread_count"])

	rec = env.do(http.MethodPost, "/api/notifications/1/read", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), decode(t, rec)["unread_count"])

	rec = env.do(http.MethodPost, "/api/notifications/abc/read", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminUsers_Guards(t *testing.T) {
	env := setupEnv(t)
	env.authenticate(t)

	// Own account (caller id 1)
	rec := env.do(http.MethodDelete, "/api/admin-users/1", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 0, env.stub.deleteCount())

	// Unknown user
	rec = env.do(http.MethodDelete, "/api/admin-users/99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Permitted target
	rec = env.do(http.MethodDelete, "/api/admin-users/2", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, env.stub.deleteCount())
}

func TestAdminUsers_CreateValidation(t *testing.T) {
	env := setupEnv(t)
	env.authenticate(t)

	rec := env.do(http.MethodPost, "/api/admin-users", map[string]string{
		"username": "carol", "password": "secret1", "confirm_password": "secret1", "role": "super_admin",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/api/admin-users", map[string]string{
		"username": "carol", "password": "secret1", "confirm_password": "secret1", "role": "viewer",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestHealth(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])
}
