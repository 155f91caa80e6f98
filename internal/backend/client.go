// Package backend is the typed gateway to the external admin API. All
// business logic (billing, persistence, authentication) lives behind these
// endpoints; this package only shapes requests and normalizes errors.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"

	"github.com/gurulink/crm-dashboard/internal/config"
	"github.com/gurulink/crm-dashboard/internal/session"
)

// Client is the admin API client. Every request carries the stored bearer
// token (when one exists) and backend session cookies round-trip through
// the client's cookie jar.
type Client struct {
	baseURL    string
	sessions   session.Store
	httpClient *http.Client
}

// NewClient creates a new admin API client
func NewClient(cfg config.BackendConfig, sessions session.Store) *Client {
	// Cookie jar errors only occur with a non-nil PublicSuffixList
	jar, _ := cookiejar.New(nil)
	return &Client{
		baseURL:  cfg.BaseURL,
		sessions: sessions,
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
			Jar:     jar,
		},
	}
}

// BaseURL returns the configured backend base URL, for diagnostics
func (c *Client) BaseURL() string {
	return c.baseURL
}

// doRequest makes an HTTP request to the admin API. Transport failures are
// wrapped in ErrBackendUnreachable; non-2xx responses become an *APIError
// carrying the backend's error message.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	fullURL := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if token, err := c.sessions.Token(ctx); err == nil && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	} else if err != nil && !errors.Is(err, session.ErrNotFound) {
		return nil, fmt.Errorf("reading session token: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w at %s: %v", ErrBackendUnreachable, c.baseURL, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var parsed errorBody
		// A malformed body falls through to the status text
		_ = json.Unmarshal(respBody, &parsed)
		return nil, newAPIError(resp.StatusCode, parsed)
	}

	return respBody, nil
}

// Login authenticates with username/password and returns the bearer token
// plus the admin profile. The caller is responsible for persisting both.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	body, err := c.doRequest(ctx, http.MethodPost, "/api/admin/auth/login", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	var result LoginResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parsing login response: %w", err)
	}
	return &result, nil
}

// VerifyToken checks the stored token against the backend and returns the
// authenticated admin. A 401/403 here means the session is dead.
func (c *Client) VerifyToken(ctx context.Context) (*AdminUser, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/api/admin/auth/me", nil)
	if err != nil {
		return nil, err
	}

	var result verifyResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parsing verify response: %w", err)
	}
	return result.Admin, nil
}

// ListCustomers fetches the full customer roster
func (c *Client) ListCustomers(ctx context.Context) ([]Customer, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/api/admin/customers", nil)
	if err != nil {
		return nil, err
	}

	var result customersResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parsing customers response: %w", err)
	}
	return result.Customers, nil
}

// GetCustomerDetail fetches one customer's profile and subscription snapshot
func (c *Client) GetCustomerDetail(ctx context.Context, email string) (*CustomerDetail, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/api/admin/customers/"+url.PathEscape(email), nil)
	if err != nil {
		return nil, err
	}

	var result CustomerDetail
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parsing customer detail: %w", err)
	}
	return &result, nil
}

// customerAction posts an email-keyed customer action
func (c *Client) customerAction(ctx context.Context, action, email string) error {
	_, err := c.doRequest(ctx, http.MethodPost, "/api/admin/customers/"+action, map[string]string{
		"email": email,
	})
	return err
}

// CancelSubscription schedules cancellation at period end for the customer
func (c *Client) CancelSubscription(ctx context.Context, email string) error {
	return c.customerAction(ctx, "cancel-subscription", email)
}

// RestoreSubscription removes a scheduled cancellation for the customer
func (c *Client) RestoreSubscription(ctx context.Context, email string) error {
	return c.customerAction(ctx, "restore-subscription", email)
}

// ActivateAccount re-enables a deactivated customer account
func (c *Client) ActivateAccount(ctx context.Context, email string) error {
	return c.customerAction(ctx, "activate", email)
}

// DeactivateAccount disables a customer account so it cannot log in
func (c *Client) DeactivateAccount(ctx context.Context, email string) error {
	return c.customerAction(ctx, "deactivate", email)
}

// ListAdminUsers fetches all operator accounts
func (c *Client) ListAdminUsers(ctx context.Context) ([]AdminUser, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/api/admin/auth/users", nil)
	if err != nil {
		return nil, err
	}

	var result adminUsersResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parsing admin users response: %w", err)
	}
	return result.Users, nil
}

// CreateAdminUser creates a new operator account
func (c *Client) CreateAdminUser(ctx context.Context, username, password, role string) error {
	_, err := c.doRequest(ctx, http.MethodPost, "/api/admin/auth/users", map[string]string{
		"username": username,
		"password": password,
		"role":     role,
	})
	return err
}

// DeleteAdminUser removes an operator account
func (c *Client) DeleteAdminUser(ctx context.Context, userID int) error {
	_, err := c.doRequest(ctx, http.MethodDelete, "/api/admin/auth/users/"+strconv.Itoa(userID), nil)
	return err
}

// ActivateAdminUser re-enables an operator account
func (c *Client) ActivateAdminUser(ctx context.Context, userID int) error {
	_, err := c.doRequest(ctx, http.MethodPost, "/api/admin/auth/users/"+strconv.Itoa(userID)+"/activate", nil)
	return err
}

// DeactivateAdminUser disables an operator account
func (c *Client) DeactivateAdminUser(ctx context.Context, userID int) error {
	_, err := c.doRequest(ctx, http.MethodPost, "/api/admin/auth/users/"+strconv.Itoa(userID)+"/deactivate", nil)
	return err
}

// ListNotifications fetches the most recent notifications, newest first
func (c *Client) ListNotifications(ctx context.Context, limit int, unreadOnly bool) ([]Notification, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if unreadOnly {
		params.Set("unreadOnly", "true")
	}

	path := "/api/admin/notifications"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	body, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var result notificationsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parsing notifications response: %w", err)
	}
	return result.Notifications, nil
}

// UnreadCount fetches the number of unread notifications
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/api/admin/notifications/unread-count", nil)
	if err != nil {
		return 0, err
	}

	var result unreadCountResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, fmt.Errorf("parsing unread count response: %w", err)
	}
	return result.Count, nil
}

// MarkNotificationRead marks one notification as read
func (c *Client) MarkNotificationRead(ctx context.Context, id int64) error {
	_, err := c.doRequest(ctx, http.MethodPost, fmt.Sprintf("/api/admin/notifications/%d/read", id), nil)
	return err
}

// MarkAllRead marks every notification as read
func (c *Client) MarkAllRead(ctx context.Context) error {
	_, err := c.doRequest(ctx, http.MethodPost, "/api/admin/notifications/mark-all-read", nil)
	return err
}
