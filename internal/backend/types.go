package backend

// Customer is one row of the roster as reported by the admin API.
// Identity is the email; customers are never deleted, only deactivated.
type Customer struct {
	ID            int    `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name,omitempty"`
	BirthDate     string `json:"birth_date,omitempty"`
	IsActive      bool   `json:"is_active"`
	IsTest        bool   `json:"is_test,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
	DeactivatedAt string `json:"deactivated_at,omitempty"`
}

// Subscription is the nested billing record inside a detail response.
// The backend uses camelCase keys for this section.
type Subscription struct {
	Status             string     `json:"status"`
	CancelAtPeriodEnd  bool       `json:"cancelAtPeriodEnd"`
	CurrentPeriodStart string     `json:"currentPeriodStart,omitempty"`
	CurrentPeriodEnd   string     `json:"currentPeriodEnd,omitempty"`
	Items              []PlanItem `json:"items,omitempty"`
}

// PlanItem is a single plan line on a subscription
type PlanItem struct {
	PlanID   string  `json:"planId"`
	Nickname string  `json:"nickname,omitempty"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Interval string  `json:"interval,omitempty"`
}

// Card holds the stored payment card summary
type Card struct {
	Brand    string `json:"brand"`
	Last4    string `json:"last4"`
	ExpMonth int    `json:"exp_month,omitempty"`
	ExpYear  int    `json:"exp_year,omitempty"`
}

// PaymentMethod wraps the card on file
type PaymentMethod struct {
	Card *Card `json:"card,omitempty"`
}

// Invoice is a past billing event for a customer
type Invoice struct {
	ID       string  `json:"id"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Status   string  `json:"status"`
	Created  string  `json:"created"`
}

// SubscriptionSnapshot is the per-customer billing state fetched on demand.
// It is never persisted locally; callers always refetch.
type SubscriptionSnapshot struct {
	HasSubscription bool           `json:"hasSubscription"`
	Subscription    *Subscription  `json:"subscription,omitempty"`
	PaymentMethod   *PaymentMethod `json:"paymentMethod,omitempty"`
	Invoices        []Invoice      `json:"invoices,omitempty"`
}

// CustomerDetail is the full detail response for one customer
type CustomerDetail struct {
	OK           bool                  `json:"ok"`
	Customer     *Customer             `json:"customer"`
	Subscription *SubscriptionSnapshot `json:"subscription"`
}

// Admin user roles
const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleViewer     = "viewer"
)

// AdminUser is an operator account on the admin API
type AdminUser struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Notification types emitted by the backend
const (
	NotificationNewSignup      = "new_signup"
	NotificationSubCancelled   = "subscription_cancelled"
	NotificationSubReactivated = "subscription_reactivated"
	NotificationDeactivated    = "account_deactivated"
	NotificationActivated      = "account_activated"
)

// Notification is one admin notification entry
type Notification struct {
	ID        int64  `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	IsRead    bool   `json:"is_read"`
	CreatedAt string `json:"created_at"`
}

// LoginResult is the successful login payload: the bearer token plus the
// authenticated admin's profile.
type LoginResult struct {
	OK    bool       `json:"ok"`
	Token string     `json:"token"`
	Admin *AdminUser `json:"admin"`
}

// customersResponse is the envelope of the customer list endpoint
type customersResponse struct {
	OK        bool       `json:"ok"`
	Customers []Customer `json:"customers"`
}

// adminUsersResponse is the envelope of the admin user list endpoint
type adminUsersResponse struct {
	OK    bool        `json:"ok"`
	Users []AdminUser `json:"users"`
}

// notificationsResponse is the envelope of the notification list endpoint
type notificationsResponse struct {
	OK            bool           `json:"ok"`
	Notifications []Notification `json:"notifications"`
}

// unreadCountResponse is the envelope of the unread-count endpoint
type unreadCountResponse struct {
	OK    bool `json:"ok"`
	Count int  `json:"count"`
}

// verifyResponse is the envelope of the token verification endpoint
type verifyResponse struct {
	OK    bool       `json:"ok"`
	Admin *AdminUser `json:"admin"`
}
