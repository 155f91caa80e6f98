// Package roster maintains the customer list shown in the dashboard and the
// derived "effectively cancelled" set: customers whose subscription is
// absent, ending, or already canceled. The set is client-derived and is
// recomputed from backend truth on every refresh.
package roster

import (
	"context"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gurulink/crm-dashboard/internal/backend"
)

// Gateway is the slice of the admin API client the controller needs
type Gateway interface {
	ListCustomers(ctx context.Context) ([]backend.Customer, error)
	GetCustomerDetail(ctx context.Context, email string) (*backend.CustomerDetail, error)
}

// PageView is one page of the filtered roster
type PageView struct {
	Customers  []backend.Customer `json:"customers"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
	TotalPages int                `json:"total_pages"`
	Total      int                `json:"total"`
}

// Controller owns the roster slice of application state. All reads and
// writes go through its mutex; the orchestrator and the HTTP handlers are
// the only callers.
type Controller struct {
	gateway       Gateway
	detailWorkers int

	mu             sync.RWMutex
	customers      []backend.Customer
	cancelled      map[string]struct{}
	filterText     string
	uidFilter      string
	showOnlyActive bool
	page           int
	pageSize       int
	lastRefreshed  time.Time
}

// NewController creates a roster controller with an empty cancelled set
func NewController(gateway Gateway, pageSize, detailWorkers int) *Controller {
	if pageSize <= 0 {
		pageSize = 10
	}
	if detailWorkers <= 0 {
		detailWorkers = 8
	}
	return &Controller{
		gateway:       gateway,
		detailWorkers: detailWorkers,
		cancelled:     make(map[string]struct{}),
		page:          1,
		pageSize:      pageSize,
	}
}

// effectivelyCancelled applies the cancelled-set criterion to one detail
// response: no subscription at all, cancellation scheduled, or status
// already "canceled".
func effectivelyCancelled(detail *backend.CustomerDetail) bool {
	if detail == nil || detail.Customer == nil {
		return false
	}
	snap := detail.Subscription
	if snap == nil || !snap.HasSubscription {
		return true
	}
	if snap.Subscription == nil {
		return true
	}
	return snap.Subscription.CancelAtPeriodEnd || snap.Subscription.Status == "canceled"
}

// Refresh fetches the roster and recomputes the cancelled set from scratch.
// Detail fetches fan out across a small worker pool; an individual failure
// contributes nothing to the set rather than aborting the refresh.
func (c *Controller) Refresh(ctx context.Context) error {
	customers, err := c.gateway.ListCustomers(ctx)
	if err != nil {
		return err
	}

	fresh := make(map[string]struct{})
	var freshMu sync.Mutex

	jobs := make(chan backend.Customer)
	var wg sync.WaitGroup
	for i := 0; i < c.detailWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for customer := range jobs {
				detail, err := c.gateway.GetCustomerDetail(ctx, customer.Email)
				if err != nil {
					log.Printf("Roster: detail fetch failed for %s: %v", customer.Email, err)
					continue
				}
				if effectivelyCancelled(detail) {
					freshMu.Lock()
					fresh[customer.Email] = struct{}{}
					freshMu.Unlock()
				}
			}
		}()
	}
	for _, customer := range customers {
		jobs <- customer
	}
	close(jobs)
	wg.Wait()

	c.mu.Lock()
	c.customers = customers
	c.cancelled = fresh
	c.lastRefreshed = time.Now()
	c.mu.Unlock()

	log.Printf("Roster: refreshed %d customers, %d effectively cancelled", len(customers), len(fresh))
	return nil
}

// Customers returns a copy of the current roster
func (c *Controller) Customers() []backend.Customer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]backend.Customer, len(c.customers))
	copy(out, c.customers)
	return out
}

// IsCancelled reports whether the email is in the cancelled set
func (c *Controller) IsCancelled(email string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.cancelled[email]
	return ok
}

// MarkCancelled adds an email to the cancelled set (optimistic update)
func (c *Controller) MarkCancelled(email string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelled[email] = struct{}{}
}

// UnmarkCancelled removes an email from the cancelled set. Removal is
// idempotent: removing an absent email is a no-op.
func (c *Controller) UnmarkCancelled(email string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cancelled, email)
}

// CancelledEmails returns the cancelled set as a slice
func (c *Controller) CancelledEmails() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.cancelled))
	for email := range c.cancelled {
		out = append(out, email)
	}
	return out
}

// LastRefreshed returns the time of the last successful refresh
func (c *Controller) LastRefreshed() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastRefreshed
}

// SetFilter sets the case-insensitive email/name filter and resets to page 1
func (c *Controller) SetFilter(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filterText = text
	c.page = 1
}

// SetUIDFilter sets the customer-id substring filter and resets to page 1
func (c *Controller) SetUIDFilter(uid string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uidFilter = uid
	c.page = 1
}

// SetShowOnlyActive toggles the active-only filter and resets to page 1
func (c *Controller) SetShowOnlyActive(only bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.showOnlyActive = only
	c.page = 1
}

// SetPageSize changes the page size and resets to page 1
func (c *Controller) SetPageSize(size int) {
	if size <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pageSize = size
	c.page = 1
}

// SetPage requests a page. The value is clamped into [1, totalPages] when
// the page view is built, so out-of-range requests are safe.
func (c *Controller) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.page = page
}

// matches applies the text, uid and active filters to one customer
func (c *Controller) matches(customer backend.Customer) bool {
	if c.filterText != "" {
		needle := strings.ToLower(c.filterText)
		if !strings.Contains(strings.ToLower(customer.Email), needle) &&
			!strings.Contains(strings.ToLower(customer.Name), needle) {
			return false
		}
	}
	if c.uidFilter != "" && !strings.Contains(strconv.Itoa(customer.ID), c.uidFilter) {
		return false
	}
	if c.showOnlyActive && !customer.IsActive {
		return false
	}
	return true
}

// Page builds the current page over the filtered roster. The requested page
// is clamped to [1, totalPages].
func (c *Controller) Page() PageView {
	c.mu.RLock()
	defer c.mu.RUnlock()

	filtered := make([]backend.Customer, 0, len(c.customers))
	for _, customer := range c.customers {
		if c.matches(customer) {
			filtered = append(filtered, customer)
		}
	}

	totalPages := (len(filtered) + c.pageSize - 1) / c.pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	page := c.page
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}

	start := (page - 1) * c.pageSize
	end := start + c.pageSize
	if start > len(filtered) {
		start = len(filtered)
	}
	if end > len(filtered) {
		end = len(filtered)
	}

	return PageView{
		Customers:  filtered[start:end],
		Page:       page,
		PageSize:   c.pageSize,
		TotalPages: totalPages,
		Total:      len(filtered),
	}
}
