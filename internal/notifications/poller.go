// Package notifications keeps a local copy of the admin notification feed,
// refreshed on a fixed interval and on demand, with optimistic mark-read
// handling reconciled by the next poll.
package notifications

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gurulink/crm-dashboard/internal/backend"
)

// Gateway is the slice of the admin API client the poller needs
type Gateway interface {
	ListNotifications(ctx context.Context, limit int, unreadOnly bool) ([]backend.Notification, error)
	UnreadCount(ctx context.Context) (int, error)
	MarkNotificationRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context) error
}

// Poller holds the notification slice of application state: the most recent
// notifications (newest first) and the unread count.
type Poller struct {
	gateway  Gateway
	interval time.Duration
	limit    int

	mu            sync.RWMutex
	notifications []backend.Notification
	unread        int
	lastPolled    time.Time
}

// NewPoller creates a poller with an empty feed
func NewPoller(gateway Gateway, interval time.Duration, limit int) *Poller {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if limit <= 0 {
		limit = 50
	}
	return &Poller{
		gateway:  gateway,
		interval: interval,
		limit:    limit,
	}
}

// Start begins periodic polling: one fetch immediately, then one per
// interval until the context is cancelled. Background failures are logged
// and swallowed so a flaky backend does not surface as recurring errors.
func (p *Poller) Start(ctx context.Context) {
	go func() {
		log.Printf("Notifications: polling every %v", p.interval)
		p.poll(ctx)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Println("Notifications: poller stopped")
				return
			case <-ticker.C:
				p.poll(ctx)
			}
		}
	}()
}

func (p *Poller) poll(ctx context.Context) {
	if err := p.Refresh(ctx); err != nil {
		log.Printf("Notifications: background poll failed: %v", err)
	}
}

// Refresh fetches the feed and unread count once. Explicit callers (panel
// open, after an action) get the error back; results arriving after the
// context is cancelled are discarded instead of applied.
func (p *Poller) Refresh(ctx context.Context) error {
	notifications, err := p.gateway.ListNotifications(ctx, p.limit, false)
	if err != nil {
		return err
	}
	count, err := p.gateway.UnreadCount(ctx)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	p.notifications = notifications
	p.unread = count
	p.lastPolled = time.Now()
	p.mu.Unlock()
	return nil
}

// Notifications returns a copy of the current feed
func (p *Poller) Notifications() []backend.Notification {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]backend.Notification, len(p.notifications))
	copy(out, p.notifications)
	return out
}

// Unread returns the current unread count
func (p *Poller) Unread() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.unread
}

// LastPolled returns the time of the last applied refresh
func (p *Poller) LastPolled() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastPolled
}

// MarkRead marks one notification as read. The local copy flips first and
// the unread count drops (floored at zero); the next poll reconciles
// against backend truth if the write failed.
func (p *Poller) MarkRead(ctx context.Context, id int64) error {
	p.mu.Lock()
	for i := range p.notifications {
		if p.notifications[i].ID == id && !p.notifications[i].IsRead {
			p.notifications[i].IsRead = true
			if p.unread > 0 {
				p.unread--
			}
			break
		}
	}
	p.mu.Unlock()

	return p.gateway.MarkNotificationRead(ctx, id)
}

// MarkAllRead flips every local entry and zeroes the count, then tells the
// backend
func (p *Poller) MarkAllRead(ctx context.Context) error {
	p.mu.Lock()
	for i := range p.notifications {
		p.notifications[i].IsRead = true
	}
	p.unread = 0
	p.mu.Unlock()

	return p.gateway.MarkAllRead(ctx)
}
