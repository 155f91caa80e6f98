package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gurulink/crm-dashboard/internal/backend"
)

type fakeGateway struct {
	mu            sync.Mutex
	notifications []backend.Notification
	unread        int
	listErr       error
	countErr      error
	markErr       error
	listCalls     int
	markedIDs     []int64
	markedAll     int
}

func (g *fakeGateway) ListNotifications(ctx context.Context, limit int, unreadOnly bool) ([]backend.Notification, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listCalls++
	if g.listErr != nil {
		return nil, g.listErr
	}
	out := make([]backend.Notification, len(g.notifications))
	copy(out, g.notifications)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (g *fakeGateway) UnreadCount(ctx context.Context) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.countErr != nil {
		return 0, g.countErr
	}
	return g.unread, nil
}

func (g *fakeGateway) MarkNotificationRead(ctx context.Context, id int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.markErr != nil {
		return g.markErr
	}
	g.markedIDs = append(g.markedIDs, id)
	return nil
}

func (g *fakeGateway) MarkAllRead(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.markedAll++
	return nil
}

func (g *fakeGateway) listCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.listCalls
}

func seedGateway() *fakeGateway {
	return &fakeGateway{
		notifications: []backend.Notification{
			{ID: 3, Type: "new_subscription", Title: "New subscription", IsRead: false},
			{ID: 2, Type: "cancellation", Title: "Cancellation scheduled", IsRead: false},
			{ID: 1, Type: "new_registration", Title: "New registration", IsRead: true},
		},
		unread: 2,
	}
}

func TestRefresh(t *testing.T) {
	gw := seedGateway()
	p := NewPoller(gw, time.Second, 50)

	require.NoError(t, p.Refresh(context.Background()))
	assert.Len(t, p.Notifications(), 3)
	assert.Equal(t, 2, p.Unread())
	assert.False(t, p.LastPolled().IsZero())
}

func TestRefresh_Errors(t *testing.T) {
	gw := seedGateway()
	gw.listErr = errors.New("down")
	p := NewPoller(gw, time.Second, 50)

	assert.Error(t, p.Refresh(context.Background()))
	assert.Empty(t, p.Notifications())
	assert.True(t, p.LastPolled().IsZero())
}

func TestRefresh_CancelledContextDiscardsResult(t *testing.T) {
	gw := seedGateway()
	p := NewPoller(gw, time.Second, 50)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Refresh(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, p.Notifications())
	assert.Equal(t, 0, p.Unread())
}

func TestStart_PollsOnInterval(t *testing.T) {
	gw := seedGateway()
	p := NewPoller(gw, 10*time.Millisecond, 50)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	assert.Eventually(t, func() bool {
		return gw.listCount() >= 3
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, p.Unread())
}

func TestStart_SwallowsBackgroundFailures(t *testing.T) {
	gw := seedGateway()
	gw.listErr = errors.New("down")
	p := NewPoller(gw, 10*time.Millisecond, 50)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	// Polling keeps going and local state stays untouched
	assert.Eventually(t, func() bool {
		return gw.listCount() >= 2
	}, time.Second, 5*time.Millisecond)
	assert.Empty(t, p.Notifications())
}

func TestMarkRead_Optimistic(t *testing.T) {
	gw := seedGateway()
	p := NewPoller(gw, time.Second, 50)
	require.NoError(t, p.Refresh(context.Background()))

	require.NoError(t, p.MarkRead(context.Background(), 3))
	assert.Equal(t, 1, p.Unread())
	assert.True(t, p.Notifications()[0].IsRead)
	assert.Equal(t, []int64{3}, gw.markedIDs)

	// Marking an already-read entry changes nothing locally
	require.NoError(t, p.MarkRead(context.Background(), 3))
	assert.Equal(t, 1, p.Unread())
}

func TestMarkRead_FloorsAtZero(t *testing.T) {
	gw := seedGateway()
	gw.unread = 0 // backend already thinks everything is read
	p := NewPoller(gw, time.Second, 50)
	require.NoError(t, p.Refresh(context.Background()))

	require.NoError(t, p.MarkRead(context.Background(), 2))
	assert.Equal(t, 0, p.Unread())
}

func TestMarkRead_LocalFlipSurvivesBackendFailure(t *testing.T) {
	gw := seedGateway()
	gw.markErr = errors.New("down")
	p := NewPoller(gw, time.Second, 50)
	require.NoError(t, p.Refresh(context.Background()))

	err := p.MarkRead(context.Background(), 3)
	assert.Error(t, err)
	// Optimistic state stands until the next poll reconciles
	assert.Equal(t, 1, p.Unread())
	assert.True(t, p.Notifications()[0].IsRead)
}

func TestMarkAllRead(t *testing.T) {
	gw := seedGateway()
	p := NewPoller(gw, time.Second, 50)
	require.NoError(t, p.Refresh(context.Background()))

	require.NoError(t, p.MarkAllRead(context.Background()))
	assert.Equal(t, 0, p.Unread())
	for _, n := range p.Notifications() {
		assert.True(t, n.IsRead)
	}
	assert.Equal(t, 1, gw.markedAll)
}
