// Package actions orchestrates mutating customer operations: confirmation
// gating, per-email working markers, optimistic cancelled-set updates, and
// the reconciling roster refresh that follows every successful action.
package actions

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/gurulink/crm-dashboard/internal/backend"
)

// Action identifies a mutating customer operation
type Action string

const (
	ActionCancel     Action = "cancel-subscription"
	ActionRestore    Action = "restore-subscription"
	ActionActivate   Action = "activate"
	ActionDeactivate Action = "deactivate"
)

// ErrNotConfirmed is returned when the confirmer declines an action. Nothing
// was sent to the backend and no state changed.
var ErrNotConfirmed = errors.New("action not confirmed")

// ErrActionInFlight is returned when an action is already outstanding for
// the same email. The second trigger never reaches the backend.
var ErrActionInFlight = errors.New("another action is already in progress for this customer")

// Confirmer gates every mutating action. A decline aborts with no side
// effect.
type Confirmer interface {
	Confirm(action Action, email string) bool
}

// ConfirmerFunc adapts a function to the Confirmer interface
type ConfirmerFunc func(action Action, email string) bool

func (f ConfirmerFunc) Confirm(action Action, email string) bool {
	return f(action, email)
}

// AlwaysConfirm approves every action. The HTTP layer uses it because the
// request itself carries the user's confirmation.
var AlwaysConfirm = ConfirmerFunc(func(Action, string) bool { return true })

// Gateway is the slice of the admin API client the orchestrator needs
type Gateway interface {
	CancelSubscription(ctx context.Context, email string) error
	RestoreSubscription(ctx context.Context, email string) error
	ActivateAccount(ctx context.Context, email string) error
	DeactivateAccount(ctx context.Context, email string) error
	GetCustomerDetail(ctx context.Context, email string) (*backend.CustomerDetail, error)
}

// Roster is the slice of the list controller the orchestrator mutates
type Roster interface {
	MarkCancelled(email string)
	UnmarkCancelled(email string)
	Refresh(ctx context.Context) error
}

// Orchestrator runs customer actions through a fixed sequence: confirm,
// acquire the working marker, call the backend, apply the optimistic
// update, then refresh the roster so authoritative state wins.
type Orchestrator struct {
	gateway   Gateway
	roster    Roster
	confirmer Confirmer

	mu      sync.Mutex
	working map[string]Action
}

// NewOrchestrator creates an orchestrator with no actions in flight
func NewOrchestrator(gateway Gateway, roster Roster, confirmer Confirmer) *Orchestrator {
	if confirmer == nil {
		confirmer = AlwaysConfirm
	}
	return &Orchestrator{
		gateway:   gateway,
		roster:    roster,
		confirmer: confirmer,
		working:   make(map[string]Action),
	}
}

// Working reports the action currently in flight for the email, if any
func (o *Orchestrator) Working(email string) (Action, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	action, ok := o.working[email]
	return action, ok
}

// WorkingEmails returns the emails with an action currently in flight
func (o *Orchestrator) WorkingEmails() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, 0, len(o.working))
	for email := range o.working {
		out = append(out, email)
	}
	return out
}

func (o *Orchestrator) begin(email string, action Action) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.working[email]; busy {
		return ErrActionInFlight
	}
	o.working[email] = action
	return nil
}

func (o *Orchestrator) finish(email string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.working, email)
}

// run executes one action through the shared sequence. The working marker
// is cleared via defer regardless of outcome.
func (o *Orchestrator) run(ctx context.Context, action Action, email string, do func(context.Context) error) (*backend.CustomerDetail, error) {
	if !o.confirmer.Confirm(action, email) {
		return nil, ErrNotConfirmed
	}
	if err := o.begin(email, action); err != nil {
		return nil, err
	}
	defer o.finish(email)

	if err := do(ctx); err != nil {
		return nil, err
	}
	return o.reconcile(ctx, email), nil
}

// reconcile refreshes the roster and refetches the customer's detail so an
// open detail view can update. Both steps are best-effort: the action
// already succeeded, so failures here are logged and the optimistic state
// stands until the next refresh.
func (o *Orchestrator) reconcile(ctx context.Context, email string) *backend.CustomerDetail {
	if err := o.roster.Refresh(ctx); err != nil {
		log.Printf("Actions: roster refresh after action failed: %v", err)
	}
	detail, err := o.gateway.GetCustomerDetail(ctx, email)
	if err != nil {
		log.Printf("Actions: detail refresh for %s failed: %v", email, err)
		return nil
	}
	return detail
}

// Cancel schedules cancellation at period end. A backend response saying
// there is no subscription to cancel is treated as success: the customer is
// already in the state the operator asked for.
func (o *Orchestrator) Cancel(ctx context.Context, email string) (*backend.CustomerDetail, error) {
	return o.run(ctx, ActionCancel, email, func(ctx context.Context) error {
		if err := o.gateway.CancelSubscription(ctx, email); err != nil && !backend.IsNoSubscription(err) {
			return err
		}
		o.roster.MarkCancelled(email)
		return nil
	})
}

// Restore removes a scheduled cancellation and drops the email from the
// cancelled set. Removal is idempotent regardless of prior membership.
func (o *Orchestrator) Restore(ctx context.Context, email string) (*backend.CustomerDetail, error) {
	return o.run(ctx, ActionRestore, email, func(ctx context.Context) error {
		if err := o.gateway.RestoreSubscription(ctx, email); err != nil {
			return err
		}
		o.roster.UnmarkCancelled(email)
		return nil
	})
}

// Activate re-enables a customer account. No optimistic flag: is_active is
// authoritative from the roster, so only the refresh sequence runs.
func (o *Orchestrator) Activate(ctx context.Context, email string) (*backend.CustomerDetail, error) {
	return o.run(ctx, ActionActivate, email, func(ctx context.Context) error {
		return o.gateway.ActivateAccount(ctx, email)
	})
}

// Deactivate disables a customer account
func (o *Orchestrator) Deactivate(ctx context.Context, email string) (*backend.CustomerDetail, error) {
	return o.run(ctx, ActionDeactivate, email, func(ctx context.Context) error {
		return o.gateway.DeactivateAccount(ctx, email)
	})
}
