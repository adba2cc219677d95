// Package roleswitch runs the worker/registrar role-switch protocol.
package roleswitch

import (
	"fmt"

	"github.com/eventreg/eventreg/internal/auth"
	"github.com/eventreg/eventreg/internal/roles"
	"github.com/eventreg/eventreg/internal/shared"
)

// State is the switch state of one principal.
type State string

const (
	Fixed                 State = "fixed"
	SwitchableAsWorker    State = "switchable_as_worker"
	SwitchableAsRegistrar State = "switchable_as_registrar"
	PendingElevation      State = "pending_elevation_request"
)

// Event drives a transition.
type Event string

const (
	EventRequestElevation Event = "request_elevation"
	EventAdminApproves    Event = "admin_approves"
	EventAdminRejects     Event = "admin_rejects"
	EventToggle           Event = "toggle"
	EventAdminRevokes     Event = "admin_revokes"
)

var (
	ErrInvalidTransition  = fmt.Errorf("roleswitch: invalid transition: %w", shared.ErrConflict)
	ErrNotEligible        = fmt.Errorf("roleswitch: only workers may request registrar access: %w", shared.ErrUnauthorized)
	ErrTransitionInFlight = fmt.Errorf("roleswitch: a transition is already in flight: %w", shared.ErrConflict)
	// ErrStaleTransition means the principal left the source state (or logged
	// out) while the backend call was running; the result was discarded.
	ErrStaleTransition = fmt.Errorf("roleswitch: stale transition discarded: %w", shared.ErrConflict)
)

// StateOf derives the switch state from a principal.
func StateOf(p *auth.Principal) State {
	switch {
	case p == nil:
		return Fixed
	case p.CanSwitchRoles && p.EffectiveRole() == roles.Registrar:
		return SwitchableAsRegistrar
	case p.CanSwitchRoles:
		return SwitchableAsWorker
	case p.RequestedSwitch:
		return PendingElevation
	default:
		return Fixed
	}
}

// Next returns the state reached from from on event. A repeated elevation
// request while pending is a no-op, not an error.
func Next(from State, event Event, primary roles.Role) (State, error) {
	switch from {
	case Fixed:
		if event == EventRequestElevation {
			if primary != roles.Worker {
				return from, ErrNotEligible
			}
			return PendingElevation, nil
		}
	case PendingElevation:
		switch event {
		case EventRequestElevation:
			return PendingElevation, nil
		case EventAdminApproves:
			return SwitchableAsWorker, nil
		case EventAdminRejects:
			return Fixed, nil
		}
	case SwitchableAsWorker:
		switch event {
		case EventToggle:
			return SwitchableAsRegistrar, nil
		case EventAdminRevokes:
			return Fixed, nil
		}
	case SwitchableAsRegistrar:
		switch event {
		case EventToggle:
			return SwitchableAsWorker, nil
		case EventAdminRevokes:
			return Fixed, nil
		}
	}
	return from, ErrInvalidTransition
}

// CanTransition reports whether event is accepted in from.
func CanTransition(from State, event Event, primary roles.Role) bool {
	_, err := Next(from, event, primary)
	return err == nil
}

// TransitionError reports a failed backend call. The principal is left
// untouched and the call may be retried.
type TransitionError struct {
	Op  string
	Err error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("roleswitch: %s: %v", e.Op, e.Err)
}

// Unwrap exposes both shared.ErrTransitionFailure and the cause.
func (e *TransitionError) Unwrap() []error {
	return []error{shared.ErrTransitionFailure, e.Err}
}

// Retryable is always true; state was not changed.
func (e *TransitionError) Retryable() bool {
	return true
}
