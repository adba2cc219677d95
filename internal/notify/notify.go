// Package notify carries one-time notices to principals. Components that
// report outcomes receive a Sink; nothing here is process-global.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Kind classifies how a notice is rendered.
type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

// Notice codes emitted by the policy services.
const (
	CodeSwitchRevoked      = "role_switch.revoked"
	CodeSwitchApproved     = "role_switch.approved"
	CodeSwitchRejected     = "role_switch.rejected"
	CodeSwitchRequested    = "role_switch.requested"
	CodeRoleSwitched       = "role_switch.switched"
	CodeSessionInvalidated = "session.invalidated"
)

// Notice is a single message addressed to a principal.
type Notice struct {
	ID          string    `json:"id"`
	PrincipalID string    `json:"principal_id"`
	Kind        Kind      `json:"kind"`
	Code        string    `json:"code"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
}

// New builds a notice with a fresh ID.
func New(principalID string, kind Kind, code, message string) Notice {
	return Notice{
		ID:          uuid.NewString(),
		PrincipalID: principalID,
		Kind:        kind,
		Code:        code,
		Message:     message,
		CreatedAt:   time.Now().UTC(),
	}
}

// Sink receives notices.
type Sink interface {
	Notify(ctx context.Context, n Notice) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, n Notice) error

// Notify implements Sink.
func (f SinkFunc) Notify(ctx context.Context, n Notice) error {
	return f(ctx, n)
}

// Discard drops every notice.
var Discard Sink = SinkFunc(func(context.Context, Notice) error { return nil })

// Fanout delivers to every sink and joins their errors.
type Fanout []Sink

// Notify implements Sink.
func (f Fanout) Notify(ctx context.Context, n Notice) error {
	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
