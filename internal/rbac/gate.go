package rbac

import (
	"fmt"
	"log/slog"

	"github.com/eventreg/eventreg/internal/auth"
	"github.com/eventreg/eventreg/internal/roles"
	"github.com/eventreg/eventreg/internal/shared"
)

// Reason classifies a gate decision.
type Reason string

const (
	ReasonAllowed      Reason = "allowed"
	ReasonReadOnly     Reason = "read_only"
	ReasonUnauthorized Reason = "unauthorized"
	ReasonUnknownRole  Reason = "unknown_role"
)

const readOnlyMessage = "You are in read-only mode and cannot %s. This is a read-only role for data viewing and analysis only."

// Decision is the gate's answer for one action. Denials carry a Message the
// control shows next to its disabled state.
type Decision struct {
	ActionID string `json:"action_id"`
	Allowed  bool   `json:"allowed"`
	Reason   Reason `json:"reason"`
	Message  string `json:"message,omitempty"`
}

// Err converts a denial into the matching sentinel error, nil when allowed.
func (d Decision) Err() error {
	switch d.Reason {
	case ReasonAllowed:
		return nil
	case ReasonReadOnly:
		return &shared.Denial{Kind: shared.ErrReadOnly, Message: d.Message}
	case ReasonUnknownRole:
		return shared.ErrUnknownRole
	default:
		return &shared.Denial{Kind: shared.ErrUnauthorized, Message: "not permitted: " + d.ActionID}
	}
}

// Recorder observes gate decisions.
type Recorder interface {
	RecordDecision(component, outcome string)
}

// Gate decides whether a principal may invoke an action. Route-level
// authorization is assumed to have passed already.
type Gate struct {
	logger   *slog.Logger
	recorder Recorder
}

// NewGate constructs a Gate. logger and recorder may be nil.
func NewGate(logger *slog.Logger, recorder Recorder) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{logger: logger, recorder: recorder}
}

// CanInvoke reports whether p may invoke action.
func (g *Gate) CanInvoke(p *auth.Principal, action Descriptor) bool {
	return g.Evaluate(p, action).Allowed
}

// EvaluateID is Evaluate for a registered action ID.
func (g *Gate) EvaluateID(p *auth.Principal, actionID string) Decision {
	desc, ok := Lookup(actionID)
	if !ok {
		desc = Descriptor{ActionID: actionID}
	}
	return g.Evaluate(p, desc)
}

// Evaluate applies, in order: unknown role denies; View allows; read-only
// roles are denied with the read-only explanation; otherwise the effective
// role must be in the action's permitted set. A registered action's
// capability overrides the one supplied by the caller; unregistered actions
// are never allowed.
func (g *Gate) Evaluate(p *auth.Principal, action Descriptor) Decision {
	d := g.evaluate(p, action)
	if g.recorder != nil {
		outcome := "allow"
		if !d.Allowed {
			outcome = "deny:" + string(d.Reason)
		}
		g.recorder.RecordDecision("action_gate", outcome)
	}
	return d
}

func (g *Gate) evaluate(p *auth.Principal, action Descriptor) Decision {
	d := Decision{ActionID: action.ActionID}
	role := p.EffectiveRole()
	if !roles.IsValid(role) {
		principalID := ""
		if p != nil {
			principalID = p.ID
		}
		g.logger.Warn("action denied for unknown role",
			slog.String("principal_id", principalID),
			slog.String("role", string(role)),
			slog.String("action", action.ActionID),
		)
		d.Reason = ReasonUnknownRole
		return d
	}

	rule, registered := actionTable[action.ActionID]
	capability := action.RequiredCapability
	if registered {
		capability = rule.capability
	}

	if capability == CapView {
		if !registered {
			d.Reason = ReasonUnauthorized
			return d
		}
		d.Allowed = true
		d.Reason = ReasonAllowed
		return d
	}
	if roles.IsReadOnly(role) {
		verb := rule.verb
		if verb == "" {
			verb = "make changes"
		}
		d.Reason = ReasonReadOnly
		d.Message = fmt.Sprintf(readOnlyMessage, verb)
		return d
	}
	if registered {
		for _, permitted := range rule.roles {
			if permitted == role {
				d.Allowed = true
				d.Reason = ReasonAllowed
				return d
			}
		}
	}
	d.Reason = ReasonUnauthorized
	return d
}
