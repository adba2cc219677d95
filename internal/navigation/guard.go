package navigation

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/eventreg/eventreg/internal/auth"
	"github.com/eventreg/eventreg/internal/platform/httpx"
	"github.com/eventreg/eventreg/internal/roles"
	"github.com/eventreg/eventreg/internal/shared"
)

// Kind is the shape of a guard outcome.
type Kind string

const (
	KindAllow    Kind = "allow"
	KindRedirect Kind = "redirect"
	// KindPending means authentication is still resolving; render a loader.
	KindPending Kind = "pending"
)

// Reason explains a redirect.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonUnauthenticated Reason = "unauthenticated"
	ReasonExpired         Reason = "expired"
	ReasonUnauthorized    Reason = "unauthorized"
	ReasonUnknownRole     Reason = "unknown_role"
)

// Outcome is what the routing host acts on. From is set on login redirects
// and names the path to return to after authentication.
type Outcome struct {
	Kind     Kind   `json:"kind"`
	Location string `json:"location,omitempty"`
	From     string `json:"from,omitempty"`
	Reason   Reason `json:"reason,omitempty"`
}

// Allowed reports whether the outcome lets the navigation proceed.
func (o Outcome) Allowed() bool {
	return o.Kind == KindAllow
}

// Recorder observes guard and gate decisions.
type Recorder interface {
	RecordDecision(component, outcome string)
}

// Guard authorizes navigation requests.
type Guard struct {
	logger   *slog.Logger
	recorder Recorder
	now      func() time.Time
}

// NewGuard constructs a Guard. logger and recorder may be nil.
func NewGuard(logger *slog.Logger, recorder Recorder) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{logger: logger, recorder: recorder, now: time.Now}
}

// Authorize decides whether state may enter destination.
func (g *Guard) Authorize(state auth.AuthState, destination string) Outcome {
	out := g.authorize(state, destination)
	if g.recorder != nil {
		label := string(out.Kind)
		if out.Reason != ReasonNone {
			label += ":" + string(out.Reason)
		}
		g.recorder.RecordDecision("route_guard", label)
	}
	return out
}

func (g *Guard) authorize(state auth.AuthState, destination string) Outcome {
	dest := cleanPath(destination)
	if dest == PathLogin {
		return Outcome{Kind: KindAllow}
	}

	switch {
	case state.Status == auth.StatusResolving:
		return Outcome{Kind: KindPending}
	case state.Status != auth.StatusAuthenticated || state.Principal == nil:
		return g.toLogin(destination, ReasonUnauthenticated)
	case state.Expired(g.now()):
		return g.toLogin(destination, ReasonExpired)
	}

	role := state.Principal.EffectiveRole()
	if !roles.IsValid(role) {
		g.logger.Warn("navigation denied for unknown role",
			slog.String("principal_id", state.Principal.ID),
			slog.String("role", string(role)),
			slog.String("destination", dest),
		)
		return Outcome{Kind: KindRedirect, Location: PathLogin, Reason: ReasonUnknownRole}
	}
	if !Reachable(role, dest) {
		return Outcome{Kind: KindRedirect, Location: PathDashboard, Reason: ReasonUnauthorized}
	}
	return Outcome{Kind: KindAllow}
}

func (g *Guard) toLogin(destination string, reason Reason) Outcome {
	out := Outcome{Kind: KindRedirect, Location: PathLogin, Reason: reason}
	if from, ok := SafeReturnPath(destination); ok {
		out.From = from
	}
	return out
}

// RequireRoute guards API endpoints that back a dashboard page: only
// principals whose menu reaches destination get through.
func (g *Guard) RequireRoute(destination string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			out := g.Authorize(auth.StateFromContext(r.Context()), destination)
			switch {
			case out.Allowed():
				next.ServeHTTP(w, r)
			case out.Kind == KindPending:
				w.Header().Set("Retry-After", "1")
				httpx.Problem(w, http.StatusServiceUnavailable, "Session Resolving", "principal is still being resolved")
			case out.Reason == ReasonUnknownRole:
				httpx.RespondError(w, shared.ErrUnknownRole)
			case out.Location == PathLogin:
				httpx.RespondError(w, shared.ErrUnauthenticated)
			default:
				httpx.RespondError(w, shared.ErrUnauthorized)
			}
		})
	}
}
