// Package access serves the dashboard's view of the access policy: the
// principal with its menu, route guard outcomes and action gate decisions.
package access

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eventreg/eventreg/internal/auth"
	"github.com/eventreg/eventreg/internal/navigation"
	"github.com/eventreg/eventreg/internal/notify"
	"github.com/eventreg/eventreg/internal/platform/httpx"
	"github.com/eventreg/eventreg/internal/rbac"
	"github.com/eventreg/eventreg/internal/roles"
	"github.com/eventreg/eventreg/internal/roleswitch"
	"github.com/eventreg/eventreg/internal/shared"
)

// Refresher re-fetches the principal behind a session.
type Refresher interface {
	Refresh(ctx context.Context, ref auth.SessionRef) (*auth.Principal, error)
}

// Drainer hands out one-time notices.
type Drainer interface {
	Drain(ctx context.Context, principalID string) ([]notify.Notice, error)
}

// Handler exposes access policy endpoints.
type Handler struct {
	logger    *slog.Logger
	refresher Refresher
	guard     *navigation.Guard
	gate      *rbac.Gate
	notices   Drainer
	csrf      *shared.CSRFManager
}

// NewHandler builds the access handler.
func NewHandler(logger *slog.Logger, refresher Refresher, guard *navigation.Guard, gate *rbac.Gate, notices Drainer, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		refresher: refresher,
		guard:     guard,
		gate:      gate,
		notices:   notices,
		csrf:      csrf,
	}
}

type meResponse struct {
	Principal     *auth.Principal   `json:"principal"`
	EffectiveRole roles.Role        `json:"effective_role"`
	RoleLabel     string            `json:"role_label"`
	ReadOnly      bool              `json:"read_only"`
	SwitchState   roleswitch.State  `json:"switch_state"`
	Menu          []navigation.Item `json:"menu"`
	Notices       []notify.Notice   `json:"notices"`
	CSRFToken     string            `json:"csrf_token,omitempty"`
}

// HandleMe re-fetches the profile and renders the dashboard shell data.
// Pending notices are delivered once.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	p, err := h.refresher.Refresh(r.Context(), auth.RefFromSession(sess))
	if err != nil {
		h.logger.Info("profile refresh rejected", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	notices := []notify.Notice{}
	if h.notices != nil {
		drained, err := h.notices.Drain(r.Context(), p.ID)
		if err != nil {
			h.logger.Warn("drain notices", slog.String("principal_id", p.ID), slog.Any("error", err))
		} else if drained != nil {
			notices = drained
		}
	}

	var token string
	if h.csrf != nil && sess != nil {
		token, _ = h.csrf.EnsureToken(r.Context(), sess)
	}

	httpx.JSON(w, http.StatusOK, meResponse{
		Principal:     p,
		EffectiveRole: p.EffectiveRole(),
		RoleLabel:     roles.Label(p.EffectiveRole()),
		ReadOnly:      p.ReadOnly(),
		SwitchState:   roleswitch.StateOf(p),
		Menu:          navigation.MenuFor(p),
		Notices:       notices,
		CSRFToken:     token,
	})
}

// HandleRoute reports the guard outcome for ?path=. It serves anonymous
// sessions too and stores the return-to path on login redirects.
func (h *Handler) HandleRoute(w http.ResponseWriter, r *http.Request) {
	destination := r.URL.Query().Get("path")
	if destination == "" {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "path is required")
		return
	}
	out := h.guard.Authorize(auth.StateFromContext(r.Context()), destination)
	if out.Kind == navigation.KindRedirect && out.From != "" {
		if sess := shared.SessionFromContext(r.Context()); sess != nil {
			sess.SetReturnTo(out.From)
		}
	}
	httpx.JSON(w, http.StatusOK, out)
}

// HandleAction reports the gate decision for one action.
func (h *Handler) HandleAction(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())
	if p == nil {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	httpx.JSON(w, http.StatusOK, h.gate.EvaluateID(p, chi.URLParam(r, "actionID")))
}

// HandleActions reports gate decisions for every registered action.
func (h *Handler) HandleActions(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())
	if p == nil {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	ids := rbac.Actions()
	decisions := make([]rbac.Decision, 0, len(ids))
	for _, id := range ids {
		decisions = append(decisions, h.gate.EvaluateID(p, id))
	}
	httpx.JSON(w, http.StatusOK, decisions)
}
