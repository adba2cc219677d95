package rbac

import (
	"log/slog"
	"net/http"

	"github.com/eventreg/eventreg/internal/auth"
	"github.com/eventreg/eventreg/internal/platform/httpx"
	"github.com/eventreg/eventreg/internal/shared"
)

// Middleware wires action authorization for HTTP handlers.
type Middleware struct {
	Gate   *Gate
	Logger *slog.Logger
}

// RequireAction lets the request through only when the context principal
// may invoke actionID.
func (m Middleware) RequireAction(actionID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := auth.PrincipalFromContext(r.Context())
			if p == nil {
				httpx.RespondError(w, shared.ErrUnauthenticated)
				return
			}
			d := m.Gate.EvaluateID(p, actionID)
			if d.Allowed {
				next.ServeHTTP(w, r)
				return
			}
			if m.Logger != nil {
				m.Logger.Info("action denied",
					slog.String("principal_id", p.ID),
					slog.String("action", actionID),
					slog.String("reason", string(d.Reason)),
				)
			}
			httpx.RespondError(w, d.Err())
		})
	}
}
