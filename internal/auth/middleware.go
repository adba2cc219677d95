package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/eventreg/eventreg/internal/platform/httpx"
	"github.com/eventreg/eventreg/internal/shared"
)

type stateContextKey struct{}

// ContextWithState stores the resolved auth state in context.
func ContextWithState(ctx context.Context, state AuthState) context.Context {
	return context.WithValue(ctx, stateContextKey{}, state)
}

// StateFromContext extracts the auth state; absent means unauthenticated.
func StateFromContext(ctx context.Context) AuthState {
	state, ok := ctx.Value(stateContextKey{}).(AuthState)
	if !ok {
		return AuthState{Status: StatusUnauthenticated}
	}
	return state
}

// PrincipalFromContext returns the authenticated principal or nil.
func PrincipalFromContext(ctx context.Context) *Principal {
	state := StateFromContext(ctx)
	if state.Status != StatusAuthenticated {
		return nil
	}
	return state.Principal
}

// RefFromSession builds the SessionRef for a request session.
func RefFromSession(sess *shared.Session) SessionRef {
	if sess == nil {
		return SessionRef{}
	}
	return SessionRef{ID: sess.ID, UserID: sess.User(), ExpiresAt: sess.ExpiresAt()}
}

// Middleware resolves principals for HTTP handlers.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// Resolve attaches the session's AuthState to the request context.
func (m Middleware) Resolve(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ref := RefFromSession(shared.SessionFromContext(r.Context()))
		state := m.Service.Resolve(r.Context(), ref)
		next.ServeHTTP(w, r.WithContext(ContextWithState(r.Context(), state)))
	})
}

// RequirePrincipal rejects requests without an authenticated principal.
func (m Middleware) RequirePrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state := StateFromContext(r.Context())
		switch state.Status {
		case StatusAuthenticated:
			next.ServeHTTP(w, r)
		case StatusResolving:
			w.Header().Set("Retry-After", "1")
			httpx.Problem(w, http.StatusServiceUnavailable, "Session Resolving", "principal is still being resolved")
		default:
			httpx.RespondError(w, shared.ErrUnauthenticated)
		}
	})
}
