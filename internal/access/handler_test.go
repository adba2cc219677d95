package access_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventreg/eventreg/internal/access"
	"github.com/eventreg/eventreg/internal/auth"
	"github.com/eventreg/eventreg/internal/navigation"
	"github.com/eventreg/eventreg/internal/notify"
	"github.com/eventreg/eventreg/internal/rbac"
	"github.com/eventreg/eventreg/internal/roles"
	"github.com/eventreg/eventreg/internal/roleswitch"
	"github.com/eventreg/eventreg/internal/shared"
)

type fixedRefresher struct {
	principal *auth.Principal
	err       error
}

func (f fixedRefresher) Refresh(context.Context, auth.SessionRef) (*auth.Principal, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.principal.Clone(), nil
}

type fixture struct {
	router   chi.Router
	inbox    *notify.Inbox
	sessions *shared.SessionManager
}

func newFixture(t *testing.T, refresher access.Refresher) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	inbox := notify.NewInbox(client, time.Hour)
	h := access.NewHandler(nil, refresher, navigation.NewGuard(nil, nil), rbac.NewGate(nil, nil), inbox, shared.NewCSRFManager("csrf"))

	r := chi.NewRouter()
	r.Get("/api/me", h.HandleMe)
	r.Get("/api/access/route", h.HandleRoute)
	r.Get("/api/access/actions", h.HandleActions)
	r.Get("/api/access/actions/{actionID}", h.HandleAction)
	return &fixture{
		router:   r,
		inbox:    inbox,
		sessions: shared.NewSessionManager(client, "test_session", "secret", time.Hour, false),
	}
}

func (f *fixture) get(t *testing.T, target string, sess *shared.Session, state auth.AuthState) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	ctx := auth.ContextWithState(req.Context(), state)
	if sess != nil {
		ctx = shared.ContextWithSession(ctx, sess)
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req.WithContext(ctx))
	return rr
}

func (f *fixture) session(t *testing.T) *shared.Session {
	t.Helper()
	sess, err := f.sessions.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	return sess
}

func authenticated(role roles.Role) auth.AuthState {
	return auth.AuthState{
		Status:    auth.StatusAuthenticated,
		Principal: &auth.Principal{ID: "p1", PrimaryRole: role, CurrentRole: role},
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func decodeOutcome(t *testing.T, rr *httptest.ResponseRecorder) navigation.Outcome {
	t.Helper()
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var out navigation.Outcome
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func TestRouteCheckStoresReturnToForAnonymous(t *testing.T) {
	f := newFixture(t, fixedRefresher{})
	sess := f.session(t)

	out := decodeOutcome(t, f.get(t, "/api/access/route?path=/events/12", sess, auth.AuthState{Status: auth.StatusUnauthenticated}))
	assert.Equal(t, navigation.KindRedirect, out.Kind)
	assert.Equal(t, navigation.PathLogin, out.Location)
	assert.Equal(t, "/events/12", out.From)
	assert.Equal(t, "/events/12", sess.Get(shared.ReturnToKey))

	f.get(t, "/api/access/route?path=/reports", sess, auth.AuthState{Status: auth.StatusUnauthenticated})
	assert.Equal(t, "/reports", sess.Get(shared.ReturnToKey), "single slot is overwritten")
}

func TestRouteCheckForAuthenticatedRoles(t *testing.T) {
	f := newFixture(t, fixedRefresher{})
	sess := f.session(t)

	out := decodeOutcome(t, f.get(t, "/api/access/route?path=/events", sess, authenticated(roles.BranchAdmin)))
	assert.Equal(t, navigation.KindAllow, out.Kind)

	out = decodeOutcome(t, f.get(t, "/api/access/route?path=/states", sess, authenticated(roles.BranchAdmin)))
	assert.Equal(t, navigation.KindRedirect, out.Kind)
	assert.Equal(t, navigation.PathDashboard, out.Location)
	assert.Empty(t, sess.Get(shared.ReturnToKey))

	out = decodeOutcome(t, f.get(t, "/api/access/route?path=/events", sess, auth.AuthState{Status: auth.StatusResolving}))
	assert.Equal(t, navigation.KindPending, out.Kind)

	rr := f.get(t, "/api/access/route", sess, authenticated(roles.Worker))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestActionDecision(t *testing.T) {
	f := newFixture(t, fixedRefresher{})

	rr := f.get(t, "/api/access/actions/"+rbac.ActionBranchCreate, nil, authenticated(roles.SuperME))
	require.Equal(t, http.StatusOK, rr.Code)
	var d rbac.Decision
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &d))
	assert.False(t, d.Allowed)
	assert.Equal(t, rbac.ReasonReadOnly, d.Reason)
	assert.Contains(t, d.Message, "read-only mode")

	rr = f.get(t, "/api/access/actions/"+rbac.ActionBranchApprove, nil, authenticated(roles.BranchAdmin))
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &d))
	assert.False(t, d.Allowed)
	assert.Equal(t, rbac.ReasonUnauthorized, d.Reason)

	rr = f.get(t, "/api/access/actions/"+rbac.ActionGuestCheckIn, nil, auth.AuthState{Status: auth.StatusUnauthenticated})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestActionList(t *testing.T) {
	f := newFixture(t, fixedRefresher{})

	rr := f.get(t, "/api/access/actions", nil, authenticated(roles.Registrar))
	require.Equal(t, http.StatusOK, rr.Code)
	var decisions []rbac.Decision
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &decisions))
	require.Len(t, decisions, len(rbac.Actions()))

	allowed := map[string]bool{}
	for _, d := range decisions {
		allowed[d.ActionID] = d.Allowed
	}
	assert.True(t, allowed[rbac.ActionGuestCheckIn])
	assert.False(t, allowed[rbac.ActionGuestRegister])
	assert.False(t, allowed[rbac.ActionRoleRequestApprove])
}

func TestMeRendersMenuAndDrainsNotices(t *testing.T) {
	p := &auth.Principal{ID: "w1", Name: "Wale", PrimaryRole: roles.Worker, CurrentRole: roles.Registrar, CanSwitchRoles: true}
	f := newFixture(t, fixedRefresher{principal: p})
	require.NoError(t, f.inbox.Notify(context.Background(), notify.New("w1", notify.KindSuccess, notify.CodeSwitchApproved, "approved")))
	sess := f.session(t)
	state := authenticated(roles.Worker)

	rr := f.get(t, "/api/me", sess, state)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var body struct {
		EffectiveRole roles.Role        `json:"effective_role"`
		RoleLabel     string            `json:"role_label"`
		ReadOnly      bool              `json:"read_only"`
		SwitchState   roleswitch.State  `json:"switch_state"`
		Menu          []navigation.Item `json:"menu"`
		Notices       []notify.Notice   `json:"notices"`
		CSRFToken     string            `json:"csrf_token"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, roles.Registrar, body.EffectiveRole)
	assert.Equal(t, "Registrar", body.RoleLabel)
	assert.False(t, body.ReadOnly)
	assert.Equal(t, roleswitch.SwitchableAsRegistrar, body.SwitchState)
	assert.Equal(t, navigation.MenuForRole(roles.Registrar), body.Menu)
	require.Len(t, body.Notices, 1)
	assert.Equal(t, notify.CodeSwitchApproved, body.Notices[0].Code)
	assert.NotEmpty(t, body.CSRFToken)

	rr = f.get(t, "/api/me", sess, state)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Empty(t, body.Notices)
}

func TestMeRejectsInvalidatedPrincipal(t *testing.T) {
	f := newFixture(t, fixedRefresher{err: shared.ErrUnknownRole})
	rr := f.get(t, "/api/me", f.session(t), authenticated(roles.Worker))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	f = newFixture(t, fixedRefresher{err: shared.ErrUnauthenticated})
	rr = f.get(t, "/api/me", f.session(t), authenticated(roles.Worker))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
