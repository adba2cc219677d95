package rbac

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventreg/eventreg/internal/auth"
	"github.com/eventreg/eventreg/internal/navigation"
	"github.com/eventreg/eventreg/internal/roles"
	"github.com/eventreg/eventreg/internal/shared"
)

func principal(role roles.Role) *auth.Principal {
	return &auth.Principal{ID: "p-" + string(role), PrimaryRole: role, CurrentRole: role}
}

func TestViewAllowedForEveryRoleReachingThePage(t *testing.T) {
	g := NewGate(nil, nil)
	views := map[string]string{
		ActionGuestsView:       navigation.PathGuests,
		ActionWorkersView:      navigation.PathWorkers,
		ActionEventsView:       navigation.PathEvents,
		ActionRoleRequestsView: navigation.PathRoleRequests,
		ActionReportsView:      navigation.PathReports,
	}
	for actionID, page := range views {
		desc, ok := Lookup(actionID)
		require.True(t, ok, actionID)
		require.Equal(t, CapView, desc.RequiredCapability)
		for _, role := range navigation.RolesFor(page) {
			assert.True(t, g.CanInvoke(principal(role), desc), "%s as %s", actionID, role)
		}
	}
}

func TestReadOnlyRolesNeverMutate(t *testing.T) {
	g := NewGate(nil, nil)
	for _, role := range []roles.Role{roles.SuperME, roles.BranchME} {
		for _, id := range Actions() {
			desc, _ := Lookup(id)
			d := g.Evaluate(principal(role), desc)
			if desc.RequiredCapability == CapView {
				assert.True(t, d.Allowed, "%s %s", role, id)
				continue
			}
			assert.False(t, d.Allowed, "%s %s", role, id)
			assert.Equal(t, ReasonReadOnly, d.Reason)
			assert.True(t, strings.HasPrefix(d.Message, "You are in read-only mode and cannot "), d.Message)
			assert.True(t, strings.HasSuffix(d.Message, "This is a read-only role for data viewing and analysis only."), d.Message)
		}
	}
}

func TestReadOnlyDeniesUnregisteredMutations(t *testing.T) {
	g := NewGate(nil, nil)
	d := g.Evaluate(principal(roles.SuperME), Descriptor{ActionID: "custom.thing", RequiredCapability: CapDelete})
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonReadOnly, d.Reason)
	assert.Contains(t, d.Message, "cannot make changes")
}

func TestBranchApprovalIsSuperAdminOnly(t *testing.T) {
	g := NewGate(nil, nil)
	approve, ok := Lookup(ActionBranchApprove)
	require.True(t, ok)
	require.Equal(t, CapApprove, approve.RequiredCapability)

	assert.False(t, g.CanInvoke(principal(roles.BranchAdmin), approve))
	assert.False(t, g.CanInvoke(principal(roles.StateAdmin), approve))
	assert.True(t, g.CanInvoke(principal(roles.SuperAdmin), approve))

	d := g.Evaluate(principal(roles.BranchAdmin), approve)
	assert.Equal(t, ReasonUnauthorized, d.Reason)
	assert.Empty(t, d.Message)
}

func TestRegisteredCapabilityOverridesCaller(t *testing.T) {
	g := NewGate(nil, nil)
	forged := Descriptor{ActionID: ActionBranchApprove, RequiredCapability: CapView}
	assert.False(t, g.CanInvoke(principal(roles.Worker), forged))
}

func TestUnknownRoleDeniesEverything(t *testing.T) {
	g := NewGate(nil, nil)
	for _, id := range Actions() {
		d := g.EvaluateID(principal("ghost"), id)
		assert.False(t, d.Allowed, id)
		assert.Equal(t, ReasonUnknownRole, d.Reason, id)
	}
	assert.False(t, g.CanInvoke(nil, Descriptor{ActionID: ActionGuestsView, RequiredCapability: CapView}))
}

func TestUnknownActionDenied(t *testing.T) {
	g := NewGate(nil, nil)
	d := g.EvaluateID(principal(roles.SuperAdmin), "nuke.everything")
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonUnauthorized, d.Reason)

	for _, role := range []roles.Role{roles.SuperAdmin, roles.Worker, roles.SuperME} {
		d = g.Evaluate(principal(role), Descriptor{ActionID: "custom.view", RequiredCapability: CapView})
		assert.False(t, d.Allowed, role)
		assert.Equal(t, ReasonUnauthorized, d.Reason, role)
	}
}

func TestEffectiveRoleDrivesDecision(t *testing.T) {
	g := NewGate(nil, nil)
	p := &auth.Principal{ID: "w", PrimaryRole: roles.Worker, CurrentRole: roles.Registrar, CanSwitchRoles: true}
	assert.True(t, g.EvaluateID(p, ActionGuestCheckIn).Allowed)
	assert.False(t, g.EvaluateID(p, ActionGuestRegister).Allowed)

	p.CurrentRole = roles.Worker
	assert.False(t, g.EvaluateID(p, ActionGuestCheckIn).Allowed)
	assert.True(t, g.EvaluateID(p, ActionGuestRegister).Allowed)
}

func TestDecisionErr(t *testing.T) {
	g := NewGate(nil, nil)
	assert.NoError(t, g.EvaluateID(principal(roles.SuperAdmin), ActionEventCreate).Err())

	err := g.EvaluateID(principal(roles.BranchME), ActionEventCreate).Err()
	assert.True(t, errors.Is(err, shared.ErrReadOnly))
	assert.Contains(t, err.Error(), "cannot create events")

	assert.True(t, errors.Is(g.EvaluateID(principal(roles.Worker), ActionEventCreate).Err(), shared.ErrUnauthorized))
	assert.True(t, errors.Is(g.EvaluateID(principal("ghost"), ActionEventCreate).Err(), shared.ErrUnknownRole))
}

func TestEveryActionHasPermittedRolesUnlessView(t *testing.T) {
	for _, id := range Actions() {
		desc, _ := Lookup(id)
		if desc.RequiredCapability == CapView {
			assert.Nil(t, PermittedRoles(id), id)
			continue
		}
		permitted := PermittedRoles(id)
		require.NotEmpty(t, permitted, id)
		for _, role := range permitted {
			assert.True(t, roles.IsValid(role), id)
			assert.False(t, roles.IsReadOnly(role), id)
		}
	}
}
