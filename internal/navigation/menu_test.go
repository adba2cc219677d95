package navigation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventreg/eventreg/internal/auth"
	"github.com/eventreg/eventreg/internal/roles"
)

func TestMenuForEveryRoleIsNonEmptyAndStable(t *testing.T) {
	for _, role := range roles.All() {
		first := MenuForRole(role)
		second := MenuForRole(role)
		require.NotEmpty(t, first, role)
		assert.Equal(t, first, second, role)
		assert.Equal(t, PathDashboard, first[0].Path, role)
	}
}

func TestMenuForUnknownRoleIsEmpty(t *testing.T) {
	for _, role := range []roles.Role{"", "admin", "ghost", "SUPER_ADMIN"} {
		menu := MenuForRole(role)
		assert.NotNil(t, menu)
		assert.Empty(t, menu, role)
	}
}

func TestMenuForUsesEffectiveRole(t *testing.T) {
	p := &auth.Principal{ID: "w1", PrimaryRole: roles.Worker, CurrentRole: roles.Registrar, CanSwitchRoles: true}
	assert.Equal(t, MenuForRole(roles.Registrar), MenuFor(p))

	p.CurrentRole = ""
	assert.Equal(t, MenuForRole(roles.Worker), MenuFor(p))

	assert.Empty(t, MenuFor(nil))
}

func TestMenuCallersCannotMutateTable(t *testing.T) {
	menu := MenuForRole(roles.SuperAdmin)
	menu[0].Label = "Hacked"
	assert.Equal(t, "Dashboard", MenuForRole(roles.SuperAdmin)[0].Label)
}

func TestMenuOrderForBranchAdmin(t *testing.T) {
	var paths []string
	for _, item := range MenuForRole(roles.BranchAdmin) {
		paths = append(paths, item.Path)
	}
	assert.Equal(t, []string{
		PathDashboard, PathZones, PathEvents, PathGuests, PathWorkers, PathRoleRequests, PathReports, PathProfile,
	}, paths)
}

func TestReachable(t *testing.T) {
	assert.True(t, Reachable(roles.BranchAdmin, "/events"))
	assert.True(t, Reachable(roles.BranchAdmin, "/events/42/guests"))
	assert.True(t, Reachable(roles.BranchAdmin, "/events/?tab=open"))
	assert.False(t, Reachable(roles.BranchAdmin, "/states"))
	assert.False(t, Reachable(roles.BranchAdmin, "/eventsx"))
	assert.False(t, Reachable(roles.Worker, "/events/../workers"))
	assert.False(t, Reachable("ghost", "/dashboard"))
}

func TestRolesFor(t *testing.T) {
	assert.Equal(t, []roles.Role{roles.SuperAdmin, roles.BranchAdmin}, RolesFor(PathRoleRequests))
	assert.Equal(t, []roles.Role{roles.Registrar}, RolesFor(PathCheckIn))
	assert.Len(t, RolesFor(PathDashboard), len(roles.All()))
	assert.Empty(t, RolesFor("/nowhere"))
}

func TestSafeReturnPath(t *testing.T) {
	p, ok := SafeReturnPath("/guests?page=2")
	assert.True(t, ok)
	assert.Equal(t, "/guests?page=2", p)

	for _, bad := range []string{"", "guests", "//evil.example", "/\\evil"} {
		_, ok := SafeReturnPath(bad)
		assert.False(t, ok, bad)
	}
}
