package roles

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventreg/eventreg/internal/shared"
)

func TestIsReadOnlyExactlyMonitoringRoles(t *testing.T) {
	for _, role := range All() {
		want := role == SuperME || role == BranchME
		assert.Equal(t, want, IsReadOnly(role), role)
	}
	assert.False(t, IsReadOnly("auditor"))
	assert.False(t, IsReadOnly(""))
}

func TestIsValid(t *testing.T) {
	for _, role := range All() {
		assert.True(t, IsValid(role), role)
	}
	for _, role := range []Role{"", "admin", "SUPER_ADMIN", "worker "} {
		assert.False(t, IsValid(role), role)
	}
}

func TestParse(t *testing.T) {
	role, err := Parse("  Branch_Admin ")
	require.NoError(t, err)
	assert.Equal(t, BranchAdmin, role)

	_, err = Parse("superuser")
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrUnknownRole))
}

func TestAlternate(t *testing.T) {
	alt, ok := Alternate(Worker)
	require.True(t, ok)
	assert.Equal(t, Registrar, alt)

	alt, ok = Alternate(Registrar)
	require.True(t, ok)
	assert.Equal(t, Worker, alt)

	for _, role := range []Role{SuperAdmin, StateAdmin, BranchAdmin, ZonalAdmin, SuperME, BranchME} {
		_, ok := Alternate(role)
		assert.False(t, ok, role)
	}
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Branch Admin", Label(BranchAdmin))
	assert.Equal(t, "Registrar", Label(Registrar))
	assert.Equal(t, "Super M&E", Label(SuperME))
	assert.Equal(t, "Unknown", Label("ghost"))
}

func TestAllReturnsCopy(t *testing.T) {
	first := All()
	first[0] = "tampered"
	assert.Equal(t, SuperAdmin, All()[0])
}
