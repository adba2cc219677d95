// Package roles is the closed registry of principal roles.
package roles

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/eventreg/eventreg/internal/shared"
)

// Role identifies a principal role. Only the constants below are valid.
type Role string

const (
	SuperAdmin  Role = "super_admin"
	StateAdmin  Role = "state_admin"
	BranchAdmin Role = "branch_admin"
	ZonalAdmin  Role = "zonal_admin"
	Worker      Role = "worker"
	Registrar   Role = "registrar"
	// SuperME and BranchME are the monitoring & evaluation variants.
	SuperME  Role = "super_me"
	BranchME Role = "branch_me"
)

var all = []Role{SuperAdmin, StateAdmin, BranchAdmin, ZonalAdmin, Worker, Registrar, SuperME, BranchME}

var readOnly = map[Role]bool{
	SuperME:  true,
	BranchME: true,
}

var labels = map[Role]string{
	SuperME:  "Super M&E",
	BranchME: "Branch M&E",
}

// All returns every valid role in declaration order.
func All() []Role {
	out := make([]Role, len(all))
	copy(out, all)
	return out
}

// IsValid reports whether role belongs to the closed enumeration.
func IsValid(role Role) bool {
	for _, r := range all {
		if r == role {
			return true
		}
	}
	return false
}

// IsReadOnly reports whether role may only view data. Unknown roles are not
// read-only; callers check IsValid first.
func IsReadOnly(role Role) bool {
	return readOnly[role]
}

// Parse normalises raw and checks it against the enumeration.
func Parse(raw string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if !IsValid(role) {
		return role, fmt.Errorf("roles: %q: %w", raw, shared.ErrUnknownRole)
	}
	return role, nil
}

// Alternate returns the role a principal may switch to. Only the
// worker/registrar pair has one.
func Alternate(role Role) (Role, bool) {
	switch role {
	case Worker:
		return Registrar, true
	case Registrar:
		return Worker, true
	default:
		return "", false
	}
}

// Label renders a human readable role name, e.g. "Branch Admin".
func Label(role Role) string {
	if l, ok := labels[role]; ok {
		return l
	}
	if !IsValid(role) {
		return "Unknown"
	}
	return cases.Title(language.English).String(strings.ReplaceAll(string(role), "_", " "))
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}
