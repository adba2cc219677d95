// Package navigation maps roles to dashboard menus and guards route entry.
package navigation

import (
	"github.com/eventreg/eventreg/internal/auth"
	"github.com/eventreg/eventreg/internal/roles"
)

// Dashboard destinations.
const (
	PathLogin          = "/login"
	PathDashboard      = "/dashboard"
	PathStates         = "/states"
	PathBranches       = "/branches"
	PathZones          = "/zones"
	PathPickupStations = "/pickup-stations"
	PathEvents         = "/events"
	PathGuests         = "/guests"
	PathWorkers        = "/workers"
	PathRoleRequests   = "/role-requests"
	PathReports        = "/reports"
	PathRegisterGuest  = "/register-guest"
	PathMyGuests       = "/my-guests"
	PathCheckIn        = "/checkin"
	PathProfile        = "/profile"
)

// Item is a single menu entry.
type Item struct {
	Path  string `json:"path"`
	Label string `json:"label"`
	Icon  string `json:"icon"`
}

var (
	dashboard      = Item{Path: PathDashboard, Label: "Dashboard", Icon: "home"}
	states         = Item{Path: PathStates, Label: "States", Icon: "map"}
	branches       = Item{Path: PathBranches, Label: "Branches", Icon: "git-branch"}
	zones          = Item{Path: PathZones, Label: "Zones", Icon: "layers"}
	pickupStations = Item{Path: PathPickupStations, Label: "Pickup Stations", Icon: "map-pin"}
	events         = Item{Path: PathEvents, Label: "Events", Icon: "calendar"}
	guests         = Item{Path: PathGuests, Label: "Guests", Icon: "users"}
	workers        = Item{Path: PathWorkers, Label: "Workers", Icon: "briefcase"}
	roleRequests   = Item{Path: PathRoleRequests, Label: "Role Requests", Icon: "user-check"}
	reports        = Item{Path: PathReports, Label: "Reports", Icon: "bar-chart"}
	registerGuest  = Item{Path: PathRegisterGuest, Label: "Register Guest", Icon: "user-plus"}
	myGuests       = Item{Path: PathMyGuests, Label: "My Guests", Icon: "list"}
	checkIn        = Item{Path: PathCheckIn, Label: "Check-in", Icon: "check-square"}
	profile        = Item{Path: PathProfile, Label: "Profile", Icon: "user"}
)

// menus is the on-screen order per role.
var menus = map[roles.Role][]Item{
	roles.SuperAdmin:  {dashboard, states, branches, events, guests, workers, roleRequests, reports, profile},
	roles.SuperME:     {dashboard, states, branches, events, guests, workers, reports, profile},
	roles.StateAdmin:  {dashboard, branches, events, guests, workers, reports, profile},
	roles.BranchAdmin: {dashboard, zones, events, guests, workers, roleRequests, reports, profile},
	roles.BranchME:    {dashboard, zones, events, guests, workers, reports, profile},
	roles.ZonalAdmin:  {dashboard, pickupStations, events, guests, workers, profile},
	roles.Worker:      {dashboard, registerGuest, myGuests, profile},
	roles.Registrar:   {dashboard, checkIn, guests, profile},
}

// MenuForRole returns the menu of role. Unknown roles get an empty menu.
func MenuForRole(role roles.Role) []Item {
	items, ok := menus[role]
	if !ok || !roles.IsValid(role) {
		return []Item{}
	}
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

// MenuFor returns the menu for the principal's effective role.
func MenuFor(p *auth.Principal) []Item {
	return MenuForRole(p.EffectiveRole())
}

// Reachable reports whether role may enter destination. A destination is
// reachable when it equals a menu path or lies beneath one.
func Reachable(role roles.Role, destination string) bool {
	if !roles.IsValid(role) {
		return false
	}
	dest := cleanPath(destination)
	for _, item := range menus[role] {
		if underPath(dest, item.Path) {
			return true
		}
	}
	return false
}

// RolesFor lists the roles that may enter destination, in registry order.
func RolesFor(destination string) []roles.Role {
	var out []roles.Role
	for _, role := range roles.All() {
		if Reachable(role, destination) {
			out = append(out, role)
		}
	}
	return out
}
