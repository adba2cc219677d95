// Package rbac gates mutating dashboard actions by role and capability.
package rbac

import (
	"slices"

	"github.com/eventreg/eventreg/internal/roles"
)

// Capability is the permission tag an action requires.
type Capability string

const (
	CapView    Capability = "view"
	CapCreate  Capability = "create"
	CapUpdate  Capability = "update"
	CapDelete  Capability = "delete"
	CapApprove Capability = "approve"
	CapReject  Capability = "reject"
	CapExport  Capability = "export"
)

// Action identifiers. They mirror the backend's authorization table; the
// backend stays authoritative.
const (
	ActionStatesView  = "states.view"
	ActionStateCreate = "state.create"
	ActionStateUpdate = "state.update"
	ActionStateDelete = "state.delete"

	ActionBranchesView  = "branches.view"
	ActionBranchCreate  = "branch.create"
	ActionBranchUpdate  = "branch.update"
	ActionBranchDelete  = "branch.delete"
	ActionBranchApprove = "branch.approve"
	ActionBranchReject  = "branch.reject"

	ActionZonesView  = "zones.view"
	ActionZoneCreate = "zone.create"
	ActionZoneUpdate = "zone.update"
	ActionZoneDelete = "zone.delete"

	ActionPickupStationsView  = "pickup_stations.view"
	ActionPickupStationCreate = "pickup_station.create"
	ActionPickupStationUpdate = "pickup_station.update"
	ActionPickupStationDelete = "pickup_station.delete"

	ActionEventsView  = "events.view"
	ActionEventCreate = "event.create"
	ActionEventUpdate = "event.update"
	ActionEventDelete = "event.delete"

	ActionGuestsView    = "guests.view"
	ActionGuestRegister = "guest.register"
	ActionGuestUpdate   = "guest.update"
	ActionGuestDelete   = "guest.delete"
	ActionGuestCheckIn  = "guest.checkin"
	ActionGuestsExport  = "guests.export"

	ActionWorkersView   = "workers.view"
	ActionWorkerCreate  = "worker.create"
	ActionWorkerUpdate  = "worker.update"
	ActionWorkerDelete  = "worker.delete"
	ActionWorkersExport = "workers.export"

	ActionRoleRequestsView   = "role_requests.view"
	ActionRoleRequestApprove = "role_request.approve"
	ActionRoleRequestReject  = "role_request.reject"
	ActionRoleSwitchRevoke   = "role_switch.revoke"

	ActionReportsView   = "reports.view"
	ActionReportsExport = "reports.export"
)

// Descriptor couples an action with the capability it needs.
type Descriptor struct {
	ActionID           string     `json:"action_id"`
	RequiredCapability Capability `json:"required_capability"`
}

type actionRule struct {
	capability Capability
	verb       string
	roles      []roles.Role
}

var (
	superOnly      = []roles.Role{roles.SuperAdmin}
	stateAndAbove  = []roles.Role{roles.SuperAdmin, roles.StateAdmin}
	branchAndAbove = []roles.Role{roles.SuperAdmin, roles.StateAdmin, roles.BranchAdmin}
	allAdmins      = []roles.Role{roles.SuperAdmin, roles.StateAdmin, roles.BranchAdmin, roles.ZonalAdmin}
	switchAdmins   = []roles.Role{roles.SuperAdmin, roles.BranchAdmin}
)

// View rules carry no role list; reaching the page is the permission.
var actionTable = map[string]actionRule{
	ActionStatesView:  {capability: CapView, verb: "view states"},
	ActionStateCreate: {capability: CapCreate, verb: "create states", roles: superOnly},
	ActionStateUpdate: {capability: CapUpdate, verb: "edit states", roles: superOnly},
	ActionStateDelete: {capability: CapDelete, verb: "delete states", roles: superOnly},

	ActionBranchesView:  {capability: CapView, verb: "view branches"},
	ActionBranchCreate:  {capability: CapCreate, verb: "create branches", roles: stateAndAbove},
	ActionBranchUpdate:  {capability: CapUpdate, verb: "edit branches", roles: stateAndAbove},
	ActionBranchDelete:  {capability: CapDelete, verb: "delete branches", roles: superOnly},
	ActionBranchApprove: {capability: CapApprove, verb: "approve branches", roles: superOnly},
	ActionBranchReject:  {capability: CapReject, verb: "reject branches", roles: superOnly},

	ActionZonesView:  {capability: CapView, verb: "view zones"},
	ActionZoneCreate: {capability: CapCreate, verb: "create zones", roles: []roles.Role{roles.BranchAdmin}},
	ActionZoneUpdate: {capability: CapUpdate, verb: "edit zones", roles: []roles.Role{roles.BranchAdmin}},
	ActionZoneDelete: {capability: CapDelete, verb: "delete zones", roles: []roles.Role{roles.BranchAdmin}},

	ActionPickupStationsView:  {capability: CapView, verb: "view pickup stations"},
	ActionPickupStationCreate: {capability: CapCreate, verb: "create pickup stations", roles: []roles.Role{roles.BranchAdmin, roles.ZonalAdmin}},
	ActionPickupStationUpdate: {capability: CapUpdate, verb: "edit pickup stations", roles: []roles.Role{roles.BranchAdmin, roles.ZonalAdmin}},
	ActionPickupStationDelete: {capability: CapDelete, verb: "delete pickup stations", roles: []roles.Role{roles.BranchAdmin, roles.ZonalAdmin}},

	ActionEventsView:  {capability: CapView, verb: "view events"},
	ActionEventCreate: {capability: CapCreate, verb: "create events", roles: superOnly},
	ActionEventUpdate: {capability: CapUpdate, verb: "edit events", roles: superOnly},
	ActionEventDelete: {capability: CapDelete, verb: "delete events", roles: superOnly},

	ActionGuestsView:    {capability: CapView, verb: "view guests"},
	ActionGuestRegister: {capability: CapCreate, verb: "register guests", roles: []roles.Role{roles.Worker}},
	ActionGuestUpdate:   {capability: CapUpdate, verb: "edit guests", roles: []roles.Role{roles.SuperAdmin, roles.Worker}},
	ActionGuestDelete:   {capability: CapDelete, verb: "delete guests", roles: superOnly},
	ActionGuestCheckIn:  {capability: CapUpdate, verb: "check in guests", roles: []roles.Role{roles.Registrar}},
	ActionGuestsExport:  {capability: CapExport, verb: "export guests", roles: allAdmins},

	ActionWorkersView:   {capability: CapView, verb: "view workers"},
	ActionWorkerCreate:  {capability: CapCreate, verb: "add workers", roles: []roles.Role{roles.BranchAdmin, roles.ZonalAdmin}},
	ActionWorkerUpdate:  {capability: CapUpdate, verb: "edit workers", roles: []roles.Role{roles.BranchAdmin, roles.ZonalAdmin}},
	ActionWorkerDelete:  {capability: CapDelete, verb: "remove workers", roles: switchAdmins},
	ActionWorkersExport: {capability: CapExport, verb: "export workers", roles: allAdmins},

	ActionRoleRequestsView:   {capability: CapView, verb: "view role requests"},
	ActionRoleRequestApprove: {capability: CapApprove, verb: "approve role requests", roles: switchAdmins},
	ActionRoleRequestReject:  {capability: CapReject, verb: "reject role requests", roles: switchAdmins},
	ActionRoleSwitchRevoke:   {capability: CapUpdate, verb: "revoke role switching", roles: switchAdmins},

	ActionReportsView:   {capability: CapView, verb: "view reports"},
	ActionReportsExport: {capability: CapExport, verb: "export reports", roles: branchAndAbove},
}

// Lookup returns the descriptor registered for actionID.
func Lookup(actionID string) (Descriptor, bool) {
	rule, ok := actionTable[actionID]
	if !ok {
		return Descriptor{}, false
	}
	return Descriptor{ActionID: actionID, RequiredCapability: rule.capability}, true
}

// PermittedRoles returns the roles statically allowed to invoke actionID.
// View actions return nil because any role reaching the page may view.
func PermittedRoles(actionID string) []roles.Role {
	rule, ok := actionTable[actionID]
	if !ok || len(rule.roles) == 0 {
		return nil
	}
	out := make([]roles.Role, len(rule.roles))
	copy(out, rule.roles)
	return out
}

// Actions lists every registered action ID in sorted order.
func Actions() []string {
	ids := make([]string, 0, len(actionTable))
	for id := range actionTable {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
