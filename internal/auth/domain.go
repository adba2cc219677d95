package auth

import (
	"time"

	"github.com/eventreg/eventreg/internal/roles"
)

// User represents an account row used for credential checks.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile is the authoritative principal record as served by the backend.
// CurrentRole is empty when the backend has never recorded a switch.
type Profile struct {
	ID              string
	Name            string
	Role            string
	CurrentRole     string
	CanSwitchRoles  bool
	RequestedSwitch bool
}

// Principal is the authenticated actor whose permissions are evaluated.
type Principal struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	PrimaryRole     roles.Role `json:"primary_role"`
	CurrentRole     roles.Role `json:"current_role,omitempty"`
	CanSwitchRoles  bool       `json:"can_switch_roles"`
	RequestedSwitch bool       `json:"requested_switch"`
}

// EffectiveRole is the role every authorization decision uses.
func (p *Principal) EffectiveRole() roles.Role {
	if p == nil {
		return ""
	}
	if p.CurrentRole != "" {
		return p.CurrentRole
	}
	return p.PrimaryRole
}

// ReadOnly reports whether the effective role is a monitoring variant.
func (p *Principal) ReadOnly() bool {
	return roles.IsReadOnly(p.EffectiveRole())
}

// Normalize enforces the current-role invariant: the current role is the
// primary role or, while switching is granted, its alternate. It reports
// whether the current role had to be reset.
func (p *Principal) Normalize() bool {
	if p == nil || p.CurrentRole == "" || p.CurrentRole == p.PrimaryRole {
		return false
	}
	if alt, ok := roles.Alternate(p.PrimaryRole); ok && p.CanSwitchRoles && p.CurrentRole == alt {
		return false
	}
	p.CurrentRole = p.PrimaryRole
	return true
}

// Clone returns an independent copy.
func (p *Principal) Clone() *Principal {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// PrincipalFromProfile builds a principal from a backend profile. Unknown
// roles are kept verbatim so the policy layer can fail closed on them.
func PrincipalFromProfile(profile Profile) *Principal {
	p := &Principal{
		ID:              profile.ID,
		Name:            profile.Name,
		PrimaryRole:     parseOrRaw(profile.Role),
		CanSwitchRoles:  profile.CanSwitchRoles,
		RequestedSwitch: profile.RequestedSwitch,
	}
	if profile.CurrentRole != "" {
		p.CurrentRole = parseOrRaw(profile.CurrentRole)
	} else {
		p.CurrentRole = p.PrimaryRole
	}
	if p.CanSwitchRoles {
		p.RequestedSwitch = false
	}
	p.Normalize()
	return p
}

func parseOrRaw(raw string) roles.Role {
	role, _ := roles.Parse(raw)
	return role
}

// Status is the resolution state of a session.
type Status int

const (
	// StatusResolving means the principal is still being fetched.
	StatusResolving Status = iota
	// StatusUnauthenticated means no valid session exists.
	StatusUnauthenticated
	// StatusAuthenticated means Principal is populated.
	StatusAuthenticated
)

func (s Status) String() string {
	switch s {
	case StatusResolving:
		return "resolving"
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// AuthState is what the route guard evaluates.
type AuthState struct {
	Status    Status
	Principal *Principal
	ExpiresAt time.Time
}

// Expired reports whether the session behind the state has lapsed at now.
func (s AuthState) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
