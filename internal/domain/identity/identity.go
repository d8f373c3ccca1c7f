// Package identity describes who is making a request, as seen by the access layer.
package identity

import "fmt"

// OrgRole is a member's role inside the active organization.
type OrgRole string

const (
	RoleOwner   OrgRole = "owner"
	RoleAdmin   OrgRole = "admin"
	RoleMember  OrgRole = "member"
	RoleCashier OrgRole = "cashier"
	RoleKitchen OrgRole = "kitchen"
	RoleWaiter  OrgRole = "waiter"
)

var validRoles = map[OrgRole]struct{}{
	RoleOwner:   {},
	RoleAdmin:   {},
	RoleMember:  {},
	RoleCashier: {},
	RoleKitchen: {},
	RoleWaiter:  {},
}

func (r OrgRole) IsValid() bool {
	_, ok := validRoles[r]
	return ok
}

func (r OrgRole) String() string {
	return string(r)
}

// ParseOrgRole validates a stored role string.
func ParseOrgRole(s string) (OrgRole, error) {
	r := OrgRole(s)
	if !r.IsValid() {
		return "", fmt.Errorf("unknown organization role %q", s)
	}
	return r, nil
}

// Identity is the resolved caller. OrgRole is nil when the user has no
// membership in the active organization.
type Identity struct {
	IsAuthenticated bool
	UserID          string
	Email           string
	OrgID           string
	OrgRole         *OrgRole
	IsSuperAdmin    bool
	IsLoading       bool
}

// Anonymous is a settled, unauthenticated identity.
func Anonymous() Identity {
	return Identity{}
}

// Loading is an identity whose resolution has not finished.
func Loading() Identity {
	return Identity{IsLoading: true}
}

// HasRole reports whether the caller holds exactly the given role.
func (i Identity) HasRole(role OrgRole) bool {
	return i.OrgRole != nil && *i.OrgRole == role
}

// BypassesPlanChecks reports whether route-level subscription and role
// checks are skipped. Only admins and super-admins qualify; owners do not.
func (i Identity) BypassesPlanChecks() bool {
	return i.IsSuperAdmin || i.HasRole(RoleAdmin)
}
