// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

// Package rbac defines the tenant role hierarchy and the rank comparison
// every permission check in the service is built on.
package rbac

import "fmt"

// Role is a tenant-scoped role. The four values form a total order:
// viewer < member < admin < owner.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
	RoleOwner  Role = "owner"
)

var roleRanks = map[Role]int{
	RoleViewer: 0,
	RoleMember: 1,
	RoleAdmin:  2,
	RoleOwner:  3,
}

// GlobalRole is a platform-wide role carried on the user record. It never
// grants tenant-scoped permissions.
type GlobalRole string

const (
	GlobalRoleNone          GlobalRole = "none"
	GlobalRoleSupport       GlobalRole = "platform_support"
	GlobalRolePlatformAdmin GlobalRole = "platform_admin"
	GlobalRoleSystemAdmin   GlobalRole = "system_admin"
)

var globalRoles = map[GlobalRole]struct{}{
	GlobalRoleNone:          {},
	GlobalRoleSupport:       {},
	GlobalRolePlatformAdmin: {},
	GlobalRoleSystemAdmin:   {},
}

func (r Role) String() string {
	return string(r)
}

// Rank returns the position of the role in the hierarchy, 0 for viewer up to
// 3 for owner. Callers must parse role strings first; Rank panics on values
// that did not go through ParseRole.
func (r Role) Rank() int {
	rank, ok := roleRanks[r]
	if !ok {
		panic(fmt.Sprintf("rbac: unknown role %q", string(r)))
	}
	return rank
}

// AtLeast reports whether actual ranks at or above required.
func AtLeast(actual, required Role) bool {
	return actual.Rank() >= required.Rank()
}

// ParseRole validates a role string at the boundary. Unknown values are
// rejected here so they never reach a rank comparison.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if _, ok := roleRanks[r]; !ok {
		return "", fmt.Errorf("unknown role: %q", s)
	}
	return r, nil
}

// ParseGlobalRole validates a platform role string.
func ParseGlobalRole(s string) (GlobalRole, error) {
	r := GlobalRole(s)
	if _, ok := globalRoles[r]; !ok {
		return "", fmt.Errorf("unknown global role: %q", s)
	}
	return r, nil
}

// Roles returns all tenant roles ordered by ascending rank.
func Roles() []Role {
	return []Role{RoleViewer, RoleMember, RoleAdmin, RoleOwner}
}
