// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package rbac

import "testing"

func TestParseRole(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		expected  Role
		expectErr bool
	}{
		{name: "viewer", input: "viewer", expected: RoleViewer},
		{name: "member", input: "member", expected: RoleMember},
		{name: "admin", input: "admin", expected: RoleAdmin},
		{name: "owner", input: "owner", expected: RoleOwner},
		{name: "unknown role", input: "superuser", expectErr: true},
		{name: "empty string", input: "", expectErr: true},
		{name: "case sensitive", input: "Owner", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ParseRole(tt.input)
			if tt.expectErr {
				if err == nil {
					t.Errorf("expected error for input %q, got role %q", tt.input, r)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r != tt.expected {
				t.Errorf("expected role %q, got %q", tt.expected, r)
			}
		})
	}
}

func TestAtLeast(t *testing.T) {
	tests := []struct {
		name     string
		actual   Role
		required Role
		expected bool
	}{
		{name: "owner satisfies viewer", actual: RoleOwner, required: RoleViewer, expected: true},
		{name: "owner satisfies owner", actual: RoleOwner, required: RoleOwner, expected: true},
		{name: "admin satisfies admin", actual: RoleAdmin, required: RoleAdmin, expected: true},
		{name: "admin does not satisfy owner", actual: RoleAdmin, required: RoleOwner, expected: false},
		{name: "member does not satisfy admin", actual: RoleMember, required: RoleAdmin, expected: false},
		{name: "viewer satisfies viewer", actual: RoleViewer, required: RoleViewer, expected: true},
		{name: "viewer does not satisfy member", actual: RoleViewer, required: RoleMember, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AtLeast(tt.actual, tt.required); got != tt.expected {
				t.Errorf("AtLeast(%q, %q) = %v, expected %v", tt.actual, tt.required, got, tt.expected)
			}
		})
	}
}

func TestRankPanicsOnUnknownRole(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for unknown role")
		}
	}()

	Role("superuser").Rank()
}

func TestRolesOrderedByRank(t *testing.T) {
	roles := Roles()
	if len(roles) != 4 {
		t.Fatalf("expected 4 roles, got %d", len(roles))
	}

	for i := 1; i < len(roles); i++ {
		if roles[i-1].Rank() >= roles[i].Rank() {
			t.Errorf("roles not in ascending rank order: %q >= %q", roles[i-1], roles[i])
		}
	}
}

func TestParseGlobalRole(t *testing.T) {
	for _, valid := range []string{"none", "platform_support", "platform_admin", "system_admin"} {
		if _, err := ParseGlobalRole(valid); err != nil {
			t.Errorf("expected %q to parse, got error: %v", valid, err)
		}
	}

	if _, err := ParseGlobalRole("owner"); err == nil {
		t.Error("expected tenant role to be rejected as global role")
	}
}
