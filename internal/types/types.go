// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package types

import (
	"time"

	"github.com/canonical/membership-service/internal/rbac"
)

type User struct {
	ID         string          `db:"id"`
	Email      string          `db:"email"`
	Name       string          `db:"name"`
	GlobalRole rbac.GlobalRole `db:"role_global"`
	Active     bool            `db:"active"`
	CreatedAt  time.Time       `db:"created_at"`
}

type Tenant struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
}

// Tenant status values.
const (
	TenantActive    = "active"
	TenantSuspended = "suspended"
	TenantArchived  = "archived"
)

type Membership struct {
	ID        string    `db:"id"`
	TenantID  string    `db:"tenant_id"`
	UserID    string    `db:"user_id"`
	Role      rbac.Role `db:"role"`
	CreatedAt time.Time `db:"created_at"`
}

// InvitationStatus is the lifecycle state of an invitation. pending is the
// only non-terminal state.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationExpired  InvitationStatus = "expired"
	InvitationInvalid  InvitationStatus = "invalid"
)

type Invitation struct {
	ID        string           `db:"id"`
	Token     string           `db:"token"`
	TenantID  string           `db:"tenant_id"`
	Email     string           `db:"email"`
	Role      rbac.Role        `db:"role"`
	Status    InvitationStatus `db:"status"`
	CreatedAt time.Time        `db:"created_at"`
}

type AuditLogEntry struct {
	ID          string            `db:"id"`
	ActorUserID string            `db:"actor_user_id"`
	TenantID    string            `db:"tenant_id"`
	Action      string            `db:"action"`
	Metadata    map[string]string `db:"metadata"`
	CreatedAt   time.Time         `db:"created_at"`
}

// TenantUser is a membership joined with the user profile, as returned by
// the list endpoint.
type TenantUser struct {
	UserID   string
	Email    string
	Name     string
	Role     rbac.Role
	JoinedAt time.Time
}

// TenantRole pairs a tenant with the caller's role in it.
type TenantRole struct {
	TenantID string
	Role     rbac.Role
}
