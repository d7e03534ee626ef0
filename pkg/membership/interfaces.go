// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package membership

import (
	"context"

	"github.com/canonical/membership-service/internal/rbac"
	"github.com/canonical/membership-service/internal/types"
)

type ServiceInterface interface {
	ListUsers(ctx context.Context, tenantID, actorID string) (*UserList, error)
	Invite(ctx context.Context, tenantID, actorID, email, role string) (*types.Invitation, error)
	AcceptInvitation(ctx context.Context, token, userID string) (*types.Membership, error)
	ChangeRole(ctx context.Context, tenantID, actorID, targetUserID, newRole string) (*types.Membership, error)
	RemoveUser(ctx context.Context, tenantID, actorID, targetUserID string) (string, error)
	Me(ctx context.Context, userID, activeTenantID string) (*Profile, error)
}

// StorageInterface is the slice of the storage layer the membership service
// needs.
type StorageInterface interface {
	ListTenantUsers(ctx context.Context, tenantID string) ([]*types.TenantUser, error)
	ListMembershipsByUserID(ctx context.Context, userID string) ([]*types.Membership, error)
	GetMembership(ctx context.Context, tenantID, userID string) (*types.Membership, error)
	UpsertMembership(ctx context.Context, tenantID, userID string, role rbac.Role) (*types.Membership, error)
	RemoveMembership(ctx context.Context, tenantID, userID string) error
	CountOwners(ctx context.Context, tenantID string) (int, error)

	CreateInvitation(ctx context.Context, inv *types.Invitation) (*types.Invitation, error)
	GetInvitationByToken(ctx context.Context, token string) (*types.Invitation, error)
	TransitionInvitation(ctx context.Context, id string, from, to types.InvitationStatus) error
	HasActiveMemberByEmail(ctx context.Context, tenantID, email string) (bool, error)

	GetUserByID(ctx context.Context, id string) (*types.User, error)
	EnsureUser(ctx context.Context, id, email string) (*types.User, error)
}

// AuthzInterface is the authorization gate in front of every operation.
type AuthzInterface interface {
	CheckTenantAccess(ctx context.Context, tenantID, userID string, required rbac.Role) (bool, error)
}

// RecorderInterface appends audit entries for state-changing actions.
type RecorderInterface interface {
	Record(ctx context.Context, actorUserID, tenantID, action string, metadata map[string]string)
}

// TxRunnerInterface runs a function inside a storage transaction. It is the
// slice of the db client the last-owner guard depends on.
type TxRunnerInterface interface {
	WithTx(ctx context.Context, fn func(context.Context) error) error
}

// UserList is the list endpoint payload: memberships joined with profiles
// plus a count of members per role.
type UserList struct {
	Users   []*types.TenantUser
	Summary map[rbac.Role]int
}

// Profile describes the calling user across tenants.
type Profile struct {
	UserID           string
	Email            string
	Name             string
	GlobalRole       rbac.GlobalRole
	Tenants          []types.TenantRole
	ActiveTenantRole rbac.Role
}
