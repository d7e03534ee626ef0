// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"

	"github.com/canonical/membership-service/internal/rbac"
	"github.com/canonical/membership-service/internal/types"
)

type StorageInterface interface {
	ListMembersByTenantID(ctx context.Context, tenantID string) ([]*types.Membership, error)
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

	AppendAuditLog(ctx context.Context, entry *types.AuditLogEntry) error
}
