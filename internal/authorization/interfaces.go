// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authorization

import (
	"context"

	"github.com/canonical/membership-service/internal/rbac"
	"github.com/canonical/membership-service/internal/types"
)

type AuthorizerInterface interface {
	CheckTenantAccess(ctx context.Context, tenantID, userID string, required rbac.Role) (bool, error)
	ResolveRole(ctx context.Context, tenantID, userID string) (rbac.Role, error)
}

// MembershipLookupInterface is the slice of the storage layer the gate
// needs. The lookup runs against the same store the mutations target, so a
// gate decision and the mutation it protects can share one transaction.
type MembershipLookupInterface interface {
	GetMembership(ctx context.Context, tenantID, userID string) (*types.Membership, error)
}
