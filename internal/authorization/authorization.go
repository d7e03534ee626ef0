// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

// Package authorization implements the gate in front of every membership
// operation: it resolves the actor's role in the target tenant and compares
// its rank against the operation's requirement.
package authorization

import (
	"context"
	"errors"

	"github.com/canonical/membership-service/internal/logging"
	"github.com/canonical/membership-service/internal/monitoring"
	"github.com/canonical/membership-service/internal/rbac"
	"github.com/canonical/membership-service/internal/storage"
	"github.com/canonical/membership-service/internal/tracing"
)

var _ AuthorizerInterface = (*Authorizer)(nil)

type Authorizer struct {
	memberships MembershipLookupInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

// CheckTenantAccess reports whether userID holds a role of at least
// `required` rank in the tenant. A missing membership is an ordinary denial,
// indistinguishable from an insufficient role, so non-members cannot probe
// tenant existence.
func (a *Authorizer) CheckTenantAccess(ctx context.Context, tenantID, userID string, required rbac.Role) (bool, error) {
	ctx, span := a.tracer.Start(ctx, "authorization.Authorizer.CheckTenantAccess")
	defer span.End()

	m, err := a.memberships.GetMembership(ctx, tenantID, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	return rbac.AtLeast(m.Role, required), nil
}

// ResolveRole returns the actor's role in the tenant, or storage.ErrNotFound.
func (a *Authorizer) ResolveRole(ctx context.Context, tenantID, userID string) (rbac.Role, error) {
	ctx, span := a.tracer.Start(ctx, "authorization.Authorizer.ResolveRole")
	defer span.End()

	m, err := a.memberships.GetMembership(ctx, tenantID, userID)
	if err != nil {
		return "", err
	}

	return m.Role, nil
}

func NewAuthorizer(memberships MembershipLookupInterface, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *Authorizer {
	authorizer := new(Authorizer)
	authorizer.memberships = memberships
	authorizer.tracer = tracer
	authorizer.monitor = monitor
	authorizer.logger = logger

	return authorizer
}
