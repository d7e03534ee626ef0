// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

// Package audit appends immutable log entries for every state-changing
// membership action. Recording is best-effort: it runs after the primary
// mutation commits and a write failure never changes the operation outcome.
package audit

import (
	"context"

	"github.com/canonical/membership-service/internal/logging"
	"github.com/canonical/membership-service/internal/monitoring"
	"github.com/canonical/membership-service/internal/tracing"
	"github.com/canonical/membership-service/internal/types"
)

// Audit action names.
const (
	ActionUserInvite     = "user.invite"
	ActionUserRoleChange = "user.role_changed"
	ActionUserRemoved    = "user.removed"
	ActionInviteAccepted = "invite.accepted"
)

var _ RecorderInterface = (*Recorder)(nil)

type Recorder struct {
	storage StorageInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

// Record appends one audit entry. Failures are surfaced to the operational
// log and the dependency-availability metric only.
func (r *Recorder) Record(ctx context.Context, actorUserID, tenantID, action string, metadata map[string]string) {
	ctx, span := r.tracer.Start(ctx, "audit.Recorder.Record")
	defer span.End()

	entry := &types.AuditLogEntry{
		ActorUserID: actorUserID,
		TenantID:    tenantID,
		Action:      action,
		Metadata:    metadata,
	}

	if err := r.storage.AppendAuditLog(ctx, entry); err != nil {
		r.logger.Errorf("failed to record audit entry %s for tenant %s: %v", action, tenantID, err)
		if merr := r.monitor.SetDependencyAvailability(map[string]string{"component": "audit_log"}, 0); merr != nil {
			r.logger.Errorf("failed to set audit availability metric: %v", merr)
		}
		return
	}

	if merr := r.monitor.SetDependencyAvailability(map[string]string{"component": "audit_log"}, 1); merr != nil {
		r.logger.Errorf("failed to set audit availability metric: %v", merr)
	}
}

func NewRecorder(storage StorageInterface, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *Recorder {
	r := new(Recorder)

	r.storage = storage
	r.tracer = tracer
	r.monitor = monitor
	r.logger = logger

	return r
}
