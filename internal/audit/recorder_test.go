// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package audit

import (
	"context"
	"fmt"
	"testing"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/mock/gomock"

	"github.com/canonical/membership-service/internal/types"
)

//go:generate mockgen -build_flags=--mod=mod -package audit -destination ./mock_logger.go -source=../logging/interfaces.go
//go:generate mockgen -build_flags=--mod=mod -package audit -destination ./mock_monitor.go -source=../monitoring/interfaces.go
//go:generate mockgen -build_flags=--mod=mod -package audit -destination ./mock_tracer.go -source=../tracing/interfaces.go
//go:generate mockgen -build_flags=--mod=mod -package audit -destination ./mock_interfaces.go -source=./interfaces.go

func TestRecorder_Record(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockTracer := NewMockTracingInterface(ctrl)
	mockMonitor := NewMockMonitorInterface(ctrl)
	mockLogger := NewMockLoggerInterface(ctrl)
	mockStorage := NewMockStorageInterface(ctrl)

	ctx := context.Background()
	mockTracer.EXPECT().Start(gomock.Any(), "audit.Recorder.Record").Return(ctx, trace.SpanFromContext(ctx))

	mockStorage.EXPECT().AppendAuditLog(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, entry *types.AuditLogEntry) error {
			if entry.ActorUserID != "user-1" {
				t.Errorf("expected actor user-1, got %q", entry.ActorUserID)
			}
			if entry.TenantID != "tenant-1" {
				t.Errorf("expected tenant-1, got %q", entry.TenantID)
			}
			if entry.Action != ActionUserInvite {
				t.Errorf("expected action %q, got %q", ActionUserInvite, entry.Action)
			}
			if entry.Metadata["email"] != "alice@example.com" {
				t.Errorf("expected email metadata, got %v", entry.Metadata)
			}
			return nil
		},
	)
	mockMonitor.EXPECT().SetDependencyAvailability(map[string]string{"component": "audit_log"}, float64(1)).Return(nil)

	recorder := NewRecorder(mockStorage, mockTracer, mockMonitor, mockLogger)
	recorder.Record(ctx, "user-1", "tenant-1", ActionUserInvite, map[string]string{"email": "alice@example.com", "role": "member"})
}

func TestRecorder_RecordStorageFailureIsSwallowed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockTracer := NewMockTracingInterface(ctrl)
	mockMonitor := NewMockMonitorInterface(ctrl)
	mockLogger := NewMockLoggerInterface(ctrl)
	mockStorage := NewMockStorageInterface(ctrl)

	ctx := context.Background()
	mockTracer.EXPECT().Start(gomock.Any(), "audit.Recorder.Record").Return(ctx, trace.SpanFromContext(ctx))

	mockStorage.EXPECT().AppendAuditLog(gomock.Any(), gomock.Any()).Return(fmt.Errorf("connection refused"))
	mockLogger.EXPECT().Errorf(gomock.Any(), gomock.Any()).AnyTimes()
	mockMonitor.EXPECT().SetDependencyAvailability(map[string]string{"component": "audit_log"}, float64(0)).Return(nil)

	recorder := NewRecorder(mockStorage, mockTracer, mockMonitor, mockLogger)

	// Must not panic or propagate the failure.
	recorder.Record(ctx, "user-1", "tenant-1", ActionUserRemoved, map[string]string{"user_id": "user-2"})
}
