// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/canonical/membership-service/internal/types"
)

// AppendAuditLog inserts an audit entry. The table is append-only; no update
// or delete statement exists anywhere in this codebase.
func (s *Storage) AppendAuditLog(ctx context.Context, entry *types.AuditLogEntry) error {
	ctx, span := s.tracer.Start(ctx, "storage.AppendAuditLog")
	defer span.End()

	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("failed to generate audit entry ID: %w", err)
	}

	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal audit metadata: %w", err)
	}

	_, err = s.db.Statement(ctx).
		Insert("audit_log").
		Columns("id", "actor_user_id", "tenant_id", "action", "metadata").
		Values(id.String(), entry.ActorUserID, entry.TenantID, entry.Action, metadata).
		ExecContext(ctx)

	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}

	return nil
}
