// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package audit

import (
	"context"

	"github.com/canonical/membership-service/internal/types"
)

type RecorderInterface interface {
	Record(ctx context.Context, actorUserID, tenantID, action string, metadata map[string]string)
}

// StorageInterface is the slice of the storage layer the recorder needs.
type StorageInterface interface {
	AppendAuditLog(ctx context.Context, entry *types.AuditLogEntry) error
}
