// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/canonical/membership-service/internal/types"
)

func (s *Storage) GetUserByID(ctx context.Context, id string) (*types.User, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetUserByID")
	defer span.End()

	var u types.User
	err := s.db.Statement(ctx).
		Select("id", "email", "name", "role_global", "active", "created_at").
		From("users").
		Where(sq.Eq{"id": id}).
		QueryRowContext(ctx).
		Scan(&u.ID, &u.Email, &u.Name, &u.GlobalRole, &u.Active, &u.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &u, nil
}

// EnsureUser creates the user row if the external identity has not been seen
// before, and returns the stored profile either way.
func (s *Storage) EnsureUser(ctx context.Context, id, email string) (*types.User, error) {
	ctx, span := s.tracer.Start(ctx, "storage.EnsureUser")
	defer span.End()

	_, err := s.db.Statement(ctx).
		Insert("users").
		Columns("id", "email").
		Values(id, email).
		Suffix("ON CONFLICT (id) DO NOTHING").
		ExecContext(ctx)

	if err != nil {
		if IsDuplicateKeyError(err) {
			// Same email under a different identity id.
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("failed to ensure user: %w", err)
	}

	return s.GetUserByID(ctx, id)
}
