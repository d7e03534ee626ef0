// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/canonical/membership-service/internal/types"
)

func (s *Storage) CreateInvitation(ctx context.Context, inv *types.Invitation) (*types.Invitation, error) {
	ctx, span := s.tracer.Start(ctx, "storage.CreateInvitation")
	defer span.End()

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate invitation ID: %w", err)
	}

	var created types.Invitation
	err = s.db.Statement(ctx).
		Insert("invitations").
		Columns("id", "token", "tenant_id", "email", "role", "status").
		Values(id.String(), inv.Token, inv.TenantID, inv.Email, inv.Role.String(), types.InvitationPending).
		Suffix("RETURNING id, token, tenant_id, email, role, status, created_at").
		QueryRowContext(ctx).
		Scan(&created.ID, &created.Token, &created.TenantID, &created.Email, &created.Role, &created.Status, &created.CreatedAt)

	if err != nil {
		if IsDuplicateKeyError(err) {
			return nil, ErrDuplicateKey
		}
		if IsForeignKeyViolation(err) {
			return nil, ErrForeignKeyViolation
		}
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	return &created, nil
}

func (s *Storage) GetInvitationByToken(ctx context.Context, token string) (*types.Invitation, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetInvitationByToken")
	defer span.End()

	var inv types.Invitation
	err := s.db.Statement(ctx).
		Select("id", "token", "tenant_id", "email", "role", "status", "created_at").
		From("invitations").
		Where(sq.Eq{"token": token}).
		QueryRowContext(ctx).
		Scan(&inv.ID, &inv.Token, &inv.TenantID, &inv.Email, &inv.Role, &inv.Status, &inv.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}

	return &inv, nil
}

// TransitionInvitation moves an invitation from one status to another. The
// from-status guard makes terminal states sticky: a second transition out of
// pending affects zero rows and reports ErrNotFound.
func (s *Storage) TransitionInvitation(ctx context.Context, id string, from, to types.InvitationStatus) error {
	ctx, span := s.tracer.Start(ctx, "storage.TransitionInvitation")
	defer span.End()

	res, err := s.db.Statement(ctx).
		Update("invitations").
		Set("status", to).
		Where(sq.Eq{"id": id, "status": from}).
		ExecContext(ctx)

	if err != nil {
		return fmt.Errorf("failed to transition invitation: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// HasActiveMemberByEmail reports whether the email already belongs to an
// active user holding a membership of the tenant. Email comparison is
// case-insensitive.
func (s *Storage) HasActiveMemberByEmail(ctx context.Context, tenantID, email string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "storage.HasActiveMemberByEmail")
	defer span.End()

	var id string
	err := s.db.Statement(ctx).
		Select("m.id").
		From("memberships m").
		Join("users u ON u.id = m.user_id").
		Where(sq.Eq{"m.tenant_id": tenantID, "u.active": true}).
		Where("lower(u.email) = lower(?)", email).
		Limit(1).
		QueryRowContext(ctx).
		Scan(&id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check membership by email: %w", err)
	}

	return true, nil
}
