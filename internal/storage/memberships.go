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

	"github.com/canonical/membership-service/internal/rbac"
	"github.com/canonical/membership-service/internal/types"
)

func (s *Storage) ListMembersByTenantID(ctx context.Context, tenantID string) ([]*types.Membership, error) {
	ctx, span := s.tracer.Start(ctx, "storage.ListMembersByTenantID")
	defer span.End()

	query := s.db.Statement(ctx).
		Select("id", "tenant_id", "user_id", "role", "created_at").
		From("memberships").
		Where(sq.Eq{"tenant_id": tenantID})

	rows, err := query.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*types.Membership
	for rows.Next() {
		var m types.Membership
		if err := rows.Scan(&m.ID, &m.TenantID, &m.UserID, &m.Role, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return members, nil
}

// ListTenantUsers returns the tenant's memberships joined with user profiles.
func (s *Storage) ListTenantUsers(ctx context.Context, tenantID string) ([]*types.TenantUser, error) {
	ctx, span := s.tracer.Start(ctx, "storage.ListTenantUsers")
	defer span.End()

	query := s.db.Statement(ctx).
		Select("m.user_id", "u.email", "u.name", "m.role", "m.created_at").
		From("memberships m").
		Join("users u ON u.id = m.user_id").
		Where(sq.Eq{"m.tenant_id": tenantID}).
		OrderBy("m.created_at")

	rows, err := query.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenant users: %w", err)
	}
	defer rows.Close()

	var users []*types.TenantUser
	for rows.Next() {
		var u types.TenantUser
		if err := rows.Scan(&u.UserID, &u.Email, &u.Name, &u.Role, &u.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tenant user: %w", err)
		}
		users = append(users, &u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return users, nil
}

func (s *Storage) ListMembershipsByUserID(ctx context.Context, userID string) ([]*types.Membership, error) {
	ctx, span := s.tracer.Start(ctx, "storage.ListMembershipsByUserID")
	defer span.End()

	query := s.db.Statement(ctx).
		Select("id", "tenant_id", "user_id", "role", "created_at").
		From("memberships").
		Where(sq.Eq{"user_id": userID})

	rows, err := query.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()

	var members []*types.Membership
	for rows.Next() {
		var m types.Membership
		if err := rows.Scan(&m.ID, &m.TenantID, &m.UserID, &m.Role, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		members = append(members, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return members, nil
}

func (s *Storage) GetMembership(ctx context.Context, tenantID, userID string) (*types.Membership, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetMembership")
	defer span.End()

	var m types.Membership
	err := s.db.Statement(ctx).
		Select("id", "tenant_id", "user_id", "role", "created_at").
		From("memberships").
		Where(sq.Eq{"tenant_id": tenantID, "user_id": userID}).
		QueryRowContext(ctx).
		Scan(&m.ID, &m.TenantID, &m.UserID, &m.Role, &m.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}

	return &m, nil
}

// UpsertMembership creates the membership or updates its role if the
// (tenant, user) pair already exists.
func (s *Storage) UpsertMembership(ctx context.Context, tenantID, userID string, role rbac.Role) (*types.Membership, error) {
	ctx, span := s.tracer.Start(ctx, "storage.UpsertMembership")
	defer span.End()

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate membership ID: %w", err)
	}

	var m types.Membership
	err = s.db.Statement(ctx).
		Insert("memberships").
		Columns("id", "tenant_id", "user_id", "role").
		Values(id.String(), tenantID, userID, role.String()).
		Suffix("ON CONFLICT (tenant_id, user_id) DO UPDATE SET role = EXCLUDED.role").
		Suffix("RETURNING id, tenant_id, user_id, role, created_at").
		QueryRowContext(ctx).
		Scan(&m.ID, &m.TenantID, &m.UserID, &m.Role, &m.CreatedAt)

	if err != nil {
		if IsForeignKeyViolation(err) {
			return nil, ErrForeignKeyViolation
		}
		return nil, fmt.Errorf("failed to upsert membership: %w", err)
	}

	return &m, nil
}

func (s *Storage) RemoveMembership(ctx context.Context, tenantID, userID string) error {
	ctx, span := s.tracer.Start(ctx, "storage.RemoveMembership")
	defer span.End()

	res, err := s.db.Statement(ctx).
		Delete("memberships").
		Where(sq.Eq{"tenant_id": tenantID, "user_id": userID}).
		ExecContext(ctx)

	if err != nil {
		return fmt.Errorf("failed to remove membership: %w", err)
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

// CountOwners counts the tenant's owner memberships. Inside a transaction
// the owner rows are locked FOR UPDATE, serializing concurrent
// owner-affecting mutations on the same tenant.
func (s *Storage) CountOwners(ctx context.Context, tenantID string) (int, error) {
	ctx, span := s.tracer.Start(ctx, "storage.CountOwners")
	defer span.End()

	query := s.db.Statement(ctx).
		Select("id").
		From("memberships").
		Where(sq.Eq{"tenant_id": tenantID, "role": rbac.RoleOwner.String()})

	if s.db.InTx(ctx) {
		query = query.Suffix("FOR UPDATE")
	}

	rows, err := query.QueryContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count owners: %w", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return 0, fmt.Errorf("failed to scan owner row: %w", err)
		}
		count++
	}

	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("rows iteration error: %w", err)
	}

	return count, nil
}
