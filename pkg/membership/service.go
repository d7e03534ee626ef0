// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package membership

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/canonical/membership-service/internal/audit"
	"github.com/canonical/membership-service/internal/logging"
	"github.com/canonical/membership-service/internal/monitoring"
	"github.com/canonical/membership-service/internal/rbac"
	"github.com/canonical/membership-service/internal/storage"
	"github.com/canonical/membership-service/internal/tracing"
	"github.com/canonical/membership-service/internal/types"
)

type Service struct {
	storage  StorageInterface
	authz    AuthzInterface
	recorder RecorderInterface
	tx       TxRunnerInterface

	invitationLifetime time.Duration
	validate           *validator.Validate

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func NewService(
	storage StorageInterface,
	authz AuthzInterface,
	recorder RecorderInterface,
	tx TxRunnerInterface,
	invitationLifetime time.Duration,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) *Service {
	return &Service{
		storage:            storage,
		authz:              authz,
		recorder:           recorder,
		tx:                 tx,
		invitationLifetime: invitationLifetime,
		validate:           validator.New(),
		tracer:             tracer,
		monitor:            monitor,
		logger:             logger,
	}
}

// gate checks the actor holds at least the required role in the tenant. A
// denied check is logged as a security event and surfaces as ErrForbidden,
// whether the actor holds a lesser role or no membership at all.
func (s *Service) gate(ctx context.Context, tenantID, actorID string, required rbac.Role, action string) error {
	allowed, err := s.authz.CheckTenantAccess(ctx, tenantID, actorID, required)
	if err != nil {
		return fmt.Errorf("failed to check tenant access: %w", err)
	}

	if !allowed {
		s.logger.Security().AuthzFailure(actorID, action)
		return ErrForbidden
	}

	return nil
}

func (s *Service) ListUsers(ctx context.Context, tenantID, actorID string) (*UserList, error) {
	ctx, span := s.tracer.Start(ctx, "membership.Service.ListUsers")
	defer span.End()

	if err := s.gate(ctx, tenantID, actorID, rbac.RoleViewer, "membership.list"); err != nil {
		return nil, err
	}

	users, err := s.storage.ListTenantUsers(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenant users: %w", err)
	}

	summary := make(map[rbac.Role]int, len(rbac.Roles()))
	for _, r := range rbac.Roles() {
		summary[r] = 0
	}
	for _, u := range users {
		summary[u.Role]++
	}

	return &UserList{Users: users, Summary: summary}, nil
}

func (s *Service) Invite(ctx context.Context, tenantID, actorID, email, role string) (*types.Invitation, error) {
	ctx, span := s.tracer.Start(ctx, "membership.Service.Invite")
	defer span.End()

	if err := s.gate(ctx, tenantID, actorID, rbac.RoleAdmin, "membership.invite"); err != nil {
		return nil, err
	}

	if err := s.validate.Var(email, "required,email"); err != nil {
		return nil, NewValidationError("Invalid email")
	}
	// The email format check accepts bare hostnames; invitations go out over
	// SMTP so the domain must be fully qualified.
	if at := strings.LastIndex(email, "@"); at < 0 || !strings.Contains(email[at+1:], ".") {
		return nil, NewValidationError("Invalid email")
	}

	parsedRole, err := rbac.ParseRole(role)
	if err != nil {
		return nil, NewValidationError("Invalid role")
	}

	member, err := s.storage.HasActiveMemberByEmail(ctx, tenantID, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing membership: %w", err)
	}
	if member {
		return nil, ErrDuplicateMember
	}

	inv := &types.Invitation{
		Token:    uuid.NewString(),
		TenantID: tenantID,
		Email:    email,
		Role:     parsedRole,
		Status:   types.InvitationPending,
	}

	created, err := s.storage.CreateInvitation(ctx, inv)
	if err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	s.recorder.Record(ctx, actorID, tenantID, audit.ActionUserInvite, map[string]string{
		"email": email,
		"role":  parsedRole.String(),
	})

	return created, nil
}

func (s *Service) AcceptInvitation(ctx context.Context, token, userID string) (*types.Membership, error) {
	ctx, span := s.tracer.Start(ctx, "membership.Service.AcceptInvitation")
	defer span.End()

	inv, err := s.storage.GetInvitationByToken(ctx, token)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to look up invitation: %w", err)
	}

	if inv.Status != types.InvitationPending {
		return nil, ErrInvalidToken
	}

	if time.Since(inv.CreatedAt) > s.invitationLifetime {
		// Expiry is recorded lazily on first use past the deadline. The
		// transition is best effort, the rejection stands either way.
		if err := s.storage.TransitionInvitation(ctx, inv.ID, types.InvitationPending, types.InvitationExpired); err != nil && !errors.Is(err, storage.ErrNotFound) {
			s.logger.Errorf("failed to expire invitation %s: %v", inv.ID, err)
		}
		return nil, ErrInvalidToken
	}

	var membership *types.Membership
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		// The pending guard on the transition makes concurrent accepts of the
		// same token lose here with zero rows updated.
		if err := s.storage.TransitionInvitation(ctx, inv.ID, types.InvitationPending, types.InvitationAccepted); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return ErrInvalidToken
			}
			return fmt.Errorf("failed to accept invitation: %w", err)
		}

		if _, err := s.storage.EnsureUser(ctx, userID, inv.Email); err != nil {
			return fmt.Errorf("failed to ensure user record: %w", err)
		}

		m, err := s.storage.UpsertMembership(ctx, inv.TenantID, userID, inv.Role)
		if err != nil {
			return fmt.Errorf("failed to create membership: %w", err)
		}
		membership = m

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, userID, inv.TenantID, audit.ActionInviteAccepted, map[string]string{
		"email": inv.Email,
		"role":  inv.Role.String(),
	})

	return membership, nil
}

func (s *Service) ChangeRole(ctx context.Context, tenantID, actorID, targetUserID, newRole string) (*types.Membership, error) {
	ctx, span := s.tracer.Start(ctx, "membership.Service.ChangeRole")
	defer span.End()

	if err := s.gate(ctx, tenantID, actorID, rbac.RoleOwner, "membership.change_role"); err != nil {
		return nil, err
	}

	parsedRole, err := rbac.ParseRole(newRole)
	if err != nil {
		return nil, NewValidationError("Invalid role")
	}

	var updated *types.Membership
	var oldRole rbac.Role
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		current, err := s.storage.GetMembership(ctx, tenantID, targetUserID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to get membership: %w", err)
		}
		oldRole = current.Role

		if current.Role == rbac.RoleOwner && parsedRole != rbac.RoleOwner {
			owners, err := s.storage.CountOwners(ctx, tenantID)
			if err != nil {
				return fmt.Errorf("failed to count owners: %w", err)
			}
			if owners <= 1 {
				return ErrLastOwner
			}
		}

		m, err := s.storage.UpsertMembership(ctx, tenantID, targetUserID, parsedRole)
		if err != nil {
			return fmt.Errorf("failed to update membership: %w", err)
		}
		updated = m

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, actorID, tenantID, audit.ActionUserRoleChange, map[string]string{
		"user_id":  targetUserID,
		"old_role": oldRole.String(),
		"new_role": parsedRole.String(),
	})

	return updated, nil
}

func (s *Service) RemoveUser(ctx context.Context, tenantID, actorID, targetUserID string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "membership.Service.RemoveUser")
	defer span.End()

	if err := s.gate(ctx, tenantID, actorID, rbac.RoleOwner, "membership.remove"); err != nil {
		return "", err
	}

	// Self removal is rejected outright. Ownership transfer has to happen
	// before an owner can leave, so this check comes before the owner count.
	if targetUserID == actorID {
		return "", ErrSelfRemoval
	}

	var email string
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		current, err := s.storage.GetMembership(ctx, tenantID, targetUserID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to get membership: %w", err)
		}

		user, err := s.storage.GetUserByID(ctx, targetUserID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("failed to get user: %w", err)
		}
		if user != nil {
			email = user.Email
		}

		if current.Role == rbac.RoleOwner {
			owners, err := s.storage.CountOwners(ctx, tenantID)
			if err != nil {
				return fmt.Errorf("failed to count owners: %w", err)
			}
			if owners <= 1 {
				return ErrLastOwner
			}
		}

		if err := s.storage.RemoveMembership(ctx, tenantID, targetUserID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to remove membership: %w", err)
		}

		return nil
	})
	if err != nil {
		return "", err
	}

	s.recorder.Record(ctx, actorID, tenantID, audit.ActionUserRemoved, map[string]string{
		"user_id": targetUserID,
		"email":   email,
	})

	return email, nil
}

func (s *Service) Me(ctx context.Context, userID, activeTenantID string) (*Profile, error) {
	ctx, span := s.tracer.Start(ctx, "membership.Service.Me")
	defer span.End()

	profile := &Profile{
		UserID:     userID,
		GlobalRole: rbac.GlobalRoleNone,
	}

	user, err := s.storage.GetUserByID(ctx, userID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user != nil {
		profile.Email = user.Email
		profile.Name = user.Name
		profile.GlobalRole = user.GlobalRole
	}

	memberships, err := s.storage.ListMembershipsByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}

	profile.Tenants = make([]types.TenantRole, 0, len(memberships))
	for _, m := range memberships {
		profile.Tenants = append(profile.Tenants, types.TenantRole{TenantID: m.TenantID, Role: m.Role})
		if activeTenantID != "" && m.TenantID == activeTenantID {
			profile.ActiveTenantRole = m.Role
		}
	}

	return profile, nil
}
