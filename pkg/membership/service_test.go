// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package membership

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/mock/gomock"

	"github.com/canonical/membership-service/internal/audit"
	"github.com/canonical/membership-service/internal/logging"
	"github.com/canonical/membership-service/internal/rbac"
	"github.com/canonical/membership-service/internal/storage"
	"github.com/canonical/membership-service/internal/types"
)

//go:generate mockgen -build_flags=--mod=mod -package membership -destination ./mock_logger.go -source=../../internal/logging/interfaces.go
//go:generate mockgen -build_flags=--mod=mod -package membership -destination ./mock_monitor.go -source=../../internal/monitoring/interfaces.go
//go:generate mockgen -build_flags=--mod=mod -package membership -destination ./mock_tracer.go -source=../../internal/tracing/interfaces.go
//go:generate mockgen -build_flags=--mod=mod -package membership -destination ./mock_interfaces.go -source=./interfaces.go

type serviceMocks struct {
	storage  *MockStorageInterface
	authz    *MockAuthzInterface
	recorder *MockRecorderInterface
	tx       *MockTxRunnerInterface
	tracer   *MockTracingInterface
	monitor  *MockMonitorInterface
	logger   *MockLoggerInterface
}

func newServiceMocks(ctrl *gomock.Controller) *serviceMocks {
	return &serviceMocks{
		storage:  NewMockStorageInterface(ctrl),
		authz:    NewMockAuthzInterface(ctrl),
		recorder: NewMockRecorderInterface(ctrl),
		tx:       NewMockTxRunnerInterface(ctrl),
		tracer:   NewMockTracingInterface(ctrl),
		monitor:  NewMockMonitorInterface(ctrl),
		logger:   NewMockLoggerInterface(ctrl),
	}
}

func (m *serviceMocks) newService(lifetime time.Duration) *Service {
	return NewService(m.storage, m.authz, m.recorder, m.tx, lifetime, m.tracer, m.monitor, m.logger)
}

func (m *serviceMocks) expectSpan(name string) {
	ctx := context.Background()
	m.tracer.EXPECT().Start(gomock.Any(), name).Return(ctx, trace.SpanFromContext(ctx))
}

// expectTx makes WithTx run the callback directly.
func (m *serviceMocks) expectTx() {
	m.tx.EXPECT().WithTx(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	)
}

func (m *serviceMocks) expectAuthzDenied() {
	m.logger.EXPECT().Security().Return(logging.NewNoopLogger().Security())
}

func TestService_ListUsers(t *testing.T) {
	tests := []struct {
		name        string
		setupMocks  func(*serviceMocks)
		expectedErr error
		verify      func(*testing.T, *UserList)
	}{
		{
			name: "viewer can list users",
			setupMocks: func(m *serviceMocks) {
				m.authz.EXPECT().CheckTenantAccess(gomock.Any(), "tenant-1", "actor-1", rbac.RoleViewer).Return(true, nil)
				m.storage.EXPECT().ListTenantUsers(gomock.Any(), "tenant-1").Return([]*types.TenantUser{
					{UserID: "user-1", Email: "owner@example.com", Role: rbac.RoleOwner},
					{UserID: "user-2", Email: "admin@example.com", Role: rbac.RoleAdmin},
					{UserID: "user-3", Email: "member@example.com", Role: rbac.RoleMember},
				}, nil)
			},
			verify: func(t *testing.T, list *UserList) {
				if len(list.Users) != 3 {
					t.Fatalf("expected 3 users, got %d", len(list.Users))
				}
				if list.Summary[rbac.RoleOwner] != 1 || list.Summary[rbac.RoleAdmin] != 1 || list.Summary[rbac.RoleMember] != 1 {
					t.Errorf("unexpected summary: %v", list.Summary)
				}
				if list.Summary[rbac.RoleViewer] != 0 {
					t.Errorf("expected viewer count 0, got %d", list.Summary[rbac.RoleViewer])
				}
			},
		},
		{
			name: "non member is rejected",
			setupMocks: func(m *serviceMocks) {
				m.authz.EXPECT().CheckTenantAccess(gomock.Any(), "tenant-1", "actor-1", rbac.RoleViewer).Return(false, nil)
				m.expectAuthzDenied()
			},
			expectedErr: ErrForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mocks := newServiceMocks(ctrl)
			mocks.expectSpan("membership.Service.ListUsers")
			tt.setupMocks(mocks)

			list, err := mocks.newService(24*time.Hour).ListUsers(context.Background(), "tenant-1", "actor-1")
			if tt.expectedErr != nil {
				if !errors.Is(err, tt.expectedErr) {
					t.Fatalf("expected error %v, got %v", tt.expectedErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.verify(t, list)
		})
	}
}

func TestService_Invite(t *testing.T) {
	tests := []struct {
		name         string
		email        string
		role         string
		setupMocks   func(*serviceMocks)
		expectedErr  error
		expectedKind ErrorKind
	}{
		{
			name:  "admin can invite",
			email: "alice@example.com",
			role:  "member",
			setupMocks: func(m *serviceMocks) {
				m.authz.EXPECT().CheckTenantAccess(gomock.Any(), "tenant-1", "actor-1", rbac.RoleAdmin).Return(true, nil)
				m.storage.EXPECT().HasActiveMemberByEmail(gomock.Any(), "tenant-1", "alice@example.com").Return(false, nil)
				m.storage.EXPECT().CreateInvitation(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ context.Context, inv *types.Invitation) (*types.Invitation, error) {
						if inv.Token == "" {
							t.Error("expected a generated token")
						}
						if inv.Status != types.InvitationPending {
							t.Errorf("expected pending status, got %q", inv.Status)
						}
						if inv.Role != rbac.RoleMember {
							t.Errorf("expected member role, got %q", inv.Role)
						}
						return inv, nil
					},
				)
				m.recorder.EXPECT().Record(gomock.Any(), "actor-1", "tenant-1", audit.ActionUserInvite,
					map[string]string{"email": "alice@example.com", "role": "member"})
			},
		},
		{
			name:  "member cannot invite",
			email: "alice@example.com",
			role:  "member",
			setupMocks: func(m *serviceMocks) {
				m.authz.EXPECT().CheckTenantAccess(gomock.Any(), "tenant-1", "actor-1", rbac.RoleAdmin).Return(false, nil)
				m.expectAuthzDenied()
			},
			expectedErr: ErrForbidden,
		},
		{
			name:  "malformed email",
			email: "not-an-email",
			role:  "member",
			setupMocks: func(m *serviceMocks) {
				m.authz.EXPECT().CheckTenantAccess(gomock.Any(), "tenant-1", "actor-1", rbac.RoleAdmin).Return(true, nil)
			},
			expectedKind: KindValidation,
		},
		{
			name:  "email domain without dot",
			email: "alice@localhost",
			role:  "member",
			setupMocks: func(m *serviceMocks) {
				m.authz.EXPECT().CheckTenantAccess(gomock.Any(), "tenant-1", "actor-1", rbac.RoleAdmin).Return(true, nil)
			},
			expectedKind: KindValidation,
		},
		{
			name:  "unknown role",
			email: "alice@example.com",
			role:  "superuser",
			setupMocks: func(m *serviceMocks) {
				m.authz.EXPECT().CheckTenantAccess(gomock.Any(), "tenant-1", "actor-1", rbac.RoleAdmin).Return(true, nil)
			},
			expectedKind: KindValidation,
		},
		{
			name:  "already an active member",
			email: "alice@example.com",
			role:  "member",
			setupMocks: func(m *serviceMocks) {
				m.authz.EXPECT().CheckTenantAccess(gomock.Any(), "tenant-1", "actor-1", rbac.RoleAdmin).Return(true, nil)
				m.storage.EXPECT().HasActiveMemberByEmail(gomock.Any(), "tenant-1", "alice@example.com").Return(true, nil)
			},
			expectedErr: ErrDuplicateMember,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mocks := newServiceMocks(ctrl)
			mocks.expectSpan("membership.Service.Invite")
			tt.setupMocks(mocks)

			inv, err := mocks.newService(24*time.Hour).Invite(context.Background(), "tenant-1", "actor-1", tt.email, tt.role)
			if tt.expectedErr != nil {
				if !errors.Is(err, tt.expectedErr) {
					t.Fatalf("expected error %v, got %v", tt.expectedErr, err)
				}
				return
			}
			if tt.expectedKind != "" {
				var serviceErr *Error
				if !errors.As(err, &serviceErr) {
					t.Fatalf("expected a service error, got %v", err)
				}
				if serviceErr.Kind != tt.expectedKind {
					t.Fatalf("expected kind %q, got %q", tt.expectedKind, serviceErr.Kind)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if inv == nil || inv.Email != tt.email {
				t.Errorf("unexpected invitation: %+v", inv)
			}
		})
	}
}

func TestService_AcceptInvitation(t *testing.T) {
	pending := func(age time.Duration) *types.Invitation {
		return &types.Invitation{
			ID:        "inv-1",
			Token:     "token-1",
			TenantID:  "tenant-1",
			Email:     "alice@example.com",
			Role:      rbac.RoleMember,
			Status:    types.InvitationPending,
			CreatedAt: time.Now().Add(-age),
		}
	}

	tests := []struct {
		name        string
		setupMocks  func(*serviceMocks)
		expectedErr error
	}{
		{
			name: "pending invitation is accepted",
			setupMocks: func(m *serviceMocks) {
				m.storage.EXPECT().GetInvitationByToken(gomock.Any(), "token-1").Return(pending(time.Hour), nil)
				m.expectTx()
				m.storage.EXPECT().TransitionInvitation(gomock.Any(), "inv-1", types.InvitationPending, types.InvitationAccepted).Return(nil)
				m.storage.EXPECT().EnsureUser(gomock.Any(), "user-1", "alice@example.com").
					Return(&types.User{ID: "user-1", Email: "alice@example.com"}, nil)
				m.storage.EXPECT().UpsertMembership(gomock.Any(), "tenant-1", "user-1", rbac.RoleMember).
					Return(&types.Membership{TenantID: "tenant-1", UserID: "user-1", Role: rbac.RoleMember}, nil)
				m.recorder.EXPECT().Record(gomock.Any(), "user-1", "tenant-1", audit.ActionInviteAccepted,
					map[string]string{"email": "alice@example.com", "role": "member"})
			},
		},
		{
			name: "unknown token",
			setupMocks: func(m *serviceMocks) {
				m.storage.EXPECT().GetInvitationByToken(gomock.Any(), "token-1").Return(nil, storage.ErrNotFound)
			},
			expectedErr: ErrInvalidToken,
		},
		{
			name: "already accepted token is rejected",
			setupMocks: func(m *serviceMocks) {
				inv := pending(time.Hour)
				inv.Status = types.InvitationAccepted
				m.storage.EXPECT().GetInvitationByToken(gomock.Any(), "token-1").Return(inv, nil)
			},
			expectedErr: ErrInvalidToken,
		},
		{
			name: "expired invitation is rejected and marked",
			setupMocks: func(m *serviceMocks) {
				m.storage.EXPECT().GetInvitationByToken(gomock.Any(), "token-1").Return(pending(25*time.Hour), nil)
				m.storage.EXPECT().TransitionInvitation(gomock.Any(), "inv-1", types.InvitationPending, types.InvitationExpired).Return(nil)
			},
			expectedErr: ErrInvalidToken,
		},
		{
			name: "concurrent accept loses the transition race",
			setupMocks: func(m *serviceMocks) {
				m.storage.EXPECT().GetInvitationByToken(gomock.Any(), "token-1").Return(pending(time.Hour), nil)
				m.expectTx()
				m.storage.EXPECT().TransitionInvitation(gomock.Any(), "inv-1", types.InvitationPending, types.InvitationAccepted).
					Return(storage.ErrNotFound)
			},
			expectedErr: ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mocks := newServiceMocks(ctrl)
			mocks.expectSpan("membership.Service.AcceptInvitation")
			tt.setupMocks(mocks)

			m, err := mocks.newService(24*time.Hour).AcceptInvitation(context.Background(), "token-1", "user-1")
			if tt.expectedErr != nil {
				if !errors.Is(err, tt.expectedErr) {
					t.Fatalf("expected error %v, got %v", tt.expectedErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if m == nil || m.Role != rbac.RoleMember {
				t.Errorf("unexpected membership: %+v", m)
			}
		})
	}
}

func TestService_ChangeRole(t *testing.T) {
	tests := []struct {
		name         string
		newRole      string
		setupMocks   func(*serviceMocks)
		expectedErr  error
		expectedKind ErrorKind
	}{
		{
			name:    "owner promotes a member",
			newRole: "admin",
			setupMocks: func(m *serviceMocks) {
				m.authz.EXPECT().CheckTenantAccess(gomock.Any(), "tenant-1", "actor-1", rbac.RoleOwner).Return(true, nil)
				m.expectTx()
				m.storage.EXPECT().GetMembership(gomock.Any(), "tenant-1", "user-2").
					Return(&types.Membership{TenantID: "tenant-1", UserID: "user-2", Role: rbac.RoleMember}, nil)
				m.storage.EXPECT().UpsertMembership(gomock.Any(), "tenant-1", "user-2", rbac.RoleAdmin).
					Return(&types.Membership{TenantID: "tenant-1", UserID: "user-2", Role: rbac.RoleAdmin}, nil)
				m.recorder.EXPECT().Record(gomock.Any(), "actor-1", "tenant-1", audit.ActionUserRoleChange,
					map[string]string{"user_id": "user-2", "old_role": "member", "new_role": "admin"})
			},
		},
		{
			name:    "demoting one of two owners succeeds",
			newRole: "admin",
			setupMocks: func(m *serviceMocks) {
				m.authz.EXPECT().CheckTenantAccess(gomock.Any(), "tenant-1", "actor-1", rbac.RoleOwner).Return(true, nil)
				m.expectTx()
				m.storage.EXPECT().GetMembership(gomock.Any(), "tenant-1", "user-2").
					Return(&types.Membership{TenantID: "tenant-1", UserID: "user-2", Role: rbac.RoleOwner}, nil)
				m.storage.EXPECT().CountOwners(gomock.Any(), "tenant-1").Return(2, nil)
				m.storage.EXPECT().UpsertMembership(gomock.Any(), "tenant-1", "user-2", rbac.RoleAdmin).
					Return(&types.Membership{TenantID: "tenant-1", UserID: "user-2", Role: rbac.RoleAdmin}, nil)
				m.recorder.EXPECT().Record(gomock.Any(), "actor-1", "tenant-1", audit.ActionUserRoleChange,
					map[string]string{"user_id": "user-2", "old_role": "owner", "new_role": "admin"})
			},
		},
		{
			name:    "demoting the last owner is blocked",
			newRole: "admin",
			setupMocks: func(m *serviceMocks) {
				m.authz.EXPECT().CheckTenantAccess(gomock.Any(), "tenant-1", "actor-1", rbac.RoleOwner).Return(true, nil)
				m.expectTx()
				m.storage.EXPECT().GetMembership(gomock.Any(), "tenant-1", "user-2").
					Return(&types.Membership{TenantID: "tenant-1", UserID: "user-2", Role: rbac.RoleOwner}, nil)
				m.storage.EXPECT().CountOwners(gomock.Any(), "tenant-1").Return(1, nil)
			},
			expectedErr: ErrLastOwner,
		},
		{
			name:    "owner to owner skips the owner count",
			newRole: "owner",
			setupMocks: func(m *serviceMocks) {
				m.authz.EXPECT().CheckTenantAccess(gomock.Any(), "tenant-1", "actor-1", rbac.RoleOwner).Return(true, nil)
				m.expectTx()
				m.storage.EXPECT().GetMembership(gomock.Any(), "tenant-1", "user-2").
					Return(&types.Membership{TenantID: "tenant-1", UserID: "user-2", Role: rbac.RoleOwner}, nil)
				m.storage.EXPECT().UpsertMembership(gomock.Any(), "tenant-1", "user-2", rbac.RoleOwner).
					Return(&types.Membership{TenantID: "tenant-1", UserID: "user-2", Role: rbac.RoleOwner}, nil)
				m.recorder.EXPECT().Record(gomock.Any(), "actor-1", "tenant-1", audit.ActionUserRoleChange,
					map[string]string{"user_id": "user-2", "old_role": "owner", "new_role": "owner"})
			},
		},
		{
			name:    "target is not a member",
			newRole: "admin",
			setupMocks: func(m *serviceMocks) {
				m.authz.EXPECT().CheckTenantAccess(gomock.Any(), "tenant-1", "actor-1", rbac.RoleOwner).Return(true, nil)
				m.expectTx()
				m.storage.EXPECT().GetMembership(gomock.Any(), "tenant-1", "user-2").Return(nil, storage.ErrNotFound)
			},
			expectedErr: ErrNotFound,
		},
		{
			name:    "unknown role",
			newRole: "superuser",
			setupMocks: func(m *serviceMocks) {
				m.authz.EXPECT().CheckTenantAccess(gomock.Any(), "tenant-1", "actor-1", rbac.RoleOwner).Return(true, nil)
			},
			expectedKind: KindValidation,
		},
		{
			name:    "admin cannot change roles",
			newRole: "admin",
			setupMocks: func(m *serviceMocks) {
				m.authz.EXPECT().CheckTenantAccess(gomock.Any(), "tenant-1", "actor-1", rbac.RoleOwner).Return(false, nil)
				m.expectAuthzDenied()
			},
			expectedErr: ErrForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mocks := newServiceMocks(ctrl)
			mocks.expectSpan("membership.Service.ChangeRole")
			tt.setupMocks(mocks)

			m, err := mocks.newService(24*time.Hour).ChangeRole(context.Background(), "tenant-1", "actor-1", "user-2", tt.newRole)
			if tt.expectedErr != nil {
				if !errors.Is(err, tt.expectedErr) {
					t.Fatalf("expected error %v, got %v", tt.expectedErr, err)
				}
				return
			}
			if tt.expectedKind != "" {
				var serviceErr *Error
				if !errors.As(err, &serviceErr) || serviceErr.Kind != tt.expectedKind {
					t.Fatalf("expected kind %q, got %v", tt.expectedKind, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if m == nil {
				t.Fatal("expected updated membership")
			}
		})
	}
}

func TestService_RemoveUser(t *testing.T) {
	tests := []struct {
		name          string
		targetUserID  string
		setupMocks    func(*serviceMocks)
		expectedErr   error
		expectedEmail string
	}{
		{
			name:         "owner removes a member",
			targetUserID: "user-2",
			setupMocks: func(m *serviceMocks) {
				m.authz.EXPECT().CheckTenantAccess(gomock.Any(), "tenant-1", "actor-1", rbac.RoleOwner).Return(true, nil)
				m.expectTx()
				m.storage.EXPECT().GetMembership(gomock.Any(), "tenant-1", "user-2").
					Return(&types.Membership{TenantID: "tenant-1", UserID: "user-2", Role: rbac.RoleMember}, nil)
				m.storage.EXPECT().GetUserByID(gomock.Any(), "user-2").
					Return(&types.User{ID: "user-2", Email: "bob@example.com"}, nil)
				m.storage.EXPECT().RemoveMembership(gomock.Any(), "tenant-1", "user-2").Return(nil)
				m.recorder.EXPECT().Record(gomock.Any(), "actor-1", "tenant-1", audit.ActionUserRemoved,
					map[string]string{"user_id": "user-2", "email": "bob@example.com"})
			},
			expectedEmail: "bob@example.com",
		},
		{
			name:         "self removal is rejected before any owner accounting",
			targetUserID: "actor-1",
			setupMocks: func(m *serviceMocks) {
				m.authz.EXPECT().CheckTenantAccess(gomock.Any(), "tenant-1", "actor-1", rbac.RoleOwner).Return(true, nil)
			},
			expectedErr: ErrSelfRemoval,
		},
		{
			name:         "removing the last owner is blocked",
			targetUserID: "user-2",
			setupMocks: func(m *serviceMocks) {
				m.authz.EXPECT().CheckTenantAccess(gomock.Any(), "tenant-1", "actor-1", rbac.RoleOwner).Return(true, nil)
				m.expectTx()
				m.storage.EXPECT().GetMembership(gomock.Any(), "tenant-1", "user-2").
					Return(&types.Membership{TenantID: "tenant-1", UserID: "user-2", Role: rbac.RoleOwner}, nil)
				m.storage.EXPECT().GetUserByID(gomock.Any(), "user-2").
					Return(&types.User{ID: "user-2", Email: "bob@example.com"}, nil)
				m.storage.EXPECT().CountOwners(gomock.Any(), "tenant-1").Return(1, nil)
			},
			expectedErr: ErrLastOwner,
		},
		{
			name:         "target is not a member",
			targetUserID: "user-2",
			setupMocks: func(m *serviceMocks) {
				m.authz.EXPECT().CheckTenantAccess(gomock.Any(), "tenant-1", "actor-1", rbac.RoleOwner).Return(true, nil)
				m.expectTx()
				m.storage.EXPECT().GetMembership(gomock.Any(), "tenant-1", "user-2").Return(nil, storage.ErrNotFound)
			},
			expectedErr: ErrNotFound,
		},
		{
			name:         "admin cannot remove users",
			targetUserID: "user-2",
			setupMocks: func(m *serviceMocks) {
				m.authz.EXPECT().CheckTenantAccess(gomock.Any(), "tenant-1", "actor-1", rbac.RoleOwner).Return(false, nil)
				m.expectAuthzDenied()
			},
			expectedErr: ErrForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mocks := newServiceMocks(ctrl)
			mocks.expectSpan("membership.Service.RemoveUser")
			tt.setupMocks(mocks)

			email, err := mocks.newService(24*time.Hour).RemoveUser(context.Background(), "tenant-1", "actor-1", tt.targetUserID)
			if tt.expectedErr != nil {
				if !errors.Is(err, tt.expectedErr) {
					t.Fatalf("expected error %v, got %v", tt.expectedErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if email != tt.expectedEmail {
				t.Errorf("expected email %q, got %q", tt.expectedEmail, email)
			}
		})
	}
}

func TestService_Me(t *testing.T) {
	tests := []struct {
		name           string
		activeTenantID string
		setupMocks     func(*serviceMocks)
		verify         func(*testing.T, *Profile)
	}{
		{
			name:           "profile with active tenant role",
			activeTenantID: "tenant-2",
			setupMocks: func(m *serviceMocks) {
				m.storage.EXPECT().GetUserByID(gomock.Any(), "user-1").
					Return(&types.User{ID: "user-1", Email: "alice@example.com", Name: "Alice", GlobalRole: rbac.GlobalRoleNone}, nil)
				m.storage.EXPECT().ListMembershipsByUserID(gomock.Any(), "user-1").Return([]*types.Membership{
					{TenantID: "tenant-1", UserID: "user-1", Role: rbac.RoleOwner},
					{TenantID: "tenant-2", UserID: "user-1", Role: rbac.RoleViewer},
				}, nil)
			},
			verify: func(t *testing.T, p *Profile) {
				if len(p.Tenants) != 2 {
					t.Fatalf("expected 2 tenants, got %d", len(p.Tenants))
				}
				if p.ActiveTenantRole != rbac.RoleViewer {
					t.Errorf("expected active tenant role viewer, got %q", p.ActiveTenantRole)
				}
				if p.Email != "alice@example.com" {
					t.Errorf("unexpected email %q", p.Email)
				}
			},
		},
		{
			name: "unknown user still gets a profile",
			setupMocks: func(m *serviceMocks) {
				m.storage.EXPECT().GetUserByID(gomock.Any(), "user-1").Return(nil, storage.ErrNotFound)
				m.storage.EXPECT().ListMembershipsByUserID(gomock.Any(), "user-1").Return(nil, nil)
			},
			verify: func(t *testing.T, p *Profile) {
				if p.GlobalRole != rbac.GlobalRoleNone {
					t.Errorf("expected global role none, got %q", p.GlobalRole)
				}
				if len(p.Tenants) != 0 {
					t.Errorf("expected no tenants, got %v", p.Tenants)
				}
				if p.ActiveTenantRole != "" {
					t.Errorf("expected empty active tenant role, got %q", p.ActiveTenantRole)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mocks := newServiceMocks(ctrl)
			mocks.expectSpan("membership.Service.Me")
			tt.setupMocks(mocks)

			profile, err := mocks.newService(24*time.Hour).Me(context.Background(), "user-1", tt.activeTenantID)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.verify(t, profile)
		})
	}
}

func TestService_GateStorageFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mocks := newServiceMocks(ctrl)
	mocks.expectSpan("membership.Service.ListUsers")
	mocks.authz.EXPECT().CheckTenantAccess(gomock.Any(), "tenant-1", "actor-1", rbac.RoleViewer).
		Return(false, fmt.Errorf("connection refused"))

	_, err := mocks.newService(24*time.Hour).ListUsers(context.Background(), "tenant-1", "actor-1")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrForbidden) {
		t.Fatal("infrastructure failure must not be reported as forbidden")
	}
}
