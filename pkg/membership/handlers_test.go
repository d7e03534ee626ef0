// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package membership

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chi "github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/mock/gomock"

	"github.com/canonical/membership-service/internal/rbac"
	"github.com/canonical/membership-service/internal/types"
	"github.com/canonical/membership-service/pkg/authentication"
)

type handlerMocks struct {
	service *MockServiceInterface
	tracer  *MockTracingInterface
	monitor *MockMonitorInterface
	logger  *MockLoggerInterface
}

func newHandlerEnv(ctrl *gomock.Controller) (*handlerMocks, *chi.Mux) {
	mocks := &handlerMocks{
		service: NewMockServiceInterface(ctrl),
		tracer:  NewMockTracingInterface(ctrl),
		monitor: NewMockMonitorInterface(ctrl),
		logger:  NewMockLoggerInterface(ctrl),
	}

	mocks.tracer.EXPECT().Start(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, name string) (context.Context, trace.Span) {
			return ctx, trace.SpanFromContext(ctx)
		},
	).AnyTimes()

	mux := chi.NewMux()
	NewAPI(mocks.service, mocks.tracer, mocks.monitor, mocks.logger).RegisterEndpoints(mux)

	return mocks, mux
}

func doRequest(mux *chi.Mux, method, target, actorID, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if actorID != "" {
		req = req.WithContext(authentication.WithUserID(req.Context(), actorID))
	}

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func TestHandler_ListUsers(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mocks, mux := newHandlerEnv(ctrl)

	mocks.service.EXPECT().ListUsers(gomock.Any(), "tenant-1", "actor-1").Return(&UserList{
		Users: []*types.TenantUser{
			{UserID: "user-1", Email: "owner@example.com", Role: rbac.RoleOwner},
		},
		Summary: map[rbac.Role]int{rbac.RoleViewer: 0, rbac.RoleMember: 0, rbac.RoleAdmin: 0, rbac.RoleOwner: 1},
	}, nil)

	rr := doRequest(mux, http.MethodGet, "/api/v0/tenants/tenant-1/users", "actor-1", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp userListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Users) != 1 || resp.Users[0].Role != "owner" {
		t.Errorf("unexpected users: %+v", resp.Users)
	}
	if resp.Summary["owner"] != 1 || resp.Summary["viewer"] != 0 {
		t.Errorf("unexpected summary: %v", resp.Summary)
	}
}

func TestHandler_ListUsersUnauthenticated(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	_, mux := newHandlerEnv(ctrl)

	rr := doRequest(mux, http.MethodGet, "/api/v0/tenants/tenant-1/users", "", "")

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestHandler_Invite(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMocks     func(*handlerMocks)
		expectedStatus int
	}{
		{
			name: "created",
			body: `{"email":"alice@example.com","role":"member"}`,
			setupMocks: func(m *handlerMocks) {
				m.service.EXPECT().Invite(gomock.Any(), "tenant-1", "actor-1", "alice@example.com", "member").
					Return(&types.Invitation{ID: "inv-1", Token: "token-1", TenantID: "tenant-1", Email: "alice@example.com", Role: rbac.RoleMember, Status: types.InvitationPending}, nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "forbidden",
			body: `{"email":"alice@example.com","role":"member"}`,
			setupMocks: func(m *handlerMocks) {
				m.service.EXPECT().Invite(gomock.Any(), "tenant-1", "actor-1", "alice@example.com", "member").
					Return(nil, ErrForbidden)
			},
			expectedStatus: http.StatusForbidden,
		},
		{
			name: "validation error",
			body: `{"email":"bad","role":"member"}`,
			setupMocks: func(m *handlerMocks) {
				m.service.EXPECT().Invite(gomock.Any(), "tenant-1", "actor-1", "bad", "member").
					Return(nil, NewValidationError("Invalid email"))
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "duplicate member",
			body: `{"email":"alice@example.com","role":"member"}`,
			setupMocks: func(m *handlerMocks) {
				m.service.EXPECT().Invite(gomock.Any(), "tenant-1", "actor-1", "alice@example.com", "member").
					Return(nil, ErrDuplicateMember)
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "malformed body",
			body:           `{not json`,
			setupMocks:     func(m *handlerMocks) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "internal failure stays opaque",
			body: `{"email":"alice@example.com","role":"member"}`,
			setupMocks: func(m *handlerMocks) {
				m.service.EXPECT().Invite(gomock.Any(), "tenant-1", "actor-1", "alice@example.com", "member").
					Return(nil, fmt.Errorf("connection refused"))
				m.logger.EXPECT().Errorf(gomock.Any(), gomock.Any()).AnyTimes()
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mocks, mux := newHandlerEnv(ctrl)
			tt.setupMocks(mocks)

			rr := doRequest(mux, http.MethodPost, "/api/v0/tenants/tenant-1/invites", "actor-1", tt.body)

			if rr.Code != tt.expectedStatus {
				t.Fatalf("expected %d, got %d: %s", tt.expectedStatus, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestHandler_AcceptInvitation(t *testing.T) {
	tests := []struct {
		name           string
		setupMocks     func(*handlerMocks)
		expectedStatus int
	}{
		{
			name: "accepted",
			setupMocks: func(m *handlerMocks) {
				m.service.EXPECT().AcceptInvitation(gomock.Any(), "token-1", "actor-1").
					Return(&types.Membership{TenantID: "tenant-1", UserID: "actor-1", Role: rbac.RoleMember}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "invalid token",
			setupMocks: func(m *handlerMocks) {
				m.service.EXPECT().AcceptInvitation(gomock.Any(), "token-1", "actor-1").
					Return(nil, ErrInvalidToken)
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mocks, mux := newHandlerEnv(ctrl)
			tt.setupMocks(mocks)

			rr := doRequest(mux, http.MethodPost, "/api/v0/invites/token-1/accept", "actor-1", "")

			if rr.Code != tt.expectedStatus {
				t.Fatalf("expected %d, got %d: %s", tt.expectedStatus, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestHandler_ChangeRole(t *testing.T) {
	tests := []struct {
		name           string
		setupMocks     func(*handlerMocks)
		expectedStatus int
	}{
		{
			name: "updated",
			setupMocks: func(m *handlerMocks) {
				m.service.EXPECT().ChangeRole(gomock.Any(), "tenant-1", "actor-1", "user-2", "admin").
					Return(&types.Membership{TenantID: "tenant-1", UserID: "user-2", Role: rbac.RoleAdmin}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "last owner",
			setupMocks: func(m *handlerMocks) {
				m.service.EXPECT().ChangeRole(gomock.Any(), "tenant-1", "actor-1", "user-2", "admin").
					Return(nil, ErrLastOwner)
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "membership not found",
			setupMocks: func(m *handlerMocks) {
				m.service.EXPECT().ChangeRole(gomock.Any(), "tenant-1", "actor-1", "user-2", "admin").
					Return(nil, ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mocks, mux := newHandlerEnv(ctrl)
			tt.setupMocks(mocks)

			rr := doRequest(mux, http.MethodPatch, "/api/v0/tenants/tenant-1/users/user-2/role", "actor-1", `{"role":"admin"}`)

			if rr.Code != tt.expectedStatus {
				t.Fatalf("expected %d, got %d: %s", tt.expectedStatus, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestHandler_RemoveUser(t *testing.T) {
	tests := []struct {
		name           string
		setupMocks     func(*handlerMocks)
		expectedStatus int
	}{
		{
			name: "removed",
			setupMocks: func(m *handlerMocks) {
				m.service.EXPECT().RemoveUser(gomock.Any(), "tenant-1", "actor-1", "user-2").
					Return("bob@example.com", nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "self removal",
			setupMocks: func(m *handlerMocks) {
				m.service.EXPECT().RemoveUser(gomock.Any(), "tenant-1", "actor-1", "user-2").
					Return("", ErrSelfRemoval)
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "forbidden",
			setupMocks: func(m *handlerMocks) {
				m.service.EXPECT().RemoveUser(gomock.Any(), "tenant-1", "actor-1", "user-2").
					Return("", ErrForbidden)
			},
			expectedStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mocks, mux := newHandlerEnv(ctrl)
			tt.setupMocks(mocks)

			rr := doRequest(mux, http.MethodDelete, "/api/v0/tenants/tenant-1/users/user-2", "actor-1", "")

			if rr.Code != tt.expectedStatus {
				t.Fatalf("expected %d, got %d: %s", tt.expectedStatus, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestHandler_Me(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mocks, mux := newHandlerEnv(ctrl)

	mocks.service.EXPECT().Me(gomock.Any(), "actor-1", "tenant-2").Return(&Profile{
		UserID:           "actor-1",
		Email:            "alice@example.com",
		GlobalRole:       rbac.GlobalRoleNone,
		Tenants:          []types.TenantRole{{TenantID: "tenant-1", Role: rbac.RoleOwner}, {TenantID: "tenant-2", Role: rbac.RoleViewer}},
		ActiveTenantRole: rbac.RoleViewer,
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v0/auth/me", nil)
	ctx := authentication.WithUserID(req.Context(), "actor-1")
	ctx = authentication.WithActiveTenant(ctx, "tenant-2")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req.WithContext(ctx))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp profileResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ActiveTenantRole != "viewer" {
		t.Errorf("expected active tenant role viewer, got %q", resp.ActiveTenantRole)
	}
	if len(resp.Tenants) != 2 {
		t.Errorf("expected 2 tenants, got %v", resp.Tenants)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(rr.Body.Bytes(), &raw); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if _, ok := raw["role_global"]; !ok {
		t.Errorf("expected role_global field, got keys %v", rr.Body.String())
	}
}
