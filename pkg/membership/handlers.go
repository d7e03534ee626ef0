// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package membership

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	httpTypes "github.com/canonical/membership-service/internal/http/types"
	"github.com/canonical/membership-service/internal/logging"
	"github.com/canonical/membership-service/internal/monitoring"
	"github.com/canonical/membership-service/internal/tracing"
	"github.com/canonical/membership-service/internal/types"
	"github.com/canonical/membership-service/pkg/authentication"
)

type API struct {
	service ServiceInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func NewAPI(service ServiceInterface, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *API {
	return &API{
		service: service,
		tracer:  tracer,
		monitor: monitor,
		logger:  logger,
	}
}

func (a *API) RegisterEndpoints(mux *chi.Mux) {
	mux.Get("/api/v0/tenants/{tenantID}/users", a.listUsers)
	mux.Post("/api/v0/tenants/{tenantID}/invites", a.invite)
	mux.Patch("/api/v0/tenants/{tenantID}/users/{userID}/role", a.changeRole)
	mux.Delete("/api/v0/tenants/{tenantID}/users/{userID}", a.removeUser)
	mux.Post("/api/v0/invites/{token}/accept", a.acceptInvitation)
	mux.Get("/api/v0/auth/me", a.me)
}

type inviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type changeRoleRequest struct {
	Role string `json:"role"`
}

type tenantUserResponse struct {
	UserID   string    `json:"user_id"`
	Email    string    `json:"email"`
	Name     string    `json:"name,omitempty"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

type userListResponse struct {
	Users   []tenantUserResponse `json:"users"`
	Summary map[string]int       `json:"summary"`
}

type invitationResponse struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	TenantID  string    `json:"tenant_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type membershipResponse struct {
	TenantID  string    `json:"tenant_id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type tenantRoleResponse struct {
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
}

type profileResponse struct {
	UserID           string               `json:"user_id"`
	Email            string               `json:"email,omitempty"`
	Name             string               `json:"name,omitempty"`
	GlobalRole       string               `json:"role_global"`
	Tenants          []tenantRoleResponse `json:"tenants"`
	ActiveTenantRole string               `json:"active_tenant_role,omitempty"`
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "membership.API.listUsers")
	defer span.End()

	actorID, ok := authentication.GetUserID(ctx)
	if !ok {
		a.unauthorized(w)
		return
	}

	list, err := a.service.ListUsers(ctx, chi.URLParam(r, "tenantID"), actorID)
	if err != nil {
		a.error(w, err)
		return
	}

	resp := userListResponse{
		Users:   make([]tenantUserResponse, 0, len(list.Users)),
		Summary: make(map[string]int, len(list.Summary)),
	}
	for _, u := range list.Users {
		resp.Users = append(resp.Users, tenantUserResponse{
			UserID:   u.UserID,
			Email:    u.Email,
			Name:     u.Name,
			Role:     u.Role.String(),
			JoinedAt: u.JoinedAt,
		})
	}
	for role, count := range list.Summary {
		resp.Summary[role.String()] = count
	}

	a.json(w, http.StatusOK, resp)
}

func (a *API) invite(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "membership.API.invite")
	defer span.End()

	actorID, ok := authentication.GetUserID(ctx)
	if !ok {
		a.unauthorized(w)
		return
	}

	var req inviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.badRequest(w, "Invalid request body")
		return
	}

	inv, err := a.service.Invite(ctx, chi.URLParam(r, "tenantID"), actorID, req.Email, req.Role)
	if err != nil {
		a.error(w, err)
		return
	}

	a.json(w, http.StatusCreated, invitationToResponse(inv))
}

func (a *API) acceptInvitation(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "membership.API.acceptInvitation")
	defer span.End()

	userID, ok := authentication.GetUserID(ctx)
	if !ok {
		a.unauthorized(w)
		return
	}

	m, err := a.service.AcceptInvitation(ctx, chi.URLParam(r, "token"), userID)
	if err != nil {
		a.error(w, err)
		return
	}

	a.json(w, http.StatusOK, membershipToResponse(m))
}

func (a *API) changeRole(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "membership.API.changeRole")
	defer span.End()

	actorID, ok := authentication.GetUserID(ctx)
	if !ok {
		a.unauthorized(w)
		return
	}

	var req changeRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.badRequest(w, "Invalid request body")
		return
	}

	m, err := a.service.ChangeRole(ctx, chi.URLParam(r, "tenantID"), actorID, chi.URLParam(r, "userID"), req.Role)
	if err != nil {
		a.error(w, err)
		return
	}

	a.json(w, http.StatusOK, membershipToResponse(m))
}

func (a *API) removeUser(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "membership.API.removeUser")
	defer span.End()

	actorID, ok := authentication.GetUserID(ctx)
	if !ok {
		a.unauthorized(w)
		return
	}

	email, err := a.service.RemoveUser(ctx, chi.URLParam(r, "tenantID"), actorID, chi.URLParam(r, "userID"))
	if err != nil {
		a.error(w, err)
		return
	}

	a.json(w, http.StatusOK, httpTypes.Response{
		Status:  http.StatusOK,
		Message: "User removed",
		Data:    map[string]string{"email": email},
	})
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "membership.API.me")
	defer span.End()

	userID, ok := authentication.GetUserID(ctx)
	if !ok {
		a.unauthorized(w)
		return
	}

	activeTenantID, _ := authentication.GetActiveTenant(ctx)

	profile, err := a.service.Me(ctx, userID, activeTenantID)
	if err != nil {
		a.error(w, err)
		return
	}

	resp := profileResponse{
		UserID:     profile.UserID,
		Email:      profile.Email,
		Name:       profile.Name,
		GlobalRole: string(profile.GlobalRole),
		Tenants:    make([]tenantRoleResponse, 0, len(profile.Tenants)),
	}
	for _, t := range profile.Tenants {
		resp.Tenants = append(resp.Tenants, tenantRoleResponse{TenantID: t.TenantID, Role: t.Role.String()})
	}
	if profile.ActiveTenantRole != "" {
		resp.ActiveTenantRole = profile.ActiveTenantRole.String()
	}

	a.json(w, http.StatusOK, resp)
}

func invitationToResponse(inv *types.Invitation) invitationResponse {
	return invitationResponse{
		ID:        inv.ID,
		Token:     inv.Token,
		TenantID:  inv.TenantID,
		Email:     inv.Email,
		Role:      inv.Role.String(),
		Status:    string(inv.Status),
		CreatedAt: inv.CreatedAt,
	}
}

func membershipToResponse(m *types.Membership) membershipResponse {
	return membershipResponse{
		TenantID:  m.TenantID,
		UserID:    m.UserID,
		Role:      m.Role.String(),
		CreatedAt: m.CreatedAt,
	}
}

// error maps service rejections to status codes. Anything that is not a
// caller-facing Error is an internal failure and stays opaque.
func (a *API) error(w http.ResponseWriter, err error) {
	var serviceErr *Error
	if !errors.As(err, &serviceErr) {
		a.logger.Errorf("request failed: %v", err)
		a.json(w, http.StatusInternalServerError, httpTypes.ErrorResponse{
			Status:  http.StatusInternalServerError,
			Message: "Internal server error",
		})
		return
	}

	status := http.StatusBadRequest
	switch serviceErr.Kind {
	case KindForbidden:
		status = http.StatusForbidden
	case KindNotFound:
		status = http.StatusNotFound
	}

	a.json(w, status, httpTypes.ErrorResponse{
		Status:  status,
		Message: serviceErr.Message,
	})
}

func (a *API) unauthorized(w http.ResponseWriter) {
	a.json(w, http.StatusUnauthorized, httpTypes.ErrorResponse{
		Status:  http.StatusUnauthorized,
		Message: "Unauthorized",
	})
}

func (a *API) badRequest(w http.ResponseWriter, message string) {
	a.json(w, http.StatusBadRequest, httpTypes.ErrorResponse{
		Status:  http.StatusBadRequest,
		Message: message,
	})
}

func (a *API) json(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		a.logger.Errorf("failed to encode response: %v", err)
	}
}
