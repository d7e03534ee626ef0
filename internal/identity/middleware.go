// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

// Package identity extracts the authenticated actor from trusted headers set
// by the fronting identity layer. The service never reads session state; the
// actor travels explicitly in the request context from here on.
package identity

import (
	"net/http"

	"github.com/canonical/membership-service/internal/logging"
	"github.com/canonical/membership-service/internal/monitoring"
	"github.com/canonical/membership-service/internal/tracing"
	"github.com/canonical/membership-service/pkg/authentication"
)

const (
	// UserHeaderName carries the authenticated identity id.
	UserHeaderName = "X-Authenticated-Identity-Id"
	// EmailHeaderName carries the authenticated identity's email.
	EmailHeaderName = "X-Authenticated-Identity-Email"
	// TenantHeaderName carries the caller's currently active tenant, if any.
	TenantHeaderName = "X-Tenant-Id"
)

type Middleware struct {
	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func NewMiddleware(tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *Middleware {
	return &Middleware{
		tracer:  tracer,
		monitor: monitor,
		logger:  logger,
	}
}

func (m *Middleware) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := m.tracer.Start(r.Context(), "identity.Middleware.HTTPMiddleware")
		defer span.End()

		if userID := r.Header.Get(UserHeaderName); userID != "" {
			ctx = authentication.WithUserID(ctx, userID)
		}
		if email := r.Header.Get(EmailHeaderName); email != "" {
			ctx = authentication.WithUserEmail(ctx, email)
		}
		if tenantID := r.Header.Get(TenantHeaderName); tenantID != "" {
			ctx = authentication.WithActiveTenant(ctx, tenantID)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
