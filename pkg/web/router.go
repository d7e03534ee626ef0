// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

// Package web assembles the HTTP router: middleware chain, API endpoints and
// the operational surface.
package web

import (
	"net/http"

	chi "github.com/go-chi/chi/v5"
	middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/canonical/membership-service/internal/identity"
	"github.com/canonical/membership-service/internal/logging"
	"github.com/canonical/membership-service/internal/monitoring"
	"github.com/canonical/membership-service/internal/tracing"
	"github.com/canonical/membership-service/pkg/authentication"
	"github.com/canonical/membership-service/pkg/membership"
	"github.com/canonical/membership-service/pkg/metrics"
	"github.com/canonical/membership-service/pkg/status"
)

func NewRouter(
	membershipAPI *membership.API,
	identityMiddleware *identity.Middleware,
	authnMiddleware *authentication.Middleware,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) http.Handler {
	router := chi.NewMux()

	middlewares := make(chi.Middlewares, 0)
	middlewares = append(
		middlewares,
		middleware.RequestID,
		monitoring.NewMiddleware(monitor, logger).ResponseTime(),
		middlewareCORS([]string{"*"}),
	)
	if authnMiddleware != nil {
		middlewares = append(middlewares, authnMiddleware.Authenticate())
	}
	middlewares = append(middlewares, identityMiddleware.HTTPMiddleware)

	router.Use(middlewares...)

	metrics.NewAPI(logger).RegisterEndpoints(router)
	status.NewAPI(tracer, monitor, logger).RegisterEndpoints(router)
	membershipAPI.RegisterEndpoints(router)

	return tracing.NewMiddleware(monitor, logger).OpenTelemetry(router)
}

func middlewareCORS(origins []string) func(http.Handler) http.Handler {
	return cors.Handler(
		cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", identity.UserHeaderName, identity.EmailHeaderName, identity.TenantHeaderName},
			MaxAge:         300,
		},
	)
}
