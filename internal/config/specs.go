// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

// Package config holds the environment driven service configuration.
package config

import "time"

// EnvSpec is the configuration surface sourced from environment variables.
type EnvSpec struct {
	LogLevel string `envconfig:"log_level" default:"error"`
	Port     int    `envconfig:"port" default:"8000"`
	Debug    bool   `envconfig:"debug" default:"false"`

	DSN               string        `envconfig:"dsn" required:"true"`
	DBMaxConns        int32         `envconfig:"db_max_conns" default:"10"`
	DBMinConns        int32         `envconfig:"db_min_conns" default:"2"`
	DBMaxConnLifetime time.Duration `envconfig:"db_max_conn_lifetime" default:"1h"`
	DBMaxConnIdleTime time.Duration `envconfig:"db_max_conn_idle_time" default:"30m"`

	InvitationLifetime time.Duration `envconfig:"invitation_lifetime" default:"24h"`

	TracingEnabled   bool   `envconfig:"tracing_enabled" default:"false"`
	OtelGRPCEndpoint string `envconfig:"otel_grpc_endpoint"`
	OtelHTTPEndpoint string `envconfig:"otel_http_endpoint"`

	// When authentication is enabled the service verifies bearer tokens
	// itself instead of trusting identity headers from the fronting proxy.
	AuthenticationEnabled bool     `envconfig:"authentication_enabled" default:"false"`
	OIDCIssuer            string   `envconfig:"oidc_issuer"`
	JWKSURL               string   `envconfig:"jwks_url"`
	AllowedSubjects       []string `envconfig:"allowed_subjects"`
	RequiredScope         string   `envconfig:"required_scope"`
}
