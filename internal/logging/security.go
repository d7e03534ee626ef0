// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package logging

import (
	"go.uber.org/zap"
)

// SecurityLogger emits structured security events on the main log stream.
// Events follow a fixed schema so they can be routed to a SIEM downstream.
type SecurityLogger struct {
	l *zap.Logger
}

func (s *SecurityLogger) event(event string, fields ...zap.Field) {
	s.l.Info("security_event", append([]zap.Field{zap.String("event", event)}, fields...)...)
}

func (s *SecurityLogger) SystemStartup() {
	s.event("system.startup")
}

func (s *SecurityLogger) SystemShutdown() {
	s.event("system.shutdown")
}

// AuthzFailure records a denied authorization decision.
func (s *SecurityLogger) AuthzFailure(subject, action string) {
	s.event("authz.failure", zap.String("subject", subject), zap.String("action", action))
}

// AuthnFailure records a failed authentication attempt.
func (s *SecurityLogger) AuthnFailure(reason string) {
	s.event("authn.failure", zap.String("reason", reason))
}
