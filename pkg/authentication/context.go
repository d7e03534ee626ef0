// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authentication

import "context"

// Private custom types to avoid collisions
type userContextKey struct{}
type emailContextKey struct{}
type tenantContextKey struct{}

// WithUserID returns a new context with the given user ID derived from the parent context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userContextKey{}, userID)
}

// GetUserID retrieves the user ID from the context.
// Returns an empty string and false if the user ID is not present.
func GetUserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userContextKey{}).(string)
	return id, ok
}

// WithUserEmail returns a new context carrying the authenticated email.
func WithUserEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, emailContextKey{}, email)
}

// GetUserEmail retrieves the authenticated email from the context.
func GetUserEmail(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(emailContextKey{}).(string)
	return email, ok
}

// WithActiveTenant returns a new context carrying the caller's active tenant id.
func WithActiveTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantContextKey{}, tenantID)
}

// GetActiveTenant retrieves the active tenant id from the context.
func GetActiveTenant(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(tenantContextKey{}).(string)
	return id, ok
}
