// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package membership

// ErrorKind classifies every caller-facing rejection so the transport layer
// can map it to a status code and render a specific message.
type ErrorKind string

const (
	KindValidation      ErrorKind = "validation"
	KindForbidden       ErrorKind = "forbidden"
	KindDuplicateMember ErrorKind = "duplicate_member"
	KindNotFound        ErrorKind = "not_found"
	KindSelfRemoval     ErrorKind = "self_removal"
	KindLastOwner       ErrorKind = "last_owner"
	KindInvalidToken    ErrorKind = "invalid_token"
)

// Error is a recoverable, caller-facing rejection. Anything else escaping
// the service is an infrastructure failure.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches on kind so callers can test against the sentinel values below
// regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrForbidden       = &Error{Kind: KindForbidden, Message: "Insufficient permissions"}
	ErrDuplicateMember = &Error{Kind: KindDuplicateMember, Message: "User is already a member of this tenant"}
	ErrNotFound        = &Error{Kind: KindNotFound, Message: "Membership not found"}
	ErrSelfRemoval     = &Error{Kind: KindSelfRemoval, Message: "Cannot remove your own membership"}
	ErrLastOwner       = &Error{Kind: KindLastOwner, Message: "Cannot change or remove the last owner of a tenant"}
	ErrInvalidToken    = &Error{Kind: KindInvalidToken, Message: "Invitation token is invalid or expired"}
)

// NewValidationError builds a validation rejection with a specific message.
func NewValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}
