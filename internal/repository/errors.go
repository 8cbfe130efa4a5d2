// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios without
// inspecting driver-specific errors. For example, ErrForbidden indicates
// that the current user does not own the resource being mutated, while
// ErrConflict signals that a unique-constraint race was lost and retried
// without success.
package repository

import "errors"

// ErrNotFound is returned when a user, comment, reply or settings row
// does not exist. Handlers should translate this into an HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource addressed to someone else. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an insert keeps losing a unique-constraint
// race (duplicate email or link_id) after the internal retry. Handlers
// should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrTokenInvalid is returned when a refresh token is unknown, revoked or
// past its expiry. The three cases are deliberately indistinguishable to
// the caller; handlers respond with HTTP 401.
var ErrTokenInvalid = errors.New("invalid refresh token")
