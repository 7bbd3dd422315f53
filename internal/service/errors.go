package service

import (
	"errors"
	"fmt"

	"classroomhub/internal/authz"
)

var (
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrDuplicateEdge      = errors.New("guardian is already linked to this child")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = authz.ErrForbidden
	ErrHasChildren        = errors.New("classroom still has enrolled children")
	ErrHasAuthoredContent = errors.New("user has created events or messages")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
)

// notFound wraps ErrNotFound with the kind of thing that was missing,
// e.g. "classroom not found"
func notFound(what string) error {
	return fmt.Errorf("%s %w", what, ErrNotFound)
}
