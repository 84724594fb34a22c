package service

import (
	"errors"
	"fmt"
)

// Error kinds returned by the services.  Handlers map them to HTTP status
// codes with errors.Is; messages wrapped around them are safe to show to
// clients.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotFound       = errors.New("not found")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
	ErrExpired        = errors.New("expired")
)

// ErrAlreadyRedeemed is a Conflict: the booking has been checked in.
var ErrAlreadyRedeemed = fmt.Errorf("%w: token already redeemed", ErrConflict)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
