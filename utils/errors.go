package utils

import (
	"errors"
	"net/http"
)

// Messaging error taxonomy. All of these are terminal: they surface to
// the caller as a denial and are never retried. Transient storage
// failures on the primary write map to ErrStorage; failures on
// side-effects are logged and swallowed at the call site.
var (
	ErrBlocked     = errors.New("relationship blocked")
	ErrNotOwner    = errors.New("not the owner of the target")
	ErrExpired     = errors.New("outside the allowed time window")
	ErrUnsupported = errors.New("operation not valid for this content")
	ErrNotFound    = errors.New("not found")
	ErrStorage     = errors.New("storage failure")
)

// HTTPStatusFromError maps a taxonomy error to its response code.
func HTTPStatusFromError(err error) int {
	switch {
	case errors.Is(err, ErrBlocked), errors.Is(err, ErrNotOwner), errors.Is(err, ErrExpired):
		return http.StatusForbidden
	case errors.Is(err, ErrUnsupported):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
