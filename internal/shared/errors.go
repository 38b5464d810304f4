package shared

import (
	"errors"

	"github.com/schooldesk/schooldesk/internal/platform/httpx"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = httpx.ErrNotFound
	// ErrUnauthorized indicates a missing or rejected credential.
	ErrUnauthorized = httpx.ErrUnauthorized
	// ErrForbidden indicates the request belongs to another client.
	ErrForbidden = httpx.ErrForbidden
	// ErrConflict indicates the request does not fit the current state.
	ErrConflict = httpx.ErrConflict
	// ErrValidation indicates malformed input.
	ErrValidation = httpx.ErrValidation
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
