package shared

import "errors"

var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness constraint would be violated.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidCredentials indicates login failure. Unknown user and wrong
	// password both collapse into this kind.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated indicates no active session.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrPermissionDenied indicates an authenticated user lacks rights.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrValidation indicates malformed input rejected before the core.
	ErrValidation = errors.New("validation failed")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
