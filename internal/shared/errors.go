package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")

	// ErrUnauthenticated means there is no valid session.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrUnauthorized means the principal lacks the role for a route or action.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrReadOnly means the principal holds a monitoring & evaluation role.
	ErrReadOnly = errors.New("read-only role")
	// ErrTransitionFailure means a role-switch call to the backend failed.
	ErrTransitionFailure = errors.New("role switch transition failed")
	// ErrConflict means the request collides with work already in progress.
	ErrConflict = errors.New("conflict")
	// ErrUnknownRole means a role outside the closed enumeration was seen.
	ErrUnknownRole = errors.New("unknown role")
)

// Denial carries the user-facing explanation of a refused request.
type Denial struct {
	Kind    error
	Message string
}

func (d *Denial) Error() string {
	if d.Message == "" {
		return d.Kind.Error()
	}
	return d.Message
}

// Unwrap exposes Kind to errors.Is.
func (d *Denial) Unwrap() error {
	return d.Kind
}
