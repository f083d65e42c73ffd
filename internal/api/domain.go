package api

import "errors"

// Domain error taxonomy. Handlers map these to HTTP status codes with
// errors.Is; repositories and services wrap them with context via %w.
var (
	// ErrInvalidCredentials covers every failed login cause (unknown email,
	// OAuth-only account, wrong password) so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrDuplicateIdentity is returned when a registration collides with an
	// existing email or username.
	ErrDuplicateIdentity = errors.New("email or username already in use")

	// ErrWeakPassword is returned when a registration password fails the
	// strength policy.
	ErrWeakPassword = errors.New("password does not meet strength requirements")

	// ErrProviderMismatch is returned when an OAuth login arrives for an email
	// already bound to a different provider.
	ErrProviderMismatch = errors.New("account is linked to a different provider")

	// ErrUnauthenticated is returned when no valid session is presented.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrPlanRequired is returned when the session is valid but the user's
	// plan does not grant access.
	ErrPlanRequired = errors.New("OMEGA plan required")

	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("requested item not found")
)

// Response represents a generic API response for success or error messages.
type Response struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message,omitempty" example:"Operation successful"`
	Error   string `json:"error,omitempty" example:"Resource not found"`
}
