package shared

import "errors"

// Sentinel errors shared across modules. Repositories translate raw
// storage errors into these before they reach a service or handler.
var (
	// ErrNotFound indicates a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a uniqueness violation on name, email or binding.
	ErrConflict = errors.New("conflict")
	// ErrUnauthorized indicates a missing, invalid, expired or revoked credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates a valid identity without the required permission.
	ErrForbidden = errors.New("forbidden")
	// ErrRejected indicates a domain-level refusal such as a wrong current password.
	ErrRejected = errors.New("rejected")
	// ErrFederationFailed indicates an external identity provider exchange error.
	ErrFederationFailed = errors.New("federation failed")
	// ErrInvalid indicates malformed input caught before reaching storage.
	ErrInvalid = errors.New("invalid input")
)
