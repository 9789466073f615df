package session

import "errors"

// Sentinel errors for session operations. None of these are fatal: the
// caller stays on an authorized screen with a retry path.
var (
	// ErrInvalidCredentials is a rejected login (401).
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrValidation is a malformed or incomplete payload (400).
	ErrValidation = errors.New("validation failed")

	// ErrConflict is a signup identifier that already exists (409).
	ErrConflict = errors.New("identifier already exists")

	// ErrNetworkUnavailable is a transport failure with no response.
	ErrNetworkUnavailable = errors.New("network unavailable")

	// ErrSessionExpired is a 401 from an authenticated call after a
	// session was previously valid.
	ErrSessionExpired = errors.New("session expired")

	// ErrSuperseded is returned when a response arrives after a newer
	// identity-changing operation has already been issued. The response
	// is discarded and the session is left as the newer operation set it.
	ErrSuperseded = errors.New("operation superseded")
)
