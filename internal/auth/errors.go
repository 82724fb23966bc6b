package auth

import "errors"

var (
	// ErrFixedCredentials is returned when a configured credential is
	// invalidated. A fixed value cannot be re-obtained interactively,
	// so retrying with the same authenticator is pointless; callers
	// should treat this as fatal.
	ErrFixedCredentials = errors.New("configured credentials are invalid")
)
