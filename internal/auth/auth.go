// Package auth defines the authenticator contract crawl strategies use
// to obtain credentials, and a simple fixed-or-prompted implementation.
package auth

import "context"

// Authenticator supplies credentials to a crawl strategy and accepts
// invalidation feedback when the remote rejects them. Implementations
// must be safe for concurrent use; a strategy's goroutines may all ask
// for credentials at once.
type Authenticator interface {
	// Credentials returns a username/password pair, obtaining missing
	// values interactively if necessary.
	Credentials(ctx context.Context) (username, password string, err error)

	// InvalidateCredentials marks the whole pair as rejected so the
	// next Credentials call obtains fresh values. It fails when both
	// values are fixed by configuration and cannot be re-obtained.
	InvalidateCredentials() error

	// InvalidateUsername marks the username as rejected. It fails when
	// the username is fixed by configuration.
	InvalidateUsername() error

	// InvalidatePassword marks the password as rejected. It fails when
	// the password is fixed by configuration.
	InvalidatePassword() error
}

// Asker is the interactive input surface an authenticator prompts
// through. *prompt.Terminal satisfies it.
type Asker interface {
	// Line asks question and returns one line of input.
	Line(ctx context.Context, question string) (string, error)

	// Secret asks question and returns one line of input, read without
	// echo where possible.
	Secret(ctx context.Context, question string) (string, error)
}
