package auth

import (
	"context"
	"fmt"
	"sync"
)

// Simple is an Authenticator over a static username/password pair.
// Values present in the configuration are fixed; absent values are
// asked for interactively on first use and cached until invalidated.
type Simple struct {
	name  string
	asker Asker

	// mu serializes credential state. Prompting happens under the lock
	// so concurrent callers share one interactive exchange instead of
	// each asking the user.
	mu       sync.Mutex
	username string
	password string

	usernameFixed bool
	passwordFixed bool
}

// NewSimple creates a Simple authenticator named name. Empty username
// or password mean "prompt on first use" through asker.
func NewSimple(name, username, password string, asker Asker) *Simple {
	return &Simple{
		name:          name,
		asker:         asker,
		username:      username,
		password:      password,
		usernameFixed: username != "",
		passwordFixed: password != "",
	}
}

// Name returns the authenticator's configured name.
func (s *Simple) Name() string {
	return s.name
}

// Credentials returns the pair, prompting for whichever half is
// currently unknown.
func (s *Simple) Credentials(ctx context.Context) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.username == "" {
		username, err := s.asker.Line(ctx, "Username: ")
		if err != nil {
			return "", "", fmt.Errorf("auth %s: %w", s.name, err)
		}
		s.username = username
	}

	if s.password == "" {
		password, err := s.asker.Secret(ctx, "Password: ")
		if err != nil {
			return "", "", fmt.Errorf("auth %s: %w", s.name, err)
		}
		s.password = password
	}

	return s.username, s.password, nil
}

// InvalidateCredentials discards both cached values. It fails when both
// are fixed by configuration.
func (s *Simple) InvalidateCredentials() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.usernameFixed && s.passwordFixed {
		return fmt.Errorf("auth %s: %w", s.name, ErrFixedCredentials)
	}

	if !s.usernameFixed {
		s.username = ""
	}
	if !s.passwordFixed {
		s.password = ""
	}
	return nil
}

// InvalidateUsername discards the cached username. It fails when the
// username is fixed by configuration.
func (s *Simple) InvalidateUsername() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.usernameFixed {
		return fmt.Errorf("auth %s: username: %w", s.name, ErrFixedCredentials)
	}
	s.username = ""
	return nil
}

// InvalidatePassword discards the cached password. It fails when the
// password is fixed by configuration.
func (s *Simple) InvalidatePassword() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.passwordFixed {
		return fmt.Errorf("auth %s: password: %w", s.name, ErrFixedCredentials)
	}
	s.password = ""
	return nil
}
