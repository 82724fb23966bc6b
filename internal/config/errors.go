package config

import "errors"

// Configuration validation errors.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages. Validate wraps them with the section name,
// field name and offending value.
var (
	// ErrMissingType is returned when a crawler section has no type.
	// Without a type there is no strategy to run.
	ErrMissingType = errors.New("missing crawler type")

	// ErrUnknownAuthType is returned when an auth section names an
	// authenticator implementation that does not exist.
	ErrUnknownAuthType = errors.New("unknown authenticator type")

	// ErrInvalidTaskLimit is returned when max_concurrent_tasks is not
	// positive. Zero tasks would mean no crawling at all.
	ErrInvalidTaskLimit = errors.New("task limit must be positive")

	// ErrInvalidDownloadLimit is returned when max_concurrent_downloads
	// is not in (0, max_concurrent_tasks]. Downloads occupy task slots,
	// so a larger download limit could never be reached.
	ErrInvalidDownloadLimit = errors.New("download limit must be positive and at most the task limit")

	// ErrInvalidTaskDelay is returned when delay_between_tasks is
	// negative or not a finite number. Use 0 for no pacing.
	ErrInvalidTaskDelay = errors.New("task delay must be a finite, non-negative number of seconds")

	// ErrMissingAuth is returned when a crawler section does not name a
	// credential provider.
	ErrMissingAuth = errors.New("missing auth reference")

	// ErrUnknownAuth is returned when a crawler references a credential
	// provider that is not configured under the top-level auth map.
	ErrUnknownAuth = errors.New("auth reference does not resolve to a configured provider")
)
