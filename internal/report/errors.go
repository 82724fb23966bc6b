package report

import "errors"

// Ledger marking errors.
// These are recoverable by design: they degrade a run's error-free status
// but never abort it.
var (
	// ErrDuplicatePath is returned when a destination path is recorded a
	// second time within one run. The first recording wins; the duplicate
	// marking is kept on the existing entry.
	ErrDuplicatePath = errors.New("path already recorded in this run")
)
