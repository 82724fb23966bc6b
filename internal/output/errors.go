package output

import "errors"

// Output directory errors.
var (
	// ErrUnsafePath is returned when a transformed path would escape the
	// output directory. Such paths are never written.
	ErrUnsafePath = errors.New("destination path escapes the output directory")

	// ErrSinkActive is returned when a sink token is opened while a
	// previous sink from the same token is still staged.
	ErrSinkActive = errors.New("file sink already open")

	// ErrReservedPath is returned when a transformed path would collide
	// with the ledger database inside the output directory.
	ErrReservedPath = errors.New("destination path is reserved for the run ledger")

	// ErrNotPrepared is returned when a Directory operation runs before
	// Prepare.
	ErrNotPrepared = errors.New("output directory not prepared")
)
