package output

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileSink is the write handle for one approved download. Bytes are
// written to a staging file next to the destination; Commit atomically
// replaces the destination, Abort discards the staged bytes. Exactly one
// of Commit or Abort must be called, and Abort after Commit is a no-op
// so deferred aborts compose with explicit commits.
type FileSink struct {
	file      *os.File
	stagePath string
	finalPath string
	mtime     time.Time
	closed    bool
}

// Write appends bytes to the staging file.
func (s *FileSink) Write(p []byte) (int, error) {
	return s.file.Write(p)
}

// Commit closes the staging file and atomically renames it over the
// final destination. When a modification time was supplied for the
// download, it is applied to the committed file.
func (s *FileSink) Commit() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.file.Close(); err != nil {
		_ = os.Remove(s.stagePath)
		return fmt.Errorf("failed to close staging file: %w", err)
	}
	if !s.mtime.IsZero() {
		if err := os.Chtimes(s.stagePath, s.mtime, s.mtime); err != nil {
			_ = os.Remove(s.stagePath)
			return fmt.Errorf("failed to set modification time: %w", err)
		}
	}
	if err := os.Rename(s.stagePath, s.finalPath); err != nil {
		_ = os.Remove(s.stagePath)
		return fmt.Errorf("failed to commit download: %w", err)
	}
	return nil
}

// Abort discards the staged bytes. The destination is untouched.
func (s *FileSink) Abort() {
	if s.closed {
		return
	}
	s.closed = true

	_ = s.file.Close()
	_ = os.Remove(s.stagePath)
}

// SinkToken is an approved but not yet started download. Opening it
// creates the staging file; the token itself holds no OS resources, so
// an approval that is never acted upon costs nothing.
type SinkToken struct {
	dir   *Directory
	path  string
	local string
	mtime time.Time
	sink  *FileSink
}

// Path returns the destination path the token was approved for,
// relative to the output directory.
func (t *SinkToken) Path() string {
	return t.path
}

// Open creates the staging file and returns the sink. A token whose
// sink is still staged cannot be opened again.
func (t *SinkToken) Open() (*FileSink, error) {
	if t.sink != nil && !t.sink.closed {
		return nil, fmt.Errorf("%w: %s", ErrSinkActive, t.path)
	}

	if err := os.MkdirAll(filepath.Dir(t.local), 0750); err != nil {
		return nil, fmt.Errorf("failed to create parent directory for %s: %w", t.path, err)
	}

	// Staging in the destination's directory keeps the final rename on
	// one filesystem, which is what makes it atomic.
	file, err := os.CreateTemp(filepath.Dir(t.local), ".spiegel-stage-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging file for %s: %w", t.path, err)
	}

	t.sink = &FileSink{
		file:      file,
		stagePath: file.Name(),
		finalPath: t.local,
		mtime:     t.mtime,
	}
	return t.sink, nil
}
