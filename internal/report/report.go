package report

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Entry is the recorded metadata for one destination path.
type Entry struct {
	// Path is the slash-separated destination path relative to the
	// output directory.
	Path string

	// Mtime is the modification time supplied when the path was
	// recorded. Zero when the caller supplied none.
	Mtime time.Time

	// Duplicate is true if the path was recorded more than once this run.
	Duplicate bool

	// Conflict is true if local content at this path had to be resolved
	// by the conflict policy.
	Conflict bool
}

// Report is the per-run ledger. The zero value is not usable; create
// Reports with New. All methods are safe for concurrent use: the
// record/detect-duplicate step is a check-and-set serialized by a single
// mutex so two concurrent download decisions for the same destination
// can never both win.
type Report struct {
	mu      sync.Mutex
	entries map[string]*Entry
}

// New creates an empty Report.
func New() *Report {
	return &Report{entries: make(map[string]*Entry)}
}

// Mark records path with the given modification time. Recording a path
// that is already present marks the existing entry as a duplicate and
// returns ErrDuplicatePath wrapped with the path.
func (r *Report) Mark(path string, mtime time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[path]; ok {
		e.Duplicate = true
		return fmt.Errorf("%w: %s", ErrDuplicatePath, path)
	}
	r.entries[path] = &Entry{Path: path, Mtime: mtime}
	return nil
}

// MarkConflict sets the conflict marking on path, creating the entry if
// it does not exist yet. Conflicts are discovered before Mark runs, so
// the entry may or may not already be present.
func (r *Report) MarkConflict(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[path]; ok {
		e.Conflict = true
		return
	}
	r.entries[path] = &Entry{Path: path, Conflict: true}
}

// Contains reports whether path was recorded this run.
func (r *Report) Contains(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.entries[path]
	return ok
}

// Mtime returns the recorded modification time for path.
func (r *Report) Mtime(path string) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[path]
	if !ok {
		return time.Time{}, false
	}
	return e.Mtime, true
}

// Entries returns a copy of all entries, sorted by path.
func (r *Report) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries
}

// Paths returns all recorded paths, sorted.
func (r *Report) Paths() []string {
	entries := r.Entries()
	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.Path
	}
	return paths
}

// Len returns the number of recorded paths.
func (r *Report) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.entries)
}
