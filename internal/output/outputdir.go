package output

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spiegelsync/spiegel/internal/report"
)

// Prompter asks the user a yes/no question, suspending until an answer
// arrives. The conflict policy "prompt" needs one; everything else in
// the engine runs unattended.
type Prompter interface {
	YesNo(ctx context.Context, question string, defaultAnswer bool) (bool, error)
}

// Directory reconciles download decisions against the local filesystem
// and the previous run's ledger. Create one with NewDirectory, call
// Prepare before use and Close when done.
type Directory struct {
	root       string
	redownload Redownload
	onConflict OnConflict

	logger   *slog.Logger
	prompter Prompter

	// warn receives recoverable conditions (duplicate markings, conflict
	// markings, unsafe paths). The orchestrator hooks this to downgrade
	// the run's error-free flag; plain policy declines do not go through
	// here because declining is normal operation, not a failure.
	warn func(error)

	store   *report.Store
	current *report.Report
	prev    *report.Report
}

// Option configures a Directory.
type Option func(*Directory)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Directory) {
		d.logger = logger
	}
}

// WithPrompter sets the prompter used by the "prompt" conflict policy.
// Without one, prompting degrades to skipping with a warning.
func WithPrompter(p Prompter) Option {
	return func(d *Directory) {
		d.prompter = p
	}
}

// WithWarningHandler sets the hook receiving recoverable conditions.
func WithWarningHandler(warn func(error)) Option {
	return func(d *Directory) {
		d.warn = warn
	}
}

// NewDirectory creates a Directory rooted at root with the given default
// policies.
func NewDirectory(root string, redownload Redownload, onConflict OnConflict, opts ...Option) *Directory {
	d := &Directory{
		root:       root,
		redownload: redownload,
		onConflict: onConflict,
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.warn == nil {
		d.warn = func(err error) { d.logger.Warn("output directory warning", "error", err) }
	}

	return d
}

// Root returns the output directory's root path.
func (d *Directory) Root() string {
	return d.root
}

// Report returns the current run's ledger. Nil before Prepare.
func (d *Directory) Report() *report.Report {
	return d.current
}

// PrevReport returns the previous run's ledger, or nil when none was
// stored or LoadPrevReport has not run.
func (d *Directory) PrevReport() *report.Report {
	return d.prev
}

// Prepare ensures the output directory exists and is usable, opens the
// ledger store and initializes an empty current-run Report.
func (d *Directory) Prepare() error {
	if err := os.MkdirAll(d.root, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	store, err := report.OpenStore(filepath.Join(d.root, report.StoreFileName))
	if err != nil {
		return err
	}

	d.store = store
	d.current = report.New()
	return nil
}

// LoadPrevReport loads the most recently persisted ledger, if any. It is
// used only for diffing and never mutated.
func (d *Directory) LoadPrevReport(ctx context.Context) error {
	if d.store == nil {
		return ErrNotPrepared
	}

	prev, err := d.store.Load(ctx)
	if err != nil {
		return err
	}
	d.prev = prev
	return nil
}

// Download records the transformed path in the current ledger and
// decides whether bytes should actually be fetched. It returns a
// SinkToken on approval and nil when the download is declined; a non-nil
// error indicates a genuine failure, not a decline.
//
// Explicit per-call policy overrides always win over the section
// defaults.
func (d *Directory) Download(
	ctx context.Context,
	transformed string,
	mtime time.Time,
	redownload *Redownload,
	onConflict *OnConflict,
) (*SinkToken, error) {
	if d.current == nil {
		return nil, ErrNotPrepared
	}

	local, err := d.localPath(transformed)
	if err != nil {
		d.warn(err)
		return nil, nil
	}

	// The duplicate check doubles as the at-most-one-writer guarantee:
	// whichever concurrent caller marks the path first is the only one
	// that can be approved for it.
	if err := d.current.Mark(transformed, mtime); err != nil {
		d.warn(err)
		return nil, nil
	}

	info, err := os.Lstat(local)
	if os.IsNotExist(err) {
		d.logger.Debug("downloading", "path", transformed, "reason", "no local file")
		return d.newSinkToken(transformed, local, mtime), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to inspect %s: %w", transformed, err)
	}
	if info.IsDir() {
		d.warn(fmt.Errorf("%w: %s is a directory", ErrUnsafePath, transformed))
		return nil, nil
	}

	// Local content not explained by the previous ledger is a conflict
	// and resolved by the conflict policy instead of the redownload
	// policy.
	if d.prev == nil || !d.prev.Contains(transformed) {
		approved, err := d.resolveConflict(ctx, transformed, effective(onConflict, d.onConflict))
		if err != nil {
			return nil, err
		}
		if !approved {
			return nil, nil
		}
		return d.newSinkToken(transformed, local, mtime), nil
	}

	prevMtime, _ := d.prev.Mtime(transformed)
	if !d.shouldRedownload(effective(redownload, d.redownload), mtime, prevMtime) {
		d.logger.Debug("keeping local file", "path", transformed)
		return nil, nil
	}
	return d.newSinkToken(transformed, local, mtime), nil
}

// effective resolves an optional per-call override against the section
// default.
func effective[T any](override *T, fallback T) T {
	if override != nil {
		return *override
	}
	return fallback
}

// shouldRedownload applies the redownload policy to an existing,
// explained local file.
func (d *Directory) shouldRedownload(policy Redownload, mtime, prevMtime time.Time) bool {
	switch policy {
	case RedownloadNever:
		return false
	case RedownloadNeverSmart:
		return !mtime.IsZero() && mtime.After(prevMtime)
	case RedownloadAlways:
		return true
	case RedownloadAlwaysSmart:
		return !mtime.Equal(prevMtime)
	default:
		return false
	}
}

// resolveConflict applies the conflict policy to unexplained local
// content. The conflict marking is recorded either way.
func (d *Directory) resolveConflict(ctx context.Context, transformed string, policy OnConflict) (bool, error) {
	d.current.MarkConflict(transformed)
	d.warn(fmt.Errorf("local file %s is not explained by the previous run", transformed))

	switch policy {
	case OnConflictOverwrite:
		return true, nil
	case OnConflictSkip:
		return false, nil
	case OnConflictPrompt:
		if d.prompter == nil {
			d.logger.Warn("no prompter configured, keeping local file", "path", transformed)
			return false, nil
		}
		question := fmt.Sprintf("Replace local file %s?", transformed)
		return d.prompter.YesNo(ctx, question, false)
	default:
		return false, nil
	}
}

// newSinkToken builds the token for an approved download.
func (d *Directory) newSinkToken(transformed, local string, mtime time.Time) *SinkToken {
	return &SinkToken{
		dir:   d,
		path:  transformed,
		local: local,
		mtime: mtime,
	}
}

// localPath maps a transformed path to its location under the output
// directory, rejecting anything that would escape it.
func (d *Directory) localPath(transformed string) (string, error) {
	clean := path.Clean(transformed)
	if clean == "." || clean == ".." || path.IsAbs(clean) || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, transformed)
	}
	// The ledger database lives inside the output directory but is
	// engine state, not mirrored content; committing a download over it
	// would destroy the run history.
	if first, _, _ := strings.Cut(clean, "/"); first == report.StoreFileName {
		return "", fmt.Errorf("%w: %s", ErrReservedPath, transformed)
	}
	return filepath.Join(d.root, filepath.FromSlash(clean)), nil
}

// Cleanup deletes every local file present in the previous ledger but
// absent from the current one. The caller must only invoke this when
// the run finished error-free; an incomplete crawl is not authoritative
// for deletions.
func (d *Directory) Cleanup(ctx context.Context) error {
	if d.current == nil {
		return ErrNotPrepared
	}
	if d.prev == nil {
		return nil
	}

	for _, p := range d.prev.Paths() {
		if d.current.Contains(p) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		local, err := d.localPath(p)
		if err != nil {
			continue
		}
		if err := os.Remove(local); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete stale file %s: %w", p, err)
		}
		d.logger.Info("deleted stale file", "path", p)
		d.pruneEmptyDirs(filepath.Dir(local))
	}
	return nil
}

// pruneEmptyDirs removes now-empty directories between dir and the
// output root. Removal stops at the first non-empty directory.
func (d *Directory) pruneEmptyDirs(dir string) {
	root := filepath.Clean(d.root)
	for dir != root && strings.HasPrefix(dir, root+string(filepath.Separator)) {
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

// StoreReport persists the current ledger, replacing the stored
// previous one. Called unconditionally at run end so the ledger always
// reflects actual progress, even for errored runs.
func (d *Directory) StoreReport(ctx context.Context) error {
	if d.store == nil || d.current == nil {
		return ErrNotPrepared
	}
	return d.store.Save(ctx, d.current)
}

// Close releases the ledger store.
func (d *Directory) Close() error {
	if d.store == nil {
		return nil
	}
	return d.store.Close()
}
