package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/spiegelsync/spiegel/internal/limiter"
	logpkg "github.com/spiegelsync/spiegel/internal/log"
	"github.com/spiegelsync/spiegel/internal/output"
	"github.com/spiegelsync/spiegel/internal/report"
	"github.com/spiegelsync/spiegel/internal/transform"
)

// Strategy is a concrete crawl implementation: it knows which paths a
// remote offers and how to fetch their bytes. The engine knows neither.
type Strategy interface {
	// Crawl visits the remote and drives the Crawler's decision points.
	// It must not return before all crawling work it initiated has
	// completed; Crawler.Gather is the fan-out primitive that upholds
	// this even on failure.
	Crawl(ctx context.Context, c *Crawler) error
}

// Options configures a Crawler.
type Options struct {
	// OutputDir is the local directory mirrored into.
	OutputDir string

	// Redownload is the default refetch policy for existing files.
	Redownload output.Redownload

	// OnConflict is the default policy for unexplained local content.
	OnConflict output.OnConflict

	// Transform is the rule expression filtering and renaming paths.
	Transform string

	// MaxTasks bounds concurrently admitted tasks (crawls + downloads).
	MaxTasks int

	// MaxDownloads bounds concurrently admitted downloads.
	MaxDownloads int

	// TaskDelay is the minimum interval between the start of any two
	// tasks.
	TaskDelay time.Duration

	// Prompter answers interactive conflict questions. Optional.
	Prompter output.Prompter

	// Logger receives engine log records. Defaults to slog.Default().
	Logger *slog.Logger

	// Reporter receives progress start/done events. Defaults to a
	// slog-backed reporter.
	Reporter logpkg.Reporter
}

// DownloadOptions carries the optional arguments of a download decision.
type DownloadOptions struct {
	// Mtime is the remote modification time, when the strategy knows it.
	// The "smart" redownload policies compare it against the ledger.
	Mtime time.Time

	// Redownload overrides the crawler's default redownload policy for
	// this call. Explicit overrides always win.
	Redownload *output.Redownload

	// OnConflict overrides the crawler's default conflict policy for
	// this call.
	OnConflict *output.OnConflict
}

// Crawler drives one mirror run. It is safe for use from the many
// goroutines a strategy fans out into.
type Crawler struct {
	name string

	limiter     *limiter.Limiter
	transformer *transform.Transformer
	dir         *output.Directory
	logger      *slog.Logger
	reporter    logpkg.Reporter

	// mu guards errorFree. The first failure of any kind, recoverable
	// or fatal, clears it for the rest of the run.
	mu        sync.Mutex
	errorFree bool
}

// New creates a Crawler named name from the given options.
func New(name string, opts Options) (*Crawler, error) {
	lim, err := limiter.New(opts.MaxTasks, opts.MaxDownloads, opts.TaskDelay)
	if err != nil {
		return nil, fmt.Errorf("crawler %s: %w", name, err)
	}

	tr, err := transform.New(opts.Transform)
	if err != nil {
		return nil, fmt.Errorf("crawler %s: invalid transform: %w", name, err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("crawler", name)

	reporter := opts.Reporter
	if reporter == nil {
		reporter = logpkg.NewSlogReporter(logger)
	}

	c := &Crawler{
		name:        name,
		limiter:     lim,
		transformer: tr,
		logger:      logger,
		reporter:    reporter,
		errorFree:   true,
	}

	c.dir = output.NewDirectory(
		opts.OutputDir,
		opts.Redownload,
		opts.OnConflict,
		output.WithLogger(logger),
		output.WithPrompter(opts.Prompter),
		output.WithWarningHandler(c.recordWarning),
	)

	return c, nil
}

// Name returns the crawler's name.
func (c *Crawler) Name() string {
	return c.name
}

// Report returns the current run's ledger.
func (c *Crawler) Report() *report.Report {
	return c.dir.Report()
}

// PrevReport returns the previous run's ledger, or nil.
func (c *Crawler) PrevReport() *report.Report {
	return c.dir.PrevReport()
}

// ErrorFree reports whether the run has seen no failure so far.
func (c *Crawler) ErrorFree() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errorFree
}

// recordWarning logs a recoverable condition and clears the error-free
// flag. It is also the warning hook of the output directory.
func (c *Crawler) recordWarning(err error) {
	c.logger.Warn("recoverable failure", "error", err)

	c.mu.Lock()
	c.errorFree = false
	c.mu.Unlock()
}

// recordFailure clears the error-free flag without logging; the failure
// is propagating and will be reported where it surfaces.
func (c *Crawler) recordFailure() {
	c.mu.Lock()
	c.errorFree = false
	c.mu.Unlock()
}

// Crawl decides whether path is visited at all. It returns a token the
// strategy must acquire before fetching, or nil when the path is
// excluded by the transformer.
func (c *Crawler) Crawl(path string) *CrawlToken {
	if _, ok := c.transformer.Apply(path); !ok {
		c.logger.Debug("crawl decision", "path", path, "answer", "no")
		return nil
	}

	c.logger.Debug("crawl decision", "path", path, "answer", "yes")
	return &CrawlToken{crawler: c, path: path}
}

// Download decides whether bytes for path are fetched, given local
// state and policy. It returns a token wrapping the approved sink, or
// nil when the path is excluded or the output directory declines.
func (c *Crawler) Download(ctx context.Context, path string, opts DownloadOptions) (*DownloadToken, error) {
	transformed, ok := c.transformer.Apply(path)
	if !ok {
		c.logger.Debug("download decision", "path", path, "answer", "no")
		return nil, nil
	}

	sinkToken, err := c.dir.Download(ctx, transformed, opts.Mtime, opts.Redownload, opts.OnConflict)
	if err != nil {
		return nil, err
	}
	if sinkToken == nil {
		c.logger.Debug("download decision", "path", path, "answer", "no")
		return nil, nil
	}

	c.logger.Debug("download decision", "path", path, "answer", "yes")
	return &DownloadToken{crawler: c, path: path, sinkToken: sinkToken}, nil
}

// Gather runs tasks concurrently. On the first failure every still
// running sibling is cancelled and the original failure is returned
// once all of them have acknowledged cancellation. Strategies must use
// this instead of an unguarded fan-out so a fatal error in one branch
// cannot leave orphaned background work.
func (c *Crawler) Gather(ctx context.Context, tasks ...func(context.Context) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		g.Go(func() error { return task(ctx) })
	}
	return g.Wait()
}

// Recover is the two-tier failure classifier strategies apply around
// individual leaf operations. Recoverable failures are logged, clear
// the error-free flag and are swallowed so the run continues; anything
// else clears the flag and is returned, aborting the run.
func (c *Crawler) Recover(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrCrawl):
		// Hard crawl failures are fatal by design, even though they
		// originate from crawl logic.
		c.recordFailure()
		return err
	case errors.Is(err, ErrCrawlWarning),
		errors.Is(err, report.ErrDuplicatePath),
		errors.Is(err, output.ErrUnsafePath),
		errors.Is(err, output.ErrReservedPath):
		c.recordWarning(err)
		return nil
	default:
		c.recordFailure()
		return err
	}
}

// Run executes the full lifecycle: prepare the output directory, load
// the previous ledger, hand control to the strategy, clean up stale
// files if and only if the run stayed error-free, and persist the
// ledger unconditionally.
func (c *Crawler) Run(ctx context.Context, strategy Strategy) error {
	if err := c.dir.Prepare(); err != nil {
		return fmt.Errorf("crawler %s: %w", c.name, err)
	}
	defer c.dir.Close() //nolint:errcheck // read-side close on shutdown

	if err := c.dir.LoadPrevReport(ctx); err != nil {
		return fmt.Errorf("crawler %s: %w", c.name, err)
	}

	crawlErr := strategy.Crawl(ctx, c)
	if crawlErr != nil {
		c.recordFailure()
		c.logger.Error("crawl aborted", "error", crawlErr)
	}

	if c.ErrorFree() {
		if err := c.dir.Cleanup(ctx); err != nil {
			c.recordFailure()
			c.logger.Error("cleanup failed", "error", err)
			if crawlErr == nil {
				crawlErr = err
			}
		}
	} else {
		c.logger.Info("skipping cleanup", "reason", "run was not error-free")
	}

	// The ledger reflects actual progress even for errored runs; stale
	// files may then survive locally, which is the conservative side of
	// the tradeoff.
	if err := c.dir.StoreReport(ctx); err != nil {
		if crawlErr == nil {
			crawlErr = err
		}
		c.logger.Error("failed to persist report", "error", err)
	}

	if crawlErr != nil {
		return fmt.Errorf("crawler %s: %w", c.name, crawlErr)
	}
	return nil
}
