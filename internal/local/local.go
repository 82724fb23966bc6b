// Package local implements a crawl strategy that mirrors one local
// directory tree into the output directory. It exists for testing the
// engine end to end and for plain on-disk mirroring, and exercises
// every engine decision point a remote strategy would.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/spiegelsync/spiegel/internal/crawler"
)

// ErrTargetNotDirectory is returned when the configured target does not
// exist or is not a directory.
var ErrTargetNotDirectory = errors.New("target is not a directory")

// Strategy mirrors the tree rooted at a target directory.
type Strategy struct {
	target string
}

// New creates a Strategy reading from target.
func New(target string) (*Strategy, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTargetNotDirectory, target)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrTargetNotDirectory, target)
	}
	return &Strategy{target: target}, nil
}

// Crawl walks the target tree, fanning out one branch per directory
// entry. Unreadable entries degrade the run instead of aborting it.
func (s *Strategy) Crawl(ctx context.Context, c *crawler.Crawler) error {
	return s.crawlDir(ctx, c, "")
}

// crawlDir lists one directory and gathers a branch per entry. rel is
// the slash-separated path below the target root, "" for the root
// itself.
func (s *Strategy) crawlDir(ctx context.Context, c *crawler.Crawler, rel string) error {
	entries, err := os.ReadDir(filepath.Join(s.target, filepath.FromSlash(rel)))
	if err != nil {
		return c.Recover(recoverable(fmt.Errorf("list %s: %w", rel, err)))
	}

	tasks := make([]func(context.Context) error, 0, len(entries))
	for _, entry := range entries {
		p := path.Join(rel, entry.Name())
		if entry.IsDir() {
			tasks = append(tasks, func(ctx context.Context) error {
				return s.crawlSubdir(ctx, c, p)
			})
		} else {
			tasks = append(tasks, func(ctx context.Context) error {
				return c.Recover(recoverable(s.downloadFile(ctx, c, p)))
			})
		}
	}
	return c.Gather(ctx, tasks...)
}

// crawlSubdir visits one subdirectory under a crawl token, then
// recurses. The token covers only the visit itself; child branches
// acquire their own slots, so deep trees cannot deadlock the limiter.
func (s *Strategy) crawlSubdir(ctx context.Context, c *crawler.Crawler, rel string) error {
	tok := c.Crawl(rel)
	if tok == nil {
		return nil
	}

	if err := tok.Acquire(ctx); err != nil {
		return err
	}
	tok.Release()

	return s.crawlDir(ctx, c, rel)
}

// downloadFile mirrors one regular file through a download token.
func (s *Strategy) downloadFile(ctx context.Context, c *crawler.Crawler, rel string) error {
	source := filepath.Join(s.target, filepath.FromSlash(rel))
	info, err := os.Stat(source)
	if err != nil {
		return fmt.Errorf("stat %s: %w", rel, err)
	}

	tok, err := c.Download(ctx, rel, crawler.DownloadOptions{Mtime: info.ModTime()})
	if err != nil || tok == nil {
		return err
	}

	sink, err := tok.Acquire(ctx)
	if err != nil {
		return err
	}
	defer tok.Release()

	f, err := os.Open(source) //nolint:gosec // Path stays below the configured target
	if err != nil {
		return fmt.Errorf("open %s: %w", rel, err)
	}
	defer f.Close() //nolint:errcheck // Read-only file

	if _, err := io.Copy(sink, f); err != nil {
		return fmt.Errorf("copy %s: %w", rel, err)
	}
	if err := sink.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", rel, err)
	}
	return nil
}

// recoverable wraps a leaf failure so Recover treats it as a warning.
// Context cancellation passes through untouched; swallowing it would
// turn an abort into silent partial success.
func recoverable(err error) error {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", crawler.ErrCrawlWarning, err)
}
