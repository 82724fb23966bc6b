package crawler

import "errors"

// Crawl failure kinds used by the two-tier error model.
var (
	// ErrCrawlWarning marks an expected, per-resource failure. Leaf
	// operations wrap transient domain problems (a page that fails to
	// parse, a single fetch that times out) in this error; Recover logs
	// them and lets the run continue.
	ErrCrawlWarning = errors.New("crawl warning")

	// ErrCrawl marks a hard crawl failure. It originates from crawl
	// logic like ErrCrawlWarning but is deliberately excluded from the
	// recoverable set: some leaf failures invalidate the whole result.
	ErrCrawl = errors.New("crawl failed")

	// ErrTokenActive is returned when a token is entered while it is
	// already active. Tokens may be reused sequentially, never
	// concurrently.
	ErrTokenActive = errors.New("token already active")
)
