// Package crawler provides the orchestration engine that concrete crawl
// strategies plug into.
//
// # Architecture
//
// The Crawler owns the run lifecycle and composes the engine's parts: a
// Limiter bounding concurrency, a Transformer filtering and renaming
// paths, and an output Directory applying redownload/conflict policy
// against the previous run's ledger. A Strategy decides what to visit
// and how to fetch it; for every candidate path it asks the Crawler for
// a decision and receives a scoped token, or nil when the path is
// excluded or declined.
//
// # Error tolerance
//
// Failures come in two tiers. Recoverable conditions (crawl warnings,
// duplicate and conflict markings) are logged, clear the run's
// error-free flag and let the run continue; everything else also clears
// the flag but aborts. The flag gates destructive cleanup: stale files
// are only deleted after a run that finished without a single warning,
// because an incomplete crawl is not authoritative for deletions. The
// ledger, by contrast, is persisted unconditionally so the next run
// diffs against actual progress.
//
// # Usage
//
//	c, err := crawler.New("my-course", crawler.Options{...})
//	if err != nil { ... }
//	err = c.Run(ctx, strategy)
package crawler
