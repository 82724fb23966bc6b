// Package output reconciles crawl decisions against the local
// filesystem and the previous run's ledger.
//
// A Directory owns the redownload and conflict policies, the current and
// previous run Reports, and stale-file cleanup. Approved downloads write
// through a FileSink: bytes go to a staging file owned exclusively by
// the sink and the final destination is only ever replaced atomically on
// commit, so a failed or cancelled download never leaves a partially
// written file behind.
//
// Cleanup is destructive and deliberately conservative: the orchestrator
// invokes it only when the whole run finished without warnings or
// errors, because an incomplete crawl must never be treated as
// authoritative for deletions.
package output
