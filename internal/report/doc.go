// Package report provides the per-run ledger of every path the engine
// decided upon, and its persistence across runs.
//
// A Report records each destination path at most once per run, together
// with its modification time and duplicate/conflict markings. The ledger
// drives three mechanisms: duplicate detection within a run (at most one
// writer per destination path), conflict detection against the previous
// run (is local content explained by what we wrote last time), and
// stale-file cleanup (paths present last run but absent this run).
//
// Design decision: Reports are persisted in a SQLite file inside the
// output directory rather than a JSON sidecar. SQLite gives us atomic
// replacement of the previous run inside a transaction and a place to
// keep run metadata without inventing a file format.
package report
