// Package limiter provides bounded-concurrency admission control for
// crawl and download work.
//
// Two weighted pools gate admission: a task pool covering all work and a
// download pool nested inside it. Downloads hold one slot from each pool,
// so total concurrency never exceeds the task limit even when downloads
// run alongside crawl-only tasks. A global pacing clock enforces a
// minimum interval between the start of any two tasks system-wide.
//
// Design decision: The nesting is implemented as two independent counted
// semaphores acquired in a fixed order (task, then download) and released
// in reverse, not as inheritance between two limiter types. This makes
// the no-deadlock argument local: the download pool is never larger than
// the task pool, and nothing acquires them in the opposite order.
package limiter
