package limiter

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Limiter configuration errors.
var (
	// ErrInvalidTaskLimit is returned when the task limit is not positive.
	ErrInvalidTaskLimit = errors.New("invalid task limit: must be greater than 0")

	// ErrInvalidDownloadLimit is returned when the download limit is not
	// positive or exceeds the task limit.
	ErrInvalidDownloadLimit = errors.New("invalid download limit: must be greater than 0 and not greater than the task limit")

	// ErrInvalidTaskDelay is returned when the inter-task delay is negative.
	ErrInvalidTaskDelay = errors.New("invalid task delay: must not be negative")
)

// ReleaseFunc returns the slots acquired by an Acquire call. It must be
// called exactly once; calling it is safe from any goroutine.
type ReleaseFunc func()

// Limiter is a bounded-concurrency admission gate with inter-task pacing.
// It is safe for concurrent use.
type Limiter struct {
	tasks     *semaphore.Weighted
	downloads *semaphore.Weighted

	// pace is the global pacing clock. With burst 1 and a refill interval
	// equal to the configured delay, two consecutive Wait calls are always
	// separated by at least that delay, regardless of which goroutine
	// acquires the slot.
	pace *rate.Limiter
}

// New creates a Limiter admitting at most taskLimit concurrent tasks, of
// which at most downloadLimit may be downloads, with at least taskDelay
// between the start of any two tasks.
func New(taskLimit, downloadLimit int, taskDelay time.Duration) (*Limiter, error) {
	if taskLimit <= 0 {
		return nil, ErrInvalidTaskLimit
	}
	if downloadLimit <= 0 || downloadLimit > taskLimit {
		return nil, ErrInvalidDownloadLimit
	}
	if taskDelay < 0 {
		return nil, ErrInvalidTaskDelay
	}

	pacing := rate.Inf
	if taskDelay > 0 {
		pacing = rate.Every(taskDelay)
	}

	return &Limiter{
		tasks:     semaphore.NewWeighted(int64(taskLimit)),
		downloads: semaphore.NewWeighted(int64(downloadLimit)),
		pace:      rate.NewLimiter(pacing, 1),
	}, nil
}

// AcquireTask blocks until a task slot is free and the pacing clock
// permits a new task, then returns a function releasing the slot.
// On cancellation no slot is held.
func (l *Limiter) AcquireTask(ctx context.Context) (ReleaseFunc, error) {
	if err := l.tasks.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	// Pacing happens while holding the slot so the recorded acquisition
	// time is the moment this task is actually admitted. A cancelled wait
	// must give the slot back.
	if err := l.pace.Wait(ctx); err != nil {
		l.tasks.Release(1)
		return nil, err
	}

	return func() { l.tasks.Release(1) }, nil
}

// AcquireDownload performs AcquireTask semantics and additionally blocks
// until a download slot is free. The returned function releases the
// download slot first, then the task slot.
func (l *Limiter) AcquireDownload(ctx context.Context) (ReleaseFunc, error) {
	releaseTask, err := l.AcquireTask(ctx)
	if err != nil {
		return nil, err
	}

	if err := l.downloads.Acquire(ctx, 1); err != nil {
		releaseTask()
		return nil, err
	}

	return func() {
		l.downloads.Release(1)
		releaseTask()
	}, nil
}
