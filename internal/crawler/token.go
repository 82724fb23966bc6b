package crawler

import (
	"context"
	"fmt"

	"github.com/spiegelsync/spiegel/internal/limiter"
	"github.com/spiegelsync/spiegel/internal/output"
)

// tokenState tracks a token's position in its lifecycle.
type tokenState int

const (
	// tokenIdle means the token holds no resources. Fresh tokens and
	// released tokens are idle; an idle token may be acquired.
	tokenIdle tokenState = iota

	// tokenActive means the token holds its resources. Acquiring an
	// active token is a usage error.
	tokenActive
)

// CrawlToken is the scoped handle for one approved crawl operation. It
// bundles a task slot from the Limiter with a progress report; Acquire
// takes both, Release returns them in reverse order, unconditionally.
//
// A token may be reused sequentially (acquire, release, acquire again)
// but rejects re-entry while active.
type CrawlToken struct {
	crawler *Crawler
	path    string

	state        tokenState
	releaseSlot  limiter.ReleaseFunc
	doneProgress func()
}

// Path returns the path the token was issued for.
func (t *CrawlToken) Path() string {
	return t.path
}

// Acquire blocks until a task slot is admitted, then starts progress
// reporting. On error the token holds nothing.
func (t *CrawlToken) Acquire(ctx context.Context) error {
	if t.state == tokenActive {
		return fmt.Errorf("%w: crawl %s", ErrTokenActive, t.path)
	}

	release, err := t.crawler.limiter.AcquireTask(ctx)
	if err != nil {
		return err
	}

	t.releaseSlot = release
	t.doneProgress = t.crawler.reporter.Start("crawl", t.path)
	t.state = tokenActive
	return nil
}

// Release returns all held resources in reverse acquisition order. It
// is a no-op on an idle token, so deferred releases are always safe.
func (t *CrawlToken) Release() {
	if t.state != tokenActive {
		return
	}
	t.state = tokenIdle

	t.doneProgress()
	t.releaseSlot()
	t.releaseSlot, t.doneProgress = nil, nil
}

// DownloadToken is the scoped handle for one approved download. On top
// of CrawlToken semantics it nests a download slot inside the task slot
// and opens the approved file sink. Acquisition order is limiter slots,
// then sink, then progress; Release unwinds in reverse and discards an
// uncommitted sink, so a cancelled download never commits partial bytes.
type DownloadToken struct {
	crawler   *Crawler
	path      string
	sinkToken *output.SinkToken

	state        tokenState
	releaseSlots limiter.ReleaseFunc
	sink         *output.FileSink
	doneProgress func()
}

// Path returns the path the token was issued for.
func (t *DownloadToken) Path() string {
	return t.path
}

// Acquire blocks until task and download slots are admitted, then opens
// the sink. The returned sink is valid until Release.
//
// The download consumes a task slot of its own. A goroutine still
// holding a CrawlToken must release it first when the task pool has no
// headroom, or concurrent branches can deadlock waiting on each other's
// slots.
func (t *DownloadToken) Acquire(ctx context.Context) (*output.FileSink, error) {
	if t.state == tokenActive {
		return nil, fmt.Errorf("%w: download %s", ErrTokenActive, t.path)
	}

	release, err := t.crawler.limiter.AcquireDownload(ctx)
	if err != nil {
		return nil, err
	}

	sink, err := t.sinkToken.Open()
	if err != nil {
		release()
		return nil, err
	}

	t.releaseSlots = release
	t.sink = sink
	t.doneProgress = t.crawler.reporter.Start("download", t.path)
	t.state = tokenActive
	return sink, nil
}

// Release unwinds in reverse acquisition order: progress, sink, slots.
// If the sink was not committed its staged bytes are discarded; the
// destination is never left partially written.
func (t *DownloadToken) Release() {
	if t.state != tokenActive {
		return
	}
	t.state = tokenIdle

	t.doneProgress()
	t.sink.Abort()
	t.releaseSlots()
	t.releaseSlots, t.sink, t.doneProgress = nil, nil, nil
}
