package log

import "log/slog"

// Reporter announces the start and completion of a unit of crawl or
// download work. Tokens hold the returned done function and call it when
// they release their resources, so every started action is eventually
// reported finished even on cancellation.
//
// Design decision: The engine never renders progress bars itself. A
// Reporter is the seam where a terminal UI would plug in; the engine only
// guarantees balanced start/done pairs.
type Reporter interface {
	// Start reports that an action (e.g. "crawl", "download") on path has
	// begun. The returned function must be called exactly once when the
	// action finishes, successfully or not.
	Start(action, path string) (done func())
}

// SlogReporter reports progress as debug-level log records.
type SlogReporter struct {
	logger *slog.Logger
}

// NewSlogReporter creates a Reporter backed by the given logger.
// If logger is nil, slog.Default() is used.
func NewSlogReporter(logger *slog.Logger) *SlogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogReporter{logger: logger}
}

// Start implements Reporter.
func (r *SlogReporter) Start(action, path string) func() {
	r.logger.Debug("started", "action", action, "path", path)
	return func() {
		r.logger.Debug("finished", "action", action, "path", path)
	}
}

// NopReporter discards all progress reports. Useful in tests.
type NopReporter struct{}

// Start implements Reporter.
func (NopReporter) Start(_, _ string) func() {
	return func() {}
}
