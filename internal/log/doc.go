// Package log provides logging and progress reporting for the crawl engine.
//
// Components receive a *slog.Logger through their constructors rather than
// relying on a process-wide default. The package also defines the Reporter
// interface that crawl and download tokens use to announce the start and
// completion of work, keeping terminal rendering concerns out of the engine.
//
// Design decision: We wrap the underlying slog handler in a sanitizing
// handler because the engine handles credentials (authenticator prompts,
// configured passwords) and a stray attribute must never end up in log
// output.
package log
