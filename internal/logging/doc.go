// Package logging assembles structured slog loggers and formatting helpers used
// across sortdir.
//
// It owns the console/JSON handlers, centralizes level and output plumbing, and
// exposes context-aware helpers so walker, relocation, and pruning code can tag
// log lines with the run identifier and the current phase. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
