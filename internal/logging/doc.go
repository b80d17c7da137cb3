// Package logging builds the slog loggers used by the daemon and CLI.
//
// Two handler formats are supported: a compact console format for terminals
// (color-aware via isatty) and line-delimited JSON for log shippers. Helper
// constructors provide typed attributes, component-scoped loggers, and a no-op
// logger for tests.
package logging
