// Package logger provides structured logging for trayctl.
//
// It wraps log/slog behind a small Logger interface:
//
//   - logger.go: handler construction, levels, the process-wide default
//   - context.go: logger and run ID propagation through context.Context
//   - redact.go: masking of user names, host names and profile paths
//
// trayctl writes logs to stderr so stdout stays clean for command output.
// The CLI default level is warn; --diagnostic switches to debug.
package logger
