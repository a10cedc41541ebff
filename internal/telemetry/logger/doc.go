// Package logger provides structured logging for gridsession.
//
// It wraps log/slog:
//
//   - logger.go: construction, levels and the process-wide default
//   - context.go: request id propagation through context.Context
//   - redact.go: masking of session ids and secrets
//
// Session ids are bearer credentials for as long as the session lives, so
// every attribute whose key names a session id is masked to its first and
// last four characters before it reaches the output.
package logger
