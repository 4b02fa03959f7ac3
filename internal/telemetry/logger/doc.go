// Package logger provides structured logging for TradeGate.
//
//   - logger.go: slog handler construction and runtime level control
//   - context.go: context propagation of the logger, request ID and user ID
//   - redact.go: masking of bearer tokens, JWTs and secret-bearing fields
//
// Handlers emit JSON by default. Attribute values are passed through the
// redactor before they reach the writer, so plaintext API secrets and
// session tokens never appear in output.
package logger
