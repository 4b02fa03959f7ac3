// Package main provides the entry point for tradegate-server.
//
// The server is the TradeGate security gateway. It provides:
//
//   - the HTTP API for users, exchange credentials, trading and webhooks
//   - the request defense pipeline in front of every route
//   - Prometheus metrics and structured audit logs
//
// Usage:
//
//	tradegate-server [flags]
//	tradegate-server -config /etc/tradegate/config.yaml -env-file .env
//
// The server loads configuration, initializes storage, state and event
// backends, then serves until SIGINT or SIGTERM.
package main
