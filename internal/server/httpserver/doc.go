// Package httpserver provides the HTTP/HTTPS server for TradeGate.
//
// This package wires the JSON API of package handler behind a middleware
// chain built on stdlib net/http:
//
//   - RequestID and Audit: one structured log record and one latency
//     observation per request
//   - Defense: the request defense pipeline (blocklist, rate limit, header
//     validation, injection detection) and the security response headers
//   - Authenticate and RequireAdmin: bearer token sessions
//   - CORS and MaxBody
//
// Server adds TLS and graceful shutdown.
package httpserver
