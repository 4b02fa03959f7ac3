// Package connection is the tradegate-cli HTTP client.
//
// Requests carry the bearer token from login, a tradegate-cli User-Agent
// and a JSON Content-Type on bodies, so they pass the gateway's header
// checks. Responses are unwrapped from the standard envelope; error
// envelopes become *APIError.
package connection
