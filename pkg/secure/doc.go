// Package secure provides small cryptographic helpers shared by the
// server and the CLI.
//
//   - random.go: CSPRNG-backed identifiers and key material
//   - hmac.go: hex HMAC-SHA256 signatures with constant-time verification
//
// Webhook senders sign the raw request body:
//
//	X-Signature: hex(HMAC-SHA256(secret, body))
package secure
