// Package main provides the entry point for tradegate-cli.
//
// The CLI covers offline key material and account tasks:
//
//   - Vault keys and credential blobs (keygen, encrypt, decrypt)
//   - Password hashes and access tokens (hash-password, token)
//   - Admin roles in the server's storage (user promote, user list)
//
// and calls a running gateway for login, status and blocklist.
//
// Usage:
//
//	tradegate-cli keygen
//	tradegate-cli --server http://localhost:8000 login --email ops@example.com
//	tradegate-cli -o json blocklist list
package main
