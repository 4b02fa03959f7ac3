// Package command defines the tradegate-cli commands.
//
// Local commands (keygen, encrypt, decrypt, hash-password, token, user)
// work on key material and the server's storage directly. Remote commands
// (login, status, blocklist) call a running gateway with the bearer token
// saved by login.
package command
