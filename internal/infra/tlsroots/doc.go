// Package tlsroots manages the HTTP listener's TLS material.
//
//   - roots.go: client CA pools for mutual TLS and the server tls.Config
//   - watcher.go: certificate hot-reload via fsnotify, with expiry warnings
package tlsroots
