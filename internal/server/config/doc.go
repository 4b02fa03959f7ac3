// Package config defines the tradegate-server configuration structure,
// its defaults, verification and log-safe rendering.
package config
