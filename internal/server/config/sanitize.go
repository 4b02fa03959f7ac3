package config

import (
	"net/url"
	"strings"
)

// Sanitize returns a copy of the config with secrets masked, for logging
// the effective configuration.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	sanitized := *cfg
	sanitized.Security.CORSOrigins = append([]string(nil), cfg.Security.CORSOrigins...)

	sanitized.Security.JWTSecret = maskSecret(cfg.Security.JWTSecret)
	sanitized.Security.VaultKey = maskSecret(cfg.Security.VaultKey)
	sanitized.Webhook.Secret = maskSecret(cfg.Webhook.Secret)
	sanitized.Redis.URL = maskURL(cfg.Redis.URL)

	return &sanitized
}

// maskSecret masks a secret value for safe logging. Empty stays empty so
// the log shows the value is unset.
func maskSecret(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 4:
		return "****"
	default:
		return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
	}
}

// maskURL hides the password of a connection URL.
func maskURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return maskSecret(raw)
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "****")
	}
	return u.String()
}
