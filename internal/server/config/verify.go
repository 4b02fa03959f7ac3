package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/yndnr/tradegate-go/internal/core/authn"
	"github.com/yndnr/tradegate-go/internal/telemetry/logger"
	"github.com/yndnr/tradegate-go/pkg/crypto/vault"
)

// Verify validates the configuration. Security problems are fatal at
// startup so a misconfigured gateway never serves traffic.
func Verify(cfg *ServerConfig) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	checks := []func(*ServerConfig) error{
		verifyServer,
		verifySecurity,
		verifyDefense,
		verifyWebhook,
		verifyStorage,
		verifyEvents,
		verifyLog,
	}
	for _, check := range checks {
		if err := check(cfg); err != nil {
			return err
		}
	}
	return nil
}

func verifyServer(cfg *ServerConfig) error {
	h := cfg.Server.HTTP
	if _, _, err := net.SplitHostPort(h.Addr); err != nil {
		return fmt.Errorf("server.http.addr: %w", err)
	}
	if (h.TLSCertFile == "") != (h.TLSKeyFile == "") {
		return errors.New("server.http.tls_cert_file and tls_key_file must be set together")
	}
	if h.TLSClientCAFile != "" && h.TLSCertFile == "" {
		return errors.New("server.http.tls_client_ca_file requires tls_cert_file")
	}
	if h.ReadTimeout < 0 || h.WriteTimeout < 0 || h.ShutdownTimeout < 0 {
		return errors.New("server.http timeouts must not be negative")
	}
	if h.MaxBodyBytes <= 0 {
		return errors.New("server.http.max_body_bytes must be positive")
	}
	return nil
}

func verifySecurity(cfg *ServerConfig) error {
	s := cfg.Security
	if s.JWTSecret == "" {
		return errors.New("security.jwt_secret is required")
	}
	if len(s.JWTSecret) < authn.MinSecretLength {
		return fmt.Errorf("security.jwt_secret must be at least %d bytes", authn.MinSecretLength)
	}
	if s.TokenTTL <= 0 {
		return errors.New("security.token_ttl must be positive")
	}
	if _, err := vault.ParseKey(s.VaultKey); err != nil {
		return fmt.Errorf("security.vault_key: must be %d bytes (base64 or hex)", vault.KeySize)
	}
	if _, err := vault.ParseCipherType(s.VaultCipher); err != nil {
		return fmt.Errorf("security.vault_cipher: %w", err)
	}
	if s.CryptoConcurrency < 0 {
		return errors.New("security.crypto_concurrency must not be negative")
	}
	return nil
}

func verifyDefense(cfg *ServerConfig) error {
	d := cfg.Defense
	if d.Window <= 0 {
		return errors.New("defense.window must be positive")
	}
	if d.MaxRequests <= 0 {
		return errors.New("defense.max_requests must be positive")
	}
	if d.MaxUserAgent <= 0 {
		return errors.New("defense.max_user_agent must be positive")
	}
	if d.BlockTTL < 0 {
		return errors.New("defense.block_ttl must not be negative")
	}
	if d.SweepInterval <= 0 {
		return errors.New("defense.sweep_interval must be positive")
	}
	return verifyBackend("defense.backend", d.Backend, cfg.Redis.URL)
}

func verifyWebhook(cfg *ServerConfig) error {
	if cfg.Webhook.Secret == "" && !cfg.Webhook.AllowUnsigned {
		return errors.New("webhook.secret is required unless webhook.allow_unsigned is true")
	}
	return nil
}

func verifyStorage(cfg *ServerConfig) error {
	s := cfg.Storage
	switch s.Driver {
	case DriverBadger:
		if s.DataDir == "" {
			return errors.New("storage.data_dir is required for the badger driver")
		}
	case DriverSQLite:
		if s.SQLitePath == "" {
			return errors.New("storage.sqlite_path is required for the sqlite driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("storage.driver: unknown driver %q", s.Driver)
	}
	return nil
}

func verifyEvents(cfg *ServerConfig) error {
	return verifyBackend("events.backend", cfg.Events.Backend, cfg.Redis.URL)
}

func verifyLog(cfg *ServerConfig) error {
	if !logger.ValidLevel(cfg.Log.Level) {
		return fmt.Errorf("log.level: unknown level %q", cfg.Log.Level)
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "json", "text", "console":
	default:
		return fmt.Errorf("log.format: unknown format %q", cfg.Log.Format)
	}
	return nil
}

func verifyBackend(key, backend, redisURL string) error {
	switch backend {
	case BackendMemory:
		return nil
	case BackendRedis:
		if redisURL == "" {
			return fmt.Errorf("%s is redis but redis.url is empty", key)
		}
		return nil
	default:
		return fmt.Errorf("%s: unknown backend %q", key, backend)
	}
}
