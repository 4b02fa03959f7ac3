package config

import "time"

// ServerConfig is the root configuration for tradegate-server.
type ServerConfig struct {
	Server   ServerSection   `koanf:"server"`
	Security SecuritySection `koanf:"security"`
	Defense  DefenseSection  `koanf:"defense"`
	Webhook  WebhookSection  `koanf:"webhook"`
	Storage  StorageSection  `koanf:"storage"`
	Redis    RedisSection    `koanf:"redis"`
	Events   EventsSection   `koanf:"events"`
	Metrics  MetricsSection  `koanf:"metrics"`
	Log      LogSection      `koanf:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	HTTP HTTPConfig `koanf:"http"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr            string        `koanf:"addr"`
	TLSCertFile     string        `koanf:"tls_cert_file"`
	TLSKeyFile      string        `koanf:"tls_key_file"`
	TLSClientCAFile string        `koanf:"tls_client_ca_file"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	MaxBodyBytes    int64         `koanf:"max_body_bytes"`
}

// SecuritySection configures authentication, the credential vault and
// client identification.
type SecuritySection struct {
	// JWTSecret signs session tokens. At least 32 bytes.
	JWTSecret  string        `koanf:"jwt_secret"`
	TokenTTL   time.Duration `koanf:"token_ttl"`
	BcryptCost int           `koanf:"bcrypt_cost"`

	// VaultKey is the 32-byte credential vault key, base64 or hex.
	VaultKey    string `koanf:"vault_key"`
	VaultCipher string `koanf:"vault_cipher"`

	// CryptoConcurrency bounds simultaneous bcrypt and vault operations.
	// Zero means GOMAXPROCS.
	CryptoConcurrency int `koanf:"crypto_concurrency"`

	// TrustProxyHeaders uses X-Forwarded-For / X-Real-IP as the client
	// identity. Enable only behind a proxy that overwrites them.
	TrustProxyHeaders bool     `koanf:"trust_proxy_headers"`
	CORSOrigins       []string `koanf:"cors_origins"`
}

// DefenseSection configures the request defense pipeline.
type DefenseSection struct {
	Window        time.Duration `koanf:"window"`
	MaxRequests   int           `koanf:"max_requests"`
	MaxUserAgent  int           `koanf:"max_user_agent"`
	BlockTTL      time.Duration `koanf:"block_ttl"`
	Backend       string        `koanf:"backend"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// WebhookSection configures the TradingView webhook.
type WebhookSection struct {
	Secret        string `koanf:"secret"`
	AllowUnsigned bool   `koanf:"allow_unsigned"`
}

// StorageSection configures persistence.
type StorageSection struct {
	Driver     string `koanf:"driver"`
	DataDir    string `koanf:"data_dir"`
	SQLitePath string `koanf:"sqlite_path"`
}

// RedisSection configures the shared Redis connection.
type RedisSection struct {
	URL string `koanf:"url"`
}

// EventsSection configures the event bus.
type EventsSection struct {
	Backend       string `koanf:"backend"`
	ConsumerGroup string `koanf:"consumer_group"`
}

// MetricsSection configures Prometheus exposition.
type MetricsSection struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
