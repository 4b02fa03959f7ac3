package config

import (
	"time"

	"github.com/yndnr/tradegate-go/internal/storage"
)

// Default configuration values.
const (
	DefaultHTTPAddr        = "127.0.0.1:8000"
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxBodyBytes    = 1 << 20

	DefaultTokenTTL    = 60 * time.Minute
	DefaultBcryptCost  = 12
	DefaultVaultCipher = "aes-256-cbc"

	DefaultWindow        = 60 * time.Second
	DefaultMaxRequests   = 100
	DefaultMaxUserAgent  = 500
	DefaultSweepInterval = time.Minute

	DefaultDataDir    = "/var/lib/tradegate/data"
	DefaultSQLitePath = "/var/lib/tradegate/tradegate.db"

	DefaultMetricsPath = "/metrics"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Storage drivers.
const (
	DriverBadger = storage.DriverBadger
	DriverSQLite = storage.DriverSQLite
	DriverMemory = storage.DriverMemory
)

// State and event backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr:            DefaultHTTPAddr,
				ReadTimeout:     DefaultReadTimeout,
				WriteTimeout:    DefaultWriteTimeout,
				ShutdownTimeout: DefaultShutdownTimeout,
				MaxBodyBytes:    DefaultMaxBodyBytes,
			},
		},
		Security: SecuritySection{
			TokenTTL:    DefaultTokenTTL,
			BcryptCost:  DefaultBcryptCost,
			VaultCipher: DefaultVaultCipher,
		},
		Defense: DefenseSection{
			Window:        DefaultWindow,
			MaxRequests:   DefaultMaxRequests,
			MaxUserAgent:  DefaultMaxUserAgent,
			Backend:       BackendMemory,
			SweepInterval: DefaultSweepInterval,
		},
		Storage: StorageSection{
			Driver:     DriverBadger,
			DataDir:    DefaultDataDir,
			SQLitePath: DefaultSQLitePath,
		},
		Events: EventsSection{
			Backend: BackendMemory,
		},
		Metrics: MetricsSection{
			Enabled: true,
			Path:    DefaultMetricsPath,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
