package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/tradegate-go/internal/core/service"
	"github.com/yndnr/tradegate-go/internal/storage/memory"
	"github.com/yndnr/tradegate-go/internal/storage/sqlstore"
)

// Repository drivers.
const (
	DriverBadger = "badger"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// OpenConfig selects and configures a repository driver.
type OpenConfig struct {
	// Driver is one of DriverBadger, DriverSQLite or DriverMemory.
	Driver string

	// DataDir is the Badger directory.
	DataDir string

	// SQLitePath is the SQLite database file.
	SQLitePath string

	// Registerer receives Badger gauges (optional).
	Registerer prometheus.Registerer

	// Logger for storage events.
	Logger *slog.Logger
}

// Open opens the repository for cfg.Driver. The caller must Close it.
func Open(ctx context.Context, cfg OpenConfig) (service.Repository, error) {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	switch cfg.Driver {
	case DriverMemory:
		log.Warn("using in-memory storage; data is lost on restart")
		return memory.New(), nil

	case DriverSQLite:
		store, err := sqlstore.New(ctx, log, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info("storage ready", "driver", DriverSQLite, "path", cfg.SQLitePath)
		return store, nil

	case DriverBadger, "":
		engine, err := NewBadgerEngine(DefaultKVConfig(cfg.DataDir), log)
		if err != nil {
			return nil, err
		}
		if cfg.Registerer != nil {
			engine.RegisterMetrics(cfg.Registerer)
		}
		log.Info("storage ready", "driver", DriverBadger, "dir", cfg.DataDir)
		return NewKVStore(engine), nil

	default:
		return nil, fmt.Errorf("storage: unknown driver %q", cfg.Driver)
	}
}
