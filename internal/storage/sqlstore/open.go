// Package sqlstore implements the service repositories on SQLite.
//
// The schema is managed with goose migrations embedded in the binary and
// applied on Open. The pure-Go modernc.org/sqlite driver keeps the build
// free of cgo.
package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pressly/goose/v3"
	"modernc.org/sqlite" // sqlite sql.DB driver initialization
)

//go:embed migrations/*.sql
var migrations embed.FS

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

var (
	hookOnce sync.Once
	gooseMu  sync.Mutex // goose keeps package-level state
)

// Open initializes a SQLite DB connection to dbPath, creating the parent
// directory if needed, and migrates the schema to the latest version.
func Open(ctx context.Context, logger *slog.Logger, dbPath string) (*sql.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if dbPath != MemoryPath {
		if _, err := os.Stat(dbPath); err != nil {
			const userOnlyDirPerms = 0o700
			if err = os.MkdirAll(filepath.Dir(dbPath), userOnlyDirPerms); err != nil {
				return nil, fmt.Errorf("failed to create db parent directory: %w", err)
			}
		}
	}

	dsn := dbPath
	if strings.ContainsRune(dsn, '?') {
		dsn += "&"
	} else {
		dsn += "?"
	}
	dsn += "_time_format=sqlite"

	hookOnce.Do(func() {
		sqlite.RegisterConnectionHook(func(conn sqlite.ExecQuerierContext, _ string) error {
			const initSQL = `
			pragma journal_mode = WAL;
			pragma synchronous = normal;
			pragma foreign_keys = on;
			pragma temp_store = memory;
			`
			_, err := conn.ExecContext(context.Background(), initSQL, nil)
			return err
		})
	})

	handle, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create DB handler: %w", err)
	} else if err = handle.PingContext(ctx); err != nil {
		handle.Close()
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	// A single connection serializes writes and keeps :memory: databases alive.
	handle.SetMaxOpenConns(1)
	handle.SetConnMaxLifetime(0)

	if err := migrate(ctx, logger.With(slog.String("db", dbPath)), handle); err != nil {
		handle.Close()
		return nil, err
	}
	return handle, nil
}

func migrate(ctx context.Context, logger *slog.Logger, handle *sql.DB) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, handle, "migrations"); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

// Version returns the current schema version.
func Version(ctx context.Context, handle *sql.DB) (int64, error) {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return 0, err
	}
	return goose.GetDBVersionContext(ctx, handle)
}
