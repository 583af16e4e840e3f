package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/BrandonDHaskell/portaria/internal/logging"
)

// DefaultPath is where the database lives when nothing is configured.
const DefaultPath = "./data/portaria.db"

type Config struct {
	Path string // e.g. "./data/portaria.db"
	Env  string // "dev" | "prod"
	// SkipMigrate leaves the schema alone; the caller runs MigrateReport.
	SkipMigrate bool
}

// DSN builds a modernc.org/sqlite DSN with the per-connection PRAGMAs every
// portaria connection runs with.
func DSN(path string) string {
	return fmt.Sprintf(
		"file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)",
		path,
	)
}

// Open opens (creating if needed) the database file and applies migrations
// unless cfg.SkipMigrate is set.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	if cfg.Env == "" {
		cfg.Env = "dev"
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	db, err := sql.Open("sqlite", DSN(cfg.Path))
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}

	// Single connection: all writes are serialized through Worker anyway and
	// SQLite does not benefit from a pool here.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	if !cfg.SkipMigrate {
		if err := Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	logging.Debug().Str("path", cfg.Path).Str("env", cfg.Env).Msg("database open")
	return db, nil
}
