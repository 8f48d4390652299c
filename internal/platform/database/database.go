// Package database opens the Postgres connection pool shared by the stores,
// the audit sink and the migration runner.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/R3E-Network/farm_backoffice/internal/config"
)

const (
	driverName  = "postgres"
	pingTimeout = 5 * time.Second
)

// Open connects to the configured database and verifies it answers a ping.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database dsn not configured")
	}
	raw, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db, err := Connect(ctx, raw, cfg)
	if err != nil {
		raw.Close()
		return nil, err
	}
	return db, nil
}

// Connect applies pool settings to an already opened handle and pings it.
func Connect(ctx context.Context, raw *sql.DB, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	if cfg.MaxOpenConns > 0 {
		raw.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		raw.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		raw.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := raw.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return sqlx.NewDb(raw, driverName), nil
}
