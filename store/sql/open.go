package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// OpenOptions control pooling for connections opened by this package. Hosts
// that already manage a bun.DB should hand it to the factory directly and
// skip these helpers.
type OpenOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	PingTimeout     time.Duration
}

func (o OpenOptions) pingTimeout() time.Duration {
	if o.PingTimeout > 0 {
		return o.PingTimeout
	}
	return 5 * time.Second
}

// Open connects with the named driver and wraps the handle in a bun.DB with
// the matching dialect.
func Open(ctx context.Context, driver string, dsn string, opts OpenOptions) (*bun.DB, error) {
	normalized := strings.TrimSpace(strings.ToLower(driver))
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlstore: dsn is required")
	}

	var db *bun.DB
	switch normalized {
	case DriverPostgres, "pg", "postgresql":
		sqlDB, err := sql.Open(DriverPostgres, dsn)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: open postgres: %w", err)
		}
		applyPool(sqlDB, opts)
		db = bun.NewDB(sqlDB, pgdialect.New())
	case DriverSQLite, "sqlite":
		sqlDB, err := sql.Open(DriverSQLite, dsn)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: open sqlite: %w", err)
		}
		if opts.MaxOpenConns == 0 {
			// shared-cache sqlite misbehaves with concurrent writers
			sqlDB.SetMaxOpenConns(1)
		}
		applyPool(sqlDB, opts)
		db = bun.NewDB(sqlDB, sqlitedialect.New())
	default:
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", driver)
	}

	pingCtx, cancel := context.WithTimeout(ctx, opts.pingTimeout())
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlstore: ping %s: %w", normalized, err)
	}
	return db, nil
}

// OpenPostgres connects to postgres and returns a bun handle ready for the
// repository factory.
func OpenPostgres(ctx context.Context, dsn string, opts OpenOptions) (*bun.DB, error) {
	return Open(ctx, DriverPostgres, dsn, opts)
}

// OpenSQLite connects to sqlite and returns a bun handle ready for the
// repository factory.
func OpenSQLite(ctx context.Context, dsn string, opts OpenOptions) (*bun.DB, error) {
	return Open(ctx, DriverSQLite, dsn, opts)
}

func applyPool(db *sql.DB, opts OpenOptions) {
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
}
