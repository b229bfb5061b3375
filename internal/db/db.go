package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// goqu dialect names.
const (
	DialectSQLite   = "sqlite3"
	DialectPostgres = "postgres"
)

// DB is a connection pool plus the SQL dialect its queries must be built in.
type DB struct {
	*sql.DB
	Dialect string
}

// Builder returns a goqu query builder for the connection's dialect.
func (d *DB) Builder() goqu.DialectWrapper {
	return goqu.Dialect(d.Dialect)
}

// PoolOptions tunes the connection pool. Zero values keep driver defaults.
type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open connects to the database named by dsn. postgres:// and postgresql://
// URLs use PostgreSQL through pgx; anything else is a SQLite file path, with
// an optional sqlite:// prefix.
func Open(ctx context.Context, dsn string, pool PoolOptions) (*DB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("database url is empty")
	}

	var (
		d   *DB
		err error
	)
	if isPostgres(dsn) {
		d, err = openPostgres(dsn)
	} else {
		d, err = openSQLite(strings.TrimPrefix(dsn, "sqlite://"))
	}
	if err != nil {
		return nil, err
	}

	if pool.MaxOpenConns > 0 {
		d.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		d.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		d.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := d.PingContext(pingCtx); err != nil {
		d.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return d, nil
}

func isPostgres(dsn string) bool {
	lower := strings.ToLower(dsn)
	return strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://")
}

func openPostgres(dsn string) (*DB, error) {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return &DB{DB: conn, Dialect: DialectPostgres}, nil
}

// openSQLite opens a SQLite database. Pragmas go in the DSN so that every
// pooled connection gets them, not only the first.
func openSQLite(path string) (*DB, error) {
	dsn := "file:" + path + "?" + strings.Join([]string{
		"_pragma=journal_mode(WAL)",
		"_pragma=busy_timeout(5000)",
		"_pragma=synchronous(NORMAL)",
	}, "&")

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return &DB{DB: conn, Dialect: DialectSQLite}, nil
}
