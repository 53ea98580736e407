package store

import (
	"context"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

func init() {
	// modernc registers as "sqlite", which sqlx does not know; it takes '?' binds
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

type DB struct {
	X      *sqlx.DB
	Driver string
}

// Open connects to sqlite (target is a file path) or postgres through pgx
// (target is a DSN). Queries are written with '?' and rebound per driver.
func Open(driver, target string) (*DB, error) {
	dsn := target
	if driver == DriverSQLite {
		// modernc sqlite uses DSN like: file:foo.db?_pragma=busy_timeout(5000)
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", target)
	}

	x, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	if driver == DriverSQLite {
		x.SetMaxOpenConns(1) // sqlite typically wants 1 writer
	} else {
		x.SetMaxOpenConns(4)
	}
	x.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := x.PingContext(ctx); err != nil {
		_ = x.Close()
		return nil, err
	}

	return &DB{X: x, Driver: driver}, nil
}

func (d *DB) Close() error {
	if d == nil || d.X == nil {
		return nil
	}
	return d.X.Close()
}
