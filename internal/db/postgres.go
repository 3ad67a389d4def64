package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// NewPostgres создаёт подключение к PostgreSQL с заданным DSN.
func NewPostgres(ctx context.Context, dsn string) (*sqlx.DB, error) {
	conn, err := sqlx.ConnectContext(ctx, DriverPostgres, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: не удалось подключиться: %w", err)
	}

	conn.SetMaxOpenConns(50)
	conn.SetMaxIdleConns(10)
	conn.SetConnMaxLifetime(5 * time.Minute)

	return conn, nil
}

// Open подключается к хранилищу выбранного драйвера.
func Open(ctx context.Context, driver, postgresDSN, sqlitePath string) (*sqlx.DB, error) {
	switch driver {
	case DriverPostgres:
		return NewPostgres(ctx, postgresDSN)
	case DriverSQLite:
		return NewSQLite(ctx, sqlitePath)
	default:
		return nil, fmt.Errorf("db: неизвестный драйвер %q", driver)
	}
}
