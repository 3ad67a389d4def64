package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// NewSQLite открывает файловую базу SQLite для локального запуска и тестов.
// Одно соединение: запись сериализуется самим пулом.
func NewSQLite(ctx context.Context, path string) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	conn, err := sqlx.ConnectContext(ctx, DriverSQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: не удалось открыть %s: %w", path, err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	return conn, nil
}
