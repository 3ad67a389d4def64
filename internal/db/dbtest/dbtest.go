// Package dbtest поднимает временную базу SQLite со схемой для тестов.
package dbtest

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/gigmarket/internal/db"
	"github.com/ignatzorin/gigmarket/migrations"
)

// NewSQLite открывает пустую базу в t.TempDir() и применяет миграции.
func NewSQLite(t testing.TB) *sqlx.DB {
	t.Helper()

	ctx := context.Background()
	conn, err := db.NewSQLite(ctx, filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	fsys, err := migrations.For(db.DriverSQLite)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations(ctx, conn, fsys))

	return conn
}

// PostgresDSNEnv задаёт базу для интеграционных тестов на PostgreSQL.
// Без неё такие тесты пропускаются.
const PostgresDSNEnv = "GIGMARKET_TEST_POSTGRES_DSN"

// NewPostgres подключается к базе из PostgresDSNEnv и применяет миграции
// в отдельной схеме, которая удаляется после теста.
func NewPostgres(t testing.TB) *sqlx.DB {
	t.Helper()

	dsn := os.Getenv(PostgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s не задана, тест на PostgreSQL пропущен", PostgresDSNEnv)
	}

	ctx := context.Background()
	schema := "gigmarket_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	admin, err := db.NewPostgres(ctx, dsn)
	require.NoError(t, err)
	_, err = admin.ExecContext(ctx, `CREATE SCHEMA `+schema)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = admin.ExecContext(context.Background(), `DROP SCHEMA `+schema+` CASCADE`)
		_ = admin.Close()
	})

	conn, err := db.NewPostgres(ctx, withSearchPath(t, dsn, schema))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	fsys, err := migrations.For(db.DriverPostgres)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations(ctx, conn, fsys))

	return conn
}

// withSearchPath добавляет search_path к DSN в форме URL или key=value.
func withSearchPath(t testing.TB, dsn, schema string) string {
	if !strings.Contains(dsn, "://") {
		return dsn + " search_path=" + schema
	}
	u, err := url.Parse(dsn)
	require.NoError(t, err)
	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()
	return u.String()
}

// SeedProfile записывает профиль пользователя с отображаемым именем.
func SeedProfile(t testing.TB, conn *sqlx.DB, userID uuid.UUID, name string) {
	t.Helper()

	query := conn.Rebind(`INSERT INTO profiles (user_id, display_name, updated_at) VALUES (?, ?, ?)`)
	_, err := conn.ExecContext(context.Background(), query, userID, name, time.Now().UTC())
	require.NoError(t, err)
}
