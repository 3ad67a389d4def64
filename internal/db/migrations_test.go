package db_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/gigmarket/internal/db"
	"github.com/ignatzorin/gigmarket/internal/db/dbtest"
	"github.com/ignatzorin/gigmarket/migrations"
)

func TestRunMigrations_AppliesOnce(t *testing.T) {
	conn := dbtest.NewSQLite(t)
	ctx := context.Background()

	fsys, err := migrations.For(db.DriverSQLite)
	require.NoError(t, err)

	// повторный запуск ничего не меняет
	require.NoError(t, db.RunMigrations(ctx, conn, fsys))

	var applied int
	require.NoError(t, conn.GetContext(ctx, &applied, `SELECT COUNT(*) FROM schema_migrations`))
	assert.Equal(t, 1, applied)

	var tables int
	require.NoError(t, conn.GetContext(ctx, &tables,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('gigs', 'proposals', 'contracts', 'milestones', 'escrow_transactions', 'notifications', 'notification_outbox')`))
	assert.Equal(t, 7, tables)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := db.Open(context.Background(), "mysql", "", "")
	assert.Error(t, err)
}

func TestNewSQLite_Pragmas(t *testing.T) {
	conn := dbtest.NewSQLite(t)
	ctx := context.Background()

	var mode string
	require.NoError(t, conn.GetContext(ctx, &mode, `PRAGMA journal_mode`))
	assert.Equal(t, "wal", mode)

	var fk int
	require.NoError(t, conn.GetContext(ctx, &fk, `PRAGMA foreign_keys`))
	assert.Equal(t, 1, fk)
}
