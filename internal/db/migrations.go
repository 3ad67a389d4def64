package db

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// RunMigrations выполняет SQL файлы из fsys в алфавитном порядке, один раз каждый.
func RunMigrations(ctx context.Context, conn *sqlx.DB, fsys fs.FS) error {
	if err := initMigrationsTable(ctx, conn); err != nil {
		return fmt.Errorf("migrations: не удалось инициализировать таблицу миграций: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("migrations: не удалось прочитать каталог миграций: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		name := entry.Name()
		applied, err := isMigrationApplied(ctx, conn, name)
		if err != nil {
			return fmt.Errorf("migrations: не удалось проверить статус миграции %s: %w", name, err)
		}
		if applied {
			continue
		}

		if err := applyMigration(ctx, conn, fsys, name); err != nil {
			return err
		}
	}

	return nil
}

func initMigrationsTable(ctx context.Context, conn *sqlx.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name TEXT PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL
		)
	`
	_, err := conn.ExecContext(ctx, query)
	return err
}

func isMigrationApplied(ctx context.Context, conn *sqlx.DB, name string) (bool, error) {
	var count int
	query := conn.Rebind(`SELECT COUNT(*) FROM schema_migrations WHERE name = ?`)
	if err := conn.GetContext(ctx, &count, query, name); err != nil {
		return false, err
	}
	return count > 0, nil
}

func applyMigration(ctx context.Context, conn *sqlx.DB, fsys fs.FS, name string) error {
	sqlBytes, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("migrations: не удалось прочитать миграцию %s: %w", name, err)
	}

	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migrations: не удалось начать транзакцию для миграции %s: %w", name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(sqlBytes)); err != nil {
		return fmt.Errorf("migrations: не удалось выполнить миграцию %s: %w", name, err)
	}

	insert := tx.Rebind(`INSERT INTO schema_migrations (name, applied_at) VALUES (?, ?)`)
	if _, err := tx.ExecContext(ctx, insert, name, time.Now().UTC()); err != nil {
		return fmt.Errorf("migrations: не удалось отметить миграцию %s как выполненную: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migrations: не удалось зафиксировать миграцию %s: %w", name, err)
	}

	return nil
}
