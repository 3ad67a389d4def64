package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/ignatzorin/gigmarket/internal/db"
	"github.com/ignatzorin/gigmarket/internal/domain/repository"
	"github.com/ignatzorin/gigmarket/internal/pkg/apperror"
)

// dialect описывает различия SQL между драйверами.
type dialect struct {
	// forUpdate добавляется к SELECT для блокировки строки.
	// SQLite сериализует запись на единственном соединении, поэтому там пусто.
	forUpdate string
}

func dialectFor(driver string) dialect {
	if driver == db.DriverPostgres {
		return dialect{forUpdate: " FOR UPDATE"}
	}
	return dialect{}
}

// WithTransaction выполняет функцию внутри транзакции с правильной обработкой ошибок.
func WithTransaction(ctx context.Context, conn *sqlx.DB, fn func(*sqlx.Tx) error) error {
	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodePersistenceFailure, "не удалось начать транзакцию")
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return wrapErr(err, "не удалось зафиксировать транзакцию")
	}

	return nil
}

// wrapErr переводит ошибку драйвера в таксономию приложения.
// Нарушение уникальности означает, что состояние уже изменил параллельный запрос.
// Прочие нарушения ограничений повтором не исправить, поэтому они не PERSISTENCE_FAILURE.
func wrapErr(err error, message string) error {
	if isUniqueViolation(err) {
		return apperror.Wrap(fmt.Errorf("%w: %v", repository.ErrUniqueViolation, err), apperror.ErrCodeInvalidState, message)
	}
	if isConstraintViolation(err) {
		return apperror.Wrap(err, apperror.ErrCodeValidation, message+": данные нарушают ограничения хранилища")
	}
	return apperror.Wrap(err, apperror.ErrCodePersistenceFailure, message)
}

// isConstraintViolation: CHECK, NOT NULL и внешние ключи.
func isConstraintViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23514", "23502", "23503":
			return true
		}
		return false
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_CHECK, sqlite3.SQLITE_CONSTRAINT_NOTNULL, sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			msg := liteErr.Error()
			return strings.Contains(msg, "CHECK constraint failed") ||
				strings.Contains(msg, "NOT NULL constraint failed") ||
				strings.Contains(msg, "FOREIGN KEY constraint failed")
		}
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			return strings.Contains(liteErr.Error(), "UNIQUE constraint failed")
		}
	}
	return false
}
