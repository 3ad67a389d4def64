// Package txretry повторяет транзакционную работу после сбоя хранилища.
package txretry

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/gigmarket/internal/pkg/apperror"
)

// Do выполняет fn и повторяет её ровно один раз, если ошибка PERSISTENCE_FAILURE.
// Бизнес-ошибки возвращаются сразу.
func Do(ctx context.Context, log logrus.FieldLogger, op string, fn func(ctx context.Context) error) error {
	err := fn(ctx)
	if err == nil || !apperror.IsPersistenceFailure(err) {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"operation": op,
		"error":     err.Error(),
	}).Warn("сбой хранилища, повторяем операцию")

	return fn(ctx)
}
