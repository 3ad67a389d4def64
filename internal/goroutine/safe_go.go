package goroutine

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/sirupsen/logrus"
)

// Logger интерфейс для логирования ошибок
type Logger interface {
	Errorf(format string, args ...interface{})
}

// RecoveryHandler обрабатывает panic в горутинах
type RecoveryHandler struct {
	logger Logger
}

// NewRecoveryHandler создает новый обработчик
func NewRecoveryHandler(logger Logger) *RecoveryHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RecoveryHandler{logger: logger}
}

// SafeGo запускает горутину с обработкой panic
func (rh *RecoveryHandler) SafeGo(fn func()) {
	go func() {
		defer rh.handlePanic("")
		fn()
	}()
}

// SafeGoTracked запускает fn(ctx) и отмечает завершение в wg,
// чтобы владелец цикла мог дождаться его в Stop.
func (rh *RecoveryHandler) SafeGoTracked(ctx context.Context, wg *sync.WaitGroup, fn func(context.Context)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer rh.handlePanic(" (tracked)")
		fn(ctx)
	}()
}

func (rh *RecoveryHandler) handlePanic(kind string) {
	if r := recover(); r != nil {
		rh.logger.Errorf("Panic in goroutine%s: %v\nStack trace:\n%s", kind, r, debug.Stack())
	}
}
