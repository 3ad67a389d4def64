package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/gigmarket/internal/domain/entity"
	"github.com/ignatzorin/gigmarket/internal/domain/repository"
	"github.com/ignatzorin/gigmarket/internal/goroutine"
)

// Emitter принимает записи outbox, которые доставляет relay.
type Emitter interface {
	Emit(ctx context.Context, recipientID uuid.UUID, payload entity.NotificationPayload) (*entity.Notification, error)
}

type RelayConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
}

// Relay переносит записи outbox в ящики получателей.
// Сразу после коммита вызывается Deliver, всё недоставленное подбирает фоновый цикл.
type Relay struct {
	outbox   repository.OutboxRepository
	emitter  Emitter
	log      logrus.FieldLogger
	cfg      RelayConfig
	recovery *goroutine.RecoveryHandler
	now      func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewRelay(outbox repository.OutboxRepository, emitter Emitter, log logrus.FieldLogger, cfg RelayConfig) *Relay {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 8
	}
	return &Relay{
		outbox:   outbox,
		emitter:  emitter,
		log:      log,
		cfg:      cfg,
		recovery: goroutine.NewRecoveryHandler(log),
		now:      func() time.Time { return time.Now().UTC() },
		stop:     make(chan struct{}),
	}
}

// BackoffDuration возвращает паузу перед попыткой номер attempt: 2^attempt секунд, не больше 5 минут.
func BackoffDuration(attempt int) time.Duration {
	if attempt <= 0 {
		return time.Second
	}
	if attempt > 16 {
		return 5 * time.Minute
	}
	d := time.Duration(1<<uint(attempt)) * time.Second
	if d > 5*time.Minute {
		return 5 * time.Minute
	}
	return d
}

// Deliver пытается доставить записи немедленно. Ошибки только логируются:
// изменение состояния уже зафиксировано, запись дождётся фонового цикла.
func (r *Relay) Deliver(ctx context.Context, entries []*entity.OutboxEntry) {
	for _, e := range entries {
		r.deliverOne(ctx, e)
	}
}

// RunOnce обрабатывает одну пачку просроченных записей и возвращает их число.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	due, err := r.outbox.FetchDue(ctx, r.now(), r.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	for _, e := range due {
		r.deliverOne(ctx, e)
	}
	return len(due), nil
}

func (r *Relay) Start(ctx context.Context) {
	r.recovery.SafeGoTracked(ctx, &r.wg, r.loop)
}

// Stop останавливает цикл и ждёт его завершения. Повторный вызов безопасен.
func (r *Relay) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
	r.wg.Wait()
}

func (r *Relay) loop(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			r.log.Info("relay уведомлений остановлен")
			return
		case <-ctx.Done():
			r.log.Info("контекст отменён, relay уведомлений завершает работу")
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil {
				r.log.WithError(err).Error("не удалось прочитать outbox")
			}
		}
	}
}

func (r *Relay) deliverOne(ctx context.Context, e *entity.OutboxEntry) {
	fields := logrus.Fields{
		"outbox_id":    e.ID,
		"recipient_id": e.RecipientID,
		"type":         e.Type,
	}

	payload, err := e.Decode()
	if err == nil {
		_, err = r.emitter.Emit(ctx, e.RecipientID, payload)
	}
	if err == nil {
		if mErr := r.outbox.MarkDelivered(ctx, e.ID, r.now()); mErr != nil {
			r.log.WithFields(fields).WithError(mErr).Error("уведомление доставлено, но outbox не обновлён")
		}
		return
	}

	attempts := e.Attempts + 1
	if attempts >= r.cfg.MaxAttempts {
		r.log.WithFields(fields).WithError(err).Error("уведомление не доставлено, попытки исчерпаны")
		if mErr := r.outbox.MarkDead(ctx, e.ID, attempts, err.Error()); mErr != nil {
			r.log.WithFields(fields).WithError(mErr).Error("не удалось перевести запись outbox в dead")
		}
		return
	}

	next := r.now().Add(BackoffDuration(attempts))
	r.log.WithFields(fields).WithError(err).WithField("next_attempt_at", next).Warn("уведомление не доставлено, повтор позже")
	if mErr := r.outbox.ScheduleRetry(ctx, e.ID, attempts, next, err.Error()); mErr != nil {
		r.log.WithFields(fields).WithError(mErr).Error("не удалось запланировать повтор уведомления")
	}
}
