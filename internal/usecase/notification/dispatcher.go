package notification

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/gigmarket/internal/domain/entity"
	"github.com/ignatzorin/gigmarket/internal/domain/repository"
	"github.com/ignatzorin/gigmarket/internal/pkg/apperror"
)

// Pusher доставляет уведомление подключённым клиентам получателя.
type Pusher interface {
	Push(recipientID uuid.UUID, n *entity.Notification)
}

type ListFilter struct {
	Limit      int
	Offset     int
	UnreadOnly bool
}

type Dispatcher struct {
	repo    repository.NotificationRepository
	schemas *SchemaSet
	pusher  Pusher
	log     logrus.FieldLogger
}

func NewDispatcher(repo repository.NotificationRepository, schemas *SchemaSet, pusher Pusher, log logrus.FieldLogger) *Dispatcher {
	return &Dispatcher{
		repo:    repo,
		schemas: schemas,
		pusher:  pusher,
		log:     log,
	}
}

// Emit сохраняет уведомление ровно один раз на (получатель, тип, субъект).
// Повтор возвращает уже существующую запись и не пушится заново.
func (d *Dispatcher) Emit(ctx context.Context, recipientID uuid.UUID, payload entity.NotificationPayload) (*entity.Notification, error) {
	n, err := entity.NewNotification(recipientID, payload)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось сериализовать уведомление")
	}
	if err := d.schemas.Validate(ctx, n.Type, raw); err != nil {
		return nil, err
	}

	inserted, err := d.repo.Insert(ctx, n)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return d.repo.FindByDedupKey(ctx, n.DedupKey())
	}

	if d.pusher != nil {
		d.pusher.Push(recipientID, n)
	}

	d.log.WithFields(logrus.Fields{
		"notification_id": n.ID,
		"recipient_id":    recipientID,
		"type":            n.Type,
	}).Debug("уведомление создано")

	return n, nil
}

func (d *Dispatcher) MarkRead(ctx context.Context, recipientID, id uuid.UUID) error {
	return d.repo.MarkRead(ctx, recipientID, id)
}

func (d *Dispatcher) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	return d.repo.MarkAllRead(ctx, recipientID)
}

func (d *Dispatcher) ListFor(ctx context.Context, recipientID uuid.UUID, filter ListFilter) ([]*entity.Notification, error) {
	return d.repo.ListByRecipient(ctx, recipientID, repository.NotificationFilter{
		Limit:      filter.Limit,
		Offset:     filter.Offset,
		UnreadOnly: filter.UnreadOnly,
	})
}

func (d *Dispatcher) CountUnread(ctx context.Context, recipientID uuid.UUID) (int, error) {
	return d.repo.CountUnread(ctx, recipientID)
}
