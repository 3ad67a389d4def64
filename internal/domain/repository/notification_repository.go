package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/gigmarket/internal/domain/entity"
)

type NotificationFilter struct {
	Limit      int
	Offset     int
	UnreadOnly bool
}

type NotificationRepository interface {
	// Insert возвращает false, если уведомление с тем же ключом дедупликации уже есть.
	Insert(ctx context.Context, notification *entity.Notification) (bool, error)
	FindByDedupKey(ctx context.Context, key string) (*entity.Notification, error)
	ListByRecipient(ctx context.Context, recipientID uuid.UUID, filter NotificationFilter) ([]*entity.Notification, error)
	CountUnread(ctx context.Context, recipientID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, recipientID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error)
}

type OutboxRepository interface {
	FetchDue(ctx context.Context, now time.Time, limit int) ([]*entity.OutboxEntry, error)
	MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) error
	ScheduleRetry(ctx context.Context, id uuid.UUID, attempts int, next time.Time, lastErr string) error
	MarkDead(ctx context.Context, id uuid.UUID, attempts int, lastErr string) error
}
