package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/gigmarket/internal/domain/entity"
	"github.com/ignatzorin/gigmarket/internal/domain/repository"
	"github.com/ignatzorin/gigmarket/internal/domain/valueobject"
	"github.com/ignatzorin/gigmarket/internal/pkg/apperror"
)

const (
	notificationColumns = `id, recipient_id, type, subject_id, payload, is_read, created_at`
	outboxColumns       = `id, recipient_id, type, subject_id, payload, status, attempts, next_attempt_at, last_error, created_at, delivered_at`
)

type notificationRow struct {
	ID          uuid.UUID `db:"id"`
	RecipientID uuid.UUID `db:"recipient_id"`
	Type        string    `db:"type"`
	SubjectID   uuid.UUID `db:"subject_id"`
	Payload     []byte    `db:"payload"`
	IsRead      bool      `db:"is_read"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r *notificationRow) toEntity() (*entity.Notification, error) {
	t := valueobject.NotificationType(r.Type)
	payload, err := entity.DecodeNotificationPayload(t, r.Payload)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "повреждённое уведомление")
	}
	return &entity.Notification{
		ID:          r.ID,
		RecipientID: r.RecipientID,
		Type:        t,
		SubjectID:   r.SubjectID,
		Payload:     payload,
		IsRead:      r.IsRead,
		CreatedAt:   r.CreatedAt,
	}, nil
}

type NotificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Insert(ctx context.Context, n *entity.Notification) (bool, error) {
	payload, err := jsonPayload(n.Payload)
	if err != nil {
		return false, err
	}

	query := r.db.Rebind(`
		INSERT INTO notifications (id, recipient_id, type, subject_id, dedup_key, payload, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (dedup_key) DO NOTHING`)
	res, err := r.db.ExecContext(ctx, query,
		n.ID, n.RecipientID, string(n.Type), n.SubjectID, n.DedupKey(), payload, n.IsRead, n.CreatedAt,
	)
	if err != nil {
		return false, wrapErr(err, "не удалось сохранить уведомление")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, wrapErr(err, "не удалось сохранить уведомление")
	}
	return affected > 0, nil
}

func (r *NotificationRepository) FindByDedupKey(ctx context.Context, key string) (*entity.Notification, error) {
	return r.findOne(ctx, `WHERE dedup_key = ?`, key)
}

func (r *NotificationRepository) findOne(ctx context.Context, where string, arg interface{}) (*entity.Notification, error) {
	var row notificationRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT `+notificationColumns+` FROM notifications `+where), arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrNotificationNotFound
	}
	if err != nil {
		return nil, wrapErr(err, "не удалось получить уведомление")
	}
	return row.toEntity()
}

func (r *NotificationRepository) ListByRecipient(ctx context.Context, recipientID uuid.UUID, filter repository.NotificationFilter) ([]*entity.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE recipient_id = ?`
	args := []interface{}{recipientID}
	if filter.UnreadOnly {
		query += ` AND is_read = ?`
		args = append(args, false)
	}
	query += ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	args = append(args, limitOrDefault(filter.Limit), filter.Offset)

	var rows []notificationRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, wrapErr(err, "не удалось получить уведомления")
	}

	out := make([]*entity.Notification, 0, len(rows))
	for i := range rows {
		n, err := rows[i].toEntity()
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, recipientID uuid.UUID) (int, error) {
	var count int
	query := r.db.Rebind(`SELECT COUNT(*) FROM notifications WHERE recipient_id = ? AND is_read = ?`)
	if err := r.db.GetContext(ctx, &count, query, recipientID, false); err != nil {
		return 0, wrapErr(err, "не удалось посчитать уведомления")
	}
	return count, nil
}

// MarkRead отмечает уведомление получателя. Чужое уведомление неотличимо от отсутствующего.
func (r *NotificationRepository) MarkRead(ctx context.Context, recipientID, id uuid.UUID) error {
	query := r.db.Rebind(`UPDATE notifications SET is_read = ? WHERE id = ? AND recipient_id = ?`)
	res, err := r.db.ExecContext(ctx, query, true, id, recipientID)
	if err != nil {
		return wrapErr(err, "не удалось отметить уведомление")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapErr(err, "не удалось отметить уведомление")
	}
	if n == 0 {
		return apperror.ErrNotificationNotFound
	}
	return nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	query := r.db.Rebind(`UPDATE notifications SET is_read = ? WHERE recipient_id = ? AND is_read = ?`)
	res, err := r.db.ExecContext(ctx, query, true, recipientID, false)
	if err != nil {
		return 0, wrapErr(err, "не удалось отметить уведомления")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, wrapErr(err, "не удалось отметить уведомления")
	}
	return n, nil
}

type outboxRow struct {
	ID            uuid.UUID  `db:"id"`
	RecipientID   uuid.UUID  `db:"recipient_id"`
	Type          string     `db:"type"`
	SubjectID     uuid.UUID  `db:"subject_id"`
	Payload       []byte     `db:"payload"`
	Status        string     `db:"status"`
	Attempts      int        `db:"attempts"`
	NextAttemptAt time.Time  `db:"next_attempt_at"`
	LastError     *string    `db:"last_error"`
	CreatedAt     time.Time  `db:"created_at"`
	DeliveredAt   *time.Time `db:"delivered_at"`
}

func (r *outboxRow) toEntity() *entity.OutboxEntry {
	return &entity.OutboxEntry{
		ID:            r.ID,
		RecipientID:   r.RecipientID,
		Type:          valueobject.NotificationType(r.Type),
		SubjectID:     r.SubjectID,
		Payload:       r.Payload,
		Status:        entity.OutboxStatus(r.Status),
		Attempts:      r.Attempts,
		NextAttemptAt: r.NextAttemptAt,
		LastError:     r.LastError,
		CreatedAt:     r.CreatedAt,
		DeliveredAt:   r.DeliveredAt,
	}
}

type OutboxRepository struct {
	db *sqlx.DB
}

func NewOutboxRepository(db *sqlx.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

func (r *OutboxRepository) FetchDue(ctx context.Context, now time.Time, limit int) ([]*entity.OutboxEntry, error) {
	query := r.db.Rebind(`
		SELECT ` + outboxColumns + ` FROM notification_outbox
		WHERE status = ? AND next_attempt_at <= ?
		ORDER BY next_attempt_at, created_at
		LIMIT ?`)

	var rows []outboxRow
	if err := r.db.SelectContext(ctx, &rows, query, string(entity.OutboxStatusPending), now, limitOrDefault(limit)); err != nil {
		return nil, wrapErr(err, "не удалось получить очередь уведомлений")
	}

	out := make([]*entity.OutboxEntry, len(rows))
	for i := range rows {
		out[i] = rows[i].toEntity()
	}
	return out, nil
}

func (r *OutboxRepository) MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := r.db.Rebind(`UPDATE notification_outbox SET status = ?, delivered_at = ?, last_error = NULL WHERE id = ?`)
	if _, err := r.db.ExecContext(ctx, query, string(entity.OutboxStatusDelivered), at, id); err != nil {
		return wrapErr(err, "не удалось отметить доставку уведомления")
	}
	return nil
}

func (r *OutboxRepository) ScheduleRetry(ctx context.Context, id uuid.UUID, attempts int, next time.Time, lastErr string) error {
	query := r.db.Rebind(`UPDATE notification_outbox SET attempts = ?, next_attempt_at = ?, last_error = ? WHERE id = ?`)
	if _, err := r.db.ExecContext(ctx, query, attempts, next, lastErr, id); err != nil {
		return wrapErr(err, "не удалось запланировать повтор уведомления")
	}
	return nil
}

func (r *OutboxRepository) MarkDead(ctx context.Context, id uuid.UUID, attempts int, lastErr string) error {
	query := r.db.Rebind(`UPDATE notification_outbox SET status = ?, attempts = ?, last_error = ? WHERE id = ?`)
	if _, err := r.db.ExecContext(ctx, query, string(entity.OutboxStatusDead), attempts, lastErr, id); err != nil {
		return wrapErr(err, "не удалось отметить уведомление как недоставляемое")
	}
	return nil
}

const defaultListLimit = 50

func limitOrDefault(limit int) int {
	if limit <= 0 || limit > 200 {
		return defaultListLimit
	}
	return limit
}

func jsonPayload(p entity.NotificationPayload) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось сериализовать уведомление")
	}
	return string(raw), nil
}

var (
	_ repository.NotificationRepository = (*NotificationRepository)(nil)
	_ repository.OutboxRepository       = (*OutboxRepository)(nil)
)
