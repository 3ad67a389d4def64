package notification

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/gigmarket/internal/domain/entity"
	"github.com/ignatzorin/gigmarket/internal/domain/repository"
)

// Deliverer получает записи outbox сразу после коммита.
type Deliverer interface {
	Deliver(ctx context.Context, entries []*entity.OutboxEntry)
}

// Batch собирает уведомления, поставленные в одной транзакции.
// Создаётся заново на каждую попытку транзакции.
type Batch struct {
	entries []*entity.OutboxEntry
}

func NewBatch() *Batch {
	return &Batch{}
}

// Enqueue пишет запись outbox в транзакцию tx. Уже поставленное событие пропускается.
func (b *Batch) Enqueue(ctx context.Context, tx repository.LedgerTx, recipientID uuid.UUID, payload entity.NotificationPayload) error {
	entry, err := entity.NewOutboxEntry(recipientID, payload)
	if err != nil {
		return err
	}
	inserted, err := tx.EnqueueNotification(ctx, entry)
	if err != nil {
		return err
	}
	if inserted {
		b.entries = append(b.entries, entry)
	}
	return nil
}

func (b *Batch) Entries() []*entity.OutboxEntry {
	if b == nil {
		return nil
	}
	return b.entries
}

// Flush передаёт накопленные записи доставщику.
func (b *Batch) Flush(ctx context.Context, d Deliverer) {
	if d == nil || b == nil || len(b.entries) == 0 {
		return
	}
	d.Deliver(ctx, b.entries)
}
