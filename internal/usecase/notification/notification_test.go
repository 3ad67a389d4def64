package notification_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ignatzorin/gigmarket/internal/db/dbtest"
	"github.com/ignatzorin/gigmarket/internal/domain/entity"
	"github.com/ignatzorin/gigmarket/internal/infrastructure/persistence"
	"github.com/ignatzorin/gigmarket/internal/pkg/apperror"
	"github.com/ignatzorin/gigmarket/internal/usecase/notification"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingPusher struct {
	mu     sync.Mutex
	pushed []*entity.Notification
}

func (p *recordingPusher) Push(_ uuid.UUID, n *entity.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushed = append(p.pushed, n)
}

func (p *recordingPusher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pushed)
}

func newDispatcher(t *testing.T, pusher notification.Pusher) *notification.Dispatcher {
	t.Helper()
	schemas, err := notification.LoadSchemas()
	require.NoError(t, err)
	log, _ := test.NewNullLogger()
	return notification.NewDispatcher(persistence.NewNotificationRepository(dbtest.NewSQLite(t)), schemas, pusher, log)
}

func TestDispatcher_EmitIsExactlyOnce(t *testing.T) {
	pusher := &recordingPusher{}
	d := newDispatcher(t, pusher)
	ctx := context.Background()

	recipient := uuid.New()
	payload := entity.ProposalAcceptedPayload{
		GigID:      uuid.New(),
		GigTitle:   "Сведение EP",
		ProposalID: uuid.New(),
		ContractID: uuid.New(),
		ClientID:   uuid.New(),
		ClientName: "Мария",
	}

	first, err := d.Emit(ctx, recipient, payload)
	require.NoError(t, err)
	second, err := d.Emit(ctx, recipient, payload)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, pusher.count())

	list, err := d.ListFor(ctx, recipient, notification.ListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].IsRead)
	assert.Equal(t, payload, list[0].Payload)

	unread, err := d.CountUnread(ctx, recipient)
	require.NoError(t, err)
	assert.Equal(t, 1, unread)

	require.NoError(t, d.MarkRead(ctx, recipient, first.ID))
	unread, err = d.CountUnread(ctx, recipient)
	require.NoError(t, err)
	assert.Zero(t, unread)
}

func TestDispatcher_SameSubjectDifferentRecipients(t *testing.T) {
	d := newDispatcher(t, nil)
	ctx := context.Background()

	payload := entity.EscrowDisputedPayload{
		EscrowID:    uuid.New(),
		ContractID:  uuid.New(),
		GigID:       uuid.New(),
		Reason:      "работа не сдана",
		InitiatorID: uuid.New(),
	}
	a, err := d.Emit(ctx, uuid.New(), payload)
	require.NoError(t, err)
	b, err := d.Emit(ctx, uuid.New(), payload)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestDispatcher_RejectsPayloadOutsideSchema(t *testing.T) {
	d := newDispatcher(t, nil)

	_, err := d.Emit(context.Background(), uuid.New(), entity.ProposalRejectedPayload{
		GigID:      uuid.New(),
		ProposalID: uuid.New(),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestSchemaSet_AcceptsAllVariants(t *testing.T) {
	schemas, err := notification.LoadSchemas()
	require.NoError(t, err)
	log, _ := test.NewNullLogger()
	d := notification.NewDispatcher(persistence.NewNotificationRepository(dbtest.NewSQLite(t)), schemas, nil, log)

	id := uuid.New
	payloads := []entity.NotificationPayload{
		entity.ProposalAcceptedPayload{GigID: id(), GigTitle: "a", ProposalID: id(), ContractID: id(), ClientID: id()},
		entity.ProposalRejectedPayload{GigID: id(), GigTitle: "a", ProposalID: id()},
		entity.ConnectionRequestPayload{RequesterID: id(), RequesterName: "Олег"},
		entity.EscrowFundedPayload{EscrowID: id(), ContractID: id(), GigID: id(), Amount: decimal.RequireFromString("900.50")},
		entity.EscrowReleasedPayload{EscrowID: id(), ContractID: id(), GigID: id(), Amount: decimal.NewFromInt(540)},
		entity.EscrowDisputedPayload{EscrowID: id(), ContractID: id(), GigID: id(), Reason: "нет ответа", InitiatorID: id()},
		entity.EscrowRefundedPayload{EscrowID: id(), ContractID: id(), GigID: id(), Amount: decimal.Zero},
		entity.MilestoneApprovedPayload{MilestoneID: id(), ContractID: id(), Description: "демо", PaymentPercent: decimal.NewFromInt(60)},
	}
	for _, p := range payloads {
		_, err := d.Emit(context.Background(), uuid.New(), p)
		assert.NoError(t, err, string(p.NotificationType()))
	}
}

type mockOutbox struct {
	mock.Mock
}

func (m *mockOutbox) FetchDue(ctx context.Context, now time.Time, limit int) ([]*entity.OutboxEntry, error) {
	args := m.Called(ctx, now, limit)
	entries, _ := args.Get(0).([]*entity.OutboxEntry)
	return entries, args.Error(1)
}

func (m *mockOutbox) MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *mockOutbox) ScheduleRetry(ctx context.Context, id uuid.UUID, attempts int, next time.Time, lastErr string) error {
	return m.Called(ctx, id, attempts, next, lastErr).Error(0)
}

func (m *mockOutbox) MarkDead(ctx context.Context, id uuid.UUID, attempts int, lastErr string) error {
	return m.Called(ctx, id, attempts, lastErr).Error(0)
}

type mockEmitter struct {
	mock.Mock
}

func (m *mockEmitter) Emit(ctx context.Context, recipientID uuid.UUID, payload entity.NotificationPayload) (*entity.Notification, error) {
	args := m.Called(ctx, recipientID, payload)
	n, _ := args.Get(0).(*entity.Notification)
	return n, args.Error(1)
}

func outboxEntry(t *testing.T, attempts int) *entity.OutboxEntry {
	t.Helper()
	e, err := entity.NewOutboxEntry(uuid.New(), entity.ProposalRejectedPayload{
		GigID: uuid.New(), GigTitle: "Бит", ProposalID: uuid.New(),
	})
	require.NoError(t, err)
	e.Attempts = attempts
	return e
}

func TestRelay_DeliverMarksDelivered(t *testing.T) {
	log, _ := test.NewNullLogger()
	outbox, emitter := &mockOutbox{}, &mockEmitter{}
	entry := outboxEntry(t, 0)
	ctx := context.Background()

	emitter.On("Emit", ctx, entry.RecipientID, mock.Anything).Return(&entity.Notification{ID: uuid.New()}, nil).Once()
	outbox.On("MarkDelivered", ctx, entry.ID, mock.Anything).Return(nil).Once()

	relay := notification.NewRelay(outbox, emitter, log, notification.RelayConfig{MaxAttempts: 3})
	relay.Deliver(ctx, []*entity.OutboxEntry{entry})

	emitter.AssertExpectations(t)
	outbox.AssertExpectations(t)
}

func TestRelay_FailureSchedulesRetryWithBackoff(t *testing.T) {
	log, hook := test.NewNullLogger()
	outbox, emitter := &mockOutbox{}, &mockEmitter{}
	entry := outboxEntry(t, 1)
	ctx := context.Background()

	emitter.On("Emit", ctx, entry.RecipientID, mock.Anything).Return(nil, errors.New("inbox недоступен")).Once()
	outbox.On("ScheduleRetry", ctx, entry.ID, 2, mock.MatchedBy(func(next time.Time) bool {
		wait := time.Until(next)
		return wait > 3*time.Second && wait <= 4*time.Second
	}), "inbox недоступен").Return(nil).Once()

	relay := notification.NewRelay(outbox, emitter, log, notification.RelayConfig{MaxAttempts: 5})
	relay.Deliver(ctx, []*entity.OutboxEntry{entry})

	outbox.AssertExpectations(t)
	outbox.AssertNotCalled(t, "MarkDelivered", mock.Anything, mock.Anything, mock.Anything)
	assert.NotEmpty(t, hook.AllEntries())
}

func TestRelay_ExhaustedAttemptsGoDead(t *testing.T) {
	log, _ := test.NewNullLogger()
	outbox, emitter := &mockOutbox{}, &mockEmitter{}
	entry := outboxEntry(t, 2)
	ctx := context.Background()

	emitter.On("Emit", ctx, entry.RecipientID, mock.Anything).Return(nil, errors.New("inbox недоступен")).Once()
	outbox.On("MarkDead", ctx, entry.ID, 3, "inbox недоступен").Return(nil).Once()

	relay := notification.NewRelay(outbox, emitter, log, notification.RelayConfig{MaxAttempts: 3})
	relay.Deliver(ctx, []*entity.OutboxEntry{entry})

	outbox.AssertExpectations(t)
}

func TestRelay_LoopDrainsOutboxAndStops(t *testing.T) {
	log, _ := test.NewNullLogger()
	outbox, emitter := &mockOutbox{}, &mockEmitter{}
	entry := outboxEntry(t, 0)

	delivered := make(chan struct{})
	var once sync.Once
	outbox.On("FetchDue", mock.Anything, mock.Anything, 10).Return([]*entity.OutboxEntry{entry}, nil).Once()
	outbox.On("FetchDue", mock.Anything, mock.Anything, 10).Return(nil, nil)
	emitter.On("Emit", mock.Anything, entry.RecipientID, mock.Anything).Return(&entity.Notification{ID: uuid.New()}, nil).Once()
	outbox.On("MarkDelivered", mock.Anything, entry.ID, mock.Anything).Return(nil).Run(func(mock.Arguments) {
		once.Do(func() { close(delivered) })
	}).Once()

	relay := notification.NewRelay(outbox, emitter, log, notification.RelayConfig{
		PollInterval: 10 * time.Millisecond,
		BatchSize:    10,
		MaxAttempts:  3,
	})
	relay.Start(context.Background())

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("relay не доставил запись")
	}
	relay.Stop()
	relay.Stop()

	emitter.AssertExpectations(t)
}

func TestBackoffDuration(t *testing.T) {
	assert.Equal(t, time.Second, notification.BackoffDuration(0))
	assert.Equal(t, 2*time.Second, notification.BackoffDuration(1))
	assert.Equal(t, 8*time.Second, notification.BackoffDuration(3))
	assert.Equal(t, 5*time.Minute, notification.BackoffDuration(9))
	assert.Equal(t, 5*time.Minute, notification.BackoffDuration(64))
}
