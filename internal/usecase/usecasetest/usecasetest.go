// Package usecasetest собирает сценарии use case поверх временной SQLite.
package usecasetest

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/gigmarket/internal/db/dbtest"
	"github.com/ignatzorin/gigmarket/internal/domain/entity"
	"github.com/ignatzorin/gigmarket/internal/domain/repository"
	"github.com/ignatzorin/gigmarket/internal/infrastructure/persistence"
	"github.com/ignatzorin/gigmarket/internal/usecase/notification"
)

type Env struct {
	DB            *sqlx.DB
	Store         *persistence.LedgerStore
	Reads         *persistence.ReadModel
	Notifications *persistence.NotificationRepository
	Outbox        *persistence.OutboxRepository
	Dispatcher    *notification.Dispatcher
	Relay         *notification.Relay
	Log           *logrus.Logger
	Hook          *test.Hook
}

// New поднимает базу, диспетчер и relay без фонового цикла.
func New(t testing.TB) *Env {
	t.Helper()
	return newEnv(t, dbtest.NewSQLite(t))
}

// NewPostgres собирает то же окружение поверх PostgreSQL; без
// dbtest.PostgresDSNEnv тест пропускается.
func NewPostgres(t testing.TB) *Env {
	t.Helper()
	return newEnv(t, dbtest.NewPostgres(t))
}

func newEnv(t testing.TB, conn *sqlx.DB) *Env {
	t.Helper()

	log, hook := test.NewNullLogger()

	schemas, err := notification.LoadSchemas()
	require.NoError(t, err)

	notifications := persistence.NewNotificationRepository(conn)
	outbox := persistence.NewOutboxRepository(conn)
	dispatcher := notification.NewDispatcher(notifications, schemas, nil, log)

	return &Env{
		DB:            conn,
		Store:         persistence.NewLedgerStore(conn),
		Reads:         persistence.NewReadModel(conn),
		Notifications: notifications,
		Outbox:        outbox,
		Dispatcher:    dispatcher,
		Relay:         notification.NewRelay(outbox, dispatcher, log, notification.RelayConfig{MaxAttempts: 3}),
		Log:           log,
		Hook:          hook,
	}
}

func Dec(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

// Gig записывает открытый заказ напрямую в хранилище.
func (e *Env) Gig(t testing.TB, ownerID uuid.UUID, budget *decimal.Decimal) *entity.Gig {
	t.Helper()

	gig, err := entity.NewGig(ownerID, "Сведение сингла", "нужно свести вокал и биты", budget, nil, []string{"mixing", "vocals"})
	require.NoError(t, err)
	require.NoError(t, e.Store.Atomic(context.Background(), func(tx repository.LedgerTx) error {
		return tx.CreateGig(context.Background(), gig)
	}))
	return gig
}

// Proposal записывает ожидающее предложение напрямую в хранилище.
func (e *Env) Proposal(t testing.TB, gigID, bidderID uuid.UUID, rate *decimal.Decimal) *entity.Proposal {
	t.Helper()

	p, err := entity.NewProposal(gigID, bidderID, "Сведу за три дня", rate, nil)
	require.NoError(t, err)
	require.NoError(t, e.Store.Atomic(context.Background(), func(tx repository.LedgerTx) error {
		return tx.CreateProposal(context.Background(), p)
	}))
	return p
}

// Contract создаёт заказ, принятое предложение и контракт в одной транзакции.
// active=true сразу подписывает контракт.
func (e *Env) Contract(t testing.TB, clientID, proID uuid.UUID, total string, active bool) (*entity.Gig, *entity.Contract) {
	t.Helper()

	gig, err := entity.NewGig(clientID, "Мастеринг EP", "пять треков", nil, nil, nil)
	require.NoError(t, err)
	p, err := entity.NewProposal(gig.ID, proID, "Сделаю мастеринг", Dec(total), nil)
	require.NoError(t, err)
	require.NoError(t, gig.StartWork())
	require.NoError(t, p.Accept())
	contract := entity.NewContractFromProposal(gig, p)
	if active {
		require.NoError(t, contract.Activate())
	}

	ctx := context.Background()
	require.NoError(t, e.Store.Atomic(ctx, func(tx repository.LedgerTx) error {
		if err := tx.CreateGig(ctx, gig); err != nil {
			return err
		}
		if err := tx.CreateProposal(ctx, p); err != nil {
			return err
		}
		return tx.CreateContract(ctx, contract)
	}))
	return gig, contract
}

// Inbox возвращает все уведомления получателя.
func (e *Env) Inbox(t testing.TB, recipientID uuid.UUID) []*entity.Notification {
	t.Helper()

	list, err := e.Dispatcher.ListFor(context.Background(), recipientID, notification.ListFilter{Limit: 100})
	require.NoError(t, err)
	return list
}
