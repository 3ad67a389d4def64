package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/gigmarket/internal/domain/entity"
	"github.com/ignatzorin/gigmarket/internal/domain/repository"
)

// LedgerStore реализует repository.LedgerStore поверх PostgreSQL или SQLite.
type LedgerStore struct {
	db      *sqlx.DB
	dialect dialect
	reader  *ledgerQueries
}

func NewLedgerStore(db *sqlx.DB) *LedgerStore {
	d := dialectFor(db.DriverName())
	return &LedgerStore{
		db:      db,
		dialect: d,
		reader:  &ledgerQueries{ext: db, dialect: d},
	}
}

// Atomic выполняет fn в одной транзакции. Внутри fn можно работать только через tx:
// на SQLite соединение одно и обращение к store заблокируется.
func (s *LedgerStore) Atomic(ctx context.Context, fn func(tx repository.LedgerTx) error) error {
	return WithTransaction(ctx, s.db, func(tx *sqlx.Tx) error {
		return fn(&ledgerQueries{ext: tx, dialect: s.dialect})
	})
}

func (s *LedgerStore) FindGig(ctx context.Context, id uuid.UUID) (*entity.Gig, error) {
	return s.reader.FindGig(ctx, id)
}

func (s *LedgerStore) FindProposal(ctx context.Context, id uuid.UUID) (*entity.Proposal, error) {
	return s.reader.FindProposal(ctx, id)
}

func (s *LedgerStore) FindContract(ctx context.Context, id uuid.UUID) (*entity.Contract, error) {
	return s.reader.FindContract(ctx, id)
}

func (s *LedgerStore) FindMilestone(ctx context.Context, id uuid.UUID) (*entity.Milestone, error) {
	return s.reader.FindMilestone(ctx, id)
}

func (s *LedgerStore) FindEscrow(ctx context.Context, id uuid.UUID) (*entity.EscrowTransaction, error) {
	return s.reader.FindEscrow(ctx, id)
}

var (
	_ repository.LedgerStore = (*LedgerStore)(nil)
	_ repository.LedgerTx    = (*ledgerQueries)(nil)
)
