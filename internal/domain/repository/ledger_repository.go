package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ignatzorin/gigmarket/internal/domain/entity"
)

// ErrUniqueViolation возвращается адаптером при нарушении уникального индекса.
var ErrUniqueViolation = errors.New("repository: нарушено ограничение уникальности")

type LedgerReader interface {
	FindGig(ctx context.Context, id uuid.UUID) (*entity.Gig, error)
	FindProposal(ctx context.Context, id uuid.UUID) (*entity.Proposal, error)
	FindContract(ctx context.Context, id uuid.UUID) (*entity.Contract, error)
	FindMilestone(ctx context.Context, id uuid.UUID) (*entity.Milestone, error)
	FindEscrow(ctx context.Context, id uuid.UUID) (*entity.EscrowTransaction, error)
}

// LedgerStore является единственным источником истины для заказов, предложений,
// контрактов, этапов и эскроу. Все изменения идут через Atomic.
type LedgerStore interface {
	LedgerReader
	Atomic(ctx context.Context, fn func(tx LedgerTx) error) error
}

// LedgerTx видит данные внутри одной транзакции.
// LockGig и LockContract держат блокировку строки до конца транзакции.
type LedgerTx interface {
	LedgerReader

	LockGig(ctx context.Context, id uuid.UUID) (*entity.Gig, error)
	LockContract(ctx context.Context, id uuid.UUID) (*entity.Contract, error)

	CreateGig(ctx context.Context, gig *entity.Gig) error
	UpdateGig(ctx context.Context, gig *entity.Gig) error

	CreateProposal(ctx context.Context, proposal *entity.Proposal) error
	UpdateProposal(ctx context.Context, proposal *entity.Proposal) error
	HasPendingProposal(ctx context.Context, gigID, bidderID uuid.UUID) (bool, error)

	CreateContract(ctx context.Context, contract *entity.Contract) error
	UpdateContract(ctx context.Context, contract *entity.Contract) error
	FindContractByProposal(ctx context.Context, proposalID uuid.UUID) (*entity.Contract, error)

	CreateMilestones(ctx context.Context, milestones []*entity.Milestone) error
	UpdateMilestone(ctx context.Context, milestone *entity.Milestone) error
	ListMilestones(ctx context.Context, contractID uuid.UUID) ([]*entity.Milestone, error)

	CreateEscrow(ctx context.Context, escrow *entity.EscrowTransaction) error
	UpdateEscrow(ctx context.Context, escrow *entity.EscrowTransaction) error
	// ListContractEscrow возвращает все транзакции контракта, включая закрытые.
	ListContractEscrow(ctx context.Context, contractID uuid.UUID) ([]*entity.EscrowTransaction, error)
	CountOpenEscrow(ctx context.Context, contractID uuid.UUID) (int, error)

	DisplayName(ctx context.Context, userID uuid.UUID) (string, error)

	// EnqueueNotification пишет запись outbox; false, если такое событие уже поставлено.
	EnqueueNotification(ctx context.Context, entry *entity.OutboxEntry) (bool, error)
}
