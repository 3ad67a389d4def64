package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/gigmarket/internal/domain/entity"
	"github.com/ignatzorin/gigmarket/internal/domain/valueobject"
)

type GigFilter struct {
	Status  *valueobject.GigStatus
	OwnerID *uuid.UUID
	Limit   int
	Offset  int
}

type GigListing struct {
	Gig                   *entity.Gig
	ProposalsCount        int
	PendingProposalsCount int
}

type CounterpartProfile struct {
	UserID      uuid.UUID
	DisplayName string
	AvatarURL   *string
}

type ContractSummary struct {
	Contract           *entity.Contract
	GigTitle           string
	Role               entity.ContractRole
	Counterpart        CounterpartProfile
	MilestonesTotal    int
	MilestonesApproved int
	EscrowStatus       *valueobject.EscrowStatus
	ReleasedAmount     decimal.Decimal
}

// ReadModel отдаёт денормализованные проекции для клиентских экранов.
type ReadModel interface {
	ListGigs(ctx context.Context, filter GigFilter) ([]GigListing, int, error)
	GetGigListing(ctx context.Context, gigID uuid.UUID) (*GigListing, error)
	ListProposals(ctx context.Context, gigID uuid.UUID, bidderID *uuid.UUID) ([]*entity.Proposal, error)
	ListContractSummaries(ctx context.Context, userID uuid.UUID) ([]ContractSummary, error)
	GetContractSummary(ctx context.Context, contractID, viewerID uuid.UUID) (*ContractSummary, error)
	ListMilestones(ctx context.Context, contractID uuid.UUID) ([]*entity.Milestone, error)
	ListEscrow(ctx context.Context, contractID uuid.UUID) ([]*entity.EscrowTransaction, error)
}
