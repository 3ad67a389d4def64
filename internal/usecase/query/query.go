// Package query отдаёт клиентам проекции заказов и контрактов.
// Здесь нет записи: всё читается из ReadModel.
package query

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/gigmarket/internal/domain/entity"
	"github.com/ignatzorin/gigmarket/internal/domain/repository"
	"github.com/ignatzorin/gigmarket/internal/pkg/apperror"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

type Service struct {
	reads  repository.ReadModel
	ledger repository.LedgerReader
}

func NewService(reads repository.ReadModel, ledger repository.LedgerReader) *Service {
	return &Service{
		reads:  reads,
		ledger: ledger,
	}
}

type GigPage struct {
	Items  []repository.GigListing
	Total  int
	Limit  int
	Offset int
}

func (s *Service) ListGigs(ctx context.Context, filter repository.GigFilter) (*GigPage, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	items, total, err := s.reads.ListGigs(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &GigPage{
		Items:  items,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

func (s *Service) GetGig(ctx context.Context, gigID uuid.UUID) (*repository.GigListing, error) {
	return s.reads.GetGigListing(ctx, gigID)
}

// ListGigProposals: владелец заказа видит все предложения, остальные только свои.
func (s *Service) ListGigProposals(ctx context.Context, gigID, viewerID uuid.UUID) ([]*entity.Proposal, error) {
	gig, err := s.ledger.FindGig(ctx, gigID)
	if err != nil {
		return nil, err
	}
	if gig.IsOwnedBy(viewerID) {
		return s.reads.ListProposals(ctx, gigID, nil)
	}
	return s.reads.ListProposals(ctx, gigID, &viewerID)
}

func (s *Service) ListContracts(ctx context.Context, userID uuid.UUID) ([]repository.ContractSummary, error) {
	return s.reads.ListContractSummaries(ctx, userID)
}

func (s *Service) GetContract(ctx context.Context, contractID, viewerID uuid.UUID) (*repository.ContractSummary, error) {
	return s.reads.GetContractSummary(ctx, contractID, viewerID)
}

func (s *Service) ListMilestones(ctx context.Context, contractID, viewerID uuid.UUID) ([]*entity.Milestone, error) {
	if err := s.requireParticipant(ctx, contractID, viewerID); err != nil {
		return nil, err
	}
	return s.reads.ListMilestones(ctx, contractID)
}

func (s *Service) ListEscrow(ctx context.Context, contractID, viewerID uuid.UUID) ([]*entity.EscrowTransaction, error) {
	if err := s.requireParticipant(ctx, contractID, viewerID); err != nil {
		return nil, err
	}
	return s.reads.ListEscrow(ctx, contractID)
}

func (s *Service) requireParticipant(ctx context.Context, contractID, viewerID uuid.UUID) error {
	contract, err := s.ledger.FindContract(ctx, contractID)
	if err != nil {
		return err
	}
	if !contract.IsParticipant(viewerID) {
		return apperror.New(apperror.ErrCodeUnauthorized, "контракт доступен только его участникам")
	}
	return nil
}
