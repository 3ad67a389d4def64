package proposal

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/gigmarket/internal/domain/entity"
	"github.com/ignatzorin/gigmarket/internal/domain/repository"
	"github.com/ignatzorin/gigmarket/internal/pkg/apperror"
	"github.com/ignatzorin/gigmarket/internal/usecase/txretry"
)

var errDuplicateProposal = apperror.New(apperror.ErrCodeDuplicateProposal, "вы уже откликнулись на этот заказ")

type SubmitProposalInput struct {
	GigID    uuid.UUID
	BidderID uuid.UUID
	Message  string
	Rate     *decimal.Decimal
	Timeline *string
}

type SubmitProposalUseCase struct {
	store repository.LedgerStore
	log   logrus.FieldLogger
}

func NewSubmitProposalUseCase(store repository.LedgerStore, log logrus.FieldLogger) *SubmitProposalUseCase {
	return &SubmitProposalUseCase{
		store: store,
		log:   log,
	}
}

func (uc *SubmitProposalUseCase) Execute(ctx context.Context, input SubmitProposalInput) (*entity.Proposal, error) {
	proposal, err := entity.NewProposal(input.GigID, input.BidderID, input.Message, input.Rate, input.Timeline)
	if err != nil {
		return nil, err
	}

	err = txretry.Do(ctx, uc.log, "proposal.submit", func(ctx context.Context) error {
		return uc.store.Atomic(ctx, func(tx repository.LedgerTx) error {
			gig, err := tx.LockGig(ctx, input.GigID)
			if err != nil {
				return err
			}

			if !gig.IsOpen() {
				return apperror.New(apperror.ErrCodeInvalidState, "заказ больше не принимает предложения")
			}

			if gig.IsOwnedBy(input.BidderID) {
				return apperror.New(apperror.ErrCodeValidation, "нельзя откликнуться на собственный заказ")
			}

			pending, err := tx.HasPendingProposal(ctx, gig.ID, input.BidderID)
			if err != nil {
				return err
			}
			if pending {
				return errDuplicateProposal
			}

			if err := tx.CreateProposal(ctx, proposal); err != nil {
				if errors.Is(err, repository.ErrUniqueViolation) {
					return errDuplicateProposal
				}
				return err
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	uc.log.WithFields(logrus.Fields{
		"proposal_id": proposal.ID,
		"gig_id":      proposal.GigID,
		"bidder_id":   proposal.BidderID,
	}).Info("предложение отправлено")

	return proposal, nil
}
