package proposal

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/gigmarket/internal/domain/entity"
	"github.com/ignatzorin/gigmarket/internal/domain/repository"
	"github.com/ignatzorin/gigmarket/internal/pkg/apperror"
	"github.com/ignatzorin/gigmarket/internal/usecase/notification"
	"github.com/ignatzorin/gigmarket/internal/usecase/txretry"
)

var errAlreadyDecided = apperror.New(apperror.ErrCodeInvalidState, "предложение уже рассмотрено")

type AcceptResult struct {
	Proposal *entity.Proposal
	Gig      *entity.Gig
	Contract *entity.Contract
}

type AcceptProposalUseCase struct {
	store repository.LedgerStore
	relay notification.Deliverer
	log   logrus.FieldLogger
}

func NewAcceptProposalUseCase(store repository.LedgerStore, relay notification.Deliverer, log logrus.FieldLogger) *AcceptProposalUseCase {
	return &AcceptProposalUseCase{
		store: store,
		relay: relay,
		log:   log,
	}
}

func (uc *AcceptProposalUseCase) Execute(ctx context.Context, proposalID, clientID uuid.UUID) (*AcceptResult, error) {
	current, err := uc.store.FindProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}

	var (
		result *AcceptResult
		batch  *notification.Batch
	)
	err = txretry.Do(ctx, uc.log, "proposal.accept", func(ctx context.Context) error {
		batch = notification.NewBatch()
		return uc.store.Atomic(ctx, func(tx repository.LedgerTx) error {
			gig, err := tx.LockGig(ctx, current.GigID)
			if err != nil {
				return err
			}

			if !gig.IsOwnedBy(clientID) {
				return apperror.New(apperror.ErrCodeUnauthorized, "принять предложение может только владелец заказа")
			}

			proposal, err := tx.FindProposal(ctx, proposalID)
			if err != nil {
				return err
			}

			// Повторное принятие возвращает уже созданный контракт без записи.
			if proposal.IsAccepted() {
				contract, err := tx.FindContractByProposal(ctx, proposal.ID)
				if err != nil {
					return err
				}
				if contract == nil {
					return errAlreadyDecided
				}
				result = &AcceptResult{Proposal: proposal, Gig: gig, Contract: contract}
				return nil
			}

			if !proposal.IsPending() {
				return errAlreadyDecided
			}

			if err := gig.StartWork(); err != nil {
				return err
			}
			if err := proposal.Accept(); err != nil {
				return err
			}
			contract := entity.NewContractFromProposal(gig, proposal)

			if err := tx.UpdateProposal(ctx, proposal); err != nil {
				return err
			}
			if err := tx.UpdateGig(ctx, gig); err != nil {
				return err
			}
			if err := tx.CreateContract(ctx, contract); err != nil {
				return err
			}

			clientName, err := tx.DisplayName(ctx, gig.OwnerID)
			if err != nil {
				return err
			}
			err = batch.Enqueue(ctx, tx, proposal.BidderID, entity.ProposalAcceptedPayload{
				GigID:      gig.ID,
				GigTitle:   gig.Title,
				ProposalID: proposal.ID,
				ContractID: contract.ID,
				ClientID:   gig.OwnerID,
				ClientName: clientName,
			})
			if err != nil {
				return err
			}

			result = &AcceptResult{Proposal: proposal, Gig: gig, Contract: contract}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	batch.Flush(ctx, uc.relay)

	uc.log.WithFields(logrus.Fields{
		"proposal_id": result.Proposal.ID,
		"gig_id":      result.Gig.ID,
		"contract_id": result.Contract.ID,
	}).Info("предложение принято")

	return result, nil
}

type RejectProposalUseCase struct {
	store repository.LedgerStore
	relay notification.Deliverer
	log   logrus.FieldLogger
}

func NewRejectProposalUseCase(store repository.LedgerStore, relay notification.Deliverer, log logrus.FieldLogger) *RejectProposalUseCase {
	return &RejectProposalUseCase{
		store: store,
		relay: relay,
		log:   log,
	}
}

func (uc *RejectProposalUseCase) Execute(ctx context.Context, proposalID, clientID uuid.UUID) (*entity.Proposal, error) {
	current, err := uc.store.FindProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}

	var (
		result *entity.Proposal
		batch  *notification.Batch
	)
	err = txretry.Do(ctx, uc.log, "proposal.reject", func(ctx context.Context) error {
		batch = notification.NewBatch()
		return uc.store.Atomic(ctx, func(tx repository.LedgerTx) error {
			gig, err := tx.LockGig(ctx, current.GigID)
			if err != nil {
				return err
			}

			if !gig.IsOwnedBy(clientID) {
				return apperror.New(apperror.ErrCodeUnauthorized, "отклонить предложение может только владелец заказа")
			}

			proposal, err := tx.FindProposal(ctx, proposalID)
			if err != nil {
				return err
			}

			if proposal.IsRejected() {
				result = proposal
				return nil
			}
			if err := proposal.Reject(); err != nil {
				return err
			}
			if err := tx.UpdateProposal(ctx, proposal); err != nil {
				return err
			}

			err = batch.Enqueue(ctx, tx, proposal.BidderID, entity.ProposalRejectedPayload{
				GigID:      gig.ID,
				GigTitle:   gig.Title,
				ProposalID: proposal.ID,
			})
			if err != nil {
				return err
			}

			result = proposal
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	batch.Flush(ctx, uc.relay)
	return result, nil
}
