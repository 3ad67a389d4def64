package contract

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/gigmarket/internal/domain/entity"
	"github.com/ignatzorin/gigmarket/internal/domain/repository"
	"github.com/ignatzorin/gigmarket/internal/pkg/apperror"
	"github.com/ignatzorin/gigmarket/internal/usecase/milestone"
	"github.com/ignatzorin/gigmarket/internal/usecase/txretry"
)

var errOpenEscrow = apperror.New(apperror.ErrCodeInvalidState, "по контракту есть незавершённое эскроу")

type ActivateResult struct {
	Contract   *entity.Contract
	Milestones []*entity.Milestone
}

type ActivateContractUseCase struct {
	store repository.LedgerStore
	log   logrus.FieldLogger
}

func NewActivateContractUseCase(store repository.LedgerStore, log logrus.FieldLogger) *ActivateContractUseCase {
	return &ActivateContractUseCase{
		store: store,
		log:   log,
	}
}

// Execute подписывает контракт исполнителем. Если переданы specs,
// этапы создаются в той же транзакции.
func (uc *ActivateContractUseCase) Execute(ctx context.Context, contractID, actorID uuid.UUID, specs []entity.MilestoneSpec) (*ActivateResult, error) {
	var result *ActivateResult
	err := txretry.Do(ctx, uc.log, "contract.activate", func(ctx context.Context) error {
		return uc.store.Atomic(ctx, func(tx repository.LedgerTx) error {
			contract, err := tx.LockContract(ctx, contractID)
			if err != nil {
				return err
			}
			if !contract.IsProfessional(actorID) {
				return apperror.New(apperror.ErrCodeUnauthorized, "подписать контракт может только исполнитель")
			}
			if err := contract.Activate(); err != nil {
				return err
			}
			if err := tx.UpdateContract(ctx, contract); err != nil {
				return err
			}

			var milestones []*entity.Milestone
			if len(specs) > 0 {
				milestones, err = milestone.Plan(ctx, tx, contract, specs)
				if err != nil {
					return err
				}
			}

			result = &ActivateResult{Contract: contract, Milestones: milestones}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	uc.log.WithFields(logrus.Fields{
		"contract_id": contractID,
		"milestones":  len(result.Milestones),
	}).Info("контракт подписан")

	return result, nil
}

type CompleteContractUseCase struct {
	store repository.LedgerStore
	log   logrus.FieldLogger
}

func NewCompleteContractUseCase(store repository.LedgerStore, log logrus.FieldLogger) *CompleteContractUseCase {
	return &CompleteContractUseCase{
		store: store,
		log:   log,
	}
}

func (uc *CompleteContractUseCase) Execute(ctx context.Context, contractID, actorID uuid.UUID) (*entity.Contract, error) {
	return closeContract(ctx, uc.store, uc.log, "contract.complete", contractID, func(contract *entity.Contract, gig *entity.Gig) error {
		if !contract.IsClient(actorID) {
			return apperror.New(apperror.ErrCodeUnauthorized, "завершить контракт может только заказчик")
		}
		if err := contract.Complete(); err != nil {
			return err
		}
		return gig.Complete()
	})
}

type CancelContractUseCase struct {
	store repository.LedgerStore
	log   logrus.FieldLogger
}

func NewCancelContractUseCase(store repository.LedgerStore, log logrus.FieldLogger) *CancelContractUseCase {
	return &CancelContractUseCase{
		store: store,
		log:   log,
	}
}

func (uc *CancelContractUseCase) Execute(ctx context.Context, contractID, actorID uuid.UUID) (*entity.Contract, error) {
	return closeContract(ctx, uc.store, uc.log, "contract.cancel", contractID, func(contract *entity.Contract, gig *entity.Gig) error {
		if !contract.IsParticipant(actorID) {
			return apperror.New(apperror.ErrCodeUnauthorized, "пользователь не является участником контракта")
		}
		if err := contract.Cancel(); err != nil {
			return err
		}
		return gig.Cancel()
	})
}

// closeContract переводит контракт и заказ в конечный статус, если
// по контракту не осталось незавершённого эскроу.
func closeContract(
	ctx context.Context,
	store repository.LedgerStore,
	log logrus.FieldLogger,
	op string,
	contractID uuid.UUID,
	apply func(contract *entity.Contract, gig *entity.Gig) error,
) (*entity.Contract, error) {
	var result *entity.Contract
	err := txretry.Do(ctx, log, op, func(ctx context.Context) error {
		return store.Atomic(ctx, func(tx repository.LedgerTx) error {
			contract, err := tx.LockContract(ctx, contractID)
			if err != nil {
				return err
			}
			gig, err := tx.FindGig(ctx, contract.GigID)
			if err != nil {
				return err
			}

			if err := apply(contract, gig); err != nil {
				return err
			}

			open, err := tx.CountOpenEscrow(ctx, contract.ID)
			if err != nil {
				return err
			}
			if open > 0 {
				return errOpenEscrow
			}

			if err := tx.UpdateContract(ctx, contract); err != nil {
				return err
			}
			if err := tx.UpdateGig(ctx, gig); err != nil {
				return err
			}

			result = contract
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"contract_id": result.ID,
		"status":      result.Status,
	}).Info("контракт закрыт")

	return result, nil
}
