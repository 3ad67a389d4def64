package milestone

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/gigmarket/internal/domain/entity"
	"github.com/ignatzorin/gigmarket/internal/domain/repository"
	"github.com/ignatzorin/gigmarket/internal/domain/valueobject"
	"github.com/ignatzorin/gigmarket/internal/pkg/apperror"
	"github.com/ignatzorin/gigmarket/internal/usecase/notification"
	"github.com/ignatzorin/gigmarket/internal/usecase/txretry"
)

// Plan создаёт этапы активного контракта внутри уже открытой транзакции.
// Проверку прав выполняет вызывающий.
func Plan(ctx context.Context, tx repository.LedgerTx, contract *entity.Contract, specs []entity.MilestoneSpec) ([]*entity.Milestone, error) {
	if !contract.IsActive() {
		return nil, apperror.Newf(apperror.ErrCodeInvalidState, "этапы задаются только для активного контракта, текущий статус %s", contract.Status)
	}

	existing, err := tx.ListMilestones(ctx, contract.ID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "этапы контракта уже заданы")
	}

	milestones, err := entity.NewMilestonePlan(contract.ID, specs)
	if err != nil {
		return nil, err
	}
	if err := tx.CreateMilestones(ctx, milestones); err != nil {
		return nil, err
	}
	return milestones, nil
}

type CreateMilestonesUseCase struct {
	store repository.LedgerStore
	log   logrus.FieldLogger
}

func NewCreateMilestonesUseCase(store repository.LedgerStore, log logrus.FieldLogger) *CreateMilestonesUseCase {
	return &CreateMilestonesUseCase{
		store: store,
		log:   log,
	}
}

func (uc *CreateMilestonesUseCase) Execute(ctx context.Context, contractID, actorID uuid.UUID, specs []entity.MilestoneSpec) ([]*entity.Milestone, error) {
	var result []*entity.Milestone
	err := txretry.Do(ctx, uc.log, "milestone.create", func(ctx context.Context) error {
		return uc.store.Atomic(ctx, func(tx repository.LedgerTx) error {
			contract, err := tx.LockContract(ctx, contractID)
			if err != nil {
				return err
			}
			if !contract.IsClient(actorID) {
				return apperror.New(apperror.ErrCodeUnauthorized, "этапы задаёт только заказчик")
			}

			result, err = Plan(ctx, tx, contract, specs)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	uc.log.WithFields(logrus.Fields{
		"contract_id": contractID,
		"count":       len(result),
	}).Info("этапы контракта созданы")

	return result, nil
}

type AdvanceMilestoneUseCase struct {
	store repository.LedgerStore
	relay notification.Deliverer
	log   logrus.FieldLogger
}

func NewAdvanceMilestoneUseCase(store repository.LedgerStore, relay notification.Deliverer, log logrus.FieldLogger) *AdvanceMilestoneUseCase {
	return &AdvanceMilestoneUseCase{
		store: store,
		relay: relay,
		log:   log,
	}
}

// Execute переводит этап на следующий статус. Утверждает этап только заказчик.
func (uc *AdvanceMilestoneUseCase) Execute(ctx context.Context, milestoneID, actorID uuid.UUID, target valueobject.MilestoneStatus) (*entity.Milestone, error) {
	if !target.IsValid() {
		return nil, apperror.Newf(apperror.ErrCodeValidation, "неизвестный статус этапа %q", target)
	}

	current, err := uc.store.FindMilestone(ctx, milestoneID)
	if err != nil {
		return nil, err
	}

	var (
		result *entity.Milestone
		batch  *notification.Batch
	)
	err = txretry.Do(ctx, uc.log, "milestone.advance", func(ctx context.Context) error {
		batch = notification.NewBatch()
		return uc.store.Atomic(ctx, func(tx repository.LedgerTx) error {
			contract, err := tx.LockContract(ctx, current.ContractID)
			if err != nil {
				return err
			}
			if !contract.IsParticipant(actorID) {
				return apperror.New(apperror.ErrCodeUnauthorized, "пользователь не является участником контракта")
			}
			if !contract.IsActive() {
				return apperror.Newf(apperror.ErrCodeInvalidState, "контракт в статусе %s, этапы не меняются", contract.Status)
			}
			if target == valueobject.MilestoneStatusApproved && !contract.IsClient(actorID) {
				return apperror.New(apperror.ErrCodeUnauthorized, "утвердить этап может только заказчик")
			}

			m, err := tx.FindMilestone(ctx, milestoneID)
			if err != nil {
				return err
			}
			if err := m.Advance(target); err != nil {
				return err
			}
			if err := tx.UpdateMilestone(ctx, m); err != nil {
				return err
			}

			if m.IsApproved() {
				err = batch.Enqueue(ctx, tx, contract.ProfessionalID, entity.MilestoneApprovedPayload{
					MilestoneID:    m.ID,
					ContractID:     contract.ID,
					Description:    m.Description,
					PaymentPercent: m.PaymentPercent,
				})
				if err != nil {
					return err
				}
			}

			result = m
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	batch.Flush(ctx, uc.relay)

	uc.log.WithFields(logrus.Fields{
		"milestone_id": result.ID,
		"contract_id":  result.ContractID,
		"status":       result.Status,
	}).Info("этап переведён")

	return result, nil
}
