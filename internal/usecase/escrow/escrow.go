package escrow

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/gigmarket/internal/domain/entity"
	"github.com/ignatzorin/gigmarket/internal/domain/repository"
	"github.com/ignatzorin/gigmarket/internal/domain/valueobject"
	"github.com/ignatzorin/gigmarket/internal/pkg/apperror"
	"github.com/ignatzorin/gigmarket/internal/usecase/notification"
	"github.com/ignatzorin/gigmarket/internal/usecase/txretry"
)

// ArbiterRole: роль в токене, которой разрешено разрешать споры.
const ArbiterRole = "admin"

var errNotParticipant = apperror.New(apperror.ErrCodeUnauthorized, "пользователь не является участником контракта")

// Deps содержит общие зависимости операций эскроу.
type Deps struct {
	Store repository.LedgerStore
	Rail  PaymentRail
	Relay notification.Deliverer
	Log   logrus.FieldLogger
}

// scope собирает то, что операция видит под блокировкой контракта.
type scope struct {
	contract *entity.Contract
	escrow   *entity.EscrowTransaction
	gig      *entity.Gig
}

// transition выполняет шаг над существующим эскроу под блокировкой контракта
// и зеркалит итоговый статус в заказ.
func (d Deps) transition(
	ctx context.Context,
	op string,
	escrowID uuid.UUID,
	step func(ctx context.Context, tx repository.LedgerTx, s *scope, batch *notification.Batch) error,
) (*entity.EscrowTransaction, error) {
	current, err := d.Store.FindEscrow(ctx, escrowID)
	if err != nil {
		return nil, err
	}

	var (
		result *entity.EscrowTransaction
		batch  *notification.Batch
	)
	err = txretry.Do(ctx, d.Log, op, func(ctx context.Context) error {
		batch = notification.NewBatch()
		return d.Store.Atomic(ctx, func(tx repository.LedgerTx) error {
			contract, err := tx.LockContract(ctx, current.ContractID)
			if err != nil {
				return err
			}
			escrow, err := tx.FindEscrow(ctx, escrowID)
			if err != nil {
				return err
			}
			gig, err := tx.FindGig(ctx, contract.GigID)
			if err != nil {
				return err
			}

			s := &scope{contract: contract, escrow: escrow, gig: gig}
			if err := step(ctx, tx, s, batch); err != nil {
				return err
			}

			if err := tx.UpdateEscrow(ctx, escrow); err != nil {
				return err
			}
			gig.SetEscrowStatus(escrow.Status)
			if err := tx.UpdateGig(ctx, gig); err != nil {
				return err
			}

			result = escrow
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	batch.Flush(ctx, d.Relay)

	d.Log.WithFields(logrus.Fields{
		"escrow_id":   result.ID,
		"contract_id": result.ContractID,
		"status":      result.Status,
	}).Info("статус эскроу изменён")

	return result, nil
}

// gatingMilestones возвращает этапы, от которых зависит выплата:
// один этап для эскроу этапа, все этапы контракта иначе.
func gatingMilestones(ctx context.Context, tx repository.LedgerTx, e *entity.EscrowTransaction) ([]*entity.Milestone, error) {
	if e.MilestoneID == nil {
		return tx.ListMilestones(ctx, e.ContractID)
	}
	m, err := tx.FindMilestone(ctx, *e.MilestoneID)
	if err != nil {
		return nil, err
	}
	return []*entity.Milestone{m}, nil
}

func amountPayload(s *scope) (uuid.UUID, uuid.UUID, uuid.UUID, decimal.Decimal) {
	return s.escrow.ID, s.contract.ID, s.gig.ID, s.escrow.Amount
}

// requireStatus отсекает переходы, которые таблица допускает только из другой операции
// (например, released из disputed возможен лишь через арбитраж).
func requireStatus(e *entity.EscrowTransaction, from, to valueobject.EscrowStatus) error {
	if e.Status != from {
		return apperror.Newf(apperror.ErrCodeInvalidTransition, "эскроу в статусе %s нельзя перевести в %s", e.Status, to)
	}
	return nil
}

type InitiateEscrowInput struct {
	ContractID  uuid.UUID
	ActorID     uuid.UUID
	Amount      *decimal.Decimal
	MilestoneID *uuid.UUID
}

type InitiateEscrowUseCase struct {
	deps Deps
}

func NewInitiateEscrowUseCase(deps Deps) *InitiateEscrowUseCase {
	return &InitiateEscrowUseCase{deps: deps}
}

func (uc *InitiateEscrowUseCase) Execute(ctx context.Context, input InitiateEscrowInput) (*entity.EscrowTransaction, error) {
	var result *entity.EscrowTransaction
	err := txretry.Do(ctx, uc.deps.Log, "escrow.initiate", func(ctx context.Context) error {
		return uc.deps.Store.Atomic(ctx, func(tx repository.LedgerTx) error {
			contract, err := tx.LockContract(ctx, input.ContractID)
			if err != nil {
				return err
			}
			if !contract.IsParticipant(input.ActorID) {
				return errNotParticipant
			}
			if !contract.AcceptsEscrow() {
				return apperror.Newf(apperror.ErrCodeInvalidState, "контракт в статусе %s не принимает эскроу", contract.Status)
			}

			amount := contract.TotalAmount
			if input.MilestoneID != nil {
				m, err := tx.FindMilestone(ctx, *input.MilestoneID)
				if err != nil {
					return err
				}
				if m.ContractID != contract.ID {
					return apperror.ErrMilestoneNotFound
				}
				amount = valueobject.ShareOf(contract.TotalAmount, m.PaymentPercent)
			}
			if input.Amount != nil {
				amount = *input.Amount
			}

			escrow, err := entity.NewEscrowTransaction(contract, input.MilestoneID, amount)
			if err != nil {
				return err
			}

			existing, err := tx.ListContractEscrow(ctx, contract.ID)
			if err != nil {
				return err
			}
			if err := entity.CheckEscrowCapacity(contract, existing, input.MilestoneID, escrow.Amount); err != nil {
				return err
			}

			if err := tx.CreateEscrow(ctx, escrow); err != nil {
				if errors.Is(err, repository.ErrUniqueViolation) {
					return apperror.ErrOpenEscrow
				}
				return err
			}

			gig, err := tx.FindGig(ctx, contract.GigID)
			if err != nil {
				return err
			}
			gig.SetEscrowStatus(escrow.Status)
			if err := tx.UpdateGig(ctx, gig); err != nil {
				return err
			}

			result = escrow
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	uc.deps.Log.WithFields(logrus.Fields{
		"escrow_id":   result.ID,
		"contract_id": result.ContractID,
		"amount":      result.Amount.StringFixed(2),
	}).Info("эскроу создано")

	return result, nil
}

type FundEscrowUseCase struct {
	deps Deps
}

func NewFundEscrowUseCase(deps Deps) *FundEscrowUseCase {
	return &FundEscrowUseCase{deps: deps}
}

func (uc *FundEscrowUseCase) Execute(ctx context.Context, escrowID, actorID uuid.UUID) (*entity.EscrowTransaction, error) {
	return uc.deps.transition(ctx, "escrow.fund", escrowID, func(ctx context.Context, tx repository.LedgerTx, s *scope, batch *notification.Batch) error {
		if !s.contract.IsClient(actorID) {
			return apperror.New(apperror.ErrCodeUnauthorized, "пополнить эскроу может только заказчик")
		}
		if err := s.escrow.Fund(); err != nil {
			return err
		}
		if err := uc.deps.Rail.Hold(ctx, s.escrow); err != nil {
			return err
		}

		escrowID, contractID, gigID, amount := amountPayload(s)
		return batch.Enqueue(ctx, tx, s.contract.ProfessionalID, entity.EscrowFundedPayload{
			EscrowID: escrowID, ContractID: contractID, GigID: gigID, Amount: amount,
		})
	})
}

type ReleaseEscrowUseCase struct {
	deps Deps
}

func NewReleaseEscrowUseCase(deps Deps) *ReleaseEscrowUseCase {
	return &ReleaseEscrowUseCase{deps: deps}
}

// Execute выплачивает средства исполнителю. override позволяет заказчику
// выплатить до утверждения всех этапов.
func (uc *ReleaseEscrowUseCase) Execute(ctx context.Context, escrowID, actorID uuid.UUID, override bool) (*entity.EscrowTransaction, error) {
	return uc.deps.transition(ctx, "escrow.release", escrowID, func(ctx context.Context, tx repository.LedgerTx, s *scope, batch *notification.Batch) error {
		role, ok := s.contract.RoleOf(actorID)
		if !ok {
			return errNotParticipant
		}
		if err := requireStatus(s.escrow, valueobject.EscrowStatusFunded, valueobject.EscrowStatusReleased); err != nil {
			return err
		}

		milestones, err := gatingMilestones(ctx, tx, s.escrow)
		if err != nil {
			return err
		}
		if err := checkReleaseAllowed(role, milestones, override); err != nil {
			return err
		}

		if err := s.escrow.Release(); err != nil {
			return err
		}
		if err := uc.deps.Rail.Payout(ctx, s.escrow); err != nil {
			return err
		}

		escrowID, contractID, gigID, amount := amountPayload(s)
		return batch.Enqueue(ctx, tx, s.contract.ProfessionalID, entity.EscrowReleasedPayload{
			EscrowID: escrowID, ContractID: contractID, GigID: gigID, Amount: amount,
		})
	})
}

func checkReleaseAllowed(role entity.ContractRole, milestones []*entity.Milestone, override bool) error {
	incomplete := apperror.New(apperror.ErrCodeMilestonesIncomplete, "не все этапы утверждены заказчиком")

	switch role {
	case entity.RoleClient:
		if override || len(milestones) == 0 || entity.AllApproved(milestones) {
			return nil
		}
		return incomplete
	case entity.RoleProfessional:
		if len(milestones) == 0 {
			return apperror.New(apperror.ErrCodeUnauthorized, "без этапов выплату инициирует только заказчик")
		}
		if !entity.AllApproved(milestones) {
			return incomplete
		}
		return nil
	}
	return errNotParticipant
}

type DisputeEscrowUseCase struct {
	deps Deps
}

func NewDisputeEscrowUseCase(deps Deps) *DisputeEscrowUseCase {
	return &DisputeEscrowUseCase{deps: deps}
}

func (uc *DisputeEscrowUseCase) Execute(ctx context.Context, escrowID, actorID uuid.UUID, reason string) (*entity.EscrowTransaction, error) {
	return uc.deps.transition(ctx, "escrow.dispute", escrowID, func(ctx context.Context, tx repository.LedgerTx, s *scope, batch *notification.Batch) error {
		if !s.contract.IsParticipant(actorID) {
			return errNotParticipant
		}
		if err := s.escrow.Dispute(actorID, reason); err != nil {
			return err
		}

		payload := entity.EscrowDisputedPayload{
			EscrowID:    s.escrow.ID,
			ContractID:  s.contract.ID,
			GigID:       s.gig.ID,
			Reason:      *s.escrow.DisputeReason,
			InitiatorID: actorID,
		}
		for _, recipient := range []uuid.UUID{s.contract.ClientID, s.contract.ProfessionalID} {
			if err := batch.Enqueue(ctx, tx, recipient, payload); err != nil {
				return err
			}
		}
		return nil
	})
}

type Arbiter struct {
	ID   uuid.UUID
	Role string
}

type ResolveDisputeUseCase struct {
	deps Deps
}

func NewResolveDisputeUseCase(deps Deps) *ResolveDisputeUseCase {
	return &ResolveDisputeUseCase{deps: deps}
}

func (uc *ResolveDisputeUseCase) Execute(ctx context.Context, escrowID uuid.UUID, arbiter Arbiter, outcome valueobject.EscrowStatus, note string) (*entity.EscrowTransaction, error) {
	if arbiter.Role != ArbiterRole {
		return nil, apperror.New(apperror.ErrCodeUnauthorized, "разрешать споры может только арбитр")
	}

	return uc.deps.transition(ctx, "escrow.resolve", escrowID, func(ctx context.Context, tx repository.LedgerTx, s *scope, batch *notification.Batch) error {
		if err := requireStatus(s.escrow, valueobject.EscrowStatusDisputed, outcome); err != nil {
			return err
		}
		if err := s.escrow.Resolve(outcome, note); err != nil {
			return err
		}

		escrowID, contractID, gigID, amount := amountPayload(s)
		if outcome == valueobject.EscrowStatusRefunded {
			if err := uc.deps.Rail.Refund(ctx, s.escrow); err != nil {
				return err
			}
			return batch.Enqueue(ctx, tx, s.contract.ClientID, entity.EscrowRefundedPayload{
				EscrowID: escrowID, ContractID: contractID, GigID: gigID, Amount: amount,
			})
		}

		if err := uc.deps.Rail.Payout(ctx, s.escrow); err != nil {
			return err
		}
		return batch.Enqueue(ctx, tx, s.contract.ProfessionalID, entity.EscrowReleasedPayload{
			EscrowID: escrowID, ContractID: contractID, GigID: gigID, Amount: amount,
		})
	})
}
