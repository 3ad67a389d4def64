package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/gigmarket/internal/domain/valueobject"
	"github.com/ignatzorin/gigmarket/internal/pkg/apperror"
	"github.com/ignatzorin/gigmarket/internal/validation"
)

type EscrowTransaction struct {
	ID            uuid.UUID
	GigID         uuid.UUID
	ContractID    uuid.UUID
	MilestoneID   *uuid.UUID
	Amount        decimal.Decimal
	Status        valueobject.EscrowStatus
	DisputeReason *string
	DisputedBy    *uuid.UUID
	Resolution    *string
	CreatedAt     time.Time
	FundedAt      *time.Time
	ReleasedAt    *time.Time
	UpdatedAt     time.Time
}

func NewEscrowTransaction(contract *Contract, milestoneID *uuid.UUID, amount decimal.Decimal) (*EscrowTransaction, error) {
	amount, err := valueobject.NewAmount(amount)
	if err != nil {
		return nil, err
	}

	created := now()
	return &EscrowTransaction{
		ID:          uuid.New(),
		GigID:       contract.GigID,
		ContractID:  contract.ID,
		MilestoneID: milestoneID,
		Amount:      amount,
		Status:      valueobject.EscrowStatusPending,
		CreatedAt:   created,
		UpdatedAt:   created,
	}, nil
}

// IsContractScoped: транзакция покрывает весь контракт, а не один этап.
func (e *EscrowTransaction) IsContractScoped() bool {
	return e.MilestoneID == nil
}

func (e *EscrowTransaction) sameScope(milestoneID *uuid.UUID) bool {
	if e.MilestoneID == nil || milestoneID == nil {
		return e.MilestoneID == nil && milestoneID == nil
	}
	return *e.MilestoneID == *milestoneID
}

// CheckEscrowCapacity проверяет новое эскроу против уже записанных по контракту.
// Возвращённые транзакции не учитываются. Эскроу всего контракта и эскроу
// этапов не совмещаются, в одной области открыта не больше одной транзакции,
// а сумма открытых и выплаченных не превышает стоимость контракта.
func CheckEscrowCapacity(contract *Contract, existing []*EscrowTransaction, milestoneID *uuid.UUID, amount decimal.Decimal) error {
	committed := decimal.Zero
	for _, e := range existing {
		if e.Status == valueobject.EscrowStatusRefunded {
			continue
		}
		if e.IsContractScoped() != (milestoneID == nil) {
			return apperror.New(apperror.ErrCodeInvalidTransition, "эскроу всего контракта и эскроу этапов нельзя совмещать")
		}
		if !e.Status.IsTerminal() && e.sameScope(milestoneID) {
			return apperror.ErrOpenEscrow
		}
		committed = committed.Add(e.Amount)
	}

	if committed.Add(amount.Round(2)).GreaterThan(contract.TotalAmount) {
		return apperror.Newf(apperror.ErrCodeValidation,
			"сумма эскроу превышает остаток по контракту: доступно %s", contract.TotalAmount.Sub(committed).StringFixed(2))
	}
	return nil
}

func (e *EscrowTransaction) Fund() error {
	if err := e.guard(valueobject.EscrowStatusFunded); err != nil {
		return err
	}
	if !e.Amount.IsPositive() {
		return apperror.New(apperror.ErrCodeValidation, "сумма эскроу должна быть положительной")
	}
	e.apply(valueobject.EscrowStatusFunded)
	funded := e.UpdatedAt
	e.FundedAt = &funded
	return nil
}

func (e *EscrowTransaction) Release() error {
	if err := e.guard(valueobject.EscrowStatusReleased); err != nil {
		return err
	}
	e.apply(valueobject.EscrowStatusReleased)
	released := e.UpdatedAt
	e.ReleasedAt = &released
	return nil
}

func (e *EscrowTransaction) Dispute(actorID uuid.UUID, reason string) error {
	if err := e.guard(valueobject.EscrowStatusDisputed); err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if err := validation.ValidateDisputeReason(reason); err != nil {
		return err
	}
	e.apply(valueobject.EscrowStatusDisputed)
	e.DisputeReason = &reason
	e.DisputedBy = &actorID
	return nil
}

// Resolve закрывает спор выплатой исполнителю или возвратом заказчику.
func (e *EscrowTransaction) Resolve(outcome valueobject.EscrowStatus, note string) error {
	if outcome != valueobject.EscrowStatusReleased && outcome != valueobject.EscrowStatusRefunded {
		return apperror.New(apperror.ErrCodeValidation, "исход спора должен быть released или refunded")
	}
	if err := e.guard(outcome); err != nil {
		return err
	}
	e.apply(outcome)
	if note = strings.TrimSpace(note); note != "" {
		if err := validation.ValidateLength("решение арбитра", note, 0, validation.MaxResolutionNoteLength); err != nil {
			return err
		}
		e.Resolution = &note
	}
	if outcome == valueobject.EscrowStatusReleased {
		released := e.UpdatedAt
		e.ReleasedAt = &released
	}
	return nil
}

func (e *EscrowTransaction) guard(next valueobject.EscrowStatus) error {
	if !e.Status.CanTransitionTo(next) {
		return apperror.Newf(apperror.ErrCodeInvalidTransition, "эскроу в статусе %s нельзя перевести в %s", e.Status, next)
	}
	return nil
}

func (e *EscrowTransaction) apply(next valueobject.EscrowStatus) {
	e.Status = next
	e.UpdatedAt = now()
}
