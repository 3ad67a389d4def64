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

type Milestone struct {
	ID             uuid.UUID
	ContractID     uuid.UUID
	Description    string
	Sequence       int
	Status         valueobject.MilestoneStatus
	PaymentPercent decimal.Decimal
	ApprovedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type MilestoneSpec struct {
	Description    string
	PaymentPercent decimal.Decimal
}

// NewMilestonePlan строит этапы контракта в порядке specs.
func NewMilestonePlan(contractID uuid.UUID, specs []MilestoneSpec) ([]*Milestone, error) {
	if len(specs) == 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "план должен содержать хотя бы один этап")
	}

	created := now()
	percents := make([]decimal.Decimal, 0, len(specs))
	milestones := make([]*Milestone, 0, len(specs))
	for i, spec := range specs {
		if strings.TrimSpace(spec.Description) == "" {
			return nil, apperror.Newf(apperror.ErrCodeValidation, "у этапа %d нет описания", i+1)
		}
		if err := validation.ValidateLength("описание этапа", spec.Description, 0, validation.MaxMilestoneDescription); err != nil {
			return nil, err
		}
		percent, err := valueobject.NewPercent(spec.PaymentPercent)
		if err != nil {
			return nil, err
		}
		percents = append(percents, percent)
		milestones = append(milestones, &Milestone{
			ID:             uuid.New(),
			ContractID:     contractID,
			Description:    spec.Description,
			Sequence:       i + 1,
			Status:         valueobject.MilestoneStatusPending,
			PaymentPercent: percent,
			CreatedAt:      created,
			UpdatedAt:      created,
		})
	}

	if sum, ok := valueobject.SumWithinHundred(percents); !ok {
		return nil, apperror.Newf(apperror.ErrCodeValidation, "сумма процентов этапов %s%% превышает 100%%", sum.String())
	}

	return milestones, nil
}

// Advance переводит этап строго на следующий статус.
func (m *Milestone) Advance(target valueobject.MilestoneStatus) error {
	if !m.Status.CanTransitionTo(target) {
		return apperror.Newf(apperror.ErrCodeInvalidTransition, "этап в статусе %s нельзя перевести в %s", m.Status, target)
	}
	m.Status = target
	m.UpdatedAt = now()
	if target == valueobject.MilestoneStatusApproved {
		approved := m.UpdatedAt
		m.ApprovedAt = &approved
	}
	return nil
}

func (m *Milestone) IsApproved() bool {
	return m.Status == valueobject.MilestoneStatusApproved
}

// AllApproved сообщает, одобрены ли все этапы; для пустого списка false.
func AllApproved(milestones []*Milestone) bool {
	if len(milestones) == 0 {
		return false
	}
	for _, m := range milestones {
		if !m.IsApproved() {
			return false
		}
	}
	return true
}
