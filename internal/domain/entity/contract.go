package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/gigmarket/internal/domain/valueobject"
	"github.com/ignatzorin/gigmarket/internal/pkg/apperror"
)

type ContractRole string

const (
	RoleClient       ContractRole = "client"
	RoleProfessional ContractRole = "professional"
)

type Contract struct {
	ID             uuid.UUID
	GigID          uuid.UUID
	ProposalID     uuid.UUID
	ClientID       uuid.UUID
	ProfessionalID uuid.UUID
	TotalAmount    decimal.Decimal
	Terms          string
	Status         valueobject.ContractStatus
	StartDate      *time.Time
	EndDate        *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewContractFromProposal фиксирует условия принятого предложения.
// Сумма берётся из ставки, иначе из бюджета заказа, иначе ноль.
func NewContractFromProposal(gig *Gig, proposal *Proposal) *Contract {
	total := decimal.Zero
	switch {
	case proposal.Rate != nil:
		total = *proposal.Rate
	case gig.Budget != nil:
		total = *gig.Budget
	}

	created := now()
	return &Contract{
		ID:             uuid.New(),
		GigID:          gig.ID,
		ProposalID:     proposal.ID,
		ClientID:       gig.OwnerID,
		ProfessionalID: proposal.BidderID,
		TotalAmount:    total,
		Terms:          proposal.Message,
		Status:         valueobject.ContractStatusPendingSignature,
		CreatedAt:      created,
		UpdatedAt:      created,
	}
}

func (c *Contract) IsClient(userID uuid.UUID) bool {
	return c.ClientID == userID
}

func (c *Contract) IsProfessional(userID uuid.UUID) bool {
	return c.ProfessionalID == userID
}

func (c *Contract) IsParticipant(userID uuid.UUID) bool {
	return c.IsClient(userID) || c.IsProfessional(userID)
}

// RoleOf возвращает роль пользователя в контракте; false для посторонних.
func (c *Contract) RoleOf(userID uuid.UUID) (ContractRole, bool) {
	switch {
	case c.IsClient(userID):
		return RoleClient, true
	case c.IsProfessional(userID):
		return RoleProfessional, true
	}
	return "", false
}

func (c *Contract) Counterpart(userID uuid.UUID) uuid.UUID {
	if c.IsClient(userID) {
		return c.ProfessionalID
	}
	return c.ClientID
}

func (c *Contract) IsActive() bool {
	return c.Status == valueobject.ContractStatusActive
}

// AcceptsEscrow: эскроу можно открыть до подписания и во время работы.
func (c *Contract) AcceptsEscrow() bool {
	return c.Status == valueobject.ContractStatusActive || c.Status == valueobject.ContractStatusPendingSignature
}

func (c *Contract) Activate() error {
	if err := c.transition(valueobject.ContractStatusActive); err != nil {
		return err
	}
	started := now()
	c.StartDate = &started
	return nil
}

func (c *Contract) Complete() error {
	if err := c.transition(valueobject.ContractStatusCompleted); err != nil {
		return err
	}
	ended := now()
	c.EndDate = &ended
	return nil
}

func (c *Contract) Cancel() error {
	if err := c.transition(valueobject.ContractStatusCancelled); err != nil {
		return err
	}
	ended := now()
	c.EndDate = &ended
	return nil
}

func (c *Contract) transition(next valueobject.ContractStatus) error {
	if !c.Status.CanTransitionTo(next) {
		return apperror.Newf(apperror.ErrCodeInvalidState, "контракт в статусе %s нельзя перевести в %s", c.Status, next)
	}
	c.Status = next
	c.UpdatedAt = now()
	return nil
}
