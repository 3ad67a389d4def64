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

type Proposal struct {
	ID        uuid.UUID
	GigID     uuid.UUID
	BidderID  uuid.UUID
	Message   string
	Rate      *decimal.Decimal
	Timeline  *string
	Status    valueobject.ProposalStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewProposal(gigID, bidderID uuid.UUID, message string, rate *decimal.Decimal, timeline *string) (*Proposal, error) {
	if err := validation.ValidateProposalMessage(message); err != nil {
		return nil, err
	}
	if rate != nil {
		r, err := valueobject.NewRate(*rate)
		if err != nil {
			return nil, err
		}
		rate = &r
	}
	if timeline != nil {
		if strings.TrimSpace(*timeline) == "" {
			timeline = nil
		} else if err := validation.ValidateLength("срок выполнения", *timeline, 0, validation.MaxProposalTimelineLength); err != nil {
			return nil, err
		}
	}

	created := now()
	return &Proposal{
		ID:        uuid.New(),
		GigID:     gigID,
		BidderID:  bidderID,
		Message:   message,
		Rate:      rate,
		Timeline:  timeline,
		Status:    valueobject.ProposalStatusPending,
		CreatedAt: created,
		UpdatedAt: created,
	}, nil
}

func (p *Proposal) Accept() error {
	if !p.IsPending() {
		return apperror.New(apperror.ErrCodeInvalidState, "предложение уже рассмотрено")
	}
	p.Status = valueobject.ProposalStatusAccepted
	p.UpdatedAt = now()
	return nil
}

func (p *Proposal) Reject() error {
	if !p.IsPending() {
		return apperror.New(apperror.ErrCodeInvalidState, "предложение уже рассмотрено")
	}
	p.Status = valueobject.ProposalStatusRejected
	p.UpdatedAt = now()
	return nil
}

func (p *Proposal) IsPending() bool {
	return p.Status == valueobject.ProposalStatusPending
}

func (p *Proposal) IsAccepted() bool {
	return p.Status == valueobject.ProposalStatusAccepted
}

func (p *Proposal) IsRejected() bool {
	return p.Status == valueobject.ProposalStatusRejected
}
