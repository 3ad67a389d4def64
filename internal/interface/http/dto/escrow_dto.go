package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/gigmarket/internal/domain/entity"
)

type InitiateEscrowRequest struct {
	Amount      *decimal.Decimal `json:"amount"`
	MilestoneID *uuid.UUID       `json:"milestone_id"`
}

type ReleaseEscrowRequest struct {
	Override bool `json:"override"`
}

type DisputeEscrowRequest struct {
	Reason string `json:"reason" binding:"required,max=2000"`
}

type ResolveDisputeRequest struct {
	Outcome string `json:"outcome" binding:"required,oneof=released refunded"`
	Note    string `json:"note" binding:"max=2000"`
}

type EscrowResponse struct {
	ID            uuid.UUID       `json:"id"`
	GigID         uuid.UUID       `json:"gig_id"`
	ContractID    uuid.UUID       `json:"contract_id"`
	MilestoneID   *uuid.UUID      `json:"milestone_id"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	DisputeReason *string         `json:"dispute_reason,omitempty"`
	DisputedBy    *uuid.UUID      `json:"disputed_by,omitempty"`
	Resolution    *string         `json:"resolution,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	FundedAt      *time.Time      `json:"funded_at"`
	ReleasedAt    *time.Time      `json:"released_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func ToEscrowResponse(e *entity.EscrowTransaction) EscrowResponse {
	return EscrowResponse{
		ID:            e.ID,
		GigID:         e.GigID,
		ContractID:    e.ContractID,
		MilestoneID:   e.MilestoneID,
		Amount:        e.Amount,
		Status:        string(e.Status),
		DisputeReason: e.DisputeReason,
		DisputedBy:    e.DisputedBy,
		Resolution:    e.Resolution,
		CreatedAt:     e.CreatedAt,
		FundedAt:      e.FundedAt,
		ReleasedAt:    e.ReleasedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

func ToEscrowResponses(list []*entity.EscrowTransaction) []EscrowResponse {
	out := make([]EscrowResponse, 0, len(list))
	for _, e := range list {
		out = append(out, ToEscrowResponse(e))
	}
	return out
}
