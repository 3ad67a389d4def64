package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/gigmarket/internal/domain/entity"
	"github.com/ignatzorin/gigmarket/internal/usecase/proposal"
)

type SubmitProposalRequest struct {
	Message  string           `json:"message" binding:"required"`
	Rate     *decimal.Decimal `json:"rate"`
	Timeline *string          `json:"timeline" binding:"omitempty,max=200"`
}

type ProposalResponse struct {
	ID        uuid.UUID        `json:"id"`
	GigID     uuid.UUID        `json:"gig_id"`
	BidderID  uuid.UUID        `json:"bidder_id"`
	Message   string           `json:"message"`
	Rate      *decimal.Decimal `json:"rate"`
	Timeline  *string          `json:"timeline"`
	Status    string           `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func ToProposalResponse(p *entity.Proposal) ProposalResponse {
	return ProposalResponse{
		ID:        p.ID,
		GigID:     p.GigID,
		BidderID:  p.BidderID,
		Message:   p.Message,
		Rate:      p.Rate,
		Timeline:  p.Timeline,
		Status:    string(p.Status),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func ToProposalResponses(proposals []*entity.Proposal) []ProposalResponse {
	out := make([]ProposalResponse, 0, len(proposals))
	for _, p := range proposals {
		out = append(out, ToProposalResponse(p))
	}
	return out
}

type AcceptProposalResponse struct {
	Proposal ProposalResponse `json:"proposal"`
	Gig      GigResponse      `json:"gig"`
	Contract ContractResponse `json:"contract"`
}

func ToAcceptProposalResponse(res *proposal.AcceptResult) AcceptProposalResponse {
	return AcceptProposalResponse{
		Proposal: ToProposalResponse(res.Proposal),
		Gig:      ToGigResponse(res.Gig),
		Contract: ToContractResponse(res.Contract),
	}
}
