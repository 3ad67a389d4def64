package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/gigmarket/internal/domain/entity"
	"github.com/ignatzorin/gigmarket/internal/domain/repository"
)

type MilestoneSpecRequest struct {
	Description    string          `json:"description" binding:"required"`
	PaymentPercent decimal.Decimal `json:"payment_percent"`
}

type ActivateContractRequest struct {
	Milestones []MilestoneSpecRequest `json:"milestones" binding:"dive"`
}

type CreateMilestonesRequest struct {
	Milestones []MilestoneSpecRequest `json:"milestones" binding:"required,min=1,dive"`
}

type AdvanceMilestoneRequest struct {
	Status string `json:"status" binding:"required,oneof=in_progress completed approved"`
}

func ToMilestoneSpecs(reqs []MilestoneSpecRequest) []entity.MilestoneSpec {
	specs := make([]entity.MilestoneSpec, 0, len(reqs))
	for _, r := range reqs {
		specs = append(specs, entity.MilestoneSpec{
			Description:    r.Description,
			PaymentPercent: r.PaymentPercent,
		})
	}
	return specs
}

type ContractResponse struct {
	ID             uuid.UUID       `json:"id"`
	GigID          uuid.UUID       `json:"gig_id"`
	ProposalID     uuid.UUID       `json:"proposal_id"`
	ClientID       uuid.UUID       `json:"client_id"`
	ProfessionalID uuid.UUID       `json:"professional_id"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Terms          string          `json:"terms"`
	Status         string          `json:"status"`
	StartDate      *time.Time      `json:"start_date"`
	EndDate        *time.Time      `json:"end_date"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func ToContractResponse(c *entity.Contract) ContractResponse {
	return ContractResponse{
		ID:             c.ID,
		GigID:          c.GigID,
		ProposalID:     c.ProposalID,
		ClientID:       c.ClientID,
		ProfessionalID: c.ProfessionalID,
		TotalAmount:    c.TotalAmount,
		Terms:          c.Terms,
		Status:         string(c.Status),
		StartDate:      c.StartDate,
		EndDate:        c.EndDate,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

type CounterpartResponse struct {
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
	AvatarURL   *string   `json:"avatar_url"`
}

type ContractSummaryResponse struct {
	ContractResponse
	GigTitle           string              `json:"gig_title"`
	Role               string              `json:"role"`
	Counterpart        CounterpartResponse `json:"counterpart"`
	MilestonesTotal    int                 `json:"milestones_total"`
	MilestonesApproved int                 `json:"milestones_approved"`
	EscrowStatus       *string             `json:"escrow_status"`
	ReleasedAmount     decimal.Decimal     `json:"released_amount"`
}

func ToContractSummaryResponse(s repository.ContractSummary) ContractSummaryResponse {
	var escrowStatus *string
	if s.EscrowStatus != nil {
		v := string(*s.EscrowStatus)
		escrowStatus = &v
	}
	return ContractSummaryResponse{
		ContractResponse: ToContractResponse(s.Contract),
		GigTitle:         s.GigTitle,
		Role:             string(s.Role),
		Counterpart: CounterpartResponse{
			UserID:      s.Counterpart.UserID,
			DisplayName: s.Counterpart.DisplayName,
			AvatarURL:   s.Counterpart.AvatarURL,
		},
		MilestonesTotal:    s.MilestonesTotal,
		MilestonesApproved: s.MilestonesApproved,
		EscrowStatus:       escrowStatus,
		ReleasedAmount:     s.ReleasedAmount,
	}
}

func ToContractSummaryResponses(list []repository.ContractSummary) []ContractSummaryResponse {
	out := make([]ContractSummaryResponse, 0, len(list))
	for _, s := range list {
		out = append(out, ToContractSummaryResponse(s))
	}
	return out
}

type ActivateContractResponse struct {
	Contract   ContractResponse    `json:"contract"`
	Milestones []MilestoneResponse `json:"milestones"`
}

type MilestoneResponse struct {
	ID             uuid.UUID       `json:"id"`
	ContractID     uuid.UUID       `json:"contract_id"`
	Description    string          `json:"description"`
	Sequence       int             `json:"sequence"`
	Status         string          `json:"status"`
	PaymentPercent decimal.Decimal `json:"payment_percent"`
	ApprovedAt     *time.Time      `json:"approved_at"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func ToMilestoneResponse(m *entity.Milestone) MilestoneResponse {
	return MilestoneResponse{
		ID:             m.ID,
		ContractID:     m.ContractID,
		Description:    m.Description,
		Sequence:       m.Sequence,
		Status:         string(m.Status),
		PaymentPercent: m.PaymentPercent,
		ApprovedAt:     m.ApprovedAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func ToMilestoneResponses(ms []*entity.Milestone) []MilestoneResponse {
	out := make([]MilestoneResponse, 0, len(ms))
	for _, m := range ms {
		out = append(out, ToMilestoneResponse(m))
	}
	return out
}
