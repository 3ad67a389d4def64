package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/gigmarket/internal/domain/entity"
	"github.com/ignatzorin/gigmarket/internal/domain/repository"
)

type CreateGigRequest struct {
	Title       string           `json:"title" binding:"required,min=3,max=200"`
	Description string           `json:"description" binding:"required"`
	Budget      *decimal.Decimal `json:"budget"`
	Deadline    *time.Time       `json:"deadline"`
	Skills      []string         `json:"skills" binding:"max=30,dive,max=50"`
}

type GigResponse struct {
	ID                    uuid.UUID        `json:"id"`
	OwnerID               uuid.UUID        `json:"owner_id"`
	Title                 string           `json:"title"`
	Description           string           `json:"description"`
	Budget                *decimal.Decimal `json:"budget"`
	Deadline              *time.Time       `json:"deadline"`
	Skills                []string         `json:"skills"`
	Status                string           `json:"status"`
	EscrowStatus          string           `json:"escrow_status"`
	ProposalsCount        *int             `json:"proposals_count,omitempty"`
	PendingProposalsCount *int             `json:"pending_proposals_count,omitempty"`
	CreatedAt             time.Time        `json:"created_at"`
	UpdatedAt             time.Time        `json:"updated_at"`
}

func ToGigResponse(gig *entity.Gig) GigResponse {
	skills := gig.Skills
	if skills == nil {
		skills = []string{}
	}
	return GigResponse{
		ID:           gig.ID,
		OwnerID:      gig.OwnerID,
		Title:        gig.Title,
		Description:  gig.Description,
		Budget:       gig.Budget,
		Deadline:     gig.Deadline,
		Skills:       skills,
		Status:       string(gig.Status),
		EscrowStatus: string(gig.EscrowStatus),
		CreatedAt:    gig.CreatedAt,
		UpdatedAt:    gig.UpdatedAt,
	}
}

func ToGigListingResponse(listing repository.GigListing) GigResponse {
	resp := ToGigResponse(listing.Gig)
	total, pending := listing.ProposalsCount, listing.PendingProposalsCount
	resp.ProposalsCount = &total
	resp.PendingProposalsCount = &pending
	return resp
}

func ToGigListingResponses(listings []repository.GigListing) []GigResponse {
	out := make([]GigResponse, 0, len(listings))
	for _, l := range listings {
		out = append(out, ToGigListingResponse(l))
	}
	return out
}
