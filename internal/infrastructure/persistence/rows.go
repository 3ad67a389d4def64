package persistence

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/gigmarket/internal/domain/entity"
	"github.com/ignatzorin/gigmarket/internal/domain/valueobject"
)

const (
	gigColumns       = `id, owner_id, title, description, budget, deadline, status, escrow_status, created_at, updated_at`
	proposalColumns  = `id, gig_id, bidder_id, message, rate, timeline, status, created_at, updated_at`
	contractColumns  = `id, gig_id, proposal_id, client_id, professional_id, total_amount, terms, status, start_date, end_date, created_at, updated_at`
	milestoneColumns = `id, contract_id, description, sequence, status, payment_percent, approved_at, created_at, updated_at`
	escrowColumns    = `id, gig_id, contract_id, milestone_id, amount, status, dispute_reason, disputed_by, resolution, created_at, funded_at, released_at, updated_at`
)

type gigRow struct {
	ID           uuid.UUID           `db:"id"`
	OwnerID      uuid.UUID           `db:"owner_id"`
	Title        string              `db:"title"`
	Description  string              `db:"description"`
	Budget       decimal.NullDecimal `db:"budget"`
	Deadline     *time.Time          `db:"deadline"`
	Status       string              `db:"status"`
	EscrowStatus string              `db:"escrow_status"`
	CreatedAt    time.Time           `db:"created_at"`
	UpdatedAt    time.Time           `db:"updated_at"`
}

func (r *gigRow) toEntity(skills []string) *entity.Gig {
	if skills == nil {
		skills = []string{}
	}
	return &entity.Gig{
		ID:           r.ID,
		OwnerID:      r.OwnerID,
		Title:        r.Title,
		Description:  r.Description,
		Budget:       nullDecimalPtr(r.Budget),
		Deadline:     r.Deadline,
		Skills:       skills,
		Status:       valueobject.GigStatus(r.Status),
		EscrowStatus: valueobject.EscrowStatus(r.EscrowStatus),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type proposalRow struct {
	ID        uuid.UUID           `db:"id"`
	GigID     uuid.UUID           `db:"gig_id"`
	BidderID  uuid.UUID           `db:"bidder_id"`
	Message   string              `db:"message"`
	Rate      decimal.NullDecimal `db:"rate"`
	Timeline  *string             `db:"timeline"`
	Status    string              `db:"status"`
	CreatedAt time.Time           `db:"created_at"`
	UpdatedAt time.Time           `db:"updated_at"`
}

func (r *proposalRow) toEntity() *entity.Proposal {
	return &entity.Proposal{
		ID:        r.ID,
		GigID:     r.GigID,
		BidderID:  r.BidderID,
		Message:   r.Message,
		Rate:      nullDecimalPtr(r.Rate),
		Timeline:  r.Timeline,
		Status:    valueobject.ProposalStatus(r.Status),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func toProposalEntities(rows []proposalRow) []*entity.Proposal {
	out := make([]*entity.Proposal, len(rows))
	for i := range rows {
		out[i] = rows[i].toEntity()
	}
	return out
}

type contractRow struct {
	ID             uuid.UUID       `db:"id"`
	GigID          uuid.UUID       `db:"gig_id"`
	ProposalID     uuid.UUID       `db:"proposal_id"`
	ClientID       uuid.UUID       `db:"client_id"`
	ProfessionalID uuid.UUID       `db:"professional_id"`
	TotalAmount    decimal.Decimal `db:"total_amount"`
	Terms          string          `db:"terms"`
	Status         string          `db:"status"`
	StartDate      *time.Time      `db:"start_date"`
	EndDate        *time.Time      `db:"end_date"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

func (r *contractRow) toEntity() *entity.Contract {
	return &entity.Contract{
		ID:             r.ID,
		GigID:          r.GigID,
		ProposalID:     r.ProposalID,
		ClientID:       r.ClientID,
		ProfessionalID: r.ProfessionalID,
		TotalAmount:    r.TotalAmount,
		Terms:          r.Terms,
		Status:         valueobject.ContractStatus(r.Status),
		StartDate:      r.StartDate,
		EndDate:        r.EndDate,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

type milestoneRow struct {
	ID             uuid.UUID       `db:"id"`
	ContractID     uuid.UUID       `db:"contract_id"`
	Description    string          `db:"description"`
	Sequence       int             `db:"sequence"`
	Status         string          `db:"status"`
	PaymentPercent decimal.Decimal `db:"payment_percent"`
	ApprovedAt     *time.Time      `db:"approved_at"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

func (r *milestoneRow) toEntity() *entity.Milestone {
	return &entity.Milestone{
		ID:             r.ID,
		ContractID:     r.ContractID,
		Description:    r.Description,
		Sequence:       r.Sequence,
		Status:         valueobject.MilestoneStatus(r.Status),
		PaymentPercent: r.PaymentPercent,
		ApprovedAt:     r.ApprovedAt,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func toMilestoneEntities(rows []milestoneRow) []*entity.Milestone {
	out := make([]*entity.Milestone, len(rows))
	for i := range rows {
		out[i] = rows[i].toEntity()
	}
	return out
}

type escrowRow struct {
	ID            uuid.UUID       `db:"id"`
	GigID         uuid.UUID       `db:"gig_id"`
	ContractID    uuid.UUID       `db:"contract_id"`
	MilestoneID   *uuid.UUID      `db:"milestone_id"`
	Amount        decimal.Decimal `db:"amount"`
	Status        string          `db:"status"`
	DisputeReason *string         `db:"dispute_reason"`
	DisputedBy    *uuid.UUID      `db:"disputed_by"`
	Resolution    *string         `db:"resolution"`
	CreatedAt     time.Time       `db:"created_at"`
	FundedAt      *time.Time      `db:"funded_at"`
	ReleasedAt    *time.Time      `db:"released_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

func (r *escrowRow) toEntity() *entity.EscrowTransaction {
	return &entity.EscrowTransaction{
		ID:            r.ID,
		GigID:         r.GigID,
		ContractID:    r.ContractID,
		MilestoneID:   r.MilestoneID,
		Amount:        r.Amount,
		Status:        valueobject.EscrowStatus(r.Status),
		DisputeReason: r.DisputeReason,
		DisputedBy:    r.DisputedBy,
		Resolution:    r.Resolution,
		CreatedAt:     r.CreatedAt,
		FundedAt:      r.FundedAt,
		ReleasedAt:    r.ReleasedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func toEscrowEntities(rows []escrowRow) []*entity.EscrowTransaction {
	out := make([]*entity.EscrowTransaction, len(rows))
	for i := range rows {
		out[i] = rows[i].toEntity()
	}
	return out
}

func nullDecimalPtr(v decimal.NullDecimal) *decimal.Decimal {
	if !v.Valid {
		return nil
	}
	d := v.Decimal
	return &d
}
