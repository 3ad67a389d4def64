package persistence_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/gigmarket/internal/db/dbtest"
	"github.com/ignatzorin/gigmarket/internal/domain/entity"
	"github.com/ignatzorin/gigmarket/internal/domain/repository"
	"github.com/ignatzorin/gigmarket/internal/domain/valueobject"
	"github.com/ignatzorin/gigmarket/internal/infrastructure/persistence"
	"github.com/ignatzorin/gigmarket/internal/pkg/apperror"
)

func TestReadModel_ListGigsWithCounts(t *testing.T) {
	conn := dbtest.NewSQLite(t)
	store := persistence.NewLedgerStore(conn)
	reads := persistence.NewReadModel(conn)
	ctx := context.Background()

	owner := uuid.New()
	busy, err := entity.NewGig(owner, "Сведение", "свести EP", dec(500), nil, []string{"mixing", "vocals"})
	require.NoError(t, err)
	quiet, err := entity.NewGig(uuid.New(), "Логотип", "логотип лейбла", nil, nil, nil)
	require.NoError(t, err)

	a, _ := entity.NewProposal(busy.ID, uuid.New(), "возьмусь", nil, nil)
	b, _ := entity.NewProposal(busy.ID, uuid.New(), "и я", nil, nil)
	require.NoError(t, b.Reject())

	require.NoError(t, store.Atomic(ctx, func(tx repository.LedgerTx) error {
		for _, g := range []*entity.Gig{busy, quiet} {
			if err := tx.CreateGig(ctx, g); err != nil {
				return err
			}
		}
		for _, p := range []*entity.Proposal{a, b} {
			if err := tx.CreateProposal(ctx, p); err != nil {
				return err
			}
		}
		return nil
	}))

	listings, total, err := reads.ListGigs(ctx, repository.GigFilter{OwnerID: &owner})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, listings, 1)
	assert.Equal(t, busy.ID, listings[0].Gig.ID)
	assert.Equal(t, 2, listings[0].ProposalsCount)
	assert.Equal(t, 1, listings[0].PendingProposalsCount)
	assert.Equal(t, []string{"mixing", "vocals"}, listings[0].Gig.Skills)

	open := valueobject.GigStatusOpen
	_, total, err = reads.ListGigs(ctx, repository.GigFilter{Status: &open})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	listing, err := reads.GetGigListing(ctx, quiet.ID)
	require.NoError(t, err)
	assert.Zero(t, listing.ProposalsCount)
	assert.Empty(t, listing.Gig.Skills)

	mine, err := reads.ListProposals(ctx, busy.ID, &a.BidderID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, a.ID, mine[0].ID)
}

func TestReadModel_ContractSummary(t *testing.T) {
	conn := dbtest.NewSQLite(t)
	store := persistence.NewLedgerStore(conn)
	reads := persistence.NewReadModel(conn)
	ctx := context.Background()

	clientID, proID := uuid.New(), uuid.New()
	dbtest.SeedProfile(t, conn, clientID, "Мария")
	dbtest.SeedProfile(t, conn, proID, "Илья")
	gig, contract := seedContract(t, store, clientID, proID)

	plan, err := entity.NewMilestonePlan(contract.ID, []entity.MilestoneSpec{
		{Description: "демо", PaymentPercent: decimal.NewFromInt(60)},
		{Description: "финал", PaymentPercent: decimal.NewFromInt(40)},
	})
	require.NoError(t, err)
	require.NoError(t, plan[0].Advance(valueobject.MilestoneStatusInProgress))
	require.NoError(t, plan[0].Advance(valueobject.MilestoneStatusCompleted))
	require.NoError(t, plan[0].Advance(valueobject.MilestoneStatusApproved))

	escrow, err := entity.NewEscrowTransaction(contract, &plan[0].ID, decimal.NewFromInt(540))
	require.NoError(t, err)
	require.NoError(t, escrow.Fund())
	require.NoError(t, escrow.Release())

	require.NoError(t, store.Atomic(ctx, func(tx repository.LedgerTx) error {
		if err := tx.CreateMilestones(ctx, plan); err != nil {
			return err
		}
		return tx.CreateEscrow(ctx, escrow)
	}))

	summary, err := reads.GetContractSummary(ctx, contract.ID, proID)
	require.NoError(t, err)
	assert.Equal(t, gig.Title, summary.GigTitle)
	assert.Equal(t, entity.RoleProfessional, summary.Role)
	assert.Equal(t, clientID, summary.Counterpart.UserID)
	assert.Equal(t, "Мария", summary.Counterpart.DisplayName)
	assert.Equal(t, 2, summary.MilestonesTotal)
	assert.Equal(t, 1, summary.MilestonesApproved)
	require.NotNil(t, summary.EscrowStatus)
	assert.Equal(t, valueobject.EscrowStatusReleased, *summary.EscrowStatus)
	assert.True(t, summary.ReleasedAmount.Equal(decimal.NewFromInt(540)))

	list, err := reads.ListContractSummaries(ctx, clientID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, entity.RoleClient, list[0].Role)
	assert.Equal(t, "Илья", list[0].Counterpart.DisplayName)

	_, err = reads.GetContractSummary(ctx, contract.ID, uuid.New())
	assert.True(t, apperror.IsUnauthorized(err))

	milestones, err := reads.ListMilestones(ctx, contract.ID)
	require.NoError(t, err)
	assert.Len(t, milestones, 2)

	escrows, err := reads.ListEscrow(ctx, contract.ID)
	require.NoError(t, err)
	require.Len(t, escrows, 1)
	require.NotNil(t, escrows[0].MilestoneID)
	assert.Equal(t, plan[0].ID, *escrows[0].MilestoneID)
}
