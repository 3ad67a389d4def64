package contract_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/gigmarket/internal/domain/entity"
	"github.com/ignatzorin/gigmarket/internal/domain/valueobject"
	"github.com/ignatzorin/gigmarket/internal/pkg/apperror"
	"github.com/ignatzorin/gigmarket/internal/usecase/contract"
	"github.com/ignatzorin/gigmarket/internal/usecase/escrow"
	"github.com/ignatzorin/gigmarket/internal/usecase/usecasetest"
)

func TestActivateContract(t *testing.T) {
	env := usecasetest.New(t)
	client, pro := uuid.New(), uuid.New()
	_, c := env.Contract(t, client, pro, "1000", false)
	uc := contract.NewActivateContractUseCase(env.Store, env.Log)
	ctx := context.Background()

	_, err := uc.Execute(ctx, c.ID, client, nil)
	assert.True(t, apperror.IsUnauthorized(err))

	res, err := uc.Execute(ctx, c.ID, pro, []entity.MilestoneSpec{
		{Description: "демо", PaymentPercent: decimal.NewFromInt(30)},
		{Description: "релиз", PaymentPercent: decimal.NewFromInt(70)},
	})
	require.NoError(t, err)
	assert.Equal(t, valueobject.ContractStatusActive, res.Contract.Status)
	assert.NotNil(t, res.Contract.StartDate)
	assert.Len(t, res.Milestones, 2)

	_, err = uc.Execute(ctx, c.ID, pro, nil)
	assert.True(t, apperror.IsInvalidState(err))
}

func TestActivateContract_BadPlanRollsBack(t *testing.T) {
	env := usecasetest.New(t)
	pro := uuid.New()
	_, c := env.Contract(t, uuid.New(), pro, "1000", false)
	ctx := context.Background()

	_, err := contract.NewActivateContractUseCase(env.Store, env.Log).Execute(ctx, c.ID, pro, []entity.MilestoneSpec{
		{Description: "всё", PaymentPercent: decimal.NewFromInt(120)},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))

	stored, err := env.Store.FindContract(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.ContractStatusPendingSignature, stored.Status)
}

func TestCompleteContract(t *testing.T) {
	env := usecasetest.New(t)
	client, pro := uuid.New(), uuid.New()
	gig, c := env.Contract(t, client, pro, "500", true)
	ctx := context.Background()
	uc := contract.NewCompleteContractUseCase(env.Store, env.Log)

	deps := escrow.Deps{Store: env.Store, Rail: escrow.NewLedgerOnlyRail(env.Log), Relay: env.Relay, Log: env.Log}
	e, err := escrow.NewInitiateEscrowUseCase(deps).Execute(ctx, escrow.InitiateEscrowInput{ContractID: c.ID, ActorID: client})
	require.NoError(t, err)

	_, err = uc.Execute(ctx, c.ID, pro)
	assert.True(t, apperror.IsUnauthorized(err))

	_, err = uc.Execute(ctx, c.ID, client)
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidState(err))

	_, err = escrow.NewFundEscrowUseCase(deps).Execute(ctx, e.ID, client)
	require.NoError(t, err)
	_, err = escrow.NewReleaseEscrowUseCase(deps).Execute(ctx, e.ID, client, false)
	require.NoError(t, err)

	done, err := uc.Execute(ctx, c.ID, client)
	require.NoError(t, err)
	assert.Equal(t, valueobject.ContractStatusCompleted, done.Status)
	assert.NotNil(t, done.EndDate)

	storedGig, err := env.Store.FindGig(ctx, gig.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.GigStatusCompleted, storedGig.Status)
}

func TestCompleteContract_RequiresActive(t *testing.T) {
	env := usecasetest.New(t)
	client := uuid.New()
	_, c := env.Contract(t, client, uuid.New(), "500", false)

	_, err := contract.NewCompleteContractUseCase(env.Store, env.Log).Execute(context.Background(), c.ID, client)
	assert.True(t, apperror.IsInvalidState(err))
}

func TestCancelContract(t *testing.T) {
	env := usecasetest.New(t)
	client, pro := uuid.New(), uuid.New()
	gig, c := env.Contract(t, client, pro, "500", false)
	ctx := context.Background()
	uc := contract.NewCancelContractUseCase(env.Store, env.Log)

	_, err := uc.Execute(ctx, c.ID, uuid.New())
	assert.True(t, apperror.IsUnauthorized(err))

	cancelled, err := uc.Execute(ctx, c.ID, pro)
	require.NoError(t, err)
	assert.Equal(t, valueobject.ContractStatusCancelled, cancelled.Status)

	storedGig, err := env.Store.FindGig(ctx, gig.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.GigStatusCancelled, storedGig.Status)

	_, err = uc.Execute(ctx, c.ID, client)
	assert.True(t, apperror.IsInvalidState(err))
}
