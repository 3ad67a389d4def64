package escrow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/gigmarket/internal/domain/entity"
	"github.com/ignatzorin/gigmarket/internal/domain/valueobject"
	"github.com/ignatzorin/gigmarket/internal/pkg/apperror"
	"github.com/ignatzorin/gigmarket/internal/usecase/escrow"
	"github.com/ignatzorin/gigmarket/internal/usecase/milestone"
	"github.com/ignatzorin/gigmarket/internal/usecase/usecasetest"
)

type fixture struct {
	env      *usecasetest.Env
	deps     escrow.Deps
	client   uuid.UUID
	pro      uuid.UUID
	gig      *entity.Gig
	contract *entity.Contract
}

func newFixture(t *testing.T, total string) *fixture {
	t.Helper()
	env := usecasetest.New(t)
	client, pro := uuid.New(), uuid.New()
	gig, contract := env.Contract(t, client, pro, total, true)
	return &fixture{
		env: env,
		deps: escrow.Deps{
			Store: env.Store,
			Rail:  escrow.NewLedgerOnlyRail(env.Log),
			Relay: env.Relay,
			Log:   env.Log,
		},
		client:   client,
		pro:      pro,
		gig:      gig,
		contract: contract,
	}
}

func (f *fixture) initiate(t *testing.T, milestoneID *uuid.UUID) *entity.EscrowTransaction {
	t.Helper()
	e, err := escrow.NewInitiateEscrowUseCase(f.deps).Execute(context.Background(), escrow.InitiateEscrowInput{
		ContractID:  f.contract.ID,
		ActorID:     f.client,
		MilestoneID: milestoneID,
	})
	require.NoError(t, err)
	return e
}

func (f *fixture) funded(t *testing.T, milestoneID *uuid.UUID) *entity.EscrowTransaction {
	t.Helper()
	e := f.initiate(t, milestoneID)
	e, err := escrow.NewFundEscrowUseCase(f.deps).Execute(context.Background(), e.ID, f.client)
	require.NoError(t, err)
	return e
}

func (f *fixture) gigEscrowStatus(t *testing.T) valueobject.EscrowStatus {
	t.Helper()
	gig, err := f.env.Store.FindGig(context.Background(), f.gig.ID)
	require.NoError(t, err)
	return gig.EscrowStatus
}

func (f *fixture) milestones(t *testing.T, percents ...int64) []*entity.Milestone {
	t.Helper()
	specs := make([]entity.MilestoneSpec, 0, len(percents))
	for i, p := range percents {
		specs = append(specs, entity.MilestoneSpec{
			Description:    []string{"черновой микс", "финальный мастер", "стемы"}[i],
			PaymentPercent: decimal.NewFromInt(p),
		})
	}
	ms, err := milestone.NewCreateMilestonesUseCase(f.env.Store, f.env.Log).Execute(context.Background(), f.contract.ID, f.client, specs)
	require.NoError(t, err)
	return ms
}

func (f *fixture) approve(t *testing.T, m *entity.Milestone) {
	t.Helper()
	uc := milestone.NewAdvanceMilestoneUseCase(f.env.Store, f.env.Relay, f.env.Log)
	ctx := context.Background()
	for _, step := range []struct {
		actor  uuid.UUID
		target valueobject.MilestoneStatus
	}{
		{f.pro, valueobject.MilestoneStatusInProgress},
		{f.pro, valueobject.MilestoneStatusCompleted},
		{f.client, valueobject.MilestoneStatusApproved},
	} {
		_, err := uc.Execute(ctx, m.ID, step.actor, step.target)
		require.NoError(t, err)
	}
}

func TestInitiateEscrow_DefaultsToContractTotal(t *testing.T) {
	f := newFixture(t, "900")

	e := f.initiate(t, nil)
	assert.Equal(t, valueobject.EscrowStatusPending, e.Status)
	assert.True(t, e.Amount.Equal(decimal.NewFromInt(900)))
	assert.Equal(t, f.gig.ID, e.GigID)
	assert.Equal(t, valueobject.EscrowStatusPending, f.gigEscrowStatus(t))
}

func TestInitiateEscrow_OneOpenPerScope(t *testing.T) {
	f := newFixture(t, "900")
	f.initiate(t, nil)

	_, err := escrow.NewInitiateEscrowUseCase(f.deps).Execute(context.Background(), escrow.InitiateEscrowInput{
		ContractID: f.contract.ID,
		ActorID:    f.pro,
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidTransition(err))
}

func TestInitiateEscrow_MilestoneShare(t *testing.T) {
	f := newFixture(t, "1000")
	ms := f.milestones(t, 60, 40)

	e := f.initiate(t, &ms[0].ID)
	assert.True(t, e.Amount.Equal(decimal.NewFromInt(600)))

	other := f.initiate(t, &ms[1].ID)
	assert.True(t, other.Amount.Equal(decimal.NewFromInt(400)))
}

func TestInitiateEscrow_Rejections(t *testing.T) {
	f := newFixture(t, "900")
	uc := escrow.NewInitiateEscrowUseCase(f.deps)
	ctx := context.Background()

	_, err := uc.Execute(ctx, escrow.InitiateEscrowInput{ContractID: f.contract.ID, ActorID: uuid.New()})
	assert.True(t, apperror.IsUnauthorized(err))

	_, err = uc.Execute(ctx, escrow.InitiateEscrowInput{ContractID: uuid.New(), ActorID: f.client})
	assert.True(t, apperror.IsNotFound(err))

	negative := decimal.NewFromInt(-5)
	_, err = uc.Execute(ctx, escrow.InitiateEscrowInput{ContractID: f.contract.ID, ActorID: f.client, Amount: &negative})
	assert.True(t, apperror.IsValidation(err))
}

func TestInitiateEscrow_AmountCappedByContractTotal(t *testing.T) {
	f := newFixture(t, "900")
	uc := escrow.NewInitiateEscrowUseCase(f.deps)
	ctx := context.Background()
	initiate := func(amount string) (*entity.EscrowTransaction, error) {
		return uc.Execute(ctx, escrow.InitiateEscrowInput{
			ContractID: f.contract.ID, ActorID: f.client, Amount: usecasetest.Dec(amount),
		})
	}

	_, err := initiate("1000000")
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))

	first, err := initiate("500")
	require.NoError(t, err)
	_, err = escrow.NewFundEscrowUseCase(f.deps).Execute(ctx, first.ID, f.client)
	require.NoError(t, err)
	_, err = escrow.NewReleaseEscrowUseCase(f.deps).Execute(ctx, first.ID, f.client, true)
	require.NoError(t, err)

	// выплаченное эскроу остаётся в счёте стоимости контракта
	_, err = initiate("500")
	assert.True(t, apperror.IsValidation(err))

	rest, err := initiate("400")
	require.NoError(t, err)
	assert.True(t, rest.Amount.Equal(decimal.NewFromInt(400)))
}

func TestInitiateEscrow_ContractAndMilestoneScopesExclusive(t *testing.T) {
	f := newFixture(t, "900")
	ms := f.milestones(t, 60, 40)
	ctx := context.Background()
	uc := escrow.NewInitiateEscrowUseCase(f.deps)

	whole := f.funded(t, nil)

	_, err := uc.Execute(ctx, escrow.InitiateEscrowInput{ContractID: f.contract.ID, ActorID: f.client, MilestoneID: &ms[0].ID})
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidTransition(err))

	_, err = escrow.NewReleaseEscrowUseCase(f.deps).Execute(ctx, whole.ID, f.client, true)
	require.NoError(t, err)

	_, err = uc.Execute(ctx, escrow.InitiateEscrowInput{ContractID: f.contract.ID, ActorID: f.client, MilestoneID: &ms[0].ID})
	assert.True(t, apperror.IsInvalidTransition(err))

	escrows, err := f.env.Reads.ListEscrow(ctx, f.contract.ID)
	require.NoError(t, err)
	released := decimal.Zero
	for _, e := range escrows {
		if e.Status == valueobject.EscrowStatusReleased {
			released = released.Add(e.Amount)
		}
	}
	assert.True(t, released.Equal(decimal.NewFromInt(900)), "выплачено %s", released)
}

func TestInitiateEscrow_RefundFreesScope(t *testing.T) {
	f := newFixture(t, "900")
	ms := f.milestones(t, 60, 40)
	ctx := context.Background()

	part := f.funded(t, &ms[0].ID)

	_, err := escrow.NewInitiateEscrowUseCase(f.deps).Execute(ctx, escrow.InitiateEscrowInput{ContractID: f.contract.ID, ActorID: f.client})
	assert.True(t, apperror.IsInvalidTransition(err))

	_, err = escrow.NewDisputeEscrowUseCase(f.deps).Execute(ctx, part.ID, f.client, "этап сорван")
	require.NoError(t, err)
	_, err = escrow.NewResolveDisputeUseCase(f.deps).Execute(ctx, part.ID,
		escrow.Arbiter{ID: uuid.New(), Role: escrow.ArbiterRole}, valueobject.EscrowStatusRefunded, "")
	require.NoError(t, err)

	whole := f.initiate(t, nil)
	assert.True(t, whole.Amount.Equal(decimal.NewFromInt(900)))
}

func TestFundEscrow(t *testing.T) {
	f := newFixture(t, "900")
	e := f.initiate(t, nil)
	uc := escrow.NewFundEscrowUseCase(f.deps)
	ctx := context.Background()

	_, err := uc.Execute(ctx, e.ID, f.pro)
	require.Error(t, err)
	assert.True(t, apperror.IsUnauthorized(err))

	funded, err := uc.Execute(ctx, e.ID, f.client)
	require.NoError(t, err)
	assert.Equal(t, valueobject.EscrowStatusFunded, funded.Status)
	assert.NotNil(t, funded.FundedAt)
	assert.Equal(t, valueobject.EscrowStatusFunded, f.gigEscrowStatus(t))

	inbox := f.env.Inbox(t, f.pro)
	require.Len(t, inbox, 1)
	assert.Equal(t, valueobject.NotificationEscrowFunded, inbox[0].Type)

	_, err = uc.Execute(ctx, e.ID, f.client)
	assert.True(t, apperror.IsInvalidTransition(err))
}

func TestFundEscrow_ZeroAmountRejected(t *testing.T) {
	f := newFixture(t, "900")
	zero := decimal.Zero
	e, err := escrow.NewInitiateEscrowUseCase(f.deps).Execute(context.Background(), escrow.InitiateEscrowInput{
		ContractID: f.contract.ID, ActorID: f.client, Amount: &zero,
	})
	require.NoError(t, err)

	_, err = escrow.NewFundEscrowUseCase(f.deps).Execute(context.Background(), e.ID, f.client)
	assert.True(t, apperror.IsValidation(err))
}

func TestReleaseEscrow_FromPendingIsInvalidTransition(t *testing.T) {
	f := newFixture(t, "900")
	e := f.initiate(t, nil)

	_, err := escrow.NewReleaseEscrowUseCase(f.deps).Execute(context.Background(), e.ID, f.client, false)
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidTransition(err))

	stored, err := f.env.Store.FindEscrow(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.EscrowStatusPending, stored.Status)
}

func TestReleaseEscrow_GatedByMilestones(t *testing.T) {
	f := newFixture(t, "1000")
	ms := f.milestones(t, 60, 40)
	e := f.funded(t, nil)
	uc := escrow.NewReleaseEscrowUseCase(f.deps)
	ctx := context.Background()

	f.approve(t, ms[0])

	_, err := uc.Execute(ctx, e.ID, f.client, false)
	require.Error(t, err)
	assert.Equal(t, apperror.ErrCodeMilestonesIncomplete, apperror.CodeOf(err))

	_, err = uc.Execute(ctx, e.ID, f.pro, false)
	assert.Equal(t, apperror.ErrCodeMilestonesIncomplete, apperror.CodeOf(err))

	f.approve(t, ms[1])

	released, err := uc.Execute(ctx, e.ID, f.pro, false)
	require.NoError(t, err)
	assert.Equal(t, valueobject.EscrowStatusReleased, released.Status)
	assert.NotNil(t, released.ReleasedAt)
	assert.Equal(t, valueobject.EscrowStatusReleased, f.gigEscrowStatus(t))

	var types []valueobject.NotificationType
	for _, n := range f.env.Inbox(t, f.pro) {
		types = append(types, n.Type)
	}
	assert.Contains(t, types, valueobject.NotificationEscrowReleased)
	assert.Contains(t, types, valueobject.NotificationMilestoneApproved)
}

func TestReleaseEscrow_ClientOverride(t *testing.T) {
	f := newFixture(t, "1000")
	f.milestones(t, 50)
	e := f.funded(t, nil)

	released, err := escrow.NewReleaseEscrowUseCase(f.deps).Execute(context.Background(), e.ID, f.client, true)
	require.NoError(t, err)
	assert.Equal(t, valueobject.EscrowStatusReleased, released.Status)
}

func TestReleaseEscrow_WithoutMilestones(t *testing.T) {
	f := newFixture(t, "700")
	e := f.funded(t, nil)
	uc := escrow.NewReleaseEscrowUseCase(f.deps)

	_, err := uc.Execute(context.Background(), e.ID, f.pro, false)
	assert.True(t, apperror.IsUnauthorized(err))

	_, err = uc.Execute(context.Background(), e.ID, uuid.New(), false)
	assert.True(t, apperror.IsUnauthorized(err))

	released, err := uc.Execute(context.Background(), e.ID, f.client, false)
	require.NoError(t, err)
	assert.Equal(t, valueobject.EscrowStatusReleased, released.Status)
}

func TestReleaseEscrow_MilestoneScopeGatesOnlyItsMilestone(t *testing.T) {
	f := newFixture(t, "1000")
	ms := f.milestones(t, 60, 40)
	e := f.funded(t, &ms[0].ID)

	f.approve(t, ms[0])

	released, err := escrow.NewReleaseEscrowUseCase(f.deps).Execute(context.Background(), e.ID, f.pro, false)
	require.NoError(t, err)
	assert.True(t, released.Amount.Equal(decimal.NewFromInt(600)))
}

func TestDisputeAndResolve(t *testing.T) {
	f := newFixture(t, "900")
	e := f.funded(t, nil)
	ctx := context.Background()

	dispute := escrow.NewDisputeEscrowUseCase(f.deps)
	_, err := dispute.Execute(ctx, e.ID, f.pro, "  ")
	assert.True(t, apperror.IsValidation(err))

	disputed, err := dispute.Execute(ctx, e.ID, f.pro, "заказчик пропал")
	require.NoError(t, err)
	assert.Equal(t, valueobject.EscrowStatusDisputed, disputed.Status)
	require.NotNil(t, disputed.DisputedBy)
	assert.Equal(t, f.pro, *disputed.DisputedBy)
	assert.Equal(t, valueobject.EscrowStatusDisputed, f.gigEscrowStatus(t))

	assert.Len(t, f.env.Inbox(t, f.client), 1)

	_, err = escrow.NewReleaseEscrowUseCase(f.deps).Execute(ctx, e.ID, f.client, true)
	assert.True(t, apperror.IsInvalidTransition(err))

	resolve := escrow.NewResolveDisputeUseCase(f.deps)
	_, err = resolve.Execute(ctx, e.ID, escrow.Arbiter{ID: f.client, Role: "user"}, valueobject.EscrowStatusRefunded, "")
	assert.True(t, apperror.IsUnauthorized(err))

	refunded, err := resolve.Execute(ctx, e.ID, escrow.Arbiter{ID: uuid.New(), Role: escrow.ArbiterRole}, valueobject.EscrowStatusRefunded, "работа не сдана")
	require.NoError(t, err)
	assert.Equal(t, valueobject.EscrowStatusRefunded, refunded.Status)
	require.NotNil(t, refunded.Resolution)
	assert.Equal(t, "работа не сдана", *refunded.Resolution)
	assert.Equal(t, valueobject.EscrowStatusRefunded, f.gigEscrowStatus(t))

	var refundNotified bool
	for _, n := range f.env.Inbox(t, f.client) {
		if n.Type == valueobject.NotificationEscrowRefunded {
			refundNotified = true
		}
	}
	assert.True(t, refundNotified)

	// После закрытия области можно открыть новое эскроу.
	f.initiate(t, nil)
}

func TestResolveDispute_RequiresDisputed(t *testing.T) {
	f := newFixture(t, "900")
	e := f.funded(t, nil)

	_, err := escrow.NewResolveDisputeUseCase(f.deps).Execute(context.Background(), e.ID,
		escrow.Arbiter{ID: uuid.New(), Role: escrow.ArbiterRole}, valueobject.EscrowStatusReleased, "")
	assert.True(t, apperror.IsInvalidTransition(err))
}

type mockRail struct {
	mock.Mock
}

func (m *mockRail) Hold(ctx context.Context, e *entity.EscrowTransaction) error {
	return m.Called(ctx, e.ID).Error(0)
}

func (m *mockRail) Payout(ctx context.Context, e *entity.EscrowTransaction) error {
	return m.Called(ctx, e.ID).Error(0)
}

func (m *mockRail) Refund(ctx context.Context, e *entity.EscrowTransaction) error {
	return m.Called(ctx, e.ID).Error(0)
}

func TestFundEscrow_RailFailureRollsBack(t *testing.T) {
	f := newFixture(t, "900")
	e := f.initiate(t, nil)

	rail := &mockRail{}
	rail.On("Hold", mock.Anything, e.ID).Return(errors.New("шлюз недоступен")).Once()
	f.deps.Rail = rail

	_, err := escrow.NewFundEscrowUseCase(f.deps).Execute(context.Background(), e.ID, f.client)
	require.Error(t, err)
	rail.AssertExpectations(t)

	stored, err := f.env.Store.FindEscrow(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.EscrowStatusPending, stored.Status)
	assert.Empty(t, f.env.Inbox(t, f.pro))
}
