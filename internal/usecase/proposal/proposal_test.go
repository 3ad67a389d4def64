package proposal_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/gigmarket/internal/db/dbtest"
	"github.com/ignatzorin/gigmarket/internal/domain/entity"
	"github.com/ignatzorin/gigmarket/internal/domain/valueobject"
	"github.com/ignatzorin/gigmarket/internal/pkg/apperror"
	"github.com/ignatzorin/gigmarket/internal/usecase/proposal"
	"github.com/ignatzorin/gigmarket/internal/usecase/usecasetest"
)

func TestSubmitProposal(t *testing.T) {
	env := usecasetest.New(t)
	ctx := context.Background()
	owner, bidder := uuid.New(), uuid.New()
	gig := env.Gig(t, owner, usecasetest.Dec("1000"))

	uc := proposal.NewSubmitProposalUseCase(env.Store, env.Log)

	p, err := uc.Execute(ctx, proposal.SubmitProposalInput{
		GigID:    gig.ID,
		BidderID: bidder,
		Message:  "Опыт 5 лет",
		Rate:     usecasetest.Dec("900"),
	})
	require.NoError(t, err)
	assert.Equal(t, valueobject.ProposalStatusPending, p.Status)

	t.Run("duplicate pending", func(t *testing.T) {
		_, err := uc.Execute(ctx, proposal.SubmitProposalInput{GigID: gig.ID, BidderID: bidder, Message: "ещё раз"})
		require.Error(t, err)
		assert.Equal(t, apperror.ErrCodeDuplicateProposal, apperror.CodeOf(err))
	})

	t.Run("owner cannot bid", func(t *testing.T) {
		_, err := uc.Execute(ctx, proposal.SubmitProposalInput{GigID: gig.ID, BidderID: owner, Message: "сам себе"})
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("non-positive rate", func(t *testing.T) {
		_, err := uc.Execute(ctx, proposal.SubmitProposalInput{
			GigID: gig.ID, BidderID: uuid.New(), Message: "бесплатно", Rate: usecasetest.Dec("0"),
		})
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("missing gig", func(t *testing.T) {
		_, err := uc.Execute(ctx, proposal.SubmitProposalInput{GigID: uuid.New(), BidderID: uuid.New(), Message: "привет"})
		assert.True(t, apperror.IsNotFound(err))
	})
}

func TestAcceptProposal_CreatesContractAndNotifies(t *testing.T) {
	env := usecasetest.New(t)
	ctx := context.Background()
	owner, bidder := uuid.New(), uuid.New()
	dbtest.SeedProfile(t, env.DB, owner, "Мария")

	gig := env.Gig(t, owner, usecasetest.Dec("1000"))
	p := env.Proposal(t, gig.ID, bidder, usecasetest.Dec("900"))

	uc := proposal.NewAcceptProposalUseCase(env.Store, env.Relay, env.Log)
	res, err := uc.Execute(ctx, p.ID, owner)
	require.NoError(t, err)

	assert.Equal(t, valueobject.ProposalStatusAccepted, res.Proposal.Status)
	assert.Equal(t, valueobject.GigStatusInProgress, res.Gig.Status)
	assert.Equal(t, valueobject.ContractStatusPendingSignature, res.Contract.Status)
	assert.True(t, res.Contract.TotalAmount.Equal(*usecasetest.Dec("900")))
	assert.Equal(t, "Сведу за три дня", res.Contract.Terms)
	assert.Equal(t, owner, res.Contract.ClientID)
	assert.Equal(t, bidder, res.Contract.ProfessionalID)

	storedGig, err := env.Store.FindGig(ctx, gig.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.GigStatusInProgress, storedGig.Status)

	inbox := env.Inbox(t, bidder)
	require.Len(t, inbox, 1)
	payload, ok := inbox[0].Payload.(entity.ProposalAcceptedPayload)
	require.True(t, ok)
	assert.Equal(t, res.Contract.ID, payload.ContractID)
	assert.Equal(t, "Мария", payload.ClientName)
	assert.Equal(t, gig.Title, payload.GigTitle)
}

func TestAcceptProposal_TotalFallsBackToBudget(t *testing.T) {
	env := usecasetest.New(t)
	owner := uuid.New()
	gig := env.Gig(t, owner, usecasetest.Dec("750"))
	p := env.Proposal(t, gig.ID, uuid.New(), nil)

	res, err := proposal.NewAcceptProposalUseCase(env.Store, env.Relay, env.Log).Execute(context.Background(), p.ID, owner)
	require.NoError(t, err)
	assert.True(t, res.Contract.TotalAmount.Equal(*usecasetest.Dec("750")))
}

func TestAcceptProposal_Idempotent(t *testing.T) {
	env := usecasetest.New(t)
	ctx := context.Background()
	owner, bidder := uuid.New(), uuid.New()
	gig := env.Gig(t, owner, nil)
	p := env.Proposal(t, gig.ID, bidder, usecasetest.Dec("500"))

	uc := proposal.NewAcceptProposalUseCase(env.Store, env.Relay, env.Log)
	first, err := uc.Execute(ctx, p.ID, owner)
	require.NoError(t, err)
	second, err := uc.Execute(ctx, p.ID, owner)
	require.NoError(t, err)

	assert.Equal(t, first.Contract.ID, second.Contract.ID)
	assert.Len(t, env.Inbox(t, bidder), 1)
}

func TestAcceptProposal_OnlyOwner(t *testing.T) {
	env := usecasetest.New(t)
	gig := env.Gig(t, uuid.New(), nil)
	p := env.Proposal(t, gig.ID, uuid.New(), nil)

	_, err := proposal.NewAcceptProposalUseCase(env.Store, env.Relay, env.Log).Execute(context.Background(), p.ID, uuid.New())
	require.Error(t, err)
	assert.True(t, apperror.IsUnauthorized(err))

	stored, err := env.Store.FindProposal(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.ProposalStatusPending, stored.Status)
}

func TestAcceptProposal_SecondProposalOnSameGigFails(t *testing.T) {
	env := usecasetest.New(t)
	ctx := context.Background()
	owner := uuid.New()
	gig := env.Gig(t, owner, nil)
	a := env.Proposal(t, gig.ID, uuid.New(), nil)
	b := env.Proposal(t, gig.ID, uuid.New(), nil)

	uc := proposal.NewAcceptProposalUseCase(env.Store, env.Relay, env.Log)
	_, err := uc.Execute(ctx, a.ID, owner)
	require.NoError(t, err)

	_, err = uc.Execute(ctx, b.ID, owner)
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidState(err))

	sibling, err := env.Store.FindProposal(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.ProposalStatusPending, sibling.Status)
}

func TestAcceptProposal_ConcurrentAcceptsYieldOneContract(t *testing.T) {
	raceAccepts(t, usecasetest.New(t))
}

// На PostgreSQL гонку разрешает SELECT ... FOR UPDATE по заказу,
// на SQLite запись сериализует единственное соединение.
func TestAcceptProposal_ConcurrentAcceptsPostgres(t *testing.T) {
	raceAccepts(t, usecasetest.NewPostgres(t))
}

func raceAccepts(t *testing.T, env *usecasetest.Env) {
	t.Helper()
	ctx := context.Background()
	owner := uuid.New()
	gig := env.Gig(t, owner, usecasetest.Dec("1000"))
	a := env.Proposal(t, gig.ID, uuid.New(), nil)
	b := env.Proposal(t, gig.ID, uuid.New(), nil)

	uc := proposal.NewAcceptProposalUseCase(env.Store, env.Relay, env.Log)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []uuid.UUID{a.ID, b.ID} {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			_, errs[i] = uc.Execute(ctx, id, owner)
		}(i, id)
	}
	wg.Wait()

	var ok, invalid int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case apperror.IsInvalidState(err):
			invalid++
		default:
			t.Fatalf("неожиданная ошибка: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, invalid)

	var accepted, contracts int
	require.NoError(t, env.DB.Get(&accepted, env.DB.Rebind(`SELECT COUNT(*) FROM proposals WHERE gig_id = ? AND status = 'accepted'`), gig.ID))
	require.NoError(t, env.DB.Get(&contracts, env.DB.Rebind(`SELECT COUNT(*) FROM contracts WHERE gig_id = ?`), gig.ID))
	assert.Equal(t, 1, accepted)
	assert.Equal(t, 1, contracts)
}

func TestRejectProposal(t *testing.T) {
	env := usecasetest.New(t)
	ctx := context.Background()
	owner, bidder := uuid.New(), uuid.New()
	gig := env.Gig(t, owner, nil)
	p := env.Proposal(t, gig.ID, bidder, nil)

	uc := proposal.NewRejectProposalUseCase(env.Store, env.Relay, env.Log)
	rejected, err := uc.Execute(ctx, p.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, valueobject.ProposalStatusRejected, rejected.Status)

	again, err := uc.Execute(ctx, p.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, valueobject.ProposalStatusRejected, again.Status)

	inbox := env.Inbox(t, bidder)
	require.Len(t, inbox, 1)
	assert.Equal(t, valueobject.NotificationProposalRejected, inbox[0].Type)

	storedGig, err := env.Store.FindGig(ctx, gig.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.GigStatusOpen, storedGig.Status)

	_, err = proposal.NewAcceptProposalUseCase(env.Store, env.Relay, env.Log).Execute(ctx, p.ID, owner)
	assert.True(t, apperror.IsInvalidState(err))
}

func TestRejectProposal_AcceptedCannotBeRejected(t *testing.T) {
	env := usecasetest.New(t)
	ctx := context.Background()
	owner := uuid.New()
	gig := env.Gig(t, owner, nil)
	p := env.Proposal(t, gig.ID, uuid.New(), nil)

	_, err := proposal.NewAcceptProposalUseCase(env.Store, env.Relay, env.Log).Execute(ctx, p.ID, owner)
	require.NoError(t, err)

	_, err = proposal.NewRejectProposalUseCase(env.Store, env.Relay, env.Log).Execute(ctx, p.ID, owner)
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidState(err))
}
