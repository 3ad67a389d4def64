package gig

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/gigmarket/internal/domain/entity"
	"github.com/ignatzorin/gigmarket/internal/domain/repository"
	"github.com/ignatzorin/gigmarket/internal/pkg/apperror"
	"github.com/ignatzorin/gigmarket/internal/usecase/txretry"
)

type CreateGigInput struct {
	OwnerID     uuid.UUID
	Title       string
	Description string
	Budget      *decimal.Decimal
	Deadline    *time.Time
	Skills      []string
}

type CreateGigUseCase struct {
	store repository.LedgerStore
	log   logrus.FieldLogger
}

func NewCreateGigUseCase(store repository.LedgerStore, log logrus.FieldLogger) *CreateGigUseCase {
	return &CreateGigUseCase{
		store: store,
		log:   log,
	}
}

func (uc *CreateGigUseCase) Execute(ctx context.Context, input CreateGigInput) (*entity.Gig, error) {
	gig, err := entity.NewGig(input.OwnerID, input.Title, input.Description, input.Budget, input.Deadline, input.Skills)
	if err != nil {
		return nil, err
	}

	err = txretry.Do(ctx, uc.log, "gig.create", func(ctx context.Context) error {
		return uc.store.Atomic(ctx, func(tx repository.LedgerTx) error {
			return tx.CreateGig(ctx, gig)
		})
	})
	if err != nil {
		return nil, err
	}

	uc.log.WithFields(logrus.Fields{
		"gig_id":   gig.ID,
		"owner_id": gig.OwnerID,
	}).Info("заказ опубликован")

	return gig, nil
}

type CancelGigUseCase struct {
	store repository.LedgerStore
	log   logrus.FieldLogger
}

func NewCancelGigUseCase(store repository.LedgerStore, log logrus.FieldLogger) *CancelGigUseCase {
	return &CancelGigUseCase{
		store: store,
		log:   log,
	}
}

// Execute отменяет открытый заказ. Заказ в работе закрывается через контракт.
func (uc *CancelGigUseCase) Execute(ctx context.Context, gigID, actorID uuid.UUID) (*entity.Gig, error) {
	var result *entity.Gig
	err := txretry.Do(ctx, uc.log, "gig.cancel", func(ctx context.Context) error {
		return uc.store.Atomic(ctx, func(tx repository.LedgerTx) error {
			gig, err := tx.LockGig(ctx, gigID)
			if err != nil {
				return err
			}
			if !gig.IsOwnedBy(actorID) {
				return apperror.New(apperror.ErrCodeUnauthorized, "отменить заказ может только владелец")
			}
			if !gig.IsOpen() {
				return apperror.Newf(apperror.ErrCodeInvalidState, "заказ в статусе %s нельзя отменить, закройте контракт", gig.Status)
			}
			if err := gig.Cancel(); err != nil {
				return err
			}
			if err := tx.UpdateGig(ctx, gig); err != nil {
				return err
			}
			result = gig
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	uc.log.WithField("gig_id", result.ID).Info("заказ отменён")
	return result, nil
}
