package escrow

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/gigmarket/internal/domain/entity"
)

// PaymentRail двигает реальные деньги. Вызывается внутри транзакции эскроу:
// ошибка рельса откатывает переход.
type PaymentRail interface {
	Hold(ctx context.Context, escrow *entity.EscrowTransaction) error
	Payout(ctx context.Context, escrow *entity.EscrowTransaction) error
	Refund(ctx context.Context, escrow *entity.EscrowTransaction) error
}

// LedgerOnlyRail ведёт только учёт и пишет движения в лог.
type LedgerOnlyRail struct {
	log logrus.FieldLogger
}

func NewLedgerOnlyRail(log logrus.FieldLogger) *LedgerOnlyRail {
	return &LedgerOnlyRail{log: log}
}

func (r *LedgerOnlyRail) Hold(_ context.Context, e *entity.EscrowTransaction) error {
	r.entry(e).Info("средства зарезервированы")
	return nil
}

func (r *LedgerOnlyRail) Payout(_ context.Context, e *entity.EscrowTransaction) error {
	r.entry(e).Info("средства выплачены исполнителю")
	return nil
}

func (r *LedgerOnlyRail) Refund(_ context.Context, e *entity.EscrowTransaction) error {
	r.entry(e).Info("средства возвращены заказчику")
	return nil
}

func (r *LedgerOnlyRail) entry(e *entity.EscrowTransaction) *logrus.Entry {
	return r.log.WithFields(logrus.Fields{
		"escrow_id":   e.ID,
		"contract_id": e.ContractID,
		"amount":      e.Amount.StringFixed(2),
		"rail":        "ledger",
	})
}
