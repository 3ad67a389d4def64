package persistence

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/gigmarket/internal/domain/entity"
	"github.com/ignatzorin/gigmarket/internal/pkg/apperror"
)

const openEscrowStatuses = `('pending', 'funded', 'disputed')`

// ledgerQueries работает поверх *sqlx.DB и *sqlx.Tx одинаково.
// Запросы пишутся с ? и проходят через Rebind.
type ledgerQueries struct {
	ext     sqlx.ExtContext
	dialect dialect
}

func (q *ledgerQueries) get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return sqlx.GetContext(ctx, q.ext, dest, q.ext.Rebind(query), args...)
}

func (q *ledgerQueries) sel(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return sqlx.SelectContext(ctx, q.ext, dest, q.ext.Rebind(query), args...)
}

func (q *ledgerQueries) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return q.ext.ExecContext(ctx, q.ext.Rebind(query), args...)
}

// execOne выполняет UPDATE и возвращает notFound, если строка не найдена.
func (q *ledgerQueries) execOne(ctx context.Context, notFound error, message, query string, args ...interface{}) error {
	res, err := q.exec(ctx, query, args...)
	if err != nil {
		return wrapErr(err, message)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapErr(err, message)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// Заказы

func (q *ledgerQueries) FindGig(ctx context.Context, id uuid.UUID) (*entity.Gig, error) {
	return q.getGig(ctx, id, "")
}

func (q *ledgerQueries) LockGig(ctx context.Context, id uuid.UUID) (*entity.Gig, error) {
	return q.getGig(ctx, id, q.dialect.forUpdate)
}

func (q *ledgerQueries) getGig(ctx context.Context, id uuid.UUID, suffix string) (*entity.Gig, error) {
	var row gigRow
	err := q.get(ctx, &row, `SELECT `+gigColumns+` FROM gigs WHERE id = ?`+suffix, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrGigNotFound
	}
	if err != nil {
		return nil, wrapErr(err, "не удалось получить заказ")
	}

	skills, err := q.gigSkills(ctx, id)
	if err != nil {
		return nil, err
	}
	return row.toEntity(skills), nil
}

func (q *ledgerQueries) gigSkills(ctx context.Context, gigID uuid.UUID) ([]string, error) {
	skills := []string{}
	if err := q.sel(ctx, &skills, `SELECT skill FROM gig_skills WHERE gig_id = ? ORDER BY skill`, gigID); err != nil {
		return nil, wrapErr(err, "не удалось получить навыки заказа")
	}
	return skills, nil
}

func (q *ledgerQueries) CreateGig(ctx context.Context, gig *entity.Gig) error {
	_, err := q.exec(ctx, `
		INSERT INTO gigs (`+gigColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		gig.ID, gig.OwnerID, gig.Title, gig.Description, gig.Budget, gig.Deadline,
		string(gig.Status), string(gig.EscrowStatus), gig.CreatedAt, gig.UpdatedAt,
	)
	if err != nil {
		return wrapErr(err, "не удалось создать заказ")
	}

	for _, skill := range gig.Skills {
		if _, err := q.exec(ctx, `INSERT INTO gig_skills (gig_id, skill) VALUES (?, ?)`, gig.ID, skill); err != nil {
			return wrapErr(err, "не удалось сохранить навыки заказа")
		}
	}
	return nil
}

func (q *ledgerQueries) UpdateGig(ctx context.Context, gig *entity.Gig) error {
	return q.execOne(ctx, apperror.ErrGigNotFound, "не удалось обновить заказ", `
		UPDATE gigs SET status = ?, escrow_status = ?, updated_at = ?
		WHERE id = ?`,
		string(gig.Status), string(gig.EscrowStatus), gig.UpdatedAt, gig.ID,
	)
}

// Предложения

func (q *ledgerQueries) FindProposal(ctx context.Context, id uuid.UUID) (*entity.Proposal, error) {
	var row proposalRow
	err := q.get(ctx, &row, `SELECT `+proposalColumns+` FROM proposals WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrProposalNotFound
	}
	if err != nil {
		return nil, wrapErr(err, "не удалось получить предложение")
	}
	return row.toEntity(), nil
}

func (q *ledgerQueries) CreateProposal(ctx context.Context, p *entity.Proposal) error {
	_, err := q.exec(ctx, `
		INSERT INTO proposals (`+proposalColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.GigID, p.BidderID, p.Message, p.Rate, p.Timeline,
		string(p.Status), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return wrapErr(err, "не удалось создать предложение")
	}
	return nil
}

func (q *ledgerQueries) UpdateProposal(ctx context.Context, p *entity.Proposal) error {
	return q.execOne(ctx, apperror.ErrProposalNotFound, "не удалось обновить предложение", `
		UPDATE proposals SET status = ?, updated_at = ?
		WHERE id = ?`,
		string(p.Status), p.UpdatedAt, p.ID,
	)
}

func (q *ledgerQueries) HasPendingProposal(ctx context.Context, gigID, bidderID uuid.UUID) (bool, error) {
	var count int
	err := q.get(ctx, &count, `
		SELECT COUNT(*) FROM proposals
		WHERE gig_id = ? AND bidder_id = ? AND status = 'pending'`,
		gigID, bidderID,
	)
	if err != nil {
		return false, wrapErr(err, "не удалось проверить предложения")
	}
	return count > 0, nil
}

// Контракты

func (q *ledgerQueries) FindContract(ctx context.Context, id uuid.UUID) (*entity.Contract, error) {
	return q.getContract(ctx, `WHERE id = ?`, id)
}

func (q *ledgerQueries) LockContract(ctx context.Context, id uuid.UUID) (*entity.Contract, error) {
	return q.getContract(ctx, `WHERE id = ?`+q.dialect.forUpdate, id)
}

func (q *ledgerQueries) FindContractByProposal(ctx context.Context, proposalID uuid.UUID) (*entity.Contract, error) {
	c, err := q.getContract(ctx, `WHERE proposal_id = ?`, proposalID)
	if errors.Is(err, apperror.ErrContractNotFound) {
		return nil, nil
	}
	return c, err
}

func (q *ledgerQueries) getContract(ctx context.Context, where string, arg interface{}) (*entity.Contract, error) {
	var row contractRow
	err := q.get(ctx, &row, `SELECT `+contractColumns+` FROM contracts `+where, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrContractNotFound
	}
	if err != nil {
		return nil, wrapErr(err, "не удалось получить контракт")
	}
	return row.toEntity(), nil
}

func (q *ledgerQueries) CreateContract(ctx context.Context, c *entity.Contract) error {
	_, err := q.exec(ctx, `
		INSERT INTO contracts (`+contractColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.GigID, c.ProposalID, c.ClientID, c.ProfessionalID, c.TotalAmount, c.Terms,
		string(c.Status), c.StartDate, c.EndDate, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return wrapErr(err, "не удалось создать контракт")
	}
	return nil
}

func (q *ledgerQueries) UpdateContract(ctx context.Context, c *entity.Contract) error {
	return q.execOne(ctx, apperror.ErrContractNotFound, "не удалось обновить контракт", `
		UPDATE contracts SET status = ?, start_date = ?, end_date = ?, updated_at = ?
		WHERE id = ?`,
		string(c.Status), c.StartDate, c.EndDate, c.UpdatedAt, c.ID,
	)
}

// Этапы

func (q *ledgerQueries) FindMilestone(ctx context.Context, id uuid.UUID) (*entity.Milestone, error) {
	var row milestoneRow
	err := q.get(ctx, &row, `SELECT `+milestoneColumns+` FROM milestones WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrMilestoneNotFound
	}
	if err != nil {
		return nil, wrapErr(err, "не удалось получить этап")
	}
	return row.toEntity(), nil
}

func (q *ledgerQueries) ListMilestones(ctx context.Context, contractID uuid.UUID) ([]*entity.Milestone, error) {
	var rows []milestoneRow
	err := q.sel(ctx, &rows, `
		SELECT `+milestoneColumns+` FROM milestones
		WHERE contract_id = ? ORDER BY sequence`, contractID)
	if err != nil {
		return nil, wrapErr(err, "не удалось получить этапы")
	}
	return toMilestoneEntities(rows), nil
}

func (q *ledgerQueries) CreateMilestones(ctx context.Context, milestones []*entity.Milestone) error {
	for _, m := range milestones {
		_, err := q.exec(ctx, `
			INSERT INTO milestones (`+milestoneColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID, m.ContractID, m.Description, m.Sequence, string(m.Status),
			m.PaymentPercent, m.ApprovedAt, m.CreatedAt, m.UpdatedAt,
		)
		if err != nil {
			return wrapErr(err, "не удалось создать этапы")
		}
	}
	return nil
}

func (q *ledgerQueries) UpdateMilestone(ctx context.Context, m *entity.Milestone) error {
	return q.execOne(ctx, apperror.ErrMilestoneNotFound, "не удалось обновить этап", `
		UPDATE milestones SET status = ?, approved_at = ?, updated_at = ?
		WHERE id = ?`,
		string(m.Status), m.ApprovedAt, m.UpdatedAt, m.ID,
	)
}

// Эскроу

func (q *ledgerQueries) FindEscrow(ctx context.Context, id uuid.UUID) (*entity.EscrowTransaction, error) {
	var row escrowRow
	err := q.get(ctx, &row, `SELECT `+escrowColumns+` FROM escrow_transactions WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrEscrowNotFound
	}
	if err != nil {
		return nil, wrapErr(err, "не удалось получить эскроу")
	}
	return row.toEntity(), nil
}

func (q *ledgerQueries) ListContractEscrow(ctx context.Context, contractID uuid.UUID) ([]*entity.EscrowTransaction, error) {
	var rows []escrowRow
	err := q.sel(ctx, &rows, `
		SELECT `+escrowColumns+` FROM escrow_transactions
		WHERE contract_id = ? ORDER BY created_at`, contractID)
	if err != nil {
		return nil, wrapErr(err, "не удалось получить эскроу контракта")
	}
	return toEscrowEntities(rows), nil
}

func (q *ledgerQueries) CountOpenEscrow(ctx context.Context, contractID uuid.UUID) (int, error) {
	var count int
	err := q.get(ctx, &count, `
		SELECT COUNT(*) FROM escrow_transactions
		WHERE contract_id = ? AND status IN `+openEscrowStatuses, contractID)
	if err != nil {
		return 0, wrapErr(err, "не удалось посчитать эскроу")
	}
	return count, nil
}

func (q *ledgerQueries) CreateEscrow(ctx context.Context, e *entity.EscrowTransaction) error {
	_, err := q.exec(ctx, `
		INSERT INTO escrow_transactions (`+escrowColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.GigID, e.ContractID, e.MilestoneID, e.Amount, string(e.Status),
		e.DisputeReason, e.DisputedBy, e.Resolution,
		e.CreatedAt, e.FundedAt, e.ReleasedAt, e.UpdatedAt,
	)
	if err != nil {
		return wrapErr(err, "не удалось создать эскроу")
	}
	return nil
}

func (q *ledgerQueries) UpdateEscrow(ctx context.Context, e *entity.EscrowTransaction) error {
	return q.execOne(ctx, apperror.ErrEscrowNotFound, "не удалось обновить эскроу", `
		UPDATE escrow_transactions
		SET status = ?, dispute_reason = ?, disputed_by = ?, resolution = ?,
			funded_at = ?, released_at = ?, updated_at = ?
		WHERE id = ?`,
		string(e.Status), e.DisputeReason, e.DisputedBy, e.Resolution,
		e.FundedAt, e.ReleasedAt, e.UpdatedAt, e.ID,
	)
}

// Профили и outbox

func (q *ledgerQueries) DisplayName(ctx context.Context, userID uuid.UUID) (string, error) {
	var name string
	err := q.get(ctx, &name, `SELECT display_name FROM profiles WHERE user_id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", wrapErr(err, "не удалось получить профиль")
	}
	return name, nil
}

func (q *ledgerQueries) EnqueueNotification(ctx context.Context, e *entity.OutboxEntry) (bool, error) {
	res, err := q.exec(ctx, `
		INSERT INTO notification_outbox
			(id, recipient_id, type, subject_id, dedup_key, payload, status, attempts, next_attempt_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (dedup_key) DO NOTHING`,
		e.ID, e.RecipientID, string(e.Type), e.SubjectID, e.DedupKey(), string(e.Payload),
		string(e.Status), e.Attempts, e.NextAttemptAt, e.CreatedAt,
	)
	if err != nil {
		return false, wrapErr(err, "не удалось поставить уведомление в очередь")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrapErr(err, "не удалось поставить уведомление в очередь")
	}
	return n > 0, nil
}
