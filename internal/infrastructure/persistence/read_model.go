package persistence

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/gigmarket/internal/domain/entity"
	"github.com/ignatzorin/gigmarket/internal/domain/repository"
	"github.com/ignatzorin/gigmarket/internal/domain/valueobject"
	"github.com/ignatzorin/gigmarket/internal/pkg/apperror"
)

// ReadModel строит проекции для списков и карточек. Только чтение, без транзакций.
type ReadModel struct {
	db *sqlx.DB
}

func NewReadModel(db *sqlx.DB) *ReadModel {
	return &ReadModel{db: db}
}

type gigListingRow struct {
	gigRow
	ProposalsCount        int `db:"proposals_count"`
	PendingProposalsCount int `db:"pending_proposals_count"`
}

const gigListingSelect = `
	SELECT %s,
		(SELECT COUNT(*) FROM proposals p WHERE p.gig_id = g.id) AS proposals_count,
		(SELECT COUNT(*) FROM proposals p WHERE p.gig_id = g.id AND p.status = 'pending') AS pending_proposals_count
	FROM gigs g`

func (r *ReadModel) ListGigs(ctx context.Context, filter repository.GigFilter) ([]repository.GigListing, int, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Status != nil {
		where = append(where, "g.status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.OwnerID != nil {
		where = append(where, "g.owner_id = ?")
		args = append(args, *filter.OwnerID)
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind(`SELECT COUNT(*) FROM gigs g`+cond), args...); err != nil {
		return nil, 0, wrapErr(err, "не удалось посчитать заказы")
	}

	query := listingQuery() + cond + ` ORDER BY g.created_at DESC, g.id LIMIT ? OFFSET ?`
	pageArgs := append(append([]interface{}{}, args...), limitOrDefault(filter.Limit), filter.Offset)

	var rows []gigListingRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), pageArgs...); err != nil {
		return nil, 0, wrapErr(err, "не удалось получить заказы")
	}

	listings, err := r.attachSkills(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	return listings, total, nil
}

func (r *ReadModel) GetGigListing(ctx context.Context, gigID uuid.UUID) (*repository.GigListing, error) {
	var row gigListingRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(listingQuery()+` WHERE g.id = ?`), gigID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrGigNotFound
	}
	if err != nil {
		return nil, wrapErr(err, "не удалось получить заказ")
	}

	listings, err := r.attachSkills(ctx, []gigListingRow{row})
	if err != nil {
		return nil, err
	}
	return &listings[0], nil
}

// attachSkills подгружает навыки всех заказов страницы одним запросом.
func (r *ReadModel) attachSkills(ctx context.Context, rows []gigListingRow) ([]repository.GigListing, error) {
	listings := make([]repository.GigListing, len(rows))
	if len(rows) == 0 {
		return listings, nil
	}

	ids := make([]uuid.UUID, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
	}

	query, args, err := sqlx.In(`SELECT gig_id, skill FROM gig_skills WHERE gig_id IN (?) ORDER BY skill`, ids)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось построить запрос навыков")
	}

	var skillRows []struct {
		GigID uuid.UUID `db:"gig_id"`
		Skill string    `db:"skill"`
	}
	if err := r.db.SelectContext(ctx, &skillRows, r.db.Rebind(query), args...); err != nil {
		return nil, wrapErr(err, "не удалось получить навыки заказов")
	}

	skills := make(map[uuid.UUID][]string, len(rows))
	for _, s := range skillRows {
		skills[s.GigID] = append(skills[s.GigID], s.Skill)
	}

	for i := range rows {
		listings[i] = repository.GigListing{
			Gig:                   rows[i].toEntity(skills[rows[i].ID]),
			ProposalsCount:        rows[i].ProposalsCount,
			PendingProposalsCount: rows[i].PendingProposalsCount,
		}
	}
	return listings, nil
}

func (r *ReadModel) ListProposals(ctx context.Context, gigID uuid.UUID, bidderID *uuid.UUID) ([]*entity.Proposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM proposals WHERE gig_id = ?`
	args := []interface{}{gigID}
	if bidderID != nil {
		query += ` AND bidder_id = ?`
		args = append(args, *bidderID)
	}
	query += ` ORDER BY created_at DESC, id`

	var rows []proposalRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, wrapErr(err, "не удалось получить предложения")
	}
	return toProposalEntities(rows), nil
}

type contractSummaryRow struct {
	contractRow
	GigTitle           string              `db:"gig_title"`
	CounterpartName    *string             `db:"counterpart_name"`
	CounterpartAvatar  *string             `db:"counterpart_avatar"`
	MilestonesTotal    int                 `db:"milestones_total"`
	MilestonesApproved int                 `db:"milestones_approved"`
	EscrowStatus       *string             `db:"escrow_status"`
	ReleasedAmount     decimal.NullDecimal `db:"released_amount"`
}

// Первый параметр запроса это зритель: по нему выбирается профиль второй стороны.
const contractSummarySelect = `
	SELECT %s,
		g.title AS gig_title,
		pr.display_name AS counterpart_name,
		pr.avatar_url AS counterpart_avatar,
		(SELECT COUNT(*) FROM milestones m WHERE m.contract_id = c.id) AS milestones_total,
		(SELECT COUNT(*) FROM milestones m WHERE m.contract_id = c.id AND m.status = 'approved') AS milestones_approved,
		(SELECT e.status FROM escrow_transactions e WHERE e.contract_id = c.id
			ORDER BY e.created_at DESC LIMIT 1) AS escrow_status,
		(SELECT COALESCE(SUM(e.amount), 0) FROM escrow_transactions e
			WHERE e.contract_id = c.id AND e.status = 'released') AS released_amount
	FROM contracts c
	JOIN gigs g ON g.id = c.gig_id
	LEFT JOIN profiles pr ON pr.user_id = CASE WHEN c.client_id = ? THEN c.professional_id ELSE c.client_id END`

func (r *ReadModel) ListContractSummaries(ctx context.Context, userID uuid.UUID) ([]repository.ContractSummary, error) {
	query := summaryQuery() + ` WHERE c.client_id = ? OR c.professional_id = ? ORDER BY c.created_at DESC, c.id`

	var rows []contractSummaryRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), userID, userID, userID); err != nil {
		return nil, wrapErr(err, "не удалось получить контракты")
	}

	out := make([]repository.ContractSummary, len(rows))
	for i := range rows {
		out[i] = rows[i].toSummary(userID)
	}
	return out, nil
}

func (r *ReadModel) GetContractSummary(ctx context.Context, contractID, viewerID uuid.UUID) (*repository.ContractSummary, error) {
	var row contractSummaryRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(summaryQuery()+` WHERE c.id = ?`), viewerID, contractID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrContractNotFound
	}
	if err != nil {
		return nil, wrapErr(err, "не удалось получить контракт")
	}
	if row.ClientID != viewerID && row.ProfessionalID != viewerID {
		return nil, apperror.New(apperror.ErrCodeUnauthorized, "нет доступа к контракту")
	}

	summary := row.toSummary(viewerID)
	return &summary, nil
}

func (r *contractSummaryRow) toSummary(viewerID uuid.UUID) repository.ContractSummary {
	contract := r.contractRow.toEntity()
	role, _ := contract.RoleOf(viewerID)

	counterpart := repository.CounterpartProfile{UserID: contract.Counterpart(viewerID)}
	if r.CounterpartName != nil {
		counterpart.DisplayName = *r.CounterpartName
	}
	counterpart.AvatarURL = r.CounterpartAvatar

	var escrowStatus *valueobject.EscrowStatus
	if r.EscrowStatus != nil {
		s := valueobject.EscrowStatus(*r.EscrowStatus)
		escrowStatus = &s
	}

	released := decimal.Zero
	if r.ReleasedAmount.Valid {
		released = r.ReleasedAmount.Decimal
	}

	return repository.ContractSummary{
		Contract:           contract,
		GigTitle:           r.GigTitle,
		Role:               role,
		Counterpart:        counterpart,
		MilestonesTotal:    r.MilestonesTotal,
		MilestonesApproved: r.MilestonesApproved,
		EscrowStatus:       escrowStatus,
		ReleasedAmount:     released,
	}
}

func (r *ReadModel) ListMilestones(ctx context.Context, contractID uuid.UUID) ([]*entity.Milestone, error) {
	var rows []milestoneRow
	query := r.db.Rebind(`SELECT ` + milestoneColumns + ` FROM milestones WHERE contract_id = ? ORDER BY sequence`)
	if err := r.db.SelectContext(ctx, &rows, query, contractID); err != nil {
		return nil, wrapErr(err, "не удалось получить этапы")
	}
	return toMilestoneEntities(rows), nil
}

func (r *ReadModel) ListEscrow(ctx context.Context, contractID uuid.UUID) ([]*entity.EscrowTransaction, error) {
	var rows []escrowRow
	query := r.db.Rebind(`SELECT ` + escrowColumns + ` FROM escrow_transactions WHERE contract_id = ? ORDER BY created_at DESC, id`)
	if err := r.db.SelectContext(ctx, &rows, query, contractID); err != nil {
		return nil, wrapErr(err, "не удалось получить эскроу")
	}
	return toEscrowEntities(rows), nil
}

func listingQuery() string {
	return strings.Replace(gigListingSelect, "%s", prefixed("g", gigColumns), 1)
}

func summaryQuery() string {
	return strings.Replace(contractSummarySelect, "%s", prefixed("c", contractColumns), 1)
}

// prefixed добавляет псевдоним таблицы к списку колонок.
func prefixed(alias, columns string) string {
	cols := strings.Split(columns, ", ")
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

var _ repository.ReadModel = (*ReadModel)(nil)
