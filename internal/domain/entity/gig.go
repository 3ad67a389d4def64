package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/gigmarket/internal/domain/valueobject"
	"github.com/ignatzorin/gigmarket/internal/pkg/apperror"
	"github.com/ignatzorin/gigmarket/internal/validation"
)

type Gig struct {
	ID           uuid.UUID
	OwnerID      uuid.UUID
	Title        string
	Description  string
	Budget       *decimal.Decimal
	Deadline     *time.Time
	Skills       []string
	Status       valueobject.GigStatus
	EscrowStatus valueobject.EscrowStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func NewGig(ownerID uuid.UUID, title, description string, budget *decimal.Decimal, deadline *time.Time, skills []string) (*Gig, error) {
	title = strings.TrimSpace(title)
	if err := validation.ValidateGigTitle(title); err != nil {
		return nil, err
	}
	if err := validation.ValidateGigDescription(description); err != nil {
		return nil, err
	}
	if err := validation.ValidateSkills(skills); err != nil {
		return nil, err
	}

	if budget != nil {
		b, err := valueobject.NewAmount(*budget)
		if err != nil {
			return nil, err
		}
		budget = &b
	}

	created := now()
	if deadline != nil && deadline.Before(created) {
		return nil, apperror.New(apperror.ErrCodeValidation, "дедлайн не может быть в прошлом")
	}

	return &Gig{
		ID:           uuid.New(),
		OwnerID:      ownerID,
		Title:        title,
		Description:  description,
		Budget:       budget,
		Deadline:     deadline,
		Skills:       normalizeSkills(skills),
		Status:       valueobject.GigStatusOpen,
		EscrowStatus: valueobject.EscrowStatusPending,
		CreatedAt:    created,
		UpdatedAt:    created,
	}, nil
}

func (g *Gig) IsOwnedBy(userID uuid.UUID) bool {
	return g.OwnerID == userID
}

func (g *Gig) IsOpen() bool {
	return g.Status == valueobject.GigStatusOpen
}

func (g *Gig) StartWork() error {
	if !g.IsOpen() {
		return apperror.New(apperror.ErrCodeInvalidState, "заказ больше не открыт для откликов")
	}
	return g.transition(valueobject.GigStatusInProgress)
}

func (g *Gig) Complete() error {
	return g.transition(valueobject.GigStatusCompleted)
}

func (g *Gig) Cancel() error {
	return g.transition(valueobject.GigStatusCancelled)
}

// SetEscrowStatus обновляет денормализованный статус эскроу.
func (g *Gig) SetEscrowStatus(status valueobject.EscrowStatus) {
	g.EscrowStatus = status
	g.UpdatedAt = now()
}

func (g *Gig) transition(next valueobject.GigStatus) error {
	if !g.Status.CanTransitionTo(next) {
		return apperror.Newf(apperror.ErrCodeInvalidState, "заказ в статусе %s нельзя перевести в %s", g.Status, next)
	}
	g.Status = next
	g.UpdatedAt = now()
	return nil
}

func normalizeSkills(skills []string) []string {
	seen := make(map[string]struct{}, len(skills))
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func now() time.Time {
	return time.Now().UTC()
}
