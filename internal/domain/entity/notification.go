package entity

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/blake2b"

	"github.com/ignatzorin/gigmarket/internal/domain/valueobject"
	"github.com/ignatzorin/gigmarket/internal/pkg/apperror"
)

// NotificationPayload описывает типизированные данные уведомления.
// SubjectID определяет, какое событие считается повтором.
type NotificationPayload interface {
	NotificationType() valueobject.NotificationType
	SubjectID() uuid.UUID
}

type ProposalAcceptedPayload struct {
	GigID      uuid.UUID `json:"gig_id"`
	GigTitle   string    `json:"gig_title"`
	ProposalID uuid.UUID `json:"proposal_id"`
	ContractID uuid.UUID `json:"contract_id"`
	ClientID   uuid.UUID `json:"client_id"`
	ClientName string    `json:"client_name,omitempty"`
}

func (ProposalAcceptedPayload) NotificationType() valueobject.NotificationType {
	return valueobject.NotificationProposalAccepted
}

func (p ProposalAcceptedPayload) SubjectID() uuid.UUID { return p.ProposalID }

type ProposalRejectedPayload struct {
	GigID      uuid.UUID `json:"gig_id"`
	GigTitle   string    `json:"gig_title"`
	ProposalID uuid.UUID `json:"proposal_id"`
}

func (ProposalRejectedPayload) NotificationType() valueobject.NotificationType {
	return valueobject.NotificationProposalRejected
}

func (p ProposalRejectedPayload) SubjectID() uuid.UUID { return p.ProposalID }

type ConnectionRequestPayload struct {
	RequesterID   uuid.UUID `json:"requester_id"`
	RequesterName string    `json:"requester_name,omitempty"`
}

func (ConnectionRequestPayload) NotificationType() valueobject.NotificationType {
	return valueobject.NotificationConnectionRequest
}

func (p ConnectionRequestPayload) SubjectID() uuid.UUID { return p.RequesterID }

type EscrowFundedPayload struct {
	EscrowID   uuid.UUID       `json:"escrow_id"`
	ContractID uuid.UUID       `json:"contract_id"`
	GigID      uuid.UUID       `json:"gig_id"`
	Amount     decimal.Decimal `json:"amount"`
}

func (EscrowFundedPayload) NotificationType() valueobject.NotificationType {
	return valueobject.NotificationEscrowFunded
}

func (p EscrowFundedPayload) SubjectID() uuid.UUID { return p.EscrowID }

type EscrowReleasedPayload struct {
	EscrowID   uuid.UUID       `json:"escrow_id"`
	ContractID uuid.UUID       `json:"contract_id"`
	GigID      uuid.UUID       `json:"gig_id"`
	Amount     decimal.Decimal `json:"amount"`
}

func (EscrowReleasedPayload) NotificationType() valueobject.NotificationType {
	return valueobject.NotificationEscrowReleased
}

func (p EscrowReleasedPayload) SubjectID() uuid.UUID { return p.EscrowID }

type EscrowDisputedPayload struct {
	EscrowID    uuid.UUID `json:"escrow_id"`
	ContractID  uuid.UUID `json:"contract_id"`
	GigID       uuid.UUID `json:"gig_id"`
	Reason      string    `json:"reason"`
	InitiatorID uuid.UUID `json:"initiator_id"`
}

func (EscrowDisputedPayload) NotificationType() valueobject.NotificationType {
	return valueobject.NotificationEscrowDisputed
}

func (p EscrowDisputedPayload) SubjectID() uuid.UUID { return p.EscrowID }

type EscrowRefundedPayload struct {
	EscrowID   uuid.UUID       `json:"escrow_id"`
	ContractID uuid.UUID       `json:"contract_id"`
	GigID      uuid.UUID       `json:"gig_id"`
	Amount     decimal.Decimal `json:"amount"`
}

func (EscrowRefundedPayload) NotificationType() valueobject.NotificationType {
	return valueobject.NotificationEscrowRefunded
}

func (p EscrowRefundedPayload) SubjectID() uuid.UUID { return p.EscrowID }

type MilestoneApprovedPayload struct {
	MilestoneID    uuid.UUID       `json:"milestone_id"`
	ContractID     uuid.UUID       `json:"contract_id"`
	Description    string          `json:"description"`
	PaymentPercent decimal.Decimal `json:"payment_percent"`
}

func (MilestoneApprovedPayload) NotificationType() valueobject.NotificationType {
	return valueobject.NotificationMilestoneApproved
}

func (p MilestoneApprovedPayload) SubjectID() uuid.UUID { return p.MilestoneID }

// DecodeNotificationPayload восстанавливает вариант payload по типу уведомления.
func DecodeNotificationPayload(t valueobject.NotificationType, raw []byte) (NotificationPayload, error) {
	var payload NotificationPayload
	switch t {
	case valueobject.NotificationProposalAccepted:
		payload = &ProposalAcceptedPayload{}
	case valueobject.NotificationProposalRejected:
		payload = &ProposalRejectedPayload{}
	case valueobject.NotificationConnectionRequest:
		payload = &ConnectionRequestPayload{}
	case valueobject.NotificationEscrowFunded:
		payload = &EscrowFundedPayload{}
	case valueobject.NotificationEscrowReleased:
		payload = &EscrowReleasedPayload{}
	case valueobject.NotificationEscrowDisputed:
		payload = &EscrowDisputedPayload{}
	case valueobject.NotificationEscrowRefunded:
		payload = &EscrowRefundedPayload{}
	case valueobject.NotificationMilestoneApproved:
		payload = &MilestoneApprovedPayload{}
	default:
		return nil, fmt.Errorf("notification: неизвестный тип %q", t)
	}

	if err := json.Unmarshal(raw, payload); err != nil {
		return nil, fmt.Errorf("notification: разбор payload %s: %w", t, err)
	}
	return deref(payload), nil
}

// deref возвращает payload по значению, как его создают use case'ы.
func deref(p NotificationPayload) NotificationPayload {
	switch v := p.(type) {
	case *ProposalAcceptedPayload:
		return *v
	case *ProposalRejectedPayload:
		return *v
	case *ConnectionRequestPayload:
		return *v
	case *EscrowFundedPayload:
		return *v
	case *EscrowReleasedPayload:
		return *v
	case *EscrowDisputedPayload:
		return *v
	case *EscrowRefundedPayload:
		return *v
	case *MilestoneApprovedPayload:
		return *v
	}
	return p
}

// DedupKey возвращает ключ фиксированной длины для пары (получатель, событие, субъект).
func DedupKey(recipientID uuid.UUID, t valueobject.NotificationType, subjectID uuid.UUID) string {
	sum := blake2b.Sum256([]byte(recipientID.String() + "|" + string(t) + "|" + subjectID.String()))
	return hex.EncodeToString(sum[:])
}

type Notification struct {
	ID          uuid.UUID
	RecipientID uuid.UUID
	Type        valueobject.NotificationType
	SubjectID   uuid.UUID
	Payload     NotificationPayload
	IsRead      bool
	CreatedAt   time.Time
}

func NewNotification(recipientID uuid.UUID, payload NotificationPayload) (*Notification, error) {
	if recipientID == uuid.Nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "не указан получатель уведомления")
	}
	if payload == nil || !payload.NotificationType().IsValid() {
		return nil, apperror.New(apperror.ErrCodeValidation, "некорректный тип уведомления")
	}
	return &Notification{
		ID:          uuid.New(),
		RecipientID: recipientID,
		Type:        payload.NotificationType(),
		SubjectID:   payload.SubjectID(),
		Payload:     payload,
		CreatedAt:   now(),
	}, nil
}

func (n *Notification) DedupKey() string {
	return DedupKey(n.RecipientID, n.Type, n.SubjectID)
}

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusDelivered OutboxStatus = "delivered"
	OutboxStatusDead      OutboxStatus = "dead"
)

// OutboxEntry хранит уведомление, записанное в одной транзакции с изменением состояния
// и ожидающее доставки в ящик получателя.
type OutboxEntry struct {
	ID            uuid.UUID
	RecipientID   uuid.UUID
	Type          valueobject.NotificationType
	SubjectID     uuid.UUID
	Payload       json.RawMessage
	Status        OutboxStatus
	Attempts      int
	NextAttemptAt time.Time
	LastError     *string
	CreatedAt     time.Time
	DeliveredAt   *time.Time
}

func NewOutboxEntry(recipientID uuid.UUID, payload NotificationPayload) (*OutboxEntry, error) {
	n, err := NewNotification(recipientID, payload)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("notification: сериализация payload %s: %w", n.Type, err)
	}
	return &OutboxEntry{
		ID:            uuid.New(),
		RecipientID:   recipientID,
		Type:          n.Type,
		SubjectID:     n.SubjectID,
		Payload:       raw,
		Status:        OutboxStatusPending,
		NextAttemptAt: n.CreatedAt,
		CreatedAt:     n.CreatedAt,
	}, nil
}

func (e *OutboxEntry) DedupKey() string {
	return DedupKey(e.RecipientID, e.Type, e.SubjectID)
}

func (e *OutboxEntry) Decode() (NotificationPayload, error) {
	return DecodeNotificationPayload(e.Type, e.Payload)
}
