package valueobject

import "github.com/ignatzorin/gigmarket/internal/pkg/apperror"

type GigStatus string

const (
	GigStatusOpen       GigStatus = "open"
	GigStatusInProgress GigStatus = "in_progress"
	GigStatusCompleted  GigStatus = "completed"
	GigStatusCancelled  GigStatus = "cancelled"
)

var gigTransitions = map[GigStatus][]GigStatus{
	GigStatusOpen:       {GigStatusInProgress, GigStatusCancelled},
	GigStatusInProgress: {GigStatusCompleted, GigStatusCancelled},
	GigStatusCompleted:  {},
	GigStatusCancelled:  {},
}

func (s GigStatus) IsValid() bool {
	_, ok := gigTransitions[s]
	return ok
}

func (s GigStatus) CanTransitionTo(next GigStatus) bool {
	return contains(gigTransitions[s], next)
}

func (s GigStatus) IsTerminal() bool {
	return s == GigStatusCompleted || s == GigStatusCancelled
}

func NewGigStatus(status string) (GigStatus, error) {
	s := GigStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус заказа")
	}
	return s, nil
}

type ProposalStatus string

const (
	ProposalStatusPending  ProposalStatus = "pending"
	ProposalStatusAccepted ProposalStatus = "accepted"
	ProposalStatusRejected ProposalStatus = "rejected"
)

func (s ProposalStatus) IsValid() bool {
	switch s {
	case ProposalStatusPending, ProposalStatusAccepted, ProposalStatusRejected:
		return true
	}
	return false
}

func (s ProposalStatus) IsTerminal() bool {
	return s == ProposalStatusAccepted || s == ProposalStatusRejected
}

type ContractStatus string

const (
	ContractStatusPendingSignature ContractStatus = "pending_signature"
	ContractStatusActive           ContractStatus = "active"
	ContractStatusCompleted        ContractStatus = "completed"
	ContractStatusCancelled        ContractStatus = "cancelled"
)

var contractTransitions = map[ContractStatus][]ContractStatus{
	ContractStatusPendingSignature: {ContractStatusActive, ContractStatusCancelled},
	ContractStatusActive:           {ContractStatusCompleted, ContractStatusCancelled},
	ContractStatusCompleted:        {},
	ContractStatusCancelled:        {},
}

func (s ContractStatus) IsValid() bool {
	_, ok := contractTransitions[s]
	return ok
}

func (s ContractStatus) CanTransitionTo(next ContractStatus) bool {
	return contains(contractTransitions[s], next)
}

func (s ContractStatus) IsTerminal() bool {
	return s == ContractStatusCompleted || s == ContractStatusCancelled
}

// MilestoneStatus движется строго по порядку pending → in_progress → completed → approved.
type MilestoneStatus string

const (
	MilestoneStatusPending    MilestoneStatus = "pending"
	MilestoneStatusInProgress MilestoneStatus = "in_progress"
	MilestoneStatusCompleted  MilestoneStatus = "completed"
	MilestoneStatusApproved   MilestoneStatus = "approved"
)

var milestoneOrder = []MilestoneStatus{
	MilestoneStatusPending,
	MilestoneStatusInProgress,
	MilestoneStatusCompleted,
	MilestoneStatusApproved,
}

func (s MilestoneStatus) IsValid() bool {
	return contains(milestoneOrder, s)
}

// Next возвращает следующий статус; false для approved.
func (s MilestoneStatus) Next() (MilestoneStatus, bool) {
	for i, st := range milestoneOrder {
		if st == s && i+1 < len(milestoneOrder) {
			return milestoneOrder[i+1], true
		}
	}
	return "", false
}

func (s MilestoneStatus) CanTransitionTo(next MilestoneStatus) bool {
	n, ok := s.Next()
	return ok && n == next
}

func NewMilestoneStatus(status string) (MilestoneStatus, error) {
	s := MilestoneStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус этапа")
	}
	return s, nil
}

// EscrowStatus: refunded достижим только из disputed через арбитраж.
type EscrowStatus string

const (
	EscrowStatusPending  EscrowStatus = "pending"
	EscrowStatusFunded   EscrowStatus = "funded"
	EscrowStatusReleased EscrowStatus = "released"
	EscrowStatusDisputed EscrowStatus = "disputed"
	EscrowStatusRefunded EscrowStatus = "refunded"
)

var escrowTransitions = map[EscrowStatus][]EscrowStatus{
	EscrowStatusPending:  {EscrowStatusFunded},
	EscrowStatusFunded:   {EscrowStatusReleased, EscrowStatusDisputed},
	EscrowStatusDisputed: {EscrowStatusReleased, EscrowStatusRefunded},
	EscrowStatusReleased: {},
	EscrowStatusRefunded: {},
}

func (s EscrowStatus) IsValid() bool {
	_, ok := escrowTransitions[s]
	return ok
}

func (s EscrowStatus) CanTransitionTo(next EscrowStatus) bool {
	return contains(escrowTransitions[s], next)
}

// IsTerminal: disputed не терминален, пока спор не разрешён.
func (s EscrowStatus) IsTerminal() bool {
	return s == EscrowStatusReleased || s == EscrowStatusRefunded
}

func NewEscrowStatus(status string) (EscrowStatus, error) {
	s := EscrowStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус эскроу")
	}
	return s, nil
}

type NotificationType string

const (
	NotificationProposalAccepted  NotificationType = "proposal_accepted"
	NotificationProposalRejected  NotificationType = "proposal_rejected"
	NotificationConnectionRequest NotificationType = "connection_request"
	NotificationEscrowFunded      NotificationType = "escrow_funded"
	NotificationEscrowReleased    NotificationType = "escrow_released"
	NotificationEscrowDisputed    NotificationType = "escrow_disputed"
	NotificationEscrowRefunded    NotificationType = "escrow_refunded"
	NotificationMilestoneApproved NotificationType = "milestone_approved"
)

func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationProposalAccepted, NotificationProposalRejected, NotificationConnectionRequest,
		NotificationEscrowFunded, NotificationEscrowReleased, NotificationEscrowDisputed,
		NotificationEscrowRefunded, NotificationMilestoneApproved:
		return true
	}
	return false
}

func contains[T comparable](list []T, v T) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
