package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/gigmarket/internal/domain/entity"
)

type NotificationResponse struct {
	ID        uuid.UUID   `json:"id"`
	Type      string      `json:"type"`
	SubjectID uuid.UUID   `json:"subject_id"`
	Payload   interface{} `json:"payload"`
	IsRead    bool        `json:"is_read"`
	CreatedAt time.Time   `json:"created_at"`
}

func ToNotificationResponse(n *entity.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		Type:      string(n.Type),
		SubjectID: n.SubjectID,
		Payload:   n.Payload,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}

func ToNotificationResponses(list []*entity.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(list))
	for _, n := range list {
		out = append(out, ToNotificationResponse(n))
	}
	return out
}

type UnreadCountResponse struct {
	Count int `json:"count"`
}

type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}
