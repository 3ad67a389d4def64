package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/gigmarket/internal/interface/http/dto"
	"github.com/ignatzorin/gigmarket/internal/interface/http/response"
	"github.com/ignatzorin/gigmarket/internal/usecase/notification"
)

type NotificationHandler struct {
	dispatcher *notification.Dispatcher
}

func NewNotificationHandler(dispatcher *notification.Dispatcher) *NotificationHandler {
	return &NotificationHandler{dispatcher: dispatcher}
}

// ListNotifications обслуживает GET /api/notifications?limit=&offset=&unread=true
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	list, err := h.dispatcher.ListFor(c.Request.Context(), userID, notification.ListFilter{
		Limit:      parseIntQuery(c, "limit", 50),
		Offset:     parseIntQuery(c, "offset", 0),
		UnreadOnly: c.Query("unread") == "true",
	})
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, dto.ToNotificationResponses(list))
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	count, err := h.dispatcher.CountUnread(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, dto.UnreadCountResponse{Count: count})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "уведомления")
	if !ok {
		return
	}

	if err := h.dispatcher.MarkRead(c.Request.Context(), userID, id); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{"id": id, "is_read": true})
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	updated, err := h.dispatcher.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, dto.MarkAllReadResponse{Updated: updated})
}
