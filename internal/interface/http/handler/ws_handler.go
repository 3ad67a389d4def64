package handler

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ignatzorin/gigmarket/internal/ws"
)

// WSHandler отвечает за установку WebSocket соединений.
// Пользователь уже проверен WSAuthMiddleware.
type WSHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(hub *ws.Hub, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// Handle обслуживает GET /api/ws?token=...
func (h *WSHandler) Handle(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	// Upgrade сам отвечает клиенту при ошибке.
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	ws.NewClient(conn, h.hub, userID).Run()
}
