package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/gigmarket/internal/domain/entity"
	"github.com/ignatzorin/gigmarket/internal/goroutine"
	"github.com/ignatzorin/gigmarket/internal/interface/http/dto"
)

const eventNotification = "notification"

// Hub держит websocket-подключения по получателям и рассылает им уведомления.
// Доставка best effort: переполненный буфер клиента означает потерю сообщения,
// пропущенное доступно через GET /api/notifications.
type Hub struct {
	log      logrus.FieldLogger
	recovery *goroutine.RecoveryHandler

	mu      sync.RWMutex
	clients map[uuid.UUID]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

type envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		log:        log,
		recovery:   goroutine.NewRecoveryHandler(log),
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run обслуживает регистрацию клиентов до отмены ctx.
// При выходе закрывает каналы всех клиентов, их writePump отправляет close frame.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

// Done закрывается после остановки Run.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.closeSend()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Push реализует notification.Pusher. Не блокирует вызывающего.
func (h *Hub) Push(recipientID uuid.UUID, n *entity.Notification) {
	raw, err := json.Marshal(envelope{Type: eventNotification, Data: dto.ToNotificationResponse(n)})
	if err != nil {
		h.log.WithError(err).WithField("notification_id", n.ID).Error("ws: не удалось сериализовать уведомление")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[recipientID] {
		select {
		case client.send <- raw:
		default:
			h.log.WithFields(logrus.Fields{
				"user_id":         recipientID,
				"notification_id": n.ID,
			}).Warn("ws: буфер клиента переполнен, уведомление пропущено")
		}
	}
}

// Online возвращает число активных подключений пользователя.
func (h *Hub) Online(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.userID]; !ok {
		h.clients[client.userID] = make(map[*Client]struct{})
	}
	h.clients[client.userID][client] = struct{}{}
}

// removeClient закрывает send под записью мьютекса, поэтому Push под RLock
// никогда не пишет в закрытый канал.
func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.userID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			client.closeSend()
		}
		if len(clients) == 0 {
			delete(h.clients, client.userID)
		}
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, clients := range h.clients {
		for client := range clients {
			client.closeSend()
		}
		delete(h.clients, userID)
	}
}
