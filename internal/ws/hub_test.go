package ws

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ignatzorin/gigmarket/internal/domain/entity"
	"github.com/ignatzorin/gigmarket/internal/domain/valueobject"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestHub(t *testing.T) (*Hub, *test.Hook) {
	t.Helper()
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	hub := NewHub(log)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-hub.Done()
	})
	return hub, hook
}

func sampleNotification(recipient uuid.UUID) *entity.Notification {
	gigID := uuid.New()
	return &entity.Notification{
		ID:          uuid.New(),
		RecipientID: recipient,
		Type:        valueobject.NotificationProposalAccepted,
		SubjectID:   gigID,
		Payload: entity.ProposalAcceptedPayload{
			GigID:      gigID,
			GigTitle:   "Сведение сингла",
			ProposalID: uuid.New(),
			ContractID: uuid.New(),
			ClientID:   uuid.New(),
			ClientName: "Мария",
		},
		CreatedAt: time.Now().UTC(),
	}
}

func TestHub_PushReachesConnectedClient(t *testing.T) {
	hub, _ := newTestHub(t)
	user := uuid.New()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		NewClient(conn, hub, user).Run()
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return hub.Online(user) == 1 }, 2*time.Second, 10*time.Millisecond)

	n := sampleNotification(user)
	hub.Push(user, n)
	hub.Push(uuid.New(), sampleNotification(uuid.New()))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type string `json:"type"`
		Data struct {
			ID      uuid.UUID      `json:"id"`
			Type    string         `json:"type"`
			Payload map[string]any `json:"payload"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, "notification", msg.Type)
	assert.Equal(t, n.ID, msg.Data.ID)
	assert.Equal(t, "proposal_accepted", msg.Data.Type)
	assert.Equal(t, "Мария", msg.Data.Payload["client_name"])

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Online(user) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_ShutdownClosesConnections(t *testing.T) {
	log, _ := test.NewNullLogger()
	hub := NewHub(log)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	user := uuid.New()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		NewClient(conn, hub, user).Run()
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Online(user) == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-hub.Done()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway) || errors.Is(err, io.EOF), "got %v", err)
	assert.Zero(t, hub.Online(user))
}

func TestHub_PushDropsWhenBufferFull(t *testing.T) {
	hub, hook := newTestHub(t)
	user := uuid.New()

	client := &Client{hub: hub, userID: user, send: make(chan []byte, 1)}
	hub.addClient(client)

	done := make(chan struct{})
	go func() {
		hub.Push(user, sampleNotification(user))
		hub.Push(user, sampleNotification(user))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Push заблокировался на полном буфере")
	}

	assert.Len(t, client.send, 1)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)

	hub.removeClient(client)
	_, ok := <-client.send
	assert.True(t, ok, "буферизованное сообщение остаётся читаемым")
	_, ok = <-client.send
	assert.False(t, ok, "канал закрыт после удаления")
}

func TestHub_RegisterAfterStopClosesClient(t *testing.T) {
	log, _ := test.NewNullLogger()
	hub := NewHub(log)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	cancel()
	<-hub.Done()

	client := &Client{hub: hub, userID: uuid.New(), send: make(chan []byte, 1)}
	hub.Register(client)
	hub.Unregister(client)

	_, ok := <-client.send
	assert.False(t, ok)
}
