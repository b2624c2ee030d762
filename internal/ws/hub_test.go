package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type savedNotification struct {
	userID uuid.UUID
	event  string
}

type recordingSaver struct {
	mu    sync.Mutex
	saved []savedNotification
}

func (s *recordingSaver) SaveNotification(ctx context.Context, userID uuid.UUID, event string, data interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, savedNotification{userID: userID, event: event})
	return nil
}

func (s *recordingSaver) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

// connect поднимает сервер, регистрирующий клиента с заданными userID и ролью.
func connect(t *testing.T, hub *Hub, userID uuid.UUID, role string) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	registered := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(conn, hub, userID, role)
		hub.Register(client)
		close(registered)
		client.Run(r.Context())
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	select {
	case <-registered:
	case <-time.After(2 * time.Second):
		t.Fatal("клиент не зарегистрирован")
	}
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &msg))
	return msg
}

func TestHub_BroadcastToRoleReachesReviewersOnly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(ctx)
	go hub.Run()

	moderator := connect(t, hub, uuid.New(), "moderator")
	author := connect(t, hub, uuid.New(), "user")

	require.NoError(t, hub.BroadcastToRole("moderator", "moderation.queue.new", map[string]int{"priority": 9}))

	msg := readEvent(t, moderator)
	assert.Equal(t, "moderation.queue.new", msg["type"])

	require.NoError(t, author.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := author.ReadMessage()
	assert.Error(t, err)
}

func TestHub_BroadcastToUserPersistsAndDelivers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(ctx)
	saver := &recordingSaver{}
	hub.SetNotificationSaver(saver)
	go hub.Run()

	userID := uuid.New()
	conn := connect(t, hub, userID, "user")

	require.NoError(t, hub.BroadcastToUser(userID, "moderation.content_actioned", map[string]string{"action_taken": "content_removed"}))

	msg := readEvent(t, conn)
	assert.Equal(t, "moderation.content_actioned", msg["type"])
	assert.Eventually(t, func() bool { return saver.count() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_BroadcastAfterShutdownReturnsError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(ctx)
	cancel()

	// Буфер канала может принять сообщение, поэтому заполняем его до отказа.
	var err error
	for i := 0; i < 64 && err == nil; i++ {
		err = hub.BroadcastToRole("moderator", "x", nil)
	}
	assert.ErrorIs(t, err, context.Canceled)
}
