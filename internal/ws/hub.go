package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/moderation-backend/internal/goroutine"
	"github.com/ignatzorin/moderation-backend/internal/logger"
)

// NotificationSaver сохраняет адресные уведомления, чтобы автор увидел их и без подключения.
type NotificationSaver interface {
	SaveNotification(ctx context.Context, userID uuid.UUID, event string, data interface{}) error
}

// Hub управляет всеми WebSocket клиентами: авторами и ревьюерами.
type Hub struct {
	mu                sync.RWMutex
	clients           map[uuid.UUID]map[*Client]struct{}
	register          chan *Client
	unregister        chan *Client
	broadcast         chan message
	notificationSaver NotificationSaver
	ctx               context.Context
	log               *logrus.Entry
}

// message адресовано либо пользователю, либо всем клиентам с ролью.
type message struct {
	userID  uuid.UUID
	role    string
	payload []byte
}

// NewHub создаёт новый хаб.
func NewHub(ctx context.Context) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 32),
		ctx:        ctx,
		log:        logger.Component("ws"),
	}
}

// SetNotificationSaver устанавливает сервис для сохранения уведомлений.
func (h *Hub) SetNotificationSaver(saver NotificationSaver) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notificationSaver = saver
}

// Run запускает главный цикл хаба до отмены контекста.
func (h *Hub) Run() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case msg := <-h.broadcast:
			h.send(msg)
		}
	}
}

// Register добавляет клиента.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
	}
}

// Unregister удаляет клиента.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

func encode(event string, data any) ([]byte, error) {
	// Контракт WebSocket API: {"type": событие, "data": полезная нагрузка}.
	raw, err := json.Marshal(map[string]any{
		"type": event,
		"data": data,
	})
	if err != nil {
		return nil, fmt.Errorf("ws: не удалось сериализовать сообщение: %w", err)
	}
	return raw, nil
}

// BroadcastToUser отправляет сообщение конкретному пользователю и сохраняет уведомление в БД.
func (h *Hub) BroadcastToUser(userID uuid.UUID, event string, data any) error {
	raw, err := encode(event, data)
	if err != nil {
		return err
	}

	h.mu.RLock()
	saver := h.notificationSaver
	ctx := h.ctx
	h.mu.RUnlock()

	if saver != nil {
		// Сохраняем асинхронно, чтобы не блокировать отправку
		goroutine.SafeGo(func() {
			if err := saver.SaveNotification(ctx, userID, event, data); err != nil {
				// Логируем ошибку, но не прерываем отправку через WebSocket
				h.log.WithError(err).WithField("user_id", userID).Warn("не удалось сохранить уведомление")
			}
		})
	}

	return h.enqueue(message{userID: userID, payload: raw})
}

// BroadcastToRole отправляет событие всем подключённым клиентам с ролью. В БД не сохраняется.
func (h *Hub) BroadcastToRole(role string, event string, data any) error {
	raw, err := encode(event, data)
	if err != nil {
		return err
	}
	return h.enqueue(message{role: role, payload: raw})
}

func (h *Hub) enqueue(msg message) error {
	select {
	case h.broadcast <- msg:
		return nil
	case <-h.ctx.Done():
		return h.ctx.Err()
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.userID]; !ok {
		h.clients[client.userID] = make(map[*Client]struct{})
	}
	h.clients[client.userID][client] = struct{}{}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.userID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.send)
		}
		if len(clients) == 0 {
			delete(h.clients, client.userID)
		}
	}
}

func (h *Hub) recipients(msg message) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []*Client
	if msg.role == "" {
		for client := range h.clients[msg.userID] {
			out = append(out, client)
		}
		return out
	}
	for _, clients := range h.clients {
		for client := range clients {
			if client.role == msg.role {
				out = append(out, client)
			}
		}
	}
	return out
}

func (h *Hub) send(msg message) {
	for _, client := range h.recipients(msg) {
		select {
		case client.send <- msg.payload:
		default:
			// Медленный клиент: отключаем, Unregister уйдёт через главный цикл
			goroutine.SafeGo(client.Close)
		}
	}
}
