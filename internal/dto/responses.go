package dto

import (
	"github.com/ignatzorin/moderation-backend/internal/models"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// QueueResponse страница ожидающих элементов очереди.
type QueueResponse struct {
	Items  []models.QueueEntry `json:"items"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

// NotificationsResponse страница уведомлений пользователя.
type NotificationsResponse struct {
	Items  []models.Notification `json:"items"`
	Unread int                   `json:"unread"`
}
