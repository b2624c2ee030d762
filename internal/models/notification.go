package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// События, которые получают авторы и ревьюеры.
const (
	EventContentActioned = "moderation.content_actioned"
	EventContentRestored = "moderation.content_restored"
	EventAppealDecided   = "moderation.appeal_decided"
	EventQueueNew        = "moderation.queue.new"
)

// Notification уведомление пользователю о решении модерации.
type Notification struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	UserID    uuid.UUID       `db:"user_id" json:"user_id"`
	Payload   json.RawMessage `db:"payload" json:"payload"`
	IsRead    bool            `db:"is_read" json:"is_read"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
