package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	AppealStatusPending  = "pending"
	AppealStatusApproved = "approved"
	AppealStatusDenied   = "denied"
)

// ModerationAppeal оспаривание решения модерации автором контента.
type ModerationAppeal struct {
	ID           uuid.UUID `db:"id" json:"id"`
	UserID       uuid.UUID `db:"user_id" json:"user_id"`
	ModerationID uuid.UUID `db:"moderation_id" json:"moderation_id"`
	Reason       string    `db:"reason" json:"reason"`
	Evidence     *string   `db:"evidence" json:"evidence,omitempty"`
	Statement    *string   `db:"statement" json:"statement,omitempty"`
	Status       string    `db:"status" json:"status"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// UserModerationHistory состояние апелляции пользователя по конкретному решению.
type UserModerationHistory struct {
	ModerationID    uuid.UUID `db:"moderation_id" json:"moderation_id"`
	UserID          uuid.UUID `db:"user_id" json:"user_id"`
	AppealSubmitted bool      `db:"appeal_submitted" json:"appeal_submitted"`
	AppealStatus    *string   `db:"appeal_status" json:"appeal_status,omitempty"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}
