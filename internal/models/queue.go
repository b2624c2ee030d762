package models

import (
	"time"

	"github.com/google/uuid"
)

// Типы очередей ручной проверки.
const (
	QueueTypeEscalated = "escalated"
	QueueTypeAppeal    = "appeal"
)

// Статусы элемента очереди.
const (
	QueueStatusPending  = "pending"
	QueueStatusInReview = "in_review"
	QueueStatusResolved = "resolved"
)

// Приоритеты источников, больший срочнее.
const (
	PriorityUserReport       = 9
	PrioritySystemFailure    = 8
	PriorityAssessmentReview = 8
	PriorityAppeal           = 7
)

// Причины эскалации.
const (
	ReasonSystemError      = "moderation system error"
	ReasonAssessmentReview = "assessment requested manual review"
	ReasonAppeal           = "user appeal"
	reasonReportPrefix     = "user report: "
)

// Решения ревьюера.
const (
	ResolutionUphold   = "uphold"
	ResolutionOverturn = "overturn"
	ResolutionDismiss  = "dismiss"
)

// ValidResolutions список допустимых решений.
var ValidResolutions = map[string]struct{}{
	ResolutionUphold:   {},
	ResolutionOverturn: {},
	ResolutionDismiss:  {},
}

// ReportReason формирует причину эскалации по категории жалобы.
func ReportReason(category string) string {
	return reasonReportPrefix + category
}

// QueueEntry элемент очереди ручной проверки.
type QueueEntry struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	ModerationID     uuid.UUID  `db:"moderation_id" json:"moderation_id"`
	Priority         int        `db:"priority" json:"priority"`
	QueueType        string     `db:"queue_type" json:"queue_type"`
	EscalationReason string     `db:"escalation_reason" json:"escalation_reason"`
	Status           string     `db:"status" json:"status"`
	ReportID         *uuid.UUID `db:"report_id" json:"report_id,omitempty"`
	AppealID         *uuid.UUID `db:"appeal_id" json:"appeal_id,omitempty"`
	AssignedTo       *uuid.UUID `db:"assigned_to" json:"assigned_to,omitempty"`
	Resolution       *string    `db:"resolution" json:"resolution,omitempty"`
	ResolvedAt       *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}
