package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ReportStatusPending   = "pending"
	ReportStatusReviewed  = "reviewed"
	ReportStatusDismissed = "dismissed"
)

// UserReport жалоба пользователя на контент.
type UserReport struct {
	ID                  uuid.UUID `db:"id" json:"id"`
	ReporterID          uuid.UUID `db:"reporter_id" json:"reporter_id"`
	ReportedContentID   uuid.UUID `db:"reported_content_id" json:"reported_content_id"`
	ReportedContentKind string    `db:"reported_content_kind" json:"reported_content_kind"`
	ReportedUserID      uuid.UUID `db:"reported_user_id" json:"reported_user_id"`
	Category            string    `db:"category" json:"category"`
	Reason              string    `db:"reason" json:"reason"`
	Context             *string   `db:"context" json:"context,omitempty"`
	Status              string    `db:"status" json:"status"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
}
