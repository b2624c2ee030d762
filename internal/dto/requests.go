package dto

import (
	"github.com/google/uuid"
)

// ReportRequest жалоба пользователя на контент.
// ReporterID можно не передавать: он берётся из токена.
type ReportRequest struct {
	ReporterID          *uuid.UUID `json:"reporterId"`
	ReportedContentID   uuid.UUID  `json:"reportedContentId"`
	ReportedContentType string     `json:"reportedContentType" binding:"required"`
	ReportedUserID      uuid.UUID  `json:"reportedUserId"`
	Category            string     `json:"category" binding:"required"`
	Reason              string     `json:"reason" binding:"required"`
	Context             *string    `json:"context"`
}

// AppealRequest апелляция автора на решение модерации.
type AppealRequest struct {
	UserID       uuid.UUID `json:"userId"`
	ModerationID uuid.UUID `json:"moderationId"`
	Reason       string    `json:"reason" binding:"required"`
	Evidence     *string   `json:"evidence"`
	Statement    *string   `json:"statement"`
}

// ResolveRequest решение ревьюера по элементу очереди.
type ResolveRequest struct {
	Decision string `json:"decision" binding:"required"`
}
