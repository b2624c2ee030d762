package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/moderation-backend/internal/models"
	"github.com/ignatzorin/moderation-backend/internal/usecase/moderation"
)

// Ingestor принимает события создания контента.
type Ingestor interface {
	Ingest(ctx context.Context, ev models.ContentCreated) (moderation.Result, error)
}

// Reporter принимает жалобы пользователей.
type Reporter interface {
	SubmitReport(ctx context.Context, in moderation.ReportInput) (moderation.Result, error)
}

// Appealer принимает апелляции авторов.
type Appealer interface {
	SubmitAppeal(ctx context.Context, in moderation.AppealInput) (moderation.Result, error)
}

// Reviewer операции ручной проверки.
type Reviewer interface {
	ClaimNext(ctx context.Context, reviewerID uuid.UUID) (*models.QueueEntry, error)
	ListQueue(ctx context.Context, queueType string, limit, offset int) ([]models.QueueEntry, error)
	GetRecord(ctx context.Context, id uuid.UUID) (*models.ModerationRecord, error)
	Resolve(ctx context.Context, in moderation.ResolveInput) (moderation.Result, error)
}
