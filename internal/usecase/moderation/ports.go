package moderation

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/ignatzorin/moderation-backend/internal/models"
)

// Ledger журнал решений. CreateRecord вставляет запись только если по контенту
// нет активной; created=false означает, что возвращена чужая запись.
type Ledger interface {
	CreateRecord(ctx context.Context, record *models.ModerationRecord) (*models.ModerationRecord, bool, error)
	FindActiveRecord(ctx context.Context, contentID uuid.UUID, kind string) (*models.ModerationRecord, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.ModerationRecord, error)
}

type Queue interface {
	Enqueue(ctx context.Context, entry *models.QueueEntry) error
	DequeueHighestPriority(ctx context.Context, reviewerID uuid.UUID) (*models.QueueEntry, error)
	ListPending(ctx context.Context, queueType string, limit, offset int) ([]models.QueueEntry, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.QueueEntry, error)
	Resolve(ctx context.Context, id, reviewerID uuid.UUID, resolution string) (*models.QueueEntry, error)
}

type Reports interface {
	Create(ctx context.Context, report *models.UserReport) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

type Appeals interface {
	Create(ctx context.Context, appeal *models.ModerationAppeal) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ModerationAppeal, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

type History interface {
	Upsert(ctx context.Context, h *models.UserModerationHistory) error
}

// ContentStore таблицы контента. Изменяющие методы идемпотентны и
// возвращают true, только если состояние действительно поменялось.
type ContentStore interface {
	SoftDelete(ctx context.Context, kind string, id uuid.UUID) (bool, error)
	Restore(ctx context.Context, kind string, id uuid.UUID) (bool, error)
	ShadowBan(ctx context.Context, kind string, id uuid.UUID) (bool, error)
	LiftShadowBan(ctx context.Context, kind string, id uuid.UUID) (bool, error)
	Fetch(ctx context.Context, kind string, id uuid.UUID) (json.RawMessage, error)
}

// Assessor внешний сервис оценки. Любая ошибка означает отсутствие вердикта.
type Assessor interface {
	Assess(ctx context.Context, item models.ContentItem) (models.Verdict, error)
}

// Transactor выполняет fn атомарно; репозитории берут транзакцию из ctx.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Notifier доставляет события авторам и ревьюерам.
type Notifier interface {
	BroadcastToUser(userID uuid.UUID, event string, data any) error
	BroadcastToRole(role string, event string, data any) error
}
