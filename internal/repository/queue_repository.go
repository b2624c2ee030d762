package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/moderation-backend/internal/models"
	"github.com/ignatzorin/moderation-backend/internal/pkg/apperror"
	"github.com/ignatzorin/moderation-backend/internal/repository/common"
)

// QueueRepository очередь ручной проверки.
type QueueRepository struct {
	db *sqlx.DB
}

func NewQueueRepository(db *sqlx.DB) *QueueRepository {
	return &QueueRepository{db: db}
}

// Enqueue добавляет элемент в статусе pending.
func (r *QueueRepository) Enqueue(ctx context.Context, entry *models.QueueEntry) error {
	err := common.Conn(ctx, r.db).QueryRowxContext(ctx, `
		INSERT INTO moderation_queue (moderation_id, priority, queue_type, escalation_reason, status, report_id, appeal_id)
		VALUES ($1, $2, $3, $4, 'pending', $5, $6)
		RETURNING id, status, created_at, updated_at
	`,
		entry.ModerationID,
		entry.Priority,
		entry.QueueType,
		entry.EscalationReason,
		entry.ReportID,
		entry.AppealID,
	).Scan(&entry.ID, &entry.Status, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return fmt.Errorf("queue repository: enqueue %w", err)
	}
	return nil
}

// DequeueHighestPriority назначает ревьюеру самый срочный pending элемент.
// Порядок: приоритет по убыванию, затем время создания. Параллельные ревьюеры
// не получают один и тот же элемент.
func (r *QueueRepository) DequeueHighestPriority(ctx context.Context, reviewerID uuid.UUID) (*models.QueueEntry, error) {
	var entry models.QueueEntry
	err := common.Conn(ctx, r.db).GetContext(ctx, &entry, `
		UPDATE moderation_queue
		SET status = 'in_review', assigned_to = $1, updated_at = clock_timestamp()
		WHERE id = (
			SELECT id FROM moderation_queue
			WHERE status = 'pending'
			ORDER BY priority DESC, created_at ASC, id
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING *
	`, reviewerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrQueueEntryNotFound
		}
		return nil, fmt.Errorf("queue repository: dequeue %w", err)
	}
	return &entry, nil
}

// ListPending возвращает ожидающие элементы в порядке выдачи.
func (r *QueueRepository) ListPending(ctx context.Context, queueType string, limit, offset int) ([]models.QueueEntry, error) {
	query := `SELECT * FROM moderation_queue WHERE status = 'pending'`
	args := []interface{}{}
	argIndex := 1

	if queueType != "" {
		query += fmt.Sprintf(" AND queue_type = $%d", argIndex)
		args = append(args, queueType)
		argIndex++
	}

	query += " ORDER BY priority DESC, created_at ASC, id"

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, limit)
		argIndex++
	}
	if offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, offset)
	}

	entries := []models.QueueEntry{}
	if err := common.Conn(ctx, r.db).SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("queue repository: list pending %w", err)
	}
	return entries, nil
}

// GetByID возвращает элемент очереди.
func (r *QueueRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.QueueEntry, error) {
	return common.GetByID[models.QueueEntry](ctx, r.db, "moderation_queue", id, apperror.ErrQueueEntryNotFound)
}

// Resolve закрывает элемент, находящийся на проверке у ревьюера.
func (r *QueueRepository) Resolve(ctx context.Context, id, reviewerID uuid.UUID, resolution string) (*models.QueueEntry, error) {
	var entry models.QueueEntry
	err := common.Conn(ctx, r.db).GetContext(ctx, &entry, `
		UPDATE moderation_queue
		SET status = 'resolved', resolution = $3, resolved_at = NOW(), updated_at = clock_timestamp()
		WHERE id = $1 AND status = 'in_review' AND assigned_to = $2
		RETURNING *
	`, id, reviewerID, resolution)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrEntryNotInReview
		}
		return nil, fmt.Errorf("queue repository: resolve %w", err)
	}
	return &entry, nil
}
