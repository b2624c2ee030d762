package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/moderation-backend/internal/models"
	"github.com/ignatzorin/moderation-backend/internal/pkg/apperror"
	"github.com/ignatzorin/moderation-backend/internal/repository/common"
)

var ErrHistoryNotFound = apperror.New(apperror.ErrCodeNotFound, "история модерации не найдена")

// HistoryRepository состояние апелляций по решениям.
type HistoryRepository struct {
	db *sqlx.DB
}

func NewHistoryRepository(db *sqlx.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Upsert создаёт или обновляет строку истории по решению.
func (r *HistoryRepository) Upsert(ctx context.Context, h *models.UserModerationHistory) error {
	err := common.Conn(ctx, r.db).QueryRowxContext(ctx, `
		INSERT INTO user_moderation_history (moderation_id, user_id, appeal_submitted, appeal_status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (moderation_id) DO UPDATE
		SET appeal_submitted = EXCLUDED.appeal_submitted,
			appeal_status = EXCLUDED.appeal_status,
			updated_at = NOW()
		RETURNING updated_at
	`, h.ModerationID, h.UserID, h.AppealSubmitted, h.AppealStatus).Scan(&h.UpdatedAt)
	if err != nil {
		return fmt.Errorf("history repository: upsert %w", err)
	}
	return nil
}

func (r *HistoryRepository) Get(ctx context.Context, moderationID uuid.UUID) (*models.UserModerationHistory, error) {
	var h models.UserModerationHistory
	if err := common.Conn(ctx, r.db).GetContext(ctx, &h, `SELECT * FROM user_moderation_history WHERE moderation_id = $1`, moderationID); err != nil {
		if common.IsNoRows(err) {
			return nil, ErrHistoryNotFound
		}
		return nil, fmt.Errorf("history repository: get %w", err)
	}
	return &h, nil
}
