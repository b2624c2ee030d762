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

var ErrAppealNotFound = apperror.New(apperror.ErrCodeNotFound, "апелляция не найдена")

// AppealRepository апелляции авторов.
type AppealRepository struct {
	db *sqlx.DB
}

func NewAppealRepository(db *sqlx.DB) *AppealRepository {
	return &AppealRepository{db: db}
}

func (r *AppealRepository) Create(ctx context.Context, appeal *models.ModerationAppeal) error {
	err := common.Conn(ctx, r.db).QueryRowxContext(ctx, `
		INSERT INTO moderation_appeals (user_id, moderation_id, reason, evidence, statement)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, status, created_at
	`, appeal.UserID, appeal.ModerationID, appeal.Reason, appeal.Evidence, appeal.Statement).
		Scan(&appeal.ID, &appeal.Status, &appeal.CreatedAt)
	if err != nil {
		return fmt.Errorf("appeal repository: create %w", err)
	}
	return nil
}

func (r *AppealRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ModerationAppeal, error) {
	return common.GetByID[models.ModerationAppeal](ctx, r.db, "moderation_appeals", id, ErrAppealNotFound)
}

func (r *AppealRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	result, err := common.Conn(ctx, r.db).ExecContext(ctx, `UPDATE moderation_appeals SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("appeal repository: update status %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrAppealNotFound
	}
	return nil
}
