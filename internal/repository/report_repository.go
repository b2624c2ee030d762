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

var ErrReportNotFound = apperror.New(apperror.ErrCodeNotFound, "жалоба не найдена")

type ReportRepository struct {
	db *sqlx.DB
}

func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) Create(ctx context.Context, report *models.UserReport) error {
	err := common.Conn(ctx, r.db).QueryRowxContext(ctx, `
		INSERT INTO user_reports (reporter_id, reported_content_id, reported_content_kind, reported_user_id, category, reason, context)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, status, created_at
	`, report.ReporterID, report.ReportedContentID, report.ReportedContentKind, report.ReportedUserID,
		report.Category, report.Reason, report.Context).
		Scan(&report.ID, &report.Status, &report.CreatedAt)
	if err != nil {
		return fmt.Errorf("report repository: create %w", err)
	}
	return nil
}

func (r *ReportRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.UserReport, error) {
	return common.GetByID[models.UserReport](ctx, r.db, "user_reports", id, ErrReportNotFound)
}

// UpdateStatus переводит жалобу в reviewed или dismissed.
func (r *ReportRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	result, err := common.Conn(ctx, r.db).ExecContext(ctx, `UPDATE user_reports SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("report repository: update status %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrReportNotFound
	}
	return nil
}
