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

// ErrRecordNotFound возвращается, когда по контенту нет активного решения.
var ErrRecordNotFound = apperror.ErrModerationNotFound

// LedgerRepository журнал решений модерации. Записи только добавляются.
type LedgerRepository struct {
	db *sqlx.DB
}

func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// CreateRecord вставляет решение, если по контенту ещё нет активного.
// Возвращает сохранённую запись и признак того, что её создал именно этот вызов.
// При гонке проигравший получает запись победителя и created=false.
func (r *LedgerRepository) CreateRecord(ctx context.Context, record *models.ModerationRecord) (*models.ModerationRecord, bool, error) {
	conn := common.Conn(ctx, r.db)

	var stored models.ModerationRecord
	err := conn.GetContext(ctx, &stored, `
		INSERT INTO moderation_records (
			content_id, content_kind, author_id, is_appropriate, severity, confidence,
			flags, action_taken, auto_actioned, original_content_snapshot, is_active
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE)
		ON CONFLICT (content_id, content_kind) WHERE is_active DO NOTHING
		RETURNING *
	`,
		record.ContentID,
		record.ContentKind,
		record.AuthorID,
		record.IsAppropriate,
		record.Severity,
		record.Confidence,
		record.Flags,
		record.ActionTaken,
		record.AutoActioned,
		record.OriginalContentSnapshot,
	)
	if err == nil {
		return &stored, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("ledger repository: create %w", err)
	}

	existing, err := r.FindActiveRecord(ctx, record.ContentID, record.ContentKind)
	if err != nil {
		return nil, false, fmt.Errorf("ledger repository: fetch after conflict %w", err)
	}
	return existing, false, nil
}

// FindActiveRecord возвращает активное решение по контенту.
func (r *LedgerRepository) FindActiveRecord(ctx context.Context, contentID uuid.UUID, kind string) (*models.ModerationRecord, error) {
	var record models.ModerationRecord
	err := common.Conn(ctx, r.db).GetContext(ctx, &record, `
		SELECT * FROM moderation_records
		WHERE content_id = $1 AND content_kind = $2 AND is_active
	`, contentID, kind)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("ledger repository: find active %w", err)
	}
	return &record, nil
}

// GetByID возвращает решение по идентификатору.
func (r *LedgerRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ModerationRecord, error) {
	return common.GetByID[models.ModerationRecord](ctx, r.db, "moderation_records", id, ErrRecordNotFound)
}
