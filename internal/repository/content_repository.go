package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/moderation-backend/internal/content"
	"github.com/ignatzorin/moderation-backend/internal/pkg/apperror"
	"github.com/ignatzorin/moderation-backend/internal/repository/common"
)

var (
	ErrContentNotFound = apperror.New(apperror.ErrCodeNotFound, "контент не найден")
	ErrUnknownKind     = apperror.New(apperror.ErrCodeValidation, "неподдерживаемый вид контента")
)

// ContentRepository меняет видимость контента в таблицах, описанных реестром видов.
// Имена таблиц проверяются при регистрации правила.
type ContentRepository struct {
	db       *sqlx.DB
	registry *content.Registry
}

func NewContentRepository(db *sqlx.DB, registry *content.Registry) *ContentRepository {
	return &ContentRepository{db: db, registry: registry}
}

func (r *ContentRepository) table(kind string) (content.KindRule, error) {
	rule, ok := r.registry.Lookup(kind)
	if !ok {
		return content.KindRule{}, ErrUnknownKind
	}
	return rule, nil
}

// SoftDelete скрывает контент. Повторный вызов ничего не меняет.
func (r *ContentRepository) SoftDelete(ctx context.Context, kind string, id uuid.UUID) (bool, error) {
	return r.exec(ctx, kind, "soft delete", `UPDATE %s SET deleted_at = NOW() WHERE %s = $1 AND deleted_at IS NULL`, id)
}

// Restore снимает мягкое удаление.
func (r *ContentRepository) Restore(ctx context.Context, kind string, id uuid.UUID) (bool, error) {
	return r.exec(ctx, kind, "restore", `UPDATE %s SET deleted_at = NULL WHERE %s = $1 AND deleted_at IS NOT NULL`, id)
}

// ShadowBan оставляет контент видимым только автору.
func (r *ContentRepository) ShadowBan(ctx context.Context, kind string, id uuid.UUID) (bool, error) {
	return r.exec(ctx, kind, "shadow ban", `UPDATE %s SET is_shadow_banned = TRUE, shadow_banned_at = NOW() WHERE %s = $1 AND is_shadow_banned = FALSE`, id)
}

// LiftShadowBan снимает теневой бан.
func (r *ContentRepository) LiftShadowBan(ctx context.Context, kind string, id uuid.UUID) (bool, error) {
	return r.exec(ctx, kind, "lift shadow ban", `UPDATE %s SET is_shadow_banned = FALSE, shadow_banned_at = NULL WHERE %s = $1 AND is_shadow_banned = TRUE`, id)
}

func (r *ContentRepository) exec(ctx context.Context, kind, op, format string, id uuid.UUID) (bool, error) {
	rule, err := r.table(kind)
	if err != nil {
		return false, err
	}

	result, err := common.Conn(ctx, r.db).ExecContext(ctx, fmt.Sprintf(format, rule.Table, rule.IDField), id)
	if err != nil {
		return false, fmt.Errorf("content repository: %s %s: %w", op, rule.Table, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("content repository: %s rows affected: %w", op, err)
	}
	return rows > 0, nil
}

// Fetch возвращает строку контента как JSON, в том виде, в каком её присылает событие создания.
func (r *ContentRepository) Fetch(ctx context.Context, kind string, id uuid.UUID) (json.RawMessage, error) {
	rule, err := r.table(kind)
	if err != nil {
		return nil, err
	}

	var raw []byte
	query := fmt.Sprintf(`SELECT row_to_json(t) FROM %s t WHERE t.%s = $1`, rule.Table, rule.IDField)
	if err := common.Conn(ctx, r.db).GetContext(ctx, &raw, query, id); err != nil {
		if common.IsNoRows(err) {
			return nil, ErrContentNotFound
		}
		return nil, fmt.Errorf("content repository: fetch %s: %w", rule.Table, err)
	}
	return json.RawMessage(raw), nil
}
