package moderation

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/moderation-backend/internal/logger"
	"github.com/ignatzorin/moderation-backend/internal/metrics"
	"github.com/ignatzorin/moderation-backend/internal/models"
)

// Enforcer применяет решение к самому контенту.
type Enforcer struct {
	store ContentStore
	log   *logrus.Entry
}

func NewEnforcer(store ContentStore) *Enforcer {
	return &Enforcer{store: store, log: logger.Component("enforcer")}
}

// Apply скрывает контент по действию записи. none и manual_review ничего не меняют.
// Повторное применение возвращает changed=false.
func (e *Enforcer) Apply(ctx context.Context, rec *models.ModerationRecord) (bool, error) {
	var (
		changed bool
		err     error
	)
	switch rec.ActionTaken {
	case models.ActionContentRemoved:
		changed, err = e.store.SoftDelete(ctx, rec.ContentKind, rec.ContentID)
	case models.ActionShadowBan:
		changed, err = e.store.ShadowBan(ctx, rec.ContentKind, rec.ContentID)
	default:
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if changed {
		metrics.EnforcementActions.WithLabelValues(rec.ActionTaken, "apply").Inc()
		e.log.WithFields(logrus.Fields{
			"moderation_id": rec.ID,
			"content_id":    rec.ContentID,
			"content_kind":  rec.ContentKind,
			"action":        rec.ActionTaken,
		}).Info("решение применено к контенту")
	}
	return changed, nil
}

// Revert возвращает контент в исходное состояние после удовлетворённой апелляции.
func (e *Enforcer) Revert(ctx context.Context, rec *models.ModerationRecord) (bool, error) {
	var (
		changed bool
		err     error
	)
	switch rec.ActionTaken {
	case models.ActionContentRemoved:
		changed, err = e.store.Restore(ctx, rec.ContentKind, rec.ContentID)
	case models.ActionShadowBan:
		changed, err = e.store.LiftShadowBan(ctx, rec.ContentKind, rec.ContentID)
	default:
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if changed {
		metrics.EnforcementActions.WithLabelValues(rec.ActionTaken, "revert").Inc()
		e.log.WithFields(logrus.Fields{
			"moderation_id": rec.ID,
			"content_id":    rec.ContentID,
			"action":        rec.ActionTaken,
		}).Info("решение отменено")
	}
	return changed, nil
}
