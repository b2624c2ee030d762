package moderation

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/moderation-backend/internal/models"
)

const (
	fallbackConfidence = 0.1
	fallbackFlag       = "assessment unavailable — requires manual review"
)

// fallbackRecord запись для контента, который не удалось оценить.
// Контент остаётся видимым, но решение ждёт человека.
func fallbackRecord(item models.ContentItem) *models.ModerationRecord {
	return &models.ModerationRecord{
		ContentID:               item.ContentID,
		ContentKind:             item.Kind,
		AuthorID:                item.AuthorID,
		IsAppropriate:           false,
		Severity:                models.SeverityMedium,
		Confidence:              fallbackConfidence,
		Flags:                   []string{fallbackFlag},
		ActionTaken:             models.ActionManualReview,
		AutoActioned:            false,
		OriginalContentSnapshot: item.Snapshot(),
		IsActive:                true,
	}
}

// handleFailure фиксирует отказ сервиса оценки и эскалирует контент.
// Причина отказа только логируется.
func (s *Service) handleFailure(ctx context.Context, item models.ContentItem, cause error) (Result, error) {
	log := s.log.WithFields(logrus.Fields{"content_id": item.ContentID, "content_kind": item.Kind})
	log.WithError(cause).Warn("сервис оценки недоступен, контент отправлен на ручную проверку")

	var (
		res   Result
		hooks afterCommit
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		stored, created, err := s.ledger.CreateRecord(ctx, fallbackRecord(item))
		if err != nil {
			return err
		}
		if !created {
			res = Result{Outcome: OutcomeAlreadyModerated, Record: stored}
			return nil
		}

		entry := &models.QueueEntry{
			ModerationID:     stored.ID,
			Priority:         models.PrioritySystemFailure,
			QueueType:        models.QueueTypeEscalated,
			EscalationReason: models.ReasonSystemError,
		}
		if err := s.enqueue(ctx, entry, &hooks); err != nil {
			return err
		}
		res = Result{Outcome: OutcomeFallback, Record: stored, Entry: entry, Degraded: true}
		return nil
	})
	if err != nil {
		log.WithError(err).Error("не удалось сохранить резервное решение")
		return Result{}, err
	}

	s.dispatch(hooks)
	return res, nil
}
