package moderation

import (
	"context"
	"errors"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/moderation-backend/internal/content"
	"github.com/ignatzorin/moderation-backend/internal/metrics"
	"github.com/ignatzorin/moderation-backend/internal/models"
	"github.com/ignatzorin/moderation-backend/internal/pkg/apperror"
)

// Ingest обрабатывает событие создания контента. Ошибка возвращается только
// для некорректной записи и сбоев хранилища; отказ сервиса оценки ошибкой не является.
func (s *Service) Ingest(ctx context.Context, ev models.ContentCreated) (Result, error) {
	item, status, err := s.normalizer.Normalize(ev)
	if err != nil {
		s.log.WithError(err).WithField("content_kind", ev.ContentKind).Warn("некорректная запись контента")
		return Result{}, err
	}

	var res Result
	switch status {
	case content.StatusUnsupported:
		res = Result{Outcome: OutcomeSkippedUnsupported}
	case content.StatusIgnoredEvent:
		res = Result{Outcome: OutcomeSkippedEvent}
	default:
		res, err = s.moderate(ctx, item)
		if err != nil {
			return Result{}, err
		}
	}

	s.observe("ingest", res)
	return res, nil
}

// moderate проводит контент через оценку и фиксирует решение.
func (s *Service) moderate(ctx context.Context, item models.ContentItem) (Result, error) {
	log := s.log.WithFields(logrus.Fields{"content_id": item.ContentID, "content_kind": item.Kind})

	if item.IsEmpty() {
		log.Debug("пустой контент, оценка не требуется")
		return Result{Outcome: OutcomeSkippedEmpty}, nil
	}

	existing, err := s.ledger.FindActiveRecord(ctx, item.ContentID, item.Kind)
	switch {
	case err == nil:
		log.WithField("moderation_id", existing.ID).Debug("контент уже промодерирован")
		return Result{Outcome: OutcomeAlreadyModerated, Record: existing}, nil
	case !errors.Is(err, apperror.ErrModerationNotFound):
		return Result{}, err
	}

	verdict, err := s.assessor.Assess(ctx, item)
	if err != nil {
		return s.handleFailure(ctx, item, err)
	}
	return s.persistVerdict(ctx, item, verdict)
}

// persistVerdict сохраняет решение и применяет его в одной транзакции.
// Применяет и ставит в очередь только тот, кто создал запись.
func (s *Service) persistVerdict(ctx context.Context, item models.ContentItem, verdict models.Verdict) (Result, error) {
	record := models.NewRecordFromVerdict(item, verdict)

	var (
		res   Result
		hooks afterCommit
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		stored, created, err := s.ledger.CreateRecord(ctx, record)
		if err != nil {
			return err
		}
		res = Result{Outcome: OutcomeAlreadyModerated, Record: stored}
		if !created {
			return nil
		}
		res.Outcome = OutcomeAssessed

		changed, err := s.enforcer.Apply(ctx, stored)
		if err != nil {
			return err
		}
		if changed {
			hooks.add(s.notifyActioned(stored))
		}

		if stored.ActionTaken == models.ActionManualReview {
			entry := &models.QueueEntry{
				ModerationID:     stored.ID,
				Priority:         models.PriorityAssessmentReview,
				QueueType:        models.QueueTypeEscalated,
				EscalationReason: models.ReasonAssessmentReview,
			}
			if err := s.enqueue(ctx, entry, &hooks); err != nil {
				return err
			}
			res.Entry = entry
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	s.log.WithFields(logrus.Fields{
		"content_id":    item.ContentID,
		"content_kind":  item.Kind,
		"moderation_id": res.Record.ID,
		"action":        res.Record.ActionTaken,
		"severity":      res.Record.Severity,
		"outcome":       res.Outcome,
	}).Info("решение модерации зафиксировано")

	s.dispatch(hooks)
	return res, nil
}

// enqueue добавляет элемент в очередь в текущей транзакции и откладывает оповещение ревьюеров.
func (s *Service) enqueue(ctx context.Context, entry *models.QueueEntry, hooks *afterCommit) error {
	if err := s.queue.Enqueue(ctx, entry); err != nil {
		return err
	}
	metrics.QueueEnqueued.WithLabelValues(entry.QueueType, strconv.Itoa(entry.Priority)).Inc()

	snapshot := *entry
	hooks.add(func() {
		for _, role := range []string{RoleModerator, RoleAdmin} {
			if err := s.notifier.BroadcastToRole(role, models.EventQueueNew, snapshot); err != nil {
				s.log.WithError(err).Warn("не удалось оповестить ревьюеров")
			}
		}
	})
	return nil
}

func (s *Service) notifyActioned(rec *models.ModerationRecord) func() {
	data := map[string]any{
		"moderation_id": rec.ID,
		"content_id":    rec.ContentID,
		"content_kind":  rec.ContentKind,
		"action_taken":  rec.ActionTaken,
		"severity":      rec.Severity,
	}
	return func() {
		if err := s.notifier.BroadcastToUser(rec.AuthorID, models.EventContentActioned, data); err != nil {
			s.log.WithError(err).WithField("user_id", rec.AuthorID).Warn("не удалось уведомить автора")
		}
	}
}
