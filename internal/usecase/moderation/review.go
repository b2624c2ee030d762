package moderation

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/moderation-backend/internal/models"
	"github.com/ignatzorin/moderation-backend/internal/pkg/apperror"
)

// ResolveInput решение ревьюера по элементу очереди.
type ResolveInput struct {
	EntryID    uuid.UUID `validate:"required"`
	ReviewerID uuid.UUID `validate:"required"`
	Decision   string    `validate:"required,oneof=uphold overturn dismiss"`
}

// ClaimNext выдаёт ревьюеру самый срочный элемент очереди.
func (s *Service) ClaimNext(ctx context.Context, reviewerID uuid.UUID) (*models.QueueEntry, error) {
	entry, err := s.queue.DequeueHighestPriority(ctx, reviewerID)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"entry_id":    entry.ID,
		"reviewer_id": reviewerID,
		"priority":    entry.Priority,
	}).Info("элемент очереди выдан ревьюеру")
	return entry, nil
}

// ListQueue возвращает ожидающие элементы в порядке выдачи.
func (s *Service) ListQueue(ctx context.Context, queueType string, limit, offset int) ([]models.QueueEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.queue.ListPending(ctx, queueType, limit, offset)
}

// GetRecord возвращает решение модерации.
func (s *Service) GetRecord(ctx context.Context, id uuid.UUID) (*models.ModerationRecord, error) {
	return s.ledger.GetByID(ctx, id)
}

// Resolve закрывает элемент очереди. overturn отменяет применённое решение;
// для апелляции решение также фиксируется в апелляции и истории.
func (s *Service) Resolve(ctx context.Context, in ResolveInput) (Result, error) {
	if err := s.validate.Struct(in); err != nil {
		return Result{}, apperror.Validation("некорректное решение ревьюера", err)
	}

	if _, err := s.queue.GetByID(ctx, in.EntryID); err != nil {
		return Result{}, err
	}

	var (
		res   Result
		hooks afterCommit
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		entry, err := s.queue.Resolve(ctx, in.EntryID, in.ReviewerID, in.Decision)
		if err != nil {
			return err
		}
		rec, err := s.ledger.GetByID(ctx, entry.ModerationID)
		if err != nil {
			return err
		}
		res = Result{Outcome: OutcomeResolved, Record: rec, Entry: entry}

		if in.Decision == models.ResolutionOverturn {
			changed, err := s.enforcer.Revert(ctx, rec)
			if err != nil {
				return err
			}
			if changed {
				hooks.add(s.notifyRestored(rec))
			}
		}

		switch {
		case entry.AppealID != nil:
			appeal, err := s.decideAppeal(ctx, *entry.AppealID, rec, in.Decision)
			if err != nil {
				return err
			}
			res.Appeal = appeal
			hooks.add(s.notifyAppealDecided(appeal))
		case entry.ReportID != nil:
			status := models.ReportStatusReviewed
			if in.Decision == models.ResolutionDismiss {
				status = models.ReportStatusDismissed
			}
			if err := s.reports.UpdateStatus(ctx, *entry.ReportID, status); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	s.log.WithFields(logrus.Fields{
		"entry_id":      in.EntryID,
		"reviewer_id":   in.ReviewerID,
		"decision":      in.Decision,
		"moderation_id": res.Record.ID,
	}).Info("элемент очереди закрыт")

	s.dispatch(hooks)
	s.observe("review", res)
	return res, nil
}

func (s *Service) decideAppeal(ctx context.Context, appealID uuid.UUID, rec *models.ModerationRecord, decision string) (*models.ModerationAppeal, error) {
	appeal, err := s.appeals.GetByID(ctx, appealID)
	if err != nil {
		return nil, err
	}

	status := models.AppealStatusDenied
	if decision == models.ResolutionOverturn {
		status = models.AppealStatusApproved
	}
	if err := s.appeals.UpdateStatus(ctx, appeal.ID, status); err != nil {
		return nil, err
	}
	appeal.Status = status

	if err := s.history.Upsert(ctx, &models.UserModerationHistory{
		ModerationID:    rec.ID,
		UserID:          appeal.UserID,
		AppealSubmitted: true,
		AppealStatus:    &status,
	}); err != nil {
		return nil, err
	}
	return appeal, nil
}

func (s *Service) notifyRestored(rec *models.ModerationRecord) func() {
	data := map[string]any{
		"moderation_id": rec.ID,
		"content_id":    rec.ContentID,
		"content_kind":  rec.ContentKind,
	}
	return func() {
		if err := s.notifier.BroadcastToUser(rec.AuthorID, models.EventContentRestored, data); err != nil {
			s.log.WithError(err).WithField("user_id", rec.AuthorID).Warn("не удалось уведомить автора")
		}
	}
}

func (s *Service) notifyAppealDecided(appeal *models.ModerationAppeal) func() {
	data := map[string]any{
		"appeal_id":     appeal.ID,
		"moderation_id": appeal.ModerationID,
		"status":        appeal.Status,
	}
	return func() {
		if err := s.notifier.BroadcastToUser(appeal.UserID, models.EventAppealDecided, data); err != nil {
			s.log.WithError(err).WithField("user_id", appeal.UserID).Warn("не удалось уведомить автора")
		}
	}
}
