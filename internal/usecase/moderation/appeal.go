package moderation

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/moderation-backend/internal/models"
	"github.com/ignatzorin/moderation-backend/internal/pkg/apperror"
)

// AppealInput апелляция автора на решение модерации.
type AppealInput struct {
	UserID       uuid.UUID `validate:"required"`
	ModerationID uuid.UUID `validate:"required"`
	Reason       string    `validate:"required,max=2000"`
	Evidence     *string   `validate:"omitempty,max=4000"`
	Statement    *string   `validate:"omitempty,max=4000"`
}

// SubmitAppeal принимает апелляцию. Апелляция, очередь и история пишутся атомарно;
// при неизвестном решении ничего не сохраняется.
func (s *Service) SubmitAppeal(ctx context.Context, in AppealInput) (Result, error) {
	if err := s.validate.Struct(in); err != nil {
		return Result{}, apperror.Validation("некорректная апелляция", err)
	}

	rec, err := s.ledger.GetByID(ctx, in.ModerationID)
	if err != nil {
		return Result{}, err
	}
	if rec.AuthorID != in.UserID {
		return Result{}, apperror.ErrNotContentAuthor
	}

	appeal := &models.ModerationAppeal{
		UserID:       in.UserID,
		ModerationID: in.ModerationID,
		Reason:       in.Reason,
		Evidence:     in.Evidence,
		Statement:    in.Statement,
	}

	var (
		entry *models.QueueEntry
		hooks afterCommit
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.appeals.Create(ctx, appeal); err != nil {
			return err
		}

		appealID := appeal.ID
		entry = &models.QueueEntry{
			ModerationID:     rec.ID,
			Priority:         models.PriorityAppeal,
			QueueType:        models.QueueTypeAppeal,
			EscalationReason: models.ReasonAppeal,
			AppealID:         &appealID,
		}
		if err := s.enqueue(ctx, entry, &hooks); err != nil {
			return err
		}

		status := models.AppealStatusPending
		return s.history.Upsert(ctx, &models.UserModerationHistory{
			ModerationID:    rec.ID,
			UserID:          in.UserID,
			AppealSubmitted: true,
			AppealStatus:    &status,
		})
	})
	if err != nil {
		return Result{}, err
	}

	s.log.WithFields(logrus.Fields{
		"appeal_id":     appeal.ID,
		"moderation_id": rec.ID,
		"user_id":       in.UserID,
	}).Info("апелляция принята")

	res := Result{Outcome: OutcomeAppealed, Record: rec, Entry: entry, Appeal: appeal}
	s.dispatch(hooks)
	s.observe("appeal", res)
	return res, nil
}
