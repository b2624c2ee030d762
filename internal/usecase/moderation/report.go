package moderation

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/moderation-backend/internal/content"
	"github.com/ignatzorin/moderation-backend/internal/models"
	"github.com/ignatzorin/moderation-backend/internal/pkg/apperror"
)

// ReportInput жалоба пользователя на контент.
type ReportInput struct {
	ReporterID     uuid.UUID `validate:"required"`
	ContentID      uuid.UUID `validate:"required"`
	ContentKind    string    `validate:"required,max=64"`
	ReportedUserID uuid.UUID `validate:"required"`
	Category       string    `validate:"required,max=64"`
	Reason         string    `validate:"required,max=2000"`
	Context        *string   `validate:"omitempty,max=4000"`
}

// SubmitReport сохраняет жалобу. Если по контенту уже есть решение, жалоба
// попадает в очередь с наивысшим приоритетом; иначе контент оценивается заново.
func (s *Service) SubmitReport(ctx context.Context, in ReportInput) (Result, error) {
	if err := s.validate.Struct(in); err != nil {
		return Result{}, apperror.Validation("некорректная жалоба", err)
	}
	if _, ok := s.normalizer.Registry().Lookup(in.ContentKind); !ok {
		return Result{}, apperror.New(apperror.ErrCodeValidation, "неподдерживаемый вид контента: "+in.ContentKind)
	}

	report := &models.UserReport{
		ReporterID:          in.ReporterID,
		ReportedContentID:   in.ContentID,
		ReportedContentKind: in.ContentKind,
		ReportedUserID:      in.ReportedUserID,
		Category:            in.Category,
		Reason:              in.Reason,
		Context:             in.Context,
	}

	var (
		res   Result
		hooks afterCommit
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.reports.Create(ctx, report); err != nil {
			return err
		}
		rec, err := s.ledger.FindActiveRecord(ctx, in.ContentID, in.ContentKind)
		if errors.Is(err, apperror.ErrModerationNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		entry, err := s.escalateReport(ctx, rec, report, &hooks)
		if err != nil {
			return err
		}
		res = Result{Outcome: OutcomeEscalated, Record: rec, Entry: entry}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	if res.Outcome == "" {
		res, err = s.reassessReported(ctx, report)
		if err != nil {
			return Result{}, err
		}
	}
	res.Report = report

	s.log.WithFields(logrus.Fields{
		"report_id":    report.ID,
		"content_id":   report.ReportedContentID,
		"content_kind": report.ReportedContentKind,
		"category":     report.Category,
		"outcome":      res.Outcome,
	}).Info("жалоба принята")

	s.dispatch(hooks)
	s.observe("report", res)
	return res, nil
}

func (s *Service) escalateReport(ctx context.Context, rec *models.ModerationRecord, report *models.UserReport, hooks *afterCommit) (*models.QueueEntry, error) {
	reportID := report.ID
	entry := &models.QueueEntry{
		ModerationID:     rec.ID,
		Priority:         models.PriorityUserReport,
		QueueType:        models.QueueTypeEscalated,
		EscalationReason: models.ReportReason(report.Category),
		ReportID:         &reportID,
	}
	if err := s.enqueue(ctx, entry, hooks); err != nil {
		return nil, err
	}
	return entry, nil
}

// reassessReported оценивает контент, по которому ещё нет решения.
// Если решение успел принять параллельный поток, жалоба эскалируется по нему.
func (s *Service) reassessReported(ctx context.Context, report *models.UserReport) (Result, error) {
	log := s.log.WithFields(logrus.Fields{
		"report_id":    report.ID,
		"content_id":   report.ReportedContentID,
		"content_kind": report.ReportedContentKind,
	})

	raw, err := s.content.Fetch(ctx, report.ReportedContentKind, report.ReportedContentID)
	if err != nil {
		if apperror.IsNotFound(err) {
			log.Warn("контент из жалобы не найден, жалоба ожидает ревьюера")
			return Result{Outcome: OutcomeContentMissing, Degraded: true}, nil
		}
		return Result{}, err
	}

	item, status, err := s.normalizer.NormalizeRecord(report.ReportedContentKind, raw)
	if err != nil || status != content.StatusOK {
		log.WithError(err).Warn("контент из жалобы не удалось разобрать")
		return Result{Outcome: OutcomeContentMissing, Degraded: true}, nil
	}

	res, err := s.moderate(ctx, item)
	if err != nil {
		return Result{}, err
	}

	switch res.Outcome {
	case OutcomeAssessed:
		res.Outcome = OutcomeReassessed
	case OutcomeFallback:
		res.Outcome = OutcomeReassessed
		res.Degraded = true
	case OutcomeAlreadyModerated:
		var hooks afterCommit
		var entry *models.QueueEntry
		err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
			var err error
			entry, err = s.escalateReport(ctx, res.Record, report, &hooks)
			return err
		})
		if err != nil {
			return Result{}, err
		}
		s.dispatch(hooks)
		log.WithField("moderation_id", res.Record.ID).Info("решение принято параллельно, жалоба эскалирована")
		res = Result{Outcome: OutcomeEscalated, Record: res.Record, Entry: entry}
	}
	return res, nil
}
