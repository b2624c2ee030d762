package moderation

import "github.com/ignatzorin/moderation-backend/internal/models"

type Outcome string

const (
	OutcomeAssessed           Outcome = "assessed"
	OutcomeFallback           Outcome = "fallback"
	OutcomeAlreadyModerated   Outcome = "already_moderated"
	OutcomeSkippedUnsupported Outcome = "skipped_unsupported"
	OutcomeSkippedEmpty       Outcome = "skipped_empty"
	OutcomeSkippedEvent       Outcome = "skipped_event"
	OutcomeEscalated          Outcome = "escalated"
	OutcomeReassessed         Outcome = "reassessed"
	OutcomeContentMissing     Outcome = "content_missing"
	OutcomeAppealed           Outcome = "appealed"
	OutcomeResolved           Outcome = "resolved"
)

// Result итог обработки одного события, жалобы или апелляции.
// Degraded означает, что работа принята, но автоматическое решение не получено.
type Result struct {
	Outcome  Outcome                  `json:"outcome"`
	Record   *models.ModerationRecord `json:"record,omitempty"`
	Entry    *models.QueueEntry       `json:"queue_entry,omitempty"`
	Report   *models.UserReport       `json:"report,omitempty"`
	Appeal   *models.ModerationAppeal `json:"appeal,omitempty"`
	Degraded bool                     `json:"degraded"`
}
