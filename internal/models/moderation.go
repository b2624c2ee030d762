package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Действия по результату модерации.
const (
	ActionNone           = "none"
	ActionContentRemoved = "content_removed"
	ActionShadowBan      = "shadow_ban"
	ActionManualReview   = "manual_review"
)

// Уровни серьёзности нарушения.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// ValidActions список допустимых действий.
var ValidActions = map[string]struct{}{
	ActionNone:           {},
	ActionContentRemoved: {},
	ActionShadowBan:      {},
	ActionManualReview:   {},
}

// ValidSeverities список допустимых уровней серьёзности.
var ValidSeverities = map[string]struct{}{
	SeverityLow:    {},
	SeverityMedium: {},
	SeverityHigh:   {},
}

// Verdict результат автоматической оценки контента.
type Verdict struct {
	ActionTaken   string   `json:"action_taken"`
	Severity      string   `json:"severity"`
	Confidence    float64  `json:"confidence"`
	Flags         []string `json:"flags"`
	IsAppropriate bool     `json:"is_appropriate"`
}

// ModerationRecord решение модерации по единице контента.
// Создаётся один раз и никогда не удаляется.
type ModerationRecord struct {
	ID                      uuid.UUID      `db:"id" json:"id"`
	ContentID               uuid.UUID      `db:"content_id" json:"content_id"`
	ContentKind             string         `db:"content_kind" json:"content_kind"`
	AuthorID                uuid.UUID      `db:"author_id" json:"author_id"`
	IsAppropriate           bool           `db:"is_appropriate" json:"is_appropriate"`
	Severity                string         `db:"severity" json:"severity"`
	Confidence              float64        `db:"confidence" json:"confidence"`
	Flags                   pq.StringArray `db:"flags" json:"flags"`
	ActionTaken             string         `db:"action_taken" json:"action_taken"`
	AutoActioned            bool           `db:"auto_actioned" json:"auto_actioned"`
	OriginalContentSnapshot string         `db:"original_content_snapshot" json:"original_content_snapshot"`
	IsActive                bool           `db:"is_active" json:"is_active"`
	CreatedAt               time.Time      `db:"created_at" json:"created_at"`
}

// NewRecordFromVerdict собирает запись по успешному вердикту.
func NewRecordFromVerdict(item ContentItem, v Verdict) *ModerationRecord {
	flags := v.Flags
	if flags == nil {
		flags = []string{}
	}
	return &ModerationRecord{
		ContentID:               item.ContentID,
		ContentKind:             item.Kind,
		AuthorID:                item.AuthorID,
		IsAppropriate:           v.IsAppropriate,
		Severity:                v.Severity,
		Confidence:              v.Confidence,
		Flags:                   flags,
		ActionTaken:             v.ActionTaken,
		AutoActioned:            v.ActionTaken == ActionContentRemoved || v.ActionTaken == ActionShadowBan,
		OriginalContentSnapshot: item.Snapshot(),
		IsActive:                true,
	}
}

// RequiresEnforcement сообщает, меняет ли действие состояние контента.
func (r *ModerationRecord) RequiresEnforcement() bool {
	return r.ActionTaken == ActionContentRemoved || r.ActionTaken == ActionShadowBan
}
