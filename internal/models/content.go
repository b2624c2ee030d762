package models

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// ContentEventInsert единственный тип события, который запускает модерацию.
const ContentEventInsert = "insert"

// ContentCreated описывает событие создания контента от владельца данных.
type ContentCreated struct {
	Kind        string          `json:"kind"`
	ContentKind string          `json:"contentKind"`
	Record      json.RawMessage `json:"record"`
}

// ContentItem единое представление контента для оценки.
// Модерацией не сохраняется.
type ContentItem struct {
	ContentID uuid.UUID `json:"content_id"`
	Kind      string    `json:"content_kind"`
	AuthorID  uuid.UUID `json:"author_id"`
	Text      string    `json:"text"`
	MediaRefs []string  `json:"media_refs"`
}

// IsEmpty сообщает, что оценивать нечего: нет ни текста, ни медиа.
func (c ContentItem) IsEmpty() bool {
	return strings.TrimSpace(c.Text) == "" && len(c.MediaRefs) == 0
}

// Snapshot возвращает неизменяемую копию контента для аудита.
func (c ContentItem) Snapshot() string {
	if len(c.MediaRefs) == 0 {
		return c.Text
	}
	return c.Text + "\n\n[media]\n" + strings.Join(c.MediaRefs, "\n")
}
