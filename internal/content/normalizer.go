package content

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/moderation-backend/internal/logger"
	"github.com/ignatzorin/moderation-backend/internal/models"
	"github.com/ignatzorin/moderation-backend/internal/pkg/apperror"
)

// Status результат нормализации.
type Status int

const (
	// StatusOK запись превращена в ContentItem.
	StatusOK Status = iota
	// StatusUnsupported вид контента не зарегистрирован.
	StatusUnsupported
	// StatusIgnoredEvent событие не является вставкой.
	StatusIgnoredEvent
)

// Normalizer превращает события создания контента в ContentItem.
type Normalizer struct {
	registry *Registry
	log      *logrus.Entry
}

// NewNormalizer создаёт нормализатор поверх реестра.
func NewNormalizer(registry *Registry) *Normalizer {
	return &Normalizer{registry: registry, log: logger.Component("normalizer")}
}

// Registry возвращает реестр видов контента.
func (n *Normalizer) Registry() *Registry {
	return n.registry
}

// Normalize разбирает событие. Неизвестный вид контента не является ошибкой.
func (n *Normalizer) Normalize(event models.ContentCreated) (models.ContentItem, Status, error) {
	if event.Kind != "" && event.Kind != models.ContentEventInsert {
		n.log.WithField("event_kind", event.Kind).Debug("событие пропущено")
		return models.ContentItem{}, StatusIgnoredEvent, nil
	}
	return n.NormalizeRecord(event.ContentKind, event.Record)
}

// NormalizeRecord разбирает сырую запись заданного вида.
func (n *Normalizer) NormalizeRecord(kind string, record json.RawMessage) (models.ContentItem, Status, error) {
	rule, ok := n.registry.Lookup(kind)
	if !ok {
		n.log.WithField("content_kind", kind).Warn("неподдерживаемый вид контента, модерация пропущена")
		return models.ContentItem{}, StatusUnsupported, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(record, &fields); err != nil || fields == nil {
		return models.ContentItem{}, StatusOK, fmt.Errorf("%w: ожидается JSON объект", apperror.ErrInvalidRecord)
	}

	contentID, err := uuidField(fields, rule.IDField)
	if err != nil {
		return models.ContentItem{}, StatusOK, fmt.Errorf("%w: %v", apperror.ErrInvalidRecord, err)
	}
	authorID, err := uuidField(fields, rule.AuthorField)
	if err != nil {
		return models.ContentItem{}, StatusOK, fmt.Errorf("%w: %v", apperror.ErrInvalidRecord, err)
	}

	item := models.ContentItem{
		ContentID: contentID,
		Kind:      rule.Kind,
		AuthorID:  authorID,
		Text:      joinText(fields, rule.TextFields),
		MediaRefs: []string{},
	}
	if rule.MediaField != "" {
		item.MediaRefs = n.mediaRefs(fields[rule.MediaField])
	}
	return item, StatusOK, nil
}

func uuidField(fields map[string]json.RawMessage, name string) (uuid.UUID, error) {
	var raw string
	if err := json.Unmarshal(fields[name], &raw); err != nil {
		return uuid.Nil, fmt.Errorf("поле %s должно быть строкой UUID", name)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("поле %s: %w", name, err)
	}
	if id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("поле %s пустое", name)
	}
	return id, nil
}

// joinText склеивает текстовые поля через пустую строку, пропуская пустые и не-строки.
func joinText(fields map[string]json.RawMessage, names []string) string {
	parts := make([]string, 0, len(names))
	for _, name := range names {
		var s string
		if err := json.Unmarshal(fields[name], &s); err != nil {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

// mediaRefs принимает массив строк или одну строку; оставляет только абсолютные http(s) ссылки.
func (n *Normalizer) mediaRefs(raw json.RawMessage) []string {
	refs := []string{}
	if len(raw) == 0 {
		return refs
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		var single string
		if err := json.Unmarshal(raw, &single); err != nil {
			return refs
		}
		list = []string{single}
	}

	for _, ref := range list {
		ref = strings.TrimSpace(ref)
		u, err := url.Parse(ref)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			if ref != "" {
				n.log.WithField("media_ref", ref).Debug("ссылка на медиа отброшена")
			}
			continue
		}
		refs = append(refs, ref)
	}
	return refs
}
