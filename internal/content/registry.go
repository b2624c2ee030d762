package content

import (
	"fmt"
	"regexp"
	"sort"
	"sync"
)

// Поддерживаемые по умолчанию виды контента.
const (
	KindPost    = "post"
	KindMessage = "message"
	KindComment = "comment"
	KindListing = "listing"
)

var identifierRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// KindRule описывает, как извлечь ContentItem из записи конкретного вида
// и в какой таблице лежит сам контент.
type KindRule struct {
	Kind        string
	Table       string
	IDField     string
	AuthorField string
	TextFields  []string
	MediaField  string
}

// Validate проверяет, что имена безопасно подставлять в SQL.
func (r KindRule) Validate() error {
	if r.Kind == "" {
		return fmt.Errorf("content: вид контента не задан")
	}
	names := append([]string{r.Table, r.IDField, r.AuthorField}, r.TextFields...)
	if r.MediaField != "" {
		names = append(names, r.MediaField)
	}
	for _, name := range names {
		if !identifierRe.MatchString(name) {
			return fmt.Errorf("content: недопустимое имя %q в правиле %s", name, r.Kind)
		}
	}
	if len(r.TextFields) == 0 && r.MediaField == "" {
		return fmt.Errorf("content: правило %s не извлекает ни текст, ни медиа", r.Kind)
	}
	return nil
}

// Registry сопоставляет вид контента с правилом извлечения.
// Новый вид добавляется регистрацией правила, без изменения конвейера.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]KindRule
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]KindRule)}
}

// DefaultRegistry возвращает реестр с видами контента платформы.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, rule := range []KindRule{
		{Kind: KindPost, Table: "posts", IDField: "id", AuthorField: "user_id", TextFields: []string{"content"}, MediaField: "media_urls"},
		{Kind: KindMessage, Table: "messages", IDField: "id", AuthorField: "sender_id", TextFields: []string{"content"}, MediaField: "attachments"},
		{Kind: KindComment, Table: "comments", IDField: "id", AuthorField: "user_id", TextFields: []string{"content"}},
		{Kind: KindListing, Table: "listings", IDField: "id", AuthorField: "seller_id", TextFields: []string{"title", "description"}, MediaField: "images"},
	} {
		if err := r.Register(rule); err != nil {
			panic(err)
		}
	}
	return r
}

// Register добавляет или заменяет правило.
func (r *Registry) Register(rule KindRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[rule.Kind] = rule
	return nil
}

// Lookup возвращает правило для вида контента.
func (r *Registry) Lookup(kind string) (KindRule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[kind]
	return rule, ok
}

// Kinds возвращает зарегистрированные виды в алфавитном порядке.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.rules))
	for kind := range r.rules {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}
