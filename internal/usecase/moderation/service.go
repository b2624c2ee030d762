package moderation

import (
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/moderation-backend/internal/content"
	"github.com/ignatzorin/moderation-backend/internal/goroutine"
	"github.com/ignatzorin/moderation-backend/internal/logger"
	"github.com/ignatzorin/moderation-backend/internal/metrics"
)

// Роли, которым рассылаются события очереди.
const (
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// Deps зависимости сервиса модерации.
type Deps struct {
	Ledger     Ledger
	Queue      Queue
	Reports    Reports
	Appeals    Appeals
	History    History
	Content    ContentStore
	Assessor   Assessor
	Tx         Transactor
	Normalizer *content.Normalizer
	Notifier   Notifier
	// Async запускает фоновую работу после коммита. По умолчанию goroutine.SafeGo.
	Async func(fn func())
}

// Service объединяет три входа (события, жалобы, апелляции) и разбор очереди.
type Service struct {
	ledger     Ledger
	queue      Queue
	reports    Reports
	appeals    Appeals
	history    History
	content    ContentStore
	assessor   Assessor
	tx         Transactor
	normalizer *content.Normalizer
	enforcer   *Enforcer
	notifier   Notifier
	async      func(fn func())
	validate   *validator.Validate
	log        *logrus.Entry
}

func NewService(d Deps) *Service {
	async := d.Async
	if async == nil {
		async = goroutine.SafeGo
	}
	return &Service{
		ledger:     d.Ledger,
		queue:      d.Queue,
		reports:    d.Reports,
		appeals:    d.Appeals,
		history:    d.History,
		content:    d.Content,
		assessor:   d.Assessor,
		tx:         d.Tx,
		normalizer: d.Normalizer,
		enforcer:   NewEnforcer(d.Content),
		notifier:   d.Notifier,
		async:      async,
		validate:   validator.New(),
		log:        logger.Component("moderation"),
	}
}

// afterCommit откладывает уведомления до успешного коммита.
type afterCommit []func()

func (a *afterCommit) add(fn func()) {
	*a = append(*a, fn)
}

func (s *Service) dispatch(hooks afterCommit) {
	if s.notifier == nil {
		return
	}
	for _, fn := range hooks {
		s.async(fn)
	}
}

func (s *Service) observe(source string, res Result) {
	metrics.PipelineOutcomes.WithLabelValues(source, string(res.Outcome)).Inc()
}
