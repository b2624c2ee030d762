package moderation

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/moderation-backend/internal/content"
	"github.com/ignatzorin/moderation-backend/internal/models"
	"github.com/ignatzorin/moderation-backend/internal/pkg/apperror"
)

type contentKey struct {
	kind string
	id   uuid.UUID
}

type contentState struct {
	raw          json.RawMessage
	deleted      bool
	shadowBanned bool
}

// memStore хранилище в памяти. Транзакции сериализуются и при ошибке
// откатываются к снимку.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	records  []models.ModerationRecord
	queue    []models.QueueEntry
	reports  map[uuid.UUID]models.UserReport
	appeals  map[uuid.UUID]models.ModerationAppeal
	history  map[uuid.UUID]models.UserModerationHistory
	contents map[contentKey]contentState
	writes   map[string]int
	clock    time.Time
}

func newMemStore() *memStore {
	return &memStore{
		reports:  map[uuid.UUID]models.UserReport{},
		appeals:  map[uuid.UUID]models.ModerationAppeal{},
		history:  map[uuid.UUID]models.UserModerationHistory{},
		contents: map[contentKey]contentState{},
		writes:   map[string]int{},
		clock:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *memStore) now() time.Time {
	s.clock = s.clock.Add(time.Millisecond)
	return s.clock
}

type snapshot struct {
	records  []models.ModerationRecord
	queue    []models.QueueEntry
	reports  map[uuid.UUID]models.UserReport
	appeals  map[uuid.UUID]models.ModerationAppeal
	history  map[uuid.UUID]models.UserModerationHistory
	contents map[contentKey]contentState
}

func (s *memStore) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := snapshot{
		records:  append([]models.ModerationRecord(nil), s.records...),
		queue:    append([]models.QueueEntry(nil), s.queue...),
		reports:  map[uuid.UUID]models.UserReport{},
		appeals:  map[uuid.UUID]models.ModerationAppeal{},
		history:  map[uuid.UUID]models.UserModerationHistory{},
		contents: map[contentKey]contentState{},
	}
	for k, v := range s.reports {
		snap.reports[k] = v
	}
	for k, v := range s.appeals {
		snap.appeals[k] = v
	}
	for k, v := range s.history {
		snap.history[k] = v
	}
	for k, v := range s.contents {
		snap.contents[k] = v
	}
	return snap
}

func (s *memStore) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = snap.records
	s.queue = snap.queue
	s.reports = snap.reports
	s.appeals = snap.appeals
	s.history = snap.history
	s.contents = snap.contents
}

// WithinTx реализует Transactor.
func (s *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	snap := s.snapshot()
	if err := fn(ctx); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *memStore) recordCount(contentID uuid.UUID, kind string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.records {
		if r.ContentID == contentID && r.ContentKind == kind && r.IsActive {
			n++
		}
	}
	return n
}

func (s *memStore) entries() []models.QueueEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.QueueEntry(nil), s.queue...)
}

func (s *memStore) appealRows() []models.ModerationAppeal {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]models.ModerationAppeal, 0, len(s.appeals))
	for _, a := range s.appeals {
		rows = append(rows, a)
	}
	return rows
}

func (s *memStore) writeCount(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes[op]
}

func (s *memStore) putContent(kind string, id uuid.UUID, raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contents[contentKey{kind, id}] = contentState{raw: json.RawMessage(raw)}
}

func (s *memStore) stateOf(kind string, id uuid.UUID) contentState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contents[contentKey{kind, id}]
}

type fakeLedger struct {
	s       *memStore
	failErr error
}

func (l *fakeLedger) CreateRecord(ctx context.Context, record *models.ModerationRecord) (*models.ModerationRecord, bool, error) {
	if l.failErr != nil {
		return nil, false, l.failErr
	}
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	for _, r := range l.s.records {
		if r.ContentID == record.ContentID && r.ContentKind == record.ContentKind && r.IsActive {
			existing := r
			return &existing, false, nil
		}
	}
	stored := *record
	stored.ID = uuid.New()
	stored.IsActive = true
	stored.CreatedAt = l.s.now()
	l.s.records = append(l.s.records, stored)
	out := stored
	return &out, true, nil
}

func (l *fakeLedger) FindActiveRecord(ctx context.Context, contentID uuid.UUID, kind string) (*models.ModerationRecord, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	for _, r := range l.s.records {
		if r.ContentID == contentID && r.ContentKind == kind && r.IsActive {
			out := r
			return &out, nil
		}
	}
	return nil, apperror.ErrModerationNotFound
}

func (l *fakeLedger) GetByID(ctx context.Context, id uuid.UUID) (*models.ModerationRecord, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	for _, r := range l.s.records {
		if r.ID == id {
			out := r
			return &out, nil
		}
	}
	return nil, apperror.ErrModerationNotFound
}

type fakeQueue struct {
	s       *memStore
	failErr error
}

func (q *fakeQueue) Enqueue(ctx context.Context, entry *models.QueueEntry) error {
	if q.failErr != nil {
		return q.failErr
	}
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	entry.ID = uuid.New()
	entry.Status = models.QueueStatusPending
	entry.CreatedAt = q.s.now()
	entry.UpdatedAt = entry.CreatedAt
	q.s.queue = append(q.s.queue, *entry)
	return nil
}

func (q *fakeQueue) DequeueHighestPriority(ctx context.Context, reviewerID uuid.UUID) (*models.QueueEntry, error) {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	best := -1
	for i, e := range q.s.queue {
		if e.Status != models.QueueStatusPending {
			continue
		}
		if best == -1 || e.Priority > q.s.queue[best].Priority ||
			(e.Priority == q.s.queue[best].Priority && e.CreatedAt.Before(q.s.queue[best].CreatedAt)) {
			best = i
		}
	}
	if best == -1 {
		return nil, apperror.ErrQueueEntryNotFound
	}
	q.s.queue[best].Status = models.QueueStatusInReview
	q.s.queue[best].AssignedTo = &reviewerID
	out := q.s.queue[best]
	return &out, nil
}

func (q *fakeQueue) ListPending(ctx context.Context, queueType string, limit, offset int) ([]models.QueueEntry, error) {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	var out []models.QueueEntry
	for _, e := range q.s.queue {
		if e.Status == models.QueueStatusPending && (queueType == "" || e.QueueType == queueType) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (q *fakeQueue) GetByID(ctx context.Context, id uuid.UUID) (*models.QueueEntry, error) {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	for _, e := range q.s.queue {
		if e.ID == id {
			out := e
			return &out, nil
		}
	}
	return nil, apperror.ErrQueueEntryNotFound
}

func (q *fakeQueue) Resolve(ctx context.Context, id, reviewerID uuid.UUID, resolution string) (*models.QueueEntry, error) {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	for i, e := range q.s.queue {
		if e.ID != id {
			continue
		}
		if e.Status != models.QueueStatusInReview || e.AssignedTo == nil || *e.AssignedTo != reviewerID {
			return nil, apperror.ErrEntryNotInReview
		}
		now := q.s.now()
		q.s.queue[i].Status = models.QueueStatusResolved
		q.s.queue[i].Resolution = &resolution
		q.s.queue[i].ResolvedAt = &now
		out := q.s.queue[i]
		return &out, nil
	}
	return nil, apperror.ErrEntryNotInReview
}

type fakeReports struct{ s *memStore }

func (r *fakeReports) Create(ctx context.Context, report *models.UserReport) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	report.ID = uuid.New()
	report.Status = models.ReportStatusPending
	report.CreatedAt = r.s.now()
	r.s.reports[report.ID] = *report
	return nil
}

func (r *fakeReports) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rep, ok := r.s.reports[id]
	if !ok {
		return apperror.New(apperror.ErrCodeNotFound, "жалоба не найдена")
	}
	rep.Status = status
	r.s.reports[id] = rep
	return nil
}

type fakeAppeals struct{ s *memStore }

func (a *fakeAppeals) Create(ctx context.Context, appeal *models.ModerationAppeal) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	appeal.ID = uuid.New()
	appeal.Status = models.AppealStatusPending
	appeal.CreatedAt = a.s.now()
	a.s.appeals[appeal.ID] = *appeal
	return nil
}

func (a *fakeAppeals) GetByID(ctx context.Context, id uuid.UUID) (*models.ModerationAppeal, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	appeal, ok := a.s.appeals[id]
	if !ok {
		return nil, apperror.New(apperror.ErrCodeNotFound, "апелляция не найдена")
	}
	return &appeal, nil
}

func (a *fakeAppeals) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	appeal, ok := a.s.appeals[id]
	if !ok {
		return apperror.New(apperror.ErrCodeNotFound, "апелляция не найдена")
	}
	appeal.Status = status
	a.s.appeals[id] = appeal
	return nil
}

type fakeHistory struct {
	s       *memStore
	failErr error
}

func (h *fakeHistory) Upsert(ctx context.Context, row *models.UserModerationHistory) error {
	if h.failErr != nil {
		return h.failErr
	}
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	row.UpdatedAt = h.s.now()
	h.s.history[row.ModerationID] = *row
	return nil
}

type fakeContent struct{ s *memStore }

func (c *fakeContent) mutate(op, kind string, id uuid.UUID, apply func(*contentState) bool) (bool, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	key := contentKey{kind, id}
	st := c.s.contents[key]
	changed := apply(&st)
	c.s.contents[key] = st
	if changed {
		c.s.writes[op]++
	}
	return changed, nil
}

func (c *fakeContent) SoftDelete(ctx context.Context, kind string, id uuid.UUID) (bool, error) {
	return c.mutate("soft_delete", kind, id, func(st *contentState) bool {
		if st.deleted {
			return false
		}
		st.deleted = true
		return true
	})
}

func (c *fakeContent) Restore(ctx context.Context, kind string, id uuid.UUID) (bool, error) {
	return c.mutate("restore", kind, id, func(st *contentState) bool {
		if !st.deleted {
			return false
		}
		st.deleted = false
		return true
	})
}

func (c *fakeContent) ShadowBan(ctx context.Context, kind string, id uuid.UUID) (bool, error) {
	return c.mutate("shadow_ban", kind, id, func(st *contentState) bool {
		if st.shadowBanned {
			return false
		}
		st.shadowBanned = true
		return true
	})
}

func (c *fakeContent) LiftShadowBan(ctx context.Context, kind string, id uuid.UUID) (bool, error) {
	return c.mutate("lift_shadow_ban", kind, id, func(st *contentState) bool {
		if !st.shadowBanned {
			return false
		}
		st.shadowBanned = false
		return true
	})
}

func (c *fakeContent) Fetch(ctx context.Context, kind string, id uuid.UUID) (json.RawMessage, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	st, ok := c.s.contents[contentKey{kind, id}]
	if !ok || st.raw == nil {
		return nil, apperror.New(apperror.ErrCodeNotFound, "контент не найден")
	}
	return st.raw, nil
}

type fakeAssessor struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, item models.ContentItem) (models.Verdict, error)
}

func (a *fakeAssessor) Assess(ctx context.Context, item models.ContentItem) (models.Verdict, error) {
	a.mu.Lock()
	a.calls++
	fn := a.fn
	a.mu.Unlock()
	return fn(ctx, item)
}

func (a *fakeAssessor) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

type notification struct {
	target string
	event  string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *fakeNotifier) BroadcastToUser(userID uuid.UUID, event string, data any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{target: userID.String(), event: event})
	return nil
}

func (n *fakeNotifier) BroadcastToRole(role string, event string, data any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{target: role, event: event})
	return nil
}

func (n *fakeNotifier) events(event string) []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notification
	for _, s := range n.sent {
		if s.event == event {
			out = append(out, s)
		}
	}
	return out
}

type fixture struct {
	store    *memStore
	ledger   *fakeLedger
	queue    *fakeQueue
	history  *fakeHistory
	assessor *fakeAssessor
	notifier *fakeNotifier
	svc      *Service
}

func verdictOf(action string) models.Verdict {
	return models.Verdict{
		ActionTaken:   action,
		Severity:      models.SeverityHigh,
		Confidence:    0.95,
		Flags:         []string{"test"},
		IsAppropriate: action == models.ActionNone,
	}
}

func newFixture(verdict func(ctx context.Context, item models.ContentItem) (models.Verdict, error)) *fixture {
	store := newMemStore()
	f := &fixture{
		store:    store,
		ledger:   &fakeLedger{s: store},
		queue:    &fakeQueue{s: store},
		history:  &fakeHistory{s: store},
		assessor: &fakeAssessor{fn: verdict},
		notifier: &fakeNotifier{},
	}
	f.svc = NewService(Deps{
		Ledger:     f.ledger,
		Queue:      f.queue,
		Reports:    &fakeReports{s: store},
		Appeals:    &fakeAppeals{s: store},
		History:    f.history,
		Content:    &fakeContent{s: store},
		Assessor:   f.assessor,
		Tx:         store,
		Normalizer: content.NewNormalizer(content.DefaultRegistry()),
		Notifier:   f.notifier,
		Async:      func(fn func()) { fn() },
	})
	return f
}

func returning(action string) func(ctx context.Context, item models.ContentItem) (models.Verdict, error) {
	return func(ctx context.Context, item models.ContentItem) (models.Verdict, error) {
		return verdictOf(action), nil
	}
}

func postRecord(id, author uuid.UUID, text string) string {
	raw, _ := json.Marshal(map[string]any{
		"id":         id.String(),
		"user_id":    author.String(),
		"content":    text,
		"media_urls": []string{},
	})
	return string(raw)
}

func postEvent(id, author uuid.UUID, text string) models.ContentCreated {
	return models.ContentCreated{
		Kind:        models.ContentEventInsert,
		ContentKind: content.KindPost,
		Record:      json.RawMessage(postRecord(id, author, text)),
	}
}
