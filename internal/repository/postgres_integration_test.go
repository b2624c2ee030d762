package repository

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ignatzorin/moderation-backend/internal/content"
	"github.com/ignatzorin/moderation-backend/internal/db"
	"github.com/ignatzorin/moderation-backend/internal/db/migrations"
	"github.com/ignatzorin/moderation-backend/internal/models"
	"github.com/ignatzorin/moderation-backend/internal/pkg/apperror"
)

var (
	testDB     *sqlx.DB
	skipReason string
)

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		skipReason = "интеграционные тесты пропущены в -short режиме"
		os.Exit(m.Run())
	}

	ctx := context.Background()
	container, conn, err := startPostgres(ctx)
	if err != nil {
		skipReason = fmt.Sprintf("postgres контейнер недоступен: %v", err)
		os.Exit(m.Run())
	}
	testDB = conn

	code := m.Run()
	_ = conn.Close()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func startPostgres(ctx context.Context) (testcontainers.Container, *sqlx.DB, error) {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "moderation_test",
			"POSTGRES_USER":     "test_user",
			"POSTGRES_PASSWORD": "test_password",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, nil, err
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, nil, err
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, nil, err
	}

	dsn := fmt.Sprintf("host=%s port=%s user=test_user password=test_password dbname=moderation_test sslmode=disable", host, port.Port())
	conn, err := db.NewPostgres(ctx, dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, nil, err
	}
	if err := db.RunMigrations(ctx, conn, migrations.FS); err != nil {
		_ = conn.Close()
		_ = container.Terminate(ctx)
		return nil, nil, err
	}
	return container, conn, nil
}

func requireDB(t *testing.T) *sqlx.DB {
	t.Helper()
	if testDB == nil {
		t.Skip(skipReason)
	}
	return testDB
}

func newRecord(contentID uuid.UUID, action string) *models.ModerationRecord {
	item := models.ContentItem{ContentID: contentID, Kind: content.KindPost, AuthorID: uuid.New(), Text: "текст"}
	return models.NewRecordFromVerdict(item, models.Verdict{
		ActionTaken:   action,
		Severity:      models.SeverityLow,
		Confidence:    0.9,
		Flags:         []string{"spam"},
		IsAppropriate: action == models.ActionNone,
	})
}

func TestLedgerCreateRecord_ConcurrentCallersShareOneRecord(t *testing.T) {
	conn := requireDB(t)
	ledger := NewLedgerRepository(conn)
	ctx := context.Background()
	contentID := uuid.New()

	const callers = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		ids     = map[uuid.UUID]struct{}{}
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, ok, err := ledger.CreateRecord(ctx, newRecord(contentID, models.ActionNone))
			assert.NoError(t, err)
			if err != nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if ok {
				created++
			}
			ids[rec.ID] = struct{}{}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Len(t, ids, 1)

	var count int
	require.NoError(t, conn.GetContext(ctx, &count, `SELECT COUNT(*) FROM moderation_records WHERE content_id = $1`, contentID))
	assert.Equal(t, 1, count)
}

func TestLedgerFindActiveRecord_NotFound(t *testing.T) {
	conn := requireDB(t)
	ledger := NewLedgerRepository(conn)

	_, err := ledger.FindActiveRecord(context.Background(), uuid.New(), content.KindPost)
	assert.True(t, errors.Is(err, ErrRecordNotFound))
	assert.True(t, apperror.IsNotFound(err))
}

func TestRunInTx_RollsBackRecordAndQueueTogether(t *testing.T) {
	conn := requireDB(t)
	ledger := NewLedgerRepository(conn)
	queue := NewQueueRepository(conn)
	tx := NewTxManager(conn)
	ctx := context.Background()
	contentID := uuid.New()
	boom := errors.New("boom")

	err := tx.WithinTx(ctx, func(ctx context.Context) error {
		rec, created, err := ledger.CreateRecord(ctx, newRecord(contentID, models.ActionManualReview))
		require.NoError(t, err)
		require.True(t, created)
		require.NoError(t, queue.Enqueue(ctx, &models.QueueEntry{
			ModerationID:     rec.ID,
			Priority:         models.PrioritySystemFailure,
			QueueType:        models.QueueTypeEscalated,
			EscalationReason: models.ReasonSystemError,
		}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = ledger.FindActiveRecord(ctx, contentID, content.KindPost)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

// Очередь общая для всех тестов пакета, поэтому тесты очереди выполняются последовательно
// и сначала вычищают pending элементы.
func drainQueue(t *testing.T, conn *sqlx.DB) {
	t.Helper()
	_, err := conn.Exec(`UPDATE moderation_queue SET status = 'resolved', resolution = 'dismiss', resolved_at = NOW() WHERE status <> 'resolved'`)
	require.NoError(t, err)
}

func TestQueueDequeue_PriorityThenAge(t *testing.T) {
	conn := requireDB(t)
	drainQueue(t, conn)
	ledger := NewLedgerRepository(conn)
	queue := NewQueueRepository(conn)
	ctx := context.Background()

	rec, _, err := ledger.CreateRecord(ctx, newRecord(uuid.New(), models.ActionManualReview))
	require.NoError(t, err)

	var enqueued []*models.QueueEntry
	for _, p := range []int{models.PriorityAppeal, models.PriorityUserReport, models.PrioritySystemFailure, models.PriorityUserReport} {
		entry := &models.QueueEntry{ModerationID: rec.ID, Priority: p, QueueType: models.QueueTypeEscalated, EscalationReason: "test"}
		require.NoError(t, queue.Enqueue(ctx, entry))
		assert.Equal(t, models.QueueStatusPending, entry.Status)
		enqueued = append(enqueued, entry)
	}

	pending, err := queue.ListPending(ctx, "", 0, 0)
	require.NoError(t, err)
	require.Len(t, pending, 4)

	reviewer := uuid.New()
	want := []uuid.UUID{enqueued[1].ID, enqueued[3].ID, enqueued[2].ID, enqueued[0].ID}
	for _, id := range want {
		got, err := queue.DequeueHighestPriority(ctx, reviewer)
		require.NoError(t, err)
		assert.Equal(t, id, got.ID)
		assert.Equal(t, models.QueueStatusInReview, got.Status)
		require.NotNil(t, got.AssignedTo)
		assert.Equal(t, reviewer, *got.AssignedTo)
	}

	_, err = queue.DequeueHighestPriority(ctx, reviewer)
	assert.ErrorIs(t, err, apperror.ErrQueueEntryNotFound)
}

func TestQueueDequeue_ConcurrentReviewersGetDistinctEntries(t *testing.T) {
	conn := requireDB(t)
	drainQueue(t, conn)
	ledger := NewLedgerRepository(conn)
	queue := NewQueueRepository(conn)
	ctx := context.Background()

	rec, _, err := ledger.CreateRecord(ctx, newRecord(uuid.New(), models.ActionManualReview))
	require.NoError(t, err)

	const n = 5
	for i := 0; i < n; i++ {
		require.NoError(t, queue.Enqueue(ctx, &models.QueueEntry{
			ModerationID: rec.ID, Priority: models.PrioritySystemFailure,
			QueueType: models.QueueTypeEscalated, EscalationReason: models.ReasonSystemError,
		}))
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[uuid.UUID]int{}
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			entry, err := queue.DequeueHighestPriority(ctx, uuid.New())
			assert.NoError(t, err)
			if err != nil {
				return
			}
			mu.Lock()
			seen[entry.ID]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, n)
	for id, c := range seen {
		assert.Equal(t, 1, c, "элемент %s выдан дважды", id)
	}
}

func TestQueueResolve_OnlyFromInReview(t *testing.T) {
	conn := requireDB(t)
	drainQueue(t, conn)
	ledger := NewLedgerRepository(conn)
	queue := NewQueueRepository(conn)
	ctx := context.Background()

	rec, _, err := ledger.CreateRecord(ctx, newRecord(uuid.New(), models.ActionManualReview))
	require.NoError(t, err)
	entry := &models.QueueEntry{ModerationID: rec.ID, Priority: 8, QueueType: models.QueueTypeEscalated, EscalationReason: "test"}
	require.NoError(t, queue.Enqueue(ctx, entry))

	reviewer := uuid.New()
	_, err = queue.Resolve(ctx, entry.ID, reviewer, models.ResolutionUphold)
	assert.ErrorIs(t, err, apperror.ErrEntryNotInReview)

	claimed, err := queue.DequeueHighestPriority(ctx, reviewer)
	require.NoError(t, err)
	resolved, err := queue.Resolve(ctx, claimed.ID, reviewer, models.ResolutionUphold)
	require.NoError(t, err)
	assert.Equal(t, models.QueueStatusResolved, resolved.Status)
	require.NotNil(t, resolved.Resolution)
	assert.Equal(t, models.ResolutionUphold, *resolved.Resolution)
	assert.NotNil(t, resolved.ResolvedAt)
}

func TestContentRepository_GuardedUpdatesAndFetch(t *testing.T) {
	conn := requireDB(t)
	repo := NewContentRepository(conn, content.DefaultRegistry())
	ctx := context.Background()

	postID, authorID := uuid.New(), uuid.New()
	_, err := conn.Exec(`INSERT INTO posts (id, user_id, content, media_urls) VALUES ($1, $2, 'привет', '{https://cdn.example.com/a.png}')`, postID, authorID)
	require.NoError(t, err)

	raw, err := repo.Fetch(ctx, content.KindPost, postID)
	require.NoError(t, err)
	var row map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &row))
	assert.Equal(t, postID.String(), row["id"])
	assert.Equal(t, authorID.String(), row["user_id"])

	changed, err := repo.SoftDelete(ctx, content.KindPost, postID)
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = repo.SoftDelete(ctx, content.KindPost, postID)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = repo.Restore(ctx, content.KindPost, postID)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.ShadowBan(ctx, content.KindPost, postID)
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = repo.ShadowBan(ctx, content.KindPost, postID)
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = repo.Fetch(ctx, content.KindPost, uuid.New())
	assert.ErrorIs(t, err, ErrContentNotFound)
	_, err = repo.SoftDelete(ctx, "story", postID)
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestHistoryUpsert(t *testing.T) {
	conn := requireDB(t)
	ledger := NewLedgerRepository(conn)
	history := NewHistoryRepository(conn)
	ctx := context.Background()

	rec, _, err := ledger.CreateRecord(ctx, newRecord(uuid.New(), models.ActionContentRemoved))
	require.NoError(t, err)

	pending := models.AppealStatusPending
	require.NoError(t, history.Upsert(ctx, &models.UserModerationHistory{ModerationID: rec.ID, UserID: rec.AuthorID, AppealSubmitted: true, AppealStatus: &pending}))
	approved := models.AppealStatusApproved
	require.NoError(t, history.Upsert(ctx, &models.UserModerationHistory{ModerationID: rec.ID, UserID: rec.AuthorID, AppealSubmitted: true, AppealStatus: &approved}))

	got, err := history.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, got.AppealSubmitted)
	require.NotNil(t, got.AppealStatus)
	assert.Equal(t, models.AppealStatusApproved, *got.AppealStatus)

	_, err = history.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrHistoryNotFound)
}

