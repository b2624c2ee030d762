package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/moderation-backend/internal/models"
)

func testItem() models.ContentItem {
	return models.ContentItem{
		ContentID: uuid.New(),
		Kind:      "post",
		AuthorID:  uuid.New(),
		Text:      "Продаю ноутбук",
		MediaRefs: []string{"https://cdn.example.com/1.jpg"},
	}
}

func newTestClient(url string, mutate ...func(*Options)) *Client {
	opts := Options{
		URL:                url,
		APIKey:             "secret-key",
		Timeout:            2 * time.Second,
		RetryWaitMin:       time.Millisecond,
		RetryWaitMax:       5 * time.Millisecond,
		BreakerMaxFailures: 100,
	}
	for _, m := range mutate {
		m(&opts)
	}
	return NewClient(opts)
}

func respond(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func TestAssess_SendsContractAndParsesVerdict(t *testing.T) {
	item := testItem()
	var got map[string]interface{}
	var auth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		respond(`{"analysis":{"action_taken":"shadow_ban","severity":"high","confidence":0.93,"flags":["scam"],"is_appropriate":false}}`)(w, r)
	}))
	defer srv.Close()

	verdict, err := newTestClient(srv.URL).Assess(context.Background(), item)
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret-key", auth)
	assert.Equal(t, item.Text, got["content"])
	assert.Equal(t, item.ContentID.String(), got["contentId"])
	assert.Equal(t, "post", got["contentType"])
	assert.Equal(t, item.AuthorID.String(), got["userId"])
	assert.Equal(t, []interface{}{"https://cdn.example.com/1.jpg"}, got["mediaUrls"])

	assert.Equal(t, models.Verdict{
		ActionTaken:   models.ActionShadowBan,
		Severity:      models.SeverityHigh,
		Confidence:    0.93,
		Flags:         []string{"scam"},
		IsAppropriate: false,
	}, verdict)
}

func TestAssess_IsAppropriateDefaultsFromAction(t *testing.T) {
	tests := []struct {
		name   string
		action string
		want   bool
	}{
		{name: "none", action: "none", want: true},
		{name: "manual review", action: "manual_review", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(respond(`{"analysis":{"action_taken":"` + tt.action + `","severity":"low","confidence":0.5}}`))
			defer srv.Close()

			verdict, err := newTestClient(srv.URL).Assess(context.Background(), testItem())
			require.NoError(t, err)
			assert.Equal(t, tt.want, verdict.IsAppropriate)
			assert.NotNil(t, verdict.Flags)
		})
	}
}

func TestAssess_InvalidResponsesAreFailures(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing analysis", body: `{"result":"ok"}`},
		{name: "unknown action", body: `{"analysis":{"action_taken":"ban_forever","severity":"low","confidence":0.5}}`},
		{name: "unknown severity", body: `{"analysis":{"action_taken":"none","severity":"extreme","confidence":0.5}}`},
		{name: "confidence above one", body: `{"analysis":{"action_taken":"none","severity":"low","confidence":1.5}}`},
		{name: "negative confidence", body: `{"analysis":{"action_taken":"none","severity":"low","confidence":-0.1}}`},
		{name: "missing confidence", body: `{"analysis":{"action_taken":"none","severity":"low"}}`},
		{name: "not json", body: `<html>oops</html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(respond(tt.body))
			defer srv.Close()

			_, err := newTestClient(srv.URL).Assess(context.Background(), testItem())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnavailable))
			var failure *Failure
			assert.True(t, errors.As(err, &failure))
		})
	}
}

func TestAssess_ErrorStatusIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Assess(context.Background(), testItem())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestAssess_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		respond(`{"analysis":{"action_taken":"none","severity":"low","confidence":0.99,"flags":[]}}`)(w, r)
	}))
	defer srv.Close()

	verdict, err := newTestClient(srv.URL, func(o *Options) { o.Retries = 2 }).Assess(context.Background(), testItem())
	require.NoError(t, err)
	assert.Equal(t, models.ActionNone, verdict.ActionTaken)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestAssess_TimeoutIsFailure(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	_, err := newTestClient(srv.URL, func(o *Options) { o.Timeout = 50 * time.Millisecond }).Assess(context.Background(), testItem())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Less(t, time.Since(start), time.Second)
}

func TestAssess_BreakerFailsFastWhenOpen(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, func(o *Options) {
		o.BreakerMaxFailures = 2
		o.BreakerOpenTimeout = time.Minute
	})
	for i := 0; i < 2; i++ {
		_, err := client.Assess(context.Background(), testItem())
		require.ErrorIs(t, err, ErrUnavailable)
	}

	_, err := client.Assess(context.Background(), testItem())
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
