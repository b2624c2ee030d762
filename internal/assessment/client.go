package assessment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/ignatzorin/moderation-backend/internal/logger"
	"github.com/ignatzorin/moderation-backend/internal/metrics"
	"github.com/ignatzorin/moderation-backend/internal/models"
)

// Максимальный размер ответа сервиса оценки.
const maxResponseBytes = 1 << 20

// Options параметры клиента сервиса оценки.
type Options struct {
	URL                string
	APIKey             string
	Timeout            time.Duration
	Retries            int
	RetryWaitMin       time.Duration
	RetryWaitMax       time.Duration
	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration
}

// Client обращается к внешнему сервису оценки контента.
type Client struct {
	url        string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	log        *logrus.Entry
}

// NewClient создаёт клиента. Ожидание ответа ограничено Timeout вместе с повторами.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RetryWaitMin <= 0 {
		opts.RetryWaitMin = 200 * time.Millisecond
	}
	if opts.RetryWaitMax <= 0 {
		opts.RetryWaitMax = 2 * time.Second
	}
	if opts.BreakerMaxFailures == 0 {
		opts.BreakerMaxFailures = 5
	}
	if opts.BreakerOpenTimeout <= 0 {
		opts.BreakerOpenTimeout = 30 * time.Second
	}

	log := logger.Component("assessment")

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.Retries
	retryClient.RetryWaitMin = opts.RetryWaitMin
	retryClient.RetryWaitMax = opts.RetryWaitMax
	retryClient.Logger = retryablehttp.LeveledLogger(logger.LeveledLogger{Entry: log})
	// Последний ответ возвращаем как есть, статус разбирает parse.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	httpClient := retryClient.StandardClient()
	httpClient.Timeout = opts.Timeout

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "assessment",
		Timeout: opts.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.BreakerMaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{"from": from.String(), "to": to.String()}).Warn("состояние circuit breaker изменилось")
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
		},
	})

	return &Client{
		url:        opts.URL,
		apiKey:     opts.APIKey,
		timeout:    opts.Timeout,
		httpClient: httpClient,
		breaker:    breaker,
		log:        log,
	}
}

type assessRequest struct {
	Content     string   `json:"content"`
	ContentID   string   `json:"contentId"`
	ContentType string   `json:"contentType"`
	UserID      string   `json:"userId"`
	MediaURLs   []string `json:"mediaUrls"`
}

type assessResponse struct {
	Analysis *struct {
		ActionTaken   string   `json:"action_taken"`
		Severity      string   `json:"severity"`
		Confidence    *float64 `json:"confidence"`
		Flags         []string `json:"flags"`
		IsAppropriate *bool    `json:"is_appropriate"`
	} `json:"analysis"`
}

// Assess возвращает вердикт по контенту. Любая ошибка имеет тип *Failure.
func (c *Client) Assess(ctx context.Context, item models.ContentItem) (models.Verdict, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.call(ctx, item)
	})
	if err != nil {
		var failure *Failure
		if errors.As(err, &failure) {
			return models.Verdict{}, failure
		}
		// gobreaker.ErrOpenState и ErrTooManyRequests
		metrics.AssessmentCount.WithLabelValues("breaker_open").Inc()
		return models.Verdict{}, fail("circuit breaker открыт", err)
	}
	return result.(models.Verdict), nil
}

func (c *Client) call(ctx context.Context, item models.ContentItem) (models.Verdict, error) {
	mediaURLs := item.MediaRefs
	if mediaURLs == nil {
		mediaURLs = []string{}
	}
	body, err := json.Marshal(assessRequest{
		Content:     item.Text,
		ContentID:   item.ContentID.String(),
		ContentType: item.Kind,
		UserID:      item.AuthorID.String(),
		MediaURLs:   mediaURLs,
	})
	if err != nil {
		return models.Verdict{}, fail("сериализация запроса", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return models.Verdict{}, fail("создание запроса", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.AssessmentDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		status := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			status = "timeout"
		}
		metrics.AssessmentCount.WithLabelValues(status).Inc()
		return models.Verdict{}, fail("запрос не выполнен", err)
	}
	defer resp.Body.Close()
	metrics.AssessmentCount.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return models.Verdict{}, fail("чтение ответа", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.Verdict{}, fail(fmt.Sprintf("неожиданный статус %d", resp.StatusCode), nil)
	}
	return parseVerdict(raw)
}

// parseVerdict проверяет ответ: неизвестные значения приравниваются к отказу сервиса.
func parseVerdict(raw []byte) (models.Verdict, error) {
	var resp assessResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return models.Verdict{}, fail("некорректный JSON ответа", err)
	}
	if resp.Analysis == nil {
		return models.Verdict{}, fail("в ответе нет analysis", nil)
	}
	a := resp.Analysis

	if _, ok := models.ValidActions[a.ActionTaken]; !ok {
		return models.Verdict{}, fail(fmt.Sprintf("неизвестное действие %q", a.ActionTaken), nil)
	}
	if _, ok := models.ValidSeverities[a.Severity]; !ok {
		return models.Verdict{}, fail(fmt.Sprintf("неизвестная серьёзность %q", a.Severity), nil)
	}
	if a.Confidence == nil || *a.Confidence < 0 || *a.Confidence > 1 {
		return models.Verdict{}, fail("уверенность вне диапазона [0,1]", nil)
	}

	flags := a.Flags
	if flags == nil {
		flags = []string{}
	}
	isAppropriate := a.ActionTaken == models.ActionNone
	if a.IsAppropriate != nil {
		isAppropriate = *a.IsAppropriate
	}

	return models.Verdict{
		ActionTaken:   a.ActionTaken,
		Severity:      a.Severity,
		Confidence:    *a.Confidence,
		Flags:         flags,
		IsAppropriate: isAppropriate,
	}, nil
}
