package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/moderation-backend/internal/logger"
	"github.com/ignatzorin/moderation-backend/internal/metrics"
	"github.com/ignatzorin/moderation-backend/internal/models"
	"github.com/ignatzorin/moderation-backend/internal/pkg/apperror"
	"github.com/ignatzorin/moderation-backend/internal/usecase/moderation"
)

// Ingestor обрабатывает событие создания контента.
type Ingestor interface {
	Ingest(ctx context.Context, ev models.ContentCreated) (moderation.Result, error)
}

// MessageReader часть kafka.Reader, нужная консьюмеру.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ConsumerConfig параметры подключения к топику событий контента.
type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Consumer читает ContentCreated из Kafka и передаёт их в конвейер модерации.
// Offset фиксируется после успешной обработки или после ошибки во входных данных;
// ошибки инфраструктуры повторяются с экспоненциальной задержкой до отмены контекста.
type Consumer struct {
	reader     MessageReader
	ingest     Ingestor
	newBackOff func() backoff.BackOff
	log        *logrus.Entry
}

// NewConsumer создаёт консьюмер группы GroupID.
func NewConsumer(cfg ConsumerConfig, ingest Ingestor) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return newConsumer(reader, ingest, defaultBackOff)
}

func newConsumer(reader MessageReader, ingest Ingestor, newBackOff func() backoff.BackOff) *Consumer {
	return &Consumer{
		reader:     reader,
		ingest:     ingest,
		newBackOff: newBackOff,
		log:        logger.Component("kafka"),
	}
}

func defaultBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 30 * time.Second
	// Без ограничения по времени: остановка только по контексту.
	bo.MaxElapsedTime = 0
	return bo
}

// Run читает сообщения до отмены контекста. Возвращает nil при штатной остановке.
func (c *Consumer) Run(ctx context.Context) error {
	defer func() {
		if err := c.reader.Close(); err != nil {
			c.log.WithError(err).Warn("не удалось закрыть reader")
		}
	}()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("kafka: fetch: %w", err)
		}

		if err := c.handle(ctx, msg); err != nil {
			// Контекст отменён во время повторов: offset не фиксируем, сообщение перечитается.
			return nil
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("kafka: commit: %w", err)
		}
	}
}

// handle возвращает ошибку только если обработку прервал контекст.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message) error {
	entry := c.log.WithFields(logrus.Fields{
		"partition": msg.Partition,
		"offset":    msg.Offset,
	})

	var ev models.ContentCreated
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		metrics.KafkaMessages.WithLabelValues("malformed").Inc()
		entry.WithError(err).Warn("некорректное сообщение пропущено")
		return nil
	}

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		res, err := c.ingest.Ingest(ctx, ev)
		if err == nil {
			entry.WithField("outcome", res.Outcome).Debug("событие обработано")
			return nil
		}
		if apperror.IsRejected(err) {
			return backoff.Permanent(err)
		}
		metrics.KafkaMessages.WithLabelValues("retried").Inc()
		entry.WithError(err).WithField("attempt", attempt).Warn("ошибка обработки, повторяем")
		return err
	}, backoff.WithContext(c.newBackOff(), ctx))

	switch {
	case err == nil:
		metrics.KafkaMessages.WithLabelValues("processed").Inc()
		return nil
	case apperror.IsRejected(err):
		metrics.KafkaMessages.WithLabelValues("rejected").Inc()
		entry.WithError(err).Warn("событие отклонено")
		return nil
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil:
		return err
	default:
		// Политика повторов исчерпана.
		metrics.KafkaMessages.WithLabelValues("failed").Inc()
		entry.WithError(err).Error("событие не обработано")
		return nil
	}
}
