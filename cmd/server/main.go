package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"github.com/ignatzorin/moderation-backend/internal/assessment"
	"github.com/ignatzorin/moderation-backend/internal/config"
	"github.com/ignatzorin/moderation-backend/internal/content"
	"github.com/ignatzorin/moderation-backend/internal/db"
	"github.com/ignatzorin/moderation-backend/internal/db/migrations"
	"github.com/ignatzorin/moderation-backend/internal/events"
	"github.com/ignatzorin/moderation-backend/internal/goroutine"
	httpHandlers "github.com/ignatzorin/moderation-backend/internal/http/handlers"
	httpRouter "github.com/ignatzorin/moderation-backend/internal/http/router"
	"github.com/ignatzorin/moderation-backend/internal/logger"
	"github.com/ignatzorin/moderation-backend/internal/repository"
	"github.com/ignatzorin/moderation-backend/internal/service"
	"github.com/ignatzorin/moderation-backend/internal/usecase/moderation"
	"github.com/ignatzorin/moderation-backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	if cfg.Env == "development" {
		logger.Init("debug")
		logger.SetTextFormatter()
	} else {
		logger.Init("info")
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, migrations.FS); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	tokenManager := service.NewTokenManager(cfg.JWTSecret)
	registry := content.DefaultRegistry()
	logger.Log.WithField("kinds", registry.Kinds()).Info("зарегистрированы типы контента")

	// Репозитории.
	notificationRepo := repository.NewNotificationRepository(dbConn)

	// Сервисы.
	notificationService := service.NewNotificationService(notificationRepo)

	// Все фоновые задачи останавливаются вместе: по сигналу или при падении одной из них.
	g, gctx := errgroup.WithContext(ctx)

	// Вебсокеты.
	hub := ws.NewHub(gctx)
	hub.SetNotificationSaver(notificationService)

	assessor := assessment.NewClient(assessment.Options{
		URL:                cfg.AssessmentURL,
		APIKey:             cfg.AssessmentAPIKey,
		Timeout:            cfg.AssessmentTimeout,
		Retries:            cfg.AssessmentRetries,
		BreakerMaxFailures: cfg.BreakerMaxFailures,
		BreakerOpenTimeout: cfg.BreakerOpenTimeout,
	})

	moderationService := moderation.NewService(moderation.Deps{
		Ledger:     repository.NewLedgerRepository(dbConn),
		Queue:      repository.NewQueueRepository(dbConn),
		Reports:    repository.NewReportRepository(dbConn),
		Appeals:    repository.NewAppealRepository(dbConn),
		History:    repository.NewHistoryRepository(dbConn),
		Content:    repository.NewContentRepository(dbConn, registry),
		Assessor:   assessor,
		Tx:         repository.NewTxManager(dbConn),
		Normalizer: content.NewNormalizer(registry),
		Notifier:   hub,
	})

	// HTTP хэндлеры.
	engine := httpRouter.SetupRouter(
		cfg,
		httpHandlers.NewHealthHandler(dbConn),
		httpHandlers.NewIngestHandler(moderationService),
		httpHandlers.NewReportHandler(moderationService),
		httpHandlers.NewAppealHandler(moderationService),
		httpHandlers.NewModerationHandler(moderationService),
		httpHandlers.NewNotificationHandler(notificationService),
		httpHandlers.NewWSHandler(hub, tokenManager, cfg.AllowedOrigins),
		tokenManager,
	)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		hub.Run()
		return nil
	})

	g.Go(func() error {
		log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Завершаем сервер при остановке группы.
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if cfg.KafkaEnabled() {
		consumer := events.NewConsumer(events.ConsumerConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
			GroupID: cfg.KafkaGroupID,
		}, moderationService)
		g.Go(func() error {
			logger.Component("kafka").WithField("topic", cfg.KafkaTopic).Info("консьюмер событий запущен")
			return consumer.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		log.Printf("main: сервис завершился с ошибкой: %v", err)
	}

	// Дожидаемся уведомлений, поставленных после коммита, до закрытия базы.
	goroutine.Wait()
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
