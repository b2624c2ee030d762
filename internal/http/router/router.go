package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ignatzorin/moderation-backend/internal/config"
	"github.com/ignatzorin/moderation-backend/internal/http/handlers"
	"github.com/ignatzorin/moderation-backend/internal/http/middleware"
	"github.com/ignatzorin/moderation-backend/internal/service"
	"github.com/ignatzorin/moderation-backend/internal/usecase/moderation"
)

func SetupRouter(
	cfg *config.Config,
	healthHandler *handlers.HealthHandler,
	ingestHandler *handlers.IngestHandler,
	reportHandler *handlers.ReportHandler,
	appealHandler *handlers.AppealHandler,
	moderationHandler *handlers.ModerationHandler,
	notificationHandler *handlers.NotificationHandler,
	wsHandler *handlers.WSHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Триггер контентной подсистемы, не для пользователей.
	internal := r.Group("/internal")
	internal.Use(middleware.IngestSecret(cfg.IngestSecret))
	{
		internal.POST("/events/content-created", ingestHandler.ContentCreated)
	}

	api := r.Group("/api")

	if wsHandler != nil {
		api.GET("/ws", wsHandler.Handle)
	}

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		submitRateLimit := middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod)
		protected.POST("/reports", submitRateLimit, reportHandler.CreateReport)
		protected.POST("/appeals", submitRateLimit, appealHandler.CreateAppeal)

		notifications := protected.Group("/notifications")
		{
			notifications.GET("", notificationHandler.ListNotifications)
			notifications.POST("/:id/read", middleware.UUIDValidator("id"), notificationHandler.MarkAsRead)
		}

		review := protected.Group("/moderation")
		review.Use(middleware.RequireRole(moderation.RoleModerator, moderation.RoleAdmin))
		{
			review.GET("/queue", moderationHandler.ListQueue)
			review.POST("/queue/next", moderationHandler.ClaimNext)
			review.POST("/queue/:id/resolve", middleware.UUIDValidator("id"), moderationHandler.Resolve)
			review.GET("/records/:id", middleware.UUIDValidator("id"), moderationHandler.GetRecord)
		}
	}

	return r
}
