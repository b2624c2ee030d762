package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/moderation-backend/internal/http/handlers/common"
	"github.com/ignatzorin/moderation-backend/internal/logger"
	"github.com/ignatzorin/moderation-backend/internal/models"
	"github.com/ignatzorin/moderation-backend/internal/pkg/apperror"
)

// IngestHandler принимает триггер контентной подсистемы.
type IngestHandler struct {
	svc Ingestor
}

// NewIngestHandler создаёт новый хэндлер.
func NewIngestHandler(svc Ingestor) *IngestHandler {
	return &IngestHandler{svc: svc}
}

// ContentCreated обрабатывает POST /internal/events/content-created.
// Пропущенные события подтверждаются 200, ошибки хранилища отдают 503,
// чтобы триггер повторил доставку.
func (h *IngestHandler) ContentCreated(c *gin.Context) {
	var ev models.ContentCreated
	if err := c.ShouldBindJSON(&ev); err != nil {
		common.RespondBadRequest(c, "некорректное событие: "+err.Error())
		return
	}

	res, err := h.svc.Ingest(c.Request.Context(), ev)
	if err != nil {
		if apperror.IsRejected(err) {
			common.RespondAppError(c, err)
			return
		}
		logger.Log.WithFields(logrus.Fields{
			"error":        err.Error(),
			"content_kind": ev.ContentKind,
		}).Error("не удалось обработать событие контента")
		common.RespondError(c, http.StatusServiceUnavailable, "сервис временно недоступен")
		return
	}

	c.JSON(http.StatusOK, res)
}
