package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/moderation-backend/internal/dto"
	"github.com/ignatzorin/moderation-backend/internal/http/handlers/common"
	"github.com/ignatzorin/moderation-backend/internal/models"
	"github.com/ignatzorin/moderation-backend/internal/pkg/apperror"
	"github.com/ignatzorin/moderation-backend/internal/usecase/moderation"
)

// ModerationHandler обслуживает API ревьюеров.
type ModerationHandler struct {
	svc Reviewer
}

// NewModerationHandler создаёт новый хэндлер.
func NewModerationHandler(s Reviewer) *ModerationHandler {
	return &ModerationHandler{svc: s}
}

// ListQueue обрабатывает GET /api/moderation/queue?type=&limit=&offset=.
func (h *ModerationHandler) ListQueue(c *gin.Context) {
	queueType := c.Query("type")
	switch queueType {
	case "", models.QueueTypeEscalated, models.QueueTypeAppeal:
	default:
		common.RespondBadRequest(c, "неизвестный тип очереди")
		return
	}

	limit, offset := common.GetPagination(c, 50)
	items, err := h.svc.ListQueue(c.Request.Context(), queueType, limit, offset)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.QueueResponse{Items: items, Limit: limit, Offset: offset})
}

// ClaimNext обрабатывает POST /api/moderation/queue/next.
// Пустая очередь отдаёт 204.
func (h *ModerationHandler) ClaimNext(c *gin.Context) {
	reviewerID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	entry, err := h.svc.ClaimNext(c.Request.Context(), reviewerID)
	if apperror.IsNotFound(err) {
		c.Status(http.StatusNoContent)
		return
	}
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

// Resolve обрабатывает POST /api/moderation/queue/:id/resolve.
func (h *ModerationHandler) Resolve(c *gin.Context) {
	reviewerID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	entryID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	res, err := h.svc.Resolve(c.Request.Context(), moderation.ResolveInput{
		EntryID:    entryID,
		ReviewerID: reviewerID,
		Decision:   req.Decision,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// GetRecord обрабатывает GET /api/moderation/records/:id.
func (h *ModerationHandler) GetRecord(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	rec, err := h.svc.GetRecord(c.Request.Context(), id)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, rec)
}
