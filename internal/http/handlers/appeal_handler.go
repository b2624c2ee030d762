package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/moderation-backend/internal/dto"
	"github.com/ignatzorin/moderation-backend/internal/http/handlers/common"
	"github.com/ignatzorin/moderation-backend/internal/usecase/moderation"
)

// AppealHandler принимает апелляции авторов.
type AppealHandler struct {
	svc Appealer
}

func NewAppealHandler(s Appealer) *AppealHandler {
	return &AppealHandler{svc: s}
}

// CreateAppeal POST /api/appeals
func (h *AppealHandler) CreateAppeal(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.AppealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}
	if req.UserID != userID {
		common.RespondForbidden(c, "апелляцию можно подать только от своего имени")
		return
	}

	res, err := h.svc.SubmitAppeal(c.Request.Context(), moderation.AppealInput{
		UserID:       userID,
		ModerationID: req.ModerationID,
		Reason:       req.Reason,
		Evidence:     req.Evidence,
		Statement:    req.Statement,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}
