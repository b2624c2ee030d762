package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/moderation-backend/internal/dto"
	"github.com/ignatzorin/moderation-backend/internal/http/handlers/common"
	"github.com/ignatzorin/moderation-backend/internal/usecase/moderation"
)

type ReportHandler struct {
	svc Reporter
}

func NewReportHandler(s Reporter) *ReportHandler {
	return &ReportHandler{svc: s}
}

// CreateReport POST /api/reports
func (h *ReportHandler) CreateReport(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}
	if req.ReporterID != nil && *req.ReporterID != userID {
		common.RespondForbidden(c, "жалобу можно подать только от своего имени")
		return
	}

	res, err := h.svc.SubmitReport(c.Request.Context(), moderation.ReportInput{
		ReporterID:     userID,
		ContentID:      req.ReportedContentID,
		ContentKind:    req.ReportedContentType,
		ReportedUserID: req.ReportedUserID,
		Category:       req.Category,
		Reason:         req.Reason,
		Context:        req.Context,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, res)
}
