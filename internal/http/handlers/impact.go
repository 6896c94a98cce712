package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/venturecanvas/venturecanvas-backend/internal/domain"
	"github.com/venturecanvas/venturecanvas-backend/internal/http/response"
	"github.com/venturecanvas/venturecanvas-backend/internal/modules/cascade"
	"github.com/venturecanvas/venturecanvas-backend/internal/pkg/dbctx"
	"github.com/venturecanvas/venturecanvas-backend/internal/platform/logger"
)

type ImpactHandler struct {
	log    *logger.Logger
	impact cascade.ImpactAnalyzer
}

func NewImpactHandler(log *logger.Logger, impact cascade.ImpactAnalyzer) *ImpactHandler {
	return &ImpactHandler{
		log:    log.With("handler", "ImpactHandler"),
		impact: impact,
	}
}

type analyzeImpactRequest struct {
	Entity   domain.EntityRef `json:"entity"`
	MaxDepth int              `json:"max_depth,omitempty"`
}

// POST /api/projects/:project_id/impact
func (h *ImpactHandler) Analyze(c *gin.Context) {
	projectID, ok := parseProjectID(c)
	if !ok {
		return
	}
	var req analyzeImpactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_json", err)
		return
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	report, err := h.impact.Analyze(dbc, projectID, req.Entity, req.MaxDepth)
	if err != nil {
		h.log.Error("Analyze failed", "error", err, "project_id", projectID, "entity", req.Entity.String())
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, report)
}
