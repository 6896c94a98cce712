package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/venturecanvas/venturecanvas-backend/internal/http/response"
	"github.com/venturecanvas/venturecanvas-backend/internal/modules/cascade"
	"github.com/venturecanvas/venturecanvas-backend/internal/pkg/dbctx"
	"github.com/venturecanvas/venturecanvas-backend/internal/platform/logger"
)

type DecisionHandler struct {
	log       *logger.Logger
	decisions cascade.DecisionEngine
}

func NewDecisionHandler(log *logger.Logger, decisions cascade.DecisionEngine) *DecisionHandler {
	return &DecisionHandler{
		log:       log.With("handler", "DecisionHandler"),
		decisions: decisions,
	}
}

type decideRequest struct {
	Patch          cascade.Patch          `json:"patch"`
	Classification cascade.Classification `json:"classification"`
}

// POST /api/projects/:project_id/decisions
//
// NEEDS_REVIEW is a normal 200 outcome; only malformed input or store
// failures error.
func (h *DecisionHandler) Decide(c *gin.Context) {
	projectID, ok := parseProjectID(c)
	if !ok {
		return
	}
	var req decideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_json", err)
		return
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	result, err := h.decisions.Decide(dbc, projectID, req.Patch, req.Classification)
	if err != nil {
		h.log.Error("Decide failed", "error", err, "project_id", projectID)
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, result)
}
