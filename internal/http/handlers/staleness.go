package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/venturecanvas/venturecanvas-backend/internal/domain"
	"github.com/venturecanvas/venturecanvas-backend/internal/http/response"
	"github.com/venturecanvas/venturecanvas-backend/internal/modules/cascade"
	"github.com/venturecanvas/venturecanvas-backend/internal/pkg/dbctx"
	"github.com/venturecanvas/venturecanvas-backend/internal/platform/logger"
)

type StalenessHandler struct {
	log        *logger.Logger
	staleness  cascade.StalenessReader
	propagator cascade.Propagator
}

func NewStalenessHandler(log *logger.Logger, staleness cascade.StalenessReader, propagator cascade.Propagator) *StalenessHandler {
	return &StalenessHandler{
		log:        log.With("handler", "StalenessHandler"),
		staleness:  staleness,
		propagator: propagator,
	}
}

// GET /api/projects/:project_id/stale
func (h *StalenessHandler) GetStaleEntities(c *gin.Context) {
	projectID, ok := parseProjectID(c)
	if !ok {
		return
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	grouped, err := h.staleness.GetStaleEntities(dbc, projectID)
	if err != nil {
		h.log.Error("GetStaleEntities failed", "error", err, "project_id", projectID)
		response.RespondServiceError(c, err)
		return
	}
	total := 0
	for _, rows := range grouped {
		total += len(rows)
	}
	response.RespondOK(c, gin.H{"stale": grouped, "total": total})
}

type clearStalenessRequest struct {
	Entities []domain.EntityRef `json:"entities,omitempty"`
}

// POST /api/projects/:project_id/stale/clear
//
// An empty body clears every stale flag in the project; listing entities
// clears only those.
func (h *StalenessHandler) ClearStaleness(c *gin.Context) {
	projectID, ok := parseProjectID(c)
	if !ok {
		return
	}
	var req clearStalenessRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.RespondError(c, http.StatusBadRequest, "invalid_json", err)
		return
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	n, err := h.propagator.ClearStaleness(dbc, projectID, req.Entities)
	if err != nil {
		h.log.Error("ClearStaleness failed", "error", err, "project_id", projectID)
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"cleared": n})
}

// GET /api/projects/:project_id/refresh-order
func (h *StalenessHandler) RefreshOrder(c *gin.Context) {
	projectID, ok := parseProjectID(c)
	if !ok {
		return
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	order, err := h.staleness.RefreshOrder(dbc, projectID)
	if err != nil {
		h.log.Error("RefreshOrder failed", "error", err, "project_id", projectID)
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"refresh_order": order})
}
