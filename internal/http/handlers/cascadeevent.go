package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/venturecanvas/venturecanvas-backend/internal/data/repos"
	"github.com/venturecanvas/venturecanvas-backend/internal/domain"
	"github.com/venturecanvas/venturecanvas-backend/internal/http/response"
	"github.com/venturecanvas/venturecanvas-backend/internal/modules/cascade"
	"github.com/venturecanvas/venturecanvas-backend/internal/pkg/dbctx"
	"github.com/venturecanvas/venturecanvas-backend/internal/platform/logger"
)

type CascadeHandler struct {
	log    *logger.Logger
	router cascade.Router
}

func NewCascadeHandler(log *logger.Logger, router cascade.Router) *CascadeHandler {
	return &CascadeHandler{
		log:    log.With("handler", "CascadeHandler"),
		router: router,
	}
}

// POST /api/projects/:project_id/cascades
func (h *CascadeHandler) HandleCascade(c *gin.Context) {
	projectID, ok := parseProjectID(c)
	if !ok {
		return
	}
	var op cascade.Operation
	if err := c.ShouldBindJSON(&op); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_json", err)
		return
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	results, err := h.router.HandleCascade(dbc, projectID, op)
	if err != nil {
		h.log.Error("HandleCascade failed", "error", err, "project_id", projectID, "routed", len(results))
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"results": results, "count": len(results)})
}

// GET /api/projects/:project_id/cascades
func (h *CascadeHandler) ListCascades(c *gin.Context) {
	projectID, ok := parseProjectID(c)
	if !ok {
		return
	}

	var filter repos.CascadeEventFilter
	if v := strings.TrimSpace(c.Query("tier")); v != "" {
		tier := domain.Tier(v)
		if !domain.ValidTier(tier) {
			response.RespondError(c, http.StatusBadRequest, "invalid_tier", fmt.Errorf("unknown tier %q", v))
			return
		}
		filter.Tier = &tier
	}
	if v := strings.TrimSpace(c.Query("applied")); v != "" {
		applied := queryBool(c, "applied")
		filter.Applied = &applied
	}
	if v := strings.TrimSpace(c.Query("dismissed")); v != "" {
		dismissed := queryBool(c, "dismissed")
		filter.Dismissed = &dismissed
	}
	if v := strings.TrimSpace(c.Query("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filter.Limit = n
		}
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	events, err := h.router.ListCascades(dbc, projectID, filter)
	if err != nil {
		h.log.Error("ListCascades failed", "error", err, "project_id", projectID)
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"cascades": events, "count": len(events)})
}

// GET /api/cascades/:cascade_id
func (h *CascadeHandler) GetCascade(c *gin.Context) {
	cascadeID, err := uuid.Parse(c.Param("cascade_id"))
	if err != nil || cascadeID == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_cascade_id", err)
		return
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	ev, err := h.router.GetCascade(dbc, cascadeID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"cascade": ev})
}

type applyCascadeRequest struct {
	AppliedBy string `json:"applied_by"`
}

// POST /api/cascades/:cascade_id/apply
func (h *CascadeHandler) ApplyCascade(c *gin.Context) {
	cascadeID, err := uuid.Parse(c.Param("cascade_id"))
	if err != nil || cascadeID == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_cascade_id", err)
		return
	}
	var req applyCascadeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.RespondError(c, http.StatusBadRequest, "invalid_json", err)
		return
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	outcome, err := h.router.ApplyCascadeByID(dbc, cascadeID, req.AppliedBy)
	if err != nil {
		h.log.Error("ApplyCascade failed", "error", err, "cascade_id", cascadeID)
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"status": outcome.Status, "cascade": outcome.Event})
}

// POST /api/cascades/:cascade_id/dismiss
func (h *CascadeHandler) DismissCascade(c *gin.Context) {
	cascadeID, err := uuid.Parse(c.Param("cascade_id"))
	if err != nil || cascadeID == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_cascade_id", err)
		return
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	ev, err := h.router.Dismiss(dbc, cascadeID)
	if err != nil {
		h.log.Error("DismissCascade failed", "error", err, "cascade_id", cascadeID)
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"cascade": ev})
}
