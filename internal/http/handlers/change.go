package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/venturecanvas/venturecanvas-backend/internal/http/response"
	"github.com/venturecanvas/venturecanvas-backend/internal/modules/cascade"
	"github.com/venturecanvas/venturecanvas-backend/internal/pkg/dbctx"
	"github.com/venturecanvas/venturecanvas-backend/internal/platform/logger"
)

type ChangeHandler struct {
	log        *logger.Logger
	queue      cascade.Queue
	propagator cascade.Propagator
}

func NewChangeHandler(log *logger.Logger, queue cascade.Queue, propagator cascade.Propagator) *ChangeHandler {
	return &ChangeHandler{
		log:        log.With("handler", "ChangeHandler"),
		queue:      queue,
		propagator: propagator,
	}
}

// POST /api/projects/:project_id/changes
//
// Duplicate submissions of an unprocessed change return 200 with the
// existing event and created=false.
func (h *ChangeHandler) QueueChange(c *gin.Context) {
	projectID, ok := parseProjectID(c)
	if !ok {
		return
	}
	var req cascade.QueueChangeInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_json", err)
		return
	}
	req.ProjectID = projectID

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	ev, created, err := h.queue.QueueChange(dbc, req)
	if err != nil {
		h.log.Error("QueueChange failed", "error", err, "project_id", projectID)
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"change": ev, "created": created})
}

type processQueueRequest struct {
	AutoOnly   bool `json:"auto_only"`
	MaxChanges int  `json:"max_changes"`
}

// POST /api/projects/:project_id/changes/process
func (h *ChangeHandler) ProcessQueue(c *gin.Context) {
	projectID, ok := parseProjectID(c)
	if !ok {
		return
	}
	var req processQueueRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.RespondError(c, http.StatusBadRequest, "invalid_json", err)
		return
	}

	stats, err := h.propagator.ProcessQueue(c.Request.Context(), &projectID, req.AutoOnly, req.MaxChanges)
	if err != nil {
		h.log.Error("ProcessQueue failed", "error", err, "project_id", projectID)
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, stats)
}

// GET /api/projects/:project_id/changes
func (h *ChangeHandler) ListPending(c *gin.Context) {
	projectID, ok := parseProjectID(c)
	if !ok {
		return
	}
	limit := 50
	if v := strings.TrimSpace(c.Query("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	events, err := h.queue.ListPending(dbc, projectID, limit)
	if err != nil {
		h.log.Error("ListPending failed", "error", err, "project_id", projectID)
		response.RespondServiceError(c, err)
		return
	}
	pid := projectID
	total, err := h.queue.CountPending(dbc, &pid)
	if err != nil {
		h.log.Error("ListPending failed (count)", "error", err, "project_id", projectID)
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"changes": events, "pending_total": total})
}

// GET /api/changes/:change_id
func (h *ChangeHandler) GetChange(c *gin.Context) {
	changeID, err := uuid.Parse(c.Param("change_id"))
	if err != nil || changeID == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_change_id", err)
		return
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	ev, err := h.queue.GetChange(dbc, changeID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"change": ev})
}
