package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/venturecanvas/venturecanvas-backend/internal/data/repos"
	"github.com/venturecanvas/venturecanvas-backend/internal/http/response"
	"github.com/venturecanvas/venturecanvas-backend/internal/pkg/dbctx"
	"github.com/venturecanvas/venturecanvas-backend/internal/platform/logger"
)

type ActivityHandler struct {
	log      *logger.Logger
	activity repos.ActivityRepo
}

func NewActivityHandler(log *logger.Logger, activity repos.ActivityRepo) *ActivityHandler {
	return &ActivityHandler{
		log:      log.With("handler", "ActivityHandler"),
		activity: activity,
	}
}

// GET /api/projects/:project_id/activity
func (h *ActivityHandler) ListActivity(c *gin.Context) {
	projectID, ok := parseProjectID(c)
	if !ok {
		return
	}

	var requiresAction *bool
	if v := strings.TrimSpace(c.Query("requires_action")); v != "" {
		b := queryBool(c, "requires_action")
		requiresAction = &b
	}
	limit := 50
	if v := strings.TrimSpace(c.Query("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	items, err := h.activity.ListByProject(dbc, projectID, requiresAction, limit)
	if err != nil {
		h.log.Error("ListActivity failed", "error", err, "project_id", projectID)
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"activity": items, "count": len(items)})
}
