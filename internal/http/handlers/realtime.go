package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/venturecanvas/venturecanvas-backend/internal/pkg/ctxutil"
	"github.com/venturecanvas/venturecanvas-backend/internal/platform/logger"
	"github.com/venturecanvas/venturecanvas-backend/internal/realtime"
)

type RealtimeHandler struct {
	log *logger.Logger
	hub *realtime.SSEHub
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub) *RealtimeHandler {
	return &RealtimeHandler{
		log: log.With("handler", "RealtimeHandler"),
		hub: hub,
	}
}

// GET /api/projects/:project_id/events
//
// Streams cascade activity for one project over SSE. The stream carries
// live notifications only; missed events are recovered from the activity
// and cascade list endpoints on reconnect.
func (h *RealtimeHandler) StreamProjectEvents(c *gin.Context) {
	projectID, ok := parseProjectID(c)
	if !ok {
		return
	}

	caller := "unknown"
	if rd := ctxutil.GetRequestData(c.Request.Context()); rd != nil && rd.Caller != "" {
		caller = rd.Caller
	}

	client := h.hub.NewSSEClient(caller)
	h.hub.AddChannel(client, realtime.ProjectChannel(projectID))
	h.log.Info("SSE stream open", "project_id", projectID, "caller", caller, "client_id", client.ID)

	h.hub.ServeHTTP(c.Writer, c.Request, client)

	h.hub.CloseClient(client)
	h.log.Debug("SSE stream closed", "client_id", client.ID)
}
