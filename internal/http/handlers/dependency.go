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

type DependencyHandler struct {
	log  *logger.Logger
	deps cascade.DependencyService
}

func NewDependencyHandler(log *logger.Logger, deps cascade.DependencyService) *DependencyHandler {
	return &DependencyHandler{
		log:  log.With("handler", "DependencyHandler"),
		deps: deps,
	}
}

type registerDependencyRequest struct {
	Source   domain.EntityRef    `json:"source"`
	Target   domain.EntityRef    `json:"target"`
	Relation domain.RelationType `json:"relation"`
	Strength *float64            `json:"strength,omitempty"`
}

// POST /api/projects/:project_id/dependencies
func (h *DependencyHandler) Register(c *gin.Context) {
	projectID, ok := parseProjectID(c)
	if !ok {
		return
	}
	var req registerDependencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_json", err)
		return
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	edge, err := h.deps.Register(dbc, projectID, req.Source, req.Target, req.Relation, req.Strength)
	if err != nil {
		h.log.Error("Register failed", "error", err, "project_id", projectID)
		response.RespondServiceError(c, err)
		return
	}
	// A nil edge means the pair was a self-dependency and was dropped.
	response.RespondOK(c, gin.H{
		"edge":       edge,
		"registered": edge != nil,
	})
}

type removeDependencyRequest struct {
	Source   domain.EntityRef     `json:"source"`
	Target   domain.EntityRef     `json:"target"`
	Relation *domain.RelationType `json:"relation,omitempty"`
}

// DELETE /api/projects/:project_id/dependencies
func (h *DependencyHandler) Remove(c *gin.Context) {
	projectID, ok := parseProjectID(c)
	if !ok {
		return
	}
	var req removeDependencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_json", err)
		return
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	n, err := h.deps.Remove(dbc, projectID, req.Source, req.Target, req.Relation)
	if err != nil {
		h.log.Error("Remove failed", "error", err, "project_id", projectID)
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"removed": n})
}

type clearOutgoingRequest struct {
	Source domain.EntityRef `json:"source"`
}

// DELETE /api/projects/:project_id/dependencies/source
func (h *DependencyHandler) ClearOutgoing(c *gin.Context) {
	projectID, ok := parseProjectID(c)
	if !ok {
		return
	}
	var req clearOutgoingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_json", err)
		return
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	n, err := h.deps.ClearOutgoing(dbc, projectID, req.Source)
	if err != nil {
		h.log.Error("ClearOutgoing failed", "error", err, "project_id", projectID)
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"removed": n})
}

// GET /api/projects/:project_id/entities/:entity_type/:entity_id/dependents
func (h *DependencyHandler) ListDependents(c *gin.Context) {
	projectID, ok := parseProjectID(c)
	if !ok {
		return
	}
	ref, ok := parseEntityRef(c)
	if !ok {
		return
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	edges, err := h.deps.Dependents(dbc, projectID, ref)
	if err != nil {
		h.log.Error("ListDependents failed", "error", err, "project_id", projectID, "entity", ref.String())
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"edges": edges, "count": len(edges)})
}

// GET /api/projects/:project_id/entities/:entity_type/:entity_id/dependencies
func (h *DependencyHandler) ListDependencies(c *gin.Context) {
	projectID, ok := parseProjectID(c)
	if !ok {
		return
	}
	ref, ok := parseEntityRef(c)
	if !ok {
		return
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	edges, err := h.deps.Dependencies(dbc, projectID, ref)
	if err != nil {
		h.log.Error("ListDependencies failed", "error", err, "project_id", projectID, "entity", ref.String())
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"edges": edges, "count": len(edges)})
}
