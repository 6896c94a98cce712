package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/venturecanvas/venturecanvas-backend/internal/domain"
	"github.com/venturecanvas/venturecanvas-backend/internal/http/response"
)

// parseProjectID pulls :project_id from the path. Responds 400 and returns
// false when it is missing or malformed.
func parseProjectID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("project_id"))
	if err != nil || id == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_project_id", err)
		return uuid.Nil, false
	}
	return id, true
}

// parseEntityRef pulls the :entity_type/:entity_id pair from the path.
func parseEntityRef(c *gin.Context) (domain.EntityRef, bool) {
	ref := domain.EntityRef{
		Type: domain.EntityType(strings.TrimSpace(c.Param("entity_type"))),
	}
	id, err := uuid.Parse(c.Param("entity_id"))
	if err != nil || id == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_entity_id", err)
		return domain.EntityRef{}, false
	}
	ref.ID = id
	if err := ref.Validate(); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_entity_type", err)
		return domain.EntityRef{}, false
	}
	return ref, true
}

func queryBool(c *gin.Context, name string) bool {
	v := strings.ToLower(strings.TrimSpace(c.Query(name)))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
