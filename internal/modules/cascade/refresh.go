package cascade

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/venturecanvas/venturecanvas-backend/internal/data/repos"
	"github.com/venturecanvas/venturecanvas-backend/internal/domain"
	"github.com/venturecanvas/venturecanvas-backend/internal/pkg/dbctx"
	pkgerrors "github.com/venturecanvas/venturecanvas-backend/internal/pkg/errors"
	"github.com/venturecanvas/venturecanvas-backend/internal/platform/logger"
)

// refreshChain is the canonical regeneration order of the canvas: personas
// feed features, features feed vp steps, vp steps feed the strategic
// context. Types outside the chain are hand-edited inputs and are never
// regenerated, so they carry no position here.
var refreshChain = []domain.EntityType{
	domain.EntityPersona,
	domain.EntityFeature,
	domain.EntityVPStep,
	domain.EntityStrategicContext,
}

// StalenessReader reports which entities a project needs to revisit and in
// what order.
type StalenessReader interface {
	GetStaleEntities(dbc dbctx.Context, projectID uuid.UUID) (map[domain.EntityType][]*repos.StaleEntity, error)
	RefreshOrder(dbc dbctx.Context, projectID uuid.UUID) ([]domain.EntityType, error)
}

type stalenessReader struct {
	log      *logger.Logger
	projects repos.ProjectRepo
	entities repos.EntityStore
}

func NewStalenessReader(baseLog *logger.Logger, projects repos.ProjectRepo, entities repos.EntityStore) StalenessReader {
	return &stalenessReader{
		log:      baseLog.With("service", "StalenessReader"),
		projects: projects,
		entities: entities,
	}
}

func (s *stalenessReader) GetStaleEntities(dbc dbctx.Context, projectID uuid.UUID) (map[domain.EntityType][]*repos.StaleEntity, error) {
	if projectID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing project id", pkgerrors.ErrInvalidArgument)
	}
	rows, err := s.entities.ListStaleByProject(dbc, projectID)
	if err != nil {
		return nil, err
	}
	grouped := make(map[domain.EntityType][]*repos.StaleEntity, len(rows))
	for _, row := range rows {
		grouped[row.Type] = append(grouped[row.Type], row)
	}
	return grouped, nil
}

func (s *stalenessReader) RefreshOrder(dbc dbctx.Context, projectID uuid.UUID) ([]domain.EntityType, error) {
	grouped, err := s.GetStaleEntities(dbc, projectID)
	if err != nil {
		return nil, err
	}
	order := make([]domain.EntityType, 0, len(refreshChain))
	for _, t := range refreshChain {
		if len(grouped[t]) > 0 {
			order = append(order, t)
		}
	}
	return order, nil
}
