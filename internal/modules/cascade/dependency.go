package cascade

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/venturecanvas/venturecanvas-backend/internal/data/graph"
	"github.com/venturecanvas/venturecanvas-backend/internal/data/repos"
	"github.com/venturecanvas/venturecanvas-backend/internal/domain"
	"github.com/venturecanvas/venturecanvas-backend/internal/pkg/dbctx"
	pkgerrors "github.com/venturecanvas/venturecanvas-backend/internal/pkg/errors"
	"github.com/venturecanvas/venturecanvas-backend/internal/platform/logger"
	"github.com/venturecanvas/venturecanvas-backend/internal/platform/neo4jdb"
)

// DependencyService owns the typed edge graph: who depends on whom, per
// project. Mutations are mirrored into neo4j when a client is configured;
// the mirror is a visualization aid and never gates the postgres write.
type DependencyService interface {
	Register(dbc dbctx.Context, projectID uuid.UUID, source, target domain.EntityRef, relation domain.RelationType, strength *float64) (*domain.DependencyEdge, error)
	Remove(dbc dbctx.Context, projectID uuid.UUID, source, target domain.EntityRef, relation *domain.RelationType) (int64, error)
	ClearOutgoing(dbc dbctx.Context, projectID uuid.UUID, source domain.EntityRef) (int64, error)
	Dependents(dbc dbctx.Context, projectID uuid.UUID, target domain.EntityRef) ([]*domain.DependencyEdge, error)
	Dependencies(dbc dbctx.Context, projectID uuid.UUID, source domain.EntityRef) ([]*domain.DependencyEdge, error)
}

type dependencyService struct {
	log      *logger.Logger
	projects repos.ProjectRepo
	edges    repos.DependencyEdgeRepo
	graph    *neo4jdb.Client
}

func NewDependencyService(baseLog *logger.Logger, projects repos.ProjectRepo, edges repos.DependencyEdgeRepo, graphClient *neo4jdb.Client) DependencyService {
	return &dependencyService{
		log:      baseLog.With("service", "DependencyService"),
		projects: projects,
		edges:    edges,
		graph:    graphClient,
	}
}

func (s *dependencyService) Register(dbc dbctx.Context, projectID uuid.UUID, source, target domain.EntityRef, relation domain.RelationType, strength *float64) (*domain.DependencyEdge, error) {
	if err := s.validatePair(projectID, source, target); err != nil {
		return nil, err
	}
	if !domain.ValidRelationType(relation) {
		s.log.Warn("Rejecting unknown relation type", "relation", string(relation))
		return nil, fmt.Errorf("%w: unknown relation type %q", pkgerrors.ErrInvalidArgument, relation)
	}
	str := 1.0
	if strength != nil {
		str = *strength
	}
	if str < 0 || str > 1 {
		return nil, fmt.Errorf("%w: strength %v outside [0,1]", pkgerrors.ErrInvalidArgument, str)
	}
	if ok, err := s.projects.Exists(dbc, projectID); err != nil {
		return nil, err
	} else if !ok {
		return nil, fmt.Errorf("%w: project %s", pkgerrors.ErrNotFound, projectID.String())
	}

	row := &domain.DependencyEdge{
		ProjectID:  projectID,
		SourceType: source.Type,
		SourceID:   source.ID,
		TargetType: target.Type,
		TargetID:   target.ID,
		Relation:   relation,
		Strength:   str,
		CreatedAt:  time.Now().UTC(),
	}
	kept, err := s.edges.Upsert(dbc, []*domain.DependencyEdge{row})
	if err != nil {
		return nil, err
	}
	if len(kept) == 0 {
		// Self-loop, dropped by the repo. Logged no-op.
		return nil, nil
	}
	s.mirror(dbc, projectID, func() error {
		return graph.UpsertDependencyEdges(dbc.Ctx, s.graph, s.log, projectID, kept)
	})
	return kept[0], nil
}

func (s *dependencyService) Remove(dbc dbctx.Context, projectID uuid.UUID, source, target domain.EntityRef, relation *domain.RelationType) (int64, error) {
	if err := s.validatePair(projectID, source, target); err != nil {
		return 0, err
	}
	if relation != nil && !domain.ValidRelationType(*relation) {
		return 0, fmt.Errorf("%w: unknown relation type %q", pkgerrors.ErrInvalidArgument, *relation)
	}
	n, err := s.edges.DeleteBetween(dbc, projectID, source, target, relation)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.mirror(dbc, projectID, func() error {
			return graph.RemoveEdgesBetween(dbc.Ctx, s.graph, s.log, projectID, source, target, relation)
		})
	}
	return n, nil
}

func (s *dependencyService) ClearOutgoing(dbc dbctx.Context, projectID uuid.UUID, source domain.EntityRef) (int64, error) {
	if projectID == uuid.Nil {
		return 0, fmt.Errorf("%w: missing project id", pkgerrors.ErrInvalidArgument)
	}
	if err := source.Validate(); err != nil {
		return 0, err
	}
	n, err := s.edges.DeleteBySource(dbc, projectID, source)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.mirror(dbc, projectID, func() error {
			return graph.RemoveEdgesBySource(dbc.Ctx, s.graph, s.log, projectID, source)
		})
	}
	return n, nil
}

func (s *dependencyService) Dependents(dbc dbctx.Context, projectID uuid.UUID, target domain.EntityRef) ([]*domain.DependencyEdge, error) {
	if projectID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing project id", pkgerrors.ErrInvalidArgument)
	}
	if err := target.Validate(); err != nil {
		return nil, err
	}
	return s.edges.ListByTarget(dbc, projectID, target)
}

func (s *dependencyService) Dependencies(dbc dbctx.Context, projectID uuid.UUID, source domain.EntityRef) ([]*domain.DependencyEdge, error) {
	if projectID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing project id", pkgerrors.ErrInvalidArgument)
	}
	if err := source.Validate(); err != nil {
		return nil, err
	}
	return s.edges.ListBySource(dbc, projectID, source)
}

func (s *dependencyService) validatePair(projectID uuid.UUID, source, target domain.EntityRef) error {
	if projectID == uuid.Nil {
		return fmt.Errorf("%w: missing project id", pkgerrors.ErrInvalidArgument)
	}
	if err := source.Validate(); err != nil {
		return err
	}
	if err := target.Validate(); err != nil {
		return err
	}
	return nil
}

func (s *dependencyService) mirror(dbc dbctx.Context, projectID uuid.UUID, fn func() error) {
	if s.graph == nil {
		return
	}
	if err := fn(); err != nil {
		s.log.Warn("graph mirror sync failed", "project_id", projectID.String(), "err", err.Error())
	}
}
