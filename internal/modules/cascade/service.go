package cascade

import (
	"gorm.io/gorm"

	"github.com/venturecanvas/venturecanvas-backend/internal/config"
	"github.com/venturecanvas/venturecanvas-backend/internal/data/repos"
	"github.com/venturecanvas/venturecanvas-backend/internal/observability"
	"github.com/venturecanvas/venturecanvas-backend/internal/platform/logger"
	"github.com/venturecanvas/venturecanvas-backend/internal/platform/neo4jdb"
)

// Deps carries everything the cascade module needs. Graph, Emitter and
// Metrics are optional; the module degrades to Postgres-only, silent,
// unmeasured operation when they are absent.
type Deps struct {
	DB  *gorm.DB
	Log *logger.Logger
	Cfg config.CascadeConfig

	Projects repos.ProjectRepo
	Edges    repos.DependencyEdgeRepo
	Changes  repos.ChangeEventRepo
	Cascades repos.CascadeEventRepo
	Activity repos.ActivityRepo
	Entities repos.EntityStore

	Graph   *neo4jdb.Client
	Emitter Emitter
	Metrics *observability.Metrics
}

// Service bundles the cascade sub-services behind one constructor so
// wiring stays in one place. Fields are the interfaces handlers and
// workers program against.
type Service struct {
	Notifier     Notifier
	Dependencies DependencyService
	Queue        Queue
	Impact       ImpactAnalyzer
	Decisions    DecisionEngine
	Propagator   Propagator
	Router       Router
	Staleness    StalenessReader
}

func New(deps Deps) *Service {
	notifier := NewActivityNotifier(deps.Log, deps.Activity, deps.Emitter, deps.Metrics)
	impact := NewImpactAnalyzer(deps.Log, deps.Cfg, deps.Edges, deps.Metrics)
	return &Service{
		Notifier:     notifier,
		Dependencies: NewDependencyService(deps.Log, deps.Projects, deps.Edges, deps.Graph),
		Queue:        NewQueue(deps.Log, deps.Projects, deps.Changes, deps.Metrics),
		Impact:       impact,
		Decisions:    NewDecisionEngine(deps.Log, deps.Cfg, deps.Entities, impact, deps.Metrics),
		Propagator:   NewPropagator(deps.Log, deps.Cfg, deps.Edges, deps.Entities, deps.Changes, notifier, deps.Metrics),
		Router:       NewRouter(deps.DB, deps.Log, deps.Edges, deps.Cascades, deps.Entities, notifier, deps.Metrics),
		Staleness:    NewStalenessReader(deps.Log, deps.Projects, deps.Entities),
	}
}
