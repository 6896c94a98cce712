package app

import (
	"github.com/venturecanvas/venturecanvas-backend/internal/http/handlers"
	"github.com/venturecanvas/venturecanvas-backend/internal/modules/cascade"
	"github.com/venturecanvas/venturecanvas-backend/internal/platform/logger"
	"github.com/venturecanvas/venturecanvas-backend/internal/realtime"
)

type Handlers struct {
	Health     *handlers.HealthHandler
	Dependency *handlers.DependencyHandler
	Change     *handlers.ChangeHandler
	Cascade    *handlers.CascadeHandler
	Decision   *handlers.DecisionHandler
	Impact     *handlers.ImpactHandler
	Staleness  *handlers.StalenessHandler
	Activity   *handlers.ActivityHandler
	Realtime   *handlers.RealtimeHandler
}

func wireHandlers(log *logger.Logger, svc *cascade.Service, reposet Repos, hub *realtime.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:     handlers.NewHealthHandler(),
		Dependency: handlers.NewDependencyHandler(log, svc.Dependencies),
		Change:     handlers.NewChangeHandler(log, svc.Queue, svc.Propagator),
		Cascade:    handlers.NewCascadeHandler(log, svc.Router),
		Decision:   handlers.NewDecisionHandler(log, svc.Decisions),
		Impact:     handlers.NewImpactHandler(log, svc.Impact),
		Staleness:  handlers.NewStalenessHandler(log, svc.Staleness, svc.Propagator),
		Activity:   handlers.NewActivityHandler(log, reposet.Activity),
		Realtime:   handlers.NewRealtimeHandler(log, hub),
	}
}
