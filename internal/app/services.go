package app

import (
	"gorm.io/gorm"

	"github.com/venturecanvas/venturecanvas-backend/internal/config"
	"github.com/venturecanvas/venturecanvas-backend/internal/modules/cascade"
	"github.com/venturecanvas/venturecanvas-backend/internal/observability"
	"github.com/venturecanvas/venturecanvas-backend/internal/platform/logger"
	"github.com/venturecanvas/venturecanvas-backend/internal/realtime"
)

// wireCascade assembles the cascade module. Notifications go out through
// the redis bus when one is configured so every API instance sees them;
// otherwise they go straight into the local hub.
func wireCascade(
	db *gorm.DB,
	log *logger.Logger,
	cfg config.Config,
	reposet Repos,
	clients Clients,
	hub *realtime.SSEHub,
	metrics *observability.Metrics,
) *cascade.Service {
	log.Info("Wiring cascade services...")

	var emitter cascade.Emitter
	if clients.SSEBus != nil {
		emitter = &cascade.RedisEmitter{Bus: clients.SSEBus}
	} else if hub != nil {
		emitter = &cascade.HubEmitter{Hub: hub}
	}

	return cascade.New(cascade.Deps{
		DB:  db,
		Log: log,
		Cfg: cfg.Cascade,

		Projects: reposet.Projects,
		Edges:    reposet.Edges,
		Changes:  reposet.Changes,
		Cascades: reposet.Cascades,
		Activity: reposet.Activity,
		Entities: reposet.Entities,

		Graph:   clients.Graph,
		Emitter: emitter,
		Metrics: metrics,
	})
}
