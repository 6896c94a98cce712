package app

import (
	"github.com/venturecanvas/venturecanvas-backend/internal/config"
	vchttp "github.com/venturecanvas/venturecanvas-backend/internal/http"
	httpmw "github.com/venturecanvas/venturecanvas-backend/internal/http/middleware"
	"github.com/venturecanvas/venturecanvas-backend/internal/observability"
	"github.com/venturecanvas/venturecanvas-backend/internal/platform/logger"
)

func wireHTTP(log *logger.Logger, cfg config.Config, metrics *observability.Metrics, h Handlers) *vchttp.Server {
	log.Info("Wiring router...")
	auth := httpmw.NewServiceAuth(log, cfg.JWTSecretKey)
	return vchttp.NewServer(vchttp.RouterConfig{
		Log:     log,
		Metrics: metrics,
		Auth:    auth,

		HealthHandler:     h.Health,
		DependencyHandler: h.Dependency,
		ChangeHandler:     h.Change,
		CascadeHandler:    h.Cascade,
		DecisionHandler:   h.Decision,
		ImpactHandler:     h.Impact,
		StalenessHandler:  h.Staleness,
		ActivityHandler:   h.Activity,
		RealtimeHandler:   h.Realtime,
	})
}
