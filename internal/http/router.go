package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/venturecanvas/venturecanvas-backend/internal/http/handlers"
	httpMW "github.com/venturecanvas/venturecanvas-backend/internal/http/middleware"
	"github.com/venturecanvas/venturecanvas-backend/internal/observability"
	"github.com/venturecanvas/venturecanvas-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log     *logger.Logger
	Metrics *observability.Metrics
	Auth    *httpMW.ServiceAuth

	DependencyHandler *httpH.DependencyHandler
	ChangeHandler     *httpH.ChangeHandler
	CascadeHandler    *httpH.CascadeHandler
	DecisionHandler   *httpH.DecisionHandler
	ImpactHandler     *httpH.ImpactHandler
	StalenessHandler  *httpH.StalenessHandler
	ActivityHandler   *httpH.ActivityHandler
	RealtimeHandler   *httpH.RealtimeHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("venturecanvas-backend"))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.CORS())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))

	// Health + metrics (unauthenticated)
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	{
		// Middleware
		if cfg.Auth != nil {
			api.Use(cfg.Auth.RequireAuth())
		}

		// Cross-project lookups by id
		if cfg.ChangeHandler != nil {
			api.GET("/changes/:change_id", cfg.ChangeHandler.GetChange)
		}
		if cfg.CascadeHandler != nil {
			api.GET("/cascades/:cascade_id", cfg.CascadeHandler.GetCascade)
			api.POST("/cascades/:cascade_id/apply", cfg.CascadeHandler.ApplyCascade)
			api.POST("/cascades/:cascade_id/dismiss", cfg.CascadeHandler.DismissCascade)
		}

		projects := api.Group("/projects/:project_id")
		{
			// Dependency graph
			if cfg.DependencyHandler != nil {
				projects.POST("/dependencies", cfg.DependencyHandler.Register)
				projects.DELETE("/dependencies", cfg.DependencyHandler.Remove)
				projects.DELETE("/dependencies/source", cfg.DependencyHandler.ClearOutgoing)
				projects.GET("/entities/:entity_type/:entity_id/dependents", cfg.DependencyHandler.ListDependents)
				projects.GET("/entities/:entity_type/:entity_id/dependencies", cfg.DependencyHandler.ListDependencies)
			}

			// Change queue
			if cfg.ChangeHandler != nil {
				projects.POST("/changes", cfg.ChangeHandler.QueueChange)
				projects.POST("/changes/process", cfg.ChangeHandler.ProcessQueue)
				projects.GET("/changes", cfg.ChangeHandler.ListPending)
			}

			// Cascade routing + audit
			if cfg.CascadeHandler != nil {
				projects.POST("/cascades", cfg.CascadeHandler.HandleCascade)
				projects.GET("/cascades", cfg.CascadeHandler.ListCascades)
			}

			// Auto-apply gate
			if cfg.DecisionHandler != nil {
				projects.POST("/decisions", cfg.DecisionHandler.Decide)
			}

			// Impact preview
			if cfg.ImpactHandler != nil {
				projects.POST("/impact", cfg.ImpactHandler.Analyze)
			}

			// Staleness
			if cfg.StalenessHandler != nil {
				projects.GET("/stale", cfg.StalenessHandler.GetStaleEntities)
				projects.POST("/stale/clear", cfg.StalenessHandler.ClearStaleness)
				projects.GET("/refresh-order", cfg.StalenessHandler.RefreshOrder)
			}

			// Activity feed
			if cfg.ActivityHandler != nil {
				projects.GET("/activity", cfg.ActivityHandler.ListActivity)
			}

			// Realtime (SSE)
			if cfg.RealtimeHandler != nil {
				projects.GET("/events", cfg.RealtimeHandler.StreamProjectEvents)
			}
		}
	}

	return r
}
