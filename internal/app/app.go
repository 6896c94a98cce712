package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/venturecanvas/venturecanvas-backend/internal/config"
	"github.com/venturecanvas/venturecanvas-backend/internal/data/db"
	vchttp "github.com/venturecanvas/venturecanvas-backend/internal/http"
	"github.com/venturecanvas/venturecanvas-backend/internal/modules/cascade"
	"github.com/venturecanvas/venturecanvas-backend/internal/observability"
	"github.com/venturecanvas/venturecanvas-backend/internal/platform/logger"
	"github.com/venturecanvas/venturecanvas-backend/internal/realtime"
	"github.com/venturecanvas/venturecanvas-backend/internal/temporalx"
	"github.com/venturecanvas/venturecanvas-backend/internal/temporalx/cascaderun"
	"github.com/venturecanvas/venturecanvas-backend/internal/temporalx/temporalworker"
)

type App struct {
	Log     *logger.Logger
	Cfg     config.Config
	DB      *gorm.DB
	Repos   Repos
	Clients Clients
	Cascade *cascade.Service
	Hub     *realtime.SSEHub
	Metrics *observability.Metrics

	server       *vchttp.Server
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	cfg, err := config.Load(log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	metrics := observability.Init(log)
	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "venturecanvas-backend",
		Environment: cfg.LogMode,
	})

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	clients, err := wireClients(log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	hub := realtime.NewSSEHub(log)
	reposet := wireRepos(theDB, log)
	svc := wireCascade(theDB, log, cfg, reposet, clients, hub, metrics)
	handlerset := wireHandlers(log, svc, reposet, hub)
	server := wireHTTP(log, cfg, metrics, handlerset)

	return &App{
		Log:     log,
		Cfg:     cfg,
		DB:      theDB,
		Repos:   reposet,
		Clients: clients,
		Cascade: svc,
		Hub:     hub,
		Metrics: metrics,

		server:       server,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches the background loops: metrics collectors, the redis
// forwarder feeding the SSE hub, the optional embedded Temporal worker and
// the drain cadence workflow.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.Metrics.StartServer(ctx, a.Log, os.Getenv("METRICS_ADDR"))
	a.Metrics.StartPostgresCollector(ctx, a.Log, a.DB)
	a.Metrics.StartRedisCollector(ctx, a.Log, a.Clients.EventTransport.RedisAddr)
	a.Metrics.StartChangeQueueCollector(ctx, a.Log, a.DB)
	a.Metrics.StartSLOEvaluator(ctx, a.Log)

	if a.Clients.SSEBus != nil {
		if err := a.Clients.SSEBus.StartForwarder(ctx, a.Hub.Broadcast); err != nil {
			a.Log.Warn("redis SSE forwarder failed to start; this instance only sees its own events", "error", err)
		}
	}

	if a.Clients.Temporal != nil {
		runWorker := strings.EqualFold(strings.TrimSpace(os.Getenv("RUN_WORKER")), "true")
		if runWorker {
			runner, err := temporalworker.NewRunner(a.Log, a.Clients.Temporal, a.Cascade.Propagator)
			if err != nil {
				a.Log.Warn("embedded temporal worker init failed", "error", err)
			} else if err := runner.Start(ctx); err != nil {
				a.Log.Warn("embedded temporal worker failed to start", "error", err)
			}
		}

		in := cascaderun.DrainInput{
			AutoOnly:        true,
			MaxChanges:      a.Cfg.Cascade.QueueBatchSize,
			IntervalSeconds: int(a.Cfg.Cascade.DrainInterval / time.Second),
		}
		if err := cascaderun.EnsureRunning(ctx, a.Clients.Temporal, temporalx.LoadConfig().TaskQueue, in); err != nil {
			a.Log.Warn("drain workflow ensure failed; queue drains only on demand", "error", err)
		}
	}
}

// Run blocks serving HTTP until ctx is canceled, then drains in-flight
// requests before returning.
func (a *App) Run(ctx context.Context, addr string) error {
	if a == nil || a.server == nil {
		return fmt.Errorf("app not initialized")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Run(addr)
	}()
	a.Log.Info("Server listening", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.Clients.Close()
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.otelShutdown(ctx)
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
