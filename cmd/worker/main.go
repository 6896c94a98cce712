package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/venturecanvas/venturecanvas-backend/internal/app"
	"github.com/venturecanvas/venturecanvas-backend/internal/platform/shutdown"
	"github.com/venturecanvas/venturecanvas-backend/internal/temporalx"
	"github.com/venturecanvas/venturecanvas-backend/internal/temporalx/cascaderun"
	"github.com/venturecanvas/venturecanvas-backend/internal/temporalx/temporalworker"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("failed to initialize app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if a.Clients.Temporal == nil {
		fmt.Println("TEMPORAL_ADDRESS is required for the drain worker")
		os.Exit(1)
	}

	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	a.Metrics.StartServer(ctx, a.Log, os.Getenv("METRICS_ADDR"))

	runner, err := temporalworker.NewRunner(a.Log, a.Clients.Temporal, a.Cascade.Propagator)
	if err != nil {
		fmt.Printf("init temporal worker: %v\n", err)
		os.Exit(1)
	}
	if err := runner.Start(ctx); err != nil {
		fmt.Printf("start temporal worker: %v\n", err)
		os.Exit(1)
	}

	in := cascaderun.DrainInput{
		AutoOnly:        true,
		MaxChanges:      a.Cfg.Cascade.QueueBatchSize,
		IntervalSeconds: int(a.Cfg.Cascade.DrainInterval / time.Second),
	}
	if err := cascaderun.EnsureRunning(ctx, a.Clients.Temporal, temporalx.LoadConfig().TaskQueue, in); err != nil {
		a.Log.Warn("drain workflow ensure failed; queue drains only on demand", "error", err)
	}

	<-ctx.Done()
}
