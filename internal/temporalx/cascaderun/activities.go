package cascaderun

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/venturecanvas/venturecanvas-backend/internal/modules/cascade"
	"github.com/venturecanvas/venturecanvas-backend/internal/platform/logger"

	"go.temporal.io/sdk/activity"
)

type Activities struct {
	Log        *logger.Logger
	Propagator cascade.Propagator
}

// DrainChangeQueue claims and propagates pending change events. Draining
// is idempotent, so a retried tick after a partial pass is safe.
func (a *Activities) DrainChangeQueue(ctx context.Context, in DrainInput) (DrainResult, error) {
	res := DrainResult{}
	if a == nil || a.Propagator == nil {
		return res, fmt.Errorf("cascaderun: activity not configured")
	}

	var projectID *uuid.UUID
	if s := strings.TrimSpace(in.ProjectID); s != "" {
		id, err := uuid.Parse(s)
		if err != nil || id == uuid.Nil {
			return res, fmt.Errorf("cascaderun: invalid project_id %q", s)
		}
		projectID = &id
	}

	stopHB := startHeartbeat(ctx)
	defer stopHB()

	stats, err := a.Propagator.ProcessQueue(ctx, projectID, in.AutoOnly, in.MaxChanges)
	if err != nil {
		return res, err
	}
	res.ChangesProcessed = stats.ChangesProcessed
	res.EntitiesMarkedStale = stats.EntitiesMarkedStale
	res.Errors = stats.Errors

	if a.Log != nil && (res.ChangesProcessed > 0 || len(res.Errors) > 0) {
		a.Log.Info("change queue drained",
			"changes_processed", res.ChangesProcessed,
			"entities_marked_stale", res.EntitiesMarkedStale,
			"errors", len(res.Errors))
	}
	return res, nil
}

func startHeartbeat(ctx context.Context) func() {
	done := make(chan struct{})
	go func() {
		hb := time.NewTicker(10 * time.Second)
		defer hb.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-hb.C:
				activity.RecordHeartbeat(ctx)
			}
		}
	}()
	return func() { close(done) }
}
