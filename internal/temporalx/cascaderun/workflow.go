package cascaderun

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.temporal.io/api/enums/v1"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// Workflow drains the change queue on a fixed cadence. A drain-now signal
// wakes the loop early; ContinueAsNew bounds history growth.
func Workflow(ctx workflow.Context, in DrainInput) error {
	const (
		defaultInterval      = 30 * time.Second
		continueTickLimit    = 500
		continueHistoryLimit = 10000
	)

	interval := time.Duration(in.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = defaultInterval
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		HeartbeatTimeout:    30 * time.Second,
		// The next cadence is the retry; draining is idempotent.
		RetryPolicy: &temporal.RetryPolicy{MaximumAttempts: 1},
	})

	drainNow := workflow.GetSignalChannel(ctx, SignalDrainNow)
	logger := workflow.GetLogger(ctx)
	tickCount := 0

	for {
		tickCount++
		var out DrainResult
		if err := workflow.ExecuteActivity(ctx, ActivityDrain, in).Get(ctx, &out); err != nil {
			logger.Warn("drain tick failed", "error", err)
		} else if out.ChangesProcessed > 0 {
			logger.Info("drain tick",
				"changes_processed", out.ChangesProcessed,
				"entities_marked_stale", out.EntitiesMarkedStale,
				"errors", len(out.Errors))
		}

		if shouldContinueAsNew(ctx, tickCount, continueTickLimit, continueHistoryLimit) {
			return workflow.NewContinueAsNewError(ctx, Workflow, in)
		}

		waitForSignalOrTimer(ctx, drainNow, interval)
	}
}

// EnsureRunning starts the drain workflow when absent and nudges a running
// one to drain immediately.
func EnsureRunning(ctx context.Context, tc temporalsdkclient.Client, taskQueue string, in DrainInput) error {
	if tc == nil {
		return fmt.Errorf("temporal not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	opts := temporalsdkclient.StartWorkflowOptions{
		ID:                    WorkflowID(in.ProjectID),
		TaskQueue:             strings.TrimSpace(taskQueue),
		WorkflowIDReusePolicy: enums.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
	}
	_, err := tc.SignalWithStartWorkflow(ctx, opts.ID, SignalDrainNow, nil, opts, WorkflowName, in)
	return err
}

func WorkflowID(projectID string) string {
	if s := strings.TrimSpace(projectID); s != "" {
		return "cascade-drain:" + s
	}
	return "cascade-drain"
}

func waitForSignalOrTimer(ctx workflow.Context, ch workflow.ReceiveChannel, maxWait time.Duration) {
	timer := workflow.NewTimer(ctx, maxWait)
	sel := workflow.NewSelector(ctx)
	sel.AddReceive(ch, func(c workflow.ReceiveChannel, more bool) {
		var v any
		c.Receive(ctx, &v)
	})
	sel.AddFuture(timer, func(f workflow.Future) {})
	sel.Select(ctx)
}

func shouldContinueAsNew(ctx workflow.Context, ticks int, maxTicks int, maxHistory int) bool {
	if ticks >= maxTicks && maxTicks > 0 {
		return true
	}
	info := workflow.GetInfo(ctx)
	if info == nil {
		return false
	}
	if maxHistory <= 0 {
		return false
	}
	if info.GetCurrentHistoryLength() >= maxHistory {
		return true
	}
	return false
}
