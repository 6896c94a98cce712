package cascade

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/venturecanvas/venturecanvas-backend/internal/config"
	"github.com/venturecanvas/venturecanvas-backend/internal/data/repos"
	"github.com/venturecanvas/venturecanvas-backend/internal/domain"
	"github.com/venturecanvas/venturecanvas-backend/internal/observability"
	"github.com/venturecanvas/venturecanvas-backend/internal/pkg/dbctx"
	pkgerrors "github.com/venturecanvas/venturecanvas-backend/internal/pkg/errors"
	"github.com/venturecanvas/venturecanvas-backend/internal/platform/logger"
)

// Claims older than this are considered abandoned and eligible for
// re-claim by another drain pass.
const defaultReclaimAfter = 5 * time.Minute

// Propagator walks the dependency graph outward from a changed entity and
// marks dependents stale. Traversals are synchronous, depth-bounded, and
// visited-capped; per-node store failures are collected and routed around,
// never thrown, so one unreachable entity cannot block its siblings.
type Propagator interface {
	PropagateFrom(dbc dbctx.Context, projectID uuid.UUID, origin domain.EntityRef, reason string, maxDepth int) (*PropagationStats, error)
	ProcessQueue(ctx context.Context, projectID *uuid.UUID, autoOnly bool, maxChanges int) (*QueueStats, error)
	ClearStaleness(dbc dbctx.Context, projectID uuid.UUID, only []domain.EntityRef) (int64, error)
}

type propagator struct {
	log      *logger.Logger
	cfg      config.CascadeConfig
	edges    repos.DependencyEdgeRepo
	entities repos.EntityStore
	changes  repos.ChangeEventRepo
	notifier Notifier
	metrics  *observability.Metrics
}

func NewPropagator(baseLog *logger.Logger, cfg config.CascadeConfig, edges repos.DependencyEdgeRepo, entities repos.EntityStore, changes repos.ChangeEventRepo, notifier Notifier, metrics *observability.Metrics) Propagator {
	return &propagator{
		log:      baseLog.With("service", "Propagator"),
		cfg:      cfg,
		edges:    edges,
		entities: entities,
		changes:  changes,
		notifier: notifier,
		metrics:  metrics,
	}
}

func (s *propagator) PropagateFrom(dbc dbctx.Context, projectID uuid.UUID, origin domain.EntityRef, reason string, maxDepth int) (*PropagationStats, error) {
	if projectID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing project id", pkgerrors.ErrInvalidArgument)
	}
	if err := origin.Validate(); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "upstream change"
	}
	if maxDepth <= 0 {
		maxDepth = s.cfg.DefaultMaxDepth
	}

	stats := &PropagationStats{}
	visited := map[string]bool{origin.String(): true}
	frontier := []domain.EntityRef{origin}
	var dangling []string
	capped := false

	for depth := 1; depth <= maxDepth && len(frontier) > 0 && !capped; depth++ {
		var next []domain.EntityRef
		for _, node := range frontier {
			edges, err := s.edges.ListByTarget(dbc, projectID, node)
			if err != nil {
				s.recordError(stats, fmt.Sprintf("list dependents of %s: %v", node.String(), err))
				continue
			}
			for _, e := range edges {
				dep := e.Source()
				if visited[dep.String()] {
					continue
				}
				if stats.Visited >= s.cfg.MaxVisitedEntities {
					capped = true
					s.recordError(stats, fmt.Sprintf("visited cap %d reached, traversal truncated", s.cfg.MaxVisitedEntities))
					break
				}
				visited[dep.String()] = true
				stats.Visited++

				marked, err := s.entities.MarkStale(dbc, dep, staleReason(node.Type, reason))
				if err != nil {
					s.recordError(stats, fmt.Sprintf("mark %s stale: %v", dep.String(), err))
					continue
				}
				if !marked {
					// Edge points at a row that no longer exists. Skip the
					// branch; the edge itself is the data-quality problem.
					dangling = append(dangling, fmt.Sprintf("dangling edge %s -> %s (%s)", dep.String(), node.String(), e.Relation))
					s.log.Warn("skipping dangling dependency edge",
						"project_id", projectID.String(),
						"source", dep.String(),
						"target", node.String(),
						"relation", string(e.Relation),
					)
					continue
				}
				stats.MarkedStale++
				if s.notifier != nil {
					s.notifier.PublishEntityStale(dbc.Ctx, projectID, dep, staleReason(node.Type, reason))
				}
				next = append(next, dep)
			}
			if capped {
				break
			}
		}
		frontier = next
	}

	if len(dangling) > 0 {
		observability.ReportDataQualityErrors(dbc.Ctx, s.log, "propagation", dangling, map[string]any{
			"project_id": projectID.String(),
			"origin":     origin.String(),
		})
	}
	s.metrics.AddMarkedStale(stats.MarkedStale)
	return stats, nil
}

func (s *propagator) ProcessQueue(ctx context.Context, projectID *uuid.UUID, autoOnly bool, maxChanges int) (*QueueStats, error) {
	start := time.Now()
	mode := "all"
	if autoOnly {
		mode = "auto"
	}
	if maxChanges <= 0 {
		maxChanges = s.cfg.QueueBatchSize
	}
	dbc := dbctx.Context{Ctx: ctx}

	claimed, err := s.changes.ClaimPending(dbc, projectID, autoOnly, maxChanges, defaultReclaimAfter)
	if err != nil {
		s.metrics.ObserveQueueDrain(mode, "error", time.Since(start))
		return nil, err
	}

	stats := &QueueStats{}
	for _, ev := range claimed {
		pstats, err := s.PropagateFrom(dbc, ev.ProjectID, ev.Entity(), reasonForEvent(ev), s.cfg.DefaultMaxDepth)
		if err != nil {
			// An event that cannot even start propagation (stale row with a
			// since-removed entity type, say) will never succeed. Discharge
			// it so it stops clogging the queue.
			stats.Errors = append(stats.Errors, fmt.Sprintf("event %s: %v", ev.ID.String(), err))
			s.metrics.IncPropagationError()
		} else {
			stats.EntitiesMarkedStale += pstats.MarkedStale
			stats.Errors = append(stats.Errors, pstats.Errors...)
		}

		ok, err := s.changes.MarkProcessed(dbc, ev.ID)
		if err != nil {
			stats.Errors = append(stats.Errors, fmt.Sprintf("mark event %s processed: %v", ev.ID.String(), err))
			s.metrics.IncPropagationError()
			continue
		}
		if !ok {
			s.log.Info("change event processed by another worker", "event_id", ev.ID.String())
			continue
		}
		stats.ChangesProcessed++
	}

	s.metrics.ObserveQueueDrain(mode, "ok", time.Since(start))
	if projectID != nil && s.notifier != nil && len(claimed) > 0 {
		s.notifier.PublishQueueDrained(ctx, *projectID, stats)
	}
	return stats, nil
}

func (s *propagator) ClearStaleness(dbc dbctx.Context, projectID uuid.UUID, only []domain.EntityRef) (int64, error) {
	if projectID == uuid.Nil {
		return 0, fmt.Errorf("%w: missing project id", pkgerrors.ErrInvalidArgument)
	}
	for _, ref := range only {
		if err := ref.Validate(); err != nil {
			return 0, err
		}
	}
	return s.entities.ClearStale(dbc, projectID, only)
}

func (s *propagator) recordError(stats *PropagationStats, msg string) {
	stats.Errors = append(stats.Errors, msg)
	s.metrics.IncPropagationError()
}

// staleReason names the immediate upstream type so a stale flag is
// traceable to its cause.
func staleReason(upstream domain.EntityType, reason string) string {
	return fmt.Sprintf("upstream %s changed: %s", upstream, reason)
}

func reasonForEvent(ev *domain.ChangeEvent) string {
	if ev == nil {
		return "upstream change"
	}
	if name := strings.TrimSpace(ev.EntityName); name != "" {
		return fmt.Sprintf("%s (%s)", ev.ChangeType, name)
	}
	return ev.ChangeType
}
