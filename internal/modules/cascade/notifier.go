package cascade

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/venturecanvas/venturecanvas-backend/internal/data/repos"
	"github.com/venturecanvas/venturecanvas-backend/internal/domain"
	"github.com/venturecanvas/venturecanvas-backend/internal/observability"
	"github.com/venturecanvas/venturecanvas-backend/internal/pkg/ctxutil"
	"github.com/venturecanvas/venturecanvas-backend/internal/pkg/dbctx"
	"github.com/venturecanvas/venturecanvas-backend/internal/platform/logger"
	"github.com/venturecanvas/venturecanvas-backend/internal/realtime"
	"github.com/venturecanvas/venturecanvas-backend/internal/realtime/bus"
)

// Activity kinds written to the feed.
const (
	ActivityKindCascadeSuggested = "cascade.suggested"
	ActivityKindCascadeApplied   = "cascade.applied"
	ActivityKindCascadeDismissed = "cascade.dismissed"
	ActivityKindChangeQueued     = "change.queued"
)

// Emitter pushes a realtime message toward connected clients, either
// straight into the in-process hub or through the redis bus.
type Emitter interface {
	Emit(ctx context.Context, msg realtime.SSEMessage)
}

type HubEmitter struct{ Hub *realtime.SSEHub }

func (e *HubEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) {
	e.Hub.Broadcast(msg)
}

type RedisEmitter struct{ Bus bus.Bus }

func (e *RedisEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) {
	_ = e.Bus.Publish(ctx, msg)
}

// Notifier is the activity/confirmation surface. Every method is
// fire-and-forget: failures are logged and counted, never returned, so a
// broken feed can not fail a propagation pass.
type Notifier interface {
	NotifyActivity(ctx context.Context, projectID uuid.UUID, kind string, entity domain.EntityRef, summary string, requiresAction bool, payload map[string]any)
	PublishEntityStale(ctx context.Context, projectID uuid.UUID, entity domain.EntityRef, reason string)
	PublishQueueDrained(ctx context.Context, projectID uuid.UUID, stats *QueueStats)
}

type activityNotifier struct {
	log      *logger.Logger
	activity repos.ActivityRepo
	emit     Emitter
	metrics  *observability.Metrics
}

func NewActivityNotifier(baseLog *logger.Logger, activity repos.ActivityRepo, emit Emitter, metrics *observability.Metrics) Notifier {
	return &activityNotifier{
		log:      baseLog.With("service", "ActivityNotifier"),
		activity: activity,
		emit:     emit,
		metrics:  metrics,
	}
}

func (n *activityNotifier) NotifyActivity(ctx context.Context, projectID uuid.UUID, kind string, entity domain.EntityRef, summary string, requiresAction bool, payload map[string]any) {
	if n == nil || projectID == uuid.Nil {
		return
	}
	ctx = ctxutil.Default(ctx)

	var raw datatypes.JSON
	if len(payload) > 0 {
		if b, err := json.Marshal(payload); err == nil {
			raw = datatypes.JSON(b)
		}
	}
	item := &domain.ActivityItem{
		ID:             uuid.New(),
		ProjectID:      projectID,
		Kind:           kind,
		EntityType:     entity.Type,
		EntityID:       entity.ID,
		Summary:        summary,
		RequiresAction: requiresAction,
		Payload:        raw,
		CreatedAt:      time.Now().UTC(),
	}
	if n.activity != nil {
		if _, err := n.activity.Create(dbctx.Context{Ctx: ctx}, []*domain.ActivityItem{item}); err != nil {
			n.metrics.IncNotifyFailure()
			if n.log != nil {
				n.log.Warn("activity write failed",
					"project_id", projectID.String(),
					"kind", kind,
					"entity", entity.String(),
					"err", err.Error(),
				)
			}
			return
		}
	}
	n.publish(ctx, projectID, eventForKind(kind), map[string]any{"activity": item})
}

func (n *activityNotifier) PublishEntityStale(ctx context.Context, projectID uuid.UUID, entity domain.EntityRef, reason string) {
	if n == nil || projectID == uuid.Nil {
		return
	}
	n.publish(ctxutil.Default(ctx), projectID, realtime.SSEEventEntityStale, map[string]any{
		"entity_type": entity.Type,
		"entity_id":   entity.ID,
		"reason":      reason,
	})
}

func (n *activityNotifier) PublishQueueDrained(ctx context.Context, projectID uuid.UUID, stats *QueueStats) {
	if n == nil || projectID == uuid.Nil || stats == nil {
		return
	}
	n.publish(ctxutil.Default(ctx), projectID, realtime.SSEEventQueueDrained, map[string]any{"stats": stats})
}

func (n *activityNotifier) publish(ctx context.Context, projectID uuid.UUID, event realtime.SSEEvent, data map[string]any) {
	if n.emit == nil {
		return
	}
	n.emit.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.ProjectChannel(projectID),
		Event:   event,
		Data:    data,
	})
}

func eventForKind(kind string) realtime.SSEEvent {
	switch kind {
	case ActivityKindCascadeSuggested:
		return realtime.SSEEventCascadeSuggested
	case ActivityKindCascadeApplied:
		return realtime.SSEEventCascadeApplied
	case ActivityKindCascadeDismissed:
		return realtime.SSEEventCascadeDismissed
	default:
		return realtime.SSEEventActivityCreated
	}
}
