package realtime

import "github.com/google/uuid"

type SSEEvent string

const (
	SSEEventActivityCreated  SSEEvent = "ActivityCreated"
	SSEEventCascadeSuggested SSEEvent = "CascadeSuggested"
	SSEEventCascadeApplied   SSEEvent = "CascadeApplied"
	SSEEventCascadeDismissed SSEEvent = "CascadeDismissed"
	SSEEventEntityStale      SSEEvent = "EntityStale"
	SSEEventQueueDrained     SSEEvent = "QueueDrained"
)

type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}

// ProjectChannel is the per-project stream every cascade notification goes
// out on.
func ProjectChannel(projectID uuid.UUID) string {
	return "project:" + projectID.String()
}
