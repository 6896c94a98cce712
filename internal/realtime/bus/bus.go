package bus

import (
	"context"

	"github.com/venturecanvas/venturecanvas-backend/internal/realtime"
)

// Bus carries SSE messages between API instances so a cascade routed on one
// node reaches clients streaming from another.
type Bus interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error
	Close() error
}
