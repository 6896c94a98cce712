package realtime

import (
	"github.com/google/uuid"

	"github.com/venturecanvas/venturecanvas-backend/internal/platform/logger"
)

type SSEClient struct {
	ID       uuid.UUID
	Caller   string
	Channels map[string]bool
	Outbound chan SSEMessage
	done     chan struct{}
	Logger   *logger.Logger
}
