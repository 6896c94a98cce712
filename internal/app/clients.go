package app

import (
	"context"
	"fmt"

	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/venturecanvas/venturecanvas-backend/internal/platform/logger"
	"github.com/venturecanvas/venturecanvas-backend/internal/platform/neo4jdb"
	"github.com/venturecanvas/venturecanvas-backend/internal/realtime/bus"
	"github.com/venturecanvas/venturecanvas-backend/internal/temporalx"
)

// Clients holds the optional external connections. Any of them may be nil
// when the matching env is unset; callers degrade to in-process behavior.
type Clients struct {
	Graph    *neo4jdb.Client
	SSEBus   bus.Bus
	Temporal temporalsdkclient.Client

	EventTransport EventTransportConfig
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	transport, err := resolveEventTransportConfig()
	if err != nil {
		log.Error("Event transport selection failed",
			"transport", transport.Transport,
			"mode_source", transport.ModeSource,
			"error", err,
		)
		return Clients{}, err
	}
	log.Info("Selecting event transport",
		"transport", transport.Transport,
		"mode_source", transport.ModeSource,
	)

	var sseBus bus.Bus
	if transport.Transport == EventTransportRedis {
		b, err := bus.NewRedisBus(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis SSE bus: %w", err)
		}
		sseBus = b
	}

	graph, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		if sseBus != nil {
			_ = sseBus.Close()
		}
		return Clients{}, fmt.Errorf("init neo4j client: %w", err)
	}

	tc, err := temporalx.NewClient(log)
	if err != nil {
		if graph != nil {
			_ = graph.Close(context.Background())
		}
		if sseBus != nil {
			_ = sseBus.Close()
		}
		return Clients{}, fmt.Errorf("init temporal client: %w", err)
	}

	return Clients{
		Graph:          graph,
		SSEBus:         sseBus,
		Temporal:       tc,
		EventTransport: transport,
	}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Temporal != nil {
		c.Temporal.Close()
	}
	if c.Graph != nil {
		_ = c.Graph.Close(context.Background())
	}
	if c.SSEBus != nil {
		_ = c.SSEBus.Close()
	}
}
