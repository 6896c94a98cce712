package app

import (
	"fmt"
	"os"
	"strings"
)

// EventTransport selects how cascade notifications travel to SSE clients:
// through redis pub/sub so every API instance sees them, or through the
// in-process hub only.
type EventTransport string

const (
	EventTransportRedis  EventTransport = "redis"
	EventTransportMemory EventTransport = "memory"
)

type EventTransportConfigErrorCode string

const (
	EventTransportConfigErrorInvalidTransport EventTransportConfigErrorCode = "invalid_transport"
	EventTransportConfigErrorMissingRedisAddr EventTransportConfigErrorCode = "missing_redis_addr"
)

type EventTransportConfigError struct {
	Code      EventTransportConfigErrorCode
	Transport string
	Cause     error
}

func (e *EventTransportConfigError) Error() string {
	if e == nil {
		return "invalid event transport config"
	}
	return fmt.Sprintf(
		"invalid event transport config (code=%s transport=%q): %v",
		e.Code,
		e.Transport,
		e.Cause,
	)
}

func (e *EventTransportConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

type EventTransportConfig struct {
	Transport  EventTransport
	ModeSource string
	RedisAddr  string
}

// resolveEventTransportConfig picks the transport from EVENT_TRANSPORT, or
// defaults by REDIS_ADDR presence: set means redis, unset means memory.
// Asking for redis without an address refuses to boot rather than silently
// dropping cross-instance delivery.
func resolveEventTransportConfig() (EventTransportConfig, error) {
	redisAddr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))

	raw := strings.ToLower(strings.TrimSpace(os.Getenv("EVENT_TRANSPORT")))
	if raw == "" {
		if redisAddr != "" {
			return EventTransportConfig{
				Transport:  EventTransportRedis,
				ModeSource: "redis_addr_default",
				RedisAddr:  redisAddr,
			}, nil
		}
		return EventTransportConfig{
			Transport:  EventTransportMemory,
			ModeSource: "redis_addr_default",
		}, nil
	}

	switch EventTransport(raw) {
	case EventTransportRedis:
		if redisAddr == "" {
			return EventTransportConfig{}, &EventTransportConfigError{
				Code:      EventTransportConfigErrorMissingRedisAddr,
				Transport: raw,
				Cause:     fmt.Errorf("EVENT_TRANSPORT=redis requires REDIS_ADDR"),
			}
		}
		return EventTransportConfig{
			Transport:  EventTransportRedis,
			ModeSource: "event_transport_env",
			RedisAddr:  redisAddr,
		}, nil
	case EventTransportMemory:
		return EventTransportConfig{
			Transport:  EventTransportMemory,
			ModeSource: "event_transport_env",
		}, nil
	default:
		return EventTransportConfig{}, &EventTransportConfigError{
			Code:      EventTransportConfigErrorInvalidTransport,
			Transport: raw,
			Cause:     fmt.Errorf("unsupported event transport %q", raw),
		}
	}
}
