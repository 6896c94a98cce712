package app

import (
	"errors"
	"testing"
)

func TestResolveEventTransportConfigDefaultsToMemory(t *testing.T) {
	t.Setenv("EVENT_TRANSPORT", "")
	t.Setenv("REDIS_ADDR", "")

	cfg, err := resolveEventTransportConfig()
	if err != nil {
		t.Fatalf("resolveEventTransportConfig: %v", err)
	}
	if cfg.Transport != EventTransportMemory {
		t.Fatalf("transport: want=%q got=%q", EventTransportMemory, cfg.Transport)
	}
	if cfg.ModeSource != "redis_addr_default" {
		t.Fatalf("mode source: want=%q got=%q", "redis_addr_default", cfg.ModeSource)
	}
}

func TestResolveEventTransportConfigDefaultsToRedisWhenAddrSet(t *testing.T) {
	t.Setenv("EVENT_TRANSPORT", "")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err := resolveEventTransportConfig()
	if err != nil {
		t.Fatalf("resolveEventTransportConfig: %v", err)
	}
	if cfg.Transport != EventTransportRedis {
		t.Fatalf("transport: want=%q got=%q", EventTransportRedis, cfg.Transport)
	}
	if cfg.RedisAddr != "redis:6379" {
		t.Fatalf("redis addr: want=%q got=%q", "redis:6379", cfg.RedisAddr)
	}
}

func TestResolveEventTransportConfigExplicitMemoryWins(t *testing.T) {
	t.Setenv("EVENT_TRANSPORT", "memory")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err := resolveEventTransportConfig()
	if err != nil {
		t.Fatalf("resolveEventTransportConfig: %v", err)
	}
	if cfg.Transport != EventTransportMemory {
		t.Fatalf("transport: want=%q got=%q", EventTransportMemory, cfg.Transport)
	}
	if cfg.ModeSource != "event_transport_env" {
		t.Fatalf("mode source: want=%q got=%q", "event_transport_env", cfg.ModeSource)
	}
}

func TestResolveEventTransportConfigRedisWithoutAddr(t *testing.T) {
	t.Setenv("EVENT_TRANSPORT", "redis")
	t.Setenv("REDIS_ADDR", "")

	_, err := resolveEventTransportConfig()
	if err == nil {
		t.Fatalf("resolveEventTransportConfig: expected error, got nil")
	}
	var got *EventTransportConfigError
	if !errors.As(err, &got) {
		t.Fatalf("expected EventTransportConfigError, got=%T", err)
	}
	if got.Code != EventTransportConfigErrorMissingRedisAddr {
		t.Fatalf("code: want=%q got=%q", EventTransportConfigErrorMissingRedisAddr, got.Code)
	}
}

func TestResolveEventTransportConfigInvalidTransport(t *testing.T) {
	t.Setenv("EVENT_TRANSPORT", "bogus")

	_, err := resolveEventTransportConfig()
	if err == nil {
		t.Fatalf("resolveEventTransportConfig: expected error, got nil")
	}
	var got *EventTransportConfigError
	if !errors.As(err, &got) {
		t.Fatalf("expected EventTransportConfigError, got=%T", err)
	}
	if got.Code != EventTransportConfigErrorInvalidTransport {
		t.Fatalf("code: want=%q got=%q", EventTransportConfigErrorInvalidTransport, got.Code)
	}
}
