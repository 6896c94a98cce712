package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	pkgerrors "github.com/venturecanvas/venturecanvas-backend/internal/pkg/errors"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(tuningPathEnv, "")
	t.Setenv("CASCADE_QUEUE_BATCH_SIZE", "")
	t.Setenv("CASCADE_DRAIN_INTERVAL", "")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cascade.AutoApplyMinConfidence != 0.70 {
		t.Fatalf("auto apply floor: want=0.70 got=%v", cfg.Cascade.AutoApplyMinConfidence)
	}
	if cfg.Cascade.DefaultMaxDepth != 3 {
		t.Fatalf("default depth: want=3 got=%d", cfg.Cascade.DefaultMaxDepth)
	}
	if cfg.Cascade.QueueBatchSize != 50 {
		t.Fatalf("batch size: want=50 got=%d", cfg.Cascade.QueueBatchSize)
	}
}

func TestLoadTuningFileOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cascade.yaml")
	body := []byte("cascade:\n  auto_apply_min_confidence: 0.8\n  queue_batch_size: 10\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write tuning file: %v", err)
	}
	t.Setenv(tuningPathEnv, path)
	t.Setenv("CASCADE_QUEUE_BATCH_SIZE", "")
	t.Setenv("CASCADE_DRAIN_INTERVAL", "")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cascade.AutoApplyMinConfidence != 0.8 {
		t.Fatalf("auto apply floor: want=0.8 got=%v", cfg.Cascade.AutoApplyMinConfidence)
	}
	if cfg.Cascade.QueueBatchSize != 10 {
		t.Fatalf("batch size: want=10 got=%d", cfg.Cascade.QueueBatchSize)
	}
	// untouched knobs keep their defaults
	if cfg.Cascade.MaxVisitedEntities != 500 {
		t.Fatalf("visited cap: want=500 got=%d", cfg.Cascade.MaxVisitedEntities)
	}
}

func TestLoadRejectsBadThresholds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cascade.yaml")
	body := []byte("cascade:\n  auto_apply_min_confidence: 1.5\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write tuning file: %v", err)
	}
	t.Setenv(tuningPathEnv, path)

	_, err := Load(nil)
	if err == nil {
		t.Fatalf("expected configuration error, got nil")
	}
	if !errors.Is(err, pkgerrors.ErrConfiguration) {
		t.Fatalf("want ErrConfiguration, got %v", err)
	}
}

func TestValidateBounds(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*CascadeConfig)
	}{
		{"negative steps", func(c *CascadeConfig) { c.MaxAffectedVPSteps = -1 }},
		{"zero depth", func(c *CascadeConfig) { c.DefaultMaxDepth = 0 }},
		{"cap below depth", func(c *CascadeConfig) { c.MaxVisitedEntities = 1; c.DefaultMaxDepth = 3 }},
		{"zero batch", func(c *CascadeConfig) { c.QueueBatchSize = 0 }},
		{"zero interval", func(c *CascadeConfig) { c.DrainInterval = 0 }},
	}
	for _, tc := range cases {
		cfg := DefaultCascadeConfig()
		tc.mutate(&cfg)
		if err := cfg.Validate(); !errors.Is(err, pkgerrors.ErrConfiguration) {
			t.Fatalf("%s: want ErrConfiguration, got %v", tc.name, err)
		}
	}
}
