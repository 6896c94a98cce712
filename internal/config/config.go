package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	pkgerrors "github.com/venturecanvas/venturecanvas-backend/internal/pkg/errors"
	"github.com/venturecanvas/venturecanvas-backend/internal/platform/envutil"
	"github.com/venturecanvas/venturecanvas-backend/internal/platform/logger"
)

const tuningPathEnv = "CASCADE_CONFIG_PATH"

type Config struct {
	Port         string
	LogMode      string
	JWTSecretKey string
	Cascade      CascadeConfig
}

// CascadeConfig holds the operational knobs of the propagation core. The
// defaults are the shipped behavior; a YAML tuning file can override them
// per deployment, and bad values refuse to boot.
type CascadeConfig struct {
	AutoApplyMinConfidence float64 `yaml:"auto_apply_min_confidence"`
	MaxAffectedVPSteps     int     `yaml:"max_affected_vp_steps"`
	DefaultMaxDepth        int     `yaml:"default_max_depth"`
	MaxVisitedEntities     int     `yaml:"max_visited_entities"`
	QueueBatchSize         int     `yaml:"queue_batch_size"`
	// env-only: CASCADE_DRAIN_INTERVAL
	DrainInterval time.Duration `yaml:"-"`
}

func DefaultCascadeConfig() CascadeConfig {
	return CascadeConfig{
		AutoApplyMinConfidence: 0.70,
		MaxAffectedVPSteps:     2,
		DefaultMaxDepth:        3,
		MaxVisitedEntities:     500,
		QueueBatchSize:         50,
		DrainInterval:          30 * time.Second,
	}
}

func Load(log *logger.Logger) (Config, error) {
	cfg := Config{
		Port:         envutil.String("PORT", "8080"),
		LogMode:      envutil.String("LOG_MODE", "development"),
		JWTSecretKey: envutil.String("JWT_SECRET_KEY", ""),
		Cascade:      DefaultCascadeConfig(),
	}

	if path := strings.TrimSpace(os.Getenv(tuningPathEnv)); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("%w: read %s: %v", pkgerrors.ErrConfiguration, path, err)
		}
		var file struct {
			Cascade CascadeConfig `yaml:"cascade"`
		}
		file.Cascade = cfg.Cascade
		if err := yaml.Unmarshal(raw, &file); err != nil {
			return Config{}, fmt.Errorf("%w: parse %s: %v", pkgerrors.ErrConfiguration, path, err)
		}
		cfg.Cascade = file.Cascade
		if log != nil {
			log.Info("loaded cascade tuning file", "path", path)
		}
	}

	// Env beats file for the knobs operators flip most often.
	cfg.Cascade.QueueBatchSize = envutil.Int("CASCADE_QUEUE_BATCH_SIZE", cfg.Cascade.QueueBatchSize)
	cfg.Cascade.DrainInterval = envutil.Duration("CASCADE_DRAIN_INTERVAL", cfg.Cascade.DrainInterval)

	if err := cfg.Cascade.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c CascadeConfig) Validate() error {
	if c.AutoApplyMinConfidence < 0 || c.AutoApplyMinConfidence > 1 {
		return fmt.Errorf("%w: auto_apply_min_confidence %v outside [0,1]", pkgerrors.ErrConfiguration, c.AutoApplyMinConfidence)
	}
	if c.MaxAffectedVPSteps < 0 {
		return fmt.Errorf("%w: max_affected_vp_steps %d negative", pkgerrors.ErrConfiguration, c.MaxAffectedVPSteps)
	}
	if c.DefaultMaxDepth < 1 {
		return fmt.Errorf("%w: default_max_depth %d below 1", pkgerrors.ErrConfiguration, c.DefaultMaxDepth)
	}
	if c.MaxVisitedEntities < c.DefaultMaxDepth {
		return fmt.Errorf("%w: max_visited_entities %d below default_max_depth %d", pkgerrors.ErrConfiguration, c.MaxVisitedEntities, c.DefaultMaxDepth)
	}
	if c.QueueBatchSize < 1 {
		return fmt.Errorf("%w: queue_batch_size %d below 1", pkgerrors.ErrConfiguration, c.QueueBatchSize)
	}
	if c.DrainInterval <= 0 {
		return fmt.Errorf("%w: drain_interval %s not positive", pkgerrors.ErrConfiguration, c.DrainInterval)
	}
	return nil
}
