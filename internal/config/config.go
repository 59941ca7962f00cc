package config

import (
	"fmt"
	"time"

	"github.com/clusterops/azsql-bulk-failover/internal/sqlfailover"
)

// Config is the engine's full set of run-time options. SubscriptionID,
// ResourceGroupFilter, and ServerFilter are normally supplied per-invocation
// (see cmd/azsqlfailover), but may also be pinned here for a scheduled job
// that always targets the same scope.
type Config struct {
	Engine    EngineConfig    `yaml:"engine"`
	Logging   LoggingConfig   `yaml:"logging"`
	Preflight PreflightConfig `yaml:"preflight"`
}

// EngineConfig holds the bulk-failover engine's configuration options
// (spec §6): poll cadence, optional parallelism, and discovery scope.
type EngineConfig struct {
	SubscriptionID      string        `yaml:"subscription_id"`
	ResourceGroupFilter string        `yaml:"resource_group_filter" default:"*"`
	ServerFilter        string        `yaml:"server_filter" default:"*"`
	PollInterval        time.Duration `yaml:"poll_interval" default:"15s"`
	Concurrency         int           `yaml:"concurrency" default:"1"`
}

// LoggingConfig controls which engine events are surfaced (spec §6).
type LoggingConfig struct {
	Level string `yaml:"level" default:"Info"` // Minimal | Info | Verbose
}

// PreflightConfig controls the optional self-service maintenance
// notification gate (C7).
type PreflightConfig struct {
	CheckPlannedMaintenanceNotification bool `yaml:"check_planned_maintenance_notification" default:"false"`
}

// ApplyDefaults fills in zero-valued fields with the documented defaults.
func (c *Config) ApplyDefaults() {
	if c.Engine.ResourceGroupFilter == "" {
		c.Engine.ResourceGroupFilter = "*"
	}
	if c.Engine.ServerFilter == "" {
		c.Engine.ServerFilter = "*"
	}
	if c.Engine.PollInterval == 0 {
		c.Engine.PollInterval = 15 * time.Second
	}
	if c.Engine.Concurrency == 0 {
		c.Engine.Concurrency = 1
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "Info"
	}
}

// Validate checks the loaded configuration for obviously invalid values,
// wrapping sqlfailover.ErrConfiguration so callers can classify a failed
// run with errors.Is regardless of which layer rejected it. It does not
// check SubscriptionID, which may legitimately be supplied only at
// invocation time.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "Minimal", "Info", "Verbose":
	default:
		return fmt.Errorf("config: invalid logging level %q: %w", c.Logging.Level, sqlfailover.ErrConfiguration)
	}
	if c.Engine.PollInterval <= 0 {
		return fmt.Errorf("config: poll_interval must be positive: %w", sqlfailover.ErrConfiguration)
	}
	if c.Engine.Concurrency < 1 {
		return fmt.Errorf("config: concurrency must be >= 1: %w", sqlfailover.ErrConfiguration)
	}
	return nil
}
