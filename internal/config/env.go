package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML config file, applies defaults, overlays environment
// variables, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	LoadFromEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromEnv loads configuration overrides from environment variables.
// Environment values take precedence over the file, matching how the
// engine is normally invoked from a runbook rather than a checked-in file.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("AZSQLFAILOVER_SUBSCRIPTION_ID"); v != "" {
		cfg.Engine.SubscriptionID = v
	}
	if v := os.Getenv("AZSQLFAILOVER_RESOURCE_GROUP_FILTER"); v != "" {
		cfg.Engine.ResourceGroupFilter = v
	}
	if v := os.Getenv("AZSQLFAILOVER_SERVER_FILTER"); v != "" {
		cfg.Engine.ServerFilter = v
	}
	if v := os.Getenv("AZSQLFAILOVER_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Engine.PollInterval = d
		}
	}
	if v := os.Getenv("AZSQLFAILOVER_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.Concurrency = n
		}
	}
	if v := os.Getenv("AZSQLFAILOVER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("AZSQLFAILOVER_CHECK_MAINTENANCE_NOTIFICATION"); v != "" {
		cfg.Preflight.CheckPlannedMaintenanceNotification = v == "true" || v == "1"
	}
}
