// cmd/azsqlfailover/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/clusterops/azsql-bulk-failover/internal/armclient"
	"github.com/clusterops/azsql-bulk-failover/internal/config"
	"github.com/clusterops/azsql-bulk-failover/internal/logging"
	"github.com/clusterops/azsql-bulk-failover/internal/preflight"
	"github.com/clusterops/azsql-bulk-failover/internal/sqlfailover"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional; environment variables always take precedence)")
	subscriptionID := flag.String("subscription", "", "subscription id, or * for the caller's default subscription")
	resourceGroupFilter := flag.String("resource-group", "", "resource group name, or * for all groups (default: config/env value, else *)")
	serverFilter := flag.String("server", "", "comma-separated logical server names, or * for all servers (default: config/env value, else *)")
	flag.Parse()

	cfg := &config.Config{}
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		cfg = loaded
	} else {
		cfg.ApplyDefaults()
		config.LoadFromEnv(cfg)
	}

	if *subscriptionID != "" {
		cfg.Engine.SubscriptionID = *subscriptionID
	}
	if *resourceGroupFilter != "" {
		cfg.Engine.ResourceGroupFilter = *resourceGroupFilter
	}
	if *serverFilter != "" {
		cfg.Engine.ServerFilter = *serverFilter
	}

	if cfg.Engine.SubscriptionID == "" {
		fmt.Fprintln(os.Stderr, "azsqlfailover: -subscription (or AZSQLFAILOVER_SUBSCRIPTION_ID) is required")
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	client, err := armclient.NewClient(logger)
	if err != nil {
		logger.Fatal("failed to build ARM client", zap.Error(err))
	}

	orchestrator := sqlfailover.NewOrchestrator(client, logger)
	orchestrator.PollInterval = cfg.Engine.PollInterval
	orchestrator.Concurrency = cfg.Engine.Concurrency
	if cfg.Preflight.CheckPlannedMaintenanceNotification {
		orchestrator.Preflight = func(ctx context.Context, subscriptionID string) error {
			_, err := preflight.Check(ctx, client, logger, subscriptionID)
			return err
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	summary, err := orchestrator.Run(ctx, cfg.Engine.SubscriptionID, cfg.Engine.ResourceGroupFilter, cfg.Engine.ServerFilter)
	if err != nil {
		logger.Fatal("run failed", zap.Error(err))
	}

	logger.Info("bulk failover complete",
		zap.String("runID", summary.RunID),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Duration("elapsed", summary.Elapsed))

	if summary.RetryMessage != "" {
		logger.Warn(summary.RetryMessage)
	}

	if summary.Failed > 0 {
		os.Exit(1)
	}
}
