package sqlfailover

import (
	"context"
	"fmt"
	"time"

	"github.com/clusterops/azsql-bulk-failover/internal/armclient"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultPollInterval is the sleep between poll sweeps (spec §6).
const DefaultPollInterval = 15 * time.Second

// PreflightFunc is the pluggable predicate checked once before
// Discovery (C7). It returns a non-nil error to abort the run.
type PreflightFunc func(ctx context.Context, subscriptionID string) error

// Orchestrator is the main reconcile loop (C6): initiate pending targets,
// poll in-progress ones, and summarize once every target is terminal.
type Orchestrator struct {
	Client       *armclient.Client
	Logger       *zap.Logger
	PollInterval time.Duration
	Concurrency  int
	Preflight    PreflightFunc
}

// NewOrchestrator builds an Orchestrator with the given dependencies,
// applying the documented defaults for zero-valued fields.
func NewOrchestrator(client *armclient.Client, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		Client:       client,
		Logger:       logger,
		PollInterval: DefaultPollInterval,
		Concurrency:  1,
	}
}

// Summary reports the outcome of one Run: counts by terminal state, total
// elapsed wall-clock time, and (if any target failed) a retry/escalation
// hint.
type Summary struct {
	RunID        string
	Succeeded    int
	Skipped      int
	Failed       int
	Elapsed      time.Duration
	RetryMessage string
}

// Run discovers the target set for (subscriptionID, resourceGroupFilter,
// serverFilter), drives every target to a terminal state, and returns a
// Summary. It completes synchronously (spec §4.6).
func (o *Orchestrator) Run(ctx context.Context, subscriptionID, resourceGroupFilter, serverFilter string) (*Summary, error) {
	runID := uuid.NewString()
	start := time.Now()
	logger := o.Logger.With(zap.String("runID", runID))

	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}

	if ctx.Err() != nil {
		return nil, fmt.Errorf("sqlfailover: %w", ErrCancelled)
	}

	var limiter *rate.Limiter
	if o.Concurrency > 1 {
		limiter = rate.NewLimiter(rate.Limit(o.Concurrency), o.Concurrency)
	}

	if subscriptionID == "*" {
		resolved, err := o.Client.DefaultSubscriptionID(ctx)
		if err != nil {
			return nil, fmt.Errorf("sqlfailover: resolve default subscription: %w", err)
		}
		logger.Info("resolved default subscription", zap.String("subscriptionID", resolved))
		subscriptionID = resolved
	}

	if o.Preflight != nil {
		if err := o.Preflight(ctx, subscriptionID); err != nil {
			return nil, fmt.Errorf("sqlfailover: preflight: %w", err)
		}
	}

	result, err := Discover(ctx, o.Client, logger, subscriptionID, resourceGroupFilter, serverFilter)
	if err != nil {
		return nil, err
	}

	if len(result.Targets) == 0 {
		return nil, &DiscoveryError{
			ResourceGroupFilter: resourceGroupFilter,
			ServerFilter:        serverFilter,
			Reason:              "no failover targets under the effective filter",
		}
	}

	logger.Info("discovery complete", zap.Int("targets", len(result.Targets)))

	for !allTerminal(result.Targets) {
		if ctx.Err() != nil {
			cancelAll(result.Targets)
			break
		}

		pending := byStatus(result.Targets, StatusPending)
		runConcurrent(pending, o.Concurrency, limiter, func(t *Target) {
			Initiate(ctx, o.Client, logger, t)
		})

		if ctx.Err() != nil {
			cancelAll(result.Targets)
			break
		}

		inProgress := byStatus(result.Targets, StatusInProgress)
		if len(inProgress) == 0 {
			continue
		}

		if !sleepOrCancel(ctx, o.PollInterval) {
			cancelAll(result.Targets)
			break
		}

		runConcurrent(inProgress, o.Concurrency, limiter, func(t *Target) {
			Poll(ctx, o.Client, logger, t)
		})
	}

	summary := summarize(result.Targets, runID, time.Since(start))
	logger.Info("run complete",
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Duration("elapsed", summary.Elapsed))

	return summary, nil
}

func allTerminal(targets []*Target) bool {
	for _, t := range targets {
		if !t.Status.IsTerminal() {
			return false
		}
	}
	return true
}

func byStatus(targets []*Target, status Status) []*Target {
	var out []*Target
	for _, t := range targets {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out
}

func cancelAll(targets []*Target) {
	for _, t := range targets {
		Cancel(t)
	}
}

// sleepOrCancel sleeps for d, returning false early if ctx is cancelled
// first.
func sleepOrCancel(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func summarize(targets []*Target, runID string, elapsed time.Duration) *Summary {
	s := &Summary{RunID: runID, Elapsed: elapsed}
	for _, t := range targets {
		switch t.Status {
		case StatusSucceeded:
			s.Succeeded++
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		}
	}
	if s.Failed > 0 {
		s.RetryMessage = fmt.Sprintf(
			"%d target(s) failed to fail over; re-run against the affected resource group/server or escalate", s.Failed)
	}
	return s
}
