package sqlfailover

import "fmt"

// Error kinds that abort a run (spec §7, classes 1-3 and 7). Per-target
// failures (classes 4-6) are never surfaced as errors; they are recorded
// on the target's Message field instead, so one bad resource cannot abort
// the rest of the run.
//
// ErrConfiguration is wrapped by internal/config.Validate, ErrPreflight by
// internal/preflight.Error, and ErrDiscovery by DiscoveryError below, so a
// caller can classify a failed run with errors.Is regardless of which
// package actually produced it.
var (
	ErrConfiguration = fmt.Errorf("sqlfailover: configuration error")
	ErrPreflight     = fmt.Errorf("sqlfailover: preflight error")
	ErrDiscovery     = fmt.Errorf("sqlfailover: discovery error")
	ErrCancelled     = fmt.Errorf("sqlfailover: run cancelled")
)

// DiscoveryError wraps ErrDiscovery with the effective filter that
// produced an empty retained server set (Discover) or an empty target set
// (Orchestrator.Run).
type DiscoveryError struct {
	ResourceGroupFilter string
	ServerFilter        string
	Reason              string
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("sqlfailover: discovery failed (resourceGroupFilter=%q serverFilter=%q): %s",
		e.ResourceGroupFilter, e.ServerFilter, e.Reason)
}

func (e *DiscoveryError) Unwrap() error { return ErrDiscovery }
