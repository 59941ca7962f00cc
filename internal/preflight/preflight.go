// Package preflight implements the optional self-service maintenance
// notification gate (C7): before the orchestrator runs, check that an
// active planned-maintenance notification exists for the subscription.
package preflight

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/clusterops/azsql-bulk-failover/internal/armclient"
	"github.com/clusterops/azsql-bulk-failover/internal/sqlfailover"
	"go.uber.org/zap"
)

// SelfServiceMaintenanceToken is the marker the engine looks for in an
// active planned-maintenance event's summary (spec §4.7).
const SelfServiceMaintenanceToken = "azsqlcmwselfservicemaint"

const resourceGraphPath = "/providers/Microsoft.ResourceGraph/resources?api-version=2021-03-01"

// Error is returned when the check is enabled and no matching
// notification is found.
type Error struct {
	SubscriptionID string
}

func (e *Error) Error() string {
	return fmt.Sprintf("preflight: no active self-service maintenance notification found for subscription %s", e.SubscriptionID)
}

func (e *Error) Unwrap() error { return sqlfailover.ErrPreflight }

type resourceGraphQuery struct {
	Subscriptions []string `json:"subscriptions"`
	Query         string   `json:"query"`
}

type resourceGraphResponse struct {
	Data []struct {
		TrackingID string    `json:"trackingId"`
		Summary    string    `json:"summary"`
		Status     string    `json:"status"`
		LastUpdate time.Time `json:"lastUpdateTime"`
	} `json:"data"`
}

// query is the Resource Graph KQL that selects active planned-maintenance
// events for the subscription; it is intentionally simple since the
// result is filtered again client-side on the self-service token.
const query = `
ServiceHealthResources
| where type =~ "Microsoft.ResourceHealth/events"
| where properties.EventType =~ "PlannedMaintenance"
| where properties.Status =~ "Active"
`

// Check queries the administrative service-health view for an active
// planned-maintenance event whose summary contains
// SelfServiceMaintenanceToken, scoped to subscriptionID. It returns the
// most recent matching tracking id, or an *Error if none is found.
func Check(ctx context.Context, client *armclient.Client, logger *zap.Logger, subscriptionID string) (string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	body, err := json.Marshal(resourceGraphQuery{
		Subscriptions: []string{subscriptionID},
		Query:         query,
	})
	if err != nil {
		return "", fmt.Errorf("preflight: build query: %w", err)
	}

	status, _, respBody, err := client.Do(ctx, "POST", resourceGraphPath, body)
	if err != nil {
		return "", fmt.Errorf("preflight: query resource graph: %w", err)
	}
	if !armclient.IsSuccess(status) {
		return "", fmt.Errorf("preflight: resource graph query failed: status %d: %s", status, respBody)
	}

	var resp resourceGraphResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("preflight: decode resource graph response: %w", err)
	}

	var matches []string
	var latest time.Time
	var trackingID string
	for _, row := range resp.Data {
		if !strings.Contains(row.Summary, SelfServiceMaintenanceToken) {
			continue
		}
		matches = append(matches, row.TrackingID)
		if len(matches) == 1 || row.LastUpdate.After(latest) {
			latest = row.LastUpdate
			trackingID = row.TrackingID
		}
	}

	if trackingID == "" {
		logger.Warn("no active self-service maintenance notification found", zap.String("subscriptionID", subscriptionID))
		return "", &Error{SubscriptionID: subscriptionID}
	}

	logger.Info("self-service maintenance notification active",
		zap.String("subscriptionID", subscriptionID),
		zap.String("trackingId", trackingID),
		zap.Int("matchCount", len(matches)))

	return trackingID, nil
}
