package armclient

import (
	"context"
	"encoding/json"
	"fmt"
)

const subscriptionsAPIVersion = "2020-01-01"

// subscriptionListing is the subset of a subscription listing entry's
// JSON shape needed to pick a default.
type subscriptionListing struct {
	SubscriptionID string `json:"subscriptionId"`
	State          string `json:"state"`
}

// DefaultSubscriptionID resolves the literal "*" subscription id (spec
// §4.4) to the caller's default subscription: the first Enabled
// subscription visible to the ambient credential, per
// `/subscriptions?api-version=2020-01-01`.
func (c *Client) DefaultSubscriptionID(ctx context.Context) (string, error) {
	entries, err := c.ListAll(ctx, "GET", "/subscriptions?api-version="+subscriptionsAPIVersion)
	if err != nil {
		return "", fmt.Errorf("armclient: list subscriptions: %w", err)
	}

	for _, entry := range entries {
		var s subscriptionListing
		if err := json.Unmarshal(entry, &s); err != nil {
			return "", fmt.Errorf("armclient: decode subscription listing: %w", err)
		}
		if s.State == "Enabled" {
			return s.SubscriptionID, nil
		}
	}

	return "", fmt.Errorf("armclient: no enabled subscription visible to the caller")
}
