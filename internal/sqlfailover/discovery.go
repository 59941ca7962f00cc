package sqlfailover

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/clusterops/azsql-bulk-failover/internal/armclient"
	"go.uber.org/zap"
)

const sqlAPIVersion = "2021-02-01-preview"

// resourceGroupListing and serverListing are the subsets of ARM listing
// JSON shapes Discovery needs.
type resourceGroupListing struct {
	Name string `json:"name"`
}

type serverListing struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ServerSummary records, per retained server, the shape of its discovered
// resources — a supplement to spec.md used only for the per-server debug
// log line Discover emits (SPEC_FULL §5); it never changes the target set.
type ServerSummary struct {
	Server              Server
	PoolCount           int
	DatabaseCount       int
	SkippedViaPoolCount int
}

// DiscoveryResult is the output of a Discovery pass.
type DiscoveryResult struct {
	Targets []*Target
	Servers []ServerSummary
}

// Discover turns a (subscription, resource-group filter, server filter)
// request into the enumerated set of failover targets (spec §4.4).
func Discover(ctx context.Context, client *armclient.Client, logger *zap.Logger, subscriptionID, resourceGroupFilter, serverFilter string) (*DiscoveryResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if subscriptionID == "*" {
		resolved, err := client.DefaultSubscriptionID(ctx)
		if err != nil {
			return nil, fmt.Errorf("sqlfailover: resolve default subscription: %w", err)
		}
		subscriptionID = resolved
	}

	groups, err := resolveResourceGroups(ctx, client, subscriptionID, resourceGroupFilter)
	if err != nil {
		return nil, fmt.Errorf("sqlfailover: list resource groups: %w", err)
	}

	wantServers := parseServerFilter(serverFilter)

	var servers []Server
	for _, rg := range groups {
		path := fmt.Sprintf("/subscriptions/%s/resourcegroups/%s/providers/Microsoft.Sql/servers?api-version=%s",
			subscriptionID, rg, sqlAPIVersion)

		entries, err := client.ListAll(ctx, "GET", path)
		if err != nil {
			return nil, fmt.Errorf("sqlfailover: list servers in %s: %w", rg, err)
		}

		for _, entry := range entries {
			var s serverListing
			if err := json.Unmarshal(entry, &s); err != nil {
				return nil, fmt.Errorf("sqlfailover: decode server listing: %w", err)
			}
			if !serverMatches(s.Name, wantServers) {
				continue
			}
			srv, err := ParseServerID(s.ID)
			if err != nil {
				return nil, err
			}
			servers = append(servers, srv)
		}
	}

	if len(servers) == 0 {
		return nil, &DiscoveryError{
			ResourceGroupFilter: resourceGroupFilter,
			ServerFilter:        serverFilter,
			Reason:              "no logical servers matched the effective filter",
		}
	}

	var targets []*Target
	var summaries []ServerSummary

	for _, srv := range servers {
		srv := srv
		summary := ServerSummary{Server: srv}

		poolPath := fmt.Sprintf(
			"/subscriptions/%s/resourcegroups/%s/providers/Microsoft.Sql/servers/%s/elasticpools?api-version=%s",
			srv.SubscriptionID, srv.ResourceGroupName, srv.Name, sqlAPIVersion)
		pools, err := client.ListAll(ctx, "GET", poolPath)
		if err != nil {
			return nil, fmt.Errorf("sqlfailover: list elastic pools for %s: %w", srv.Name, err)
		}
		for _, entry := range pools {
			target, err := NewElasticPoolTarget(&srv, entry)
			if err != nil {
				return nil, err
			}
			targets = append(targets, target)
			summary.PoolCount++
		}

		dbPath := fmt.Sprintf(
			"/subscriptions/%s/resourcegroups/%s/providers/Microsoft.Sql/servers/%s/databases?api-version=%s",
			srv.SubscriptionID, srv.ResourceGroupName, srv.Name, sqlAPIVersion)
		dbs, err := client.ListAll(ctx, "GET", dbPath)
		if err != nil {
			return nil, fmt.Errorf("sqlfailover: list databases for %s: %w", srv.Name, err)
		}
		for _, entry := range dbs {
			poolID, err := DatabasePoolID(entry)
			if err != nil {
				return nil, err
			}
			if poolID != "" {
				summary.SkippedViaPoolCount++
				continue
			}
			target, err := NewDatabaseTarget(&srv, entry)
			if err != nil {
				return nil, err
			}
			targets = append(targets, target)
			summary.DatabaseCount++
		}

		summaries = append(summaries, summary)
		logger.Debug("discovered server",
			zap.String("server", srv.Name),
			zap.Int("pools", summary.PoolCount),
			zap.Int("databases", summary.DatabaseCount),
			zap.Int("skippedViaPool", summary.SkippedViaPoolCount))
	}

	return &DiscoveryResult{Targets: targets, Servers: summaries}, nil
}

func resolveResourceGroups(ctx context.Context, client *armclient.Client, subscriptionID, filter string) ([]string, error) {
	if filter != "" && filter != "*" {
		return []string{filter}, nil
	}

	path := fmt.Sprintf("/subscriptions/%s/resourcegroups?api-version=2021-04-01", subscriptionID)
	entries, err := client.ListAll(ctx, "GET", path)
	if err != nil {
		return nil, err
	}

	groups := make([]string, 0, len(entries))
	for _, entry := range entries {
		var rg resourceGroupListing
		if err := json.Unmarshal(entry, &rg); err != nil {
			return nil, fmt.Errorf("sqlfailover: decode resource group listing: %w", err)
		}
		groups = append(groups, rg.Name)
	}
	return groups, nil
}

// parseServerFilter interprets serverFilter as a comma-separated,
// trimmed list of server names, or nil for "include every server"
// (empty or "*"). The match is exact, not case-folded (spec §4.4).
func parseServerFilter(filter string) map[string]bool {
	if filter == "" || filter == "*" {
		return nil
	}
	want := make(map[string]bool)
	for _, name := range strings.Split(filter, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			want[name] = true
		}
	}
	return want
}

func serverMatches(name string, want map[string]bool) bool {
	if want == nil {
		return true
	}
	return want[name]
}
