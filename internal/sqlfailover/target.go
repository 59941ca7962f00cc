// Package sqlfailover implements the bulk failover engine: the resource
// model, discovery, per-target LRO tracking, and the orchestrator that
// drives targets to a terminal state.
package sqlfailover

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind distinguishes the two failover unit shapes. Behavior differs only
// in how resourceId and eligibility are derived (spec §9) — there is no
// inheritance hierarchy, just a small tagged variant.
type Kind string

const (
	KindDatabase    Kind = "database"
	KindElasticPool Kind = "elasticPool"
)

// Status is a target's position in the LRO state machine (spec §4.5).
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "InProgress"
	StatusSucceeded  Status = "Succeeded"
	StatusSkipped    Status = "Skipped"
	StatusFailed     Status = "Failed"
)

// IsTerminal reports whether s is one of the three terminal states.
func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusSkipped || s == StatusFailed
}

const failoverAPIVersion = "2021-02-01-preview"

// Server is the immutable (subscriptionId, resourceGroupName, name) triple
// identifying a logical server, derived from a management resource id by
// positional parsing.
type Server struct {
	SubscriptionID    string
	ResourceGroupName string
	Name              string
}

// ParseServerID derives a Server from a management resource id of the
// form /subscriptions/<s>/resourcegroups/<rg>/.../servers/<name>.
func ParseServerID(resourceID string) (Server, error) {
	parts := strings.Split(strings.Trim(resourceID, "/"), "/")
	var s Server
	for i := 0; i+1 < len(parts); i++ {
		switch strings.ToLower(parts[i]) {
		case "subscriptions":
			s.SubscriptionID = parts[i+1]
		case "resourcegroups":
			s.ResourceGroupName = parts[i+1]
		case "servers":
			s.Name = parts[i+1]
		}
	}
	if s.SubscriptionID == "" || s.ResourceGroupName == "" || s.Name == "" {
		return Server{}, fmt.Errorf("sqlfailover: cannot parse server from resource id %q", resourceID)
	}
	return s, nil
}

// Target is one failover unit: a standalone database or an elastic pool.
// An elastic pool is one target regardless of how many databases it
// contains.
type Target struct {
	Server         *Server
	Kind           Kind
	Name           string
	ResourceID     string
	ShouldFailover bool
	Status         Status
	StatusPath     string
	Message        string
}

// FailoverPath is the management-relative path the orchestrator POSTs to
// initiate failover.
func (t *Target) FailoverPath() string {
	return fmt.Sprintf("%s/failover?api-version=%s", t.ResourceID, failoverAPIVersion)
}

// databaseListing is the subset of a database listing entry's JSON shape
// that drives target construction and eligibility classification.
type databaseListing struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Properties struct {
		CurrentSku struct {
			Tier string `json:"tier"`
		} `json:"currentSku"`
		Status        string  `json:"status"`
		ElasticPoolID *string `json:"elasticPoolId"`
	} `json:"properties"`
}

// elasticPoolListing is the subset of a pool listing entry's JSON shape
// used to construct a pool target.
type elasticPoolListing struct {
	Name string `json:"name"`
}

// NewDatabaseTarget constructs a database target from one JSON listing
// entry. shouldFailover is evaluated exactly once here, from the initial
// listing payload (spec invariant 4): it is true iff the current SKU tier
// is not Hyperscale and the reported status is Online.
func NewDatabaseTarget(server *Server, entry json.RawMessage) (*Target, error) {
	var d databaseListing
	if err := json.Unmarshal(entry, &d); err != nil {
		return nil, fmt.Errorf("sqlfailover: decode database listing: %w", err)
	}

	shouldFailover := d.Properties.CurrentSku.Tier != "Hyperscale" && d.Properties.Status == "Online"

	return &Target{
		Server:         server,
		Kind:           KindDatabase,
		Name:           d.Name,
		ResourceID:     d.ID,
		ShouldFailover: shouldFailover,
		Status:         StatusPending,
	}, nil
}

// DatabasePoolID returns the elastic pool resource id a database listing
// entry belongs to, or "" if the database is standalone. Discovery uses
// this to skip databases whose owning pool is already a target.
func DatabasePoolID(entry json.RawMessage) (string, error) {
	var d databaseListing
	if err := json.Unmarshal(entry, &d); err != nil {
		return "", fmt.Errorf("sqlfailover: decode database listing: %w", err)
	}
	if d.Properties.ElasticPoolID == nil {
		return "", nil
	}
	return *d.Properties.ElasticPoolID, nil
}

// NewElasticPoolTarget constructs a pool target. Pools are always
// eligible for failover (spec §4.3).
func NewElasticPoolTarget(server *Server, entry json.RawMessage) (*Target, error) {
	var p elasticPoolListing
	if err := json.Unmarshal(entry, &p); err != nil {
		return nil, fmt.Errorf("sqlfailover: decode elastic pool listing: %w", err)
	}

	resourceID := fmt.Sprintf(
		"/subscriptions/%s/resourcegroups/%s/providers/Microsoft.Sql/servers/%s/elasticpools/%s",
		server.SubscriptionID, server.ResourceGroupName, server.Name, p.Name,
	)

	return &Target{
		Server:         server,
		Kind:           KindElasticPool,
		Name:           p.Name,
		ResourceID:     resourceID,
		ShouldFailover: true,
		Status:         StatusPending,
	}, nil
}
