package armclient

import (
	"context"
	"encoding/json"
	"fmt"
)

// page mirrors the shape ARM list endpoints return: an item array plus an
// optional absolute nextLink.
type page struct {
	Value    []json.RawMessage `json:"value"`
	NextLink string            `json:"nextLink"`
}

// ListAll walks every page of a paginated list endpoint starting at path
// and returns the concatenated item set (C2, spec §4.2). A non-2xx
// response on any page aborts the listing; no transport retry is
// performed at this layer.
func (c *Client) ListAll(ctx context.Context, method, path string) ([]json.RawMessage, error) {
	var items []json.RawMessage
	next := path

	for next != "" {
		status, _, body, err := c.Do(ctx, method, next, nil)
		if err != nil {
			return nil, fmt.Errorf("armclient: list %s: %w", next, err)
		}
		if !IsSuccess(status) {
			return nil, fmt.Errorf("armclient: list %s: status %d: %s", next, status, body)
		}

		var p page
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, fmt.Errorf("armclient: list %s: decode page: %w", next, err)
		}

		items = append(items, p.Value...)

		if p.NextLink == "" {
			break
		}
		next = ToManagementRelative(p.NextLink)
	}

	return items, nil
}
