// Package armclient is the engine's REST caller (C1): it issues
// authenticated Azure Resource Manager requests and leaves retry and
// status classification to its callers.
package armclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"go.uber.org/zap"
)

// ManagementBase is the fixed ARM origin, stripped from absolute URLs
// (such as a paging nextLink or an Azure-AsyncOperation header) before
// they are re-issued as management-relative paths.
const ManagementBase = "https://management.azure.com"

// managementScope is the token audience for ARM calls.
const managementScope = ManagementBase + "/.default"

// Client issues authenticated management requests. It does not retry and
// does not interpret status codes beyond returning them; that is the
// caller's job (spec §4.1).
type Client struct {
	cred       azcore.TokenCredential
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient builds a Client backed by the ambient managed identity. Tokens
// are requested for the management-plane scope (managementScope), which is
// not tied to any one subscription; the subscription a request acts on is
// the one named in the path the caller passes.
func NewClient(logger *zap.Logger) (*Client, error) {
	cred, err := azidentity.NewManagedIdentityCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("armclient: create managed identity credential: %w", err)
	}
	return newClient(cred, logger), nil
}

// NewClientWithCredential builds a Client around a caller-supplied
// credential, so tests (and non-managed-identity deployments) can
// substitute a fake or a different azcore.TokenCredential implementation.
func NewClientWithCredential(cred azcore.TokenCredential, logger *zap.Logger) *Client {
	return newClient(cred, logger)
}

func newClient(cred azcore.TokenCredential, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cred:       cred,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
	}
}

// Do issues an authenticated request against a management-relative path
// (one starting with "/", such as "/subscriptions/..."). It returns the raw status
// code, response headers, and response body; it never retries and never
// treats a non-2xx status as an error — that classification belongs to
// the caller (Discovery, the LRO tracker).
func (c *Client) Do(ctx context.Context, method, path string, body []byte) (int, http.Header, []byte, error) {
	if !strings.HasPrefix(path, "/") {
		return 0, nil, nil, fmt.Errorf("armclient: path %q must be management-relative", path)
	}

	token, err := c.cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{managementScope}})
	if err != nil {
		return 0, nil, nil, fmt.Errorf("armclient: acquire token: %w", err)
	}

	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, ManagementBase+path, reqBody)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("armclient: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("arm request", zap.String("method", method), zap.String("path", path))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("armclient: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("armclient: read response body: %w", err)
	}

	return resp.StatusCode, resp.Header, respBody, nil
}

// ToManagementRelative reduces an absolute management-plane URL (such as a
// nextLink or an Azure-AsyncOperation header value) to a management-
// relative path by stripping ManagementBase. URLs that are already
// relative are returned unchanged.
func ToManagementRelative(url string) string {
	return strings.TrimPrefix(url, ManagementBase)
}

// IsSuccess reports whether status is a 2xx response.
func IsSuccess(status int) bool {
	return status >= 200 && status < 300
}

// SetHTTPClient overrides the underlying *http.Client, so tests outside
// this package can redirect requests to an httptest.Server.
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}
