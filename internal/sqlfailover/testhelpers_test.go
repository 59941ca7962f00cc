package sqlfailover

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/clusterops/azsql-bulk-failover/internal/armclient"
)

type fakeCredential struct{}

func (fakeCredential) GetToken(context.Context, policy.TokenRequestOptions) (azcore.AccessToken, error) {
	return azcore.AccessToken{Token: "fake-token", ExpiresOn: time.Now().Add(time.Hour)}, nil
}

// roundTripFunc adapts a function to http.RoundTripper.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// newTestARMClient builds an armclient.Client whose requests are
// transparently redirected to srv, regardless of the management-relative
// path's nominal host.
func newTestARMClient(t *testing.T, srv *httptest.Server) *armclient.Client {
	t.Helper()
	c := armclient.NewClientWithCredential(fakeCredential{}, nil)
	transport := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		u := *req.URL
		target, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
		u.Scheme = target.URL.Scheme
		u.Host = target.URL.Host
		req.URL = &u
		req.Host = target.URL.Host
		return http.DefaultTransport.RoundTrip(req)
	})
	c.SetHTTPClient(&http.Client{Transport: transport})
	return c
}
