package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/clusterops/azsql-bulk-failover/internal/armclient"
	"github.com/clusterops/azsql-bulk-failover/internal/sqlfailover"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCredential struct{}

func (fakeCredential) GetToken(context.Context, policy.TokenRequestOptions) (azcore.AccessToken, error) {
	return azcore.AccessToken{Token: "fake-token", ExpiresOn: time.Now().Add(time.Hour)}, nil
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func newTestClient(srv *httptest.Server) *armclient.Client {
	c := armclient.NewClientWithCredential(fakeCredential{}, nil)
	c.SetHTTPClient(&http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		u := *req.URL
		target, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
		u.Scheme = target.URL.Scheme
		u.Host = target.URL.Host
		req.URL = &u
		req.Host = target.URL.Host
		return http.DefaultTransport.RoundTrip(req)
	})})
	return c
}

func TestCheck_Found(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[
			{"trackingId":"TRACK-OLD","summary":"azsqlcmwselfservicemaint window","status":"Active","lastUpdateTime":"2026-01-01T00:00:00Z"},
			{"trackingId":"TRACK-NEW","summary":"azsqlcmwselfservicemaint window 2","status":"Active","lastUpdateTime":"2026-02-01T00:00:00Z"}
		]}`))
	}))
	defer srv.Close()

	trackingID, err := Check(context.Background(), newTestClient(srv), nil, "S")
	require.NoError(t, err)
	assert.Equal(t, "TRACK-NEW", trackingID)
}

func TestCheck_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"trackingId":"X","summary":"unrelated maintenance","status":"Active"}]}`))
	}))
	defer srv.Close()

	_, err := Check(context.Background(), newTestClient(srv), nil, "S")
	var preflightErr *Error
	require.ErrorAs(t, err, &preflightErr)
	assert.Equal(t, "S", preflightErr.SubscriptionID)
	assert.ErrorIs(t, err, sqlfailover.ErrPreflight)
}

func TestCheck_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := Check(context.Background(), newTestClient(srv), nil, "S")
	assert.Error(t, err)
}
