package armclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCredential satisfies azcore.TokenCredential without ever contacting
// Azure AD, so tests exercise Client.Do against an httptest.Server.
type fakeCredential struct{}

func (fakeCredential) GetToken(context.Context, policy.TokenRequestOptions) (azcore.AccessToken, error) {
	return azcore.AccessToken{Token: "fake-token", ExpiresOn: time.Now().Add(time.Hour)}, nil
}

func TestClient_Do_AttachesBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"value":[]}`))
	}))
	defer srv.Close()

	c := NewClientWithCredential(fakeCredential{}, nil)
	// Redirect ManagementBase-prefixed requests to the test server by
	// overriding the HTTP transport's target via a custom RoundTripper.
	c.httpClient = &http.Client{Transport: rewriteHostTransport(srv.URL)}

	status, _, _, err := c.Do(context.Background(), http.MethodGet, "/subscriptions/sub1/resourcegroups", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Bearer fake-token", gotAuth)
}

func TestClient_Do_RejectsNonRelativePath(t *testing.T) {
	c := NewClientWithCredential(fakeCredential{}, nil)
	_, _, _, err := c.Do(context.Background(), http.MethodGet, "https://management.azure.com/x", nil)
	assert.Error(t, err)
}

func TestToManagementRelative(t *testing.T) {
	assert.Equal(t, "/subscriptions/x/y", ToManagementRelative("https://management.azure.com/subscriptions/x/y"))
	assert.Equal(t, "/already/relative", ToManagementRelative("/already/relative"))
}

func TestIsSuccess(t *testing.T) {
	assert.True(t, IsSuccess(200))
	assert.True(t, IsSuccess(202))
	assert.False(t, IsSuccess(301))
	assert.False(t, IsSuccess(404))
}

// rewriteHostTransport rewrites every outbound request's scheme+host to
// target's, so a Client built against the real ManagementBase constant
// can be driven against an httptest.Server in-process.
func rewriteHostTransport(target string) http.RoundTripper {
	return roundTripFunc(func(req *http.Request) (*http.Response, error) {
		u := *req.URL
		tu, _ := http.NewRequest(http.MethodGet, target, nil)
		u.Scheme = tu.URL.Scheme
		u.Host = tu.URL.Host
		req.URL = &u
		req.Host = tu.URL.Host
		return http.DefaultTransport.RoundTrip(req)
	})
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestListAll_Pagination(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(r.URL.Path, "page2") {
			_, _ = w.Write([]byte(`{"value":[{"name":"item2"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"value":[{"name":"item1"}],"nextLink":"https://management.azure.com/page2"}`))
	}))
	defer srv.Close()

	c := NewClientWithCredential(fakeCredential{}, nil)
	c.httpClient = &http.Client{Transport: rewriteHostTransport(srv.URL)}

	items, err := c.ListAll(context.Background(), http.MethodGet, "/page1")
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 2, calls)
}

func TestListAll_NonSuccessAborts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`boom`))
	}))
	defer srv.Close()

	c := NewClientWithCredential(fakeCredential{}, nil)
	c.httpClient = &http.Client{Transport: rewriteHostTransport(srv.URL)}

	_, err := c.ListAll(context.Background(), http.MethodGet, "/page1")
	assert.Error(t, err)
}

func TestDefaultSubscriptionID_ReturnsFirstEnabled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"value":[
			{"subscriptionId":"disabled-1","state":"Disabled"},
			{"subscriptionId":"enabled-1","state":"Enabled"},
			{"subscriptionId":"enabled-2","state":"Enabled"}
		]}`))
	}))
	defer srv.Close()

	c := NewClientWithCredential(fakeCredential{}, nil)
	c.httpClient = &http.Client{Transport: rewriteHostTransport(srv.URL)}

	id, err := c.DefaultSubscriptionID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "enabled-1", id)
}

func TestDefaultSubscriptionID_NoneEnabled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"value":[{"subscriptionId":"disabled-1","state":"Disabled"}]}`))
	}))
	defer srv.Close()

	c := NewClientWithCredential(fakeCredential{}, nil)
	c.httpClient = &http.Client{Transport: rewriteHostTransport(srv.URL)}

	_, err := c.DefaultSubscriptionID(context.Background())
	assert.Error(t, err)
}
