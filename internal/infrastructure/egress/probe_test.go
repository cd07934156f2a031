package egress

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/domain"
)

func TestCheckThroughHTTPProxy(t *testing.T) {
	hosts := make(chan string, 1)
	proxyServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hosts <- r.Host
		w.WriteHeader(http.StatusNoContent)
	}))
	defer proxyServer.Close()

	prober := NewProber("http://portal.ccl.example/", time.Second, 1)
	result := prober.Check(context.Background(), domain.ProxyResource{ID: "px-1", RegionKey: "JAL", Endpoint: proxyServer.URL})

	require.NoError(t, result.Err)
	assert.True(t, result.Reachable)
	assert.Equal(t, "portal.ccl.example", <-hosts)
}

func TestCheckRejectsProxyAuthFailure(t *testing.T) {
	proxyServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusProxyAuthRequired)
	}))
	defer proxyServer.Close()

	prober := NewProber("http://portal.ccl.example/", time.Second, 1)
	result := prober.Check(context.Background(), domain.ProxyResource{ID: "px-1", Endpoint: proxyServer.URL})

	assert.False(t, result.Reachable)
	assert.ErrorContains(t, result.Err, "status 407")
}

func TestCheckUnsupportedScheme(t *testing.T) {
	prober := NewProber("http://portal.ccl.example/", time.Second, 1)
	result := prober.Check(context.Background(), domain.ProxyResource{ID: "px-1", Endpoint: "ftp://10.0.0.1:21"})

	assert.False(t, result.Reachable)
	assert.ErrorContains(t, result.Err, "unsupported proxy scheme")
}

func TestCheckAllKeepsOrder(t *testing.T) {
	proxyServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer proxyServer.Close()

	prober := NewProber("http://portal.ccl.example/", time.Second, 2)
	results, err := prober.CheckAll(context.Background(), []domain.ProxyResource{
		{ID: "px-1", Endpoint: proxyServer.URL},
		{ID: "px-2", Endpoint: "not a url"},
		{ID: "px-3", Endpoint: proxyServer.URL},
	})

	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.True(t, results[0].Reachable)
	assert.False(t, results[1].Reachable)
	assert.Equal(t, "px-3", results[2].ProxyID)
	assert.True(t, results[2].Reachable)
}
