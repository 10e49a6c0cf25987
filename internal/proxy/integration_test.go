package proxy

import (
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iTrooz/fetch-cache/internal/cache"
	"github.com/iTrooz/fetch-cache/internal/config"
	"github.com/iTrooz/fetch-cache/internal/fetch"
)

// fixtureUpstream creates a test upstream server counting the requests it receives
func fixtureUpstream(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	hits := &atomic.Int64{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, requ *http.Request) {
		hits.Add(1)
		if requ.URL.Path == "/missing" {
			http.Error(w, "gone fishing", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"message": "Hello from upstream", "path": "` + requ.URL.Path + `"}`))
	}))
	t.Cleanup(server.Close)
	return server, hits
}

// fixtureProxy starts the caching proxy and returns a client routed through it
func fixtureProxy(t *testing.T, rules config.RulesConfig) *http.Client {
	t.Helper()
	cfg := config.Default()
	cfg.Cache.Folder = t.TempDir()
	cfg.Rules = rules

	manager := cache.New(cfg.Cache.Folder, cache.WithFetcher(fetch.NewExecutor()))
	server, err := New(cfg, manager, nil)
	require.NoError(t, err)

	proxyTestServer := httptest.NewServer(server.GetProxy())
	t.Cleanup(proxyTestServer.Close)

	proxyURL, err := url.Parse(proxyTestServer.URL)
	require.NoError(t, err)
	return &http.Client{
		Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
		Timeout:   10 * time.Second,
	}
}

func get(t *testing.T, client *http.Client, target string, header http.Header) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, target, nil)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestProxyIntegration(t *testing.T) {
	upstream, hits := fixtureUpstream(t)
	client := fixtureProxy(t, config.RulesConfig{Mode: "blacklist"})

	t.Run("first request - cache miss", func(t *testing.T) {
		resp, body := get(t, client, upstream.URL+"/test", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "MISS", resp.Header.Get("X-Cache"))
		assert.Contains(t, body, "Hello from upstream")
	})

	t.Run("second request - cache hit", func(t *testing.T) {
		resp, body := get(t, client, upstream.URL+"/test", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "HIT", resp.Header.Get("X-Cache"))
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		assert.Contains(t, body, "Hello from upstream")
		assert.Equal(t, int64(1), hits.Load())
	})

	t.Run("no-cache forces a refetch", func(t *testing.T) {
		resp, _ := get(t, client, upstream.URL+"/test", http.Header{"Cache-Control": []string{"no-cache"}})
		assert.Equal(t, "MISS", resp.Header.Get("X-Cache"))
		assert.Equal(t, int64(2), hits.Load())
	})

	t.Run("upstream errors are relayed", func(t *testing.T) {
		resp, body := get(t, client, upstream.URL+"/missing", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "MISS", resp.Header.Get("X-Cache"))
		assert.Equal(t, "gone fishing", strings.TrimSpace(body))
	})

	t.Run("non-GET requests pass through", func(t *testing.T) {
		before := hits.Load()
		for i := 0; i < 2; i++ {
			resp, err := client.Post(upstream.URL+"/test", "text/plain", strings.NewReader("x"))
			require.NoError(t, err)
			_ = resp.Body.Close()
			assert.Empty(t, resp.Header.Get("X-Cache"))
		}
		assert.Equal(t, before+2, hits.Load())
	})
}

func TestProxyIntegrationWithWhitelist(t *testing.T) {
	upstream, hits := fixtureUpstream(t)
	client := fixtureProxy(t, config.RulesConfig{
		Mode: "whitelist",
		Rules: []config.CacheRule{
			{BaseURI: upstream.URL + "/cached", Methods: []string{"GET"}},
		},
	})

	get(t, client, upstream.URL+"/cached/a", nil)
	resp, _ := get(t, client, upstream.URL+"/cached/a", nil)
	assert.Equal(t, "HIT", resp.Header.Get("X-Cache"))

	get(t, client, upstream.URL+"/other", nil)
	resp, _ = get(t, client, upstream.URL+"/other", nil)
	assert.Empty(t, resp.Header.Get("X-Cache"), "requests outside the whitelist are not cached")

	assert.Equal(t, int64(3), hits.Load())
}

func TestProxyTransportFailure(t *testing.T) {
	client := fixtureProxy(t, config.RulesConfig{Mode: "blacklist"})

	// Grab a free port, then close the listener so nothing answers on it
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	resp, _ := get(t, client, "http://"+addr+"/nothing", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}
