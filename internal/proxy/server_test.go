package proxy

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iTrooz/fetch-cache/internal/cache"
	"github.com/iTrooz/fetch-cache/internal/config"
	"github.com/iTrooz/fetch-cache/internal/fetch"
)

func TestNew(t *testing.T) {
	cfg := &config.Config{
		Cache: config.CacheConfig{Folder: t.TempDir()},
		Rules: config.RulesConfig{Mode: "whitelist"},
	}

	server, err := New(cfg, cache.New(cfg.Cache.Folder), nil)
	require.NoError(t, err)
	assert.NotNil(t, server.GetProxy())
}

func TestNewRejectsBadRequestOptions(t *testing.T) {
	cfg := &config.Config{Request: config.RequestConfig{Delay: "later"}}

	_, err := New(cfg, cache.New(t.TempDir()), nil)
	assert.Error(t, err)
}

func TestConfigRuleMatch(t *testing.T) {
	rule := &ConfigRule{
		CacheRule: config.CacheRule{
			BaseURI: "https://api.example.com",
			Methods: []string{"GET", "head"},
		},
	}

	tests := []struct {
		name      string
		targetURL string
		method    string
		want      bool
	}{
		{name: "matching URL and method", targetURL: "https://api.example.com/users", method: "GET", want: true},
		{name: "method is case insensitive", targetURL: "https://api.example.com/users", method: "HEAD", want: true},
		{name: "non-matching method", targetURL: "https://api.example.com/users", method: "DELETE", want: false},
		{name: "non-matching URL", targetURL: "https://other.example.com/users", method: "GET", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rule.Match(tt.targetURL, tt.method); got != tt.want {
				t.Errorf("ConfigRule.Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfigRuleWithoutMethodsMatchesAll(t *testing.T) {
	rule := &ConfigRule{CacheRule: config.CacheRule{BaseURI: "http://host"}}
	assert.True(t, rule.Match("http://host/x", "PATCH"))
}

func TestShouldBeCached(t *testing.T) {
	rules := []config.CacheRule{{BaseURI: "https://example.com", Methods: []string{"GET"}}}

	whitelist := &Server{config: &config.Config{Rules: config.RulesConfig{Mode: "whitelist"}}, rules: buildRules(config.RulesConfig{Rules: rules})}
	assert.True(t, whitelist.shouldBeCached("https://example.com/a", "GET"))
	assert.False(t, whitelist.shouldBeCached("https://other.com/a", "GET"))

	blacklist := &Server{config: &config.Config{Rules: config.RulesConfig{Mode: "blacklist"}}, rules: buildRules(config.RulesConfig{Rules: rules})}
	assert.False(t, blacklist.shouldBeCached("https://example.com/a", "GET"))
	assert.True(t, blacklist.shouldBeCached("https://other.com/a", "GET"))
}

func TestGetTargetURL(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "http://example.com/path?q=1", nil)
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/path?q=1", getTargetURL(req))

	relative, err := http.NewRequest(http.MethodGet, "/path", nil)
	require.NoError(t, err)
	relative.URL.Scheme, relative.URL.Host = "", ""
	relative.Host = "example.com"
	assert.Equal(t, "http://example.com/path", getTargetURL(relative))
}

func TestToHTTPResponseStripsHopByHop(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "http://example.com/", nil)
	require.NoError(t, err)

	out := toHTTPResponse(req, &fetch.Response{
		Status: http.StatusTeapot,
		URL:    "http://example.com/",
		Headers: http.Header{
			"Connection":     []string{"keep-alive"},
			"Content-Length": []string{"999"},
			"X-Kept":         []string{"yes"},
		},
		Body: []byte("short and stout"),
	})

	assert.Equal(t, http.StatusTeapot, out.StatusCode)
	assert.Equal(t, "418 I'm a teapot", out.Status)
	assert.Equal(t, int64(len("short and stout")), out.ContentLength)
	assert.Empty(t, out.Header.Get("Connection"))
	assert.Empty(t, out.Header.Get("Content-Length"))
	assert.Equal(t, "yes", out.Header.Get("X-Kept"))
	assert.Same(t, req, out.Request)
}
