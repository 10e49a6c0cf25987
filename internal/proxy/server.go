// Forward proxy answering cacheable GET requests from the cache manager
package proxy

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/elazarl/goproxy"
	"github.com/sirupsen/logrus"

	"github.com/iTrooz/fetch-cache/internal/cache"
	"github.com/iTrooz/fetch-cache/internal/config"
	"github.com/iTrooz/fetch-cache/internal/fetch"
)

// Server represents the caching proxy server
type Server struct {
	config       *config.Config
	cacheManager *cache.Manager
	options      fetch.Options
	rules        []Rule
	proxy        *goproxy.ProxyHttpServer
	logger       logrus.FieldLogger
}

// New creates a new proxy server
func New(cfg *config.Config, cacheManager *cache.Manager, logger logrus.FieldLogger) (*Server, error) {
	opts, err := cfg.RequestOptions()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	s := &Server{
		config:       cfg,
		cacheManager: cacheManager,
		options:      opts,
		rules:        buildRules(cfg.Rules),
		proxy:        goproxy.NewProxyHttpServer(),
		logger:       logger,
	}
	s.proxy.OnRequest(goproxy.ReqConditionFunc(s.isCacheable)).DoFunc(s.serveThroughCache)
	return s, nil
}

// GetProxy returns the HTTP handler of the proxy
func (s *Server) GetProxy() http.Handler {
	return s.proxy
}

// Start starts the proxy server
func (s *Server) Start() error {
	s.logger.Infof("Starting caching proxy on port %d", s.config.Server.Port)
	s.logger.Infof("Cache directory: %s", s.cacheManager.Dir())
	s.logger.Infof("Rules mode: %s", s.config.Rules.Mode)

	return http.ListenAndServe(fmt.Sprintf(":%d", s.config.Server.Port), s.proxy)
}

func (s *Server) isCacheable(r *http.Request, _ *goproxy.ProxyCtx) bool {
	return r.Method == http.MethodGet && s.shouldBeCached(getTargetURL(r), r.Method)
}

// shouldBeCached determines if a request goes through the cache based on rules
func (s *Server) shouldBeCached(targetURL, method string) bool {
	matched := false
	for _, rule := range s.rules {
		if rule.Match(targetURL, method) {
			matched = true
			break
		}
	}

	if s.config.Rules.Mode == "whitelist" {
		return matched
	}
	return !matched
}

func (s *Server) serveThroughCache(r *http.Request, _ *goproxy.ProxyCtx) (*http.Request, *http.Response) {
	targetURL := getTargetURL(r)

	opts := s.options
	if r.Header.Get("Cache-Control") == "no-cache" {
		opts.Invalidate = true
	}

	resp, source, err := s.cacheManager.LoadSource(r.Context(), targetURL, opts)
	if err != nil {
		var httpErr *fetch.HTTPError
		if errors.As(err, &httpErr) {
			out := toHTTPResponse(r, httpErr.Response)
			out.Header.Set("X-Cache", cache.SourceNetwork.String())
			s.logger.Infof("Forwarded request: GET %s -> %d", targetURL, httpErr.Response.Status)
			return r, out
		}
		s.logger.Errorf("Failed to load %s: %v", targetURL, err)
		return r, goproxy.NewResponse(r, goproxy.ContentTypeText, http.StatusBadGateway, err.Error())
	}

	out := toHTTPResponse(r, resp)
	out.Header.Set("X-Cache", source.String())
	if source == cache.SourceCache {
		s.logger.Infof("Serving from cache: %s", targetURL)
	} else {
		s.logger.Infof("Forwarded request: GET %s -> %d", targetURL, resp.Status)
	}
	return r, out
}
