package fetch

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// BasicAuth holds credentials passed to the transport as HTTP basic auth
type BasicAuth struct {
	Username string
	Password string
}

// Options configures a single request
type Options struct {
	// Auth, when set, is sent as basic auth credentials
	Auth *BasicAuth
	// Headers are added verbatim to the request
	Headers map[string]string
	// Delay postpones completion of the call, for success and failure alike
	Delay time.Duration
	// Invalidate makes the cache manager skip a valid cached entry and re-fetch.
	// The executor ignores it.
	Invalidate bool
}

// Validate checks the options at the boundary
func (o Options) Validate() error {
	if o.Delay < 0 {
		return fmt.Errorf("negative delay: %s", o.Delay)
	}
	for name := range o.Headers {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("empty header name")
		}
	}
	return nil
}

func (o Options) header() http.Header {
	h := make(http.Header, len(o.Headers))
	for k, v := range o.Headers {
		h.Set(k, v)
	}
	return h
}
