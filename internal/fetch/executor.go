package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	contentTypeJSON   = "application/json"
	contentTypeBinary = "application/octet-stream"
)

// Executor issues single HTTP(S) requests. URLs starting with https:// go
// through the TLS round tripper, everything else through the plaintext one.
type Executor struct {
	plain  http.RoundTripper
	secure http.RoundTripper
	logger logrus.FieldLogger
}

// ExecutorOption customizes an Executor
type ExecutorOption func(*Executor)

// WithTransport sets the round tripper used for plaintext URLs
func WithTransport(rt http.RoundTripper) ExecutorOption {
	return func(e *Executor) {
		e.plain = rt
	}
}

// WithTLSTransport sets the round tripper used for https:// URLs
func WithTLSTransport(rt http.RoundTripper) ExecutorOption {
	return func(e *Executor) {
		e.secure = rt
	}
}

// WithLogger sets the logger used for request tracing
func WithLogger(logger logrus.FieldLogger) ExecutorOption {
	return func(e *Executor) {
		e.logger = logger
	}
}

// NewExecutor creates an executor backed by clones of http.DefaultTransport
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		plain:  http.DefaultTransport.(*http.Transport).Clone(),
		secure: http.DefaultTransport.(*http.Transport).Clone(),
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute performs one request. A 2xx status returns the response; any other
// status returns an *HTTPError carrying it. Network failures return a
// *TransportError. No timeout is applied beyond the one carried by ctx.
func (e *Executor) Execute(ctx context.Context, method, rawURL string, body any, opts Options) (*Response, error) {
	if rawURL == "" {
		return nil, invalidRequest(method, "url is undefined")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, invalidRequest(method, "%v", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, invalidRequest(method, "url %q is not absolute", rawURL)
	}
	if err := opts.Validate(); err != nil {
		return nil, invalidRequest(method, "%v", err)
	}

	req, err := e.buildRequest(ctx, method, rawURL, body, opts)
	if err != nil {
		return nil, err
	}

	record(rawURL)
	e.logger.Debugf("%s %s", method, rawURL)

	resp, err := e.clientFor(rawURL).Do(req)
	if err != nil {
		if waitErr := wait(ctx, opts.Delay); waitErr != nil {
			err = errors.Join(err, waitErr)
		}
		return nil, &TransportError{Method: method, URL: rawURL, Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			e.logger.Warnf("Failed to close response body for %s: %v", rawURL, err)
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: method, URL: rawURL, Err: fmt.Errorf("reading body: %w", err)}
	}

	result := &Response{
		Status:  resp.StatusCode,
		URL:     rawURL,
		Headers: resp.Header,
		Body:    data,
	}

	if err := wait(ctx, opts.Delay); err != nil {
		return nil, err
	}
	if !result.OK() {
		return nil, &HTTPError{Method: method, Response: result}
	}
	return result, nil
}

func (e *Executor) buildRequest(ctx context.Context, method, rawURL string, body any, opts Options) (*http.Request, error) {
	header := opts.header()

	var payload []byte
	if body != nil {
		var contentType string
		switch v := body.(type) {
		case string:
			payload, contentType = []byte(v), contentTypeBinary
		case []byte:
			payload, contentType = v, contentTypeBinary
		default:
			encoded, err := json.Marshal(v)
			if err != nil {
				return nil, invalidRequest(method, "encoding body: %v", err)
			}
			payload, contentType = encoded, contentTypeJSON
		}
		if header.Get("Content-Type") == "" {
			header.Set("Content-Type", contentType)
		}
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, invalidRequest(method, "%v", err)
	}

	// net/http derives the Content-Length header from req.ContentLength
	if raw := header.Get("Content-Length"); raw != "" {
		length, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || length < 0 {
			return nil, invalidRequest(method, "bad Content-Length %q", raw)
		}
		if payload == nil && length != 0 {
			return nil, invalidRequest(method, "Content-Length %d without a body", length)
		}
		req.ContentLength = length
		header.Del("Content-Length")
	} else if payload != nil {
		req.ContentLength = int64(len(payload))
	}

	req.Header = header
	if opts.Auth != nil {
		req.SetBasicAuth(opts.Auth.Username, opts.Auth.Password)
	}
	return req, nil
}

func (e *Executor) clientFor(rawURL string) *http.Client {
	rt := e.plain
	if strings.HasPrefix(rawURL, "https://") {
		rt = e.secure
	}
	return &http.Client{
		Transport: rt,
		// Redirects are reported to the caller like any other non-2xx status
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
