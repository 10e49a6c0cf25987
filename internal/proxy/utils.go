package proxy

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/textproto"

	"github.com/iTrooz/fetch-cache/internal/fetch"
)

// hopByHopHeaders must not be relayed by a proxy (RFC 7230)
var hopByHopHeaders = map[string]struct{}{
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailer":             {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
	"Proxy-Connection":    {},
}

func getTargetURL(r *http.Request) string {
	if r.URL.IsAbs() {
		return r.URL.String()
	}

	// Reconstruct URL from Host header
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	return fmt.Sprintf("%s://%s%s", scheme, r.Host, r.URL.String())
}

// toHTTPResponse turns a fetched or cached response into one goproxy can write back
func toHTTPResponse(req *http.Request, resp *fetch.Response) *http.Response {
	header := make(http.Header, len(resp.Headers))
	for key, values := range resp.Headers {
		if _, hop := hopByHopHeaders[textproto.CanonicalMIMEHeaderKey(key)]; hop {
			continue
		}
		header[key] = append([]string(nil), values...)
	}
	header.Del("Content-Length")

	return &http.Response{
		Status:        fmt.Sprintf("%d %s", resp.Status, http.StatusText(resp.Status)),
		StatusCode:    resp.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(resp.Body)),
		ContentLength: int64(len(resp.Body)),
		Request:       req,
	}
}
