// Performs single HTTP(S) requests and normalizes their results
package fetch

import (
	"encoding/json"
	"net/http"
)

// Response is the result of one HTTP exchange
type Response struct {
	Status  int
	URL     string
	Headers http.Header
	Body    []byte
}

// Text returns the body as a string
func (r *Response) Text() string {
	return string(r.Body)
}

// JSON decodes the body into v
func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// OK reports whether the status is in the 2xx range
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}
