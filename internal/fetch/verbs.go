package fetch

import (
	"context"
	"net/http"
)

// Get issues a GET request
func (e *Executor) Get(ctx context.Context, url string, opts Options) (*Response, error) {
	return e.Execute(ctx, http.MethodGet, url, nil, opts)
}

// Fetch is an alias of Get
func (e *Executor) Fetch(ctx context.Context, url string, opts Options) (*Response, error) {
	return e.Get(ctx, url, opts)
}

// Head issues a HEAD request
func (e *Executor) Head(ctx context.Context, url string, opts Options) (*Response, error) {
	return e.Execute(ctx, http.MethodHead, url, nil, opts)
}

// Post issues a POST request
func (e *Executor) Post(ctx context.Context, url string, body any, opts Options) (*Response, error) {
	return e.Execute(ctx, http.MethodPost, url, body, opts)
}

// Put issues a PUT request
func (e *Executor) Put(ctx context.Context, url string, body any, opts Options) (*Response, error) {
	return e.Execute(ctx, http.MethodPut, url, body, opts)
}

// Patch issues a PATCH request
func (e *Executor) Patch(ctx context.Context, url string, body any, opts Options) (*Response, error) {
	return e.Execute(ctx, http.MethodPatch, url, body, opts)
}

// Delete issues a DELETE request
func (e *Executor) Delete(ctx context.Context, url string, body any, opts Options) (*Response, error) {
	return e.Execute(ctx, http.MethodDelete, url, body, opts)
}

var defaultExecutor = NewExecutor()

// Default returns the executor used by the package-level helpers
func Default() *Executor {
	return defaultExecutor
}

func Get(ctx context.Context, url string, opts Options) (*Response, error) {
	return defaultExecutor.Get(ctx, url, opts)
}

func Fetch(ctx context.Context, url string, opts Options) (*Response, error) {
	return defaultExecutor.Fetch(ctx, url, opts)
}

func Head(ctx context.Context, url string, opts Options) (*Response, error) {
	return defaultExecutor.Head(ctx, url, opts)
}

func Post(ctx context.Context, url string, body any, opts Options) (*Response, error) {
	return defaultExecutor.Post(ctx, url, body, opts)
}

func Put(ctx context.Context, url string, body any, opts Options) (*Response, error) {
	return defaultExecutor.Put(ctx, url, body, opts)
}

func Patch(ctx context.Context, url string, body any, opts Options) (*Response, error) {
	return defaultExecutor.Patch(ctx, url, body, opts)
}

func Delete(ctx context.Context, url string, body any, opts Options) (*Response, error) {
	return defaultExecutor.Delete(ctx, url, body, opts)
}
