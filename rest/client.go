// Package rest issues HTTP requests as tracked units of work: every
// in-flight request holds a handle in a work registry until its response
// body is closed, the request is canceled, or the registry is shut down,
// whichever happens first.
package rest

import (
	"context"
	"io"
	"net/http"

	"github.com/goliatone/go-dispatch/work"
	"github.com/goliatone/go-errors"
)

const ErrCodeRequestFailed = "REQUEST_FAILED"

// Client wraps an http.Client with in-flight tracking.
type Client struct {
	http     *http.Client
	registry *work.Registry
}

// Option defines the functional option signature for the client.
type Option func(*Client)

// WithHTTPClient sets the underlying transport client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithRegistry tracks requests in an externally owned registry, so command
// executions and network calls can be waited on or canceled together.
func WithRegistry(r *work.Registry) Option {
	return func(c *Client) {
		if r != nil {
			c.registry = r
		}
	}
}

// New creates a client, applying defaults if unset.
func New(opts ...Option) *Client {
	c := &Client{
		http:     http.DefaultClient,
		registry: work.NewRegistry(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Registry returns the registry tracking this client's requests.
func (c *Client) Registry() *work.Registry {
	return c.registry
}

// InFlight reports the number of requests currently tracked.
func (c *Client) InFlight() int {
	return c.registry.Len()
}

// CancelAll aborts every in-flight request and releases its resources.
func (c *Client) CancelAll() {
	c.registry.CloseAll()
}

// Do issues req. The request is registered before the transport sees it
// and stays registered until the response body is closed or fully read;
// releasing the handle from anywhere cancels the request's context. The
// handle is released exactly once no matter which path gets there first.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx, cancel := context.WithCancel(req.Context())
	handle := work.NewHandle(req.Method+" "+req.URL.String(), func() { cancel() })
	c.registry.Register(handle)

	resp, err := c.http.Do(req.WithContext(ctx))
	if err != nil {
		handle.Close()
		return nil, errors.Wrap(err, errors.CategoryExternal, "request failed").
			WithTextCode(ErrCodeRequestFailed).
			WithMetadata(map[string]any{
				"method": req.Method,
				"url":    req.URL.String(),
			})
	}

	resp.Body = &trackedBody{body: resp.Body, handle: handle}
	return resp, nil
}

// Get issues a tracked GET request.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "invalid request").
			WithTextCode(ErrCodeRequestFailed)
	}
	return c.Do(req)
}

// trackedBody releases the request handle when the body is closed or read
// to completion. Close after EOF, or multiple Closes, release only once.
type trackedBody struct {
	body   io.ReadCloser
	handle *work.Handle
}

func (b *trackedBody) Read(p []byte) (int, error) {
	n, err := b.body.Read(p)
	if err == io.EOF {
		// the connection is done with us; stop tracking but leave the
		// body open for the caller to Close
		b.handle.Close()
	}
	return n, err
}

func (b *trackedBody) Close() error {
	err := b.body.Close()
	b.handle.Close()
	return err
}
