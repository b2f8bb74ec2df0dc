// Package apiclient talks to the enrollment REST backend: JSON in, JSON out, and a typed
// error for every non-2xx answer or transport failure.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/enrollment-console/pkg/errors"
	"github.com/noah-isme/enrollment-console/pkg/middleware/requestid"
)

const (
	cacheKeyPrefix   = "enrollconsole:collection:"
	maxErrorBodySize = 4 << 10
)

// Cache is a read-through store for collection responses.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

// Observer receives one observation per backend round trip.
type Observer interface {
	ObserveUpstream(method, resource string, status int, duration time.Duration)
}

// StatusError is the cause attached to upstream errors.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("status %d", e.StatusCode)
	}
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Body)
}

// Client issues requests against a single backend base URL.
type Client struct {
	baseURL  string
	http     *http.Client
	cache    Cache
	cacheTTL time.Duration
	observer Observer
	logger   *zap.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithCache enables the read-through cache for collection reads.
func WithCache(cache Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache
		c.cacheTTL = ttl
	}
}

// WithObserver records round-trip metrics.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New constructs a Client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend address.
func (c *Client) BaseURL() string { return c.baseURL }

// Close releases idle keep-alive connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// Get decodes the JSON answer of GET path into out.
func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post sends body as JSON and decodes the answer into out.
func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

// Put sends body as JSON and decodes the answer into out.
func (c *Client) Put(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}

// Delete issues DELETE path; the answer body is ignored.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// Ping checks that the backend answers a cheap collection read.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, studentsPath, nil, nil)
}

func (c *Client) cachedList(ctx context.Context, path string, out interface{}) error {
	key := cacheKeyPrefix + path
	if c.cache != nil {
		hit, err := c.cache.Get(ctx, key, out)
		if err == nil && hit {
			return nil
		}
	}
	if err := c.Get(ctx, path, out); err != nil {
		return err
	}
	if c.cache != nil {
		if err := c.cache.Set(ctx, key, out, c.cacheTTL); err != nil {
			c.logger.Debug("collection cache write skipped", zap.String("path", path), zap.Error(err))
		}
	}
	return nil
}

func (c *Client) invalidate(ctx context.Context, path string) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Invalidate(ctx, cacheKeyPrefix+path+"*"); err != nil {
		c.logger.Debug("collection cache invalidate skipped", zap.String("path", path), zap.Error(err))
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	failed := fmt.Sprintf("%s %s failed", method, path)

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "encode request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := requestid.FromContext(ctx); id != "" {
		req.Header.Set(requestid.HeaderKey, id)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)
	resource := resourceOf(path)
	if err != nil {
		c.observe(method, resource, 0, duration)
		return appErrors.Wrap(err, appErrors.ErrTransport.Code, appErrors.ErrTransport.Status, failed)
	}
	defer resp.Body.Close()
	c.observe(method, resource, resp.StatusCode, duration)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return appErrors.Wrap(&StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))},
			appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, failed)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "decode "+method+" "+path+" response")
	}
	return nil
}

func (c *Client) observe(method, resource string, status int, d time.Duration) {
	if c.observer != nil {
		c.observer.ObserveUpstream(method, resource, status, d)
	}
}

// resourceOf reduces "/students/12" to "/students" for low-cardinality labels.
func resourceOf(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		trimmed = trimmed[:i]
	}
	return "/" + trimmed
}
