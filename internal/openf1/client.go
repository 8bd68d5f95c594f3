// Package openf1 reads Formula 1 timing data from the OpenF1 REST API.
//
// Every GET is keyed by its full URL in an optional response cache, so a
// session that has already been fetched is served from disk. Empty results
// are never cached because the session may simply not have run yet.
package openf1

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/pitwall-labs/lapcast/pkg/errors"
	"github.com/pitwall-labs/lapcast/pkg/log"
)

// DefaultBaseURL is the public OpenF1 endpoint.
const DefaultBaseURL = "https://api.openf1.org/v1"

// ErrSessionNotFound is returned when no meeting or session matches the
// requested year, round and type.
var ErrSessionNotFound = errors.New("session not found")

// ResponseCache stores raw response bodies by request URL.
type ResponseCache interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, body []byte) error
}

// Client is an OpenF1 API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cache      ResponseCache
	logger     log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithCache routes every request through c.
func WithCache(c ResponseCache) Option {
	return func(cl *Client) {
		cl.cache = c
	}
}

// WithTimeout sets the per-request timeout. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		cl.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = hc
	}
}

// NewClient creates a client for baseURL, DefaultBaseURL when empty.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     log.GetLoggerWithName("openf1"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get fetches path with query into out, which must be a pointer to a slice.
// It reports the number of rows in the payload.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) (int, error) {
	u := c.baseURL + "/" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	body, hit, err := c.lookup(u)
	if err != nil {
		return 0, err
	}
	if !hit {
		body, err = c.fetch(ctx, u)
		if err != nil {
			return 0, err
		}
	}

	payload := gjson.ParseBytes(body)
	if !payload.IsArray() {
		return 0, errors.Newf("unexpected payload from %s: %.120s", u, body)
	}
	rows := int(payload.Get("#").Int())

	if !hit && rows > 0 && c.cache != nil {
		if err := c.cache.Put(u, body); err != nil {
			return 0, err
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return 0, errors.Wrapf(err, "decode %s", u)
	}

	c.logger.Debug("OpenF1 response",
		log.URLKey, u,
		log.CacheHitKey, hit,
		log.SamplesKey, rows,
	)
	return rows, nil
}

func (c *Client) lookup(u string) ([]byte, bool, error) {
	if c.cache == nil {
		return nil, false, nil
	}
	body, ok, err := c.cache.Get(u)
	if err != nil {
		return nil, false, err
	}
	return body, ok, nil
}

func (c *Client) fetch(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "GET %s", u)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "read body of %s", u)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// OpenF1 answers 404 when a filter matches nothing.
		c.logger.Debug("OpenF1 returned no results", log.URLKey, u, log.StatusKey, resp.StatusCode)
		return []byte("[]"), nil
	case resp.StatusCode != http.StatusOK:
		return nil, &StatusError{URL: u, StatusCode: resp.StatusCode, Body: preview(body)}
	}
	return body, nil
}

// StatusError is returned for non-200 responses other than 404.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("openf1: GET %s: unexpected status %d: %s", e.URL, e.StatusCode, e.Body)
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
