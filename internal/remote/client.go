// Package remote talks to the notebook server's key-value endpoints.
// Each collection lives behind one path that supports GET (fetch the whole
// collection) and POST (replace it).
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kuitang/notebook/internal/errs"
	"github.com/kuitang/notebook/internal/logutil"
	"github.com/kuitang/notebook/internal/obs"
	"github.com/kuitang/notebook/internal/urlutil"
)

const (
	// NotesPath is the endpoint holding the notes collection.
	NotesPath = "/api/notes"
	// CategoriesPath is the endpoint holding the categories collection.
	CategoriesPath = "/api/categories"

	// DefaultTimeout bounds a single request when the caller's context has no deadline.
	DefaultTimeout = 10 * time.Second

	maxResponseBytes = 32 << 20
	logPreviewChars  = 120
	logPreviewIDs    = 8
)

// Client is an HTTP client bound to one notebook server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a client for the server at baseURL.
// A nil httpClient uses one with DefaultTimeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// BaseURL returns the server base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Collection is a typed view of one remote slot.
type Collection[T any] struct {
	client *Client
	path   string
}

// NewCollection binds a collection endpoint such as NotesPath.
func NewCollection[T any](client *Client, path string) *Collection[T] {
	return &Collection[T]{client: client, path: path}
}

// Fetch returns the stored collection. An unset slot reads as empty.
// Transport failures and non-2xx responses both come back as Unavailable.
func (c *Collection[T]) Fetch(ctx context.Context) ([]T, error) {
	body, err := c.client.do(ctx, http.MethodGet, c.path, nil)
	if err != nil {
		return nil, err
	}
	var items []T
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, errs.Wrap(errs.Unavailable, "remote returned malformed collection", err)
	}
	return items, nil
}

// Replace overwrites the stored collection.
func (c *Collection[T]) Replace(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode collection: %w", err)
	}
	_, err = c.client.do(ctx, http.MethodPost, c.path, payload)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	ctx, requestID := obs.EnsureRequestID(ctx)
	log := obs.From(ctx).With("pkg", "remote", "method", method, "path", path)

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, urlutil.BuildAbsolute(c.baseURL, path), body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug("remote request failed", "error", err)
		return nil, errs.Wrap(errs.Unavailable, "remote store unreachable", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "remote response truncated", err)
	}
	log.Debug("remote request",
		"status", resp.StatusCode,
		"dur_ms", float64(time.Since(start).Microseconds())/1000.0,
		"headers", logutil.FormatHeadersForLog(req.Header),
		"sent", logutil.PayloadSummary(payload, logPreviewIDs),
		"received", logutil.PayloadSummary(respBody, logPreviewIDs),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errs.Newf(errs.Unavailable, "remote store returned %d: %s",
			resp.StatusCode, logutil.TruncateForLog(string(respBody), logPreviewChars))
	}
	return respBody, nil
}
