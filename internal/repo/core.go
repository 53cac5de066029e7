package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/angsh-d/clinops-intel-sub000/internal/cache"
	"github.com/angsh-d/clinops-intel-sub000/internal/metrics"
)

// maxResponseBytes bounds a single endpoint response body.
const maxResponseBytes = 8 << 20

// StatusError reports a non-2xx response from clinops-core. The client does
// not distinguish 4xx from 5xx; that is the caller's concern.
type StatusError struct {
	Endpoint   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("clinops-core returned %d for %s", e.StatusCode, e.Endpoint)
}

// CoreClient wraps the clinops-core dashboard and investigation APIs. GET
// reads go through a per-instance response cache with in-flight
// de-duplication; the investigation-start mutation is never cached. Nothing
// is retried automatically.
type CoreClient struct {
	baseURL    string
	apiPath    string
	httpClient *http.Client
	responses  *cache.ResponseCache
}

// NewCoreClient constructs a client for the configured clinops-core
// instance. apiPath is an optional prefix for deployments that mount the API
// under a subpath; the documented endpoints already carry their own
// /dashboard and /agents segments.
func NewCoreClient(baseURL, apiPath string, timeout time.Duration, responses *cache.ResponseCache) *CoreClient {
	return &CoreClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiPath:   apiPath,
		responses: responses,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Get returns the JSON body for endpoint, served from cache while the entry
// is younger than the cache's default freshness window.
func (c *CoreClient) Get(ctx context.Context, endpoint string) (json.RawMessage, error) {
	return c.GetTTL(ctx, endpoint, 0)
}

// GetTTL is Get with a per-call freshness window; non-positive ttl selects
// the cache default. Concurrent callers for the same endpoint share a single
// request.
func (c *CoreClient) GetTTL(ctx context.Context, endpoint string, ttl time.Duration) (json.RawMessage, error) {
	if c == nil {
		return nil, fmt.Errorf("clinops-core client not initialised")
	}
	if c.baseURL == "" {
		return nil, fmt.Errorf("clinops-core base URL not configured")
	}
	endpoint = normalizeEndpoint(endpoint)
	if endpoint == "/" {
		return nil, fmt.Errorf("empty endpoint")
	}

	body, err := c.responses.Get(ctx, endpoint, ttl, func(fetchCtx context.Context) ([]byte, error) {
		return c.fetch(fetchCtx, endpoint)
	})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// StartInvestigation submits a natural-language question, optionally scoped
// to one site, and returns the server-issued query id. The call bypasses the
// cache and is never de-duplicated or retried.
func (c *CoreClient) StartInvestigation(ctx context.Context, question, siteID string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("clinops-core client not initialised")
	}
	if c.baseURL == "" {
		return "", fmt.Errorf("clinops-core base URL not configured")
	}
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("empty investigation question")
	}

	payload := map[string]any{"query": question}
	if siteID != "" {
		payload["site_id"] = siteID
	}

	var response struct {
		QueryID string `json:"query_id"`
	}
	if err := c.postJSON(ctx, "/agents/investigate", payload, &response); err != nil {
		return "", fmt.Errorf("clinops-core investigate request failed: %w", err)
	}
	if response.QueryID == "" {
		return "", fmt.Errorf("clinops-core investigate returned no query id")
	}
	return response.QueryID, nil
}

// InvalidateCache drops every cached endpoint response and detaches all
// in-flight fetches, so the next read of any endpoint goes to the network.
func (c *CoreClient) InvalidateCache() {
	if c == nil {
		return
	}
	c.responses.Invalidate()
}

// StreamURL derives the investigation stream address for a query id: the
// /ws/query/{id} path on the client's host, with ws mirroring http and wss
// mirroring https.
func (c *CoreClient) StreamURL(queryID string) (string, error) {
	if c == nil || c.baseURL == "" {
		return "", fmt.Errorf("clinops-core base URL not configured")
	}
	if queryID == "" {
		return "", fmt.Errorf("empty query id")
	}
	if strings.ContainsAny(queryID, "/?#%& \t\n") {
		return "", fmt.Errorf("invalid query id %q", queryID)
	}
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base URL: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q in base URL", u.Scheme)
	}
	u.Path = path.Join(u.Path, "/ws/query/", queryID)
	return u.String(), nil
}

func (c *CoreClient) fetch(ctx context.Context, endpoint string) ([]byte, error) {
	start := time.Now()
	body, err := c.doFetch(ctx, endpoint)
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeError
	}
	metrics.ObserveFetch(endpoint, time.Since(start), outcome)
	return body, err
}

func (c *CoreClient) doFetch(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolvePath(endpoint), nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", endpoint, err)
	}
	if len(body) > maxResponseBytes {
		return nil, fmt.Errorf("%s response exceeds %d bytes", endpoint, maxResponseBytes)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%s returned invalid JSON", endpoint)
	}
	return body, nil
}

func (c *CoreClient) postJSON(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolvePath(endpoint), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *CoreClient) resolvePath(endpoint string) string {
	cleaned := normalizeEndpoint(endpoint)
	if c.apiPath != "" {
		cleaned = "/" + strings.TrimLeft(c.apiPath, "/") + cleaned
	}
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}

func normalizeEndpoint(endpoint string) string {
	return "/" + strings.TrimLeft(strings.TrimSpace(endpoint), "/")
}
