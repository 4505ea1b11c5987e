// Package api provides the HTTP client for the PropWatch scraping backend:
// request building, auth headers, timeout handling, error normalization,
// optional Redis response caching, and typed endpoint wrappers.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/propwatch/propwatch-go/pkg/cache"
)

// Prometheus metrics for backend requests.
var (
	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "propwatch_requests_total",
		Help: "Total backend requests by endpoint and status",
	}, []string{"endpoint", "status"})

	apiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "propwatch_request_duration_seconds",
		Help:    "Backend request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"endpoint"})

	apiErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "propwatch_errors_total",
		Help: "Total backend request errors by class",
	}, []string{"class"})
)

// DefaultTimeout accommodates cold starts of the backend, which can take
// well over a minute to spin up on the free hosting tier.
const DefaultTimeout = 120 * time.Second

// Client is the PropWatch backend client.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	cache      *cache.Manager
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the backend, e.g. "https://scraper.propwatch.example".
	BaseURL string

	// APIKey is sent as the X-API-Key header when non-empty.
	APIKey string

	// Headers are additional static headers attached to every request.
	Headers map[string]string

	// Timeout is the per-request timeout. Defaults to DefaultTimeout.
	Timeout time.Duration

	// Redis enables GET response caching when set.
	Redis *redis.Client

	// CacheTTL is the fallback cache TTL when the backend sends no
	// Cache-Control max-age. Zero disables the fallback.
	CacheTTL time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:  baseURL,
		Timeout:  DefaultTimeout,
		CacheTTL: 30 * time.Second,
	}
}

// New creates a new backend client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL must be absolute (got %q)", cfg.BaseURL)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	logger := log.With().Str("component", "propwatch-client").Logger()

	var cacheManager *cache.Manager
	if cfg.Redis != nil {
		cacheManager = cache.NewManager(cfg.Redis)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: base,
		cache:   cacheManager,
		config:  cfg,
		logger:  logger,
	}, nil
}

// Response is the normalized result of a backend request. JSON payloads are
// retained raw for typed decoding; non-JSON payloads (CSV exports, files)
// are passed through as bytes.
type Response struct {
	StatusCode int
	Header     http.Header

	// Raw holds the JSON payload when IsJSON is true.
	Raw json.RawMessage

	// Body holds the payload for non-JSON content types.
	Body []byte

	IsJSON bool

	fromCache bool
}

// Decode unmarshals a JSON response payload into v.
func (r *Response) Decode(v any) error {
	if !r.IsJSON {
		return fmt.Errorf("response is not JSON (content-type %q)", r.Header.Get("Content-Type"))
	}
	if err := json.Unmarshal(r.Raw, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// FromCache reports whether the response was served from the local cache.
func (r *Response) FromCache() bool {
	return r.fromCache
}

// Request performs a single backend request. The body is JSON-encoded for
// POST, PUT and PATCH; query values with empty keys are skipped. Non-2xx
// responses become *APIError. No retries happen at this layer.
func (c *Client) Request(ctx context.Context, method, path string, body any, query url.Values) (*Response, error) {
	endpoint := path
	startTime := time.Now()
	defer func() {
		apiRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	reqURL := c.buildURL(path, query)

	// Serve GETs from cache when possible.
	var cacheKey cache.Key
	if c.cache != nil && method == http.MethodGet {
		cacheKey = cache.Key{Path: path, Query: query}
		entry, err := c.cache.Get(ctx, cacheKey)
		if err != nil && err != cache.ErrCacheMiss {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
		if entry != nil {
			c.logger.Debug().Str("endpoint", endpoint).Msg("Serving response from cache")
			apiRequestsTotal.WithLabelValues(endpoint, "cached").Inc()
			return entryToResponse(entry), nil
		}
	}

	var reqBody io.Reader
	hasBody := false
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		if body != nil {
			encoded, err := json.Marshal(body)
			if err != nil {
				return nil, fmt.Errorf("encode request body: %w", err)
			}
			reqBody = bytes.NewReader(encoded)
			hasBody = true
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.APIKey != "" {
		req.Header.Set("X-API-Key", c.config.APIKey)
	}
	for key, value := range c.config.Headers {
		req.Header.Set(key, value)
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", method).
		Msg("Executing backend request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.wrapTransportError(endpoint, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.wrapTransportError(endpoint, err)
	}

	apiRequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newAPIError(resp.StatusCode, http.StatusText(resp.StatusCode), endpoint, payload)
		apiErrorsTotal.WithLabelValues(string(Classify(apiErr))).Inc()
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Msg("Backend request error")
		return nil, apiErr
	}

	result := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
	}

	if isJSONContentType(resp.Header.Get("Content-Type")) {
		result.IsJSON = true
		result.Raw = json.RawMessage(payload)
	} else {
		// Exports and file downloads come back as-is.
		result.Body = payload
	}

	if c.cache != nil {
		switch method {
		case http.MethodGet:
			if result.IsJSON && resp.StatusCode == http.StatusOK {
				entry := cache.NewEntry(payload, resp.StatusCode, resp.Header, c.config.CacheTTL)
				if entry.TTL() > 0 {
					if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
						c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Failed to cache response")
					}
				}
			}
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			// Mutations invalidate cached reads under the same resource.
			if err := c.cache.DeleteByPrefix(ctx, resourcePrefix(path)); err != nil {
				c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache invalidation failed")
			}
		}
	}

	return result, nil
}

// wrapTransportError maps connection-level failures onto the client's
// sentinel errors so callers can tell timeouts and cancellations apart
// from real failures.
func (c *Client) wrapTransportError(endpoint string, err error) error {
	if IsCancellation(err) {
		// Not a failure: the caller (or a controller teardown) aborted the
		// request. Don't log or count it as an error.
		apiRequestsTotal.WithLabelValues(endpoint, "cancelled").Inc()
		return fmt.Errorf("%w: %w", ErrRequestCancelled, err)
	}

	var wrapped error
	if IsTimeout(err) {
		wrapped = fmt.Errorf("%w: %w", ErrRequestTimeout, err)
	} else {
		wrapped = fmt.Errorf("backend request failed: %w", err)
	}

	class := Classify(wrapped)
	apiErrorsTotal.WithLabelValues(string(class)).Inc()
	apiRequestsTotal.WithLabelValues(endpoint, string(class)).Inc()
	c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("Backend request failed")
	return wrapped
}

// buildURL joins the base URL with path and encodes the query. Empty query
// values were already dropped by the typed endpoint helpers.
func (c *Client) buildURL(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// resourcePrefix derives the invalidation prefix from a mutation path:
// writing to /api/sites/42 invalidates everything cached under /api/sites.
func resourcePrefix(path string) string {
	trimmed := strings.Trim(path, "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) > 2 {
		parts = parts[:2]
	}
	return "/" + strings.Join(parts, "/")
}

func isJSONContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func entryToResponse(entry *cache.Entry) *Response {
	return &Response{
		StatusCode: entry.StatusCode,
		Header:     entry.Header,
		Raw:        json.RawMessage(entry.Data),
		IsJSON:     true,
		fromCache:  true,
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Cache returns the cache manager, or nil when caching is disabled.
func (c *Client) Cache() *cache.Manager {
	return c.cache
}
