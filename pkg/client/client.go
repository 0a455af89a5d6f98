// Package client provides the HTTP client used for commerce API requests,
// with call-limit pacing, optional page caching and error classification.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/shopkit/pkg/cache"
	"github.com/Sternrassler/shopkit/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopkit_requests_total",
		Help: "Total API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shopkit_request_duration_seconds",
		Help:    "API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopkit_errors_total",
		Help: "Total API errors by class",
	}, []string{"class"})
)

// Client is the commerce API client.
type Client struct {
	httpClient  *http.Client
	rateLimiter *ratelimit.Tracker
	cache       *cache.Manager
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Redis holds rate limit state and cached pages. Optional: without it
	// the tracker keeps state in memory and caching is off.
	Redis *redis.Client

	// Shop identifies the rate limit bucket, e.g. "example.myshopify.com"
	Shop string

	// User-Agent header (REQUIRED)
	// Format: "AppName/Version (contact@example.com)"
	UserAgent string

	// Timeout bounds each request.
	Timeout time.Duration

	// CacheTTL is how long fetched pages stay cached. Zero disables caching.
	CacheTTL time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(redis *redis.Client, userAgent string) Config {
	return Config{
		Redis:     redis,
		UserAgent: userAgent,
		Timeout:   30 * time.Second,
		CacheTTL:  0,
	}
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must be >= 0 (got %v)", cfg.Timeout)
	}
	if cfg.CacheTTL < 0 {
		return nil, fmt.Errorf("cache ttl must be >= 0 (got %v)", cfg.CacheTTL)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger := log.With().Str("component", "shop-client").Logger()

	var cacheManager *cache.Manager
	if cfg.Redis != nil && cfg.CacheTTL > 0 {
		cacheManager = cache.NewManager(cfg.Redis)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: ratelimit.NewTracker(cfg.Redis, cfg.Shop, logger),
		cache:       cacheManager,
		config:      cfg,
		logger:      logger,
	}, nil
}

// Do performs an HTTP request with call-limit pacing and caching. Any
// non-2xx status is returned as a *FetchError with the body closed.
// Nothing is retried.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := req.URL.Path
	target := RedactURL(req.URL)

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Check Cache
	var cacheKey cache.CacheKey
	if c.cache != nil && req.Method == http.MethodGet {
		cacheKey = cache.KeyForURL(req.URL)
		entry, err := c.cache.Get(ctx, cacheKey)
		switch {
		case err == nil:
			c.logger.Debug().Str("url", target).Msg("Serving page from cache")
			requestsTotal.WithLabelValues(endpoint, "cached").Inc()
			return cache.EntryToResponse(entry), nil
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
	}

	// Step 2: Pace against the call bucket
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, &FetchError{
			Class:   ErrorClassNetwork,
			URL:     target,
			Message: "waiting for call limit",
			Err:     err,
		}
	}

	// Step 3: Set headers
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("url", target).
		Str("method", req.Method).
		Msg("Executing request")

	// Step 4: Execute
	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = stripURLError(err)
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		c.logger.Error().Err(err).Str("url", target).Msg("HTTP request failed")
		return nil, &FetchError{
			Class:   ErrorClassNetwork,
			URL:     target,
			Message: "request failed",
			Err:     err,
		}
	}

	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	// Step 5: Update call bucket from headers
	if err := c.rateLimiter.UpdateFromHeaders(ctx, resp.Header); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to update call limit from headers")
	}

	// Step 6: Reject non-2xx
	if errClass := ClassifyStatus(resp.StatusCode); errClass != "" {
		resp.Body.Close()
		errorsTotal.WithLabelValues(string(errClass)).Inc()
		c.logger.Error().
			Str("url", target).
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("Request error")
		return nil, &FetchError{
			StatusCode: resp.StatusCode,
			Class:      errClass,
			URL:        target,
			Message:    resp.Status,
		}
	}

	// Step 7: Update cache
	if c.cache != nil && req.Method == http.MethodGet && resp.StatusCode == http.StatusOK {
		entry, err := cache.ResponseToEntry(resp, c.config.CacheTTL)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to create cache entry")
		} else if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		} else {
			c.logger.Debug().
				Str("endpoint", endpoint).
				Dur("ttl", entry.TTL()).
				Msg("Cached response")
		}
	}

	return resp, nil
}

// stripURLError drops the *url.Error wrapper, whose message repeats the full
// request URL including credentials.
func stripURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err
	}
	return err
}

// Get performs a GET request to rawURL.
func (c *Client) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.Do(req)
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// RateLimiter returns the call limit tracker.
func (c *Client) RateLimiter() *ratelimit.Tracker {
	return c.rateLimiter
}

// GetCache returns the cache manager, nil when caching is off.
func (c *Client) GetCache() *cache.Manager {
	return c.cache
}
