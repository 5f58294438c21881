package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/quake-map/internal/domain"
	"github.com/couchcryptid/quake-map/internal/observability"
	"golang.org/x/time/rate"
)

const (
	defaultUserAgent = "quake-map/1.0"
	maxBodyBytes     = 64 << 20
	maxErrorBody     = 512
)

// Options configures a feed Client.
type Options struct {
	Name        string        // metric and log label, e.g. "quakes"
	URL         string        // GeoJSON document to fetch
	Timeout     time.Duration // per-request timeout
	MinInterval time.Duration // minimum spacing between requests; 0 disables
	UserAgent   string
	Cache       *ConditionalCache // shared ETag cache; nil creates a private one
}

// Client fetches a single GeoJSON feed over HTTP.
// It implements pipeline.FeedExtractor.
type Client struct {
	name       string
	url        string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *ConditionalCache
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a feed client.
func NewClient(opts Options, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Cache == nil {
		opts.Cache = NewConditionalCache()
	}
	var limiter *rate.Limiter
	if opts.MinInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.MinInterval), 1)
	}
	return &Client{
		name:       opts.Name,
		url:        opts.URL,
		userAgent:  opts.UserAgent,
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    limiter,
		cache:      opts.Cache,
		metrics:    metrics,
		logger:     logger,
	}
}

// Name returns the feed label.
func (c *Client) Name() string { return c.name }

// Extract downloads the feed document. When the server answers 304 Not
// Modified the previously downloaded body is returned with Cached set.
func (c *Client) Extract(ctx context.Context) (domain.RawFeed, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return domain.RawFeed{}, fmt.Errorf("%s feed rate limiter wait: %w", c.name, err)
		}
	}

	start := time.Now()
	feed, outcome, err := c.doRequest(ctx)
	c.metrics.FeedDuration.WithLabelValues(c.name).Observe(time.Since(start).Seconds())
	c.metrics.FeedRequests.WithLabelValues(c.name, outcome).Inc()
	if err != nil {
		return domain.RawFeed{}, err
	}

	c.logger.Debug("feed fetched",
		"feed", c.name,
		"bytes", len(feed.Body),
		"cached", feed.Cached,
	)
	return feed, nil
}

func (c *Client) doRequest(ctx context.Context) (domain.RawFeed, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return domain.RawFeed{}, "error", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/geo+json, application/json")

	cached, hasCached := c.cache.get(c.url)
	if hasCached {
		if cached.etag != "" {
			req.Header.Set("If-None-Match", cached.etag)
		}
		if cached.lastModified != "" {
			req.Header.Set("If-Modified-Since", cached.lastModified)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.RawFeed{}, "error", fmt.Errorf("%s feed request: %w", c.name, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return domain.RawFeed{}, "error", fmt.Errorf("%s feed read body: %w", c.name, err)
		}
		c.cache.put(c.url, cachedFeed{
			etag:         resp.Header.Get("ETag"),
			lastModified: resp.Header.Get("Last-Modified"),
			body:         body,
		})
		return c.rawFeed(body, false), "success", nil

	case http.StatusNotModified:
		if !hasCached {
			return domain.RawFeed{}, "error", fmt.Errorf("%s feed: 304 without a cached body", c.name)
		}
		return c.rawFeed(cached.body, true), "not_modified", nil

	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return domain.RawFeed{}, "error", fmt.Errorf("%s feed: status %d: %s", c.name, resp.StatusCode, body)
	}
}

func (c *Client) rawFeed(body []byte, cached bool) domain.RawFeed {
	return domain.RawFeed{
		Source:    c.name,
		URL:       c.url,
		Body:      body,
		FetchedAt: time.Now().UTC(),
		Cached:    cached,
	}
}
