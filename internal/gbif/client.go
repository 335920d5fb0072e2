// Package gbif talks to the GBIF species and occurrence APIs: name resolution,
// bounded occurrence pagination and point sampling.
package gbif

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jackedney/bio-explorer/internal/metrics"
	"github.com/jackedney/bio-explorer/internal/model"
	"github.com/jackedney/bio-explorer/internal/ratelimit"
	"github.com/jackedney/bio-explorer/internal/util"
)

// retrySleepFunc waits between retries (injectable for tests)
var retrySleepFunc = sleepContext

// Client is the shared upstream transport. It is safe for concurrent use
// and holds no per-search state.
type Client struct {
	httpClient *http.Client
	baseURL    string
	host       string
	userAgent  string
	maxBytes   int64
	limiter    *ratelimit.Limiter
	retry      model.RetryConfig
	logger     *slog.Logger
}

// ClientOption customises a Client
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for request diagnostics
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// WithLimiter replaces the upstream throttle
func WithLimiter(l *ratelimit.Limiter) ClientOption {
	return func(c *Client) { c.limiter = l }
}

// NewClient creates the process-wide upstream client from configuration
func NewClient(cfg *model.Config, opts ...ClientOption) (*Client, error) {
	base := strings.TrimRight(cfg.Upstream.BaseURL, "/")
	host, err := ratelimit.HostKey(base)
	if err != nil {
		return nil, fmt.Errorf("upstream base url: %w", err)
	}

	proxy, err := util.NewProxyFunc(cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy)
	if err != nil {
		return nil, err
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.HTTP.Timeout,
			Transport: &http.Transport{
				Proxy:               proxy,
				MaxIdleConns:        cfg.HTTP.MaxIdleConns,
				MaxIdleConnsPerHost: cfg.HTTP.MaxIdleConns,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		baseURL:   base,
		host:      host,
		userAgent: cfg.HTTP.UserAgent,
		maxBytes:  cfg.HTTP.MaxBodyBytes,
		limiter:   ratelimit.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize, 0),
		retry:     cfg.Retry,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.maxBytes <= 0 {
		c.maxBytes = 16 << 20
	}
	if c.retry.MaxAttempts <= 0 {
		c.retry.MaxAttempts = 1
	}

	return c, nil
}

// Close releases pooled connections
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// getJSON performs a throttled GET against endpoint and decodes the body into out.
// Rate-limited responses are retried with capped exponential backoff.
func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	rawURL := c.baseURL + endpoint
	if len(params) > 0 {
		rawURL += "?" + params.Encode()
	}

	var err error
	for attempt := 0; attempt < c.retry.MaxAttempts; attempt++ {
		if waitErr := c.limiter.Wait(ctx, c.host); waitErr != nil {
			return unreachable(endpoint, waitErr)
		}

		err = c.get(ctx, endpoint, rawURL, out)
		if !isRetryableUpstreamError(err) {
			return err
		}
		if attempt == c.retry.MaxAttempts-1 {
			break
		}

		delay := c.backoff(attempt, err)
		metrics.UpstreamRetries.WithLabelValues(endpoint).Inc()
		c.logger.Warn("upstream rate limited, backing off",
			"endpoint", endpoint, "attempt", attempt+1, "delay", delay)
		if sleepErr := retrySleepFunc(ctx, delay); sleepErr != nil {
			return unreachable(endpoint, sleepErr)
		}
	}

	return err
}

func (c *Client) get(ctx context.Context, endpoint, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.UpstreamLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(endpoint, "transport").Inc()
		return unreachable(endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.UpstreamRequests.WithLabelValues(endpoint, "status").Inc()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return badStatus(endpoint, resp.StatusCode, parseRetryAfter(resp.Header.Get("Retry-After")))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes))
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(endpoint, "transport").Inc()
		return unreachable(endpoint, fmt.Errorf("read body: %w", err))
	}

	if err := json.Unmarshal(body, out); err != nil {
		metrics.UpstreamRequests.WithLabelValues(endpoint, "decode").Inc()
		return malformed(endpoint, fmt.Errorf("decode body: %w", err))
	}

	metrics.UpstreamRequests.WithLabelValues(endpoint, "ok").Inc()
	return nil
}

// backoff doubles BaseDelay per attempt, prefers a longer Retry-After, and caps at MaxDelay
func (c *Client) backoff(attempt int, err error) time.Duration {
	delay := c.retry.BaseDelay << uint(attempt)

	var ue *UpstreamError
	if errors.As(err, &ue) && ue.RetryAfter > delay {
		delay = ue.RetryAfter
	}
	if c.retry.MaxDelay > 0 && delay > c.retry.MaxDelay {
		delay = c.retry.MaxDelay
	}
	return delay
}

// isRetryableUpstreamError reports whether err is a 429 response
func isRetryableUpstreamError(err error) bool {
	if err == nil {
		return false
	}
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.StatusCode == http.StatusTooManyRequests
}

// parseRetryAfter understands the delta-seconds form only
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
