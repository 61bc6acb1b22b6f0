// Package fetch implements the resilient HTTP client shared by all
// upstream data sources. Transient upstream failures (rate limiting
// and server-side errors) are retried with exponential backoff;
// non-retryable statuses surface immediately as typed errors so
// callers can branch on access denial.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"corrpulse/internal/metrics"
)

// retryableStatus is the fixed set of transient upstream statuses.
var retryableStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// StatusError is returned for any non-2xx upstream response, carrying
// the final status after retries were exhausted.
type StatusError struct {
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream request failed (%d): %s", e.Status, e.Body)
}

// IsAccessDenied reports whether err marks an upstream entitlement
// denial (HTTP 403). Fallback chains switch on this rather than on
// error strings.
func IsAccessDenied(err error) bool {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	return statusErr.Status == http.StatusForbidden
}

// IsRetryable reports whether status belongs to the transient set.
func IsRetryable(status int) bool {
	return retryableStatus[status]
}

// Options configures a Client. Zero values fall back to the defaults
// noted on each field.
type Options struct {
	// Retries is the maximum number of retry attempts after the first
	// request (default 2).
	Retries int
	// BaseBackoff is the first retry delay, doubled per attempt
	// (default 250ms).
	BaseBackoff time.Duration
	// Timeout is the per-request deadline (default 30s).
	Timeout time.Duration
	// RequestsPerSecond paces outbound requests; zero disables pacing.
	RequestsPerSecond float64
}

// Client issues GET requests with bounded retry and optional pacing.
type Client struct {
	http        *http.Client
	retries     int
	baseBackoff time.Duration
	limiter     *rate.Limiter
	logger      *slog.Logger
	userAgent   string
}

// NewClient creates a resilient client. A nil logger uses the default.
func NewClient(opts Options, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Retries <= 0 {
		opts.Retries = 2
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = 250 * time.Millisecond
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &Client{
		http:        &http.Client{Timeout: opts.Timeout},
		retries:     opts.Retries,
		baseBackoff: opts.BaseBackoff,
		limiter:     limiter,
		logger:      logger.With(slog.String("component", "fetch_client")),
		userAgent:   "corrpulse/1.0",
	}
}

// Get fetches url and returns the response body. Statuses in the
// retryable set are retried with exponential backoff until the retry
// budget is spent; the final response is then surfaced as-is. Any
// other non-2xx status returns a *StatusError immediately. Transport
// errors are not retried.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		body, status, err := c.do(ctx, url)
		if err != nil {
			return nil, err
		}

		if status >= 200 && status < 300 {
			return body, nil
		}

		if !IsRetryable(status) || attempt >= c.retries {
			return nil, &StatusError{URL: url, Status: status, Body: truncate(string(body), 512)}
		}

		backoff := c.baseBackoff << attempt
		metrics.FetchRetries.Inc()
		c.logger.WarnContext(ctx, "retrying upstream request",
			slog.String("url", url),
			slog.Int("status", status),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", backoff),
		)

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (c *Client) do(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response body: %w", err)
	}
	return body, resp.StatusCode, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
