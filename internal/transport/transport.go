// Package transport issues paced, retrying HTTP requests against the remote API.
//
// Every outbound request, retries included, first takes a token from a shared
// limiter (one token per RequestDelay, burst 1). This is a flat minimum spacing
// that relies on requests being issued one at a time.
package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hpungsan/kifu/internal/config"
	"github.com/hpungsan/kifu/internal/errors"
	"github.com/hpungsan/kifu/internal/logging"
)

// maxBackoff caps a single retry wait, Retry-After included.
const maxBackoff = 120 * time.Second

// retryStatuses are the responses treated as transient.
var retryStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// idempotentMethods may be retried.
var idempotentMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodOptions: true,
	http.MethodTrace:   true,
	http.MethodPut:     true,
	http.MethodDelete:  true,
}

// Options configures a Client.
type Options struct {
	// MaxAttempts is the total number of tries per request. Values below 1 mean 1.
	MaxAttempts int

	// BackoffBase is the wait before the first retry; it doubles on each further retry.
	BackoffBase time.Duration

	// RequestDelay is the minimum spacing between outbound requests. Zero disables pacing.
	RequestDelay time.Duration

	UserAgent string

	// HTTPClient defaults to a client without an overall timeout.
	HTTPClient *http.Client
}

// Client is a paced, retrying HTTP client.
type Client struct {
	http        *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	backoffBase time.Duration
	userAgent   string
}

// New creates a Client from options.
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	limit := rate.Inf
	if opts.RequestDelay > 0 {
		limit = rate.Every(opts.RequestDelay)
	}

	attempts := opts.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	return &Client{
		http:        httpClient,
		limiter:     rate.NewLimiter(limit, 1),
		maxAttempts: attempts,
		backoffBase: opts.BackoffBase,
		userAgent:   opts.UserAgent,
	}
}

// NewFromConfig creates a Client using the transport settings of cfg.
func NewFromConfig(cfg *config.Config) *Client {
	return New(Options{
		MaxAttempts:  cfg.MaxAttempts,
		BackoffBase:  cfg.BackoffBase(),
		RequestDelay: cfg.RequestDelay(),
		UserAgent:    cfg.UserAgent,
	})
}

// Fetch GETs url and returns the body of a 2xx response.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	return c.Do(ctx, http.MethodGet, url)
}

// Do performs a bodiless request. Transient failures of idempotent methods are
// retried; anything else that is not 2xx comes back as a FETCH_FAILED error
// carrying the last HTTP status (0 when no response arrived). Context
// cancellation returns the context error.
func (c *Client) Do(ctx context.Context, method, url string) ([]byte, error) {
	attempts := c.maxAttempts
	if !idempotentMethods[method] {
		attempts = 1
	}

	req, err := http.NewRequestWithContext(ctx, method, url, http.NoBody)
	if err != nil {
		return nil, errors.NewFetchFailed(url, 0, fmt.Errorf("create request: %w", err))
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	var lastStatus int
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}

		logging.Debug().Str("method", method).Str("url", url).Int("attempt", attempt).Msg("request")

		res, err := c.once(req)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err == nil && res.status >= 200 && res.status < 300 {
			return res.body, nil
		}

		lastErr = err
		lastStatus = 0
		var retryAfter time.Duration
		if err == nil {
			lastStatus = res.status
			retryAfter = res.retryAfter
			if !retryStatuses[res.status] {
				break
			}
		}

		if attempt == attempts {
			break
		}

		delay := c.backoff(attempt)
		if retryAfter > 0 {
			delay = retryAfter
		}

		logging.Warn().
			Str("url", url).
			Int("status", lastStatus).
			Err(lastErr).
			Int("attempt", attempt).
			Int("max_attempts", attempts).
			Dur("retry_delay", delay).
			Msg("transient failure, retrying")

		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, errors.NewFetchFailed(url, lastStatus, lastErr)
}

type response struct {
	status     int
	body       []byte
	retryAfter time.Duration
}

// once performs a single request and reads the full body.
// The request has no body, so it can be sent again on retry.
func (c *Client) once(req *http.Request) (*response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	res := &response{status: resp.StatusCode, body: body}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
		res.retryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
	}
	return res, nil
}

// backoff returns the wait before retry n (n >= 1): base * 2^(n-1), capped.
func (c *Client) backoff(n int) time.Duration {
	if c.backoffBase <= 0 {
		return 0
	}
	d := c.backoffBase
	for i := 1; i < n; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return min(d, maxBackoff)
}

// parseRetryAfter accepts the delta-seconds form only.
func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return min(time.Duration(secs)*time.Second, maxBackoff)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
