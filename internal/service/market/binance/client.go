package binance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/KNICEX/market-sentry/internal/service/market"
	"github.com/go-resty/resty/v2"
	"github.com/jpillora/backoff"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

const (
	defaultMaxAttempts             = 5
	defaultMaxFailuresBeforeSwitch = 3
	defaultBaseDelay               = time.Second
	defaultMaxDelay                = 10 * time.Second
	defaultRequestSpacing          = time.Second
	defaultMaxConcurrent           = 3
	defaultTimeout                 = 15 * time.Second

	metricInflight = "market_requests_inflight"
)

var DefaultEndpoints = []string{
	"https://fapi.binance.com",
	"https://fapi1.binance.com",
	"https://fapi2.binance.com",
}

// Client talks to the USDT-M futures REST API. It bounds outbound concurrency,
// spaces requests to one per interval, retries transient failures with
// exponential backoff and rotates to the next base endpoint after a run of
// consecutive failures.
type Client struct {
	clients []*resty.Client

	mu              sync.Mutex
	current         int
	consecutive     int
	maxBeforeSwitch int

	sem     *semaphore.Weighted
	spacing *rate.Limiter

	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration

	metrics market.Metrics
}

type Option func(c *Client)

func WithMetrics(m market.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		c.maxAttempts = n
	}
}

func WithBaseDelay(d time.Duration) Option {
	return func(c *Client) {
		c.baseDelay = d
	}
}

func WithRequestSpacing(d time.Duration) Option {
	return func(c *Client) {
		c.spacing = rate.NewLimiter(rate.Every(d), 1)
	}
}

func WithMaxFailuresBeforeSwitch(n int) Option {
	return func(c *Client) {
		c.maxBeforeSwitch = n
	}
}

func NewClient(endpoints []string, opts ...Option) (*Client, error) {
	if len(endpoints) < 2 {
		return nil, fmt.Errorf("need at least 2 base endpoints, got %d", len(endpoints))
	}

	c := &Client{
		maxAttempts:     defaultMaxAttempts,
		maxBeforeSwitch: defaultMaxFailuresBeforeSwitch,
		baseDelay:       defaultBaseDelay,
		maxDelay:        defaultMaxDelay,
		sem:             semaphore.NewWeighted(defaultMaxConcurrent),
		spacing:         rate.NewLimiter(rate.Every(defaultRequestSpacing), 1),
		metrics:         market.NopMetrics{},
	}
	for _, opt := range opts {
		opt(c)
	}

	for _, ep := range endpoints {
		c.clients = append(c.clients, resty.New().
			SetBaseURL(ep).
			SetTimeout(defaultTimeout).
			SetRetryCount(0)) // retries are owned by the client, not resty
	}
	return c, nil
}

// get runs one GET operation under the concurrency and spacing permits,
// retrying transient failures. The decoded body lands in out via decode.
func (c *Client) get(ctx context.Context, op, path string, params map[string]string, decode func([]byte) error) error {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.sem.Release(1)

	c.metrics.Increment(metricInflight)
	defer c.metrics.Decrement(metricInflight)

	bo := &backoff.Backoff{
		Min:    c.baseDelay,
		Max:    c.maxDelay,
		Factor: 2,
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := c.spacing.Wait(ctx); err != nil {
			return err
		}

		cli, idx := c.currentClient()
		resp, err := cli.R().
			SetContext(ctx).
			SetQueryParams(params).
			Get(path)

		switch {
		case err != nil:
			lastErr = err
		case resp.StatusCode() < 200 || resp.StatusCode() > 299:
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode(), resp.String())
		default:
			if decErr := decode(resp.Body()); decErr != nil {
				// malformed on one endpoint is malformed on all of them
				return fmt.Errorf("%w: %s: %v", market.ErrMalformedResponse, op, decErr)
			}
			c.recordSuccess()
			return nil
		}

		c.recordFailure(op, idx)
		slog.Warn("market request failed",
			"op", op, "endpoint", idx, "attempt", attempt, "error", lastErr)

		if attempt == c.maxAttempts {
			break
		}
		if err := sleepCtx(ctx, bo.Duration()); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w: %s after %d attempts: %v", market.ErrRetriesExhausted, op, c.maxAttempts, lastErr)
}

func (c *Client) currentClient() (*resty.Client, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clients[c.current], c.current
}

func (c *Client) recordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consecutive = 0
}

// recordFailure counts a transport failure and rotates the active endpoint
// once the run of consecutive failures reaches the switch limit.
func (c *Client) recordFailure(op string, failedIdx int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.consecutive++
	if c.consecutive < c.maxBeforeSwitch {
		return
	}
	c.consecutive = 0
	c.current = (c.current + 1) % len(c.clients)
	slog.Info("switching market endpoint",
		"op", op, "from", failedIdx, "to", c.current)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsRetryExhausted reports whether err is the terminal retry failure of one
// operation, as opposed to a malformed payload.
func IsRetryExhausted(err error) bool {
	return errors.Is(err, market.ErrRetriesExhausted)
}
