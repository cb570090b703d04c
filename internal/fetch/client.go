package fetch

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/luanbrandao/newswatch/internal/bench"
	"github.com/luanbrandao/newswatch/internal/logging"
	"github.com/luanbrandao/newswatch/internal/metrics"
)

// Config controls the retry budget.
type Config struct {
	MaxRetries int           // total attempts, not retries after the first
	RetryDelay time.Duration // base delay; wait is RetryDelay * attempt number
}

// Client wraps a Fetcher with linear-backoff retries. Each attempt, success
// or failure, is recorded to the recorder; only the final failure is
// returned, wrapped in *Error.
type Client struct {
	fetcher  Fetcher
	cfg      Config
	recorder bench.Recorder
	logger   *zap.Logger
}

// NewClient builds a retrying Client. A nil recorder discards samples.
func NewClient(fetcher Fetcher, cfg Config, recorder bench.Recorder, logger *zap.Logger) *Client {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if recorder == nil {
		recorder = bench.NopRecorder{}
	}
	return &Client{
		fetcher:  fetcher,
		cfg:      cfg,
		recorder: recorder,
		logger:   logging.OrNop(logger),
	}
}

// Fetch retrieves url, retrying transient failures up to the budget. The
// backoff between attempt n and n+1 is RetryDelay*n and suspends on the
// context rather than blocking.
func (c *Client) Fetch(ctx context.Context, url string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		start := time.Now()
		html, err := c.fetcher.Fetch(ctx, url)
		sample := bench.RequestSample{
			Target:  url,
			Start:   start,
			End:     time.Now(),
			Success: err == nil,
		}
		if err != nil {
			sample.Error = err.Error()
		} else {
			sample.ResponseSize = int64(len(html))
		}
		c.recorder.Record(sample)

		if err == nil {
			metrics.ObserveFetchAttempt("success")
			return html, nil
		}
		metrics.ObserveFetchAttempt("error")
		lastErr = err
		c.logger.Warn("fetch attempt failed",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt == c.cfg.MaxRetries {
			break
		}
		select {
		case <-time.After(c.cfg.RetryDelay * time.Duration(attempt)):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", &Error{URL: url, Attempts: c.cfg.MaxRetries, Err: lastErr}
}
