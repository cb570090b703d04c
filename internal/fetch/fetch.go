// Package fetch retrieves the target homepage HTML with bounded retries,
// recording every attempt to the benchmark recorder.
package fetch

import (
	"context"
	"fmt"
	"time"
)

// Error is the terminal fetch failure, returned only after the retry budget
// is exhausted.
type Error struct {
	URL      string
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Fetcher performs one fetch attempt.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Default retry budget matching the production scraper.
const (
	DefaultMaxRetries     = 3
	DefaultRetryDelay     = 2 * time.Second
	DefaultTimeout        = 30 * time.Second
	DefaultConnectTimeout = 10 * time.Second
)
