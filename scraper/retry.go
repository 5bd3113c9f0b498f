package scraper

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/aluiziolira/go-scrape-news/browser"
	"github.com/aluiziolira/go-scrape-news/config"
)

// retryer re-runs a navigation after transient failures. With MaxRetries at
// zero every failure is returned immediately and left for the next run.
type retryer struct {
	cfg     *config.Config
	metrics *Metrics
	sleep   func(ctx context.Context, d time.Duration) error
}

func newRetryer(cfg *config.Config, metrics *Metrics) *retryer {
	return &retryer{cfg: cfg, metrics: metrics, sleep: browser.Sleep}
}

// Do calls fn until it succeeds, fails permanently, or attempts run out.
func (r *retryer) Do(ctx context.Context, url string, fn func() error) error {
	attempt := 0
	for {
		err := fn()
		if err == nil || !retryable(err) || attempt >= r.cfg.MaxRetries {
			return err
		}
		attempt++
		r.metrics.IncRetries()
		delay := r.backoff(attempt)
		slog.Debug("retrying navigation",
			slog.String("url", url),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("category", browser.ErrorLabel(err)),
		)
		if err := r.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// maxBackoffShift bounds the doubling so large attempt counts saturate
// instead of overflowing.
const maxBackoffShift = 30

func (r *retryer) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := r.cfg.RetryBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	shift := attempt - 1
	if shift > maxBackoffShift {
		shift = maxBackoffShift
	}
	delay := time.Duration(math.MaxInt64)
	if base <= delay>>shift {
		delay = base << shift
	}
	if max := r.cfg.RetryBackoffMax; max > 0 && delay > max {
		delay = max
	}
	return delay
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrSessionUnavailable) {
		return false
	}
	switch browser.ErrorLabel(err) {
	case "timeout", "connection", "rate_limited":
		return true
	}
	return false
}
