// Package browser provides the page-driving sessions used by the collectors.
package browser

import (
	"context"
	"errors"
	"time"

	"github.com/aluiziolira/go-scrape-news/parser"
)

// ErrElementNotFound is returned by Click when the control is absent or
// cannot be activated.
var ErrElementNotFound = errors.New("browser: element not found")

// Session drives a single tab. Every call blocks until the action has been
// issued; callers insert settle waits themselves.
type Session interface {
	Navigate(ctx context.Context, url string) error
	HTML(ctx context.Context) (string, error)
	ScrollToBottom(ctx context.Context) error
	Click(ctx context.Context, loc parser.Locator) error
	Wait(ctx context.Context, d time.Duration) error
	Close() error
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
