package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-scrape-news/config"
	"github.com/aluiziolira/go-scrape-news/parser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

const scrollScript = `window.scrollTo(0, document.body.scrollHeight);`

// ChromeSession drives one tab of a real Chrome through the DevTools
// protocol. It either launches a browser or attaches to one already
// listening on a debugging port.
type ChromeSession struct {
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
}

// NewChromeSession starts (or attaches to) Chrome and opens a tab.
func NewChromeSession(cfg *config.Config) (*ChromeSession, error) {
	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
	)
	if cfg.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(context.Background(), cfg.RemoteURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", cfg.Headless),
			chromedp.NoSandbox,
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("blink-settings", "imagesEnabled=false"),
			chromedp.UserAgent(cfg.UserAgent),
		)
		allocCtx, allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	}

	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(chromeLogf),
		chromedp.WithErrorf(chromeLogf),
	)
	cancel := func() {
		tabCancel()
		allocCancel()
	}

	// An empty Run starts the browser so launch failures surface here.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	return &ChromeSession{
		ctx:     tabCtx,
		cancel:  cancel,
		timeout: cfg.Timeout,
	}, nil
}

// Navigate loads url and waits for the load event. An error status on the
// main document is classified like an HTTP response.
func (s *ChromeSession) Navigate(ctx context.Context, url string) error {
	var resp *network.Response
	err := s.do(ctx, func(runCtx context.Context) error {
		var err error
		resp, err = chromedp.RunResponse(runCtx, chromedp.Navigate(url))
		return err
	})
	if err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if resp != nil {
		if err := StatusError(int(resp.Status)); err != nil {
			return fmt.Errorf("navigate %s: %w", url, err)
		}
	}
	return nil
}

// HTML returns the rendered document.
func (s *ChromeSession) HTML(ctx context.Context) (string, error) {
	var out string
	if err := s.run(ctx, chromedp.OuterHTML("html", &out, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read html: %w", err)
	}
	return out, nil
}

// ScrollToBottom scrolls the window to the end of the document.
func (s *ChromeSession) ScrollToBottom(ctx context.Context) error {
	if err := s.run(ctx, chromedp.Evaluate(scrollScript, nil)); err != nil {
		return fmt.Errorf("scroll: %w", err)
	}
	return nil
}

// Click scrolls the first element matched by loc into view and clicks it.
func (s *ChromeSession) Click(ctx context.Context, loc parser.Locator) error {
	var nodes []*cdp.Node
	if err := s.run(ctx, chromedp.Nodes(loc.Expr, &nodes, queryBy(loc), chromedp.AtLeast(0))); err != nil {
		return fmt.Errorf("locate %s: %w", loc, err)
	}
	if len(nodes) == 0 {
		return fmt.Errorf("click %s: %w", loc, ErrElementNotFound)
	}
	if err := s.run(ctx, chromedp.MouseClickNode(nodes[0])); err != nil {
		return fmt.Errorf("click %s: %w: %w", loc, ErrElementNotFound, err)
	}
	return nil
}

// Wait blocks for d.
func (s *ChromeSession) Wait(ctx context.Context, d time.Duration) error {
	return Sleep(ctx, d)
}

// Close shuts the tab and, when launched locally, the browser.
func (s *ChromeSession) Close() error {
	s.cancel()
	return nil
}

func (s *ChromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	return s.do(ctx, func(runCtx context.Context) error {
		return chromedp.Run(runCtx, actions...)
	})
}

// do calls fn on the tab context bounded by the session timeout and ctx.
func (s *ChromeSession) do(ctx context.Context, fn func(runCtx context.Context) error) error {
	runCtx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := fn(runCtx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return Classify(err, 0)
	}
	return nil
}

func queryBy(loc parser.Locator) chromedp.QueryOption {
	if loc.Kind == parser.XPath {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

func chromeLogf(format string, args ...interface{}) {
	slog.Debug(fmt.Sprintf(format, args...), slog.String("component", "chromedp"))
}
