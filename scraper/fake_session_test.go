package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-news/browser"
	"github.com/aluiziolira/go-scrape-news/config"
	"github.com/aluiziolira/go-scrape-news/parser"
	"github.com/aluiziolira/go-scrape-news/sources"
)

const feedStart = "https://news.test/business"

// fakeSession serves a listing that grows by one page per successful click
// and a fixed set of detail pages keyed by URL.
type fakeSession struct {
	mu       sync.Mutex
	feed     []string
	feedIdx  int
	pages    map[string]string
	navErr   map[string]error
	current  string
	calls    []string
	navCount int
	closed   bool
}

func newFakeSession(feed ...string) *fakeSession {
	return &fakeSession{
		feed:   feed,
		pages:  make(map[string]string),
		navErr: make(map[string]error),
	}
}

func (f *fakeSession) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeSession) Navigate(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	f.record("navigate " + url)
	f.navCount++
	if err, ok := f.navErr[url]; ok {
		return err
	}
	f.current = url
	f.feedIdx = 0
	return nil
}

func (f *fakeSession) HTML(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("html")
	if f.current == feedStart && len(f.feed) > 0 {
		return f.feed[f.feedIdx], nil
	}
	if html, ok := f.pages[f.current]; ok {
		return html, nil
	}
	return "", browser.ErrNotFound{Err: fmt.Errorf("no page for %q", f.current)}
}

func (f *fakeSession) ScrollToBottom(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("scroll")
	return nil
}

func (f *fakeSession) Click(ctx context.Context, loc parser.Locator) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("click")
	if f.current != feedStart || f.feedIdx+1 >= len(f.feed) {
		return browser.ErrElementNotFound
	}
	f.feedIdx++
	return nil
}

func (f *fakeSession) Wait(ctx context.Context, d time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("wait " + d.String())
	return ctx.Err()
}

func (f *fakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSession) navigations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.navCount
}

func (f *fakeSession) snapshotCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

var errBoom = errors.New("boom")

func testConfig(t interface{ TempDir() string }) *config.Config {
	cfg := config.DefaultConfig()
	cfg.OutputDir = t.TempDir()
	cfg.SettleDelay = 3 * time.Second
	cfg.ScrollDelay = time.Second
	cfg.MaxExpandMisses = 2
	cfg.MaxCycles = 20
	cfg.TargetCount = 100
	cfg.ExportFormat = "csv"
	return cfg
}

func listingHTML(paths ...string) string {
	var b strings.Builder
	b.WriteString("<html><body><ul>")
	for _, p := range paths {
		fmt.Fprintf(&b, `<li class="story"><a href="%s">%s</a></li>`, p, strings.TrimPrefix(p, "/"))
	}
	b.WriteString(`</ul><button class="more">Load more</button></body></html>`)
	return b.String()
}

func articleHTML(title string) string {
	return "<html><body><h1>" + title + "</h1></body></html>"
}

func testFeedSource() *sources.Source {
	return &sources.Source{
		Name:       "feed",
		Identity:   "url",
		VisitField: "url",
		StartURL:   feedStart,
		Feed: &sources.FeedListing{
			Item: parser.CSSLocator("li.story"),
			Fields: []parser.FieldSpec{
				{Name: "url", Locators: []parser.Locator{parser.CSSLocator("a").WithAttr("href")}},
			},
			LoadMore: parser.CSSLocator("button.more"),
		},
		Detail: []parser.FieldSpec{parser.Field("title", "h1")},
	}
}
