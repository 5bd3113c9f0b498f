package browser

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-news/config"
	"github.com/aluiziolira/go-scrape-news/parser"
	"github.com/gocolly/colly/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// HTTPSession drives server-rendered pages through a colly collector.
// Scrolling is a no-op and Click follows the href of the located element,
// which covers numbered pagination and "next" links.
type HTTPSession struct {
	collector *colly.Collector
	limiter   *rate.Limiter
	cache     *lru.Cache[string, string]
	extractor *parser.Extractor

	mu         sync.Mutex
	currentURL string
	body       string
	loaded     bool

	// per-visit capture from collector callbacks
	fetched  []byte
	finalURL string
	received bool
	status   int
}

// NewHTTPSession builds a session configured from cfg.
func NewHTTPSession(cfg *config.Config) (*HTTPSession, error) {
	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	limit := rate.Inf
	if cfg.RequestsPerSec > 0 {
		limit = rate.Limit(cfg.RequestsPerSec)
	}

	s := &HTTPSession{
		collector: collector,
		limiter:   rate.NewLimiter(limit, 1),
		extractor: parser.NewExtractor(),
	}

	if cfg.PageCacheSize > 0 {
		cache, err := lru.New[string, string](cfg.PageCacheSize)
		if err != nil {
			return nil, fmt.Errorf("create page cache: %w", err)
		}
		s.cache = cache
	}

	collector.OnResponse(func(r *colly.Response) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.fetched = r.Body
		s.finalURL = r.Request.URL.String()
		s.received = true
		s.status = r.StatusCode
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r == nil {
			return
		}
		s.mu.Lock()
		s.status = r.StatusCode
		s.mu.Unlock()
	})

	return s, nil
}

// Navigate loads target and makes it the current page.
func (s *HTTPSession) Navigate(ctx context.Context, target string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.cache != nil {
		if body, ok := s.cache.Get(target); ok {
			s.setPage(target, body)
			return nil
		}
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	s.fetched, s.finalURL, s.received, s.status = nil, "", false, 0
	s.mu.Unlock()

	err := s.collector.Visit(target)

	s.mu.Lock()
	body, finalURL, received, status := s.fetched, s.finalURL, s.received, s.status
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("navigate %s: %w", target, Classify(err, status))
	}
	if !received {
		return fmt.Errorf("navigate %s: no response received", target)
	}
	if finalURL == "" {
		finalURL = target
	}

	page := string(body)
	if s.cache != nil {
		s.cache.Add(target, page)
	}
	s.setPage(finalURL, page)
	return nil
}

// HTML returns the body of the current page.
func (s *HTTPSession) HTML(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return "", errors.New("no page loaded")
	}
	return s.body, nil
}

// ScrollToBottom is a no-op: static pages are fully delivered.
func (s *HTTPSession) ScrollToBottom(ctx context.Context) error {
	return ctx.Err()
}

// Click follows the link addressed by loc (its href unless loc.Attr names
// another attribute).
func (s *HTTPSession) Click(ctx context.Context, loc parser.Locator) error {
	s.mu.Lock()
	body, base, loaded := s.body, s.currentURL, s.loaded
	s.mu.Unlock()
	if !loaded {
		return fmt.Errorf("click %s: %w", loc, ErrElementNotFound)
	}

	if loc.Attr == "" {
		loc = loc.WithAttr("href")
	}
	href, ok, err := s.extractor.Find(body, loc)
	if err != nil || !ok {
		return fmt.Errorf("click %s: %w", loc, ErrElementNotFound)
	}
	next := parser.ResolveURL(base, href)
	if next == base {
		return fmt.Errorf("click %s: link points at current page: %w", loc, ErrElementNotFound)
	}
	return s.Navigate(ctx, next)
}

// Wait blocks for d.
func (s *HTTPSession) Wait(ctx context.Context, d time.Duration) error {
	return Sleep(ctx, d)
}

// Close releases nothing; the collector holds no long-lived resources.
func (s *HTTPSession) Close() error {
	return nil
}

// CurrentURL reports the URL of the current page after redirects.
func (s *HTTPSession) CurrentURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentURL
}

func (s *HTTPSession) setPage(u, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentURL = u
	s.body = body
	s.loaded = true
}
