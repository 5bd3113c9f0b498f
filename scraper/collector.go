package scraper

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aluiziolira/go-scrape-news/browser"
	"github.com/aluiziolira/go-scrape-news/config"
	"github.com/aluiziolira/go-scrape-news/models"
	"github.com/aluiziolira/go-scrape-news/pipeline"
	"github.com/aluiziolira/go-scrape-news/sources"
)

// Listing states.
const (
	StateNavigated = "navigated"
	StateScrolled  = "scrolled"
	StateExpanded  = "expanded"
	StateParsed    = "parsed"
	StateContinue  = "continue"
	StateStop      = "stop"
)

// Stop reasons reported on the listing result.
const (
	StopTarget    = "target_reached"
	StopExhausted = "exhausted"
	StopMaxCycles = "max_cycles"
	StopCancelled = "cancelled"
)

// FeedCollector walks an expanding listing page and logs one stub per item.
type FeedCollector struct {
	cfg       *config.Config
	src       *sources.Source
	extractor Extractor
	metrics   *Metrics
	nav       *navigator

	// OnState observes every state transition; used by tests.
	OnState func(state string)
}

// NewFeedCollector builds a collector for a feed source.
func NewFeedCollector(cfg *config.Config, src *sources.Source, extractor Extractor, metrics *Metrics) *FeedCollector {
	return &FeedCollector{
		cfg:       cfg,
		src:       src,
		extractor: extractor,
		metrics:   metrics,
		nav:       newNavigator(cfg, src.Name, PhaseList, metrics),
	}
}

// Collect appends new stubs to p until the target is met or the listing is
// exhausted. Stubs already in p's index are skipped, so a rerun resumes.
func (c *FeedCollector) Collect(ctx context.Context, sess browser.Session, p *pipeline.Pipeline) (*models.PhaseResult, error) {
	result := models.NewPhaseResult(c.src.Name, PhaseList)
	if c.src.Feed == nil {
		return result, fmt.Errorf("source %s has no feed listing", c.src.Name)
	}
	feed := c.src.Feed
	target := c.cfg.TargetCount

	if p.Index().Len() >= target {
		result.Finish(StopTarget)
		return result, nil
	}

	start := c.cfg.StartURL
	if start == "" {
		start = c.src.StartURL
	}
	if err := c.nav.open(ctx, sess, start); err != nil {
		result.Finish("")
		return result, fmt.Errorf("navigate %s: %w", start, err)
	}
	c.transition(StateNavigated)
	if err := sess.Wait(ctx, c.cfg.SettleDelay); err != nil {
		result.Finish(StopCancelled)
		return result, err
	}

	misses := 0
	for cycle := 1; cycle <= c.cfg.MaxCycles; cycle++ {
		if err := ctx.Err(); err != nil {
			result.Finish(StopCancelled)
			return result, err
		}

		if err := sess.ScrollToBottom(ctx); err != nil {
			slog.Debug("scroll failed", slog.String("source", c.src.Name), slog.Any("error", err))
		}
		if err := sess.Wait(ctx, c.cfg.ScrollDelay); err != nil {
			result.Finish(StopCancelled)
			return result, err
		}
		c.transition(StateScrolled)

		if err := c.expand(ctx, sess, feed); err != nil {
			misses++
			slog.Debug("load more unavailable",
				slog.String("source", c.src.Name),
				slog.Int("misses", misses),
				slog.Any("error", err),
			)
		} else {
			misses = 0
			if err := sess.Wait(ctx, c.cfg.SettleDelay); err != nil {
				result.Finish(StopCancelled)
				return result, err
			}
		}
		c.transition(StateExpanded)

		if err := c.parse(ctx, sess, feed, p, result, target); err != nil {
			result.Finish("")
			return result, err
		}
		c.transition(StateParsed)
		result.Pages++

		slog.Debug("listing cycle",
			slog.String("source", c.src.Name),
			slog.Int("cycle", cycle),
			slog.Int("logged", p.Index().Len()),
			slog.Int("target", target),
		)

		switch {
		case p.Index().Len() >= target:
			c.transition(StateStop)
			result.Finish(StopTarget)
			return result, nil
		case misses >= c.cfg.MaxExpandMisses:
			c.transition(StateStop)
			result.Finish(StopExhausted)
			return result, nil
		}
		c.transition(StateContinue)
	}

	c.transition(StateStop)
	result.Finish(StopMaxCycles)
	return result, nil
}

func (c *FeedCollector) expand(ctx context.Context, sess browser.Session, feed *sources.FeedListing) error {
	if feed.LoadMore.IsZero() {
		return browser.ErrElementNotFound
	}
	return sess.Click(ctx, feed.LoadMore)
}

// parse reads the current page and appends unseen stubs up to target. A
// page that cannot be read is skipped; only log failures are returned.
func (c *FeedCollector) parse(ctx context.Context, sess browser.Session, feed *sources.FeedListing, p *pipeline.Pipeline, result *models.PhaseResult, target int) error {
	html, err := sess.HTML(ctx)
	if err != nil {
		recordFailure(result, c.metrics, "", err)
		return nil
	}
	stubs, err := c.extractor.ExtractItems(html, feed.Item, feed.Fields)
	if err != nil {
		recordFailure(result, c.metrics, "", err)
		return nil
	}

	for _, stub := range stubs {
		if p.Index().Len() >= target {
			break
		}
		result.Candidates++
		resolveVisit(c.src, stub)
		if stub.Identity(c.src.Identity) == "" {
			result.Skipped++
			continue
		}
		if err := processTracked(p, result, c.metrics, stub); err != nil {
			return fmt.Errorf("append stub: %w", err)
		}
	}
	return nil
}

func (c *FeedCollector) transition(state string) {
	c.metrics.IncCycle(state)
	if c.OnState != nil {
		c.OnState(state)
	}
}
