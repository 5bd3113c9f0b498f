package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aluiziolira/go-scrape-news/browser"
	"github.com/aluiziolira/go-scrape-news/config"
	"github.com/aluiziolira/go-scrape-news/models"
	"github.com/aluiziolira/go-scrape-news/pipeline"
	"github.com/aluiziolira/go-scrape-news/sources"
)

// KeywordCollector runs one site search per keyword and logs a stub holding
// the first hit, or just the keyword when the site reports no results.
type KeywordCollector struct {
	cfg       *config.Config
	src       *sources.Source
	extractor Extractor
	metrics   *Metrics
	nav       *navigator
}

// NewKeywordCollector builds a collector for a keyword source.
func NewKeywordCollector(cfg *config.Config, src *sources.Source, extractor Extractor, metrics *Metrics) *KeywordCollector {
	return &KeywordCollector{
		cfg:       cfg,
		src:       src,
		extractor: extractor,
		metrics:   metrics,
		nav:       newNavigator(cfg, src.Name, PhaseList, metrics),
	}
}

// Collect searches every keyword not yet logged. A failed search is
// counted and left for the next run.
func (c *KeywordCollector) Collect(ctx context.Context, sess browser.Session, p *pipeline.Pipeline, keywords []string) (*models.PhaseResult, error) {
	result := models.NewPhaseResult(c.src.Name, PhaseList)
	if c.src.Keyword == nil {
		return result, fmt.Errorf("source %s has no keyword listing", c.src.Name)
	}

	for _, kw := range keywords {
		if err := ctx.Err(); err != nil {
			result.Finish(StopCancelled)
			return result, err
		}
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		result.Candidates++
		if p.Index().Contains(kw) {
			result.Duplicates++
			continue
		}

		stub, err := c.search(ctx, sess, kw)
		if err != nil {
			if ctx.Err() != nil {
				result.Finish(StopCancelled)
				return result, ctx.Err()
			}
			if errors.Is(err, ErrSessionUnavailable) {
				result.Finish("")
				return result, err
			}
			recordFailure(result, c.metrics, kw, err)
			continue
		}
		result.Pages++
		if err := processTracked(p, result, c.metrics, stub); err != nil {
			result.Finish("")
			return result, fmt.Errorf("append stub: %w", err)
		}
		slog.Debug("keyword logged",
			slog.String("source", c.src.Name),
			slog.String("identity", kw),
			slog.Bool("hit", stub[c.src.VisitField] != ""),
		)
	}

	result.Finish(StopExhausted)
	return result, nil
}

func (c *KeywordCollector) search(ctx context.Context, sess browser.Session, kw string) (models.Record, error) {
	listing := c.src.Keyword
	if err := c.nav.open(ctx, sess, c.src.SearchURL(kw)); err != nil {
		return nil, err
	}
	if err := sess.Wait(ctx, c.cfg.SettleDelay); err != nil {
		return nil, err
	}
	html, err := sess.HTML(ctx)
	if err != nil {
		return nil, err
	}

	stub := models.Record{c.src.Identity: kw}
	if !listing.NoResults.IsZero() {
		text, ok, err := c.extractor.Find(html, listing.NoResults)
		if err != nil {
			return nil, err
		}
		if ok && strings.Contains(text, listing.NoResultsText) {
			return stub, nil
		}
	}

	hit, err := c.extractor.Extract(html, listing.Result)
	if err != nil {
		return nil, err
	}
	if _, ok := hit.Get(c.src.VisitField); !ok {
		return nil, fmt.Errorf("search for %q: %w", kw, ErrNoFields)
	}
	resolveVisit(c.src, hit)
	return stub.MergeMissing(hit), nil
}
