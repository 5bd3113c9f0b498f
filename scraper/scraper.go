// Package scraper drives the listing, detail and export phases for a source.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-scrape-news/browser"
	"github.com/aluiziolira/go-scrape-news/config"
	"github.com/aluiziolira/go-scrape-news/models"
	"github.com/aluiziolira/go-scrape-news/parser"
	"github.com/aluiziolira/go-scrape-news/pipeline"
	"github.com/aluiziolira/go-scrape-news/sources"
)

// ErrNoFields marks a detail page that yielded none of the source's fields.
var ErrNoFields = errors.New("no detail fields extracted")

// Phase names used in results, logs and metric labels.
const (
	PhaseList   = "list"
	PhaseDetail = "detail"
	PhaseExport = "export"
)

// Extractor turns rendered HTML into records. *parser.Extractor satisfies it.
type Extractor interface {
	Extract(html string, specs []parser.FieldSpec) (models.Record, error)
	ExtractItems(html string, item parser.Locator, specs []parser.FieldSpec) ([]models.Record, error)
	Find(html string, loc parser.Locator) (string, bool, error)
}

// navigator loads pages with timing, metrics and optional retries.
type navigator struct {
	source  string
	phase   string
	retry   *retryer
	metrics *Metrics
}

func newNavigator(cfg *config.Config, source, phase string, metrics *Metrics) *navigator {
	return &navigator{
		source:  source,
		phase:   phase,
		retry:   newRetryer(cfg, metrics),
		metrics: metrics,
	}
}

func (n *navigator) open(ctx context.Context, sess browser.Session, url string) error {
	start := time.Now()
	err := n.retry.Do(ctx, url, func() error {
		return sess.Navigate(ctx, url)
	})
	n.metrics.ObserveNavigation(time.Since(start))
	if err != nil {
		return err
	}
	n.metrics.IncPage(n.source, n.phase)
	return nil
}

// processTracked runs records through p and folds the counts into result.
func processTracked(p *pipeline.Pipeline, result *models.PhaseResult, metrics *Metrics, records ...models.Record) error {
	before := p.Duplicates()
	n, err := p.Process(records...)
	dups := p.Duplicates() - before

	result.Appended += n
	result.Duplicates += dups
	metrics.AddRecords(result.Source, result.Phase, n)
	metrics.AddDuplicates(result.Source, result.Phase, dups)
	return err
}

// recordFailure logs and counts one failed item.
func recordFailure(result *models.PhaseResult, metrics *Metrics, id string, err error) {
	category := browser.ErrorLabel(err)
	if errors.Is(err, ErrNoFields) {
		category = "no_fields"
	}
	result.RecordFailure(id, category)
	metrics.IncError(category)
	slog.Warn("item failed",
		slog.String("source", result.Source),
		slog.String("phase", result.Phase),
		slog.String("identity", id),
		slog.String("category", category),
		slog.Any("error", err),
	)
}

// openPipeline opens the log at path and seeds a dedup index from it.
func openPipeline(cfg *config.Config, path, identity string) (*pipeline.Pipeline, error) {
	index := pipeline.NewDedupIndex(identity)
	if err := index.SeedFrom(path); err != nil {
		return nil, fmt.Errorf("seed index: %w", err)
	}
	log, err := pipeline.OpenAppendLog(path, pipeline.LogOptions{SyncWrites: cfg.SyncWrites})
	if err != nil {
		return nil, err
	}
	return pipeline.NewPipeline(log, index), nil
}

func resolveVisit(src *sources.Source, rec models.Record) {
	if v, ok := rec.Get(src.VisitField); ok && src.BaseURL != "" {
		rec[src.VisitField] = parser.ResolveURL(src.BaseURL, v)
	}
}
