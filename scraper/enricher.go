package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aluiziolira/go-scrape-news/browser"
	"github.com/aluiziolira/go-scrape-news/config"
	"github.com/aluiziolira/go-scrape-news/models"
	"github.com/aluiziolira/go-scrape-news/parser"
	"github.com/aluiziolira/go-scrape-news/pipeline"
	"github.com/aluiziolira/go-scrape-news/sources"
)

// DetailEnricher visits each stub's page and logs the stub widened with the
// fields read there.
type DetailEnricher struct {
	cfg       *config.Config
	src       *sources.Source
	extractor Extractor
	metrics   *Metrics
	nav       *navigator
}

// NewDetailEnricher builds an enricher for src.
func NewDetailEnricher(cfg *config.Config, src *sources.Source, extractor Extractor, metrics *Metrics) *DetailEnricher {
	return &DetailEnricher{
		cfg:       cfg,
		src:       src,
		extractor: extractor,
		metrics:   metrics,
		nav:       newNavigator(cfg, src.Name, PhaseDetail, metrics),
	}
}

// Enrich processes stubs in order. A stub whose page fails or yields no
// fields is counted and skipped; it is retried on the next run. Only log
// failures and cancellation stop the loop.
func (e *DetailEnricher) Enrich(ctx context.Context, sess browser.Session, stubs []models.Record, p *pipeline.Pipeline) (*models.PhaseResult, error) {
	result := models.NewPhaseResult(e.src.Name, PhaseDetail)

	for _, stub := range stubs {
		if err := ctx.Err(); err != nil {
			result.Finish(StopCancelled)
			return result, err
		}

		id := stub.Identity(e.src.Identity)
		if id == "" {
			result.Skipped++
			continue
		}
		if p.Index().Contains(id) {
			result.Duplicates++
			continue
		}
		result.Candidates++

		rec := stub
		if visit, ok := stub.Get(e.src.VisitField); ok {
			enriched, err := e.enrichOne(ctx, sess, stub, visit)
			if err != nil {
				if ctx.Err() != nil {
					result.Finish(StopCancelled)
					return result, ctx.Err()
				}
				if errors.Is(err, ErrSessionUnavailable) {
					result.Finish("")
					return result, err
				}
				recordFailure(result, e.metrics, id, err)
				continue
			}
			result.Pages++
			rec = enriched
		}

		if err := processTracked(p, result, e.metrics, rec); err != nil {
			result.Finish("")
			return result, fmt.Errorf("append record: %w", err)
		}
		slog.Debug("record enriched",
			slog.String("source", e.src.Name),
			slog.String("identity", id),
			slog.Int("fields", len(rec)),
		)
	}

	result.Finish(StopExhausted)
	return result, nil
}

func (e *DetailEnricher) enrichOne(ctx context.Context, sess browser.Session, stub models.Record, visit string) (models.Record, error) {
	if err := e.nav.open(ctx, sess, visit); err != nil {
		return nil, err
	}
	if err := sess.Wait(ctx, e.cfg.SettleDelay); err != nil {
		return nil, err
	}
	html, err := sess.HTML(ctx)
	if err != nil {
		return nil, err
	}

	fields, err := e.extractor.Extract(html, e.src.Detail)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", visit, err)
	}
	if rows := e.src.Rows; rows != nil {
		items, err := e.extractor.ExtractItems(html, rows.Row, rows.Fields)
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", visit, err)
		}
		if len(items) > 0 {
			raw, err := json.Marshal(items)
			if err != nil {
				return nil, fmt.Errorf("encode %s: %w", rows.Name, err)
			}
			if fields == nil {
				fields = models.Record{}
			}
			fields[rows.Name] = string(raw)
		}
	}
	if len(fields) == 0 {
		if e.src.KeepBareStubs {
			slog.Debug("detail page empty, keeping stub",
				slog.String("source", e.src.Name),
				slog.String("url", visit),
			)
			return stub.Clone(), nil
		}
		return nil, fmt.Errorf("%s: %w", visit, ErrNoFields)
	}

	merged := stub.MergeMissing(fields)
	for _, name := range e.src.DateFields {
		raw, ok := merged.Get(name)
		if !ok {
			continue
		}
		if _, exists := merged.Get(name + "_iso"); exists {
			continue
		}
		if iso, ok := parser.NormalizeDate(raw); ok {
			merged[name+"_iso"] = iso
		}
	}
	return merged, nil
}
