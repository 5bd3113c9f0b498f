package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-news/browser"
	"github.com/aluiziolira/go-scrape-news/config"
	"github.com/aluiziolira/go-scrape-news/models"
	"github.com/aluiziolira/go-scrape-news/parser"
	"github.com/aluiziolira/go-scrape-news/pipeline"
	"github.com/aluiziolira/go-scrape-news/sources"
)

// SessionFactory opens a browser session for one phase.
type SessionFactory func(cfg *config.Config) (browser.Session, error)

// Driver runs the phases for a source. Each phase opens the log it writes,
// owns it for the duration, and can be rerun on its own.
type Driver struct {
	cfg        *config.Config
	NewSession SessionFactory
	Extractor  Extractor
	Metrics    *Metrics
}

// NewDriver wires the default session factory and extractor.
func NewDriver(cfg *config.Config, metrics *Metrics) *Driver {
	extractor := parser.NewExtractor()
	extractor.OnFallback = func(field string, index int) {
		metrics.IncFallback(field)
		slog.Debug("field resolved by fallback locator", slog.String("field", field), slog.Int("locator", index))
	}
	return &Driver{
		cfg:        cfg,
		NewSession: browser.New,
		Extractor:  extractor,
		Metrics:    metrics,
	}
}

// Collect runs the listing phase into <source>_list.jsonl.
func (d *Driver) Collect(ctx context.Context, src *sources.Source) (result *models.PhaseResult, err error) {
	p, err := openPipeline(d.cfg, src.ListPath(d.cfg.OutputDir), src.Identity)
	if err != nil {
		return nil, fmt.Errorf("open list log: %w", err)
	}
	defer func() {
		if cerr := p.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	sess := d.lazySession()
	defer sess.Close()

	slog.Info("collecting listing",
		slog.String("source", src.Name),
		slog.Int("already_logged", p.Index().Len()),
	)

	if src.IsKeyword() {
		keywords, kerr := sources.LoadKeywords(d.cfg.KeywordFile)
		if kerr != nil {
			return nil, kerr
		}
		return NewKeywordCollector(d.cfg, src, d.Extractor, d.Metrics).Collect(ctx, sess, p, keywords)
	}
	return NewFeedCollector(d.cfg, src, d.Extractor, d.Metrics).Collect(ctx, sess, p)
}

// Enrich runs the detail phase over the listing log into <source>_data.jsonl.
func (d *Driver) Enrich(ctx context.Context, src *sources.Source) (result *models.PhaseResult, err error) {
	stubs, err := pipeline.LoadAll(src.ListPath(d.cfg.OutputDir))
	if err != nil {
		return nil, fmt.Errorf("load list log: %w", err)
	}

	p, err := openPipeline(d.cfg, src.DataPath(d.cfg.OutputDir), src.Identity)
	if err != nil {
		return nil, fmt.Errorf("open data log: %w", err)
	}
	defer func() {
		if cerr := p.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	sess := d.lazySession()
	defer sess.Close()

	slog.Info("enriching records",
		slog.String("source", src.Name),
		slog.Int("stubs", len(stubs)),
		slog.Int("already_logged", p.Index().Len()),
	)
	return NewDetailEnricher(d.cfg, src, d.Extractor, d.Metrics).Enrich(ctx, sess, stubs, p)
}

// Export writes the detail log as a <source>_data.<format> snapshot.
func (d *Driver) Export(src *sources.Source) (*models.PhaseResult, error) {
	result := models.NewPhaseResult(src.Name, PhaseExport)
	records, err := pipeline.LoadAll(src.DataPath(d.cfg.OutputDir))
	if err != nil {
		return nil, fmt.Errorf("load data log: %w", err)
	}

	path := src.ExportPath(d.cfg.OutputDir, d.cfg.ExportFormat)
	if err := pipeline.Export(records, path, d.cfg.ExportFormat, src.Identity); err != nil {
		return nil, fmt.Errorf("export %s: %w", path, err)
	}
	result.Candidates = len(records)
	result.Appended = len(records)
	result.Finish("")

	slog.Info("export written",
		slog.String("source", src.Name),
		slog.String("path", path),
		slog.Int("rows", len(records)),
	)
	return result, nil
}

// Run executes listing, detail and export in order, stopping at the first
// phase that fails.
func (d *Driver) Run(ctx context.Context, src *sources.Source) ([]*models.PhaseResult, error) {
	var results []*models.PhaseResult

	listed, err := d.Collect(ctx, src)
	if listed != nil {
		results = append(results, listed)
	}
	if err != nil {
		return results, fmt.Errorf("%s listing: %w", src.Name, err)
	}

	enriched, err := d.Enrich(ctx, src)
	if enriched != nil {
		results = append(results, enriched)
	}
	if err != nil {
		return results, fmt.Errorf("%s detail: %w", src.Name, err)
	}

	exported, err := d.Export(src)
	if exported != nil {
		results = append(results, exported)
	}
	if err != nil {
		return results, fmt.Errorf("%s export: %w", src.Name, err)
	}
	return results, nil
}

func (d *Driver) lazySession() *lazySession {
	return &lazySession{cfg: d.cfg, factory: d.NewSession}
}

// lazySession defers opening the browser until the first navigation, so a
// phase with nothing left to do never launches one.
type lazySession struct {
	cfg     *config.Config
	factory SessionFactory

	mu     sync.Mutex
	sess   browser.Session
	failed error
}

// ErrSessionUnavailable reports that the browser could not be opened. A
// phase stops on it instead of charging every pending record.
var ErrSessionUnavailable = errors.New("browser session unavailable")

var errNoSession = errors.New("browser session not started")

// get opens the session on first use. A failed open is remembered so the
// factory runs at most once per phase.
func (l *lazySession) get() (browser.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sess != nil {
		return l.sess, nil
	}
	if l.failed != nil {
		return nil, l.failed
	}
	sess, err := l.factory(l.cfg)
	if err != nil {
		l.failed = fmt.Errorf("%w: %w", ErrSessionUnavailable, err)
		return nil, l.failed
	}
	l.sess = sess
	return sess, nil
}

func (l *lazySession) current() (browser.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sess == nil {
		return nil, errNoSession
	}
	return l.sess, nil
}

func (l *lazySession) Navigate(ctx context.Context, url string) error {
	sess, err := l.get()
	if err != nil {
		return err
	}
	return sess.Navigate(ctx, url)
}

func (l *lazySession) HTML(ctx context.Context) (string, error) {
	sess, err := l.current()
	if err != nil {
		return "", err
	}
	return sess.HTML(ctx)
}

func (l *lazySession) ScrollToBottom(ctx context.Context) error {
	sess, err := l.current()
	if err != nil {
		return err
	}
	return sess.ScrollToBottom(ctx)
}

func (l *lazySession) Click(ctx context.Context, loc parser.Locator) error {
	sess, err := l.current()
	if err != nil {
		return err
	}
	return sess.Click(ctx, loc)
}

func (l *lazySession) Wait(ctx context.Context, d time.Duration) error {
	sess, err := l.current()
	if err != nil {
		return browser.Sleep(ctx, d)
	}
	return sess.Wait(ctx, d)
}

func (l *lazySession) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sess == nil {
		return nil
	}
	err := l.sess.Close()
	l.sess = nil
	return err
}
