package pipeline

import (
	"errors"
	"fmt"
	"sync"

	"github.com/aluiziolira/go-scrape-news/models"
	"github.com/aluiziolira/go-scrape-news/parser"
)

var (
	// ErrPipelineClosed is returned when Process is called after shutdown.
	ErrPipelineClosed = errors.New("pipeline: closed")
)

// RecordLog is the durable sink behind a Pipeline.
type RecordLog interface {
	Append(rec models.Record) error
	Close() error
}

// Pipeline coordinates validation, de-duplication, and appending to a log.
// It runs on the caller's goroutine: when Process returns, every accepted
// record is on disk.
type Pipeline struct {
	log   RecordLog
	index *DedupIndex

	metrics metrics

	mu     sync.Mutex // guards closed/err
	closed bool
	err    error
}

// NewPipeline wires a log to the index that mirrors its contents.
func NewPipeline(log RecordLog, index *DedupIndex) *Pipeline {
	return &Pipeline{
		log:     log,
		index:   index,
		metrics: newMetrics(),
	}
}

// Index exposes the dedup index so callers can skip known work early.
func (p *Pipeline) Index() *DedupIndex {
	return p.index
}

// Process validates, de-duplicates and appends records in order. It returns
// how many were appended. Duplicates and records without identity are
// counted, not reported as errors.
func (p *Pipeline) Process(records ...models.Record) (int, error) {
	closed, err := p.state()
	if err != nil {
		return 0, err
	}
	if closed {
		return 0, ErrPipelineClosed
	}

	appended := 0
	for _, rec := range records {
		if rec == nil {
			continue
		}
		if err := parser.ValidateRecord(rec, p.index.Field()); err != nil {
			p.metrics.addValidation("missing_identity")
			continue
		}

		id := rec.Identity(p.index.Field())
		if !p.index.Add(id) {
			p.metrics.addValidation("duplicate_identity")
			continue
		}
		if err := p.log.Append(rec); err != nil {
			p.index.Remove(id)
			wrapped := fmt.Errorf("append %s: %w", id, err)
			p.setErr(wrapped)
			return appended, wrapped
		}
		p.metrics.incrementProcessed()
		appended++
	}
	return appended, nil
}

// Close closes the underlying log and prevents more submissions.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return p.Err()
	}
	p.closed = true
	p.mu.Unlock()

	if err := p.log.Close(); err != nil {
		return fmt.Errorf("close log: %w", err)
	}
	return p.Err()
}

// Err returns the first error encountered during processing.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	return p.metrics.snapshot()
}

// Duplicates returns how many records were dropped as already seen.
func (p *Pipeline) Duplicates() int {
	return p.metrics.validationCount("duplicate_identity")
}

func (p *Pipeline) setErr(err error) {
	if err == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return
	}
	p.err = err
}

func (p *Pipeline) state() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed, p.err
}

type metrics struct {
	mu         sync.Mutex
	processed  int64
	validation map[string]int
}

func newMetrics() metrics {
	return metrics{
		validation: make(map[string]int),
	}
}

func (m *metrics) incrementProcessed() {
	m.mu.Lock()
	m.processed++
	m.mu.Unlock()
}

func (m *metrics) addValidation(kind string) {
	m.mu.Lock()
	m.validation[kind]++
	m.mu.Unlock()
}

func (m *metrics) validationCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.validation[kind]
}

func (m *metrics) snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	copyValidation := make(map[string]int, len(m.validation))
	for k, v := range m.validation {
		copyValidation[k] = v
	}

	return map[string]interface{}{
		"processed_records": m.processed,
		"validation_errors": copyValidation,
	}
}
