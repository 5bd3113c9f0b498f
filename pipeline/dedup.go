package pipeline

import (
	"sync"

	"github.com/aluiziolira/go-scrape-news/models"
)

// DedupIndex is the set of identities already present in a log.
type DedupIndex struct {
	field string

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewDedupIndex builds an empty index keyed by the identity field.
func NewDedupIndex(field string) *DedupIndex {
	return &DedupIndex{
		field: field,
		seen:  make(map[string]struct{}),
	}
}

// Field returns the identity field name.
func (d *DedupIndex) Field() string {
	return d.field
}

// Seed adds the identity of every record. Records without one are ignored;
// seeding the same records twice leaves the set unchanged.
func (d *DedupIndex) Seed(records []models.Record) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, rec := range records {
		if id := rec.Identity(d.field); id != "" {
			d.seen[id] = struct{}{}
		}
	}
}

// SeedFrom replays the log at path into the index.
func (d *DedupIndex) SeedFrom(path string) error {
	records, err := LoadAll(path)
	if err != nil {
		return err
	}
	d.Seed(records)
	return nil
}

// Contains reports whether id has been seen.
func (d *DedupIndex) Contains(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.seen[id]
	return ok
}

// Add records id and reports whether it was new.
func (d *DedupIndex) Add(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[id]; ok {
		return false
	}
	d.seen[id] = struct{}{}
	return true
}

// Remove forgets id. Used to roll back a reservation whose append failed.
func (d *DedupIndex) Remove(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, id)
}

// Len returns the number of identities.
func (d *DedupIndex) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
