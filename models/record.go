// Package models defines data structures for the scraper.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Record is one scraped item keyed by field name. A missing key means the
// field was not extracted; it is not treated as corruption.
type Record map[string]string

// Get returns the value of field and whether it is present and non-blank.
func (r Record) Get(field string) (string, bool) {
	v, ok := r[field]
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

// Identity returns the trimmed value of the identity field.
func (r Record) Identity(field string) string {
	return strings.TrimSpace(r[field])
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// MergeMissing returns a copy of r widened with the fields of extra that r
// does not already carry. Existing values in r are never overwritten.
func (r Record) MergeMissing(extra Record) Record {
	out := r.Clone()
	for k, v := range extra {
		if _, ok := out.Get(k); ok {
			continue
		}
		out[k] = v
	}
	return out
}

// Fields returns the field names in lexical order.
func (r Record) Fields() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// UnmarshalJSON accepts any JSON object. Null values are dropped, numbers and
// booleans keep their literal text, nested values are stored as compact JSON.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("record is not a JSON object")
	}

	out := make(Record, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			out[k] = val
		case json.Number:
			out[k] = val.String()
		case bool:
			out[k] = strconv.FormatBool(val)
		default:
			nested, err := json.Marshal(val)
			if err != nil {
				return fmt.Errorf("field %q: %w", k, err)
			}
			out[k] = string(nested)
		}
	}
	*r = out
	return nil
}

// PhaseResult holds the outcome of one pipeline stage for one source.
type PhaseResult struct {
	Source       string
	Phase        string
	StartTime    time.Time
	EndTime      time.Time
	Pages        int
	Candidates   int
	Appended     int
	Duplicates   int
	Skipped      int
	Failed       int
	FailedIDs    []string
	ErrorsByType map[string]int
	StopReason   string
}

// NewPhaseResult starts a result clock for the given stage.
func NewPhaseResult(source, phase string) *PhaseResult {
	return &PhaseResult{
		Source:       source,
		Phase:        phase,
		StartTime:    time.Now(),
		ErrorsByType: make(map[string]int),
	}
}

// RecordFailure counts a failed item under category.
func (r *PhaseResult) RecordFailure(id, category string) {
	r.Failed++
	r.ErrorsByType[category]++
	if id != "" {
		r.FailedIDs = append(r.FailedIDs, id)
	}
}

// Finish stamps the end time.
func (r *PhaseResult) Finish(reason string) {
	r.EndTime = time.Now()
	if reason != "" {
		r.StopReason = reason
	}
}

// Duration reports how long the stage ran.
func (r *PhaseResult) Duration() time.Duration {
	if r.EndTime.IsZero() {
		return time.Since(r.StartTime)
	}
	return r.EndTime.Sub(r.StartTime)
}
