package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scraper.
type Metrics struct {
	Registry           *prometheus.Registry
	PagesTotal         *prometheus.CounterVec
	NavigationDuration prometheus.Histogram
	RecordsTotal       *prometheus.CounterVec
	DuplicatesTotal    *prometheus.CounterVec
	RetriesTotal       prometheus.Counter
	ErrorsTotal        *prometheus.CounterVec
	FallbacksTotal     *prometheus.CounterVec
	ListingCycles      *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	pages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_pages_total",
			Help: "Total pages loaded by the scraper.",
		},
		[]string{"source", "phase"},
	)
	navigationDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_navigation_duration_seconds",
			Help:    "Time spent loading a page, excluding settle waits.",
			Buckets: prometheus.DefBuckets,
		},
	)
	records := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_records_appended_total",
			Help: "Total records appended to a log.",
		},
		[]string{"source", "phase"},
	)
	duplicates := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_duplicates_total",
			Help: "Total records skipped because their identity was already logged.",
		},
		[]string{"source", "phase"},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_retries_total",
			Help: "Total number of navigation retries.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_errors_total",
			Help: "Total number of scraper errors by type.",
		},
		[]string{"error_type"},
	)
	fallbacks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_field_fallbacks_total",
			Help: "Fields resolved by a secondary locator.",
		},
		[]string{"field"},
	)
	cycles := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_listing_cycles_total",
			Help: "Listing state machine transitions by state.",
		},
		[]string{"state"},
	)

	registry.MustRegister(pages, navigationDuration, records, duplicates, retries, errorsTotal, fallbacks, cycles)

	return &Metrics{
		Registry:           registry,
		PagesTotal:         pages,
		NavigationDuration: navigationDuration,
		RecordsTotal:       records,
		DuplicatesTotal:    duplicates,
		RetriesTotal:       retries,
		ErrorsTotal:        errorsTotal,
		FallbacksTotal:     fallbacks,
		ListingCycles:      cycles,
	}
}

// IncPage counts one loaded page.
func (m *Metrics) IncPage(source, phase string) {
	if m == nil {
		return
	}
	m.PagesTotal.WithLabelValues(source, phase).Inc()
}

// ObserveNavigation records how long a navigation took.
func (m *Metrics) ObserveNavigation(d time.Duration) {
	if m == nil {
		return
	}
	m.NavigationDuration.Observe(d.Seconds())
}

// AddRecords counts appended records.
func (m *Metrics) AddRecords(source, phase string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RecordsTotal.WithLabelValues(source, phase).Add(float64(n))
}

// AddDuplicates counts skipped duplicates.
func (m *Metrics) AddDuplicates(source, phase string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.DuplicatesTotal.WithLabelValues(source, phase).Add(float64(n))
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncFallback counts a field that needed a secondary locator.
func (m *Metrics) IncFallback(field string) {
	if m == nil {
		return
	}
	m.FallbacksTotal.WithLabelValues(field).Inc()
}

// IncCycle counts a listing state transition.
func (m *Metrics) IncCycle(state string) {
	if m == nil {
		return
	}
	m.ListingCycles.WithLabelValues(state).Inc()
}
