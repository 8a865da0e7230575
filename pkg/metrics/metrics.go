package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Cache metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edgelink_cache_hits_total",
			Help: "Total number of link record cache hits",
		},
		[]string{"layer"}, // "l1" or "l2"
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edgelink_cache_misses_total",
			Help: "Total number of link record cache misses",
		},
		[]string{"layer"},
	)

	// Request metrics
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "edgelink_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "status"},
	)

	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edgelink_requests_total",
			Help: "Total number of requests",
		},
		[]string{"method", "status"},
	)

	// Redirect decisions by terminal outcome: redirect, not_found, gone,
	// unauthorized, error.
	RedirectOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edgelink_redirect_outcomes_total",
			Help: "Redirect decisions by terminal outcome",
		},
		[]string{"outcome"},
	)

	// Click recording pipeline
	ClickEventsRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "edgelink_click_events_recorded_total",
			Help: "Click events successfully written to the sink",
		},
	)

	ClickEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "edgelink_click_events_dropped_total",
			Help: "Click events dropped because the recorder buffer was full",
		},
	)

	// Database metrics
	DatabaseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "edgelink_database_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	// External geo lookups
	GeoLookupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "edgelink_geo_lookup_duration_seconds",
			Help:    "Geo IP lookup duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25},
		},
	)
)
