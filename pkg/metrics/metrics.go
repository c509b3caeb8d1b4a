package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	ChecksInQueue = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "facility_checks_in_queue",
			Help: "Current number of facility checks waiting in the queue.",
		},
	)

	FacilityChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "facility_checks_total",
			Help: "Total number of facility activity checks by outcome.",
		},
		[]string{"status"}, // new, active, dormant, unknown, error
	)

	FacilityCheckDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "facility_check_duration_seconds",
			Help:    "Duration of a full facility activity check.",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 240},
		},
		[]string{"status"},
	)

	PageFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "page_fetches_total",
			Help: "Total number of page renders during facility checks.",
		},
		[]string{"kind", "result"}, // kind: root, internal, external, feed; result: success, failure
	)

	StatusTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "facility_status_transitions_total",
			Help: "Total number of facility status changes.",
		},
		[]string{"from", "to"},
	)

	EventsIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_ingested_total",
			Help: "Total number of event records stored, by source.",
		},
		[]string{"source"},
	)
)
