// Package metrics holds the Prometheus collectors of the engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vita"

var (
	Registry = prometheus.NewRegistry()

	lookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "foods",
			Name:      "lookups_total",
			Help:      "Food provider attempts by outcome.",
		},
		[]string{"provider", "kind", "outcome"},
	)

	lookupDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "foods",
			Name:      "lookup_duration_seconds",
			Help:      "Duration of food provider attempts.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"provider", "kind"},
	)

	normalizations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "foods",
			Name:      "normalizations_total",
			Help:      "Normalization requests by source and result.",
		},
		[]string{"source", "result"},
	)

	coachReplies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "coach",
			Name:      "replies_total",
			Help:      "Coach replies by whether they parsed as structured JSON.",
		},
		[]string{"structured"},
	)

	targets = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "energy",
			Name:      "targets_computed_total",
			Help:      "Target computations, labelled by activity factor fallback.",
		},
		[]string{"fallback"},
	)

	entries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "entries_logged_total",
			Help:      "Logged entries by kind.",
		},
		[]string{"kind"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "route"},
	)
)

func init() {
	Registry.MustRegister(
		lookups,
		lookupDuration,
		normalizations,
		coachReplies,
		targets,
		entries,
		httpRequests,
		httpDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Recorder satisfies the lookup and coach observer interfaces of the service
// package.
type Recorder struct{}

func (Recorder) ObserveLookup(provider, kind, outcome string, elapsed time.Duration) {
	lookups.WithLabelValues(provider, kind, outcome).Inc()
	lookupDuration.WithLabelValues(provider, kind).Observe(elapsed.Seconds())
}

func (Recorder) ObserveCoachReply(structured bool) {
	coachReplies.WithLabelValues(strconv.FormatBool(structured)).Inc()
}

func RecordNormalization(source string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	normalizations.WithLabelValues(source, result).Inc()
}

func RecordTargets(fallback bool) {
	targets.WithLabelValues(strconv.FormatBool(fallback)).Inc()
}

func RecordEntry(kind string) {
	entries.WithLabelValues(kind).Inc()
}

func RecordHTTP(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
