// Package metrics holds the service's prometheus collectors
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fraud",
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fraud",
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15),
		},
		[]string{"method", "route"},
	)

	// Scoring metrics
	AssessmentDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "fraud",
			Subsystem: "scoring",
			Name:      "assessment_duration_seconds",
			Help:      "Decision gate latency including context gathering",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
	)

	AssessmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fraud",
			Subsystem: "scoring",
			Name:      "assessments_total",
			Help:      "Assessments by recommendation",
		},
		[]string{"recommendation"},
	)

	FlagsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fraud",
			Subsystem: "scoring",
			Name:      "flags_total",
			Help:      "Triggered flags by signal type and rule",
		},
		[]string{"signal_type", "rule_key"},
	)

	DegradedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fraud",
			Subsystem: "scoring",
			Name:      "degraded_total",
			Help:      "Assessments that ran degraded, by reason",
		},
		[]string{"reason"},
	)

	// Review and ledger metrics
	ResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fraud",
			Subsystem: "review",
			Name:      "resolutions_total",
			Help:      "Signal resolutions by decision",
		},
		[]string{"decision"},
	)

	LedgerMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fraud",
			Subsystem: "trust",
			Name:      "ledger_mutations_total",
			Help:      "Trust ledger mutations by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	AuditWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fraud",
			Subsystem: "audit",
			Name:      "writes_total",
			Help:      "Background audit writes by target and outcome",
		},
		[]string{"target", "outcome"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fraud",
			Subsystem: "collector",
			Name:      "active_sessions",
			Help:      "Sessions opened minus sessions closed since start",
		},
	)
)
