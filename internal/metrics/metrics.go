// Package metrics exposes the Prometheus collectors for the honeypot service.
// Collectors register with the default registry at init and are served by
// promhttp on /metrics.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "honeypot"

// Report outcomes.
const (
	OutcomeDelivered = "delivered"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
)

var (
	messagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_total",
		Help:      "Inbound messages processed, by whether the message was flagged",
	}, []string{"flagged"})

	confidence = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "confidence",
		Help:      "Distribution of per-message fraud confidence",
		Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
	})

	reportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reports_total",
		Help:      "Terminal reports by delivery outcome",
	}, []string{"outcome"})

	repliesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "replies_total",
		Help:      "Persona replies by the generator that produced them",
	}, []string{"source"})

	sessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions",
		Help:      "Live sessions held in memory",
	})

	sessionsEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_evicted_total",
		Help:      "Sessions removed by the idle sweeper",
	})
)

// RecordMessage counts one scored message and its confidence.
func RecordMessage(flagged bool, conf float64) {
	messagesTotal.WithLabelValues(strconv.FormatBool(flagged)).Inc()
	confidence.Observe(conf)
}

// RecordReport counts a report outcome.
func RecordReport(outcome string) {
	reportsTotal.WithLabelValues(outcome).Inc()
}

// RecordReply counts a reply by source.
func RecordReply(source string) {
	repliesTotal.WithLabelValues(source).Inc()
}

// SetSessions sets the live session gauge.
func SetSessions(n int) {
	sessions.Set(float64(n))
}

// RecordEvictions counts sessions removed by the sweeper.
func RecordEvictions(n int) {
	sessionsEvicted.Add(float64(n))
}
