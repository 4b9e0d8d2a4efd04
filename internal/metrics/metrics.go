// Package metrics provides Prometheus instrumentation for the FraudShield engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

const namespace = "fraudshield"

// Collector holds every FraudShield metric. It satisfies the ledger, transaction and case
// MetricsCollector interfaces.
type Collector struct {
	registry *prometheus.Registry

	settlementsTotal   *prometheus.CounterVec
	settlementDuration *prometheus.HistogramVec
	conflictRetries    *prometheus.CounterVec
	volumeTotal        *prometheus.CounterVec

	assessmentsTotal *prometheus.CounterVec
	riskScore        prometheus.Histogram
	failedAttempts   *prometheus.CounterVec
	idempotentHits   *prometheus.CounterVec

	casesOpened     prometheus.Counter
	caseTransitions *prometheus.CounterVec
	disputesTotal   *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates a Collector registered on its own registry, along with the Go and process
// collectors.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),

		settlementsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_settlements_total",
			Help:      "Ledger settlements by kind and outcome.",
		}, []string{"kind", "outcome"}),
		settlementDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ledger_settlement_duration_seconds",
			Help:      "Ledger settlement duration in seconds, retries included.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"kind"}),
		conflictRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_conflict_retries_total",
			Help:      "Settlement attempts retried after a lock or serialization conflict.",
		}, []string{"kind"}),
		volumeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_volume_total",
			Help:      "Settled amount by kind.",
		}, []string{"kind"}),

		assessmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "risk_assessments_total",
			Help:      "Recorded transactions by risk level and flag.",
		}, []string{"level", "flagged"}),
		riskScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "risk_score",
			Help:      "Distribution of risk scores of recorded transactions.",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
		failedAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failed_attempts_total",
			Help:      "Attempts that did not settle, by transfer kind and error code.",
		}, []string{"kind", "code"}),
		idempotentHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "idempotent_replays_total",
			Help:      "Submissions answered from an earlier settlement, by source.",
		}, []string{"source"}),

		casesOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cases_opened_total",
			Help:      "Fraud cases opened by reports.",
		}),
		caseTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "case_transitions_total",
			Help:      "Fraud case transitions by source and target status.",
		}, []string{"from", "to"}),
		disputesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "disputes_total",
			Help:      "Transaction disputes by notification result.",
		}, []string{"notified"}),

		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.settlementsTotal,
		c.settlementDuration,
		c.conflictRetries,
		c.volumeTotal,
		c.assessmentsTotal,
		c.riskScore,
		c.failedAttempts,
		c.idempotentHits,
		c.casesOpened,
		c.caseTransitions,
		c.disputesTotal,
		c.httpRequests,
		c.httpDuration,
	)
	return c
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) RecordSettlement(kind, outcome string, duration time.Duration) {
	c.settlementsTotal.WithLabelValues(kind, outcome).Inc()
	c.settlementDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

func (c *Collector) RecordConflictRetry(kind string) {
	c.conflictRetries.WithLabelValues(kind).Inc()
}

func (c *Collector) RecordVolume(kind string, amount decimal.Decimal) {
	c.volumeTotal.WithLabelValues(kind).Add(amount.InexactFloat64())
}

func (c *Collector) RecordAssessment(level string, flagged bool, score float64) {
	c.assessmentsTotal.WithLabelValues(level, strconv.FormatBool(flagged)).Inc()
	c.riskScore.Observe(score)
}

func (c *Collector) RecordFailedAttempt(kind, code string) {
	c.failedAttempts.WithLabelValues(kind, code).Inc()
}

func (c *Collector) RecordIdempotentHit(source string) {
	c.idempotentHits.WithLabelValues(source).Inc()
}

func (c *Collector) RecordCaseOpened() {
	c.casesOpened.Inc()
}

func (c *Collector) RecordCaseTransition(from, to string) {
	c.caseTransitions.WithLabelValues(from, to).Inc()
}

func (c *Collector) RecordDispute(notified bool) {
	c.disputesTotal.WithLabelValues(strconv.FormatBool(notified)).Inc()
}

// RecordHTTPRequest records one served request. route is the matched pattern, not the raw path.
func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
