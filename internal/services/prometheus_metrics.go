package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric names accepted by the recorders
const (
	MetricRowsNormalized   = "ingest.rows.normalized"
	MetricRowsSkipped      = "ingest.rows.skipped"
	MetricFormatDetected   = "format.detected"
	MetricRulesApplied     = "rules.applied"
	MetricRuleMutation     = "rule.mutation"
	MetricRuleStoreFailure = "rule_store.failure"
	MetricNormalizeTime    = "ingest.normalize"
	MetricClassifyTime     = "ingest.classify"
	MetricRuleCount        = "rules.count"
)

type PrometheusMetrics struct {
	rowsTotal        *prometheus.CounterVec
	detectionsTotal  *prometheus.CounterVec
	rulesApplied     *prometheus.CounterVec
	ruleMutations    *prometheus.CounterVec
	ruleStoreErrors  *prometheus.CounterVec
	normalizeLatency prometheus.Histogram
	classifyLatency  prometheus.Histogram
	ruleCount        prometheus.Gauge
}

// NewPrometheusMetrics registers the pipeline collectors with reg
func NewPrometheusMetrics(reg prometheus.Registerer) MetricsRecorderInterface {
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		rowsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_rows_total",
				Help: "Total number of raw rows processed by normalizers",
			},
			[]string{"schema", "status"},
		),
		detectionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "format_detections_total",
				Help: "Total number of header rows classified by the format detector",
			},
			[]string{"schema"},
		),
		rulesApplied: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rules_applied_total",
				Help: "Total number of transactions changed by category rules",
			},
			[]string{"mode"},
		),
		ruleMutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rule_mutations_total",
				Help: "Total number of rule set mutations",
			},
			[]string{"op"},
		),
		ruleStoreErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rule_store_errors_total",
				Help: "Total number of rule store load and save failures",
			},
			[]string{"op"},
		),
		normalizeLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ingest_normalize_duration_milliseconds",
				Help:    "Normalization duration per file in milliseconds",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
		),
		classifyLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ingest_classify_duration_milliseconds",
				Help:    "Rule application duration per file in milliseconds",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
		),
		ruleCount: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "category_rules",
				Help: "Current number of category rules",
			},
		),
	}
}

func (m *PrometheusMetrics) IncrementCounter(name string, tags map[string]string) {
	schema := tags["schema"]

	switch name {
	case MetricRowsNormalized:
		m.rowsTotal.WithLabelValues(schema, "ok").Inc()
	case MetricRowsSkipped:
		m.rowsTotal.WithLabelValues(schema, "skipped").Inc()
	case MetricFormatDetected:
		m.detectionsTotal.WithLabelValues(schema).Inc()
	case MetricRulesApplied:
		if mode := tags["mode"]; mode != "" {
			m.rulesApplied.WithLabelValues(mode).Inc()
		}
	case MetricRuleMutation:
		if op := tags["op"]; op != "" {
			m.ruleMutations.WithLabelValues(op).Inc()
		}
	case MetricRuleStoreFailure:
		if op := tags["op"]; op != "" {
			m.ruleStoreErrors.WithLabelValues(op).Inc()
		}
	}
}

func (m *PrometheusMetrics) RecordProcessingTime(name string, duration time.Duration) {
	switch name {
	case MetricNormalizeTime:
		m.normalizeLatency.Observe(float64(duration.Milliseconds()))
	case MetricClassifyTime:
		m.classifyLatency.Observe(float64(duration.Milliseconds()))
	}
}

func (m *PrometheusMetrics) RecordGauge(name string, value float64, tags map[string]string) {
	switch name {
	case MetricRulesApplied:
		if mode := tags["mode"]; mode != "" {
			m.rulesApplied.WithLabelValues(mode).Add(value)
		}
	case MetricRowsNormalized:
		m.rowsTotal.WithLabelValues(tags["schema"], "ok").Add(value)
	case MetricRowsSkipped:
		m.rowsTotal.WithLabelValues(tags["schema"], "skipped").Add(value)
	case MetricRuleCount:
		m.ruleCount.Set(value)
	}
}

// NoopMetrics discards everything
type NoopMetrics struct{}

func (NoopMetrics) IncrementCounter(string, map[string]string) {}
func (NoopMetrics) RecordProcessingTime(string, time.Duration) {}
func (NoopMetrics) RecordGauge(string, float64, map[string]string) {}
