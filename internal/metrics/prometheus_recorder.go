package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "fwbuilder"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	sessionDuration *prom.HistogramVec
	sessionOutcome  *prom.CounterVec
	records         *prom.CounterVec
	generatedLines  *prom.GaugeVec
	generations     *prom.CounterVec
	spawnRetries    *prom.CounterVec
}

// NewPrometheusRecorder constructs the metrics and registers them with reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		sessionDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Duration of build tool sessions",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"operation"}),
		sessionOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "session_outcomes_total",
			Help:      "Build tool sessions by terminal status",
		}, []string{"operation", "status"}),
		records: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "log_records_total",
			Help:      "Classified build output records by severity",
		}, []string{"severity"}),
		generatedLines: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "generated_lines",
			Help:      "Line count of the last generated file per template",
		}, []string{"template"}),
		generations: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Configuration files generated per template",
		}, []string{"template"}),
		spawnRetries: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "spawn_retries_total",
			Help:      "Shell spawn retries by operation",
		}, []string{"operation"}),
	}
	reg.MustRegister(pr.sessionDuration, pr.sessionOutcome, pr.records, pr.generatedLines, pr.generations, pr.spawnRetries)
	return pr
}

func (p *PrometheusRecorder) ObserveSessionDuration(operation string, d time.Duration) {
	if p == nil {
		return
	}
	p.sessionDuration.WithLabelValues(operation).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncSessionOutcome(operation, status string) {
	if p == nil {
		return
	}
	p.sessionOutcome.WithLabelValues(operation, status).Inc()
}

func (p *PrometheusRecorder) IncRecords(severity string, n int) {
	if p == nil || n <= 0 {
		return
	}
	p.records.WithLabelValues(severity).Add(float64(n))
}

func (p *PrometheusRecorder) ObserveGeneration(template string, lines int) {
	if p == nil {
		return
	}
	p.generatedLines.WithLabelValues(template).Set(float64(lines))
	p.generations.WithLabelValues(template).Inc()
}

func (p *PrometheusRecorder) IncSpawnRetry(operation string) {
	if p == nil {
		return
	}
	p.spawnRetries.WithLabelValues(operation).Inc()
}
