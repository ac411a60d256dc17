package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the stable Prometheus series named in the observability
// contract: narrative/act/processor outcome counters, act and limiter-wait
// histograms, a limiter-rejection counter, and an actor consecutive-failure
// gauge. Field and metric names are load-bearing — dashboards and alerts
// are written against them.
type Metrics struct {
	NarrativeExecutionsTotal *prometheus.CounterVec
	ActExecutionsTotal       *prometheus.CounterVec
	ActDurationSeconds       *prometheus.HistogramVec
	LimiterWaitSeconds       *prometheus.HistogramVec
	LimiterRejectionsTotal   *prometheus.CounterVec
	ActorConsecutiveFailures *prometheus.GaugeVec
	ProcessorInvocationsTotal *prometheus.CounterVec
	ProcessorDurationSeconds *prometheus.HistogramVec
}

// NewMetrics registers and returns the full metric set against the default
// Prometheus registry. Call once at startup; a second call would panic on
// duplicate registration, matching promauto's behavior.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers the full metric set against reg, letting tests
// use an isolated prometheus.NewRegistry() instead of the process-global
// default registerer.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		NarrativeExecutionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "narrative_executions_total",
			Help: "Total narrative executions by narrative name and outcome.",
		}, []string{"narrative", "outcome"}),

		ActExecutionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "act_executions_total",
			Help: "Total act executions by act name and outcome.",
		}, []string{"act", "outcome"}),

		ActDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "act_duration_seconds",
			Help:    "Duration of a single act execution, including the provider call.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"act"}),

		LimiterWaitSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "limiter_wait_seconds",
			Help:    "Time spent waiting on a rate limiter quota before admission.",
			Buckets: []float64{0, 0.01, 0.1, 0.5, 1, 5, 10, 30, 60},
		}, []string{"provider", "quota"}),

		LimiterRejectionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "limiter_rejections_total",
			Help: "Total non-blocking admission checks that were rejected.",
		}, []string{"provider", "quota"}),

		ActorConsecutiveFailures: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "actor_consecutive_failures",
			Help: "Current consecutive-failure count per actor, reset on any success.",
		}, []string{"actor"}),

		ProcessorInvocationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "processor_invocations_total",
			Help: "Total processor invocations by processor name and outcome.",
		}, []string{"processor", "outcome"}),

		ProcessorDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "processor_duration_seconds",
			Help:    "Duration of a single processor invocation.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		}, []string{"processor"}),
	}
}

// CountNarrativeExecution records a completed narrative execution.
func (m *Metrics) CountNarrativeExecution(narrative, outcome string) {
	m.NarrativeExecutionsTotal.WithLabelValues(narrative, outcome).Inc()
}

// RecordActExecution records a completed act execution's outcome and duration.
func (m *Metrics) RecordActExecution(act, outcome string, d time.Duration) {
	m.ActExecutionsTotal.WithLabelValues(act, outcome).Inc()
	m.ActDurationSeconds.WithLabelValues(act).Observe(d.Seconds())
}

// SetActorConsecutiveFailures publishes an actor's current breaker counter.
func (m *Metrics) SetActorConsecutiveFailures(actor string, n int) {
	m.ActorConsecutiveFailures.WithLabelValues(actor).Set(float64(n))
}

// ObserveLimiterWait implements tier.Recorder.
func (m *Metrics) ObserveLimiterWait(provider, quota string, wait time.Duration) {
	m.LimiterWaitSeconds.WithLabelValues(provider, quota).Observe(wait.Seconds())
}

// CountLimiterRejection implements tier.Recorder.
func (m *Metrics) CountLimiterRejection(provider, quota string) {
	m.LimiterRejectionsTotal.WithLabelValues(provider, quota).Inc()
}

// ObserveProcessorDuration implements processor.Recorder's metrics half.
func (m *Metrics) ObserveProcessorDuration(processorName, outcome string, d time.Duration) {
	m.ProcessorInvocationsTotal.WithLabelValues(processorName, outcome).Inc()
	m.ProcessorDurationSeconds.WithLabelValues(processorName).Observe(d.Seconds())
}
