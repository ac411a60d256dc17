package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func newTestMetrics() *Metrics {
	return NewMetricsWith(prometheus.NewRegistry())
}

func TestRecordActExecution(t *testing.T) {
	m := newTestMetrics()
	m.RecordActExecution("greet", "success", 250*time.Millisecond)

	assert.Equal(t, 1, testutil.CollectAndCount(m.ActExecutionsTotal))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ActDurationSeconds))
}

func TestCountNarrativeExecution(t *testing.T) {
	m := newTestMetrics()
	m.CountNarrativeExecution("onboarding", "success")
	m.CountNarrativeExecution("onboarding", "failure")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.NarrativeExecutionsTotal.WithLabelValues("onboarding", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.NarrativeExecutionsTotal.WithLabelValues("onboarding", "failure")))
}

func TestSetActorConsecutiveFailures(t *testing.T) {
	m := newTestMetrics()
	m.SetActorConsecutiveFailures("acme-actor", 2)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.ActorConsecutiveFailures.WithLabelValues("acme-actor")))

	m.SetActorConsecutiveFailures("acme-actor", 0)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.ActorConsecutiveFailures.WithLabelValues("acme-actor")))
}

func TestObserveLimiterWaitAndRejection(t *testing.T) {
	m := newTestMetrics()
	m.ObserveLimiterWait("anthropic", "rpm", 30*time.Second)
	m.CountLimiterRejection("anthropic", "rpm")

	assert.Equal(t, 1, testutil.CollectAndCount(m.LimiterWaitSeconds))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.LimiterRejectionsTotal.WithLabelValues("anthropic", "rpm")))
}

func TestObserveProcessorDuration(t *testing.T) {
	m := newTestMetrics()
	m.ObserveProcessorDuration("content_generation", "success", 10*time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.ProcessorInvocationsTotal.WithLabelValues("content_generation", "success")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ProcessorDurationSeconds))
}
