package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilRegistryIsSafe(t *testing.T) {
	var m *Registry
	assert.NotPanics(t, func() {
		m.RecordEvaluation()
		m.RecordDay()
		m.SetBestStreak("a", 3)
		m.RecordPeerFailure("p")
		m.RecordPeerCacheLookup("miss")
		m.JobStarted()
		m.JobFinished("Explore", "stopped", time.Second)
		m.RegisterGaugeFunc("x", "y", func() float64 { return 0 })
	})
}

func TestRegistry_Records(t *testing.T) {
	m := New()

	m.RecordEvaluation()
	m.RecordEvaluation()
	m.RecordDay()
	m.SetBestStreak("hot", 9)
	m.JobStarted()
	m.JobFinished("Explore", "no_improvement", 2*time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Evaluations))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SimulatedDays))
	assert.Equal(t, 9.0, testutil.ToFloat64(m.BestStreak.WithLabelValues("hot")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobsFinished.WithLabelValues("Explore", "no_improvement")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ActiveJobs))
}

func TestRegistry_Handler(t *testing.T) {
	m := New()
	m.RegisterGaugeFunc("trainer_events_dropped", "Dropped events", func() float64 { return 4 })
	m.RecordEvaluation()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "trainer_candidate_evaluations_total 1")
	assert.Contains(t, body, "trainer_events_dropped 4")
}
