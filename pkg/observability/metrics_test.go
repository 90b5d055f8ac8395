package observability

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics("repayplan")
	m.ScheduleComputed()
	m.ScheduleComputed()
	m.ScheduleCacheHit()
	m.CacheHit()
	m.CacheMiss()
	m.CacheMiss()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	out := string(body)
	assert.Contains(t, out, "repayplan_schedule_computations_total 2")
	assert.Contains(t, out, "repayplan_calculator_cache_hits_total 1")
	assert.Contains(t, out, `repayplan_schedule_cache_lookups_total{result="hit"} 1`)
	assert.Contains(t, out, `repayplan_schedule_cache_lookups_total{result="miss"} 2`)
	assert.Contains(t, out, "go_goroutines")
}

func TestMetricsAreIndependent(t *testing.T) {
	a := NewMetrics("a")
	b := NewMetrics("a")
	a.ScheduleComputed()

	families, err := b.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == "a_schedule_computations_total" {
			assert.Equal(t, float64(0), f.GetMetric()[0].GetCounter().GetValue())
		}
	}
}
