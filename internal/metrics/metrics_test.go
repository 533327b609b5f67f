package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_ObserveRun(t *testing.T) {
	m := New()

	m.ObserveRun("rectified", 120*time.Millisecond)
	m.ObserveRun("rectified", 80*time.Millisecond)
	m.ObserveRun("failed", time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.runs.WithLabelValues("rectified")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("failed")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.IncFallbackRetry()
	m.IncFallbackRetry()
	m.ObserveFocusPoints(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.fallbackRetries))
	assert.Equal(t, 1, testutil.CollectAndCount(m.focusPoints))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRun("failed", time.Second)
		m.ObserveFocusPoints(3)
		m.IncFallbackRetry()
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveRun("rectified", time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(string(body), `docscan_rectify_total{state="rectified"} 1`))
	assert.True(t, strings.Contains(string(body), "docscan_rectify_duration_seconds_bucket"))
}
