package observability

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMetricsCountIndependently(t *testing.T) {
	t.Parallel()

	first := NewRunMetrics()
	second := NewRunMetrics()

	first.CommitsProcessed.Inc()
	first.CommitsSkipped.WithLabelValues("resolution").Inc()
	first.CommitsSkipped.WithLabelValues("resolution").Inc()

	assert.InDelta(t, 1.0, testutil.ToFloat64(first.CommitsProcessed), 1e-9)
	assert.InDelta(t, 2.0, testutil.ToFloat64(first.CommitsSkipped.WithLabelValues("resolution")), 1e-9)
	assert.InDelta(t, 0.0, testutil.ToFloat64(second.CommitsProcessed), 1e-9)
}

func TestHandlerServesScrapeEndpoint(t *testing.T) {
	t.Parallel()

	m := NewRunMetrics()
	m.FilesAnalyzed.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "codedrift_files_analyzed_total 1")
}
