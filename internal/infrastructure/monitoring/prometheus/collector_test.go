package prometheus

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCollector(t *testing.T) MetricsCollector {
	t.Helper()
	c, err := NewMetricsCollector(CollectorConfig{Namespace: "pateng"}, nil)
	require.NoError(t, err)
	return c
}

func scrapeMetrics(t *testing.T, collector MetricsCollector) string {
	t.Helper()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	collector.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestNewMetricsCollector_RequiresNamespace(t *testing.T) {
	_, err := NewMetricsCollector(CollectorConfig{}, nil)
	assert.Error(t, err)
}

func TestRegisterCounter_IncrementsAndScrapes(t *testing.T) {
	c := newTestCollector(t)

	counter := c.RegisterCounter("events_total", "Events", "kind")
	counter.WithLabelValues("deploy").Inc()
	counter.WithLabelValues("deploy").Add(2)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `pateng_events_total{kind="deploy"} 3`)
}

func TestRegisterCounter_DuplicateReturnsSameMetric(t *testing.T) {
	c := newTestCollector(t)

	first := c.RegisterCounter("dup_total", "Dup", "kind")
	second := c.RegisterCounter("dup_total", "Dup", "kind")

	first.WithLabelValues("a").Inc()
	second.WithLabelValues("a").Inc()

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `pateng_dup_total{kind="a"} 2`)
}

func TestRegisterGauge_SetAndScrape(t *testing.T) {
	c := newTestCollector(t)

	gauge := c.RegisterGauge("active_rules", "Active rules", "field")
	gauge.WithLabelValues("assignee").Set(4)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `pateng_active_rules{field="assignee"} 4`)
}

func TestRegisterHistogram_ObserveAndScrape(t *testing.T) {
	c := newTestCollector(t)

	hist := c.RegisterHistogram("latency_seconds", "Latency", []float64{0.1, 1}, "op")
	hist.WithLabelValues("extract").Observe(0.05)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `pateng_latency_seconds_count{op="extract"} 1`)
	assert.Contains(t, out, `pateng_latency_seconds_bucket{op="extract",le="0.1"} 1`)
}

func TestTimer_ObservesElapsed(t *testing.T) {
	c := newTestCollector(t)
	hist := c.RegisterHistogram("timed_seconds", "Timed", []float64{10}, "op")

	timer := NewTimer(hist.WithLabelValues("x"))
	time.Sleep(time.Millisecond)
	timer.ObserveDuration()

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `pateng_timed_seconds_count{op="x"} 1`)
}

func TestTimer_NilHistogramIsSafe(t *testing.T) {
	timer := NewTimer(nil)
	assert.NotPanics(t, timer.ObserveDuration)
}

func TestNewAppMetrics_AllRegistered(t *testing.T) {
	c := newTestCollector(t)
	m := NewAppMetrics(c)

	m.RecordHTTPRequest("POST", "/api/v1/corrections", 201, 3*time.Millisecond)
	m.RecordExtraction("assignee", OutcomeBaseline, 40*time.Microsecond)
	m.RecordSynthesisRun("assignee", nil, 2*time.Second)
	m.RecordSynthesisRun("filingDate", assert.AnError, time.Second)
	m.RecordCandidate("assignee", "auto_deploy", 0.95)
	m.RecordError("registry", "PAT_004")
	m.CorrectionsRecordedTotal.WithLabelValues("assignee").Inc()
	m.PatternDeploysTotal.WithLabelValues("assignee").Inc()
	m.ActivePatterns.WithLabelValues("assignee").Set(2)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `pateng_http_requests_total{method="POST",path="/api/v1/corrections",status_code="201"} 1`)
	assert.Contains(t, out, `pateng_extraction_attempts_total{field="assignee",outcome="baseline"} 1`)
	assert.Contains(t, out, `pateng_synthesis_runs_total{field="assignee",status="success"} 1`)
	assert.Contains(t, out, `pateng_synthesis_runs_total{field="filingDate",status="failure"} 1`)
	assert.Contains(t, out, `pateng_candidates_proposed_total{field="assignee",recommendation="auto_deploy"} 1`)
	assert.Contains(t, out, `pateng_errors_total{code="PAT_004",component="registry"} 1`)
	assert.Contains(t, out, `pateng_active_patterns{field="assignee"} 2`)
}
