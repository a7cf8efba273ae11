package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds every metric the engine exposes.
type AppMetrics struct {
	// HTTP layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Corrections
	CorrectionsRecordedTotal CounterVec
	CorrectionsArchivedTotal CounterVec
	OpportunityReadyFields   GaugeVec

	// Extraction
	ExtractionAttemptsTotal CounterVec
	ExtractionDuration      HistogramVec
	SnapshotRefreshTotal    CounterVec

	// Synthesis and validation
	SynthesisRunsTotal      CounterVec
	SynthesisDuration       HistogramVec
	CandidatesProposedTotal CounterVec
	ValidationPassRate      HistogramVec

	// Registry
	PatternDeploysTotal   CounterVec
	PatternRollbacksTotal CounterVec
	ActivePatterns        GaugeVec

	// Infrastructure
	ErrorsTotal CounterVec
}

var (
	httpDurationBuckets       = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5}
	extractionDurationBuckets = []float64{.0001, .0005, .001, .005, .01, .05, .1, .5}
	synthesisDurationBuckets  = []float64{.5, 1, 2, 5, 10, 30, 60, 120}
	passRateBuckets           = []float64{0, .1, .2, .3, .4, .5, .6, .7, .8, .9, 1}
)

// NewAppMetrics registers every engine metric on the collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", httpDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests", "method")

	m.CorrectionsRecordedTotal = collector.RegisterCounter("corrections_recorded_total", "Human corrections recorded", "field")
	m.CorrectionsArchivedTotal = collector.RegisterCounter("corrections_archived_total", "Correction source texts offloaded to object storage", "field")
	m.OpportunityReadyFields = collector.RegisterGauge("opportunity_ready", "Whether the field has enough corrections for synthesis (1=ready)", "field")

	m.ExtractionAttemptsTotal = collector.RegisterCounter("extraction_attempts_total", "Extraction attempts", "field", "outcome")
	m.ExtractionDuration = collector.RegisterHistogram("extraction_duration_seconds", "Extraction matcher latency", extractionDurationBuckets, "field")
	m.SnapshotRefreshTotal = collector.RegisterCounter("snapshot_refresh_total", "Rule snapshot refreshes", "field", "result")

	m.SynthesisRunsTotal = collector.RegisterCounter("synthesis_runs_total", "Pattern synthesis runs", "field", "status")
	m.SynthesisDuration = collector.RegisterHistogram("synthesis_duration_seconds", "Pattern synthesis run duration", synthesisDurationBuckets, "field")
	m.CandidatesProposedTotal = collector.RegisterCounter("candidates_proposed_total", "Validated pattern candidates", "field", "recommendation")
	m.ValidationPassRate = collector.RegisterHistogram("validation_pass_rate", "Pass rate of validated candidates", passRateBuckets, "field")

	m.PatternDeploysTotal = collector.RegisterCounter("pattern_deploys_total", "Pattern deployments", "field")
	m.PatternRollbacksTotal = collector.RegisterCounter("pattern_rollbacks_total", "Pattern rollbacks", "field")
	m.ActivePatterns = collector.RegisterGauge("active_patterns", "Currently active deployed patterns", "field")

	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Errors by component and code", "component", "code")

	return m
}

// Extraction outcomes.
const (
	OutcomeStored   = "stored"   // a deployed rule matched
	OutcomeBaseline = "baseline" // only a baseline rule matched
	OutcomeNone     = "none"     // no rule matched
)

// RecordHTTPRequest observes one completed request.
func (m *AppMetrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordExtraction observes one matcher call.
func (m *AppMetrics) RecordExtraction(field, outcome string, duration time.Duration) {
	m.ExtractionAttemptsTotal.WithLabelValues(field, outcome).Inc()
	m.ExtractionDuration.WithLabelValues(field).Observe(duration.Seconds())
}

// RecordSynthesisRun observes one synthesis run and its candidates.
func (m *AppMetrics) RecordSynthesisRun(field string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.SynthesisRunsTotal.WithLabelValues(field, status).Inc()
	m.SynthesisDuration.WithLabelValues(field).Observe(duration.Seconds())
}

// RecordCandidate observes one validated candidate.
func (m *AppMetrics) RecordCandidate(field, recommendation string, passRate float64) {
	m.CandidatesProposedTotal.WithLabelValues(field, recommendation).Inc()
	m.ValidationPassRate.WithLabelValues(field).Observe(passRate)
}

// RecordError counts an error against a component.
func (m *AppMetrics) RecordError(component, code string) {
	m.ErrorsTotal.WithLabelValues(component, code).Inc()
}
