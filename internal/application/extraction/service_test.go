package extraction_test

import (
	"context"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patentdesk/extraction-engine/internal/application/extraction"
	"github.com/patentdesk/extraction-engine/internal/domain/correction"
	"github.com/patentdesk/extraction-engine/internal/domain/field"
	"github.com/patentdesk/extraction-engine/internal/domain/pattern"
	"github.com/patentdesk/extraction-engine/internal/infrastructure/messaging/kafka"
	"github.com/patentdesk/extraction-engine/internal/infrastructure/monitoring/prometheus"
	"github.com/patentdesk/extraction-engine/internal/testutil"
	pkgerrors "github.com/patentdesk/extraction-engine/pkg/errors"
	"github.com/patentdesk/extraction-engine/pkg/types/common"
)

type publishedEvent struct {
	topic   string
	payload interface{}
}

// capturingPublisher records every event; err, when set, makes all
// publishes fail.
type capturingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *capturingPublisher) PublishEvent(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{topic: topic, payload: payload})
	return nil
}

func (p *capturingPublisher) byTopic(topic string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, e := range p.events {
		if e.topic == topic {
			out = append(out, e)
		}
	}
	return out
}

// stubSynthesizer returns fixed pre-validation candidates.
type stubSynthesizer struct {
	candidates []pattern.PatternCandidate
	err        error
}

func (s *stubSynthesizer) Synthesize(_ context.Context, f field.Name) ([]pattern.PatternCandidate, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]pattern.PatternCandidate, len(s.candidates))
	copy(out, s.candidates)
	for i := range out {
		out[i].Field = f
	}
	return out, nil
}

type testEnv struct {
	svc         extraction.Service
	corrections *testutil.InMemCorrectionRepo
	patterns    *testutil.InMemPatternRepo
	publisher   *capturingPublisher
	synthesizer *stubSynthesizer
}

func newTestEnv(t *testing.T, metrics *prometheus.AppMetrics) *testEnv {
	t.Helper()

	correctionRepo := testutil.NewInMemCorrectionRepo()
	patternRepo := testutil.NewInMemPatternRepo()
	publisher := &capturingPublisher{}
	synthesizer := &stubSynthesizer{}

	correctionSvc := correction.NewService(correctionRepo, patternRepo, nil,
		correction.ServiceConfig{ReadyThreshold: 5}, nil)
	registry := pattern.NewRegistry(patternRepo, testutil.NewInProcLocker(),
		pattern.RegistryConfig{DefaultPriority: 50}, nil)
	matcher := pattern.NewMatcher(patternRepo, nil,
		pattern.MatcherConfig{SnapshotTTL: time.Minute}, nil)

	svc := extraction.NewService(correctionSvc, synthesizer, registry, matcher,
		pattern.DefaultTierConfig(), publisher, metrics, nil)

	return &testEnv{
		svc:         svc,
		corrections: correctionRepo,
		patterns:    patternRepo,
		publisher:   publisher,
		synthesizer: synthesizer,
	}
}

func TestRecordCorrection_PublishesEvent(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	rec, err := env.svc.RecordCorrection(ctx, &extraction.RecordCorrectionInput{
		DocumentID:     "doc-7",
		Field:          "assignee",
		CorrectedValue: "ACME Inc.",
		SourceText:     "Assignee: ACME Inc.",
	})
	require.NoError(t, err)
	assert.Equal(t, field.Assignee, rec.Field)
	assert.Equal(t, 1, env.corrections.Len())

	events := env.publisher.byTopic(kafka.TopicCorrectionRecorded)
	require.Len(t, events, 1)
	payload := events[0].payload.(kafka.CorrectionRecordedPayload)
	assert.Equal(t, rec.ID.String(), payload.CorrectionID)
	assert.Equal(t, "doc-7", payload.DocumentID)
	assert.Equal(t, "assignee", payload.Field)
}

func TestRecordCorrection_UnknownFieldNoEvent(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.svc.RecordCorrection(context.Background(), &extraction.RecordCorrectionInput{
		DocumentID:     "doc-7",
		Field:          "abstract",
		CorrectedValue: "x",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeFieldUnknown))
	assert.Empty(t, env.publisher.events)
}

func TestRecordCorrection_PublishFailureDoesNotFailRequest(t *testing.T) {
	env := newTestEnv(t, nil)
	env.publisher.err = fmt.Errorf("broker unreachable")

	rec, err := env.svc.RecordCorrection(context.Background(), &extraction.RecordCorrectionInput{
		DocumentID:     "doc-7",
		Field:          "assignee",
		CorrectedValue: "ACME Inc.",
	})
	require.NoError(t, err)
	assert.False(t, rec.ID.IsZero())
}

func TestListOpportunities_ReflectsThreshold(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := env.svc.RecordCorrection(ctx, &extraction.RecordCorrectionInput{
			DocumentID:     fmt.Sprintf("doc-%d", i),
			Field:          "assignee",
			CorrectedValue: "ACME Inc.",
		})
		require.NoError(t, err)
	}

	opportunities, err := env.svc.ListOpportunities(ctx)
	require.NoError(t, err)
	require.Len(t, opportunities, len(field.All()))

	byField := make(map[field.Name]correction.FieldOpportunity)
	for _, opp := range opportunities {
		byField[opp.Field] = opp
	}
	assert.True(t, byField[field.Assignee].Ready)
	assert.Equal(t, 5, byField[field.Assignee].CorrectionCount)
	assert.False(t, byField[field.Inventors].Ready)
}

func TestSynthesize_ValidatesAndPublishes(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := env.svc.RecordCorrection(ctx, &extraction.RecordCorrectionInput{
			DocumentID:     fmt.Sprintf("doc-%d", i),
			Field:          "assignee",
			CorrectedValue: "Acme Corp",
			SourceText:     "Patent cover sheet\nAssignee: Acme Corp.\nFiled 2021",
		})
		require.NoError(t, err)
	}

	env.synthesizer.candidates = []pattern.PatternCandidate{
		{Pattern: `Assignee:\s*([^\n]+)`, Description: "assignee line"},
		{Pattern: `(unclosed`, Description: "broken"},
	}

	result, err := env.svc.SynthesizeAndValidate(ctx, "assignee")
	require.NoError(t, err)
	assert.Equal(t, "assignee", result.Field)
	assert.Equal(t, 10, result.CorpusSize)
	require.Len(t, result.Candidates, 2)

	good := result.Candidates[0]
	assert.Equal(t, pattern.ConfidenceHigh, good.Confidence)
	assert.Equal(t, pattern.RecommendAutoDeploy, good.Recommendation)
	assert.InDelta(t, 1.0, good.PassRate, 1e-9)
	assert.Equal(t, 10, good.TestedAgainst)

	bad := result.Candidates[1]
	assert.Equal(t, pattern.RecommendNeedsMoreData, bad.Recommendation)
	assert.Zero(t, bad.PassRate)

	events := env.publisher.byTopic(kafka.TopicSynthesisCompleted)
	require.Len(t, events, 1)
	payload := events[0].payload.(kafka.SynthesisCompletedPayload)
	assert.Equal(t, 2, payload.CandidateCount)
	assert.Equal(t, 1, payload.AutoDeployable)
}

func TestSynthesize_SynthesizerErrorNoEvent(t *testing.T) {
	env := newTestEnv(t, nil)
	env.synthesizer.err = pkgerrors.InsufficientData("not enough corrections to synthesize")

	_, err := env.svc.SynthesizeAndValidate(context.Background(), "assignee")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeInsufficientData))
	assert.Empty(t, env.publisher.events)
}

func TestDeploy_TakesEffectImmediately(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	// Prime the matcher snapshot with the empty rule set.
	_, err := env.svc.Extract(ctx, &extraction.ExtractInput{
		Field:        "patentNumber",
		DocumentText: "Reference PN-12345",
	})
	require.NoError(t, err)

	deployed, err := env.svc.Deploy(ctx, &extraction.DeployInput{
		Field:               "patentNumber",
		Pattern:             `PN-(\d+)`,
		Description:         "internal numbering",
		Priority:            10,
		SourceCorrectionIDs: []string{common.NewID().String()},
	})
	require.NoError(t, err)
	assert.True(t, deployed.IsActive)
	assert.Equal(t, 10, deployed.Priority)

	// Invalidation means the fresh rule matches without waiting for the
	// snapshot TTL.
	match, err := env.svc.Extract(ctx, &extraction.ExtractInput{
		Field:        "patentNumber",
		DocumentText: "Reference PN-12345",
	})
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "12345", match.Value)
	assert.Equal(t, deployed.ID.String(), match.RuleID)

	events := env.publisher.byTopic(kafka.TopicPatternDeployed)
	require.Len(t, events, 1)
	payload := events[0].payload.(kafka.PatternDeployedPayload)
	assert.Equal(t, deployed.ID.String(), payload.PatternID)
	assert.Equal(t, 10, payload.Priority)
}

func TestDeploy_RejectsMalformedSourceID(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.svc.Deploy(context.Background(), &extraction.DeployInput{
		Field:               "assignee",
		Pattern:             `x(y)`,
		SourceCorrectionIDs: []string{"not-a-uuid"},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
	assert.Empty(t, env.publisher.events)
}

func TestRollback_EventCarriesBothIDs(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	first, err := env.svc.Deploy(ctx, &extraction.DeployInput{Field: "assignee", Pattern: `a(x)`})
	require.NoError(t, err)
	second, err := env.svc.Deploy(ctx, &extraction.DeployInput{Field: "assignee", Pattern: `b(x)`})
	require.NoError(t, err)

	res, err := env.svc.Rollback(ctx, "assignee")
	require.NoError(t, err)
	assert.Equal(t, second.ID, res.Deactivated.ID)
	assert.Nil(t, res.Reactivated)

	res, err = env.svc.Rollback(ctx, "assignee")
	require.NoError(t, err)
	assert.Equal(t, first.ID, res.Deactivated.ID)
	require.NotNil(t, res.Reactivated)
	assert.Equal(t, second.ID, res.Reactivated.ID)

	events := env.publisher.byTopic(kafka.TopicPatternRolledBack)
	require.Len(t, events, 2)
	firstPayload := events[0].payload.(kafka.PatternRolledBackPayload)
	assert.Equal(t, second.ID.String(), firstPayload.DeactivatedID)
	assert.Empty(t, firstPayload.ReactivatedID)
	secondPayload := events[1].payload.(kafka.PatternRolledBackPayload)
	assert.Equal(t, first.ID.String(), secondPayload.DeactivatedID)
	assert.Equal(t, second.ID.String(), secondPayload.ReactivatedID)
}

func TestRollback_NothingDeployed(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.svc.Rollback(context.Background(), "assignee")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeNothingToRoll))
	assert.Empty(t, env.publisher.events)
}

func TestExtract_BaselineFallback(t *testing.T) {
	env := newTestEnv(t, nil)

	match, err := env.svc.Extract(context.Background(), &extraction.ExtractInput{
		Field:        "assignee",
		DocumentText: "(73) Assignee: FooBar Ltd.\n(72) Inventor: J. Doe",
	})
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "FooBar Ltd.", match.Value)
	assert.Equal(t, pattern.BaselineRuleID(field.Assignee), match.RuleID)
}

func TestExtract_NoMatchReturnsNilNil(t *testing.T) {
	env := newTestEnv(t, nil)

	match, err := env.svc.Extract(context.Background(), &extraction.ExtractInput{
		Field:        "assignee",
		DocumentText: "nothing relevant here",
	})
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestHistory_NewestFirst(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	_, err := env.svc.Deploy(ctx, &extraction.DeployInput{Field: "assignee", Pattern: `a(x)`})
	require.NoError(t, err)
	second, err := env.svc.Deploy(ctx, &extraction.DeployInput{Field: "assignee", Pattern: `b(x)`})
	require.NoError(t, err)

	history, err := env.svc.History(ctx, "assignee")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)
}

func TestMetricsWiring(t *testing.T) {
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "pateng"}, nil)
	require.NoError(t, err)
	metrics := prometheus.NewAppMetrics(collector)

	env := newTestEnv(t, metrics)
	ctx := context.Background()

	_, err = env.svc.RecordCorrection(ctx, &extraction.RecordCorrectionInput{
		DocumentID:     "doc-1",
		Field:          "assignee",
		CorrectedValue: "ACME Inc.",
	})
	require.NoError(t, err)

	deployed, err := env.svc.Deploy(ctx, &extraction.DeployInput{Field: "assignee", Pattern: `Assignee:\s*([^\n]+)`})
	require.NoError(t, err)

	match, err := env.svc.Extract(ctx, &extraction.ExtractInput{
		Field:        "assignee",
		DocumentText: "Assignee: ACME Inc.",
	})
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, deployed.ID.String(), match.RuleID)

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `pateng_corrections_recorded_total{field="assignee"} 1`)
	assert.Contains(t, body, `pateng_pattern_deploys_total{field="assignee"} 1`)
	assert.Contains(t, body, `pateng_active_patterns{field="assignee"} 1`)
	assert.Contains(t, body, `pateng_extraction_attempts_total{field="assignee",outcome="stored"} 1`)
}
