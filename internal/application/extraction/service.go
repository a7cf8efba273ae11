// Package extraction provides the application-level service for the pattern
// engine.  This package serves as the interface between HTTP/CLI handlers and
// domain logic: it composes the correction loop, the synthesizer, the
// validation harness, the registry, and the matcher, and layers event
// publication and metrics on top of them.
package extraction

import (
	"context"
	"time"

	"github.com/patentdesk/extraction-engine/internal/domain/correction"
	"github.com/patentdesk/extraction-engine/internal/domain/field"
	"github.com/patentdesk/extraction-engine/internal/domain/pattern"
	"github.com/patentdesk/extraction-engine/internal/infrastructure/messaging/kafka"
	"github.com/patentdesk/extraction-engine/internal/infrastructure/monitoring/logging"
	"github.com/patentdesk/extraction-engine/internal/infrastructure/monitoring/prometheus"
	pkgerrors "github.com/patentdesk/extraction-engine/pkg/errors"
	"github.com/patentdesk/extraction-engine/pkg/types/common"
)

// EventPublisher emits engine notification events.  kafka.Producer satisfies
// it; a nil publisher disables events entirely.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, payload interface{}) error
}

// Service defines the interface for pattern-engine operations.
type Service interface {
	RecordCorrection(ctx context.Context, input *RecordCorrectionInput) (*correction.Correction, error)
	ListOpportunities(ctx context.Context) ([]correction.FieldOpportunity, error)
	SynthesizeAndValidate(ctx context.Context, fieldName string) (*SynthesisResult, error)
	Deploy(ctx context.Context, input *DeployInput) (*pattern.DeployedPattern, error)
	Rollback(ctx context.Context, fieldName string) (*pattern.RollbackResult, error)
	Extract(ctx context.Context, input *ExtractInput) (*pattern.Match, error)
	History(ctx context.Context, fieldName string) ([]*pattern.DeployedPattern, error)
}

// RecordCorrectionInput contains input for recording a human correction.
type RecordCorrectionInput struct {
	DocumentID     string
	Field          string
	CorrectedValue string
	SourceText     string
}

// DeployInput contains input for deploying a pattern.  The pattern text need
// not match any synthesized candidate; operators may hand-edit before
// deploying.
type DeployInput struct {
	Field               string
	Pattern             string
	Description         string
	Priority            int
	SourceCorrectionIDs []string
}

// ExtractInput contains input for a runtime extraction.
type ExtractInput struct {
	Field        string
	DocumentText string
}

// SynthesisResult carries the validated candidates of one synthesis run.
type SynthesisResult struct {
	Field      string                     `json:"field"`
	CorpusSize int                        `json:"corpus_size"`
	Candidates []pattern.PatternCandidate `json:"candidates"`
}

// serviceImpl implements the Service interface.
type serviceImpl struct {
	corrections *correction.Service
	synthesizer Synthesizer
	registry    *pattern.Registry
	matcher     *pattern.Matcher
	tiers       pattern.TierConfig
	publisher   EventPublisher
	metrics     *prometheus.AppMetrics
	logger      logging.Logger
}

// Synthesizer produces pre-validation candidates for a ready field.  The LLM
// synthesizer satisfies it; tests substitute a stub.
type Synthesizer interface {
	Synthesize(ctx context.Context, f field.Name) ([]pattern.PatternCandidate, error)
}

// NewService creates a new pattern-engine application service.  publisher and
// metrics may be nil, which disables event publication and instrumentation
// respectively.
func NewService(
	corrections *correction.Service,
	synthesizer Synthesizer,
	registry *pattern.Registry,
	matcher *pattern.Matcher,
	tiers pattern.TierConfig,
	publisher EventPublisher,
	metrics *prometheus.AppMetrics,
	logger logging.Logger,
) Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &serviceImpl{
		corrections: corrections,
		synthesizer: synthesizer,
		registry:    registry,
		matcher:     matcher,
		tiers:       tiers,
		publisher:   publisher,
		metrics:     metrics,
		logger:      logger.Named("extraction_service"),
	}
}

// RecordCorrection records a human correction and announces it.
func (s *serviceImpl) RecordCorrection(ctx context.Context, input *RecordCorrectionInput) (*correction.Correction, error) {
	rec, err := s.corrections.Record(ctx, correction.RecordInput{
		DocumentID:     input.DocumentID,
		Field:          input.Field,
		CorrectedValue: input.CorrectedValue,
		SourceText:     input.SourceText,
	})
	if err != nil {
		s.countError("corrections", err)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.CorrectionsRecordedTotal.WithLabelValues(rec.Field.String()).Inc()
		if rec.ArchiveKey != "" {
			s.metrics.CorrectionsArchivedTotal.WithLabelValues(rec.Field.String()).Inc()
		}
	}

	s.publish(ctx, kafka.TopicCorrectionRecorded, kafka.CorrectionRecordedPayload{
		CorrectionID: rec.ID.String(),
		DocumentID:   rec.DocumentID,
		Field:        rec.Field.String(),
		RecordedAt:   rec.CreatedAt,
	})
	return rec, nil
}

// ListOpportunities reports the synthesis-readiness of every field.
func (s *serviceImpl) ListOpportunities(ctx context.Context) ([]correction.FieldOpportunity, error) {
	opportunities, err := s.corrections.Opportunities(ctx)
	if err != nil {
		s.countError("corrections", err)
		return nil, err
	}

	if s.metrics != nil {
		for _, opp := range opportunities {
			ready := 0.0
			if opp.Ready {
				ready = 1.0
			}
			s.metrics.OpportunityReadyFields.WithLabelValues(opp.Field.String()).Set(ready)
		}
	}
	return opportunities, nil
}

// SynthesizeAndValidate generates candidates for the field and validates
// each against the field's full correction corpus.  Candidates come back
// ordered as the model proposed them; nothing is persisted until the
// operator deploys.
func (s *serviceImpl) SynthesizeAndValidate(ctx context.Context, fieldName string) (*SynthesisResult, error) {
	f, err := field.Parse(fieldName)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	candidates, err := s.synthesizer.Synthesize(ctx, f)
	if s.metrics != nil {
		s.metrics.RecordSynthesisRun(f.String(), err, time.Since(start))
	}
	if err != nil {
		s.countError("synthesis", err)
		return nil, err
	}

	corpus, err := s.corrections.CorpusFor(ctx, f)
	if err != nil {
		s.countError("synthesis", err)
		return nil, err
	}

	validated := make([]pattern.PatternCandidate, 0, len(candidates))
	autoDeployable := 0
	for _, candidate := range candidates {
		v := pattern.Validate(candidate, corpus, s.tiers)
		if v.Recommendation == pattern.RecommendAutoDeploy {
			autoDeployable++
		}
		if s.metrics != nil {
			s.metrics.RecordCandidate(f.String(), string(v.Recommendation), v.PassRate)
		}
		validated = append(validated, v)
	}

	s.publish(ctx, kafka.TopicSynthesisCompleted, kafka.SynthesisCompletedPayload{
		Field:          f.String(),
		CandidateCount: len(validated),
		AutoDeployable: autoDeployable,
		CompletedAt:    time.Now().UTC(),
	})

	s.logger.Info("synthesis run complete",
		logging.String("field", f.String()),
		logging.Int("candidates", len(validated)),
		logging.Int("auto_deployable", autoDeployable))
	return &SynthesisResult{
		Field:      f.String(),
		CorpusSize: len(corpus),
		Candidates: validated,
	}, nil
}

// Deploy activates a new extraction rule and drops the field's matcher
// snapshot so the rule takes effect immediately.
func (s *serviceImpl) Deploy(ctx context.Context, input *DeployInput) (*pattern.DeployedPattern, error) {
	f, err := field.Parse(input.Field)
	if err != nil {
		return nil, err
	}

	sources := make([]common.ID, 0, len(input.SourceCorrectionIDs))
	for _, raw := range input.SourceCorrectionIDs {
		id, err := common.ParseID(raw)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				"invalid source correction id").WithDetail(raw)
		}
		sources = append(sources, id)
	}

	deployed, err := s.registry.Deploy(ctx, pattern.DeployInput{
		Field:               f,
		Pattern:             input.Pattern,
		Description:         input.Description,
		Priority:            input.Priority,
		SourceCorrectionIDs: sources,
	})
	if err != nil {
		s.countError("registry", err)
		return nil, err
	}

	s.matcher.Invalidate(ctx, f)

	if s.metrics != nil {
		s.metrics.PatternDeploysTotal.WithLabelValues(f.String()).Inc()
		s.refreshActiveGauge(ctx, f)
	}

	s.publish(ctx, kafka.TopicPatternDeployed, kafka.PatternDeployedPayload{
		PatternID:  deployed.ID.String(),
		Field:      f.String(),
		Priority:   deployed.Priority,
		DeployedAt: deployed.CreatedAt,
	})
	return deployed, nil
}

// Rollback reverts the field's most recent deploy and drops the matcher
// snapshot.
func (s *serviceImpl) Rollback(ctx context.Context, fieldName string) (*pattern.RollbackResult, error) {
	f, err := field.Parse(fieldName)
	if err != nil {
		return nil, err
	}

	result, err := s.registry.Rollback(ctx, f)
	if err != nil {
		s.countError("registry", err)
		return nil, err
	}

	s.matcher.Invalidate(ctx, f)

	if s.metrics != nil {
		s.metrics.PatternRollbacksTotal.WithLabelValues(f.String()).Inc()
		s.refreshActiveGauge(ctx, f)
	}

	payload := kafka.PatternRolledBackPayload{
		Field:         f.String(),
		DeactivatedID: result.Deactivated.ID.String(),
		RolledBackAt:  time.Now().UTC(),
	}
	if result.Reactivated != nil {
		payload.ReactivatedID = result.Reactivated.ID.String()
	}
	s.publish(ctx, kafka.TopicPatternRolledBack, payload)
	return result, nil
}

// Extract runs the field's rule chain against raw document text.  A nil
// match with nil error means no rule matched.
func (s *serviceImpl) Extract(ctx context.Context, input *ExtractInput) (*pattern.Match, error) {
	f, err := field.Parse(input.Field)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	match, err := s.matcher.Extract(ctx, f, input.DocumentText)
	if err != nil {
		s.countError("matcher", err)
		return nil, err
	}

	if s.metrics != nil {
		outcome := prometheus.OutcomeNone
		switch {
		case match == nil:
		case pattern.IsBaselineRuleID(match.RuleID):
			outcome = prometheus.OutcomeBaseline
		default:
			outcome = prometheus.OutcomeStored
		}
		s.metrics.RecordExtraction(f.String(), outcome, time.Since(start))
	}
	return match, nil
}

// History returns the field's full deploy history, newest first.
func (s *serviceImpl) History(ctx context.Context, fieldName string) ([]*pattern.DeployedPattern, error) {
	f, err := field.Parse(fieldName)
	if err != nil {
		return nil, err
	}
	history, err := s.registry.History(ctx, f)
	if err != nil {
		s.countError("registry", err)
		return nil, err
	}
	return history, nil
}

// publish emits a notification event.  Events fire only after the underlying
// operation committed, and a publish failure never fails the request: the
// engine's source of truth is postgres, the event stream is advisory.
func (s *serviceImpl) publish(ctx context.Context, topic string, payload interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishEvent(ctx, topic, payload); err != nil {
		s.logger.Warn("event publish failed",
			logging.Err(err),
			logging.String("topic", topic))
		s.countError("events", err)
	}
}

// refreshActiveGauge recomputes the field's active-rule count after a deploy
// or rollback.  Failures are ignored; the gauge self-corrects on the next
// registry change.
func (s *serviceImpl) refreshActiveGauge(ctx context.Context, f field.Name) {
	history, err := s.registry.History(ctx, f)
	if err != nil {
		return
	}
	active := 0
	for _, row := range history {
		if row.IsActive {
			active++
		}
	}
	s.metrics.ActivePatterns.WithLabelValues(f.String()).Set(float64(active))
}

func (s *serviceImpl) countError(component string, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordError(component, pkgerrors.GetCode(err).String())
}
