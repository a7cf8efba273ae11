package synthesis

import (
	"context"
	"fmt"

	"github.com/patentdesk/extraction-engine/internal/domain/correction"
	"github.com/patentdesk/extraction-engine/internal/domain/field"
	"github.com/patentdesk/extraction-engine/internal/domain/pattern"
	"github.com/patentdesk/extraction-engine/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/patentdesk/extraction-engine/pkg/errors"
)

// CorrectionSource provides opportunity readiness and the correction corpus.
// correction.Service satisfies it.
type CorrectionSource interface {
	Opportunities(ctx context.Context) ([]correction.FieldOpportunity, error)
	CorpusFor(ctx context.Context, f field.Name) ([]*correction.Correction, error)
}

// DeployedSource lists the field's currently active rules, quoted in the
// prompt so the model proposes complementary rules.  pattern.Repository
// satisfies it.
type DeployedSource interface {
	ListActiveByField(ctx context.Context, f field.Name) ([]*pattern.DeployedPattern, error)
}

// Config holds synthesizer tunables.
type Config struct {
	// MaxCorpusChars caps the quoted corpus text per prompt.
	MaxCorpusChars int
}

// Synthesizer orchestrates candidate generation: readiness check, prompt
// assembly, the model call, and structural parsing.  It produces
// pre-validation candidates only; the validation harness fills in the rest.
type Synthesizer struct {
	corrections CorrectionSource
	deployed    DeployedSource
	generator   Generator
	cfg         Config
	logger      logging.Logger
}

// NewSynthesizer creates a Synthesizer.
func NewSynthesizer(corrections CorrectionSource, deployed DeployedSource, generator Generator, cfg Config, logger logging.Logger) *Synthesizer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Synthesizer{
		corrections: corrections,
		deployed:    deployed,
		generator:   generator,
		cfg:         cfg,
		logger:      logger,
	}
}

// Synthesize proposes candidate rules for the field.  It fails with
// ErrCodeInsufficientData before touching the model when the field's
// opportunity is not ready — a model call on a thin corpus wastes operator
// trust as well as tokens.
func (s *Synthesizer) Synthesize(ctx context.Context, f field.Name) ([]pattern.PatternCandidate, error) {
	if !f.Valid() {
		return nil, pkgerrors.New(pkgerrors.ErrCodeFieldUnknown, "unknown field").WithDetail(f.String())
	}

	opportunities, err := s.corrections.Opportunities(ctx)
	if err != nil {
		return nil, err
	}
	var opp *correction.FieldOpportunity
	for i := range opportunities {
		if opportunities[i].Field == f {
			opp = &opportunities[i]
			break
		}
	}
	if opp == nil || !opp.Ready {
		count := 0
		if opp != nil {
			count = opp.CorrectionCount
		}
		return nil, pkgerrors.New(pkgerrors.ErrCodeInsufficientData,
			"not enough corrections to synthesize").
			WithDetail(fmt.Sprintf("field %s has %d eligible corrections", f, count))
	}

	corpus, err := s.corrections.CorpusFor(ctx, f)
	if err != nil {
		return nil, err
	}
	deployed, err := s.deployed.ListActiveByField(ctx, f)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrCodeDatabaseError, "failed to load deployed patterns")
	}

	prompt := BuildPrompt(f, corpus, deployed, s.cfg.MaxCorpusChars)

	raw, err := s.generator.GenerateCandidates(ctx, prompt)
	if err != nil {
		s.logger.Error("candidate generation failed",
			logging.Err(err),
			logging.String("field", f.String()))
		return nil, err
	}

	specs, err := ParseCandidates(raw)
	if err != nil {
		return nil, err
	}

	out := make([]pattern.PatternCandidate, 0, len(specs))
	for _, spec := range specs {
		out = append(out, pattern.PatternCandidate{
			Field:       f,
			Pattern:     spec.Pattern,
			Description: spec.Description,
		})
	}

	s.logger.Info("synthesis produced candidates",
		logging.String("field", f.String()),
		logging.Int("corpus_size", len(corpus)),
		logging.Int("candidates", len(out)))
	return out, nil
}
