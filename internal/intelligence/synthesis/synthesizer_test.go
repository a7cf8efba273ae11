package synthesis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patentdesk/extraction-engine/internal/domain/correction"
	"github.com/patentdesk/extraction-engine/internal/domain/field"
	"github.com/patentdesk/extraction-engine/internal/domain/pattern"
	"github.com/patentdesk/extraction-engine/internal/intelligence/synthesis"
	"github.com/patentdesk/extraction-engine/internal/testutil"
	pkgerrors "github.com/patentdesk/extraction-engine/pkg/errors"
)

// seededFixtures returns a correction service and pattern repo with n
// assignee corrections recorded.
func seededFixtures(t *testing.T, n int) (*correction.Service, *testutil.InMemPatternRepo) {
	t.Helper()
	corrRepo := testutil.NewInMemCorrectionRepo()
	patRepo := testutil.NewInMemPatternRepo()
	svc := correction.NewService(corrRepo, patRepo, nil,
		correction.ServiceConfig{ReadyThreshold: 5}, nil)

	for i := 0; i < n; i++ {
		_, err := svc.Record(context.Background(), correction.RecordInput{
			DocumentID:     "doc",
			Field:          "assignee",
			CorrectedValue: "Acme",
			SourceText:     "Assignee: Acme",
		})
		require.NoError(t, err)
	}
	return svc, patRepo
}

func TestSynthesizer_Synthesize_Success(t *testing.T) {
	svc, patRepo := seededFixtures(t, 6)
	gen := &testutil.StubGenerator{
		Output: `[{"pattern": "Assignee:\\s*(.+)", "description": "label line"}]`,
	}

	s := synthesis.NewSynthesizer(svc, patRepo, gen, synthesis.Config{}, nil)
	got, err := s.Synthesize(context.Background(), field.Assignee)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, field.Assignee, got[0].Field)
	assert.Equal(t, `Assignee:\s*(.+)`, got[0].Pattern)
	// Pre-validation candidates carry no verdict yet.
	assert.Zero(t, got[0].PassRate)
	assert.Empty(t, got[0].Confidence)
	assert.Empty(t, got[0].TestResults)

	require.Len(t, gen.Prompts, 1)
	assert.Contains(t, gen.Prompts[0].User, "correctedValue: Acme")
}

func TestSynthesizer_Synthesize_InsufficientData(t *testing.T) {
	svc, patRepo := seededFixtures(t, 3) // below threshold of 5
	gen := &testutil.StubGenerator{Output: "[]"}

	s := synthesis.NewSynthesizer(svc, patRepo, gen, synthesis.Config{}, nil)
	_, err := s.Synthesize(context.Background(), field.Assignee)

	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeInsufficientData))
	assert.Empty(t, gen.Prompts, "model must not be called before readiness")
}

func TestSynthesizer_Synthesize_UnknownField(t *testing.T) {
	svc, patRepo := seededFixtures(t, 6)
	s := synthesis.NewSynthesizer(svc, patRepo, &testutil.StubGenerator{}, synthesis.Config{}, nil)

	_, err := s.Synthesize(context.Background(), field.Name("abstract"))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeFieldUnknown))
}

func TestSynthesizer_Synthesize_GeneratorFailureSurfaced(t *testing.T) {
	svc, patRepo := seededFixtures(t, 6)
	gen := &testutil.StubGenerator{
		Err: pkgerrors.New(pkgerrors.ErrCodeSynthesisFailed, "service unreachable"),
	}

	s := synthesis.NewSynthesizer(svc, patRepo, gen, synthesis.Config{}, nil)
	_, err := s.Synthesize(context.Background(), field.Assignee)

	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeSynthesisFailed))
}

func TestSynthesizer_Synthesize_UnparseableOutput(t *testing.T) {
	svc, patRepo := seededFixtures(t, 6)
	gen := &testutil.StubGenerator{Output: "here are some ideas..."}

	s := synthesis.NewSynthesizer(svc, patRepo, gen, synthesis.Config{}, nil)
	_, err := s.Synthesize(context.Background(), field.Assignee)

	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeSynthesisUnparsable))
}

func TestSynthesizer_Synthesize_QuotesDeployedPatterns(t *testing.T) {
	svc, patRepo := seededFixtures(t, 6)
	require.NoError(t, patRepo.Insert(context.Background(), &pattern.DeployedPattern{
		Field:     field.Assignee,
		Pattern:   `legacy(rule)`,
		IsActive:  true,
		CreatedAt: time.Now().Add(-time.Hour),
	}))
	gen := &testutil.StubGenerator{Output: "[]"}

	s := synthesis.NewSynthesizer(svc, patRepo, gen, synthesis.Config{}, nil)
	got, err := s.Synthesize(context.Background(), field.Assignee)

	require.NoError(t, err)
	assert.Empty(t, got)
	require.Len(t, gen.Prompts, 1)
	assert.Contains(t, gen.Prompts[0].User, "legacy(rule)")
}
