package pattern_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patentdesk/extraction-engine/internal/domain/field"
	"github.com/patentdesk/extraction-engine/internal/domain/pattern"
	"github.com/patentdesk/extraction-engine/internal/testutil"
	pkgerrors "github.com/patentdesk/extraction-engine/pkg/errors"
	"github.com/patentdesk/extraction-engine/pkg/types/common"
)

func newTestMatcher(repo pattern.Repository) *pattern.Matcher {
	return pattern.NewMatcher(repo, nil, pattern.MatcherConfig{SnapshotTTL: time.Minute}, nil)
}

func deployRow(t *testing.T, repo *testutil.InMemPatternRepo, f field.Name, pat string, priority int, createdAt time.Time) *pattern.DeployedPattern {
	t.Helper()
	row := &pattern.DeployedPattern{
		ID:        common.NewID(),
		Field:     f,
		Pattern:   pat,
		Priority:  priority,
		IsActive:  true,
		CreatedAt: createdAt,
	}
	require.NoError(t, repo.Insert(context.Background(), row))
	return row
}

func TestMatcher_Extract_PriorityOrder(t *testing.T) {
	repo := testutil.NewInMemPatternRepo()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	low := deployRow(t, repo, field.Assignee, `Assignee:\s*(\w+)`, 10, base)
	deployRow(t, repo, field.Assignee, `Assignee:\s*(\w+ ?\w*)`, 60, base.Add(time.Hour))

	m := newTestMatcher(repo)
	got, err := m.Extract(context.Background(), field.Assignee, "Assignee: Acme Corp")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, low.ID.String(), got.RuleID)
	assert.Equal(t, "Acme", got.Value)
}

func TestMatcher_Extract_TieBrokenByCreationOrder(t *testing.T) {
	repo := testutil.NewInMemPatternRepo()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	older := deployRow(t, repo, field.Assignee, `Assignee:\s*(\w+)`, 50, base)
	deployRow(t, repo, field.Assignee, `Assignee:\s*(\w+)`, 50, base.Add(time.Minute))

	m := newTestMatcher(repo)
	got, err := m.Extract(context.Background(), field.Assignee, "Assignee: Acme")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, older.ID.String(), got.RuleID)
}

func TestMatcher_Extract_FallsThroughToNextRule(t *testing.T) {
	repo := testutil.NewInMemPatternRepo()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	deployRow(t, repo, field.Assignee, `Owner:\s*(\w+)`, 10, base)
	second := deployRow(t, repo, field.Assignee, `Assignee:\s*(\w+)`, 20, base)

	m := newTestMatcher(repo)
	got, err := m.Extract(context.Background(), field.Assignee, "Assignee: Acme")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, second.ID.String(), got.RuleID)
}

func TestMatcher_Extract_BaselineFallback(t *testing.T) {
	m := newTestMatcher(testutil.NewInMemPatternRepo())

	text := "(73) Assignee: Acme Corporation\n(22) Filed: Mar. 3, 2021\n"
	got, err := m.Extract(context.Background(), field.Assignee, text)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, pattern.BaselineRuleID(field.Assignee), got.RuleID)
	assert.Equal(t, "Acme Corporation", got.Value)

	date, err := m.Extract(context.Background(), field.FilingDate, text)
	require.NoError(t, err)
	require.NotNil(t, date)
	assert.Equal(t, "Mar. 3, 2021", date.Value)
}

func TestMatcher_Extract_NoMatchReturnsNil(t *testing.T) {
	m := newTestMatcher(testutil.NewInMemPatternRepo())

	got, err := m.Extract(context.Background(), field.Assignee, "no assignee anywhere")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMatcher_Extract_UnknownField(t *testing.T) {
	m := newTestMatcher(testutil.NewInMemPatternRepo())

	_, err := m.Extract(context.Background(), field.Name("abstract"), "text")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeFieldUnknown))
}

func TestMatcher_Extract_SkipsMalformedStoredPattern(t *testing.T) {
	repo := testutil.NewInMemPatternRepo()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// A row whose pattern no longer compiles must not block the chain.
	require.NoError(t, repo.Insert(context.Background(), &pattern.DeployedPattern{
		ID:        common.NewID(),
		Field:     field.Assignee,
		Pattern:   `(unclosed`,
		Priority:  1,
		IsActive:  true,
		CreatedAt: base,
	}))
	good := deployRow(t, repo, field.Assignee, `Assignee:\s*(\w+)`, 2, base)

	m := newTestMatcher(repo)
	got, err := m.Extract(context.Background(), field.Assignee, "Assignee: Acme")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, good.ID.String(), got.RuleID)
}

func TestMatcher_Invalidate_MakesDeployVisibleImmediately(t *testing.T) {
	repo := testutil.NewInMemPatternRepo()
	m := newTestMatcher(repo)
	ctx := context.Background()

	// Warm the snapshot with no rules.
	got, err := m.Extract(ctx, field.Assignee, "Assignee: Acme")
	require.NoError(t, err)
	require.Nil(t, got)

	row := deployRow(t, repo, field.Assignee, `Assignee:\s*(\w+)`, 10,
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	// Within TTL the stale snapshot still serves.
	got, err = m.Extract(ctx, field.Assignee, "Assignee: Acme")
	require.NoError(t, err)
	assert.Nil(t, got)

	m.Invalidate(ctx, field.Assignee)
	got, err = m.Extract(ctx, field.Assignee, "Assignee: Acme")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, row.ID.String(), got.RuleID)
}

func TestMatcher_Extract_ServesStaleSnapshotOnRepoFailure(t *testing.T) {
	repo := testutil.NewInMemPatternRepo()
	row := deployRow(t, repo, field.Assignee, `Assignee:\s*(\w+)`, 10,
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	m := pattern.NewMatcher(repo, nil, pattern.MatcherConfig{SnapshotTTL: time.Nanosecond}, nil)
	ctx := context.Background()

	got, err := m.Extract(ctx, field.Assignee, "Assignee: Acme")
	require.NoError(t, err)
	require.NotNil(t, got)

	// TTL expires instantly; the next refresh fails but the stale snapshot
	// keeps extraction alive.
	repo.Errs = assert.AnError
	got, err = m.Extract(ctx, field.Assignee, "Assignee: Acme")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, row.ID.String(), got.RuleID)
}

// Deploy followed by rollback restores match behavior exactly, with history
// preserved.
func TestMatcher_DeployRollbackRoundTrip(t *testing.T) {
	repo := testutil.NewInMemPatternRepo()
	reg := pattern.NewRegistry(repo, testutil.NewInProcLocker(), pattern.RegistryConfig{}, nil)
	m := newTestMatcher(repo)
	ctx := context.Background()
	text := "Assignee: Acme Corporation"

	before, err := m.Extract(ctx, field.Assignee, text)
	require.NoError(t, err)

	deployed, err := reg.Deploy(ctx, pattern.DeployInput{
		Field:    field.Assignee,
		Pattern:  `Assignee:\s*(\w+)`,
		Priority: 10,
	})
	require.NoError(t, err)
	m.Invalidate(ctx, field.Assignee)

	during, err := m.Extract(ctx, field.Assignee, text)
	require.NoError(t, err)
	require.NotNil(t, during)
	assert.Equal(t, deployed.ID.String(), during.RuleID)

	_, err = reg.Rollback(ctx, field.Assignee)
	require.NoError(t, err)
	m.Invalidate(ctx, field.Assignee)

	after, err := m.Extract(ctx, field.Assignee, text)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	history, err := repo.ListByField(ctx, field.Assignee)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.False(t, history[0].IsActive)
}
