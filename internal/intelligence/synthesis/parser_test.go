package synthesis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/patentdesk/extraction-engine/pkg/errors"
)

func TestParseCandidates_PlainJSON(t *testing.T) {
	t.Parallel()
	raw := RawCandidates(`[{"pattern": "Assignee:\\s*(.+)", "description": "assignee label line"}]`)

	got, err := ParseCandidates(raw)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, `Assignee:\s*(.+)`, got[0].Pattern)
	assert.Equal(t, "assignee label line", got[0].Description)
}

func TestParseCandidates_FencedJSON(t *testing.T) {
	t.Parallel()
	raw := RawCandidates("```json\n[{\"pattern\": \"x(y)\", \"description\": \"d\"}]\n```")

	got, err := ParseCandidates(raw)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "x(y)", got[0].Pattern)
}

func TestParseCandidates_FenceWithoutLanguageTag(t *testing.T) {
	t.Parallel()
	raw := RawCandidates("```\n[]\n```")

	got, err := ParseCandidates(raw)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParseCandidates_EmptyArray(t *testing.T) {
	t.Parallel()
	got, err := ParseCandidates(RawCandidates("[]"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParseCandidates_DropsBlankPatterns(t *testing.T) {
	t.Parallel()
	raw := RawCandidates(`[{"pattern": "", "description": "empty"}, {"pattern": "a(b)", "description": "keep"}]`)

	got, err := ParseCandidates(raw)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a(b)", got[0].Pattern)
}

func TestParseCandidates_Unparseable(t *testing.T) {
	t.Parallel()
	cases := []string{
		"Sure! Here are some patterns you could use:",
		`{"pattern": "not-an-array"}`,
		"```json\nnot json\n```",
		"",
	}
	for _, raw := range cases {
		raw := raw
		t.Run("", func(t *testing.T) {
			t.Parallel()
			_, err := ParseCandidates(RawCandidates(raw))
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeSynthesisUnparsable))
		})
	}
}

func TestParseCandidates_UnparseableCarriesPayloadDetail(t *testing.T) {
	t.Parallel()
	_, err := ParseCandidates(RawCandidates("I refuse to answer in JSON"))
	require.Error(t, err)
	appErr := pkgerrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Contains(t, appErr.Detail, "I refuse")
}

func TestStripFence_PassthroughWithoutFence(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "[1]", stripFence("[1]"))
}
