package synthesis

import (
	"fmt"
	"strings"

	"github.com/patentdesk/extraction-engine/internal/domain/correction"
	"github.com/patentdesk/extraction-engine/internal/domain/field"
	"github.com/patentdesk/extraction-engine/internal/domain/pattern"
)

// Prompt is the structured input to the generative backend, split into the
// system instruction and the per-request user message.
type Prompt struct {
	System string
	User   string
}

const systemInstruction = `You are an expert at writing Go (RE2) regular expressions that extract bibliographic metadata from patent document text.

Rules you must follow:
- Each pattern must contain exactly one capturing group: the extracted value.
- Patterns must use RE2 syntax: no backreferences, no lookahead or lookbehind.
- Prefer anchoring on printed labels ("Assignee:", "(73)", "Filed:") over guessing at free text.
- Respond with a JSON array only, no prose: [{"pattern": "...", "description": "..."}]
- Propose at most 5 candidates. An empty array is a valid answer.`

// sourceExcerptLen bounds the per-correction source text quoted in the
// prompt so one huge document cannot crowd out the rest of the corpus.
const sourceExcerptLen = 500

// BuildPrompt assembles the synthesis prompt: the field's semantics, the
// numbered correction corpus, and the currently deployed patterns so the
// model proposes complementary rather than duplicate rules.  maxCorpusChars
// caps the total size of quoted corpus text; corrections beyond the cap are
// counted but not quoted.
func BuildPrompt(f field.Name, corpus []*correction.Correction, deployed []*pattern.DeployedPattern, maxCorpusChars int) Prompt {
	var b strings.Builder

	fmt.Fprintf(&b, "Field: %s — %s\n\n", f, f.Semantics())

	b.WriteString("Each example below pairs the value a human extracted with the document text it came from.\n\n")

	quoted := 0
	budget := maxCorpusChars
	for i, c := range corpus {
		excerpt := c.SourceText
		if len(excerpt) > sourceExcerptLen {
			excerpt = excerpt[:sourceExcerptLen]
		}
		if budget > 0 && budget < len(excerpt) {
			break
		}
		fmt.Fprintf(&b, "Example %d\ncorrectedValue: %s\nsourceText: %s\n\n", i+1, c.CorrectedValue, excerpt)
		quoted++
		if budget > 0 {
			budget -= len(excerpt)
		}
	}
	if quoted < len(corpus) {
		fmt.Fprintf(&b, "(%d further examples omitted for length)\n\n", len(corpus)-quoted)
	}

	if len(deployed) > 0 {
		b.WriteString("Patterns already deployed for this field — propose rules that cover cases these miss, not duplicates:\n")
		for _, d := range deployed {
			fmt.Fprintf(&b, "- %s  (%s)\n", d.Pattern, d.Description)
		}
		b.WriteString("\n")
	}

	b.WriteString("Propose extraction patterns for this field now.")

	return Prompt{
		System: systemInstruction,
		User:   b.String(),
	}
}
