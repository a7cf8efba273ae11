package pattern

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/patentdesk/extraction-engine/internal/domain/correction"
)

// TierConfig holds the confidence-tier thresholds.  The same thresholds
// apply to every field; tiering is a fixed monotone rule, not learned.
type TierConfig struct {
	// HighPassRate and HighMinCorpus gate the high/auto_deploy tier: both
	// must be met.
	HighPassRate  float64
	HighMinCorpus int

	// MediumPassRate gates the medium/review tier.
	MediumPassRate float64
}

// DefaultTierConfig returns the standard thresholds: high requires a pass
// rate of at least 0.9 over a corpus of at least 10; medium requires 0.7.
func DefaultTierConfig() TierConfig {
	return TierConfig{
		HighPassRate:   0.9,
		HighMinCorpus:  10,
		MediumPassRate: 0.7,
	}
}

// Normalize maps a value to its comparison form for validation equality.
// The rules are fixed and identical for every field; they determine pass
// rates, so they must never change silently:
//
//  1. Unicode lowercase.
//  2. Punctuation and symbol runes are replaced with spaces.
//  3. Whitespace runs collapse to a single space; leading and trailing
//     whitespace is trimmed.
//
// "ACME, Inc." and "acme inc" normalize identically.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// extractWith applies a compiled pattern to document text and returns the
// extracted value.  A pattern with capturing groups yields its first group;
// one without yields the whole match.  An empty extraction counts as no
// match, so the bool return is the single source of truth.
func extractWith(re *regexp.Regexp, text string) (string, bool) {
	if re.NumSubexp() > 0 {
		m := re.FindStringSubmatch(text)
		if m == nil || m[1] == "" {
			return "", false
		}
		return m[1], true
	}
	m := re.FindString(text)
	if m == "" {
		return "", false
	}
	return m, true
}

// Validate replays a candidate against the field's full historical corpus
// and fills in PassRate, Confidence, Recommendation, TestedAgainst, and
// TestResults.  Results follow corpus order (oldest first) so the evidence
// list the reviewer sees is reproducible across runs.
//
// A candidate whose pattern does not compile is not an error: every record
// is reported as unmatched with a zero pass rate, giving the operator the
// failure evidence instead of a rejection.
func Validate(candidate PatternCandidate, corpus []*correction.Correction, cfg TierConfig) PatternCandidate {
	out := candidate
	out.TestedAgainst = len(corpus)
	out.TestResults = make([]TestResult, 0, len(corpus))

	re, compileErr := regexp.Compile(candidate.Pattern)

	matched := 0
	for _, c := range corpus {
		result := TestResult{
			CorrectionID:   c.ID,
			CorrectedValue: c.CorrectedValue,
		}
		if compileErr == nil {
			if value, ok := extractWith(re, c.SourceText); ok {
				v := value
				result.ExtractedValue = &v
				result.Matched = Normalize(value) == Normalize(c.CorrectedValue)
			}
		}
		if result.Matched {
			matched++
		}
		out.TestResults = append(out.TestResults, result)
	}

	if out.TestedAgainst > 0 {
		out.PassRate = float64(matched) / float64(out.TestedAgainst)
	}

	switch {
	case compileErr == nil && out.PassRate >= cfg.HighPassRate && out.TestedAgainst >= cfg.HighMinCorpus:
		out.Confidence = ConfidenceHigh
		out.Recommendation = RecommendAutoDeploy
	case compileErr == nil && out.PassRate >= cfg.MediumPassRate && out.TestedAgainst > 0:
		out.Confidence = ConfidenceMedium
		out.Recommendation = RecommendReview
	default:
		out.Confidence = ConfidenceLow
		out.Recommendation = RecommendNeedsMoreData
	}
	return out
}
