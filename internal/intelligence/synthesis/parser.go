package synthesis

import (
	"encoding/json"
	"strings"

	pkgerrors "github.com/patentdesk/extraction-engine/pkg/errors"
)

// ParseCandidates parses model output into candidate specs.  The accepted
// shape is strict: a JSON array of {"pattern", "description"} objects,
// optionally wrapped in a single fenced code block.  Anything else is
// ErrCodeSynthesisUnparsable, with the raw payload in the error detail so
// the operator can see what the model actually said.
func ParseCandidates(raw RawCandidates) ([]CandidateSpec, error) {
	text := stripFence(strings.TrimSpace(string(raw)))

	var specs []CandidateSpec
	if err := json.Unmarshal([]byte(text), &specs); err != nil {
		return nil, pkgerrors.New(pkgerrors.ErrCodeSynthesisUnparsable,
			"model output is not a JSON candidate array").WithDetail(clip(string(raw), 2000))
	}

	out := specs[:0]
	for _, s := range specs {
		if strings.TrimSpace(s.Pattern) == "" {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// stripFence removes a single surrounding markdown code fence, with or
// without a language tag.  Content that is not fenced passes through
// untouched.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	rest := s[3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[nl+1:] // drop the opening line, including any language tag
	}
	if idx := strings.LastIndex(rest, "```"); idx >= 0 {
		rest = rest[:idx]
	}
	return strings.TrimSpace(rest)
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
