// Package synthesis turns a field's correction corpus into candidate
// extraction rules by prompting a generative model.  The model is treated as
// an untrusted hypothesis source: its output is parsed structurally here and
// statistically validated by the pattern package before any trust is
// extended.
package synthesis

import (
	"context"
)

// RawCandidates is the unparsed model output.  Keeping the raw text in the
// contract lets error details carry the exact payload that failed to parse.
type RawCandidates string

// Generator is the capability interface over the generative backend.  The
// production implementation speaks the OpenAI chat-completions wire format;
// tests use a deterministic stub so validation logic never depends on a live
// network.
type Generator interface {
	GenerateCandidates(ctx context.Context, p Prompt) (RawCandidates, error)
}

// CandidateSpec is one structurally parsed candidate rule: the pattern text
// and its human-readable description, nothing more.  Validation fields are
// filled later by the harness.
type CandidateSpec struct {
	Pattern     string `json:"pattern"`
	Description string `json:"description"`
}
