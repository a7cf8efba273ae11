package testutil

import (
	"context"

	"github.com/patentdesk/extraction-engine/internal/intelligence/synthesis"
)

// StubGenerator is a deterministic synthesis.Generator.  It returns a fixed
// payload (or error) and records the prompts it received.
type StubGenerator struct {
	Output synthesis.RawCandidates
	Err    error

	Prompts []synthesis.Prompt
}

func (g *StubGenerator) GenerateCandidates(_ context.Context, p synthesis.Prompt) (synthesis.RawCandidates, error) {
	g.Prompts = append(g.Prompts, p)
	if g.Err != nil {
		return "", g.Err
	}
	return g.Output, nil
}
