// Package pattern implements the deployed-pattern registry, the statistical
// validation harness, and the runtime extraction matcher.  A pattern is a
// regular expression that extracts one metadata field from raw document text;
// deployed patterns form a per-field priority chain the matcher walks at
// extraction time.
package pattern

import (
	"time"

	"github.com/patentdesk/extraction-engine/internal/domain/field"
	"github.com/patentdesk/extraction-engine/pkg/types/common"
)

// Confidence is the tier assigned to a candidate by the validation harness.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Recommendation is the harness's deployment advice for a candidate.
type Recommendation string

const (
	RecommendAutoDeploy    Recommendation = "auto_deploy"
	RecommendReview        Recommendation = "review"
	RecommendNeedsMoreData Recommendation = "needs_more_data"
)

// Priority band conventions.  The engine does not enforce them; they exist so
// operators and baselines stay out of each other's way.
const (
	// PriorityBandCurated is the top of the band reserved for human-curated
	// rules (1–49).
	PriorityBandCurated = 49

	// PriorityBaseline is the floor of the band occupied by built-in
	// baseline fallbacks (100+).
	PriorityBaseline = 100
)

// DeployedPattern is a durable, versioned extraction rule.  Rows are
// append-only; rollback toggles IsActive and never deletes history.
type DeployedPattern struct {
	ID          common.ID  `json:"id"`
	Field       field.Name `json:"field"`
	Pattern     string     `json:"pattern"`
	Description string     `json:"description"`

	// Priority orders the match chain; lower values are tried first.
	// Ties are broken by CreatedAt, oldest first.
	Priority int `json:"priority"`

	// SourceCorrectionIDs records which corrections justified this rule.
	SourceCorrectionIDs []common.ID `json:"sourceCorrectionIds,omitempty"`

	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`

	// DeactivatedAt is set when a rollback deactivates the rule and cleared
	// if a later rollback reactivates it.
	DeactivatedAt *time.Time `json:"deactivatedAt,omitempty"`
}

// TestResult is the verdict for one correction during validation, rendered
// to the reviewer as evidence.
type TestResult struct {
	CorrectionID   common.ID `json:"correctionId"`
	CorrectedValue string    `json:"correctedValue"`
	Matched        bool      `json:"matched"`

	// ExtractedValue is what the pattern pulled out of the source text; nil
	// when the pattern found nothing.
	ExtractedValue *string `json:"extractedValue"`
}

// PatternCandidate is an unvalidated synthesized rule.  It is ephemeral —
// never persisted unless the operator deploys it, at which point it becomes a
// DeployedPattern.
type PatternCandidate struct {
	Field       field.Name `json:"field"`
	Pattern     string     `json:"pattern"`
	Description string     `json:"description"`

	// Validation fields, zero until the harness has run.
	Confidence     Confidence     `json:"confidence,omitempty"`
	PassRate       float64        `json:"passRate"`
	TestedAgainst  int            `json:"testedAgainst"`
	TestResults    []TestResult   `json:"testResults,omitempty"`
	Recommendation Recommendation `json:"recommendation,omitempty"`
}

// Match is a successful extraction: the value pulled from the document and
// the rule that produced it, for provenance.
type Match struct {
	Value  string `json:"value"`
	RuleID string `json:"ruleId"`
}
