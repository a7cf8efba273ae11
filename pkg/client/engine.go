package client

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// Correction is a recorded human correction.
type Correction struct {
	ID             string    `json:"id"`
	DocumentID     string    `json:"documentId"`
	Field          string    `json:"field"`
	CorrectedValue string    `json:"correctedValue"`
	SourceText     string    `json:"sourceText,omitempty"`
	ArchiveKey     string    `json:"archiveKey,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// FieldOpportunity is the synthesis-readiness of one field.
type FieldOpportunity struct {
	Field           string    `json:"field"`
	CorrectionCount int       `json:"correctionCount"`
	Ready           bool      `json:"ready"`
	LastDeployAt    time.Time `json:"lastDeployAt,omitempty"`
}

// TestResult is per-correction validation evidence for a candidate.
type TestResult struct {
	CorrectionID   string  `json:"correctionId"`
	CorrectedValue string  `json:"correctedValue"`
	Matched        bool    `json:"matched"`
	ExtractedValue *string `json:"extractedValue"`
}

// PatternCandidate is a synthesized, validated candidate rule.
type PatternCandidate struct {
	Field          string       `json:"field"`
	Pattern        string       `json:"pattern"`
	Description    string       `json:"description"`
	Confidence     string       `json:"confidence,omitempty"`
	PassRate       float64      `json:"passRate"`
	TestedAgainst  int          `json:"testedAgainst"`
	TestResults    []TestResult `json:"testResults,omitempty"`
	Recommendation string       `json:"recommendation,omitempty"`
}

// SynthesisResult is the outcome of one synthesis run.
type SynthesisResult struct {
	Field      string             `json:"field"`
	CorpusSize int                `json:"corpus_size"`
	Candidates []PatternCandidate `json:"candidates"`
}

// DeployedPattern is a versioned extraction rule.
type DeployedPattern struct {
	ID                  string     `json:"id"`
	Field               string     `json:"field"`
	Pattern             string     `json:"pattern"`
	Description         string     `json:"description"`
	Priority            int        `json:"priority"`
	SourceCorrectionIDs []string   `json:"sourceCorrectionIds,omitempty"`
	IsActive            bool       `json:"isActive"`
	CreatedAt           time.Time  `json:"createdAt"`
	DeactivatedAt       *time.Time `json:"deactivatedAt,omitempty"`
}

// RollbackResult reports what a rollback did.
type RollbackResult struct {
	Deactivated *DeployedPattern `json:"deactivated"`
	Reactivated *DeployedPattern `json:"reactivated,omitempty"`
}

// Match is a successful extraction.
type Match struct {
	Value  string `json:"value"`
	RuleID string `json:"ruleId"`
}

// RecordCorrectionRequest is the body of RecordCorrection.
type RecordCorrectionRequest struct {
	DocumentID     string `json:"document_id"`
	Field          string `json:"field"`
	CorrectedValue string `json:"corrected_value"`
	SourceText     string `json:"source_text,omitempty"`
}

// DeployRequest is the body of Deploy.
type DeployRequest struct {
	Field               string   `json:"field"`
	Pattern             string   `json:"pattern"`
	Description         string   `json:"description,omitempty"`
	Priority            int      `json:"priority,omitempty"`
	SourceCorrectionIDs []string `json:"source_correction_ids,omitempty"`
}

// RecordCorrection records a human correction.
func (c *Client) RecordCorrection(ctx context.Context, req RecordCorrectionRequest) (*Correction, error) {
	var out Correction
	if err := c.post(ctx, "/api/v1/corrections", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Opportunities lists the synthesis-readiness of every field.
func (c *Client) Opportunities(ctx context.Context) ([]FieldOpportunity, error) {
	var out []FieldOpportunity
	if err := c.get(ctx, "/api/v1/opportunities", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Synthesize runs pattern synthesis plus validation for a field.
func (c *Client) Synthesize(ctx context.Context, field string) (*SynthesisResult, error) {
	var out SynthesisResult
	if err := c.post(ctx, fieldPath(field, "synthesize"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Deploy activates a new extraction rule.
func (c *Client) Deploy(ctx context.Context, req DeployRequest) (*DeployedPattern, error) {
	var out DeployedPattern
	if err := c.post(ctx, "/api/v1/patterns", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Rollback reverts the field's most recent deploy.
func (c *Client) Rollback(ctx context.Context, field string) (*RollbackResult, error) {
	var out RollbackResult
	if err := c.post(ctx, fieldPath(field, "rollback"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// History returns the field's full deploy history, newest first.
func (c *Client) History(ctx context.Context, field string) ([]DeployedPattern, error) {
	var out []DeployedPattern
	if err := c.get(ctx, fieldPath(field, "patterns"), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Extract runs the field's rule chain against document text.  A nil Match
// with nil error means no rule matched.
func (c *Client) Extract(ctx context.Context, field, documentText string) (*Match, error) {
	body := struct {
		Field        string `json:"field"`
		DocumentText string `json:"document_text"`
	}{Field: field, DocumentText: documentText}

	var out struct {
		Match *Match `json:"match"`
	}
	if err := c.post(ctx, "/api/v1/extract", body, &out); err != nil {
		return nil, err
	}
	return out.Match, nil
}

func fieldPath(field, suffix string) string {
	return fmt.Sprintf("/api/v1/fields/%s/%s", url.PathEscape(field), suffix)
}
