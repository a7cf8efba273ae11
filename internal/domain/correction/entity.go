// Package correction implements the append-only correction store and the
// opportunity tracker.  A correction is a human-verified metadata value for a
// document where automated extraction failed; the accumulated corpus per
// field is what the pattern synthesizer learns from.
package correction

import (
	"time"

	"github.com/patentdesk/extraction-engine/internal/domain/field"
	"github.com/patentdesk/extraction-engine/pkg/types/common"
)

// Correction is a single human correction, immutable once recorded.
// Corrections are never updated or deleted; the corpus only grows.
type Correction struct {
	// ID is the platform-assigned UUID of the correction.
	ID common.ID `json:"id"`

	// DocumentID identifies the source document the correction belongs to.
	DocumentID string `json:"documentId"`

	// Field is the metadata field the human corrected.
	Field field.Name `json:"field"`

	// CorrectedValue is the value the human entered.  Stored verbatim —
	// normalization happens only at validation time, never at rest.
	CorrectedValue string `json:"correctedValue"`

	// SourceText is the document text surrounding the value.  When the
	// original text exceeds the archive threshold only a truncated prefix is
	// stored here and the full text lives in object storage under ArchiveKey.
	SourceText string `json:"sourceText"`

	// ArchiveKey is the object-storage key of the full source text, empty
	// when the text was small enough to store inline.
	ArchiveKey string `json:"archiveKey,omitempty"`

	// CreatedAt is the server-side recording time.
	CreatedAt time.Time `json:"createdAt"`
}

// FieldOpportunity summarises the synthesis-readiness of one field: how many
// corrections have accumulated since the field's patterns last changed, and
// whether that count has crossed the readiness threshold.
type FieldOpportunity struct {
	// Field is the metadata field this opportunity concerns.
	Field field.Name `json:"field"`

	// CorrectionCount is the number of corrections recorded after
	// LastDeployAt (all corrections ever, when the field has no deploys).
	CorrectionCount int `json:"correctionCount"`

	// Ready is true when CorrectionCount has reached the configured
	// readiness threshold.
	Ready bool `json:"ready"`

	// LastDeployAt is the creation time of the field's most recent active
	// pattern deploy; zero when the field has never had one.
	LastDeployAt time.Time `json:"lastDeployAt,omitempty"`
}
