package correction

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/patentdesk/extraction-engine/internal/domain/field"
	"github.com/patentdesk/extraction-engine/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/patentdesk/extraction-engine/pkg/errors"
	"github.com/patentdesk/extraction-engine/pkg/types/common"
)

// DeployTimeSource reports the creation time of a field's most recent active
// pattern deploy.  The pattern repository implements it; defining the port
// here keeps the correction package free of a dependency on the pattern
// package.
type DeployTimeSource interface {
	// LastDeployTime returns the zero time when the field has never had an
	// active deploy.
	LastDeployTime(ctx context.Context, f field.Name) (time.Time, error)
}

// Archiver stores oversized source texts in object storage.  The MinIO
// adapter implements it.
type Archiver interface {
	Store(ctx context.Context, key string, text string) error
}

// ServiceConfig holds the tunables of the correction service.
type ServiceConfig struct {
	// ReadyThreshold is the correction count at which a field opportunity
	// becomes ready for synthesis.
	ReadyThreshold int

	// ArchiveMinBytes is the source-text size above which the full text is
	// archived to object storage and truncated in the database row.  Zero
	// disables archiving.
	ArchiveMinBytes int
}

// Service implements correction recording and opportunity tracking.
type Service struct {
	repo     Repository
	deploys  DeployTimeSource
	archiver Archiver
	cfg      ServiceConfig
	logger   logging.Logger

	now func() time.Time
}

// NewService creates a correction Service.  archiver may be nil, in which
// case source texts are always stored inline regardless of size.
func NewService(repo Repository, deploys DeployTimeSource, archiver Archiver, cfg ServiceConfig, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Service{
		repo:     repo,
		deploys:  deploys,
		archiver: archiver,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// RecordInput carries the caller-supplied parts of a correction.
type RecordInput struct {
	DocumentID     string
	Field          string
	CorrectedValue string
	SourceText     string
}

// Record validates and persists a new correction.  The corrected value is
// stored verbatim; an empty or whitespace-only value is rejected because a
// blank correction carries no signal for synthesis.
func (s *Service) Record(ctx context.Context, in RecordInput) (*Correction, error) {
	f, err := field.Parse(in.Field)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.CorrectedValue) == "" {
		return nil, pkgerrors.New(pkgerrors.ErrCodeCorrectionEmptyValue,
			"corrected value must not be empty")
	}
	if strings.TrimSpace(in.DocumentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "document id is required")
	}

	c := &Correction{
		ID:             common.NewID(),
		DocumentID:     in.DocumentID,
		Field:          f,
		CorrectedValue: in.CorrectedValue,
		SourceText:     in.SourceText,
		CreatedAt:      s.now().UTC(),
	}

	s.maybeArchive(ctx, c)

	if err := s.repo.Insert(ctx, c); err != nil {
		s.logger.Error("failed to insert correction",
			logging.Err(err),
			logging.String("field", f.String()),
			logging.String("document_id", in.DocumentID))
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrCodeDatabaseError, "failed to persist correction")
	}

	s.logger.Info("correction recorded",
		logging.String("id", c.ID.String()),
		logging.String("field", f.String()),
		logging.Int("source_text_bytes", len(in.SourceText)))
	return c, nil
}

// maybeArchive moves an oversized source text to object storage, leaving a
// truncated prefix in the row.  An archive failure degrades gracefully: the
// full text stays inline and the failure is logged under COR_003.
func (s *Service) maybeArchive(ctx context.Context, c *Correction) {
	if s.archiver == nil || s.cfg.ArchiveMinBytes <= 0 || len(c.SourceText) <= s.cfg.ArchiveMinBytes {
		return
	}

	key := fmt.Sprintf("corrections/%s/%s.txt", c.Field, c.ID)
	if err := s.archiver.Store(ctx, key, c.SourceText); err != nil {
		s.logger.Warn("source text archive failed, storing inline",
			logging.Err(pkgerrors.Wrap(err, pkgerrors.ErrCodeCorrectionArchive, "archive store failed")),
			logging.String("key", key))
		return
	}

	c.ArchiveKey = key
	c.SourceText = truncateUTF8(c.SourceText, s.cfg.ArchiveMinBytes)
}

// truncateUTF8 cuts s to at most max bytes without splitting a rune.
func truncateUTF8(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}

// Opportunities computes the synthesis-readiness of every field.  Results
// come back in field declaration order.
func (s *Service) Opportunities(ctx context.Context) ([]FieldOpportunity, error) {
	out := make([]FieldOpportunity, 0, len(field.All()))
	for _, f := range field.All() {
		since, err := s.deploys.LastDeployTime(ctx, f)
		if err != nil {
			return nil, pkgerrors.Wrap(err, pkgerrors.ErrCodeDatabaseError,
				"failed to resolve last deploy time for field "+f.String())
		}
		count, err := s.repo.CountByFieldSince(ctx, f, since)
		if err != nil {
			return nil, pkgerrors.Wrap(err, pkgerrors.ErrCodeDatabaseError,
				"failed to count corrections for field "+f.String())
		}
		out = append(out, FieldOpportunity{
			Field:           f,
			CorrectionCount: count,
			Ready:           count >= s.cfg.ReadyThreshold,
			LastDeployAt:    since,
		})
	}
	return out, nil
}

// CorpusFor returns the full correction corpus for a field, oldest first.
// The synthesizer and validation harness both consume it.
func (s *Service) CorpusFor(ctx context.Context, f field.Name) ([]*Correction, error) {
	corpus, err := s.repo.ListByField(ctx, f)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrCodeDatabaseError,
			"failed to load correction corpus for field "+f.String())
	}
	return corpus, nil
}
