// Package repositories contains the PostgreSQL implementations of the
// domain persistence ports.
package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/patentdesk/extraction-engine/internal/domain/correction"
	"github.com/patentdesk/extraction-engine/internal/domain/field"
	"github.com/patentdesk/extraction-engine/internal/infrastructure/monitoring/logging"
	appErrors "github.com/patentdesk/extraction-engine/pkg/errors"
	"github.com/patentdesk/extraction-engine/pkg/types/common"
)

// CorrectionRepository persists human corrections.  The table is
// append-only; there are no UPDATE or DELETE statements here.
type CorrectionRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewCorrectionRepository wires the repository to a shared pool.
func NewCorrectionRepository(pool *pgxpool.Pool, logger logging.Logger) *CorrectionRepository {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &CorrectionRepository{pool: pool, logger: logger.Named("correction_repo")}
}

var _ correction.Repository = (*CorrectionRepository)(nil)

// Insert persists a new correction row.
func (r *CorrectionRepository) Insert(ctx context.Context, c *correction.Correction) error {
	const query = `
		INSERT INTO corrections
			(id, document_id, field, corrected_value, source_text, archive_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		string(c.ID), c.DocumentID, string(c.Field),
		c.CorrectedValue, c.SourceText, c.ArchiveKey, c.CreatedAt,
	)
	if err != nil {
		return appErrors.Wrap(err, appErrors.CodeDBQueryError, "failed to insert correction")
	}

	r.logger.Debug("correction inserted",
		logging.String("id", string(c.ID)),
		logging.String("field", string(c.Field)),
	)
	return nil
}

// ListByField returns every correction for the field, oldest first.
func (r *CorrectionRepository) ListByField(ctx context.Context, f field.Name) ([]*correction.Correction, error) {
	const query = `
		SELECT id, document_id, field, corrected_value, source_text, archive_key, created_at
		FROM corrections
		WHERE field = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, string(f))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.CodeDBQueryError, "failed to list corrections")
	}
	defer rows.Close()

	return scanCorrections(rows)
}

// CountByFieldSince counts corrections for the field created strictly after
// since.  A zero since counts the whole corpus.
func (r *CorrectionRepository) CountByFieldSince(ctx context.Context, f field.Name, since time.Time) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM corrections
		WHERE field = $1 AND created_at > $2`

	var count int
	if err := r.pool.QueryRow(ctx, query, string(f), since).Scan(&count); err != nil {
		return 0, appErrors.Wrap(err, appErrors.CodeDBQueryError, "failed to count corrections")
	}
	return count, nil
}

// FindByIDs returns the corrections with the given IDs in the order
// requested.  Unknown IDs are skipped.
func (r *CorrectionRepository) FindByIDs(ctx context.Context, ids []common.ID) ([]*correction.Correction, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = string(id)
	}

	const query = `
		SELECT id, document_id, field, corrected_value, source_text, archive_key, created_at
		FROM corrections
		WHERE id = ANY($1)`

	rows, err := r.pool.Query(ctx, query, raw)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.CodeDBQueryError, "failed to find corrections by id")
	}
	defer rows.Close()

	found, err := scanCorrections(rows)
	if err != nil {
		return nil, err
	}

	// Re-order to match the requested ID order.
	byID := make(map[common.ID]*correction.Correction, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}
	ordered := make([]*correction.Correction, 0, len(found))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			ordered = append(ordered, c)
		}
	}
	return ordered, nil
}

func scanCorrections(rows pgx.Rows) ([]*correction.Correction, error) {
	var out []*correction.Correction
	for rows.Next() {
		var (
			c          correction.Correction
			id, fld    string
			archiveKey *string
		)
		if err := rows.Scan(&id, &c.DocumentID, &fld, &c.CorrectedValue, &c.SourceText, &archiveKey, &c.CreatedAt); err != nil {
			return nil, appErrors.Wrap(err, appErrors.CodeDBQueryError, "failed to scan correction row")
		}
		c.ID = common.ID(id)
		c.Field = field.Name(fld)
		if archiveKey != nil {
			c.ArchiveKey = *archiveKey
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.CodeDBQueryError, "correction row iteration failed")
	}
	return out, nil
}
