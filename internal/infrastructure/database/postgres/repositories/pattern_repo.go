package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/patentdesk/extraction-engine/internal/domain/field"
	"github.com/patentdesk/extraction-engine/internal/domain/pattern"
	"github.com/patentdesk/extraction-engine/internal/infrastructure/monitoring/logging"
	appErrors "github.com/patentdesk/extraction-engine/pkg/errors"
	"github.com/patentdesk/extraction-engine/pkg/types/common"
)

const patternColumns = `id, field, pattern, description, priority,
		source_correction_ids, is_active, created_at, deactivated_at`

// PatternRepository persists deployed extraction rules.  Rows never change
// after insert except for the activation toggle, so pattern history stays
// reconstructable.
type PatternRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewPatternRepository wires the repository to a shared pool.
func NewPatternRepository(pool *pgxpool.Pool, logger logging.Logger) *PatternRepository {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &PatternRepository{pool: pool, logger: logger.Named("pattern_repo")}
}

var _ pattern.Repository = (*PatternRepository)(nil)

// Insert persists a new deployed pattern row.
func (r *PatternRepository) Insert(ctx context.Context, p *pattern.DeployedPattern) error {
	const query = `
		INSERT INTO deployed_patterns
			(id, field, pattern, description, priority,
			 source_correction_ids, is_active, created_at, deactivated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	sources := make([]string, len(p.SourceCorrectionIDs))
	for i, id := range p.SourceCorrectionIDs {
		sources[i] = string(id)
	}

	_, err := r.pool.Exec(ctx, query,
		string(p.ID), string(p.Field), p.Pattern, p.Description, p.Priority,
		sources, p.IsActive, p.CreatedAt, p.DeactivatedAt,
	)
	if err != nil {
		return appErrors.Wrap(err, appErrors.CodeDBQueryError, "failed to insert deployed pattern")
	}

	r.logger.Debug("pattern inserted",
		logging.String("id", string(p.ID)),
		logging.String("field", string(p.Field)),
		logging.Int("priority", p.Priority),
	)
	return nil
}

// ListActiveByField returns the field's active rules in matcher walk order.
func (r *PatternRepository) ListActiveByField(ctx context.Context, f field.Name) ([]*pattern.DeployedPattern, error) {
	const query = `
		SELECT ` + patternColumns + `
		FROM deployed_patterns
		WHERE field = $1 AND is_active
		ORDER BY priority ASC, created_at ASC`

	rows, err := r.pool.Query(ctx, query, string(f))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.CodeDBQueryError, "failed to list active patterns")
	}
	defer rows.Close()

	return scanPatterns(rows)
}

// ListByField returns the field's full history, newest first.
func (r *PatternRepository) ListByField(ctx context.Context, f field.Name) ([]*pattern.DeployedPattern, error) {
	const query = `
		SELECT ` + patternColumns + `
		FROM deployed_patterns
		WHERE field = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, string(f))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.CodeDBQueryError, "failed to list pattern history")
	}
	defer rows.Close()

	return scanPatterns(rows)
}

// FindLatestActive returns the most recently created active rule for the
// field, or nil when the field has none.
func (r *PatternRepository) FindLatestActive(ctx context.Context, f field.Name) (*pattern.DeployedPattern, error) {
	const query = `
		SELECT ` + patternColumns + `
		FROM deployed_patterns
		WHERE field = $1 AND is_active
		ORDER BY created_at DESC
		LIMIT 1`

	return r.findOne(ctx, query, string(f))
}

// FindLatestDeactivated returns the rule with the most recent DeactivatedAt
// for the field, or nil when none is currently deactivated.
func (r *PatternRepository) FindLatestDeactivated(ctx context.Context, f field.Name) (*pattern.DeployedPattern, error) {
	const query = `
		SELECT ` + patternColumns + `
		FROM deployed_patterns
		WHERE field = $1 AND NOT is_active AND deactivated_at IS NOT NULL
		ORDER BY deactivated_at DESC
		LIMIT 1`

	return r.findOne(ctx, query, string(f))
}

// SetActive toggles a rule's activation flag.  Deactivation stamps
// deactivated_at; reactivation clears it.
func (r *PatternRepository) SetActive(ctx context.Context, id common.ID, active bool, at time.Time) error {
	const query = `
		UPDATE deployed_patterns
		SET is_active = $2,
		    deactivated_at = CASE WHEN $2 THEN NULL ELSE $3 END
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, string(id), active, at)
	if err != nil {
		return appErrors.Wrap(err, appErrors.CodeDBQueryError, "failed to toggle pattern activation")
	}
	if tag.RowsAffected() == 0 {
		return appErrors.New(appErrors.ErrCodePatternNotFound, "").WithDetail(string(id))
	}

	r.logger.Debug("pattern activation toggled",
		logging.String("id", string(id)),
		logging.Bool("active", active),
	)
	return nil
}

// LastDeployTime returns the creation time of the field's most recent
// active rule, or the zero time when the field has none.
func (r *PatternRepository) LastDeployTime(ctx context.Context, f field.Name) (time.Time, error) {
	const query = `
		SELECT created_at
		FROM deployed_patterns
		WHERE field = $1 AND is_active
		ORDER BY created_at DESC
		LIMIT 1`

	var t time.Time
	err := r.pool.QueryRow(ctx, query, string(f)).Scan(&t)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.CodeDBQueryError, "failed to read last deploy time")
	}
	return t, nil
}

func (r *PatternRepository) findOne(ctx context.Context, query string, args ...interface{}) (*pattern.DeployedPattern, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.CodeDBQueryError, "failed to query pattern")
	}
	defer rows.Close()

	found, err := scanPatterns(rows)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, nil
	}
	return found[0], nil
}

func scanPatterns(rows pgx.Rows) ([]*pattern.DeployedPattern, error) {
	var out []*pattern.DeployedPattern
	for rows.Next() {
		var (
			p       pattern.DeployedPattern
			id, fld string
			sources []string
		)
		err := rows.Scan(&id, &fld, &p.Pattern, &p.Description, &p.Priority,
			&sources, &p.IsActive, &p.CreatedAt, &p.DeactivatedAt)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.CodeDBQueryError, "failed to scan pattern row")
		}
		p.ID = common.ID(id)
		p.Field = field.Name(fld)
		if len(sources) > 0 {
			p.SourceCorrectionIDs = make([]common.ID, len(sources))
			for i, s := range sources {
				p.SourceCorrectionIDs[i] = common.ID(s)
			}
		}
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.CodeDBQueryError, "pattern row iteration failed")
	}
	return out, nil
}
