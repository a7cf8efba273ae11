package pattern

import (
	"context"
	"time"

	"github.com/patentdesk/extraction-engine/internal/domain/field"
	"github.com/patentdesk/extraction-engine/pkg/types/common"
)

// Repository is the persistence port for deployed patterns.  History is
// append-only: rows change only through the IsActive toggle.
type Repository interface {
	// Insert persists a new deployed pattern row.
	Insert(ctx context.Context, p *DeployedPattern) error

	// ListActiveByField returns the field's active rules ordered by
	// (priority asc, created_at asc) — the exact order the matcher walks.
	ListActiveByField(ctx context.Context, f field.Name) ([]*DeployedPattern, error)

	// ListByField returns the field's full history, active and inactive,
	// newest first.
	ListByField(ctx context.Context, f field.Name) ([]*DeployedPattern, error)

	// FindLatestActive returns the most recently created active rule for
	// the field, or nil when the field has none.
	FindLatestActive(ctx context.Context, f field.Name) (*DeployedPattern, error)

	// FindLatestDeactivated returns the rule with the most recent
	// DeactivatedAt for the field, or nil when no rule has ever been
	// rolled back (or all rolled-back rules were since reactivated).
	FindLatestDeactivated(ctx context.Context, f field.Name) (*DeployedPattern, error)

	// SetActive toggles a rule's activation flag.  Deactivation stamps
	// DeactivatedAt with at; reactivation clears it.
	SetActive(ctx context.Context, id common.ID, active bool, at time.Time) error

	// LastDeployTime returns the creation time of the field's most recent
	// active rule, or the zero time when the field has none.  It backs the
	// opportunity tracker's "corrections since last deploy" count.
	LastDeployTime(ctx context.Context, f field.Name) (time.Time, error)
}
