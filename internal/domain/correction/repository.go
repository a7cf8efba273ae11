package correction

import (
	"context"
	"time"

	"github.com/patentdesk/extraction-engine/internal/domain/field"
	"github.com/patentdesk/extraction-engine/pkg/types/common"
)

// Repository is the persistence port for corrections.  The store is
// append-only: there are deliberately no update or delete methods.
//
// Implementations live in internal/infrastructure/database/postgres; tests
// use the in-memory implementation from internal/testutil.
type Repository interface {
	// Insert persists a new correction.  The caller has already assigned
	// the ID and CreatedAt.
	Insert(ctx context.Context, c *Correction) error

	// ListByField returns every correction for the field in insertion
	// order, oldest first.
	ListByField(ctx context.Context, f field.Name) ([]*Correction, error)

	// CountByFieldSince counts corrections for the field created strictly
	// after the given instant.  A zero time counts the whole corpus.
	CountByFieldSince(ctx context.Context, f field.Name, since time.Time) (int, error)

	// FindByIDs returns the corrections with the given IDs, in the order
	// requested.  Unknown IDs are skipped, not an error.
	FindByIDs(ctx context.Context, ids []common.ID) ([]*Correction, error)
}
