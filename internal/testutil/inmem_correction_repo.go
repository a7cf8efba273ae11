package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/patentdesk/extraction-engine/internal/domain/correction"
	"github.com/patentdesk/extraction-engine/internal/domain/field"
	"github.com/patentdesk/extraction-engine/pkg/types/common"
)

// InMemCorrectionRepo is a thread-safe in-memory correction.Repository.
type InMemCorrectionRepo struct {
	mu   sync.RWMutex
	rows []*correction.Correction

	// InsertErr, when set, is returned by the next Insert.
	InsertErr error
}

// NewInMemCorrectionRepo creates an empty repository.
func NewInMemCorrectionRepo() *InMemCorrectionRepo {
	return &InMemCorrectionRepo{}
}

func (r *InMemCorrectionRepo) Insert(_ context.Context, c *correction.Correction) error {
	if r.InsertErr != nil {
		return r.InsertErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *InMemCorrectionRepo) ListByField(_ context.Context, f field.Name) ([]*correction.Correction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*correction.Correction
	for _, c := range r.rows {
		if c.Field == f {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *InMemCorrectionRepo) CountByFieldSince(_ context.Context, f field.Name, since time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, c := range r.rows {
		if c.Field == f && c.CreatedAt.After(since) {
			n++
		}
	}
	return n, nil
}

func (r *InMemCorrectionRepo) FindByIDs(_ context.Context, ids []common.ID) ([]*correction.Correction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byID := make(map[common.ID]*correction.Correction, len(r.rows))
	for _, c := range r.rows {
		byID[c.ID] = c
	}
	var out []*correction.Correction
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Len returns the number of stored corrections.
func (r *InMemCorrectionRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rows)
}
