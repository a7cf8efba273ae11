package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/patentdesk/extraction-engine/internal/domain/field"
	"github.com/patentdesk/extraction-engine/internal/domain/pattern"
	"github.com/patentdesk/extraction-engine/pkg/types/common"
)

// InMemPatternRepo is a thread-safe in-memory pattern.Repository that
// reproduces the ordering guarantees of the postgres implementation.
type InMemPatternRepo struct {
	mu   sync.RWMutex
	rows []*pattern.DeployedPattern

	// Errs, when set, is returned by every method.
	Errs error
}

// NewInMemPatternRepo creates an empty repository.
func NewInMemPatternRepo() *InMemPatternRepo {
	return &InMemPatternRepo{}
}

func (r *InMemPatternRepo) Insert(_ context.Context, p *pattern.DeployedPattern) error {
	if r.Errs != nil {
		return r.Errs
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *InMemPatternRepo) ListActiveByField(_ context.Context, f field.Name) ([]*pattern.DeployedPattern, error) {
	if r.Errs != nil {
		return nil, r.Errs
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*pattern.DeployedPattern
	for _, p := range r.rows {
		if p.Field == f && p.IsActive {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *InMemPatternRepo) ListByField(_ context.Context, f field.Name) ([]*pattern.DeployedPattern, error) {
	if r.Errs != nil {
		return nil, r.Errs
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*pattern.DeployedPattern
	for _, p := range r.rows {
		if p.Field == f {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *InMemPatternRepo) FindLatestActive(_ context.Context, f field.Name) (*pattern.DeployedPattern, error) {
	if r.Errs != nil {
		return nil, r.Errs
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *pattern.DeployedPattern
	for _, p := range r.rows {
		if p.Field != f || !p.IsActive {
			continue
		}
		if latest == nil || p.CreatedAt.After(latest.CreatedAt) {
			latest = p
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (r *InMemPatternRepo) FindLatestDeactivated(_ context.Context, f field.Name) (*pattern.DeployedPattern, error) {
	if r.Errs != nil {
		return nil, r.Errs
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *pattern.DeployedPattern
	for _, p := range r.rows {
		if p.Field != f || p.IsActive || p.DeactivatedAt == nil {
			continue
		}
		if latest == nil || p.DeactivatedAt.After(*latest.DeactivatedAt) {
			latest = p
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (r *InMemPatternRepo) SetActive(_ context.Context, id common.ID, active bool, at time.Time) error {
	if r.Errs != nil {
		return r.Errs
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.rows {
		if p.ID == id {
			p.IsActive = active
			if active {
				p.DeactivatedAt = nil
			} else {
				t := at
				p.DeactivatedAt = &t
			}
			return nil
		}
	}
	return nil
}

func (r *InMemPatternRepo) LastDeployTime(_ context.Context, f field.Name) (time.Time, error) {
	if r.Errs != nil {
		return time.Time{}, r.Errs
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var last time.Time
	for _, p := range r.rows {
		if p.Field == f && p.IsActive && p.CreatedAt.After(last) {
			last = p.CreatedAt
		}
	}
	return last, nil
}
