package pattern

import (
	"context"
	"regexp"
	"sync"
	"time"

	"github.com/patentdesk/extraction-engine/internal/domain/field"
	"github.com/patentdesk/extraction-engine/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/patentdesk/extraction-engine/pkg/errors"
)

// SnapshotCache is an optional shared cache for registry snapshots, letting
// replicas refresh from redis instead of hitting postgres on every TTL
// expiry.  Implementations swallow their own errors; a cache failure only
// means a repository read.
type SnapshotCache interface {
	GetRules(ctx context.Context, f field.Name) ([]*DeployedPattern, bool)
	SetRules(ctx context.Context, f field.Name, rules []*DeployedPattern)
	Invalidate(ctx context.Context, f field.Name)
}

// MatcherConfig holds matcher tunables.
type MatcherConfig struct {
	// SnapshotTTL bounds how stale a field's in-memory rule snapshot may
	// get before the next Extract refreshes it.
	SnapshotTTL time.Duration
}

// Matcher extracts field values from raw document text by walking the
// field's active rules in priority order, then the built-in baseline.
//
// Matching is read-only and safe for heavy concurrent use: each field's
// rules live in an immutable snapshot that is atomically swapped on refresh,
// so in-flight matches never wait on deploys.
type Matcher struct {
	repo   Repository
	cache  SnapshotCache
	cfg    MatcherConfig
	logger logging.Logger

	mu        sync.Mutex // guards refresh, not reads
	snapshots sync.Map   // field.Name -> *fieldSnapshot

	now func() time.Time
}

type compiledRule struct {
	id       string
	priority int
	re       *regexp.Regexp
}

type fieldSnapshot struct {
	rules   []compiledRule
	expires time.Time
}

// NewMatcher creates a Matcher.  cache may be nil.
func NewMatcher(repo Repository, cache SnapshotCache, cfg MatcherConfig, logger logging.Logger) *Matcher {
	if cfg.SnapshotTTL <= 0 {
		cfg.SnapshotTTL = 30 * time.Second
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Matcher{
		repo:   repo,
		cache:  cache,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Extract walks the field's active rules in (priority asc, created_at asc)
// order and returns the first successful extraction, falling back to the
// built-in baseline rule.  A nil Match with nil error means no rule matched;
// the ingestion pipeline treats that as "field missing", which is what
// routes the document into the human-correction loop.
func (m *Matcher) Extract(ctx context.Context, f field.Name, documentText string) (*Match, error) {
	if !f.Valid() {
		return nil, pkgerrors.New(pkgerrors.ErrCodeFieldUnknown, "unknown field").WithDetail(f.String())
	}

	snap, err := m.snapshot(ctx, f)
	if err != nil {
		return nil, err
	}

	for _, rule := range snap.rules {
		if value, ok := extractWith(rule.re, documentText); ok {
			return &Match{Value: value, RuleID: rule.id}, nil
		}
	}

	if bl, ok := baselines[f]; ok {
		if value, ok := extractWith(bl.re, documentText); ok {
			return &Match{Value: value, RuleID: bl.id}, nil
		}
	}
	return nil, nil
}

// Invalidate drops the field's snapshot so the next Extract sees freshly
// deployed or rolled-back rules immediately instead of after TTL expiry.
func (m *Matcher) Invalidate(ctx context.Context, f field.Name) {
	m.snapshots.Delete(f)
	if m.cache != nil {
		m.cache.Invalidate(ctx, f)
	}
}

// snapshot returns the field's current rule snapshot, refreshing it when
// expired.  When a refresh fails and a stale snapshot exists the stale one
// is served: a registry outage must degrade match freshness, not block
// extraction.
func (m *Matcher) snapshot(ctx context.Context, f field.Name) (*fieldSnapshot, error) {
	if v, ok := m.snapshots.Load(f); ok {
		snap := v.(*fieldSnapshot)
		if m.now().Before(snap.expires) {
			return snap, nil
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Another goroutine may have refreshed while we waited on the mutex.
	if v, ok := m.snapshots.Load(f); ok {
		snap := v.(*fieldSnapshot)
		if m.now().Before(snap.expires) {
			return snap, nil
		}
	}

	rules, err := m.loadRules(ctx, f)
	if err != nil {
		if v, ok := m.snapshots.Load(f); ok {
			m.logger.Warn("registry snapshot refresh failed, serving stale rules",
				logging.Err(err),
				logging.String("field", f.String()))
			return v.(*fieldSnapshot), nil
		}
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrCodeRegistrySnapshot,
			"failed to load rules for field "+f.String())
	}

	snap := &fieldSnapshot{
		rules:   rules,
		expires: m.now().Add(m.cfg.SnapshotTTL),
	}
	m.snapshots.Store(f, snap)
	return snap, nil
}

// loadRules fetches the field's active rules from the shared cache or the
// repository and compiles them.  A stored pattern that no longer compiles is
// logged and skipped — one bad rule must never block extraction of a whole
// document.
func (m *Matcher) loadRules(ctx context.Context, f field.Name) ([]compiledRule, error) {
	var (
		rows   []*DeployedPattern
		cached bool
	)
	if m.cache != nil {
		rows, cached = m.cache.GetRules(ctx, f)
	}
	if !cached {
		var err error
		rows, err = m.repo.ListActiveByField(ctx, f)
		if err != nil {
			return nil, err
		}
		if m.cache != nil {
			m.cache.SetRules(ctx, f, rows)
		}
	}

	rules := make([]compiledRule, 0, len(rows))
	for _, row := range rows {
		re, err := regexp.Compile(row.Pattern)
		if err != nil {
			m.logger.Warn("skipping malformed stored pattern",
				logging.Err(err),
				logging.String("rule_id", row.ID.String()),
				logging.String("field", f.String()))
			continue
		}
		rules = append(rules, compiledRule{
			id:       row.ID.String(),
			priority: row.Priority,
			re:       re,
		})
	}
	return rules, nil
}
