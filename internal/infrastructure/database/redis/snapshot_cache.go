package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/patentdesk/extraction-engine/internal/domain/field"
	"github.com/patentdesk/extraction-engine/internal/domain/pattern"
	"github.com/patentdesk/extraction-engine/internal/infrastructure/monitoring/logging"
)

const snapshotKeyPrefix = "pateng:rules:"

// SnapshotStore shares the matcher's active-rule snapshots across instances
// so a deploy on one node is visible to the others without a database round
// trip per extraction.
//
// All failures are soft: a broken cache degrades to a miss and the matcher
// falls back to the repository.
type SnapshotStore struct {
	client *Client
	ttl    time.Duration
	logger logging.Logger
}

var _ pattern.SnapshotCache = (*SnapshotStore)(nil)

// NewSnapshotStore builds the store.  ttl bounds how stale a cross-instance
// snapshot may get; zero or negative falls back to 30 seconds.
func NewSnapshotStore(client *Client, ttl time.Duration, logger logging.Logger) *SnapshotStore {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &SnapshotStore{client: client, ttl: ttl, logger: logger.Named("snapshot_cache")}
}

// GetRules returns the cached rule list for the field.  The second return
// reports a hit; corrupt or missing entries are misses.
func (s *SnapshotStore) GetRules(ctx context.Context, f field.Name) ([]*pattern.DeployedPattern, bool) {
	raw, err := s.client.Get(ctx, snapshotKey(f)).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			s.logger.Warn("snapshot cache read failed",
				logging.String("field", string(f)),
				logging.Err(err),
			)
		}
		return nil, false
	}

	var rules []*pattern.DeployedPattern
	if err := json.Unmarshal(raw, &rules); err != nil {
		s.logger.Warn("snapshot cache entry corrupt, dropping",
			logging.String("field", string(f)),
			logging.Err(err),
		)
		s.Invalidate(ctx, f)
		return nil, false
	}
	return rules, true
}

// SetRules stores the rule list for the field.
func (s *SnapshotStore) SetRules(ctx context.Context, f field.Name, rules []*pattern.DeployedPattern) {
	raw, err := json.Marshal(rules)
	if err != nil {
		s.logger.Warn("snapshot cache encode failed",
			logging.String("field", string(f)),
			logging.Err(err),
		)
		return
	}
	if err := s.client.Set(ctx, snapshotKey(f), raw, s.ttl).Err(); err != nil {
		s.logger.Warn("snapshot cache write failed",
			logging.String("field", string(f)),
			logging.Err(err),
		)
	}
}

// Invalidate drops the field's cached snapshot.
func (s *SnapshotStore) Invalidate(ctx context.Context, f field.Name) {
	if err := s.client.Del(ctx, snapshotKey(f)).Err(); err != nil {
		s.logger.Warn("snapshot cache invalidate failed",
			logging.String("field", string(f)),
			logging.Err(err),
		)
	}
}

func snapshotKey(f field.Name) string {
	return snapshotKeyPrefix + string(f)
}
