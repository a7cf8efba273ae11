package redis

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/patentdesk/extraction-engine/internal/domain/pattern"
	"github.com/patentdesk/extraction-engine/internal/infrastructure/monitoring/logging"
	"github.com/patentdesk/extraction-engine/pkg/errors"
)

var ErrLockNotAcquired = errors.New(errors.ErrCodeConflict, "failed to acquire lock")

const lockKeyPrefix = "pateng:lock:"

// releaseScript deletes the lock only when the stored token matches, so a
// lock that expired and was re-acquired elsewhere is never released by the
// old holder.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// LockOptions tunes lock acquisition.
type LockOptions struct {
	// TTL is how long a held lock survives a crashed holder.
	TTL time.Duration
	// RetryDelay is the pause between acquisition attempts.
	RetryDelay time.Duration
}

// DeployLocker serializes pattern deploys per field across engine
// instances.  It implements the registry's Locker port with a token-fenced
// SET NX lock.
type DeployLocker struct {
	client *Client
	opts   LockOptions
	logger logging.Logger
}

var _ pattern.Locker = (*DeployLocker)(nil)

// NewDeployLocker builds the locker.  Zero option fields get serviceable
// defaults (30s TTL, 100ms retry).
func NewDeployLocker(client *Client, opts LockOptions, logger logging.Logger) *DeployLocker {
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Second
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 100 * time.Millisecond
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &DeployLocker{client: client, opts: opts, logger: logger.Named("deploy_lock")}
}

// Lock blocks until the named lock is held or ctx is done.  The returned
// release function is safe to call exactly once; it logs instead of failing
// when the lock already expired.
func (l *DeployLocker) Lock(ctx context.Context, name string) (func(), error) {
	key := lockKeyPrefix + name
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.opts.TTL).Result()
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeCacheError, "lock acquisition failed")
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), errors.ErrCodeConflict, "lock wait cancelled")
		case <-time.After(l.opts.RetryDelay):
		}
	}

	release := func() {
		// Release must not inherit a cancelled request context.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		deleted, err := l.client.Eval(ctx, releaseScript, []string{key}, token).Int()
		if err != nil {
			l.logger.Warn("lock release failed", logging.String("name", name), logging.Err(err))
			return
		}
		if deleted == 0 {
			l.logger.Warn("lock already expired at release", logging.String("name", name))
		}
	}
	return release, nil
}
