package pattern

import (
	"context"
	"regexp"
	"time"

	"github.com/patentdesk/extraction-engine/internal/domain/field"
	"github.com/patentdesk/extraction-engine/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/patentdesk/extraction-engine/pkg/errors"
	"github.com/patentdesk/extraction-engine/pkg/types/common"
)

// Locker serializes deploy and rollback per field so that two simultaneous
// deploys to the same field never both believe they are the latest.  The
// redis lock factory backs it in production; tests use the in-process
// implementation from internal/testutil.
type Locker interface {
	// Lock blocks until the named lock is held or ctx is done, returning a
	// release function.
	Lock(ctx context.Context, name string) (release func(), err error)
}

// RegistryConfig holds registry tunables.
type RegistryConfig struct {
	// DefaultPriority is assigned when a deploy does not set one.  The
	// default of 50 puts AI-generated rules below human-curated ones.
	DefaultPriority int
}

// Registry manages the deployed-pattern history: deploy inserts new active
// rows, rollback toggles activation.  History rows are never deleted.
type Registry struct {
	repo   Repository
	locker Locker
	cfg    RegistryConfig
	logger logging.Logger

	now func() time.Time
}

// NewRegistry creates a Registry.
func NewRegistry(repo Repository, locker Locker, cfg RegistryConfig, logger logging.Logger) *Registry {
	if cfg.DefaultPriority <= 0 {
		cfg.DefaultPriority = 50
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Registry{
		repo:   repo,
		locker: locker,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// DeployInput carries the operator-supplied parts of a deploy.  Pattern may
// differ from the synthesized candidate: the operator is always permitted to
// hand-edit before deploying.
type DeployInput struct {
	Field               field.Name
	Pattern             string
	Description         string
	Priority            int
	SourceCorrectionIDs []common.ID
}

// Deploy inserts a new active rule for the field.  It never deactivates
// existing rules; multiple active rules coexist and the matcher's priority
// order resolves conflicts at match time.
func (r *Registry) Deploy(ctx context.Context, in DeployInput) (*DeployedPattern, error) {
	if !in.Field.Valid() {
		return nil, pkgerrors.New(pkgerrors.ErrCodeFieldUnknown, "unknown field").WithDetail(in.Field.String())
	}
	if _, err := regexp.Compile(in.Pattern); err != nil {
		return nil, pkgerrors.New(pkgerrors.ErrCodePatternCompile,
			"pattern does not compile").WithDetail(err.Error())
	}

	priority := in.Priority
	if priority <= 0 {
		priority = r.cfg.DefaultPriority
	}

	release, err := r.locker.Lock(ctx, deployLockName(in.Field))
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrCodeDeployConflict,
			"failed to acquire deploy lock for field "+in.Field.String())
	}
	defer release()

	p := &DeployedPattern{
		ID:                  common.NewID(),
		Field:               in.Field,
		Pattern:             in.Pattern,
		Description:         in.Description,
		Priority:            priority,
		SourceCorrectionIDs: in.SourceCorrectionIDs,
		IsActive:            true,
		CreatedAt:           r.now().UTC(),
	}
	if err := r.repo.Insert(ctx, p); err != nil {
		r.logger.Error("failed to insert deployed pattern",
			logging.Err(err),
			logging.String("field", in.Field.String()))
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrCodeDatabaseError, "failed to persist deployed pattern")
	}

	r.logger.Info("pattern deployed",
		logging.String("id", p.ID.String()),
		logging.String("field", in.Field.String()),
		logging.Int("priority", priority))
	return p, nil
}

// RollbackResult reports what a rollback did: the rule it deactivated and,
// when a previously deactivated rule existed, the rule it reactivated.
type RollbackResult struct {
	Deactivated *DeployedPattern `json:"deactivated"`
	Reactivated *DeployedPattern `json:"reactivated,omitempty"`
}

// Rollback deactivates the field's most recently created active rule and
// reactivates the most recently deactivated prior rule, if one exists.
// A field with no active rules yields ErrCodeNothingToRoll.
func (r *Registry) Rollback(ctx context.Context, f field.Name) (*RollbackResult, error) {
	if !f.Valid() {
		return nil, pkgerrors.New(pkgerrors.ErrCodeFieldUnknown, "unknown field").WithDetail(f.String())
	}

	release, err := r.locker.Lock(ctx, deployLockName(f))
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrCodeDeployConflict,
			"failed to acquire deploy lock for field "+f.String())
	}
	defer release()

	latest, err := r.repo.FindLatestActive(ctx, f)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrCodeDatabaseError, "failed to load latest active pattern")
	}
	if latest == nil {
		return nil, pkgerrors.New(pkgerrors.ErrCodeNothingToRoll,
			"no deployed pattern to roll back").WithDetail(f.String())
	}

	prior, err := r.repo.FindLatestDeactivated(ctx, f)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrCodeDatabaseError, "failed to load rollback target")
	}

	now := r.now().UTC()
	if err := r.repo.SetActive(ctx, latest.ID, false, now); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrCodeDatabaseError, "failed to deactivate pattern")
	}

	deactivated := *latest
	deactivated.IsActive = false
	deactivated.DeactivatedAt = &now

	if prior == nil {
		r.logger.Info("pattern rolled back, no prior rule to reactivate",
			logging.String("field", f.String()),
			logging.String("deactivated", latest.ID.String()))
		return &RollbackResult{Deactivated: &deactivated}, nil
	}

	if err := r.repo.SetActive(ctx, prior.ID, true, now); err != nil {
		// The deactivation above already committed; report the half-applied
		// rollback as fatal for this request so the operator retries.
		r.logger.Error("rollback reactivation failed after deactivation",
			logging.Err(err),
			logging.String("field", f.String()),
			logging.String("deactivated", latest.ID.String()),
			logging.String("target", prior.ID.String()))
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrCodeDatabaseError, "failed to reactivate prior pattern")
	}

	reactivated := *prior
	reactivated.IsActive = true
	reactivated.DeactivatedAt = nil

	r.logger.Info("pattern rolled back",
		logging.String("field", f.String()),
		logging.String("deactivated", latest.ID.String()),
		logging.String("reactivated", prior.ID.String()))
	return &RollbackResult{Deactivated: &deactivated, Reactivated: &reactivated}, nil
}

// History returns the field's full deploy history, newest first.
func (r *Registry) History(ctx context.Context, f field.Name) ([]*DeployedPattern, error) {
	if !f.Valid() {
		return nil, pkgerrors.New(pkgerrors.ErrCodeFieldUnknown, "unknown field").WithDetail(f.String())
	}
	rows, err := r.repo.ListByField(ctx, f)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrCodeDatabaseError, "failed to load pattern history")
	}
	return rows, nil
}

func deployLockName(f field.Name) string {
	return "deploy:" + f.String()
}
