package migrate

import (
	"context"

	"github.com/google/uuid"
)

// Runner drives the dual-migrator application protocol. Migrators run
// in the order given at construction; the caller passes the live
// backend first so the snapshot only advances for changes the backend
// accepted before it.
//
// Application is idempotent through the ledger: when a migration's tag
// is already present, Apply leaves the backend untouched and instead
// fast-forwards every migrator, replaying Up in ensure mode so
// in-memory state (schema mirrors, lifecycle hook registrations)
// catches up with what the backend already holds. Rollback skips
// migrations whose tag is absent. No mutual exclusion is performed;
// see the package comment for the concurrent-caller gap.
type Runner struct {
	migrators []Migrator

	// seen tracks migrations this runner has already driven through
	// Apply or a fast-forward, so repeat calls in one session do not
	// re-register hooks.
	seen map[string]bool
}

// NewRunner creates a runner over the given migrators.
func NewRunner(migrators ...Migrator) *Runner {
	return &Runner{migrators: migrators, seen: make(map[string]bool)}
}

// ledger returns the first migrator ledger, or nil when every migrator
// opts out of tagging.
func (r *Runner) ledger() *TagManager {
	for _, mg := range r.migrators {
		if tm := mg.Tags(); tm != nil {
			return tm
		}
	}
	return nil
}

// Contains reports whether the migration's tag is present in the
// ledger. Without any ledger it unconditionally reports false.
func (r *Runner) Contains(ctx context.Context, m Migration) (bool, error) {
	tm := r.ledger()
	if tm == nil {
		return false, nil
	}
	return tm.Contains(ctx, TagFor(m))
}

// Apply runs the migration's Up against each migrator in sequence,
// recording the tag after each tagging migrator succeeds. Migrations
// already in the ledger are fast-forwarded instead of re-applied. On
// failure the run aborts immediately with an ApplyError; completed
// migrators are not compensated.
func (r *Runner) Apply(ctx context.Context, m Migration) error {
	applied, err := r.Contains(ctx, m)
	if err != nil {
		return err
	}
	if applied {
		return r.fastForward(ctx, m)
	}

	token := newRunToken()
	var completed []string
	for _, mg := range r.migrators {
		if err := mg.Apply(ctx, m); err != nil {
			return &ApplyError{
				RunToken:  token,
				Migration: m.Identifier(),
				Migrator:  mg.Name(),
				Completed: completed,
				Direction: DirectionUp,
				Err:       err,
			}
		}
		if tm := mg.Tags(); tm != nil {
			if err := tm.Tag(ctx, TagFor(m)); err != nil {
				return &ApplyError{
					RunToken:  token,
					Migration: m.Identifier(),
					Migrator:  mg.Name(),
					Completed: completed,
					Direction: DirectionUp,
					Err:       err,
				}
			}
		}
		completed = append(completed, mg.Name())
	}
	r.seen[m.Identifier()] = true
	return nil
}

// fastForward reconciles every migrator with a ledgered migration the
// backend already holds. It runs at most once per migration per
// runner; a migration this runner applied or fast-forwarded before is
// a true no-op.
func (r *Runner) fastForward(ctx context.Context, m Migration) error {
	if r.seen[m.Identifier()] {
		return nil
	}

	token := newRunToken()
	var completed []string
	for _, mg := range r.migrators {
		if err := mg.FastForward(ctx, m); err != nil {
			return &ApplyError{
				RunToken:  token,
				Migration: m.Identifier(),
				Migrator:  mg.Name(),
				Completed: completed,
				Direction: DirectionUp,
				Err:       err,
			}
		}
		completed = append(completed, mg.Name())
	}
	r.seen[m.Identifier()] = true
	return nil
}

// Rollback is symmetric to Apply: it runs Down against each migrator
// in the same order and removes the tag after each tagging migrator
// succeeds. Migrations without a ledger tag are skipped when a ledger
// exists.
func (r *Runner) Rollback(ctx context.Context, m Migration) error {
	if tm := r.ledger(); tm != nil {
		applied, err := tm.Contains(ctx, TagFor(m))
		if err != nil {
			return err
		}
		if !applied {
			return nil
		}
	}

	token := newRunToken()
	var completed []string
	for _, mg := range r.migrators {
		if err := mg.Rollback(ctx, m); err != nil {
			return &ApplyError{
				RunToken:  token,
				Migration: m.Identifier(),
				Migrator:  mg.Name(),
				Completed: completed,
				Direction: DirectionDown,
				Err:       err,
			}
		}
		if tm := mg.Tags(); tm != nil {
			if err := tm.Untag(ctx, TagFor(m)); err != nil {
				return &ApplyError{
					RunToken:  token,
					Migration: m.Identifier(),
					Migrator:  mg.Name(),
					Completed: completed,
					Direction: DirectionDown,
					Err:       err,
				}
			}
		}
		completed = append(completed, mg.Name())
	}
	delete(r.seen, m.Identifier())
	return nil
}

// ApplyAll applies a manifest in order, stopping at the first failure.
func (r *Runner) ApplyAll(ctx context.Context, manifest Manifest) error {
	for _, m := range manifest {
		if err := r.Apply(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// RollbackAll rolls a manifest back in reverse order, stopping at the
// first failure.
func (r *Runner) RollbackAll(ctx context.Context, manifest Manifest) error {
	for i := len(manifest) - 1; i >= 0; i-- {
		if err := r.Rollback(ctx, manifest[i]); err != nil {
			return err
		}
	}
	return nil
}

// newRunToken mints a sortable unique token for one apply/rollback
// call.
func newRunToken() string {
	return uuid.Must(uuid.NewV7()).String()
}
