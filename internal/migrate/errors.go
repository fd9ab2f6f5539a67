package migrate

import (
	"errors"
	"fmt"
	"strings"
)

// Direction of a migration run.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// ApplyError reports a migrator failing mid-run. Migrators listed in
// Completed were already processed in this call and are NOT rolled
// back automatically; the dual-migrator state is inconsistent until
// the caller reconciles it manually.
type ApplyError struct {
	// RunToken uniquely identifies this apply/rollback call.
	RunToken string

	// Migration is the failing migration's identifier.
	Migration string

	// Migrator names the migrator that failed.
	Migrator string

	// Completed names the migrators that had already succeeded in this
	// call, in order.
	Completed []string

	// Direction is up or down.
	Direction Direction

	// Err is the underlying failure.
	Err error
}

// Error implements the error interface.
func (e *ApplyError) Error() string {
	completed := "none"
	if len(e.Completed) > 0 {
		completed = strings.Join(e.Completed, ",")
	}
	return fmt.Sprintf("migration %s %s failed on migrator %s (run=%s, completed=%s): %v",
		e.Migration, e.Direction, e.Migrator, e.RunToken, completed, e.Err)
}

// Unwrap returns the underlying failure.
func (e *ApplyError) Unwrap() error { return e.Err }

// IsPartialFailure returns true if err is an ApplyError where at least
// one migrator had already completed, i.e. the dual state diverged.
// Uses errors.As to handle wrapped errors.
func IsPartialFailure(err error) bool {
	var ae *ApplyError
	if errors.As(err, &ae) {
		return len(ae.Completed) > 0
	}
	return false
}
