// Package migrate provides the fluent schema-migration DSL, the
// dual-migrator application protocol and the persisted migration
// ledger.
//
// A Migration exposes a stable identifier plus Up and Down procedures.
// Both are replayed against two migrators on every apply or rollback:
// first the live-backend migrator (rendering DDL through the driver's
// schema grammar), then the in-memory schema-state migrator (keeping
// the cached snapshot used for read-side field resolution in
// lock-step).
//
// The ledger records one tag per applied migration
// ("migration:<identifier>") in a reserved table. Tags make
// application idempotent and replayable: Apply skips migrations whose
// tag is present, Rollback removes the tag after a successful Down.
//
// Partial failure is surfaced, not papered over: when a migrator fails
// mid-apply, migrators already processed in that call are not rolled
// back automatically. The caller observes an ApplyError naming the
// failed migrator and the ones that completed, and is responsible for
// manual reconciliation. Migration application is not guarded by any
// mutual exclusion; two concurrent callers can both observe an absent
// tag and both apply.
package migrate
