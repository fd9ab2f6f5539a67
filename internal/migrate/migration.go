package migrate

// Migration is one schema change: a stable identifier plus Up and Down
// procedures. Both procedures are replayed against every migrator on
// each apply or rollback, so they must be pure functions of the
// executor they receive.
type Migration interface {
	// Identifier returns the stable string recorded in the ledger as
	// "migration:<identifier>".
	Identifier() string

	// Up applies the change.
	Up(x *Executor) error

	// Down reverts the change.
	Down(x *Executor) error
}

// Def is a value-based Migration for inline definition.
type Def struct {
	ID     string
	Apply  func(x *Executor) error
	Revert func(x *Executor) error
}

// Identifier implements Migration.
func (d Def) Identifier() string { return d.ID }

// Up implements Migration.
func (d Def) Up(x *Executor) error { return d.Apply(x) }

// Down implements Migration. A nil Revert is a no-op.
func (d Def) Down(x *Executor) error {
	if d.Revert == nil {
		return nil
	}
	return d.Revert(x)
}

// Manifest is an ordered sequence of migrations. Order is significant
// for both forward application and rollback; a manifest is consumed
// once per migration run.
type Manifest []Migration
