package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/strata-db/strata/internal/conn"
	"github.com/strata-db/strata/internal/manifest"
	"github.com/strata-db/strata/internal/migrate"
	"github.com/strata-db/strata/internal/sqlite"
)

// Migration command error codes.
const (
	ErrCodeDatabase = "E201" // Database open failed
	ErrCodeMigrate  = "E202" // Migration apply/rollback failed
)

// MigrationStatus is one row of the status report.
type MigrationStatus struct {
	ID      string `json:"id"`
	Applied bool   `json:"applied"`
}

// NewMigrateCommand creates the migrate command group.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply, revert and inspect schema migrations",
	}
	cmd.AddCommand(newMigrateUpCommand(rootOpts))
	cmd.AddCommand(newMigrateDownCommand(rootOpts))
	cmd.AddCommand(newMigrateStatusCommand(rootOpts))
	return cmd
}

func newMigrateUpCommand(rootOpts *RootOptions) *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:           "up <manifest-dir>",
		Short:         "Apply pending migrations",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrateUp(rootOpts, args[0], dbPath, cmd)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "database file path (required)")
	_ = cmd.MarkFlagRequired("db")
	return cmd
}

func newMigrateDownCommand(rootOpts *RootOptions) *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:           "down <manifest-dir>",
		Short:         "Revert applied migrations in reverse order",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrateDown(rootOpts, args[0], dbPath, cmd)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "database file path (required)")
	_ = cmd.MarkFlagRequired("db")
	return cmd
}

func newMigrateStatusCommand(rootOpts *RootOptions) *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:           "status <manifest-dir>",
		Short:         "Show the ledger state of each migration",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrateStatus(rootOpts, args[0], dbPath, cmd)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "database file path (required)")
	_ = cmd.MarkFlagRequired("db")
	return cmd
}

func runMigrateUp(opts *RootOptions, dir, dbPath string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := newFormatter(opts, cmd)

	migrations, err := loadManifest(formatter, dir)
	if err != nil {
		return err
	}
	c, err := openConnection(ctx, dbPath)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "opening database", err)
	}
	defer c.Close()

	var applied []string
	for _, m := range migrations {
		done, err := c.Contains(ctx, m)
		if err != nil {
			_ = formatter.Error(ErrCodeMigrate, err.Error(), nil)
			return WrapExitError(ExitFailure, "reading ledger", err)
		}
		if done {
			formatter.VerboseLog("Skipping %s (already applied)", m.Identifier())
			continue
		}
		formatter.VerboseLog("Applying %s", m.Identifier())
		if err := c.Apply(ctx, m); err != nil {
			return reportApplyError(formatter, err)
		}
		applied = append(applied, m.Identifier())
	}

	if formatter.JSON() {
		return formatter.Success(map[string]any{"applied": applied})
	}
	fmt.Fprintf(formatter.Writer, "Applied %d migration(s)\n", len(applied))
	return nil
}

func runMigrateDown(opts *RootOptions, dir, dbPath string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := newFormatter(opts, cmd)

	migrations, err := loadManifest(formatter, dir)
	if err != nil {
		return err
	}
	c, err := openConnection(ctx, dbPath)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "opening database", err)
	}
	defer c.Close()

	var reverted []string
	for i := len(migrations) - 1; i >= 0; i-- {
		m := migrations[i]
		done, err := c.Contains(ctx, m)
		if err != nil {
			_ = formatter.Error(ErrCodeMigrate, err.Error(), nil)
			return WrapExitError(ExitFailure, "reading ledger", err)
		}
		if !done {
			formatter.VerboseLog("Skipping %s (not applied)", m.Identifier())
			continue
		}
		formatter.VerboseLog("Reverting %s", m.Identifier())
		if err := c.Rollback(ctx, m); err != nil {
			return reportApplyError(formatter, err)
		}
		reverted = append(reverted, m.Identifier())
	}

	if formatter.JSON() {
		return formatter.Success(map[string]any{"reverted": reverted})
	}
	fmt.Fprintf(formatter.Writer, "Reverted %d migration(s)\n", len(reverted))
	return nil
}

func runMigrateStatus(opts *RootOptions, dir, dbPath string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := newFormatter(opts, cmd)

	migrations, err := loadManifest(formatter, dir)
	if err != nil {
		return err
	}
	c, err := openConnection(ctx, dbPath)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "opening database", err)
	}
	defer c.Close()

	statuses := make([]MigrationStatus, 0, len(migrations))
	for _, m := range migrations {
		done, err := c.Contains(ctx, m)
		if err != nil {
			_ = formatter.Error(ErrCodeMigrate, err.Error(), nil)
			return WrapExitError(ExitFailure, "reading ledger", err)
		}
		statuses = append(statuses, MigrationStatus{ID: m.Identifier(), Applied: done})
	}

	if formatter.JSON() {
		return formatter.Success(map[string]any{"migrations": statuses})
	}
	for _, s := range statuses {
		mark := " "
		if s.Applied {
			mark = "x"
		}
		fmt.Fprintf(formatter.Writer, "[%s] %s\n", mark, s.ID)
	}
	return nil
}

// reportApplyError surfaces partial-failure detail: which migrators
// completed before the failing one.
func reportApplyError(formatter *OutputFormatter, err error) error {
	var applyErr *migrate.ApplyError
	if errors.As(err, &applyErr) {
		_ = formatter.Error(ErrCodeMigrate, applyErr.Error(), map[string]any{
			"run_token": applyErr.RunToken,
			"migration": applyErr.Migration,
			"migrator":  applyErr.Migrator,
			"completed": applyErr.Completed,
		})
		return WrapExitError(ExitFailure, "migration failed", err)
	}
	_ = formatter.Error(ErrCodeMigrate, err.Error(), nil)
	return WrapExitError(ExitFailure, "migration failed", err)
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	format, err := ParseFormat(opts.Format)
	if err != nil {
		format = FormatText
	}
	return &OutputFormatter{
		Format:    format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// loadManifest loads a manifest directory fail-fast and compiles it
// into migrations.
func loadManifest(formatter *OutputFormatter, dir string) (migrate.Manifest, error) {
	result, errs := manifest.LoadDir(dir, manifest.LoadModeFailFast)
	if len(errs) > 0 {
		var loadErr *manifest.LoadError
		if errors.As(errs[0], &loadErr) {
			_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
		} else {
			_ = formatter.Error(manifest.ErrCodeGeneric, errs[0].Error(), nil)
		}
		return nil, WrapExitError(ExitCommandError, "loading manifest", errs[0])
	}
	formatter.VerboseLog("Loaded %d table(s) from %d CUE file(s)", len(result.Tables), result.FileCount)
	return result.Manifest(), nil
}

func openConnection(ctx context.Context, dbPath string) (*conn.Connection, error) {
	drv, err := sqlite.Open(dbPath)
	if err != nil {
		return nil, err
	}
	c, err := conn.New(ctx, drv, conn.Options{})
	if err != nil {
		drv.Close()
		return nil, err
	}
	return c, nil
}
