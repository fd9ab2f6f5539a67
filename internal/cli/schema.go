package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/strata-db/strata/internal/migrate"
	"github.com/strata-db/strata/internal/schema"
)

// Schema command error codes.
const (
	ErrCodeSchemaBuild = "E301" // Manifest replay failed
	ErrCodeSchemaWrite = "E302" // Snapshot write failed
)

// NewSchemaCommand creates the schema command: it replays the manifest
// against an in-memory schema and emits the YAML snapshot, without
// touching a database.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:           "schema <manifest-dir>",
		Short:         "Render the manifest's schema snapshot",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(rootOpts, args[0], output, cmd)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the snapshot to a file instead of stdout")
	return cmd
}

func runSchema(opts *RootOptions, dir, output string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	migrations, err := loadManifest(formatter, dir)
	if err != nil {
		return err
	}

	s := schema.NewSchema()
	x := migrate.NewExecutor(s, nil, nil)
	for _, m := range migrations {
		formatter.VerboseLog("Replaying %s", m.Identifier())
		if err := m.Up(x); err != nil {
			_ = formatter.Error(ErrCodeSchemaBuild, err.Error(), nil)
			return WrapExitError(ExitFailure, "building schema", err)
		}
	}

	var sb strings.Builder
	if err := schema.SaveSnapshot(&sb, s); err != nil {
		_ = formatter.Error(ErrCodeSchemaWrite, err.Error(), nil)
		return WrapExitError(ExitFailure, "rendering snapshot", err)
	}

	if output != "" {
		if err := os.WriteFile(output, []byte(sb.String()), 0o644); err != nil {
			_ = formatter.Error(ErrCodeSchemaWrite, err.Error(), nil)
			return WrapExitError(ExitCommandError, "writing snapshot", err)
		}
		formatter.VerboseLog("Wrote snapshot to %s", output)
		return nil
	}

	if formatter.JSON() {
		return formatter.Success(map[string]any{"snapshot": sb.String()})
	}
	fmt.Fprint(formatter.Writer, sb.String())
	return nil
}
