// Package cli implements the strata command line interface.
package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by all commands. Format is
// kept as the raw flag value; PersistentPreRunE rejects anything
// ParseFormat does not accept.
type RootOptions struct {
	Verbose bool
	Format  string
}

// NewRootCommand creates the root command for the strata CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "strata",
		Short: "strata - database-agnostic schema migrations",
		Long:  "Declarative schema manifests, a fluent migration DSL and a tag-based migration ledger over pluggable storage backends.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ParseFormat(opts.Format)
			return err
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", string(FormatText), "output format (json|text)")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewSchemaCommand(opts))

	return cmd
}
