package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/librarian/pkg/plan"
	"github.com/jingkaihe/librarian/pkg/presenter"
)

var planCmd = &cobra.Command{
	Use:   "plan <skill-id>...",
	Short: "Print the execution plan for explicitly chosen skills",
	Long: `Expand the given skills with their transitive dependencies and print them
as execution phases. Skills in the same phase do not depend on each other.

Examples:
  librarian plan cleanup
  librarian plan detect-smells refactor -o json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := outputFormat()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		lib, _, err := loadLibrarian(ctx)
		if err != nil {
			return err
		}

		p, err := lib.Plan(ctx, args)
		if err != nil {
			var cycle *plan.CycleError
			if errors.As(err, &cycle) && format == "json" {
				if werr := writeJSON(cmd.OutOrStdout(), map[string]any{"error": cycle}); werr != nil {
					return werr
				}
				return &exitError{code: 4}
			}
			return err
		}

		if format == "json" {
			return writeJSON(cmd.OutOrStdout(), p)
		}
		presenter.Plan(p)
		return nil
	},
}
