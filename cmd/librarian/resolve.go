package main

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/librarian/pkg/librarian"
	"github.com/jingkaihe/librarian/pkg/plan"
	"github.com/jingkaihe/librarian/pkg/presenter"
	"github.com/jingkaihe/librarian/pkg/score"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <request>",
	Short: "Resolve a free-text request to skills",
	Long: `Resolve a free-text request against the skill catalog and print the
decision (auto, confirm or clarify), the ranked candidates and, for automatic
selections, the execution plan.

The exit status is 0 for auto, 2 for confirm, 3 for clarify and 4 when the
selection contains a dependency cycle.

Examples:
  librarian resolve "clean up the db layer"
  librarian resolve clnup -o json`,
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

		result, err := lib.Resolve(ctx, strings.Join(args, " "))
		var cycle *plan.CycleError
		if err != nil && !errors.As(err, &cycle) {
			return err
		}

		if format == "json" {
			if werr := writeResultJSON(cmd.OutOrStdout(), result, cycle); werr != nil {
				return werr
			}
		} else {
			showResult(result)
			if cycle != nil {
				presenter.Error(cycle, "Cannot plan the selected skills")
			}
		}

		if code := resolveExitCode(result.Decision.Kind, cycle); code != 0 {
			return &exitError{code: code}
		}
		return nil
	},
}

// resolveExitCode maps a decision to the process exit status
func resolveExitCode(kind score.DecisionKind, cycle *plan.CycleError) int {
	if cycle != nil {
		return 4
	}
	switch kind {
	case score.Auto:
		return 0
	case score.Confirm:
		return 2
	default:
		return 3
	}
}

type resultOutput struct {
	*librarian.Result
	Error *plan.CycleError `json:"error,omitempty"`
}

func writeResultJSON(w io.Writer, result *librarian.Result, cycle *plan.CycleError) error {
	return writeJSON(w, resultOutput{Result: result, Error: cycle})
}

func showResult(result *librarian.Result) {
	presenter.Decision(result.Decision)
	presenter.Plan(result.Plan)

	if result.Decision.Kind != score.Confirm {
		presenter.Candidates(result.Candidates)
	}
}
