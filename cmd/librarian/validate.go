package main

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/librarian/pkg/librarian"
	"github.com/jingkaihe/librarian/pkg/plan"
	"github.com/jingkaihe/librarian/pkg/presenter"
	"github.com/jingkaihe/librarian/pkg/skills"
)

type validationReport struct {
	Valid    bool       `json:"valid"`
	Skills   int        `json:"skills"`
	Problems []string   `json:"problems,omitempty"`
	Cycles   [][]string `json:"cycles,omitempty"`
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the skill catalog for errors",
	Long: `Load the skill catalog and report empty or duplicate ids, dependencies on
unknown skills and dependency cycles. Cycles do not prevent loading but any
request selecting a skill on a cycle fails to plan.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, err := outputFormat()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		cfg, err := librarian.GetConfigFromViper()
		if err != nil {
			return err
		}
		records, err := skills.LoadCatalog(ctx, cfg.Catalog)
		if err != nil {
			return errors.Wrap(err, "failed to load skill catalog")
		}

		report := validateRecords(records)

		if format == "json" {
			if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
		} else {
			showReport(report)
		}

		if !report.Valid {
			return &exitError{code: 1}
		}
		return nil
	},
}

func validateRecords(records []skills.Record) validationReport {
	report := validationReport{Skills: len(records)}

	reg, err := skills.NewRegistry(records)
	if err != nil {
		var verr *skills.ValidationError
		if !errors.As(err, &verr) {
			report.Problems = []string{err.Error()}
			return report
		}
		for _, problem := range verr.Problems() {
			report.Problems = append(report.Problems, problem.Error())
		}
		return report
	}

	report.Cycles = plan.DetectCycles(reg)
	report.Valid = len(report.Cycles) == 0
	return report
}

func showReport(report validationReport) {
	for _, problem := range report.Problems {
		presenter.Error(errors.New(problem), "")
	}
	for _, cycle := range report.Cycles {
		presenter.Error(&plan.CycleError{Cycle: cycle}, "")
	}
	if report.Valid {
		presenter.Success(fmt.Sprintf("%d skills, no problems found", report.Skills))
		return
	}
	presenter.Warning(fmt.Sprintf("%d skills, %s", report.Skills, summarize(report)))
}

func summarize(report validationReport) string {
	var parts []string
	if n := len(report.Problems); n > 0 {
		parts = append(parts, fmt.Sprintf("%d problem(s)", n))
	}
	if n := len(report.Cycles); n > 0 {
		parts = append(parts, fmt.Sprintf("%d dependency cycle(s)", n))
	}
	return strings.Join(parts, " and ")
}
