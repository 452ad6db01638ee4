package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/librarian/pkg/presenter"
	"github.com/jingkaihe/librarian/pkg/skills"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the skills in the catalog",
	Long:  `List every skill in the loaded catalog with its tags, dependencies and description.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, err := outputFormat()
		if err != nil {
			return err
		}

		lib, _, err := loadLibrarian(cmd.Context())
		if err != nil {
			return err
		}
		reg := lib.Registry()

		records := make([]skills.Record, 0, reg.Len())
		for _, id := range reg.IDs() {
			rec, _ := reg.Get(id)
			records = append(records, rec)
		}

		if format == "json" {
			return writeJSON(cmd.OutOrStdout(), records)
		}

		if len(records) == 0 {
			presenter.Info("No skills found")
			return nil
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTAGS\tDEPENDS ON\tDESCRIPTION")
		fmt.Fprintln(tw, "--\t----\t----------\t-----------")
		for _, rec := range records {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
				rec.ID, orDash(strings.Join(rec.Tags, ",")), orDash(strings.Join(rec.Dependencies, ",")), truncate(rec.Description, 60))
		}
		return tw.Flush()
	},
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
