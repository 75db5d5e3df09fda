package main

import (
	"github.com/spf13/cobra"

	"github.com/phrazzld/scry-forge/internal/domain"
	"github.com/phrazzld/scry-forge/internal/planner"
)

type planReport struct {
	Closed []domain.Distribution `json:"closed"`
	Open   []domain.Distribution `json:"open"`
	Total  int                   `json:"total"`
}

func newPlanCommand(opts *globalOptions) *cobra.Command {
	var (
		closed int
		open   int
		types  string
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the per-type breakdown for requested counts",
		Long: `Plan computes the exact per-type distribution the worker would request
from the content provider for the given closed and open counts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			selected, err := parseTypes(types)
			if err != nil {
				return err
			}
			report := planReport{
				Closed: planner.PlanClosed(closed, selected),
				Open:   planner.PlanOpen(open, selected),
			}
			report.Total = domain.TotalCount(report.Closed) + domain.TotalCount(report.Open)
			return writeOutput(cmd.OutOrStdout(), opts.output, report)
		},
	}

	cmd.Flags().IntVar(&closed, "closed", 10, "Number of closed-form tasks")
	cmd.Flags().IntVar(&open, "open", 5, "Number of open-form tasks")
	cmd.Flags().StringVar(&types, "types", "single_choice,multiple_choice,open_question,matching,fill_blank",
		"Comma-separated task types to select")

	return cmd
}
