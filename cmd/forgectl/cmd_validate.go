package main

import (
	"github.com/spf13/cobra"

	"github.com/phrazzld/scry-forge/internal/domain"
	"github.com/phrazzld/scry-forge/internal/validation"
)

func newValidateCommand(opts *globalOptions) *cobra.Command {
	var (
		subject    string
		difficulty string
		topic      string
	)

	cmd := &cobra.Command{
		Use:   "validate <tasks.yaml|tasks.json>",
		Short: "Run the structural validator over a task file",
		Long: `Validate loads a list of tasks (JSON or YAML, each with a "type") and
reports every structural error and warning. It exits with status 1 when any
error is found.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := readTasks(args[0])
			if err != nil {
				return err
			}
			result := validation.New().Validate(tasks, validation.Context{
				Subject:    domain.Subject(subject),
				Difficulty: domain.Difficulty(difficulty),
				Topic:      topic,
			})
			if err := writeOutput(cmd.OutOrStdout(), opts.output, result); err != nil {
				return err
			}
			if !result.Valid {
				return &invalidTasksError{errors: len(result.Errors)}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", string(domain.SubjectMath), "Subject used for number ceiling checks")
	cmd.Flags().StringVar(&difficulty, "difficulty", string(domain.DifficultyMedium), "Difficulty used for number ceiling checks")
	cmd.Flags().StringVar(&topic, "topic", "", "Topic of the batch")

	return cmd
}
