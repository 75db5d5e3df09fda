package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/phrazzld/scry-forge/internal/config"
)

var version = "dev"

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	output     string
	debug      bool
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "forgectl",
		Short: "Operator CLI for the scry-forge generation pipeline",
		Long: `forgectl plans task distributions, validates task files, runs single
generation episodes and manages the worker's intake list and quota balances.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.output != "yaml" && opts.output != "json" {
				return fmt.Errorf("unsupported output %q: must be yaml or json", opts.output)
			}
			level := slog.LevelWarn
			if opts.debug {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a config file (default: ./config.yaml if present)")
	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "yaml", "Output format: yaml or json")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(newPlanCommand(opts))
	cmd.AddCommand(newValidateCommand(opts))
	cmd.AddCommand(newGenerateCommand(opts))
	cmd.AddCommand(newSubmitCommand(opts))
	cmd.AddCommand(newQuotaCommand(opts))

	return cmd
}

func (o *globalOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFile(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func execute() error {
	return newRootCommand().Execute()
}
