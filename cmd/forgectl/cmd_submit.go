package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	redisplatform "github.com/phrazzld/scry-forge/internal/platform/redis"
)

func newSubmitCommand(opts *globalOptions) *cobra.Command {
	flags := &requestFlags{}

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Push a generation request onto the worker's intake list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := flags.request()
			if err != nil {
				return err
			}
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			client, err := redisplatform.NewClient(cmd.Context(), cfg.Redis)
			if err != nil {
				return err
			}
			defer client.Close()

			queue := redisplatform.NewRequestQueue(client, cfg.Redis.RequestQueue, slog.Default())
			if err := queue.Push(cmd.Context(), req); err != nil {
				return err
			}
			depth, err := queue.Len(cmd.Context())
			if err != nil {
				return fmt.Errorf("read queue length: %w", err)
			}
			return writeOutput(cmd.OutOrStdout(), opts.output, map[string]any{
				"request_id":  req.ID,
				"account_id":  req.AccountID,
				"queue":       cfg.Redis.RequestQueue,
				"queue_depth": depth,
			})
		},
	}
	flags.register(cmd)

	return cmd
}
