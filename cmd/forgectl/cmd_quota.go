package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/phrazzld/scry-forge/internal/config"
	"github.com/phrazzld/scry-forge/internal/platform/postgres"
	redisplatform "github.com/phrazzld/scry-forge/internal/platform/redis"
)

// balanceLedger is the administrative side of a quota ledger.
type balanceLedger interface {
	SetBalance(ctx context.Context, accountID uuid.UUID, balance int) error
	Balance(ctx context.Context, accountID uuid.UUID) (int, error)
}

type balanceReport struct {
	AccountID uuid.UUID `json:"account_id"`
	Balance   int       `json:"balance"`
	Backend   string    `json:"backend"`
}

func newQuotaCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quota",
		Short: "Inspect and set per-account generation quota",
	}
	cmd.AddCommand(newQuotaGetCommand(opts), newQuotaSetCommand(opts))
	return cmd
}

func newQuotaGetCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <account-id>",
		Short: "Show the balance of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid account id: %w", err)
			}
			return withLedger(cmd.Context(), opts, func(ledger balanceLedger, backend string) error {
				balance, err := ledger.Balance(cmd.Context(), account)
				if err != nil {
					return err
				}
				return writeOutput(cmd.OutOrStdout(), opts.output, balanceReport{account, balance, backend})
			})
		},
	}
}

func newQuotaSetCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <account-id> <balance>",
		Short: "Create or overwrite the balance of an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid account id: %w", err)
			}
			var balance int
			if _, err := fmt.Sscan(args[1], &balance); err != nil {
				return fmt.Errorf("invalid balance %q: %w", args[1], err)
			}
			return withLedger(cmd.Context(), opts, func(ledger balanceLedger, backend string) error {
				if err := ledger.SetBalance(cmd.Context(), account, balance); err != nil {
					return err
				}
				return writeOutput(cmd.OutOrStdout(), opts.output, balanceReport{account, balance, backend})
			})
		},
	}
}

// withLedger opens the configured quota backend, runs fn and closes it.
func withLedger(ctx context.Context, opts *globalOptions, fn func(balanceLedger, string) error) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}

	switch cfg.Quota.Backend {
	case config.QuotaBackendRedis:
		client, err := redisplatform.NewClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()
		return fn(redisplatform.NewQuotaLedger(client), cfg.Quota.Backend)

	case config.QuotaBackendPostgres:
		if cfg.Database.URL == "" {
			return fmt.Errorf("database.url is required for the postgres quota backend")
		}
		db, err := sql.Open("pgx", cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("failed to open database connection: %w", err)
		}
		defer db.Close()
		return fn(postgres.NewPostgresQuotaLedger(db), cfg.Quota.Backend)

	default:
		return fmt.Errorf("unknown quota backend %q", cfg.Quota.Backend)
	}
}
