package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/phrazzld/scry-forge/internal/breaker"
	"github.com/phrazzld/scry-forge/internal/config"
	"github.com/phrazzld/scry-forge/internal/domain"
	"github.com/phrazzld/scry-forge/internal/generation"
	"github.com/phrazzld/scry-forge/internal/platform/gemini"
	"github.com/phrazzld/scry-forge/internal/service"
	"github.com/phrazzld/scry-forge/internal/store"
)

// requestFlags collects the flags that describe a generation request.
type requestFlags struct {
	account    string
	subject    string
	difficulty string
	topic      string
	types      string
	closed     int
	open       int
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.account, "account", "", "Account id (default: a fresh id)")
	cmd.Flags().StringVar(&f.subject, "subject", string(domain.SubjectMath), "Subject: math, language, science or history")
	cmd.Flags().StringVar(&f.difficulty, "difficulty", string(domain.DifficultyMedium), "Difficulty: easy, medium or hard")
	cmd.Flags().StringVar(&f.topic, "topic", "", "Topic of the batch")
	cmd.Flags().StringVar(&f.types, "types", "single_choice,open_question", "Comma-separated task types to select")
	cmd.Flags().IntVar(&f.closed, "closed", 5, "Number of closed-form tasks")
	cmd.Flags().IntVar(&f.open, "open", 5, "Number of open-form tasks")
	_ = cmd.MarkFlagRequired("topic")
}

func (f *requestFlags) request() (*domain.Request, error) {
	types, err := parseTypes(f.types)
	if err != nil {
		return nil, err
	}
	account := uuid.New()
	if f.account != "" {
		if account, err = uuid.Parse(f.account); err != nil {
			return nil, fmt.Errorf("invalid account id: %w", err)
		}
	}
	return domain.NewRequest(account, domain.Subject(f.subject), domain.Difficulty(f.difficulty),
		f.topic, types, f.closed, f.open)
}

func newGenerateCommand(opts *globalOptions) *cobra.Command {
	flags := &requestFlags{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run one generation episode against the configured provider",
		Long: `Generate runs a full episode in process: primary call, backfill, structural
and semantic validation, auto-fix and assembly. Quota and results are kept in
memory, so nothing is written to the worker's stores.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := flags.request()
			if err != nil {
				return err
			}
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			provider, err := gemini.NewProvider(cmd.Context(), slog.Default(), cfg.LLM)
			if err != nil {
				return err
			}
			return runGenerate(cmd.Context(), cfg, provider, req, cmd.OutOrStdout(), opts.output)
		},
	}
	flags.register(cmd)

	return cmd
}

// runGenerate executes one episode with in-memory quota and result stores
// and writes the result.
func runGenerate(
	ctx context.Context,
	cfg *config.Config,
	provider generation.Provider,
	req *domain.Request,
	out io.Writer,
	format string,
) error {
	ledger := store.NewMemoryLedger()
	ledger.SetBalance(req.AccountID, 1)

	svc, err := service.NewPipelineFromConfig(cfg.LLM, cfg.Generation, service.PipelineDeps{
		Provider: provider,
		Ledger:   ledger,
		Results:  store.NewMemoryResultStore(),
		Breaker: breaker.New(breaker.Config{
			FailureThreshold: cfg.Generation.BreakerFailureThreshold,
			ResetTimeout:     cfg.Generation.BreakerResetTimeout(),
		}),
	}, slog.Default())
	if err != nil {
		return err
	}

	result, err := svc.Generate(ctx, req)
	if err != nil {
		return err
	}
	return writeOutput(out, format, result)
}
