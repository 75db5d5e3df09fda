package service

import (
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-forge/internal/agents"
	"github.com/phrazzld/scry-forge/internal/breaker"
	"github.com/phrazzld/scry-forge/internal/config"
	"github.com/phrazzld/scry-forge/internal/generation"
	"github.com/phrazzld/scry-forge/internal/metrics"
	"github.com/phrazzld/scry-forge/internal/store"
	"github.com/phrazzld/scry-forge/internal/validation"
)

// PipelineDeps are the backends a configured pipeline runs against.
// Metrics is optional.
type PipelineDeps struct {
	Provider generation.Provider
	Ledger   store.QuotaLedger
	Results  store.ResultStore
	Breaker  *breaker.CircuitBreaker
	Metrics  *metrics.Metrics
}

// NewPipelineFromConfig assembles a GenerationService from configuration.
// Batch, review and fix calls all go through one generation.Client, so each
// is bounded by the configured call timeout and token limit.
func NewPipelineFromConfig(
	llm config.LLMConfig,
	gen config.GenerationConfig,
	deps PipelineDeps,
	log *slog.Logger,
) (*GenerationService, error) {
	if deps.Provider == nil {
		return nil, fmt.Errorf("%w: provider", ErrMissingDependency)
	}

	client, err := generation.NewClient(deps.Provider, generation.ClientConfig{
		CallTimeout:     llm.CallTimeout(),
		MaxOutputTokens: llm.MaxOutputTokens,
		Temperature:     llm.Temperature,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create generation client: %w", err)
	}

	validator := validation.New()
	reviewers, err := agents.NewAgents(gen.Agents, client, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create semantic agents: %w", err)
	}
	fixer := agents.NewAutoFixer(client, validator, gen.FixConcurrency, log)

	svc, err := NewGenerationService(GenerationDeps{
		Generator: client,
		Ledger:    deps.Ledger,
		Results:   deps.Results,
		Breaker:   deps.Breaker,
		Validator: validator,
		Semantic:  agents.NewPipeline(reviewers, fixer, log),
		Metrics:   deps.Metrics,
	}, GenerationConfig{
		MaxRetries:     gen.MaxRetries,
		BackoffBase:    gen.BackoffBase(),
		EpisodeTimeout: gen.EpisodeTimeout(),
		AutoFix:        gen.AutoFix,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create generation service: %w", err)
	}
	return svc, nil
}
