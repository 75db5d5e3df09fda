package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/phrazzld/scry-forge/internal/agents"
	"github.com/phrazzld/scry-forge/internal/breaker"
	"github.com/phrazzld/scry-forge/internal/domain"
	"github.com/phrazzld/scry-forge/internal/generation"
	"github.com/phrazzld/scry-forge/internal/metrics"
	"github.com/phrazzld/scry-forge/internal/planner"
	"github.com/phrazzld/scry-forge/internal/redact"
	"github.com/phrazzld/scry-forge/internal/store"
	"github.com/phrazzld/scry-forge/internal/validation"
)

// BatchGenerator produces tasks from the content provider.
// *generation.Client implements it.
type BatchGenerator interface {
	GenerateBatch(ctx context.Context, spec generation.BatchSpec) ([]domain.Task, error)
}

// SemanticValidator reviews and repairs a structurally valid batch.
// *agents.Pipeline implements it.
type SemanticValidator interface {
	RunValidation(ctx context.Context, tasks []domain.Task, vctx validation.Context, opts agents.Options) agents.Outcome
}

// GenerationConfig tunes an episode.
type GenerationConfig struct {
	// MaxRetries bounds the number of backfill calls.
	MaxRetries int
	// BackoffBase is the delay before the first backfill; it doubles per attempt.
	BackoffBase time.Duration
	// EpisodeTimeout stops new backfill attempts once elapsed. Zero disables it.
	EpisodeTimeout time.Duration
	AutoFix        bool
}

// DefaultGenerationConfig returns the configuration used when none is loaded.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		MaxRetries:     3,
		BackoffBase:    time.Second,
		EpisodeTimeout: 3 * time.Minute,
		AutoFix:        true,
	}
}

// GenerationDeps are the collaborators of a GenerationService. Semantic,
// Metrics, Sleeper and Clock are optional.
type GenerationDeps struct {
	Generator BatchGenerator
	Ledger    store.QuotaLedger
	Results   store.ResultStore
	Breaker   *breaker.CircuitBreaker
	Validator *validation.Validator
	Semantic  SemanticValidator
	Metrics   *metrics.Metrics
	Sleeper   Sleeper
	Clock     breaker.Clock
}

// GenerationService runs generation episodes. It is safe for concurrent use;
// the circuit breaker is the only state shared between episodes.
type GenerationService struct {
	deps   GenerationDeps
	config GenerationConfig
	logger *slog.Logger
}

// NewGenerationService validates deps and fills the optional ones.
func NewGenerationService(deps GenerationDeps, config GenerationConfig, log *slog.Logger) (*GenerationService, error) {
	switch {
	case deps.Generator == nil:
		return nil, fmt.Errorf("%w: generator", ErrMissingDependency)
	case deps.Ledger == nil:
		return nil, fmt.Errorf("%w: quota ledger", ErrMissingDependency)
	case deps.Results == nil:
		return nil, fmt.Errorf("%w: result store", ErrMissingDependency)
	case deps.Breaker == nil:
		return nil, fmt.Errorf("%w: circuit breaker", ErrMissingDependency)
	}
	if deps.Validator == nil {
		deps.Validator = validation.New()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewMetrics(prometheus.NewRegistry())
	}
	if deps.Sleeper == nil {
		deps.Sleeper = TimerSleeper
	}
	if deps.Clock == nil {
		deps.Clock = breaker.SystemClock
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if log == nil {
		log = slog.Default()
	}

	return &GenerationService{
		deps:   deps,
		config: config,
		logger: log.With("component", "generation_service"),
	}, nil
}

// episode carries the state of one Generate call.
type episode struct {
	req        *domain.Request
	closed     []domain.Distribution
	open       []domain.Distribution
	wantClosed int
	wantOpen   int

	closedTasks []domain.Task
	openTasks   []domain.Task

	start     time.Time
	deadline  time.Time
	telemetry domain.Telemetry
	log       *slog.Logger
}

func (e *episode) missing() (closed, open int) {
	return max(e.wantClosed-len(e.closedTasks), 0), max(e.wantOpen-len(e.openTasks), 0)
}

// merge appends tasks by form and returns how many were discarded because
// their type was not selected.
func (e *episode) merge(tasks []domain.Task) int {
	discarded := 0
	for _, t := range tasks {
		if !e.req.Selects(t.Type()) {
			discarded++
			continue
		}
		if domain.FormOf(t) == domain.FormClosed {
			e.closedTasks = append(e.closedTasks, t)
		} else {
			e.openTasks = append(e.openTasks, t)
		}
	}
	return discarded
}

func (e *episode) collected() []domain.Task {
	all := make([]domain.Task, 0, len(e.closedTasks)+len(e.openTasks))
	all = append(all, e.closedTasks...)
	return append(all, e.openTasks...)
}

// Generate runs one episode for req. It returns ErrInvalidRequest,
// ErrQuotaExhausted, a generation.ErrProviderFailure from the primary call
// or ErrPersistence; in every other case it returns a result that may hold
// fewer tasks than requested.
func (s *GenerationService) Generate(ctx context.Context, req *domain.Request) (*domain.Result, error) {
	start := s.deps.Clock.Now()

	ep, err := s.prepare(req, start)
	if err != nil {
		s.deps.Metrics.RecordEpisode(metrics.OutcomeInvalidRequest, 0)
		return nil, err
	}
	log := s.logger.With(
		"request_id", req.ID,
		"account_id", req.AccountID,
	)
	ep.log = log

	ok, err := s.deps.Ledger.DecrementIfPositive(ctx, req.AccountID)
	if err != nil {
		s.deps.Metrics.RecordEpisode(metrics.OutcomeError, s.since(start))
		return nil, fmt.Errorf("reserve quota: %w", err)
	}
	if !ok {
		log.InfoContext(ctx, "quota exhausted, skipping generation")
		s.deps.Metrics.RecordEpisode(metrics.OutcomeQuotaExhausted, s.since(start))
		return nil, ErrQuotaExhausted
	}

	if err := s.primary(ctx, ep); err != nil {
		s.rollback(ctx, ep)
		s.deps.Metrics.RecordEpisode(metrics.OutcomeProviderFailure, s.since(start))
		return nil, err
	}

	s.backfill(ctx, ep)

	result := s.assemble(ctx, ep)

	id, err := s.deps.Results.Store(ctx, result)
	if err != nil {
		log.ErrorContext(ctx, "failed to store generation result", "error", redact.Error(err))
		s.rollback(ctx, ep)
		s.deps.Metrics.RecordEpisode(metrics.OutcomePersistenceFailure, s.since(start))
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	result.ID = id

	outcome := metrics.OutcomeComplete
	if result.Telemetry.Short() {
		outcome = metrics.OutcomeShort
	}
	s.deps.Metrics.RecordEpisode(outcome, result.Telemetry.Duration)
	s.deps.Metrics.RecordDelivered(len(result.Tasks))

	log.InfoContext(ctx, "generation episode completed",
		"result_id", id,
		"requested", result.Telemetry.Requested,
		"delivered", result.Telemetry.Delivered,
		"attempts", result.Telemetry.Attempts,
		"backfills", result.Telemetry.Backfills,
		"issues_found", result.Telemetry.IssuesFound,
		"auto_fixed", result.Telemetry.AutoFixed,
		"breaker_open", result.Telemetry.BreakerOpen,
		"duration", result.Telemetry.Duration)
	return result, nil
}

// prepare validates req and plans both forms. A count that no selected type
// can satisfy makes the request invalid.
func (s *GenerationService) prepare(req *domain.Request, start time.Time) (*episode, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: request is nil", ErrInvalidRequest)
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	closed, open := planner.PlanRequest(req)
	ep := &episode{
		req:        req,
		closed:     closed,
		open:       open,
		wantClosed: domain.TotalCount(closed),
		wantOpen:   domain.TotalCount(open),
		start:      start,
	}
	if ep.wantClosed != req.ClosedCount {
		return nil, fmt.Errorf("%w: %d closed tasks requested but no closed type selected",
			ErrInvalidRequest, req.ClosedCount)
	}
	if ep.wantOpen != req.OpenCount {
		return nil, fmt.Errorf("%w: %d open tasks requested but no open type selected",
			ErrInvalidRequest, req.OpenCount)
	}
	if s.config.EpisodeTimeout > 0 {
		ep.deadline = start.Add(s.config.EpisodeTimeout)
	}
	ep.telemetry.Requested = req.TotalCount()
	return ep, nil
}

// primary issues the call for the full batch. Its failure ends the episode.
func (s *GenerationService) primary(ctx context.Context, ep *episode) error {
	spec := generation.BatchSpec{
		Subject:    ep.req.Subject,
		Difficulty: ep.req.Difficulty,
		Topic:      ep.req.Topic,
		Closed:     ep.closed,
		Open:       ep.open,
	}

	ep.telemetry.Attempts++
	tasks, err := s.deps.Generator.GenerateBatch(ctx, spec)
	s.deps.Metrics.RecordProviderCall(metrics.PhasePrimary, err)
	if err != nil {
		s.deps.Breaker.RecordFailure()
		ep.telemetry.ProviderFailures++
		ep.log.ErrorContext(ctx, "primary generation call failed", "error", redact.Error(err))
		if !errors.Is(err, generation.ErrProviderFailure) {
			err = fmt.Errorf("%w: %w", generation.ErrProviderFailure, err)
		}
		return fmt.Errorf("primary generation call: %w", err)
	}
	s.deps.Breaker.RecordSuccess()

	discarded := ep.merge(tasks)
	s.deps.Metrics.RecordDropped(metrics.DropUnselected, discarded)

	missClosed, missOpen := ep.missing()
	ep.log.DebugContext(ctx, "primary batch received",
		"received", len(tasks),
		"discarded", discarded,
		"missing_closed", missClosed,
		"missing_open", missOpen)
	return nil
}

// backfill asks for the missing counts until none are missing, retries are
// used up, the breaker opens or the episode deadline passes. Failures are
// recorded and never abort the episode.
func (s *GenerationService) backfill(ctx context.Context, ep *episode) {
	for attempt := 1; attempt <= s.config.MaxRetries; attempt++ {
		missClosed, missOpen := ep.missing()
		if missClosed == 0 && missOpen == 0 {
			return
		}
		if s.deps.Breaker.IsOpen() {
			ep.telemetry.BreakerOpen = true
			ep.log.WarnContext(ctx, "circuit breaker open, skipping backfill",
				"missing_closed", missClosed,
				"missing_open", missOpen)
			return
		}
		if !ep.deadline.IsZero() && !s.deps.Clock.Now().Before(ep.deadline) {
			ep.log.WarnContext(ctx, "episode deadline passed, skipping backfill",
				"missing_closed", missClosed,
				"missing_open", missOpen)
			return
		}

		delay := backoff(s.config.BackoffBase, attempt)
		if err := s.deps.Sleeper.Sleep(ctx, delay); err != nil {
			ep.log.WarnContext(ctx, "backfill interrupted", "attempt", attempt, "error", err)
			return
		}

		spec := generation.BatchSpec{
			Subject:    ep.req.Subject,
			Difficulty: ep.req.Difficulty,
			Topic:      ep.req.Topic,
			Closed:     planner.PlanClosed(missClosed, ep.req.Types),
			Open:       planner.PlanOpen(missOpen, ep.req.Types),
			Backfill:   true,
			Avoid:      questionTexts(ep.collected()),
		}

		ep.telemetry.Attempts++
		ep.telemetry.Backfills++
		s.deps.Metrics.RecordBackfill()

		tasks, err := s.deps.Generator.GenerateBatch(ctx, spec)
		s.deps.Metrics.RecordProviderCall(metrics.PhaseBackfill, err)
		if err != nil {
			s.deps.Breaker.RecordFailure()
			ep.telemetry.ProviderFailures++
			ep.log.WarnContext(ctx, "backfill call failed",
				"attempt", attempt,
				"delay", delay,
				"error", redact.Error(err))
			continue
		}
		s.deps.Breaker.RecordSuccess()

		discarded := ep.merge(tasks)
		s.deps.Metrics.RecordDropped(metrics.DropUnselected, discarded)
		ep.log.DebugContext(ctx, "backfill batch received",
			"attempt", attempt,
			"requested_closed", missClosed,
			"requested_open", missOpen,
			"received", len(tasks),
			"discarded", discarded)
	}
}

// assemble validates the collected tasks, runs the semantic agents and cuts
// the batch to the requested counts, closed form first.
func (s *GenerationService) assemble(ctx context.Context, ep *episode) *domain.Result {
	vctx := validation.ContextFor(ep.req)
	all := ep.collected()

	structural := s.deps.Validator.Validate(all, vctx)
	kept, dropped := validation.Filter(all, structural)
	ep.telemetry.StructuralDropped = len(dropped)
	s.deps.Metrics.RecordDropped(metrics.DropStructural, len(dropped))
	if len(dropped) > 0 || len(structural.Warnings) > 0 {
		ep.log.InfoContext(ctx, "structural validation removed tasks",
			"dropped", len(dropped),
			"errors", len(structural.Errors),
			"warnings", len(structural.Warnings))
	}

	var outcome agents.Outcome
	if s.deps.Semantic != nil && len(kept) > 0 {
		outcome = s.deps.Semantic.RunValidation(ctx, kept, vctx, agents.Options{AutoFix: s.config.AutoFix})
		kept = outcome.Tasks
		ep.telemetry.AgentFailures = outcome.FailedAgents()
		s.recordSemantic(outcome)
	}

	tasks, delivered := deliver(kept, ep.wantClosed, ep.wantOpen)
	s.deps.Metrics.RecordDropped(metrics.DropSurplus, len(kept)-len(tasks))
	s.reportSemantic(ep, outcome, delivered)

	ep.telemetry.Delivered = len(tasks)
	ep.telemetry.Duration = s.since(ep.start)

	return &domain.Result{
		RequestID:  ep.req.ID,
		AccountID:  ep.req.AccountID,
		Subject:    ep.req.Subject,
		Difficulty: ep.req.Difficulty,
		Topic:      ep.req.Topic,
		Tasks:      tasks,
		Telemetry:  ep.telemetry,
		CreatedAt:  s.deps.Clock.Now().UTC(),
	}
}

// deliver cuts kept to the requested counts, closed form first, and maps
// each delivered index of kept to its position in the result.
func deliver(kept []domain.Task, wantClosed, wantOpen int) (domain.TaskList, map[int]int) {
	closed, open := domain.SplitByForm(kept)
	nClosed := min(len(closed), wantClosed)
	nOpen := min(len(open), wantOpen)

	tasks := make(domain.TaskList, nClosed+nOpen)
	delivered := make(map[int]int, len(tasks))
	seenClosed, seenOpen := 0, 0
	for i, t := range kept {
		if domain.FormOf(t) == domain.FormClosed {
			if seenClosed < nClosed {
				delivered[i] = seenClosed
				tasks[seenClosed] = t
			}
			seenClosed++
			continue
		}
		if seenOpen < nOpen {
			delivered[i] = nClosed + seenOpen
			tasks[nClosed+seenOpen] = t
		}
		seenOpen++
	}
	return tasks, delivered
}

// reportSemantic fills the semantic telemetry for delivered tasks only,
// with issue indices rewritten to positions in the result.
func (s *GenerationService) reportSemantic(ep *episode, outcome agents.Outcome, delivered map[int]int) {
	for _, issue := range outcome.Issues {
		if _, ok := delivered[issue.TaskIndex]; ok {
			ep.telemetry.IssuesFound++
		}
	}
	for _, fix := range outcome.Fixes {
		if _, ok := delivered[fix.TaskIndex]; ok && fix.Success {
			ep.telemetry.AutoFixed++
		}
	}
	for _, issue := range outcome.Unresolved {
		idx, ok := delivered[issue.TaskIndex]
		if !ok {
			continue
		}
		issue.TaskIndex = idx
		ep.telemetry.UnresolvedIssues = append(ep.telemetry.UnresolvedIssues, issue)
	}
}

func (s *GenerationService) recordSemantic(outcome agents.Outcome) {
	for _, issue := range outcome.Issues {
		s.deps.Metrics.RecordAgentIssue(issue.Agent)
	}
	for _, name := range outcome.FailedAgents() {
		s.deps.Metrics.RecordAgentFailure(name)
	}
	for _, fix := range outcome.Fixes {
		s.deps.Metrics.RecordFix(fix.Success)
	}
}

// rollback returns the reserved quota unit. It runs even when ctx is done.
func (s *GenerationService) rollback(ctx context.Context, ep *episode) {
	err := s.deps.Ledger.Increment(context.WithoutCancel(ctx), ep.req.AccountID)
	s.deps.Metrics.RecordQuotaRollback(err)
	if err != nil {
		ep.log.ErrorContext(ctx, "quota rollback failed", "error", redact.Error(err))
		return
	}
	ep.log.InfoContext(ctx, "quota unit returned after fatal failure")
}

func (s *GenerationService) since(start time.Time) time.Duration {
	return s.deps.Clock.Now().Sub(start)
}

func questionTexts(tasks []domain.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, domain.QuestionText(t))
	}
	return out
}
