package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/phrazzld/scry-forge/internal/domain"
	"github.com/phrazzld/scry-forge/internal/generation"
	"github.com/phrazzld/scry-forge/internal/redact"
	"github.com/phrazzld/scry-forge/internal/validation"
)

// DefaultFixConcurrency bounds parallel fix calls when none is configured.
const DefaultFixConcurrency = 4

// AutoFixer repairs flagged tasks one at a time through the content provider.
type AutoFixer struct {
	provider    generation.Provider
	validator   *validation.Validator
	logger      *slog.Logger
	concurrency int
}

// NewAutoFixer creates a fixer running at most concurrency fix calls at once.
func NewAutoFixer(
	provider generation.Provider,
	validator *validation.Validator,
	concurrency int,
	logger *slog.Logger,
) *AutoFixer {
	if concurrency <= 0 {
		concurrency = DefaultFixConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AutoFixer{
		provider:    provider,
		validator:   validator,
		logger:      logger.With("component", "auto_fixer"),
		concurrency: concurrency,
	}
}

// FixAll attempts a repair for every task index in flagged. Results are
// ordered by task index.
func (f *AutoFixer) FixAll(
	ctx context.Context,
	tasks []domain.Task,
	flagged map[int][]domain.AgentIssue,
	vctx validation.Context,
) []domain.FixResult {
	indices := sortedKeys(flagged)
	results := make([]domain.FixResult, len(indices))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for slot, idx := range indices {
		if idx < 0 || idx >= len(tasks) {
			results[slot] = domain.FixResult{TaskIndex: idx, Reason: "task index out of range"}
			continue
		}
		g.Go(func() error {
			results[slot] = f.Fix(gctx, idx, tasks[idx], flagged[idx], vctx)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Fix asks for a corrected version of task. The replacement is accepted only
// when it keeps the task type and passes structural validation in isolation.
func (f *AutoFixer) Fix(
	ctx context.Context,
	index int,
	task domain.Task,
	issues []domain.AgentIssue,
	vctx validation.Context,
) domain.FixResult {
	result := domain.FixResult{TaskIndex: index}
	log := f.logger.With("task_index", index, "task_type", task.Type())

	prompt, err := f.fixPrompt(task, issues, vctx)
	if err != nil {
		result.Reason = err.Error()
		return result
	}

	raw, err := f.provider.Complete(ctx, prompt)
	if err != nil {
		result.Reason = redact.Error(err)
		log.WarnContext(ctx, "fix call failed", "error", result.Reason)
		return result
	}

	obj, err := generation.ExtractObject(raw)
	if err != nil {
		result.Reason = err.Error()
		return result
	}
	replacement, err := domain.UnmarshalTask([]byte(obj))
	if err != nil {
		result.Reason = err.Error()
		log.InfoContext(ctx, "fix rejected", "reason", result.Reason)
		return result
	}
	if replacement.Type() != task.Type() {
		result.Reason = fmt.Sprintf("replacement changed type to %s", replacement.Type())
		log.InfoContext(ctx, "fix rejected", "reason", result.Reason)
		return result
	}
	if vr := f.validator.ValidateOne(replacement, vctx); !vr.Valid {
		result.Reason = fmt.Sprintf("replacement failed validation: %s", vr.Errors[0].Code)
		log.InfoContext(ctx, "fix rejected", "reason", result.Reason)
		return result
	}

	result.Success = true
	result.Replacement = replacement
	log.DebugContext(ctx, "fix accepted")
	return result
}

func (f *AutoFixer) fixPrompt(task domain.Task, issues []domain.AgentIssue, vctx validation.Context) (generation.Prompt, error) {
	body, err := domain.MarshalTask(task)
	if err != nil {
		return generation.Prompt{}, err
	}

	var b strings.Builder
	b.WriteString("Task:\n")
	b.Write(body)
	b.WriteString("\n\nProblems:\n")
	for _, is := range issues {
		line, _ := json.Marshal(struct {
			Agent      string `json:"agent"`
			Code       string `json:"code"`
			Message    string `json:"message"`
			Suggestion string `json:"suggestion,omitempty"`
		}{is.Agent, is.Code, is.Message, is.Suggestion})
		b.WriteString("- ")
		b.Write(line)
		b.WriteByte('\n')
	}

	system, err := render("fix_system.tmpl", promptData{Context: vctx})
	if err != nil {
		return generation.Prompt{}, err
	}
	return generation.Prompt{System: system, User: b.String(), Temperature: 0.3}, nil
}
