package agents

import (
	"context"
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/phrazzld/scry-forge/internal/domain"
	"github.com/phrazzld/scry-forge/internal/validation"
)

// Options controls a validation run.
type Options struct {
	AutoFix bool
}

// Outcome is the merged result of all agents and any fixes.
type Outcome struct {
	// Issues holds every issue found, ordered by task index.
	Issues []domain.AgentIssue
	// Tasks is the input batch with accepted fixes applied in place.
	Tasks []domain.Task
	Fixes []domain.FixResult
	// Unresolved holds issues of tasks that were not successfully fixed.
	Unresolved []domain.AgentIssue
	Reports    []Report
}

// FixedCount is the number of accepted fixes.
func (o Outcome) FixedCount() int {
	n := 0
	for _, f := range o.Fixes {
		if f.Success {
			n++
		}
	}
	return n
}

// FailedAgents names the agents that could not complete.
func (o Outcome) FailedAgents() []string {
	var out []string
	for _, r := range o.Reports {
		if r.Failed {
			out = append(out, r.Agent)
		}
	}
	return out
}

// Pipeline fans a batch out to every agent and repairs what they flag.
type Pipeline struct {
	agents []Agent
	fixer  *AutoFixer
	logger *slog.Logger
}

// NewPipeline creates a pipeline. fixer may be nil, in which case AutoFix is ignored.
func NewPipeline(agents []Agent, fixer *AutoFixer, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		agents: agents,
		fixer:  fixer,
		logger: logger.With("component", "agent_pipeline"),
	}
}

// RunValidation reviews tasks with every agent concurrently, merges issues by
// task index and, when enabled, attempts to fix each flagged task.
func (p *Pipeline) RunValidation(
	ctx context.Context,
	tasks []domain.Task,
	vctx validation.Context,
	opts Options,
) Outcome {
	out := Outcome{Tasks: slices.Clone(tasks)}
	if len(tasks) == 0 || len(p.agents) == 0 {
		return out
	}

	reports := make([]Report, len(p.agents))
	g, gctx := errgroup.WithContext(ctx)
	for i, a := range p.agents {
		g.Go(func() error {
			reports[i] = a.Review(gctx, tasks, vctx)
			return nil
		})
	}
	_ = g.Wait()

	out.Reports = reports
	out.Issues = MergeIssues(reports)
	byTask := GroupByTask(out.Issues)

	if opts.AutoFix && p.fixer != nil && len(byTask) > 0 {
		out.Fixes = p.fixer.FixAll(ctx, tasks, byTask, vctx)
		for _, f := range out.Fixes {
			if f.Success {
				out.Tasks[f.TaskIndex] = f.Replacement
				delete(byTask, f.TaskIndex)
			}
		}
	}

	for _, idx := range sortedKeys(byTask) {
		out.Unresolved = append(out.Unresolved, byTask[idx]...)
	}

	p.logger.InfoContext(ctx, "semantic validation completed",
		"tasks", len(tasks),
		"issues", len(out.Issues),
		"fixed", out.FixedCount(),
		"failed_agents", len(out.FailedAgents()))
	return out
}

// MergeIssues combines agent reports into one list ordered by task index,
// keeping agent order within a task.
func MergeIssues(reports []Report) []domain.AgentIssue {
	var all []domain.AgentIssue
	for _, r := range reports {
		all = append(all, r.Issues...)
	}
	slices.SortStableFunc(all, func(a, b domain.AgentIssue) int {
		return a.TaskIndex - b.TaskIndex
	})
	return all
}

// GroupByTask indexes issues by task index.
func GroupByTask(issues []domain.AgentIssue) map[int][]domain.AgentIssue {
	out := make(map[int][]domain.AgentIssue)
	for _, is := range issues {
		out[is.TaskIndex] = append(out[is.TaskIndex], is)
	}
	return out
}

func sortedKeys(m map[int][]domain.AgentIssue) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
