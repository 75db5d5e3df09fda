package agents

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/phrazzld/scry-forge/internal/domain"
	"github.com/phrazzld/scry-forge/internal/generation"
	"github.com/phrazzld/scry-forge/internal/redact"
	"github.com/phrazzld/scry-forge/internal/validation"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var prompts = template.Must(template.ParseFS(promptFS, "prompts/*.tmpl"))

// Built-in agent names.
const (
	AgentAnswerKey = "answer_key"
	AgentClarity   = "clarity"
	AgentLevelFit  = "level_fit"
)

// Report is one agent's verdict over a batch. Failed reports carry no issues.
type Report struct {
	Agent  string              `json:"agent"`
	Issues []domain.AgentIssue `json:"issues"`
	Failed bool                `json:"failed"`
	Reason string              `json:"reason,omitempty"`
}

// Agent reviews a batch for semantic problems.
type Agent interface {
	Name() string
	Review(ctx context.Context, tasks []domain.Task, vctx validation.Context) Report
}

type agentSpec struct {
	focus       string
	defaultCode string
}

var builtin = map[string]agentSpec{
	AgentAnswerKey: {
		focus: "Check that every marked correct answer, sample answer, pair and blank answer is actually correct. " +
			"Report wrong answers and questions with no correct option.",
		defaultCode: "WRONG_ANSWER",
	},
	AgentClarity: {
		focus: "Check the wording. Report ambiguous questions, tasks with more than one defensible answer, " +
			"answers given away by the question, and spelling or grammar errors.",
		defaultCode: "UNCLEAR",
	},
	AgentLevelFit: {
		focus: "Check that each task suits the stated difficulty level and stays on the topic. " +
			"Report tasks that are too easy, too hard or off topic.",
		defaultCode: "LEVEL_MISMATCH",
	},
}

// DefaultAgentNames lists every built-in agent.
var DefaultAgentNames = []string{AgentAnswerKey, AgentClarity, AgentLevelFit}

// ProviderAgent is an Agent that asks the content provider to review a batch.
type ProviderAgent struct {
	name     string
	spec     agentSpec
	provider generation.Provider
	logger   *slog.Logger
}

// NewAgent returns the built-in agent called name.
func NewAgent(name string, provider generation.Provider, logger *slog.Logger) (*ProviderAgent, error) {
	spec, ok := builtin[name]
	if !ok {
		return nil, fmt.Errorf("unknown agent %q", name)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProviderAgent{
		name:     name,
		spec:     spec,
		provider: provider,
		logger:   logger.With("component", "agent", "agent", name),
	}, nil
}

// NewAgents builds the named built-in agents in order.
func NewAgents(names []string, provider generation.Provider, logger *slog.Logger) ([]Agent, error) {
	out := make([]Agent, 0, len(names))
	for _, name := range names {
		a, err := NewAgent(name, provider, logger)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// Name implements Agent.
func (a *ProviderAgent) Name() string { return a.name }

type indexedTask struct {
	Index int             `json:"index"`
	Task  json.RawMessage `json:"task"`
}

type reviewReply struct {
	Issues []struct {
		TaskIndex  int    `json:"task_index"`
		Code       string `json:"code"`
		Message    string `json:"message"`
		Suggestion string `json:"suggestion"`
	} `json:"issues"`
}

// Review implements Agent. Issues naming a task index outside the batch are discarded.
func (a *ProviderAgent) Review(ctx context.Context, tasks []domain.Task, vctx validation.Context) Report {
	report := Report{Agent: a.name}
	if len(tasks) == 0 {
		return report
	}

	prompt, err := a.reviewPrompt(tasks, vctx)
	if err != nil {
		return a.failed(ctx, report, err)
	}

	raw, err := a.provider.Complete(ctx, prompt)
	if err != nil {
		return a.failed(ctx, report, err)
	}

	var reply reviewReply
	if err := generation.DecodeObject(raw, &reply); err != nil {
		return a.failed(ctx, report, err)
	}

	for _, is := range reply.Issues {
		if is.TaskIndex < 0 || is.TaskIndex >= len(tasks) || strings.TrimSpace(is.Message) == "" {
			continue
		}
		code := strings.TrimSpace(is.Code)
		if code == "" {
			code = a.spec.defaultCode
		}
		report.Issues = append(report.Issues, domain.AgentIssue{
			TaskIndex:  is.TaskIndex,
			Agent:      a.name,
			Code:       code,
			Message:    is.Message,
			Suggestion: is.Suggestion,
		})
	}

	a.logger.DebugContext(ctx, "review completed",
		"tasks", len(tasks),
		"issues", len(report.Issues))
	return report
}

func (a *ProviderAgent) failed(ctx context.Context, report Report, err error) Report {
	report.Failed = true
	report.Reason = redact.Error(err)
	report.Issues = nil
	a.logger.WarnContext(ctx, "review failed", "error", report.Reason)
	return report
}

func (a *ProviderAgent) reviewPrompt(tasks []domain.Task, vctx validation.Context) (generation.Prompt, error) {
	items := make([]indexedTask, 0, len(tasks))
	for i, t := range tasks {
		b, err := domain.MarshalTask(t)
		if err != nil {
			return generation.Prompt{}, err
		}
		items = append(items, indexedTask{Index: i, Task: b})
	}
	user, err := json.Marshal(map[string]any{"tasks": items})
	if err != nil {
		return generation.Prompt{}, err
	}

	system, err := render("review_system.tmpl", promptData{Context: vctx, Focus: a.spec.focus})
	if err != nil {
		return generation.Prompt{}, err
	}
	return generation.Prompt{System: system, User: string(user), Temperature: 0.2}, nil
}

type promptData struct {
	validation.Context
	Focus string
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template %s: %w", name, err)
	}
	return buf.String(), nil
}
