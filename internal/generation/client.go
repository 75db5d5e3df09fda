package generation

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"text/template"
	"time"

	"github.com/phrazzld/scry-forge/internal/domain"
	"github.com/phrazzld/scry-forge/internal/redact"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var batchTemplates = template.Must(template.ParseFS(promptFS, "prompts/*.tmpl"))

// ClientConfig controls every call made through a Client.
type ClientConfig struct {
	// CallTimeout bounds a single provider call. Exceeding it is an ordinary provider failure.
	CallTimeout     time.Duration
	MaxOutputTokens int
	Temperature     float64
}

// DefaultClientConfig returns conservative settings.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		CallTimeout:     60 * time.Second,
		MaxOutputTokens: 8192,
		Temperature:     0.7,
	}
}

// BatchSpec describes one batch request to the provider.
type BatchSpec struct {
	Subject    domain.Subject
	Difficulty domain.Difficulty
	Topic      string
	Closed     []domain.Distribution
	Open       []domain.Distribution
	// Backfill marks a follow-up call for tasks still missing after earlier calls.
	Backfill bool
	// Avoid lists question texts already collected in this episode.
	Avoid []string
}

// Total is the number of tasks the batch asks for.
func (s BatchSpec) Total() int {
	return domain.TotalCount(s.Closed) + domain.TotalCount(s.Open)
}

// Client calls a Provider with a per-call timeout and maps every failure to
// ErrProviderFailure. It is itself a Provider.
type Client struct {
	provider Provider
	logger   *slog.Logger
	config   ClientConfig
}

var _ Provider = (*Client)(nil)

// NewClient wraps provider. A nil logger falls back to slog.Default().
func NewClient(provider Provider, config ClientConfig, logger *slog.Logger) (*Client, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: provider cannot be nil", ErrInvalidConfig)
	}
	if config.CallTimeout <= 0 {
		return nil, fmt.Errorf("%w: call timeout must be positive", ErrInvalidConfig)
	}
	if config.MaxOutputTokens <= 0 {
		return nil, fmt.Errorf("%w: max output tokens must be positive", ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		provider: provider,
		logger:   logger.With("component", "generation_client"),
		config:   config,
	}, nil
}

// Complete performs one bounded provider call. Zero token and temperature
// values in prompt are replaced by the client defaults.
func (c *Client) Complete(ctx context.Context, prompt Prompt) (string, error) {
	if prompt.MaxOutputTokens <= 0 {
		prompt.MaxOutputTokens = c.config.MaxOutputTokens
	}
	if prompt.Temperature <= 0 {
		prompt.Temperature = c.config.Temperature
	}

	callCtx, cancel := context.WithTimeout(ctx, c.config.CallTimeout)
	defer cancel()

	start := time.Now()
	reply, err := c.call(callCtx, prompt)
	elapsed := time.Since(start)

	if err == nil && callCtx.Err() != nil {
		err = callCtx.Err()
	}
	if err != nil {
		mapped := c.mapError(callCtx, err)
		c.logger.WarnContext(ctx, "provider call failed",
			"duration_ms", elapsed.Milliseconds(),
			"error", redact.Error(mapped))
		return "", mapped
	}

	c.logger.DebugContext(ctx, "provider call completed",
		"duration_ms", elapsed.Milliseconds(),
		"reply_length", len(reply))
	return reply, nil
}

type completion struct {
	reply string
	err   error
}

// call returns when the provider answers or callCtx is done, whichever is
// first. A provider that ignores cancellation is abandoned.
func (c *Client) call(callCtx context.Context, prompt Prompt) (string, error) {
	done := make(chan completion, 1)
	go func() {
		reply, err := c.provider.Complete(callCtx, prompt)
		done <- completion{reply, err}
	}()

	select {
	case r := <-done:
		return r.reply, r.err
	case <-callCtx.Done():
		return "", callCtx.Err()
	}
}

func (c *Client) mapError(callCtx context.Context, err error) error {
	switch {
	case errors.Is(err, ErrProviderFailure):
		return err
	case errors.Is(callCtx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w: after %s", ErrProviderFailure, ErrTimeout, c.config.CallTimeout)
	case errors.Is(err, ErrContentBlocked), errors.Is(err, ErrInvalidResponse), errors.Is(err, ErrTransport):
		return fmt.Errorf("%w: %w", ErrProviderFailure, err)
	default:
		return fmt.Errorf("%w: %w: %v", ErrProviderFailure, ErrTransport, err)
	}
}

// GenerateBatch asks the provider for the tasks described by spec and parses
// the reply. Tasks are returned as produced; counts and structure are not
// checked here.
func (c *Client) GenerateBatch(ctx context.Context, spec BatchSpec) ([]domain.Task, error) {
	prompt, err := c.batchPrompt(spec)
	if err != nil {
		return nil, err
	}

	reply, err := c.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	tasks, skipped, err := ParseTasks(reply)
	if err != nil {
		c.logger.WarnContext(ctx, "unparseable batch reply",
			"reply_length", len(reply),
			"error", err)
		return nil, err
	}
	if skipped > 0 {
		c.logger.WarnContext(ctx, "skipped undecodable tasks in reply",
			"skipped", skipped,
			"parsed", len(tasks))
	}

	c.logger.InfoContext(ctx, "batch generated",
		"requested", spec.Total(),
		"received", len(tasks),
		"backfill", spec.Backfill)
	return tasks, nil
}

type batchPromptData struct {
	BatchSpec
	Distribution []domain.Distribution
	Total        int
	Numeric      bool
	Ceiling      float64
}

func (c *Client) batchPrompt(spec BatchSpec) (Prompt, error) {
	data := batchPromptData{
		BatchSpec:    spec,
		Distribution: append(append([]domain.Distribution{}, spec.Closed...), spec.Open...),
		Total:        spec.Total(),
		Numeric:      spec.Subject.Numeric(),
		Ceiling:      spec.Difficulty.NumberCeiling(),
	}

	system, err := render("batch_system.tmpl", data)
	if err != nil {
		return Prompt{}, err
	}
	user, err := render("batch_user.tmpl", data)
	if err != nil {
		return Prompt{}, err
	}

	return Prompt{
		System:          system,
		User:            user,
		MaxOutputTokens: c.config.MaxOutputTokens,
		Temperature:     c.config.Temperature,
	}, nil
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := batchTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template %s: %w", name, err)
	}
	return buf.String(), nil
}
