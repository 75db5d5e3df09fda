package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/scry-forge/internal/generation"
)

// MockProvider implements generation.Provider.
type MockProvider struct {
	CompleteFn func(ctx context.Context, prompt generation.Prompt) (string, error)

	// Reply and Err are returned when CompleteFn is nil.
	Reply string
	Err   error

	mu      sync.Mutex
	prompts []generation.Prompt
}

// Complete records prompt and returns the configured reply.
func (m *MockProvider) Complete(ctx context.Context, prompt generation.Prompt) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.CompleteFn != nil {
		return m.CompleteFn(ctx, prompt)
	}
	return m.Reply, m.Err
}

// Prompts returns every prompt received so far.
func (m *MockProvider) Prompts() []generation.Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]generation.Prompt, len(m.prompts))
	copy(out, m.prompts)
	return out
}
