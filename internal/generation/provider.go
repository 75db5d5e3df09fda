package generation

import "context"

// Prompt is one request to the content provider.
type Prompt struct {
	System          string
	User            string
	MaxOutputTokens int
	Temperature     float64
}

// Provider performs a single completion against an external model and
// returns its raw text reply.
type Provider interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, prompt Prompt) (string, error)

// Complete implements Provider.
func (f ProviderFunc) Complete(ctx context.Context, prompt Prompt) (string, error) {
	return f(ctx, prompt)
}
