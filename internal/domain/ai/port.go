package ai

import "context"

// Client wraps a direct AI provider. Analyze takes the assembled comparison
// prompt and returns the raw JSON analysis produced by the model.
type Client interface {
	Analyze(ctx context.Context, prompt string) (string, error)
}
