package backend

import (
	"context"
	"fmt"
	"net/http"

	domain "github.com/devassist/proposal-analyzer/internal/domain/session"
)

const (
	defaultMaxTokens   = 2048
	defaultTemperature = 0.3
)

type submitBody struct {
	Prompt      string  `json:"prompt"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float32 `json:"temperature"`
}

type submitResponse struct {
	AnalysisID string `json:"analysis_id"`
	SessionID  string `json:"session_id"`
}

// Submit starts a backend analysis job and returns the session id used to
// open a progress channel. No retries here; retry policy belongs to the
// orchestrator's caller.
func (c *Client) Submit(ctx context.Context, req domain.SubmitRequest) (string, error) {
	body := submitBody{
		Prompt:      req.Prompt,
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if body.MaxTokens <= 0 {
		body.MaxTokens = defaultMaxTokens
	}
	if body.Temperature <= 0 {
		body.Temperature = defaultTemperature
	}

	var out submitResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/llm/analyze", body, &out); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrSubmission, err)
	}

	id := out.AnalysisID
	if id == "" {
		id = out.SessionID
	}
	if id == "" {
		return "", fmt.Errorf("%w: response missing analysis id", domain.ErrSubmission)
	}
	return id, nil
}
