package ai

import (
	"context"
	"encoding/json"
	"fmt"

	apphistory "github.com/devassist/proposal-analyzer/internal/application/history"
	"github.com/devassist/proposal-analyzer/internal/domain/ai"
	historydomain "github.com/devassist/proposal-analyzer/internal/domain/history"
)

// Service runs analyses straight against an AI provider, bypassing the
// backend gateway. Used when no gateway is configured; the result goes
// through the same result store as gateway-produced analyses.
type Service struct {
	client  ai.Client
	history *apphistory.Service
}

func NewService(client ai.Client, history *apphistory.Service) *Service {
	return &Service{client: client, history: history}
}

func (s *Service) Analyze(ctx context.Context, prompt string) (string, error) {
	return s.client.Analyze(ctx, prompt)
}

// AnalyzeAndStore runs the analysis and persists the outcome as a record.
// Provider output that is not valid JSON is wrapped so the payload stays
// machine-readable.
func (s *Service) AnalyzeAndStore(ctx context.Context, title string, sources []string, prompt string) (*historydomain.Record, error) {
	out, err := s.client.Analyze(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("direct analysis: %w", err)
	}

	payload := []byte(out)
	var js any
	if json.Unmarshal(payload, &js) != nil {
		payload, _ = json.Marshal(map[string]string{"raw": out})
	}

	rec := &historydomain.Record{
		Title:        title,
		OverallScore: historydomain.ScoreFromPayload(payload),
		Status:       historydomain.StatusCompleted,
		SourceFiles:  sources,
		Payload:      payload,
	}
	if err := s.history.Save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}
