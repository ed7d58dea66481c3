package backend

import (
	"context"
	"errors"
	"net/http"

	domain "github.com/devassist/proposal-analyzer/internal/domain/history"
)

const historyPath = "/api/analysis/history"

// HistoryRepository is the remote-primary strategy of the result store: the
// gateway's history resource keyed by record id.
type HistoryRepository struct {
	c *Client
}

func NewHistoryRepository(c *Client) *HistoryRepository {
	return &HistoryRepository{c: c}
}

func (r *HistoryRepository) Save(ctx context.Context, rec *domain.Record) error {
	return r.c.doJSON(ctx, http.MethodPost, historyPath, rec, nil)
}

func (r *HistoryRepository) List(ctx context.Context) ([]*domain.Record, error) {
	var out []*domain.Record
	if err := r.c.doJSON(ctx, http.MethodGet, historyPath, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *HistoryRepository) Get(ctx context.Context, id domain.RecordID) (*domain.Record, error) {
	var out domain.Record
	err := r.c.doJSON(ctx, http.MethodGet, historyPath+"/"+string(id), nil, &out)
	if err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

func (r *HistoryRepository) Delete(ctx context.Context, id domain.RecordID) error {
	return r.c.doJSON(ctx, http.MethodDelete, historyPath+"/"+string(id), nil, nil)
}
