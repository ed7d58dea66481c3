package localstore

import (
	"context"
	"encoding/json"

	domain "github.com/devassist/proposal-analyzer/internal/domain/faillog"
)

const (
	faillogKey = "devassist.failure_log"

	maxFailures = 20
)

// FaillogRepository keeps the last failed sessions for local auditing.
// Same storage shape as the history fallback: one JSON array, newest first.
type FaillogRepository struct {
	kv KV
}

func NewFaillogRepository(kv KV) *FaillogRepository {
	return &FaillogRepository{kv: kv}
}

func (r *FaillogRepository) load(ctx context.Context) []*domain.Entry {
	raw, ok, err := r.kv.Get(ctx, faillogKey)
	if err != nil || !ok {
		return nil
	}
	var entries []*domain.Entry
	if json.Unmarshal(raw, &entries) != nil {
		return nil
	}
	return entries
}

func (r *FaillogRepository) Save(ctx context.Context, e *domain.Entry) error {
	entries := append([]*domain.Entry{e}, r.load(ctx)...)
	if len(entries) > maxFailures {
		entries = entries[:maxFailures]
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return r.kv.Set(ctx, faillogKey, raw)
}

func (r *FaillogRepository) Latest(ctx context.Context, limit int) ([]*domain.Entry, error) {
	entries := r.load(ctx)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
