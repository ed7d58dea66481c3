package localstore

import (
	"context"
	"encoding/json"

	domain "github.com/devassist/proposal-analyzer/internal/domain/history"
)

const (
	historyKey = "devassist.analysis_history"

	// maxRecords caps the fallback store; oldest-inserted evicted first
	maxRecords = 50
)

// HistoryRepository is the local fallback strategy of the result store: the
// whole collection lives as one JSON array under a fixed key, newest first.
// Each operation is a single read-modify-write of the entire value.
type HistoryRepository struct {
	kv KV
}

func NewHistoryRepository(kv KV) *HistoryRepository {
	return &HistoryRepository{kv: kv}
}

// load tolerates missing and corrupt data: both read as an empty collection.
func (r *HistoryRepository) load(ctx context.Context) []*domain.Record {
	raw, ok, err := r.kv.Get(ctx, historyKey)
	if err != nil || !ok {
		return nil
	}
	var recs []*domain.Record
	if json.Unmarshal(raw, &recs) != nil {
		return nil
	}
	return recs
}

func (r *HistoryRepository) store(ctx context.Context, recs []*domain.Record) error {
	raw, err := json.Marshal(recs)
	if err != nil {
		return err
	}
	return r.kv.Set(ctx, historyKey, raw)
}

func (r *HistoryRepository) Save(ctx context.Context, rec *domain.Record) error {
	recs := r.load(ctx)

	// id is the key within this backend; a re-save replaces in place
	kept := make([]*domain.Record, 0, len(recs)+1)
	kept = append(kept, rec)
	for _, existing := range recs {
		if existing.ID != rec.ID {
			kept = append(kept, existing)
		}
	}
	if len(kept) > maxRecords {
		kept = kept[:maxRecords]
	}
	return r.store(ctx, kept)
}

func (r *HistoryRepository) List(ctx context.Context) ([]*domain.Record, error) {
	return r.load(ctx), nil
}

func (r *HistoryRepository) Get(ctx context.Context, id domain.RecordID) (*domain.Record, error) {
	for _, rec := range r.load(ctx) {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, domain.ErrNotFound
}

// Delete removes the local copy; a missing record is not an error.
func (r *HistoryRepository) Delete(ctx context.Context, id domain.RecordID) error {
	recs := r.load(ctx)
	kept := recs[:0]
	for _, rec := range recs {
		if rec.ID != id {
			kept = append(kept, rec)
		}
	}
	if len(kept) == len(recs) {
		return nil
	}
	return r.store(ctx, kept)
}
