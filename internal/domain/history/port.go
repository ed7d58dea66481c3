package history

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no record matches the requested id.
var ErrNotFound = errors.New("analysis record not found")

// Repository port (interface untuk persistence)
// One implementation per backend: remote HTTP resource, local on-device store.
type Repository interface {
	Save(ctx context.Context, r *Record) error
	List(ctx context.Context) ([]*Record, error)
	Get(ctx context.Context, id RecordID) (*Record, error)
	Delete(ctx context.Context, id RecordID) error
}

// ArtifactStore port (interface untuk penyimpanan artefak)
// Archives the full result payload as an object; best-effort only.
type ArtifactStore interface {
	UploadJSON(ctx context.Context, key string, payload []byte) (string, error)
}
