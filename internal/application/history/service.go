package history

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/devassist/proposal-analyzer/internal/application"
	domain "github.com/devassist/proposal-analyzer/internal/domain/history"
)

// Service implements the dual-path result store: remote primary, local
// fallback. The silently-degrade policy lives here and nowhere else — remote
// persistence failures never surface to the caller, only SyncStatus does.
// Service is stateless across calls apart from the side effects of its repos.
type Service struct {
	Remote    domain.Repository
	Local     domain.Repository
	Artifacts domain.ArtifactStore // optional, best-effort archive
	Clock     application.Clock
}

// Save persists a record, remote first. On any remote failure the record is
// appended to the local store instead; the caller still sees success so a
// completed analysis is never lost to an unreachable backend.
func (s *Service) Save(ctx context.Context, rec *domain.Record) error {
	now := s.Clock.Now()
	if rec.ID == "" {
		// client-generated id for records created offline
		rec.ID = domain.RecordID(fmt.Sprintf("analysis-%d", now.UnixMilli()))
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	if s.Artifacts != nil && len(rec.Payload) > 0 {
		key := fmt.Sprintf("analyses/%s/%s.json", rec.ID, uuid.New().String())
		url, err := s.Artifacts.UploadJSON(ctx, key, rec.Payload)
		if err != nil {
			log.Printf("history: artifact upload failed id=%s: %v", rec.ID, err)
		} else {
			rec.ArtifactURL = url
		}
	}

	rec.SyncStatus = domain.SyncSynced
	if err := s.Remote.Save(ctx, rec); err != nil {
		log.Printf("history: remote save failed id=%s, keeping local copy: %v", rec.ID, err)
		rec.SyncStatus = domain.SyncLocal
		return s.Local.Save(ctx, rec)
	}
	return nil
}

// List returns the remote list verbatim, or the local list when the remote
// call fails. Corrupt local data reads as empty, never as an error.
func (s *Service) List(ctx context.Context) ([]*domain.Record, error) {
	recs, err := s.Remote.List(ctx)
	if err != nil {
		log.Printf("history: remote list failed, using local copy: %v", err)
		return s.Local.List(ctx)
	}
	return recs, nil
}

// Get retrieves one record by id through the same remote-then-local chain.
func (s *Service) Get(ctx context.Context, id domain.RecordID) (*domain.Record, error) {
	rec, err := s.Remote.Get(ctx, id)
	if err == nil {
		return rec, nil
	}
	return s.Local.Get(ctx, id)
}

// Delete removes a record. The local copy is removed unconditionally so the
// caller can treat the removal as visible even when the remote delete failed;
// the remote copy may then outlive the local one (no reconciliation pass).
func (s *Service) Delete(ctx context.Context, id domain.RecordID) error {
	if err := s.Remote.Delete(ctx, id); err != nil {
		log.Printf("history: remote delete failed id=%s: %v", id, err)
	}
	return s.Local.Delete(ctx, id)
}
