package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	domain "github.com/devassist/proposal-analyzer/internal/domain/history"
	"github.com/devassist/proposal-analyzer/internal/infra/localstore"
)

// repoMock implements domain.Repository with function fields so each test
// only wires what it needs.
type repoMock struct {
	SaveFunc   func(ctx context.Context, rec *domain.Record) error
	ListFunc   func(ctx context.Context) ([]*domain.Record, error)
	GetFunc    func(ctx context.Context, id domain.RecordID) (*domain.Record, error)
	DeleteFunc func(ctx context.Context, id domain.RecordID) error
}

func (m *repoMock) Save(ctx context.Context, rec *domain.Record) error {
	return m.SaveFunc(ctx, rec)
}

func (m *repoMock) List(ctx context.Context) ([]*domain.Record, error) {
	return m.ListFunc(ctx)
}

func (m *repoMock) Get(ctx context.Context, id domain.RecordID) (*domain.Record, error) {
	return m.GetFunc(ctx, id)
}

func (m *repoMock) Delete(ctx context.Context, id domain.RecordID) error {
	return m.DeleteFunc(ctx, id)
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var errRemoteDown = errors.New("backend unreachable")

func downRemote() *repoMock {
	return &repoMock{
		SaveFunc:   func(context.Context, *domain.Record) error { return errRemoteDown },
		ListFunc:   func(context.Context) ([]*domain.Record, error) { return nil, errRemoteDown },
		GetFunc:    func(context.Context, domain.RecordID) (*domain.Record, error) { return nil, errRemoteDown },
		DeleteFunc: func(context.Context, domain.RecordID) error { return errRemoteDown },
	}
}

func TestSaveRemoteSuccessMarksSynced(t *testing.T) {
	var saved *domain.Record
	remote := &repoMock{SaveFunc: func(_ context.Context, rec *domain.Record) error {
		saved = rec
		return nil
	}}
	local := localstore.NewHistoryRepository(localstore.NewMemoryKV())
	svc := &Service{Remote: remote, Local: local, Clock: fixedClock{t: time.Unix(1700000000, 0)}}

	rec := &domain.Record{Title: "Proposal analysis — spec.txt", Status: domain.StatusCompleted}
	if err := svc.Save(context.Background(), rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved == nil {
		t.Fatal("remote save never called")
	}
	if rec.SyncStatus != domain.SyncSynced {
		t.Errorf("sync status = %s, want synced", rec.SyncStatus)
	}
	// nothing should land in the fallback store on the happy path
	recs, _ := local.List(context.Background())
	if len(recs) != 0 {
		t.Errorf("expected empty local store, got %d records", len(recs))
	}
}

func TestSaveFallsBackToLocalSilently(t *testing.T) {
	local := localstore.NewHistoryRepository(localstore.NewMemoryKV())
	now := time.Unix(1700000000, 123*int64(time.Millisecond))
	svc := &Service{Remote: downRemote(), Local: local, Clock: fixedClock{t: now}}

	rec := &domain.Record{Title: "offline run", Status: domain.StatusCompleted}
	if err := svc.Save(context.Background(), rec); err != nil {
		t.Fatalf("remote failure must not surface: %v", err)
	}

	if rec.SyncStatus != domain.SyncLocal {
		t.Errorf("sync status = %s, want local", rec.SyncStatus)
	}
	wantID := domain.RecordID(fmt.Sprintf("analysis-%d", now.UnixMilli()))
	if rec.ID != wantID {
		t.Errorf("generated id = %s, want %s", rec.ID, wantID)
	}
	recs, _ := local.List(context.Background())
	if len(recs) != 1 || recs[0].ID != wantID {
		t.Fatalf("record missing from local store: %+v", recs)
	}
}

func TestSaveKeepsCallerAssignedID(t *testing.T) {
	local := localstore.NewHistoryRepository(localstore.NewMemoryKV())
	svc := &Service{Remote: downRemote(), Local: local, Clock: fixedClock{t: time.Now()}}

	rec := &domain.Record{ID: "analysis-custom", Status: domain.StatusCompleted}
	if err := svc.Save(context.Background(), rec); err != nil {
		t.Fatal(err)
	}
	if rec.ID != "analysis-custom" {
		t.Errorf("id was regenerated: %s", rec.ID)
	}
}

func TestListPrefersRemote(t *testing.T) {
	remote := &repoMock{ListFunc: func(context.Context) ([]*domain.Record, error) {
		return []*domain.Record{{ID: "remote-1"}}, nil
	}}
	local := localstore.NewHistoryRepository(localstore.NewMemoryKV())
	_ = local.Save(context.Background(), &domain.Record{ID: "local-1"})

	svc := &Service{Remote: remote, Local: local, Clock: fixedClock{t: time.Now()}}
	recs, err := svc.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].ID != "remote-1" {
		t.Fatalf("expected the remote list, got %+v", recs)
	}
}

func TestListFallsBackToLocal(t *testing.T) {
	local := localstore.NewHistoryRepository(localstore.NewMemoryKV())
	_ = local.Save(context.Background(), &domain.Record{ID: "local-1"})

	svc := &Service{Remote: downRemote(), Local: local, Clock: fixedClock{t: time.Now()}}
	recs, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("fallback list must not error: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != "local-1" {
		t.Fatalf("expected the local list, got %+v", recs)
	}
}

func TestGetChainsRemoteThenLocal(t *testing.T) {
	local := localstore.NewHistoryRepository(localstore.NewMemoryKV())
	_ = local.Save(context.Background(), &domain.Record{ID: "analysis-1", Title: "kept locally"})

	svc := &Service{Remote: downRemote(), Local: local, Clock: fixedClock{t: time.Now()}}
	rec, err := svc.Get(context.Background(), "analysis-1")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Title != "kept locally" {
		t.Errorf("got %q", rec.Title)
	}

	if _, err := svc.Get(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteRemovesLocalEvenWhenRemoteFails(t *testing.T) {
	local := localstore.NewHistoryRepository(localstore.NewMemoryKV())
	_ = local.Save(context.Background(), &domain.Record{ID: "analysis-1"})

	svc := &Service{Remote: downRemote(), Local: local, Clock: fixedClock{t: time.Now()}}
	if err := svc.Delete(context.Background(), "analysis-1"); err != nil {
		t.Fatalf("delete must succeed despite remote failure: %v", err)
	}
	recs, _ := local.List(context.Background())
	if len(recs) != 0 {
		t.Fatalf("local copy still present: %+v", recs)
	}
}

type artifactMock struct {
	url string
	err error
	key string
}

func (m *artifactMock) UploadJSON(_ context.Context, key string, _ []byte) (string, error) {
	m.key = key
	return m.url, m.err
}

func TestSaveArchivesPayload(t *testing.T) {
	remote := &repoMock{SaveFunc: func(context.Context, *domain.Record) error { return nil }}
	art := &artifactMock{url: "http://minio.local/devassist/analyses/x.json"}
	svc := &Service{
		Remote:    remote,
		Local:     localstore.NewHistoryRepository(localstore.NewMemoryKV()),
		Artifacts: art,
		Clock:     fixedClock{t: time.Now()},
	}

	rec := &domain.Record{ID: "analysis-1", Payload: []byte(`{"overall_score":87}`)}
	if err := svc.Save(context.Background(), rec); err != nil {
		t.Fatal(err)
	}
	if rec.ArtifactURL != art.url {
		t.Errorf("artifact url not recorded: %q", rec.ArtifactURL)
	}
	if !strings.HasPrefix(art.key, "analyses/analysis-1/") || !strings.HasSuffix(art.key, ".json") {
		t.Errorf("unexpected object key %q", art.key)
	}
}

func TestSaveSurvivesArtifactFailure(t *testing.T) {
	remote := &repoMock{SaveFunc: func(context.Context, *domain.Record) error { return nil }}
	svc := &Service{
		Remote:    remote,
		Local:     localstore.NewHistoryRepository(localstore.NewMemoryKV()),
		Artifacts: &artifactMock{err: errors.New("bucket gone")},
		Clock:     fixedClock{t: time.Now()},
	}

	rec := &domain.Record{ID: "analysis-1", Payload: []byte(`{}`)}
	if err := svc.Save(context.Background(), rec); err != nil {
		t.Fatalf("archive failure must not block the save: %v", err)
	}
	if rec.ArtifactURL != "" {
		t.Errorf("artifact url set despite failure: %q", rec.ArtifactURL)
	}
	if rec.SyncStatus != domain.SyncSynced {
		t.Errorf("sync status = %s, want synced", rec.SyncStatus)
	}
}
