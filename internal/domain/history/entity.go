package history

import (
	"encoding/json"
	"time"
)

// RecordID identifier type
type RecordID string

// Status enum
type Status string

const (
	StatusCompleted  Status = "completed"
	StatusInProgress Status = "in_progress"
	StatusFailed     Status = "failed"
)

// SyncStatus tracks where the authoritative copy of a record lives.
type SyncStatus string

const (
	SyncLocal   SyncStatus = "local"
	SyncSynced  SyncStatus = "synced"
	SyncPending SyncStatus = "sync_pending"
	SyncFailed  SyncStatus = "sync_failed"
)

// Aggregate Root: Record, one persisted completed analysis.
// Payload is opaque to the store and round-tripped verbatim.
type Record struct {
	ID           RecordID        `json:"id"`
	Title        string          `json:"title"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	OverallScore float64         `json:"overall_score"`
	Status       Status          `json:"status"`
	SourceFiles  []string        `json:"source_files,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	SyncStatus   SyncStatus      `json:"sync_status"`
	ArtifactURL  string          `json:"artifact_url,omitempty"`
}

// ScoreFromPayload pulls the overall score out of an analysis payload with
// best effort. The backend and the direct provider path disagree on the key
// casing, so try both. Out-of-range values are clamped to [0,100].
func ScoreFromPayload(payload []byte) float64 {
	var obj struct {
		OverallScore *float64 `json:"overall_score"`
		CamelScore   *float64 `json:"overallScore"`
		Score        *float64 `json:"score"`
	}
	if err := json.Unmarshal(payload, &obj); err != nil {
		return 0
	}
	var v float64
	switch {
	case obj.OverallScore != nil:
		v = *obj.OverallScore
	case obj.CamelScore != nil:
		v = *obj.CamelScore
	case obj.Score != nil:
		v = *obj.Score
	}
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
