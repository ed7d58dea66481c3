package session

import (
	"context"
	"encoding/json"
)

// SubmitRequest payload untuk Submitter
type SubmitRequest struct {
	Prompt      string
	Model       string
	MaxTokens   int
	Temperature float32
}

// Submitter port (interface untuk start backend job)
// Returns the backend-issued session id; never opens a progress channel itself.
type Submitter interface {
	Submit(ctx context.Context, req SubmitRequest) (string, error)
}

// Callbacks bundle one session's progress events. Each inbound frame maps to
// exactly one invocation; keepalive frames are handled inside the transport
// and never reach these.
type Callbacks struct {
	OnProgress   func(stage, message string, percent int)
	OnCompleted  func(result json.RawMessage)
	OnError      func(message string)
	OnDisconnect func()
}

// Transport port (interface untuk progress relay)
// Open returns immediately; all delivery is event-driven. Close is idempotent.
type Transport interface {
	Open(sessionID string, cb Callbacks) error
	Close(sessionID string)
}

// TextExtractor port for the document-processing collaborator.
type TextExtractor interface {
	Extract(path string) (string, error)
}
