package faillog

import "time"

// Phase enum: where in the flow the session failed
type Phase string

const (
	PhaseSubmit    Phase = "submit"
	PhaseTransport Phase = "transport"
)

// Entry represents one failed analysis attempt kept for local auditing.
type Entry struct {
	SessionID string    `json:"session_id,omitempty"`
	Model     string    `json:"model,omitempty"`
	Phase     Phase     `json:"phase"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
