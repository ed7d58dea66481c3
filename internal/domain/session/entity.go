package session

// State enum for one analysis attempt
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// Session is the UI-facing view of one end-to-end analysis attempt.
// ID is assigned by the backend at submission time and stays empty until then.
type Session struct {
	ID      string `json:"id,omitempty"`
	State   State  `json:"state"`
	Stage   string `json:"stage,omitempty"`
	Percent int    `json:"percent"`
	Message string `json:"message,omitempty"`
	Err     string `json:"error,omitempty"`
}

// Terminal reports whether the session reached an end state.
func (s Session) Terminal() bool {
	return s.State == StateCompleted || s.State == StateFailed
}
