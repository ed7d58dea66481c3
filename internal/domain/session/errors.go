package session

import "errors"

// ErrValidation indicates required inputs were missing before submission.
var ErrValidation = errors.New("analysis inputs incomplete")

// ErrSubmission indicates the backend rejected or was unreachable at start time.
var ErrSubmission = errors.New("analysis submission failed")

// ErrTransport indicates the progress channel failed or dropped before a terminal frame.
var ErrTransport = errors.New("progress connection lost")

// ErrSessionOpen indicates a progress channel is already open for the session id.
var ErrSessionOpen = errors.New("progress session already open")
