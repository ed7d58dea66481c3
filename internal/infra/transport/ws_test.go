package transport

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/devassist/proposal-analyzer/internal/backendtest"
	domain "github.com/devassist/proposal-analyzer/internal/domain/session"
)

type event struct {
	kind    string
	stage   string
	message string
	percent int
	result  []byte
}

// recorder funnels callback invocations into a channel so tests can assert
// ordering without sharing state across goroutines.
type recorder struct {
	ch chan event
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan event, 16)}
}

func (r *recorder) callbacks() domain.Callbacks {
	return domain.Callbacks{
		OnProgress: func(stage, message string, percent int) {
			r.ch <- event{kind: "progress", stage: stage, message: message, percent: percent}
		},
		OnCompleted: func(result json.RawMessage) {
			r.ch <- event{kind: "completed", result: result}
		},
		OnError: func(message string) {
			r.ch <- event{kind: "error", message: message}
		},
		OnDisconnect: func() {
			r.ch <- event{kind: "disconnect"}
		},
	}
}

func (r *recorder) next(t *testing.T) event {
	t.Helper()
	select {
	case e := <-r.ch:
		return e
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for a callback")
		return event{}
	}
}

func (r *recorder) quiet(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case e := <-r.ch:
		t.Fatalf("unexpected callback %+v", e)
	case <-time.After(d):
	}
}

func TestFramesDeliveredInOrder(t *testing.T) {
	srv := backendtest.New(backendtest.Scenario{
		Frames: []backendtest.Frame{
			{Type: "progress", Stage: "upload", Message: "received", Progress: 30},
			{Type: "progress", Stage: "analysis", Message: "scoring", Progress: 80},
			{Type: "completed", Result: json.RawMessage(`{"overall_score": 87}`)},
		},
	})
	defer srv.Close()

	c := New(srv.WSURL(), "")
	rec := newRecorder()
	if err := c.Open("sess-1", rec.callbacks()); err != nil {
		t.Fatalf("open: %v", err)
	}

	e := rec.next(t)
	if e.kind != "progress" || e.stage != "upload" || e.percent != 30 {
		t.Fatalf("frame 1 = %+v", e)
	}
	e = rec.next(t)
	if e.kind != "progress" || e.stage != "analysis" || e.percent != 80 {
		t.Fatalf("frame 2 = %+v", e)
	}
	e = rec.next(t)
	if e.kind != "completed" || string(e.result) != `{"overall_score": 87}` {
		t.Fatalf("frame 3 = %+v", e)
	}

	// the terminal frame closes the session; no disconnect follows
	rec.quiet(t, 200*time.Millisecond)
}

func TestErrorFrameDelivered(t *testing.T) {
	srv := backendtest.New(backendtest.Scenario{
		Frames: []backendtest.Frame{
			{Type: "error", Error: "model quota exhausted"},
		},
	})
	defer srv.Close()

	c := New(srv.WSURL(), "")
	rec := newRecorder()
	if err := c.Open("sess-1", rec.callbacks()); err != nil {
		t.Fatal(err)
	}
	e := rec.next(t)
	if e.kind != "error" || e.message != "model quota exhausted" {
		t.Fatalf("got %+v", e)
	}
	rec.quiet(t, 200*time.Millisecond)
}

func TestKeepaliveAnsweredNotSurfaced(t *testing.T) {
	srv := backendtest.New(backendtest.Scenario{
		Frames: []backendtest.Frame{
			{Type: "keepalive"},
			{Type: "completed", Result: json.RawMessage(`{}`)},
		},
	})
	defer srv.Close()

	c := New(srv.WSURL(), "")
	rec := newRecorder()
	if err := c.Open("sess-1", rec.callbacks()); err != nil {
		t.Fatal(err)
	}

	// the first surfaced event is the terminal frame, not the keepalive
	if e := rec.next(t); e.kind != "completed" {
		t.Fatalf("keepalive leaked through: %+v", e)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		acks := srv.Acks()
		if len(acks) == 1 && acks[0] == "pong" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("keepalive never answered, acks=%v", acks)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestDisconnectWithoutTerminalFrame(t *testing.T) {
	srv := backendtest.New(backendtest.Scenario{
		Frames: []backendtest.Frame{
			{Type: "progress", Stage: "analysis", Progress: 50},
		},
	})
	defer srv.Close()

	c := New(srv.WSURL(), "")
	rec := newRecorder()
	if err := c.Open("sess-1", rec.callbacks()); err != nil {
		t.Fatal(err)
	}
	if e := rec.next(t); e.kind != "progress" {
		t.Fatalf("got %+v", e)
	}
	if e := rec.next(t); e.kind != "disconnect" {
		t.Fatalf("expected disconnect after server hangup, got %+v", e)
	}
	// at most once
	rec.quiet(t, 200*time.Millisecond)
}

func TestDialFailureReportsDisconnect(t *testing.T) {
	c := New("ws://127.0.0.1:1", "")
	rec := newRecorder()
	if err := c.Open("sess-1", rec.callbacks()); err != nil {
		t.Fatal(err)
	}
	if e := rec.next(t); e.kind != "disconnect" {
		t.Fatalf("got %+v", e)
	}
}

func TestDuplicateOpenRejected(t *testing.T) {
	srv := backendtest.New(backendtest.Scenario{
		Frames: []backendtest.Frame{
			{Type: "progress", Stage: "analysis", Progress: 10},
		},
		KeepOpen: true,
	})
	defer srv.Close()

	c := New(srv.WSURL(), "")
	rec := newRecorder()
	if err := c.Open("sess-1", rec.callbacks()); err != nil {
		t.Fatal(err)
	}
	// wait until the connection is live
	if e := rec.next(t); e.kind != "progress" {
		t.Fatalf("got %+v", e)
	}

	err := c.Open("sess-1", newRecorder().callbacks())
	if !errors.Is(err, domain.ErrSessionOpen) {
		t.Fatalf("expected ErrSessionOpen, got %v", err)
	}

	// a different id is fine
	if err := c.Open("sess-2", newRecorder().callbacks()); err != nil {
		t.Fatalf("independent session rejected: %v", err)
	}

	c.Close("sess-1")
	c.Close("sess-2")
}

func TestCloseIdempotentAndSuppressesDisconnect(t *testing.T) {
	srv := backendtest.New(backendtest.Scenario{
		Frames: []backendtest.Frame{
			{Type: "progress", Stage: "analysis", Progress: 10},
		},
		KeepOpen: true,
	})
	defer srv.Close()

	c := New(srv.WSURL(), "")
	rec := newRecorder()
	if err := c.Open("sess-1", rec.callbacks()); err != nil {
		t.Fatal(err)
	}
	if e := rec.next(t); e.kind != "progress" {
		t.Fatalf("got %+v", e)
	}

	c.Close("sess-1")
	c.Close("sess-1")       // second close is a no-op
	c.Close("never-opened") // unknown ids too

	// user-initiated close must not report a disconnect
	rec.quiet(t, 300*time.Millisecond)

	// the id is free for reuse after close
	if err := c.Open("sess-1", newRecorder().callbacks()); err != nil {
		t.Fatalf("reopen after close: %v", err)
	}
	c.Close("sess-1")
}

func TestMalformedFrameSkipped(t *testing.T) {
	// a frame with an unknown type is logged and skipped, the stream continues
	srv := backendtest.New(backendtest.Scenario{
		Frames: []backendtest.Frame{
			{Type: "telemetry"},
			{Type: "completed", Result: json.RawMessage(`{}`)},
		},
	})
	defer srv.Close()

	c := New(srv.WSURL(), "")
	rec := newRecorder()
	if err := c.Open("sess-1", rec.callbacks()); err != nil {
		t.Fatal(err)
	}
	if e := rec.next(t); e.kind != "completed" {
		t.Fatalf("got %+v", e)
	}
}
