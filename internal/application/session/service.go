package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"

	"github.com/devassist/proposal-analyzer/internal/application"
	apphistory "github.com/devassist/proposal-analyzer/internal/application/history"
	faildomain "github.com/devassist/proposal-analyzer/internal/domain/faillog"
	historydomain "github.com/devassist/proposal-analyzer/internal/domain/history"
	domain "github.com/devassist/proposal-analyzer/internal/domain/session"
	"github.com/devassist/proposal-analyzer/internal/infra/ai/prompt"
	"github.com/devassist/proposal-analyzer/internal/validate"
)

// Service drives a single analysis end-to-end: validate inputs, extract
// document text, submit to the backend, relay progress, persist the result.
// State transitions happen under one mutex; transport callbacks arrive on the
// per-session read goroutine.
type Service struct {
	Submitter domain.Submitter
	Transport domain.Transport
	History   *apphistory.Service
	Failures  faildomain.Repository // optional local failure journal
	Extractor domain.TextExtractor
	Clock     application.Clock
	Model     string
	OnChange  func(domain.Session) // optional UI notification hook

	mu       sync.Mutex
	cur      domain.Session
	sources  []string
	title    string
	terminal chan domain.Session
}

// Current returns a snapshot of the session state.
func (s *Service) Current() domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// Wait blocks until the running session reaches a terminal state (or is
// cancelled back to idle), or until ctx expires.
func (s *Service) Wait(ctx context.Context) (domain.Session, error) {
	s.mu.Lock()
	ch := s.terminal
	s.mu.Unlock()
	if ch == nil {
		return s.Current(), nil
	}
	select {
	case sess := <-ch:
		return sess, nil
	case <-ctx.Done():
		return s.Current(), ctx.Err()
	}
}

// Start runs validation and submission, then opens the progress channel.
// It returns once the session is in progress; terminal outcomes are observed
// via Wait or OnChange. A validation failure leaves the session idle.
func (s *Service) Start(ctx context.Context, specPath string, proposalPaths []string) error {
	s.mu.Lock()
	if s.cur.State == domain.StateSubmitting || s.cur.State == domain.StateInProgress {
		s.mu.Unlock()
		return fmt.Errorf("%w: analysis already running", domain.ErrValidation)
	}
	if strings.TrimSpace(specPath) == "" || len(proposalPaths) == 0 {
		// no submission attempted, stay idle with a message
		s.cur = domain.Session{
			State:   domain.StateIdle,
			Message: "select a technical specification and at least one proposal",
		}
		s.mu.Unlock()
		s.publish()
		return fmt.Errorf("%w: technical specification and at least one proposal required", domain.ErrValidation)
	}
	s.cur = domain.Session{State: domain.StateSubmitting, Message: "submitting documents"}
	s.sources = append([]string{specPath}, proposalPaths...)
	s.title = fmt.Sprintf("Proposal analysis — %s", filepath.Base(specPath))
	s.terminal = make(chan domain.Session, 1)
	s.mu.Unlock()
	s.publish()
	incStarted()

	specText, err := s.Extractor.Extract(specPath)
	if err != nil {
		return s.failSubmit(fmt.Errorf("%w: read specification: %v", domain.ErrSubmission, err))
	}
	docs := make([]prompt.Document, 0, len(proposalPaths))
	for _, p := range proposalPaths {
		text, err := s.Extractor.Extract(p)
		if err != nil {
			return s.failSubmit(fmt.Errorf("%w: read proposal %s: %v", domain.ErrSubmission, filepath.Base(p), err))
		}
		docs = append(docs, prompt.Document{Name: filepath.Base(p), Text: text})
	}

	id, err := s.Submitter.Submit(ctx, domain.SubmitRequest{
		Prompt: prompt.GetUserPrompt(filepath.Base(specPath), specText, docs),
		Model:  s.Model,
	})
	if err != nil {
		return s.failSubmit(err)
	}
	if err := validate.ValidateSessionID(id); err != nil {
		return s.failSubmit(fmt.Errorf("%w: %v", domain.ErrSubmission, err))
	}

	s.mu.Lock()
	if s.cur.State != domain.StateSubmitting {
		// cancelled while the submit call was in flight; stop listening
		s.mu.Unlock()
		return nil
	}
	s.cur.ID = id
	s.cur.State = domain.StateInProgress
	s.cur.Message = "analysis started"
	s.mu.Unlock()
	s.publish()

	if err := s.Transport.Open(id, domain.Callbacks{
		OnProgress:   s.onProgress(id),
		OnCompleted:  s.onCompleted(id),
		OnError:      s.onError(id),
		OnDisconnect: s.onDisconnect(id),
	}); err != nil {
		return s.failTransport(id, err.Error())
	}
	return nil
}

// Cancel aborts an in-flight session and returns to idle. Cooperative only:
// the backend job may keep running, this layer just stops listening.
// No partial result is saved.
func (s *Service) Cancel() {
	s.mu.Lock()
	if s.cur.State != domain.StateSubmitting && s.cur.State != domain.StateInProgress {
		s.mu.Unlock()
		return
	}
	id := s.cur.ID
	s.cur = domain.Session{State: domain.StateIdle, Message: "analysis cancelled"}
	s.sources = nil
	s.mu.Unlock()
	if id != "" {
		s.Transport.Close(id)
	}
	incCancelled()
	s.publish()
	s.notifyTerminal()
}

// Reset clears the session after a terminal state so a new analysis can start.
func (s *Service) Reset() {
	s.mu.Lock()
	s.cur = domain.Session{State: domain.StateIdle}
	s.sources = nil
	s.title = ""
	s.mu.Unlock()
	s.publish()
}

func (s *Service) onProgress(id string) func(stage, message string, percent int) {
	return func(stage, message string, percent int) {
		s.mu.Lock()
		if s.cur.ID != id || s.cur.State != domain.StateInProgress {
			s.mu.Unlock()
			return
		}
		s.cur.Stage = validate.SanitizeString(stage)
		s.cur.Message = validate.SanitizeString(message)
		s.cur.Percent = validate.ClampPercent(percent)
		s.mu.Unlock()
		s.publish()
	}
}

func (s *Service) onCompleted(id string) func(result json.RawMessage) {
	return func(result json.RawMessage) {
		s.mu.Lock()
		if s.cur.ID != id || s.cur.State != domain.StateInProgress {
			s.mu.Unlock()
			return
		}
		rec := &historydomain.Record{
			Title:        s.title,
			OverallScore: historydomain.ScoreFromPayload(result),
			Status:       historydomain.StatusCompleted,
			SourceFiles:  append([]string(nil), s.sources...),
			Payload:      result,
		}
		s.cur.State = domain.StateCompleted
		s.cur.Percent = 100
		s.cur.Message = "analysis completed"
		s.mu.Unlock()

		// persistence failures degrade silently inside the history service;
		// only a local-store failure can surface here
		if err := s.History.Save(context.Background(), rec); err != nil {
			log.Printf("session: result save failed id=%s: %v", id, err)
		}
		incCompleted()
		s.publish()
		s.notifyTerminal()
	}
}

func (s *Service) onError(id string) func(message string) {
	return func(message string) {
		s.mu.Lock()
		if s.cur.ID != id || !active(s.cur.State) {
			s.mu.Unlock()
			return
		}
		s.cur.State = domain.StateFailed
		s.cur.Err = validate.SanitizeString(message)
		s.mu.Unlock()
		s.recordFailure(id, faildomain.PhaseTransport, message)
		incFailed()
		s.publish()
		s.notifyTerminal()
	}
}

func (s *Service) onDisconnect(id string) func() {
	return func() {
		s.mu.Lock()
		if s.cur.ID != id || !active(s.cur.State) {
			s.mu.Unlock()
			return
		}
		// no terminal frame arrived; treat like a backend-reported error
		s.cur.State = domain.StateFailed
		s.cur.Err = domain.ErrTransport.Error()
		s.mu.Unlock()
		s.recordFailure(id, faildomain.PhaseTransport, domain.ErrTransport.Error())
		incFailed()
		s.publish()
		s.notifyTerminal()
	}
}

func (s *Service) failSubmit(err error) error {
	s.mu.Lock()
	if s.cur.State != domain.StateSubmitting {
		s.mu.Unlock()
		return nil
	}
	s.cur.State = domain.StateFailed
	s.cur.Err = err.Error()
	s.mu.Unlock()
	s.recordFailure("", faildomain.PhaseSubmit, err.Error())
	incFailed()
	s.publish()
	s.notifyTerminal()
	return err
}

func (s *Service) failTransport(id, message string) error {
	s.mu.Lock()
	s.cur.State = domain.StateFailed
	s.cur.Err = message
	s.mu.Unlock()
	s.recordFailure(id, faildomain.PhaseTransport, message)
	incFailed()
	s.publish()
	s.notifyTerminal()
	return fmt.Errorf("%w: %s", domain.ErrTransport, message)
}

func (s *Service) recordFailure(id string, phase faildomain.Phase, message string) {
	if s.Failures == nil {
		return
	}
	entry := &faildomain.Entry{
		SessionID: id,
		Model:     s.Model,
		Phase:     phase,
		Message:   message,
		CreatedAt: s.Clock.Now(),
	}
	if err := s.Failures.Save(context.Background(), entry); err != nil {
		log.Printf("session: failure journal write failed: %v", err)
	}
}

func (s *Service) publish() {
	if s.OnChange == nil {
		return
	}
	s.OnChange(s.Current())
}

func (s *Service) notifyTerminal() {
	s.mu.Lock()
	ch := s.terminal
	sess := s.cur
	s.mu.Unlock()
	if ch == nil {
		return
	}
	select {
	case ch <- sess:
	default:
	}
}

func active(st domain.State) bool {
	return st == domain.StateSubmitting || st == domain.StateInProgress
}
