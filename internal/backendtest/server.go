package backendtest

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	history "github.com/devassist/proposal-analyzer/internal/domain/history"
)

// Frame mirrors one progress-channel message, scripted per scenario.
type Frame struct {
	Type      string          `json:"type"`
	Stage     string          `json:"stage,omitempty"`
	Message   string          `json:"message,omitempty"`
	Progress  int             `json:"progress,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

// Scenario scripts the stub gateway for one test.
type Scenario struct {
	SessionID    string  // id returned by the submit endpoint (default "sess-1")
	SubmitStatus int     // non-zero → submit responds with this status
	OmitID       bool    // submit responds 200 without an id field
	HistoryDown  bool    // history endpoints respond 503
	Frames       []Frame // sent in order after the progress channel connects
	KeepOpen     bool    // hold the channel open after the frames (cancel tests)
	APIKey       string  // when set, require a matching bearer token
}

// Server is an in-process stand-in for the DevAssist backend gateway:
// submit endpoint, history resource, progress channel, health.
type Server struct {
	*httptest.Server
	scenario Scenario
	upgrader websocket.Upgrader

	mu         sync.Mutex
	records    []*history.Record
	acks       []string
	lastSubmit map[string]any
}

func New(sc Scenario) *Server {
	if sc.SessionID == "" {
		sc.SessionID = "sess-1"
	}
	s := &Server{scenario: sc}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))
	if sc.APIKey != "" {
		r.Use(s.auth)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Post("/api/llm/analyze", s.handleSubmit)
	r.Route("/api/analysis/history", func(rt chi.Router) {
		rt.Get("/", s.handleList)
		rt.Post("/", s.handleCreate)
		rt.Get("/{id}", s.handleGet)
		rt.Delete("/{id}", s.handleDelete)
	})
	r.Get("/ws/analysis/{id}", s.handleProgress)

	s.Server = httptest.NewServer(r)
	return s
}

// WSURL returns the server base URL with a ws scheme.
func (s *Server) WSURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

// Records returns a snapshot of what the gateway persisted.
func (s *Server) Records() []*history.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*history.Record(nil), s.records...)
}

// Acks returns the liveness messages received on progress channels.
func (s *Server) Acks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.acks...)
}

// LastSubmit returns the decoded body of the most recent submit call.
func (s *Server) LastSubmit() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSubmit
}

// Seed pre-populates the gateway history.
func (s *Server) Seed(recs ...*history.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, recs...)
}

func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		key := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
		if subtle.ConstantTimeCompare([]byte(key), []byte(s.scenario.APIKey)) != 1 {
			http.Error(w, "invalid API key", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	s.mu.Lock()
	s.lastSubmit = body
	s.mu.Unlock()

	if s.scenario.SubmitStatus >= 400 {
		http.Error(w, "submission rejected", s.scenario.SubmitStatus)
		return
	}
	resp := map[string]any{"status": "queued"}
	if !s.scenario.OmitID {
		resp["analysis_id"] = s.scenario.SessionID
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) historyUnavailable(w http.ResponseWriter) bool {
	if s.scenario.HistoryDown {
		http.Error(w, "history unavailable", http.StatusServiceUnavailable)
		return true
	}
	return false
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	if s.historyUnavailable(w) {
		return
	}
	s.mu.Lock()
	recs := append([]*history.Record(nil), s.records...)
	s.mu.Unlock()
	if recs == nil {
		recs = []*history.Record{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(recs)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if s.historyUnavailable(w) {
		return
	}
	var rec history.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	kept := []*history.Record{&rec}
	for _, existing := range s.records {
		if existing.ID != rec.ID {
			kept = append(kept, existing)
		}
	}
	s.records = kept
	s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(&rec)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	if s.historyUnavailable(w) {
		return
	}
	id := history.RecordID(chi.URLParam(r, "id"))
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.ID == id {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(rec)
			return
		}
	}
	http.Error(w, "not found", http.StatusNotFound)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if s.historyUnavailable(w) {
		return
	}
	id := history.RecordID(chi.URLParam(r, "id"))
	s.mu.Lock()
	kept := s.records[:0]
	for _, rec := range s.records {
		if rec.ID != id {
			kept = append(kept, rec)
		}
	}
	s.records = kept
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	// capture liveness acks from the client
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			s.mu.Lock()
			s.acks = append(s.acks, string(data))
			s.mu.Unlock()
		}
	}()

	for _, f := range s.scenario.Frames {
		if err := conn.WriteJSON(f); err != nil {
			return
		}
	}
	if s.scenario.KeepOpen {
		<-done
	}
}
