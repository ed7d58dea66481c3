package transport

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	domain "github.com/devassist/proposal-analyzer/internal/domain/session"
)

// frame is one inbound message on the progress channel.
type frame struct {
	Type      string          `json:"type"`
	Stage     string          `json:"stage,omitempty"`
	Message   string          `json:"message,omitempty"`
	Progress  int             `json:"progress,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

// Client relays job-progress frames over per-session WebSocket connections.
// One live connection per session id; the registry rejects duplicate opens.
type Client struct {
	baseURL string
	apiKey  string
	dialer  *websocket.Dialer

	mu       sync.Mutex
	sessions map[string]*liveSession
}

// liveSession state machine: connecting → open → closed
type liveSession struct {
	conn     *websocket.Conn // nil until the dial finishes
	finished bool            // terminal frame delivered or user closed
}

func New(baseURL, apiKey string) *Client {
	d := *websocket.DefaultDialer
	d.HandshakeTimeout = 10 * time.Second
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		dialer:   &d,
		sessions: make(map[string]*liveSession),
	}
}

// Open registers the session and returns immediately; dialing and frame
// delivery happen on a dedicated goroutine. A second open for a live id
// is rejected.
func (c *Client) Open(sessionID string, cb domain.Callbacks) error {
	c.mu.Lock()
	if _, ok := c.sessions[sessionID]; ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrSessionOpen, sessionID)
	}
	ls := &liveSession{}
	c.sessions[sessionID] = ls
	c.mu.Unlock()

	go c.run(sessionID, ls, cb)
	return nil
}

// Close tears down the session's connection. Idempotent; safe on ids that
// were never opened. Closing suppresses the disconnect callback.
func (c *Client) Close(sessionID string) {
	c.mu.Lock()
	ls, ok := c.sessions[sessionID]
	if !ok {
		c.mu.Unlock()
		return
	}
	ls.finished = true
	conn := ls.conn
	delete(c.sessions, sessionID)
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

func (c *Client) run(sessionID string, ls *liveSession, cb domain.Callbacks) {
	header := http.Header{}
	if c.apiKey != "" {
		header.Set("Authorization", "Bearer "+c.apiKey)
	}

	conn, resp, err := c.dialer.Dial(c.baseURL+"/ws/analysis/"+sessionID, header)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		if c.drop(sessionID, ls) {
			log.Printf("transport: dial failed session=%s: %v", sessionID, err)
			c.disconnect(cb)
		}
		return
	}

	c.mu.Lock()
	if ls.finished {
		// closed while the dial was in flight
		c.mu.Unlock()
		conn.Close()
		return
	}
	ls.conn = conn
	c.mu.Unlock()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if c.drop(sessionID, ls) {
				c.disconnect(cb)
			}
			conn.Close()
			return
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			log.Printf("transport: bad frame session=%s: %v", sessionID, err)
			continue
		}

		switch f.Type {
		case "keepalive":
			// answered, never surfaced
			if err := conn.WriteMessage(websocket.TextMessage, []byte("pong")); err != nil {
				log.Printf("transport: keepalive ack failed session=%s: %v", sessionID, err)
			}
		case "progress":
			if cb.OnProgress != nil {
				cb.OnProgress(f.Stage, f.Message, f.Progress)
			}
		case "completed":
			c.drop(sessionID, ls)
			if cb.OnCompleted != nil {
				cb.OnCompleted(f.Result)
			}
			conn.Close()
			return
		case "error":
			c.drop(sessionID, ls)
			if cb.OnError != nil {
				cb.OnError(f.Error)
			}
			conn.Close()
			return
		default:
			log.Printf("transport: unknown frame type %q session=%s", f.Type, sessionID)
		}
	}
}

// drop removes the session from the registry. Returns true when this call
// finished the session, so disconnect fires at most once and never after a
// terminal frame or a user-initiated close.
func (c *Client) drop(sessionID string, ls *liveSession) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ls.finished {
		return false
	}
	ls.finished = true
	delete(c.sessions, sessionID)
	return true
}

func (c *Client) disconnect(cb domain.Callbacks) {
	if cb.OnDisconnect != nil {
		cb.OnDisconnect()
	}
}
