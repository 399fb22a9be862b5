package suite

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

const maxWaitDuration = 30 * time.Second

type Suite struct {
	*testing.T
	Logger *slog.Logger

	Backend *Backend
}

func New(t *testing.T) (context.Context, *Suite) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), maxWaitDuration)
	t.Cleanup(func() {
		cancel()
	})

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	backend := NewBackend(t)
	t.Cleanup(backend.Close)

	return ctx, &Suite{
		T:       t,
		Logger:  logger,
		Backend: backend,
	}
}

// Backend is a scripted stand-in for the chat server: it accepts websocket
// upgrades at /ws, records every frame a client writes and lets a test push
// arbitrary frames down to the client.
type Backend struct {
	t      *testing.T
	server *httptest.Server

	upgrader websocket.Upgrader
	connCh   chan *websocket.Conn

	mu       sync.Mutex
	received []json.RawMessage
	history  string
}

func NewBackend(t *testing.T) *Backend {
	t.Helper()

	that := &Backend{
		t:      t,
		connCh: make(chan *websocket.Conn, 8),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", that.handleWS)
	mux.HandleFunc("/api/chat/messages/", that.handleHistory)

	that.server = httptest.NewServer(mux)

	return that
}

// URL returns the http base URL; the client resolves the ws endpoint from it.
func (that *Backend) URL() string {
	return that.server.URL
}

func (that *Backend) Close() {
	that.server.Close()
}

// WaitForConn blocks until a client completes the upgrade at /ws.
func (that *Backend) WaitForConn(timeout time.Duration) *websocket.Conn {
	that.t.Helper()

	select {
	case conn := <-that.connCh:
		return conn
	case <-time.After(timeout):
		that.t.Fatalf("no client connected within %v", timeout)
		return nil
	}
}

// Push writes one raw frame to the given client connection.
func (that *Backend) Push(conn *websocket.Conn, frame string) {
	that.t.Helper()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		that.t.Fatalf("could not push frame: %v", err)
	}
}

// Received returns a copy of every frame clients have written so far.
func (that *Backend) Received() []json.RawMessage {
	that.mu.Lock()
	defer that.mu.Unlock()

	frames := make([]json.RawMessage, len(that.received))
	copy(frames, that.received)

	return frames
}

// WaitForMessages polls until at least n frames have arrived from clients.
func (that *Backend) WaitForMessages(n int, timeout time.Duration) []json.RawMessage {
	that.t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		frames := that.Received()
		if len(frames) >= n {
			return frames
		}

		time.Sleep(5 * time.Millisecond)
	}

	that.t.Fatalf("expected %d frames within %v, got %d", n, timeout, len(that.Received()))
	return nil
}

// HandleHistory scripts the body the history endpoint will answer with.
func (that *Backend) HandleHistory(body string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.history = body
}

func (that *Backend) handleHistory(w http.ResponseWriter, _ *http.Request) {
	that.mu.Lock()
	body := that.history
	that.mu.Unlock()

	if body == "" {
		body = "[]"
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func (that *Backend) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	that.connCh <- conn

	go func() {
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}

			that.mu.Lock()
			that.received = append(that.received, json.RawMessage(raw))
			that.mu.Unlock()
		}
	}()
}

// FrameOfType finds the first recorded frame whose type field matches.
func (that *Backend) FrameOfType(frames []json.RawMessage, frameType string) (map[string]any, bool) {
	for _, raw := range frames {
		var frame map[string]any
		if err := json.Unmarshal(raw, &frame); err != nil {
			continue
		}

		if got, ok := frame["type"].(string); ok && strings.EqualFold(got, frameType) {
			return frame, true
		}
	}

	return nil, false
}
