// Package realtime owns the single persistent connection a logged-in
// session holds to the chat backend.
package realtime

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nguyengoctu/portfolio-realtime/internal/observer"
	"github.com/nguyengoctu/portfolio-realtime/internal/protocol"
)

type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDegraded     Status = "degraded-simulated"
)

var (
	ErrUnsupportedScheme = errors.New("unsupported server url scheme")
	ErrMissingHost       = errors.New("server url has no host")
)

// Handler consumes decoded inbound frames, one at a time.
type Handler func(message *protocol.Inbound)

// Manager dials the backend, performs the join handshake, pumps inbound
// frames to the handler and retries broken connections up to a fixed bound.
// Transport failure is never surfaced to callers: once the retry budget is
// spent the manager settles into degraded-simulated mode for the rest of
// the session, which still reports as connected but expects no peer data.
type Manager struct {
	logger *slog.Logger

	endpoint    string
	maxAttempts int
	retryDelay  time.Duration
	handler     Handler

	mu       sync.Mutex
	conn     *websocket.Conn
	userID   int64
	attempts int
	gen      int

	writeMu sync.Mutex

	status *observer.State[Status]
}

func NewManager(logger *slog.Logger, serverURL string, maxAttempts int, retryDelay time.Duration, handler Handler) (*Manager, error) {
	endpoint, err := websocketEndpoint(serverURL)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve websocket endpoint: %w", err)
	}

	return &Manager{
		logger:      logger.With("component", "realtime"),
		endpoint:    endpoint,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		handler:     handler,
		status:      observer.NewState(StatusDisconnected),
	}, nil
}

// Connect opens the session connection for the given user. Calling it again
// while connecting, connected or degraded for the same user is a no-op. It
// never returns an error: when the transport cannot be opened within the
// attempt budget the manager degrades instead.
func (that *Manager) Connect(userID int64) {
	that.mu.Lock()

	status := that.status.Get()
	if that.userID == userID &&
		(status == StatusConnecting || status == StatusConnected || status == StatusDegraded) {
		that.mu.Unlock()
		return
	}

	that.gen++
	gen := that.gen

	if that.conn != nil {
		_ = that.conn.Close()
		that.conn = nil
	}

	that.userID = userID
	that.attempts = 0
	that.mu.Unlock()

	that.status.Set(StatusConnecting)

	go that.establish(gen)
}

// Disconnect closes the transport. It is a transport-lifecycle event only;
// downstream teardown (clearing presence) is the facade's responsibility.
func (that *Manager) Disconnect() {
	that.mu.Lock()
	that.gen++
	if that.conn != nil {
		_ = that.conn.Close()
		that.conn = nil
	}
	that.mu.Unlock()

	that.status.Set(StatusDisconnected)
}

// Send serializes and transmits one frame. Frames are silently dropped when
// the transport is not open; guaranteed delivery is deliberately not
// offered here, callers needing it use the degraded-mode fallback path.
func (that *Manager) Send(message protocol.Outbound) {
	that.mu.Lock()
	conn := that.conn
	that.mu.Unlock()

	if conn == nil {
		return
	}

	that.writeMu.Lock()
	defer that.writeMu.Unlock()

	if err := conn.WriteJSON(message); err != nil {
		that.logger.Error("failed to write frame", "type", message.Type, "error", err)
	}
}

// Open reports whether the transport itself is open. Degraded mode is not
// open even though it reports as connected.
func (that *Manager) Open() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.conn != nil
}

func (that *Manager) Status() Status {
	return that.status.Get()
}

// Connected is the UI-facing view of the status: degraded-simulated mode
// reports as connected so a failed transport degrades features instead of
// surfacing an error.
func (that *Manager) Connected() bool {
	status := that.status.Get()

	return status == StatusConnected || status == StatusDegraded
}

func (that *Manager) SubscribeStatus() (<-chan Status, func()) {
	return that.status.Subscribe()
}

// establish dials until it succeeds or the attempt budget is exhausted,
// sleeping a fixed delay between attempts.
func (that *Manager) establish(gen int) {
	log := that.logger.With("method", "establish")

	for {
		that.mu.Lock()
		if gen != that.gen {
			that.mu.Unlock()
			return
		}
		userID := that.userID
		attempts := that.attempts
		that.mu.Unlock()

		if attempts >= that.maxAttempts {
			log.Warn("retry budget exhausted, entering degraded mode", "attempts", attempts)
			that.status.Set(StatusDegraded)
			return
		}

		conn, err := that.dial(userID)
		if err == nil {
			that.mu.Lock()
			if gen != that.gen {
				that.mu.Unlock()
				_ = conn.Close()
				return
			}
			that.conn = conn
			that.attempts = 0
			that.mu.Unlock()

			that.status.Set(StatusConnected)
			that.Send(protocol.Join(userID))

			log.Info("connection established", "userID", userID)

			go that.readLoop(conn, gen)

			return
		}

		that.mu.Lock()
		that.attempts++
		attempts = that.attempts
		that.mu.Unlock()

		log.Warn("failed to open connection", "attempt", attempts, "error", err)

		time.Sleep(that.retryDelay)
	}
}

// readLoop parses inbound frames and hands them to the dispatch point one
// at a time. Malformed frames are logged and dropped, never propagated.
func (that *Manager) readLoop(conn *websocket.Conn, gen int) {
	log := that.logger.With("method", "readLoop")

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			that.mu.Lock()
			stale := gen != that.gen || that.conn != conn
			if !stale {
				that.conn = nil
			}
			that.mu.Unlock()

			if stale {
				return
			}

			log.Warn("connection closed unexpectedly", "error", err)
			that.status.Set(StatusConnecting)
			that.establish(gen)

			return
		}

		message, err := protocol.Decode(raw)
		if err != nil {
			log.Error("dropping malformed frame", "error", err)
			continue
		}

		that.handler(message)
	}
}

func (that *Manager) dial(userID int64) (*websocket.Conn, error) {
	endpoint := fmt.Sprintf("%s/ws?userId=%d", that.endpoint, userID)

	conn, resp, err := websocket.DefaultDialer.Dial(endpoint, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", endpoint, err)
	}

	return conn, nil
}

// websocketEndpoint maps the page origin to the matching websocket scheme.
func websocketEndpoint(serverURL string) (string, error) {
	parsed, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}

	switch parsed.Scheme {
	case "https", "wss":
		parsed.Scheme = "wss"
	case "http", "ws":
		parsed.Scheme = "ws"
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, parsed.Scheme)
	}

	if parsed.Host == "" {
		return "", ErrMissingHost
	}

	parsed.Path = ""
	parsed.RawQuery = ""

	return parsed.String(), nil
}
