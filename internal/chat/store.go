// Package chat maintains the ordered chat log (live events, degraded-mode
// fallback sends and merged history) and the out-of-band history fetch.
package chat

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nguyengoctu/portfolio-realtime/internal/entity"
	"github.com/nguyengoctu/portfolio-realtime/internal/observer"
)

// Client and server assign the two timestamps of a provisional message and
// its persisted counterpart independently, so reconciliation tolerates a
// small skew.
const provisionalMatchWindow = 2 * time.Second

// Store is the append-only message log. Per-peer views are derived on
// demand, never cached, so they are always consistent with the log.
type Store struct {
	localUserID int64

	mu       sync.Mutex
	messages []entity.ChatMessage

	state *observer.State[[]entity.ChatMessage]
}

func NewStore(localUserID int64) *Store {
	return &Store{
		localUserID: localUserID,
		state:       observer.NewState([]entity.ChatMessage(nil)),
	}
}

// Append adds one live message to the log.
func (that *Store) Append(message entity.ChatMessage) {
	that.mu.Lock()
	that.messages = append(that.messages, message)
	that.mu.Unlock()

	that.publish()
}

// AppendLocal synthesizes a provisional message for a send made while the
// transport is degraded. The receiver never gets a copy; this only keeps
// the sender's own view complete.
func (that *Store) AppendLocal(receiverID int64, text string) entity.ChatMessage {
	message := entity.ChatMessage{
		SenderID:   that.localUserID,
		ReceiverID: receiverID,
		Message:    text,
		Timestamp:  entity.Now(),
		LocalID:    uuid.NewString(),
	}

	that.Append(message)

	return message
}

// MessagesWith derives one peer's conversation: every message the peer sent
// or received, in timestamp order with arrival order breaking ties.
func (that *Store) MessagesWith(peerID int64) []entity.ChatMessage {
	that.mu.Lock()
	defer that.mu.Unlock()

	var view []entity.ChatMessage
	for _, message := range that.messages {
		if message.Involves(peerID) {
			view = append(view, message)
		}
	}

	sort.SliceStable(view, func(i, j int) bool {
		return view[i].Timestamp.Before(view[j].Timestamp.Time)
	})

	return view
}

// MarkRead flips read=true on every message authored by the peer and
// addressed to the local user. Already-read messages are untouched.
func (that *Store) MarkRead(peerID int64) {
	that.mu.Lock()
	changed := false
	for i := range that.messages {
		message := &that.messages[i]
		if message.SenderID == peerID && message.ReceiverID == that.localUserID && !message.Read {
			message.Read = true
			changed = true
		}
	}
	that.mu.Unlock()

	if changed {
		that.publish()
	}
}

// MergeHistory folds a persisted-history response into the log. Messages
// already known by server id are skipped; provisional messages matching a
// server copy adopt it in place. Live events appended while the fetch was
// in flight are preserved untouched. Returns how many messages were added.
func (that *Store) MergeHistory(history []entity.ChatMessage) int {
	that.mu.Lock()

	known := make(map[int64]struct{}, len(that.messages))
	for _, message := range that.messages {
		if message.ID != 0 {
			known[message.ID] = struct{}{}
		}
	}

	added := 0
	for _, message := range history {
		if message.ID != 0 {
			if _, ok := known[message.ID]; ok {
				continue
			}
		}

		if i := that.matchProvisional(message); i >= 0 {
			message.LocalID = ""
			that.messages[i] = message
		} else {
			that.messages = append(that.messages, message)
			added++
		}

		if message.ID != 0 {
			known[message.ID] = struct{}{}
		}
	}
	that.mu.Unlock()

	that.publish()

	return added
}

func (that *Store) All() []entity.ChatMessage {
	that.mu.Lock()
	defer that.mu.Unlock()

	messages := make([]entity.ChatMessage, len(that.messages))
	copy(messages, that.messages)

	return messages
}

func (that *Store) Subscribe() (<-chan []entity.ChatMessage, func()) {
	return that.state.Subscribe()
}

// matchProvisional finds the locally-synthesized message a server copy
// corresponds to. Provisional ids are not stable across reconnects, so the
// match is by participants, body and a bounded timestamp distance.
// The caller holds the lock.
func (that *Store) matchProvisional(message entity.ChatMessage) int {
	for i, candidate := range that.messages {
		if !candidate.IsProvisional() {
			continue
		}
		if candidate.SenderID != message.SenderID || candidate.ReceiverID != message.ReceiverID {
			continue
		}
		if candidate.Message != message.Message {
			continue
		}

		delta := candidate.Timestamp.Sub(message.Timestamp.Time)
		if delta < 0 {
			delta = -delta
		}
		if delta <= provisionalMatchWindow {
			return i
		}
	}

	return -1
}

func (that *Store) publish() {
	that.state.Set(that.All())
}
