// Package presence maintains the set of online peers and their local-only
// unread flags, derived from inbound presence events.
package presence

import (
	"sync"

	"github.com/nguyengoctu/portfolio-realtime/internal/entity"
	"github.com/nguyengoctu/portfolio-realtime/internal/observer"
)

// Tracker keys peers by identity: repeated joins for the same user never
// create duplicate entries, and removing a non-member is a no-op.
type Tracker struct {
	localUserID int64

	mu    sync.RWMutex
	peers []entity.Peer

	state *observer.State[[]entity.Peer]
}

func NewTracker(localUserID int64) *Tracker {
	return &Tracker{
		localUserID: localUserID,
		state:       observer.NewState([]entity.Peer(nil)),
	}
}

// ReplaceAll installs a full authoritative peer list from a presence
// snapshot, discarding whatever was there before.
func (that *Tracker) ReplaceAll(peers []entity.Peer) {
	that.mu.Lock()
	that.peers = make([]entity.Peer, len(peers))
	copy(that.peers, peers)
	that.mu.Unlock()

	that.publish()
}

// Add inserts one peer unless a peer with the same identity is present.
func (that *Tracker) Add(peer entity.Peer) {
	that.mu.Lock()
	if that.indexOf(peer.ID) >= 0 {
		that.mu.Unlock()
		return
	}
	that.peers = append(that.peers, peer)
	that.mu.Unlock()

	that.publish()
}

func (that *Tracker) Remove(peerID int64) {
	that.mu.Lock()
	i := that.indexOf(peerID)
	if i < 0 {
		that.mu.Unlock()
		return
	}
	that.peers = append(that.peers[:i], that.peers[i+1:]...)
	that.mu.Unlock()

	that.publish()
}

// MarkUnread flags a peer as having unread messages. The flag is client
// state only and is never transmitted; the local user never flags itself.
func (that *Tracker) MarkUnread(peerID int64) {
	if peerID == that.localUserID {
		return
	}

	that.setUnread(peerID, true)
}

func (that *Tracker) ClearUnread(peerID int64) {
	that.setUnread(peerID, false)
}

// Clear drops every peer; used when the connection is torn down.
func (that *Tracker) Clear() {
	that.ReplaceAll(nil)
}

func (that *Tracker) Peers() []entity.Peer {
	that.mu.RLock()
	defer that.mu.RUnlock()

	peers := make([]entity.Peer, len(that.peers))
	copy(peers, that.peers)

	return peers
}

func (that *Tracker) Count() int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.peers)
}

func (that *Tracker) UnreadCount() int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	count := 0
	for _, peer := range that.peers {
		if peer.HasUnreadMessages {
			count++
		}
	}

	return count
}

func (that *Tracker) Subscribe() (<-chan []entity.Peer, func()) {
	return that.state.Subscribe()
}

func (that *Tracker) setUnread(peerID int64, unread bool) {
	that.mu.Lock()
	i := that.indexOf(peerID)
	if i < 0 || that.peers[i].HasUnreadMessages == unread {
		that.mu.Unlock()
		return
	}
	that.peers[i].HasUnreadMessages = unread
	that.mu.Unlock()

	that.publish()
}

// indexOf assumes the caller holds the lock.
func (that *Tracker) indexOf(peerID int64) int {
	for i, peer := range that.peers {
		if peer.ID == peerID {
			return i
		}
	}

	return -1
}

func (that *Tracker) publish() {
	that.state.Set(that.Peers())
}
