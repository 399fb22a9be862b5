// Package auth abstracts the externally-owned auth state this client only
// reads: the bearer token the login flow produced. The accessor is injected
// so nothing here depends on a real storage backend.
package auth

import "sync"

type TokenAccessor interface {
	Get() string
	Set(token string)
	Clear()
}

// MemoryTokenStore keeps the token in process memory.
type MemoryTokenStore struct {
	mu    sync.RWMutex
	token string
}

func NewMemoryTokenStore(token string) *MemoryTokenStore {
	return &MemoryTokenStore{token: token}
}

func (that *MemoryTokenStore) Get() string {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return that.token
}

func (that *MemoryTokenStore) Set(token string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.token = token
}

func (that *MemoryTokenStore) Clear() {
	that.Set("")
}
