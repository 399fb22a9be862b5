// Package observer provides the replay-latest primitive the public state
// views are published through: a subscriber always receives the current
// value first, then every replacement, with intermediate values conflated
// when it lags.
package observer

import "sync"

type State[T any] struct {
	mu     sync.Mutex
	value  T
	subs   map[int]chan T
	nextID int
}

func NewState[T any](initial T) *State[T] {
	return &State[T]{
		value: initial,
		subs:  make(map[int]chan T),
	}
}

func (that *State[T]) Get() T {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.value
}

// Set replaces the current value and notifies every subscriber.
func (that *State[T]) Set(value T) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.value = value
	for _, ch := range that.subs {
		offer(ch, value)
	}
}

// Subscribe returns a channel primed with the current value and a cancel
// function the consumer must call when done.
func (that *State[T]) Subscribe() (<-chan T, func()) {
	that.mu.Lock()
	defer that.mu.Unlock()

	id := that.nextID
	that.nextID++

	ch := make(chan T, 1)
	ch <- that.value
	that.subs[id] = ch

	cancel := func() {
		that.mu.Lock()
		defer that.mu.Unlock()
		delete(that.subs, id)
	}

	return ch, cancel
}

// offer replaces a pending value instead of blocking on a slow consumer.
func offer[T any](ch chan T, value T) {
	for {
		select {
		case ch <- value:
			return
		default:
		}

		select {
		case <-ch:
		default:
		}
	}
}
