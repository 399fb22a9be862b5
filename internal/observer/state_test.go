package observer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()

	select {
	case value := <-ch:
		return value
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for value")
		var zero T
		return zero
	}
}

func TestState_GetSet(t *testing.T) {
	// Given: a state holding its initial value
	state := NewState(10)
	assert.Equal(t, 10, state.Get())

	// When: replacing the value
	state.Set(20)

	// Then: Get returns the replacement
	assert.Equal(t, 20, state.Get())
}

func TestState_Subscribe(t *testing.T) {
	t.Run("Subscriber receives the current value first", func(t *testing.T) {
		// Given: a state with a value already set
		state := NewState("initial")

		// When: subscribing
		ch, cancel := state.Subscribe()
		defer cancel()

		// Then: the current value is delivered before any Set
		assert.Equal(t, "initial", receive(t, ch))
	})

	t.Run("Subscriber receives replacements", func(t *testing.T) {
		// Given: a subscriber that has drained the initial value
		state := NewState("a")
		ch, cancel := state.Subscribe()
		defer cancel()
		receive(t, ch)

		// When: setting a new value
		state.Set("b")

		// Then: the subscriber sees it
		assert.Equal(t, "b", receive(t, ch))
	})

	t.Run("A slow subscriber sees the latest value only", func(t *testing.T) {
		// Given: a subscriber that never drained the channel
		state := NewState(0)
		ch, cancel := state.Subscribe()
		defer cancel()

		// When: several values are set while it lags
		state.Set(1)
		state.Set(2)
		state.Set(3)

		// Then: intermediate values are conflated away
		assert.Equal(t, 3, receive(t, ch))
	})

	t.Run("Cancel stops delivery", func(t *testing.T) {
		// Given: a cancelled subscription
		state := NewState(0)
		ch, cancel := state.Subscribe()
		receive(t, ch)
		cancel()

		// When: a value is set afterwards
		state.Set(99)

		// Then: nothing arrives
		select {
		case value, ok := <-ch:
			if ok {
				t.Fatalf("unexpected value after cancel: %v", value)
			}
		case <-time.After(20 * time.Millisecond):
		}
	})

	t.Run("Independent subscribers each get every replacement", func(t *testing.T) {
		// Given: two subscribers
		state := NewState("x")
		first, cancelFirst := state.Subscribe()
		defer cancelFirst()
		second, cancelSecond := state.Subscribe()
		defer cancelSecond()
		receive(t, first)
		receive(t, second)

		// When: setting a value
		state.Set("y")

		// Then: both see it
		require.Equal(t, "y", receive(t, first))
		require.Equal(t, "y", receive(t, second))
	})
}
