package inbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farm-alert-service/internal/logging"
	"farm-alert-service/internal/models"
)

type fakeConn struct {
	mu       sync.Mutex
	messages [][]byte
	failWith error
	closed   bool
	deadline time.Time
	// stall, when set, blocks every write until it is closed.
	stall chan struct{}
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	if c.stall != nil {
		<-c.stall
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWith != nil {
		return c.failWith
	}
	c.messages = append(c.messages, data)
	return nil
}

func (c *fakeConn) SetWriteDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deadline = t
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) sent() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.messages...)
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) writeDeadline() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deadline
}

// within fails the test if fn does not return before d.
func within(t *testing.T, d time.Duration, what string, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatalf("%s still blocked after %s", what, d)
	}
}

func TestHub_LimitsConnectionsPerFarmer(t *testing.T) {
	hub := NewHub(logging.NewNop())
	for i := 0; i < MaxConnectionsPerFarmer; i++ {
		require.NoError(t, hub.Add(7, &fakeConn{}))
	}
	err := hub.Add(7, &fakeConn{})
	assert.True(t, errors.Is(err, ErrTooManyConnections))
	assert.Equal(t, MaxConnectionsPerFarmer, hub.Count(7))

	require.NoError(t, hub.Add(8, &fakeConn{}))
}

func TestHub_BroadcastDropsBrokenConnections(t *testing.T) {
	hub := NewHub(logging.NewNop())
	good := &fakeConn{}
	broken := &fakeConn{failWith: errors.New("broken pipe")}
	other := &fakeConn{}
	require.NoError(t, hub.Add(7, good))
	require.NoError(t, hub.Add(7, broken))
	require.NoError(t, hub.Add(8, other))

	hub.Broadcast(7, []byte(`{"type":"notification"}`))

	require.Eventually(t, func() bool { return len(good.sent()) == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, broken.isClosed, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return hub.Count(7) == 1 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, other.sent())
	assert.False(t, good.writeDeadline().IsZero())

	hub.Remove(7, good)
	assert.Zero(t, hub.Count(7))
	require.Eventually(t, good.isClosed, time.Second, 5*time.Millisecond)

	// removing twice is harmless
	hub.Remove(7, good)
}

func TestHub_StalledClientDoesNotBlockOthers(t *testing.T) {
	logger := logging.NewNop()
	hub := NewHub(logger)
	stalled := &fakeConn{stall: make(chan struct{})}
	t.Cleanup(func() { close(stalled.stall) })
	require.NoError(t, hub.Add(1, stalled))
	healthy := &fakeConn{}
	require.NoError(t, hub.Add(2, healthy))

	ib := New(NewMemoryStore(DefaultCapacity), hub, nil, logger)
	ctx := context.Background()

	within(t, time.Second, "pushes for the stalled farmer", func() {
		for i := 0; i < sendBuffer+2; i++ {
			_, err := ib.Push(ctx, models.Notification{FarmerID: 1, Title: "frost"})
			assert.NoError(t, err)
		}
	})
	within(t, time.Second, "broadcast to another farmer", func() {
		hub.Broadcast(2, []byte(`{"type":"notification"}`))
	})
	within(t, time.Second, "adding another farmer's connection", func() {
		assert.NoError(t, hub.Add(3, &fakeConn{}))
	})

	require.Eventually(t, func() bool { return len(healthy.sent()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, hub.Count(1), "the stalled connection is dropped once its buffer fills")

	count, err := ib.UnreadCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, sendBuffer+2, count)
}
