package player

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingConn struct {
	mu       sync.Mutex
	messages [][]byte
	types    []int
	err      error
	closed   int
}

func (c *recordingConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.types = append(c.types, messageType)
	c.messages = append(c.messages, data)
	return nil
}

func (c *recordingConn) ReadMessage() (int, []byte, error) { return 0, nil, errors.New("closed") }

func (c *recordingConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

func (c *recordingConn) count() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages), c.closed
}

func TestPlayer_Send(t *testing.T) {
	conn := &recordingConn{}
	p := NewPlayer("p1", "g1", conn)

	require.NoError(t, p.Send(map[string]string{"type": "update"}))

	require.Len(t, conn.messages, 1)
	assert.Equal(t, websocket.TextMessage, conn.types[0])
	assert.JSONEq(t, `{"type":"update"}`, string(conn.messages[0]))
}

func TestPlayer_SendErrors(t *testing.T) {
	conn := &recordingConn{err: errors.New("broken pipe")}
	p := NewPlayer("p1", "g1", conn)

	assert.Error(t, p.Send(map[string]string{"type": "update"}))
	assert.Error(t, p.Send(func() {}))
}

func TestPlayer_ConcurrentSends(t *testing.T) {
	conn := &recordingConn{}
	p := NewPlayer("p1", "g1", conn)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.SendRaw([]byte(`{}`))
		}()
	}
	wg.Wait()
	assert.Len(t, conn.messages, 20)
}

type deadlineConn struct {
	recordingConn
	deadline time.Time
}

func (c *deadlineConn) SetWriteDeadline(t time.Time) error {
	c.deadline = t
	return nil
}

func TestPlayer_SetsWriteDeadline(t *testing.T) {
	conn := &deadlineConn{}
	p := NewPlayer("p1", "g1", conn)

	require.NoError(t, p.SendRaw([]byte(`{}`)))
	assert.WithinDuration(t, time.Now().Add(writeWait), conn.deadline, time.Second)
}

func TestPlayer_EnqueueIsBounded(t *testing.T) {
	p := NewPlayer("p1", "g1", &recordingConn{})

	// Given: no pump is draining the queue
	for range SendBufferSize {
		require.True(t, p.Enqueue([]byte(`{}`)))
	}

	// Then: the next message is refused instead of blocking
	assert.False(t, p.Enqueue([]byte(`{}`)))
}

func TestPlayer_WritePump(t *testing.T) {
	conn := &recordingConn{}
	p := NewPlayer("p1", "g1", conn)
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.WritePump()
	}()

	require.True(t, p.Enqueue([]byte(`{"n":1}`)))
	require.True(t, p.Enqueue([]byte(`{"n":2}`)))
	assert.Eventually(t, func() bool {
		n, _ := conn.count()
		return n == 2
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	<-done

	_, closed := conn.count()
	assert.Equal(t, 1, closed)
	assert.False(t, p.Enqueue([]byte(`{}`)))
}

func TestPlayer_WritePumpClosesOnError(t *testing.T) {
	conn := &recordingConn{err: errors.New("broken pipe")}
	p := NewPlayer("p1", "g1", conn)
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.WritePump()
	}()

	require.True(t, p.Enqueue([]byte(`{}`)))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("WritePump did not stop after a failed write")
	}
	_, closed := conn.count()
	assert.Equal(t, 1, closed)
}
