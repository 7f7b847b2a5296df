package hub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teslashibe/go-chdk/internal/log"
)

type written struct {
	wsType int
	data   []byte
}

// fakeConn blocks reads until closed and records writes.
type fakeConn struct {
	writes chan written
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{writes: make(chan written, 32), closed: make(chan struct{})}
}

func (f *fakeConn) SetReadLimit(int64) {}
func (f *fakeConn) SetReadDeadline(time.Time) error        { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error       { return nil }
func (f *fakeConn) SetPongHandler(func(string) error) {}
func (f *fakeConn) Close() error                           { f.once.Do(func() { close(f.closed) }); return nil }
func (f *fakeConn) ReadMessage() (int, []byte, error) {
	<-f.closed
	return 0, nil, errors.New("closed")
}

func (f *fakeConn) WriteMessage(t int, data []byte) error {
	select {
	case <-f.closed:
		return errors.New("closed")
	default:
	}
	f.writes <- written{wsType: t, data: append([]byte(nil), data...)}
	return nil
}

func (f *fakeConn) next(t *testing.T) written {
	t.Helper()
	select {
	case w := <-f.writes:
		return w
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for write")
		return written{}
	}
}

func startHub(t *testing.T, opts ...Option) (*Hub, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h := New("test", append([]Option{WithLogger(log.Discard())}, opts...)...)
	go h.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-h.Done()
	})
	return h, cancel
}

func connect(t *testing.T, h *Hub) *fakeConn {
	t.Helper()
	conn := newFakeConn()
	c := NewClient(h, conn)
	require.NotNil(t, c)
	go c.Run()
	require.Eventually(t, func() bool { return h.ClientCount() > 0 }, time.Second, 5*time.Millisecond)
	return conn
}

func TestHub_BroadcastTypes(t *testing.T) {
	h, _ := startHub(t)
	conn := connect(t, h)

	h.BroadcastBinary([]byte{0xff, 0xd8})
	w := conn.next(t)
	assert.Equal(t, websocket.BinaryMessage, w.wsType)
	assert.Equal(t, []byte{0xff, 0xd8}, w.data)

	require.NoError(t, h.BroadcastJSON(map[string]int{"iteration": 3}))
	w = conn.next(t)
	assert.Equal(t, websocket.TextMessage, w.wsType)
	assert.JSONEq(t, `{"iteration":3}`, string(w.data))
}

func TestHub_ReplaysLastMessage(t *testing.T) {
	h, _ := startHub(t, WithReplay())

	h.BroadcastBinary([]byte("frame-1"))
	h.BroadcastBinary([]byte("frame-2"))

	// Let the hub drain the queue before anyone connects.
	time.Sleep(20 * time.Millisecond)

	conn := connect(t, h)
	w := conn.next(t)
	assert.Equal(t, "frame-2", string(w.data))
}

func TestHub_Disconnect(t *testing.T) {
	h, _ := startHub(t)
	conn := connect(t, h)
	assert.Equal(t, 1, h.ClientCount())

	conn.Close()
	assert.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHub_StopClosesClients(t *testing.T) {
	h, cancel := startHub(t)
	conn := connect(t, h)
	assert.True(t, h.IsRunning())

	cancel()
	<-h.Done()

	assert.False(t, h.IsRunning())
	assert.Equal(t, 0, h.ClientCount())

	w := conn.next(t)
	assert.Equal(t, websocket.CloseMessage, w.wsType)

	// Late registrations and broadcasts must not block.
	assert.Nil(t, NewClient(h, newFakeConn()))
	h.BroadcastBinary([]byte("late"))
}
