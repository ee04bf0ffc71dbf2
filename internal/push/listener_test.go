package push

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/candelento/balanza/internal/dto"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newPushServer serves /ws; script runs once per connection with the
// 1-based connection number.
func newPushServer(t *testing.T, script func(ctx context.Context, n int32, conn *websocket.Conn)) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	var conns atomic.Int32
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		conn, err := websocket.Accept(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()
		script(c.Request.Context(), conns.Add(1), conn)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func send(ctx context.Context, conn *websocket.Conn, s string) {
	_ = conn.Write(ctx, websocket.MessageText, []byte(s))
}

type collector struct {
	mu   sync.Mutex
	msgs []dto.PushMessage
}

func (c *collector) handle(m dto.PushMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, m)
}

func (c *collector) all() []dto.PushMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]dto.PushMessage(nil), c.msgs...)
}

func TestDeliversAndStopsOnNormalClose(t *testing.T) {
	url := newPushServer(t, func(ctx context.Context, _ int32, conn *websocket.Conn) {
		send(ctx, conn, `{"type":"venta","payload":[{"id":1,"cliente":"Molino"}]}`)
		send(ctx, conn, `not json`)
		_ = conn.Close(websocket.StatusNormalClosure, "bye")
	})
	var got collector

	err := NewListener(url, nil).Run(context.Background(), got.handle)
	require.NoError(t, err)
	msgs := got.all()
	require.Len(t, msgs, 1)
	assert.Equal(t, "venta", msgs[0].Type)
	assert.Equal(t, "Molino", msgs[0].Payload[0].Cliente)
}

func TestDropsWhileBusy(t *testing.T) {
	url := newPushServer(t, func(ctx context.Context, _ int32, conn *websocket.Conn) {
		send(ctx, conn, `{"type":"compra","payload":[]}`)
		_ = conn.Close(websocket.StatusNormalClosure, "")
	})
	var got collector

	require.NoError(t, NewListener(url, func() bool { return true }).Run(context.Background(), got.handle))
	assert.Empty(t, got.all())
}

func TestReconnectsAfterAbnormalClose(t *testing.T) {
	url := newPushServer(t, func(ctx context.Context, n int32, conn *websocket.Conn) {
		if n == 1 {
			_ = conn.Close(websocket.StatusInternalError, "crash")
			return
		}
		send(ctx, conn, `{"type":"compra","payload":[]}`)
		_ = conn.Close(websocket.StatusNormalClosure, "")
	})
	var got collector
	l := NewListener(url, nil)
	l.ReconnectDelay = 10 * time.Millisecond

	require.NoError(t, l.Run(context.Background(), got.handle))
	assert.Len(t, got.all(), 1)
}

func TestStopsOnContextCancel(t *testing.T) {
	url := newPushServer(t, func(ctx context.Context, _ int32, conn *websocket.Conn) {
		_, _, _ = conn.Read(ctx)
	})
	ctx, cancel := context.WithCancel(context.Background())
	l := NewListener(url, nil)

	done := make(chan error, 1)
	go func() { done <- l.Run(ctx, func(dto.PushMessage) {}) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}
}

func TestDialFailureRetriesUntilCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	l := NewListener("ws://127.0.0.1:1/ws", nil)
	l.ReconnectDelay = 10 * time.Millisecond

	err := l.Run(ctx, func(dto.PushMessage) {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
