package wss

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSubscriber struct {
	mu       sync.Mutex
	connects int
	messages []string
}

func (r *recordingSubscriber) OnConnect(conn Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connects++
	conn.SetTag("role", "overlay")
}

func (r *recordingSubscriber) OnDisconnect(Client) {}

func (r *recordingSubscriber) OnMessage(conn Client, msg []byte) {
	r.mu.Lock()
	r.messages = append(r.messages, string(msg))
	r.mu.Unlock()
	_ = conn.SendMessage("echo:" + string(msg))
}

func (r *recordingSubscriber) connectCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connects
}

func TestServer_BroadcastAndEcho(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := NewServer(ctx, &Config{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		WriteWait:       time.Second,
		PongWait:        10 * time.Second,
		MaxMessageSize:  4096,
	}, slog.Default())
	sub := &recordingSubscriber{}
	srv.Register(sub)

	ts := httptest.NewServer(srv)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return srv.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, sub.connectCount())

	require.True(t, srv.Broadcast([]byte(`{"type":"cheer"}`)))
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"cheer"}`, string(msg))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ping")))
	_, msg, err = conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "echo:ping", string(msg))
}

func TestServer_RejectsForeignOrigin(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := NewServer(ctx, &Config{AllowedOrigins: []string{"https://overlay.example"}}, slog.Default())
	ts := httptest.NewServer(srv)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	header := map[string][]string{"Origin": {"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	if resp != nil {
		assert.Equal(t, 403, resp.StatusCode)
	}
	assert.Zero(t, srv.ClientCount())
}
