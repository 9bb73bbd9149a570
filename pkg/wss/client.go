package wss

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// 送出失敗的原因
var (
	ErrConnectionClosed = errors.New("wss: connection closed")
	ErrSendBufferFull   = errors.New("wss: send buffer full")
)

// Client 對業務層公開的連線介面
//
//go:generate mockgen -destination=../../test/mocks/wss/mock_client.go -package=mock_wss github.com/JoeShih716/virtual-audience/pkg/wss Client
type Client interface {
	// ID 連線唯一識別碼
	ID() string
	// SendMessage 非阻塞送出文字訊息
	SendMessage(msg string) error
	// SetTag 在連線上附加資料
	SetTag(key string, value any)
	// GetTag 讀取連線上的附加資料
	GetTag(key string) (any, bool)
	// Kick 送出原因後關閉連線
	Kick(reason string) error
	// Close 關閉連線
	Close()
}

// Subscriber 連線事件的處理者
type Subscriber interface {
	OnConnect(conn Client)
	OnDisconnect(conn Client)
	OnMessage(conn Client, msg []byte)
}

// connection 單一 WebSocket 連線
type connection struct {
	id     string
	hub    *hub
	conn   *websocket.Conn
	send   chan []byte
	remote string
	logger *slog.Logger

	tags sync.Map

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
}

var _ Client = (*connection)(nil)

func newConnection(h *hub, conn *websocket.Conn, r *http.Request, buffer int, logger *slog.Logger) *connection {
	if buffer <= 0 {
		buffer = 256
	}
	id := uuid.NewString()
	return &connection{
		id:     id,
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, buffer),
		remote: r.RemoteAddr,
		logger: logger.With("conn_id", id, "remote", r.RemoteAddr),
	}
}

func (c *connection) ID() string {
	return c.id
}

func (c *connection) SendMessage(msg string) error {
	return c.enqueue([]byte(msg))
}

func (c *connection) enqueue(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnectionClosed
	}
	select {
	case c.send <- msg:
		return nil
	default:
		c.logger.Warn("send buffer full, dropping message")
		return ErrSendBufferFull
	}
}

func (c *connection) SetTag(key string, value any) {
	c.tags.Store(key, value)
}

func (c *connection) GetTag(key string) (any, bool) {
	return c.tags.Load(key)
}

func (c *connection) Kick(reason string) error {
	deadline := time.Now().Add(time.Second)
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	err := c.conn.WriteControl(websocket.CloseMessage, msg, deadline)
	c.Close()
	return err
}

func (c *connection) Close() {
	c.closeOnce.Do(func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
	})
}

// shutdown 由 hub 呼叫，關閉待送佇列讓 writePump 結束
func (c *connection) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// readPump 讀取客戶端訊息並交給 Subscriber；連線結束時註銷
func (c *connection) readPump(cfg *Config) {
	defer func() {
		c.Close()
		_ = c.conn.Close()
	}()

	if cfg.MaxMessageSize > 0 {
		c.conn.SetReadLimit(cfg.MaxMessageSize)
	}
	if cfg.PongWait > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
		c.conn.SetPongHandler(func(string) error {
			return c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
		})
	}

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("unexpected close", "error", err)
			}
			return
		}
		c.hub.dispatch(c, msg)
	}
}

// writePump 將佇列中的訊息寫出，並定期送出 Ping
func (c *connection) writePump(cfg *Config) {
	period := cfg.PingPeriod
	if period <= 0 {
		period = 54 * time.Second
	}
	ticker := time.NewTicker(period)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.setWriteDeadline(cfg)
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logger.Debug("write failed", "error", err)
				return
			}
		case <-ticker.C:
			c.setWriteDeadline(cfg)
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *connection) setWriteDeadline(cfg *Config) {
	if cfg.WriteWait > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
	}
}
