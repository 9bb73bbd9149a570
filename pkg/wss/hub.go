package wss

import (
	"context"
	"log/slog"
	"sync"
)

// hub 管理所有連線：註冊、註銷與廣播都在 run 迴圈中序列化處理
type hub struct {
	ctx    context.Context
	logger *slog.Logger

	clients    map[*connection]struct{}
	register   chan *connection
	unregister chan *connection
	broadcast  chan []byte

	mu          sync.RWMutex
	subscribers []Subscriber
	count       int
}

func newHub(ctx context.Context, logger *slog.Logger) *hub {
	return &hub{
		ctx:        ctx,
		logger:     logger,
		clients:    make(map[*connection]struct{}),
		register:   make(chan *connection),
		unregister: make(chan *connection),
		broadcast:  make(chan []byte, 256),
	}
}

func (h *hub) registerSubscriber(s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers = append(h.subscribers, s)
}

func (h *hub) snapshotSubscribers() []Subscriber {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Subscriber, len(h.subscribers))
	copy(out, h.subscribers)
	return out
}

func (h *hub) dispatch(c *connection, msg []byte) {
	for _, s := range h.snapshotSubscribers() {
		s.OnMessage(c, msg)
	}
}

func (h *hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

func (h *hub) run() {
	for {
		select {
		case <-h.ctx.Done():
			for c := range h.clients {
				c.shutdown()
				delete(h.clients, c)
			}
			h.logger.Info("hub stopped")
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.setCount(len(h.clients))
			for _, s := range h.snapshotSubscribers() {
				s.OnConnect(c)
			}

		case c := <-h.unregister:
			if _, ok := h.clients[c]; !ok {
				continue
			}
			delete(h.clients, c)
			c.shutdown()
			h.setCount(len(h.clients))
			for _, s := range h.snapshotSubscribers() {
				s.OnDisconnect(c)
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				_ = c.enqueue(msg)
			}
		}
	}
}

func (h *hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
}
