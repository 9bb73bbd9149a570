package control

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/JoeShih716/virtual-audience/pkg/wss"
)

// WebsocketHandler 實作 wss.Subscriber 介面，把 WebSocket 訊息當作控制指令處理
type WebsocketHandler struct {
	handler  *Handler
	sessions *Sessions
	logger   *slog.Logger
}

var _ wss.Subscriber = (*WebsocketHandler)(nil)

// NewWebsocketHandler 建立 WebSocket 事件處理器
func NewWebsocketHandler(handler *Handler, logger *slog.Logger) *WebsocketHandler {
	return &WebsocketHandler{
		handler:  handler,
		sessions: NewSessions(),
		logger:   logger.With("component", "control_ws"),
	}
}

// OnConnect 新連線建立時先送出一份狀態快照
func (h *WebsocketHandler) OnConnect(conn wss.Client) {
	sess := NewSession(conn, time.Now())
	h.sessions.Add(sess)
	h.logger.Info("Control client connected", "id", conn.ID(), "online", h.sessions.Count())

	h.send(sess, Response{Action: ActionSnapshot, Data: h.handler.sim.Snapshot()})
}

// OnDisconnect 連線斷開
func (h *WebsocketHandler) OnDisconnect(conn wss.Client) {
	sess, ok := h.sessions.Remove(conn.ID())
	if !ok {
		return
	}
	h.logger.Info("Control client disconnected",
		"id", conn.ID(),
		"online", h.sessions.Count(),
		"commands", sess.Commands(),
		"connected_for", time.Since(sess.ConnectedAt).Round(time.Second),
	)
}

// OnMessage 執行指令並回覆結果
func (h *WebsocketHandler) OnMessage(conn wss.Client, msg []byte) {
	sess, ok := h.sessions.Get(conn.ID())
	if !ok {
		// OnConnect 之前的訊息
		sess = NewSession(conn, time.Now())
		h.sessions.Add(sess)
	}
	sess.commands.Add(1)
	h.send(sess, h.handler.Handle(msg))
}

// Online 目前連線數
func (h *WebsocketHandler) Online() int {
	return h.sessions.Count()
}

// Sessions 連線管理器
func (h *WebsocketHandler) Sessions() *Sessions {
	return h.sessions
}

func (h *WebsocketHandler) send(sess *Session, resp Response) {
	bytes, err := json.Marshal(resp)
	if err != nil {
		h.logger.Error("Failed to marshal response", "action", resp.Action, "error", err)
		return
	}
	if err := sess.Send(string(bytes)); err != nil {
		h.logger.Warn("Failed to send response", "id", sess.ID, "error", err)
	}
}
