package control

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/JoeShih716/virtual-audience/pkg/wss"
)

// Session 一個已連線的控制端 (主播面板或 Overlay)
type Session struct {
	ID          string
	ConnectedAt time.Time
	conn        wss.Client
	commands    atomic.Int64
}

// NewSession 建立一個新的會話實例
//
// 參數:
//
//	conn: wss.Client - 底層 WebSocket 連線物件
//	now: time.Time - 建立時間
//
// 回傳值:
//
//	*Session: 初始化後的會話物件
func NewSession(conn wss.Client, now time.Time) *Session {
	return &Session{ID: conn.ID(), ConnectedAt: now, conn: conn}
}

// Send 發送訊息給此會話的客戶端
func (s *Session) Send(msg string) error {
	return s.conn.SendMessage(msg)
}

// Commands 此會話已執行的指令數
func (s *Session) Commands() int64 {
	return s.commands.Load()
}

// Sessions 管理所有控制端連線，支援並發讀寫
type Sessions struct {
	sessions sync.Map // map[string]*Session
	count    atomic.Int64
}

// NewSessions 建立 Session 管理器
func NewSessions() *Sessions {
	return &Sessions{}
}

// Add 新增一個 Session
func (m *Sessions) Add(s *Session) {
	if _, loaded := m.sessions.LoadOrStore(s.ID, s); !loaded {
		m.count.Add(1)
	}
}

// Remove 移除一個 Session
func (m *Sessions) Remove(id string) (*Session, bool) {
	val, loaded := m.sessions.LoadAndDelete(id)
	if !loaded {
		return nil, false
	}
	m.count.Add(-1)
	return val.(*Session), true
}

// Get 取得 Session
func (m *Sessions) Get(id string) (*Session, bool) {
	val, ok := m.sessions.Load(id)
	if !ok {
		return nil, false
	}
	return val.(*Session), true
}

// Count 目前連線數
func (m *Sessions) Count() int {
	return int(m.count.Load())
}

// Range 遍歷所有 Session，handler 回傳 false 則停止
func (m *Sessions) Range(handler func(s *Session) bool) {
	m.sessions.Range(func(_, value any) bool {
		return handler(value.(*Session))
	})
}
