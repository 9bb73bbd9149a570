package wss

import "time"

// Config WebSocket 伺服器設定
type Config struct {
	AllowedOrigins  []string      // 允許的 Origin；含 "*" 代表全部允許
	ReadBufferSize  int           // 讀取緩衝區大小
	WriteBufferSize int           // 寫入緩衝區大小
	WriteWait       time.Duration // 單次寫入逾時
	PongWait        time.Duration // 等待 Pong 的時間
	PingPeriod      time.Duration // Ping 間隔，未設定時為 PongWait 的 90%
	MaxMessageSize  int64         // 單則訊息上限
	SendBuffer      int           // 每個連線的待送訊息佇列長度
}
