// Package notify 提供 ports.EventSink 的各種實作：日誌、Redis Pub/Sub、WebSocket Overlay 與扇出。
package notify

import (
	"context"
	"log/slog"

	"github.com/JoeShih716/virtual-audience/internal/core/domain"
	"github.com/JoeShih716/virtual-audience/internal/core/ports"
)

// LogSink 把事件寫進日誌，沒有任何外部依賴時使用
type LogSink struct {
	logger *slog.Logger
	level  slog.Level
}

var _ ports.EventSink = (*LogSink)(nil)

// NewLogSink 建立日誌輸出端
func NewLogSink(logger *slog.Logger, level slog.Level) *LogSink {
	return &LogSink{logger: logger.With("component", "log_sink"), level: level}
}

// Publish 記錄事件類型與 ID
func (s *LogSink) Publish(ctx context.Context, env domain.Envelope) error {
	s.logger.Log(ctx, s.level, "Engagement event", "type", env.Type, "id", env.ID, "at", env.At)
	return nil
}
