package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/JoeShih716/virtual-audience/internal/core/domain"
	"github.com/JoeShih716/virtual-audience/internal/core/ports"
)

// ErrDropped 訊息未送出 (佇列已滿或伺服器已關閉)
var ErrDropped = errors.New("notify: message dropped")

// Broadcaster 廣播給所有 Overlay 連線 (由 pkg/wss.Server 實作)
type Broadcaster interface {
	Broadcast(msg []byte) bool
}

// OverlaySink 把事件以 JSON 廣播給瀏覽器 Overlay
type OverlaySink struct {
	server Broadcaster
}

var _ ports.EventSink = (*OverlaySink)(nil)

// NewOverlaySink 建立 Overlay 輸出端
func NewOverlaySink(server Broadcaster) *OverlaySink {
	return &OverlaySink{server: server}
}

// Publish 序列化後廣播
func (s *OverlaySink) Publish(_ context.Context, env domain.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", env.Type, err)
	}
	if !s.server.Broadcast(data) {
		return fmt.Errorf("broadcast %s: %w", env.Type, ErrDropped)
	}
	return nil
}
