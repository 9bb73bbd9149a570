package ports

import (
	"context"

	"github.com/JoeShih716/virtual-audience/internal/core/domain"
)

// EventSink 定義事件輸出端 (通知層、Overlay、AI 產生層)。
// 核心不知道事件如何呈現，只負責把封包交出去。
//
//go:generate mockgen -destination=../../../test/mocks/core/ports/mock_event_sink.go -package=mock_ports github.com/JoeShih716/virtual-audience/internal/core/ports EventSink
type EventSink interface {
	// Publish 送出事件封包
	//
	// 參數:
	//
	//	ctx: context.Context - 上下文
	//	env: domain.Envelope - 事件封包
	//
	// 回傳值:
	//
	//	error: 若送出失敗則回傳錯誤 (模擬器只記錄，不中斷)
	Publish(ctx context.Context, env domain.Envelope) error
}
