package ports

import "github.com/JoeShih716/virtual-audience/internal/core/domain"

// MessageSink 接收核心產生的聊天訊息 (例如 Raid 訊息)
//
//go:generate mockgen -destination=../../../test/mocks/core/ports/mock_message_sink.go -package=mock_ports github.com/JoeShih716/virtual-audience/internal/core/ports MessageSink
type MessageSink interface {
	// PostSynthetic 新增一則虛擬觀眾訊息
	PostSynthetic(msg domain.ChatMessage)
}
