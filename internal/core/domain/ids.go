package domain

import (
	"log/slog"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

var (
	eventNodeOnce sync.Once
	eventNode     *snowflake.Node
)

// NewEventID 產生經濟事件 ID。
// 使用 Snowflake 以保證 append-only 歷史紀錄依時間排序；節點建立失敗時退回 KSUID。
func NewEventID() string {
	eventNodeOnce.Do(func() {
		node, err := snowflake.NewNode(1)
		if err != nil {
			slog.Error("Failed to init snowflake node", "error", err)
			return
		}
		eventNode = node
	})
	if eventNode == nil {
		return ksuid.New().String()
	}
	return eventNode.Generate().String()
}

// NewMessageID 產生聊天訊息 ID (KSUID，可依時間排序)
func NewMessageID() string {
	return ksuid.New().String()
}
