package control

import (
	"context"
	"log/slog"
	"time"

	"github.com/JoeShih716/virtual-audience/pkg/redis"
)

// PubSub 指令頻道需要的 Redis 操作 (由 pkg/redis.Client 實作)
type PubSub interface {
	Publish(ctx context.Context, channel string, message any) error
	Subscribe(ctx context.Context, channel string, handler redis.MessageHandler) error
}

// RedisListener 從 Redis 頻道接收控制指令，結果發佈到回覆頻道
type RedisListener struct {
	handler *Handler
	client  PubSub
	replies string
	timeout time.Duration
	logger  *slog.Logger
}

// NewRedisListener 建立 Redis 指令監聽器
//
// 參數:
//
//	handler: *Handler - 指令處理器
//	client: PubSub - Redis 客戶端
//	replies: string - 回覆頻道 (空字串代表不回覆)
//	logger: *slog.Logger - 日誌
func NewRedisListener(handler *Handler, client PubSub, replies string, logger *slog.Logger) *RedisListener {
	return &RedisListener{
		handler: handler,
		client:  client,
		replies: replies,
		timeout: 2 * time.Second,
		logger:  logger.With("component", "control_redis"),
	}
}

// Listen 訂閱指令頻道，ctx 結束時停止
func (l *RedisListener) Listen(ctx context.Context, channel string) error {
	if err := l.client.Subscribe(ctx, channel, l.onMessage); err != nil {
		return err
	}
	l.logger.Info("Listening for commands", "channel", channel)
	return nil
}

func (l *RedisListener) onMessage(payload string) {
	resp := l.handler.Handle([]byte(payload))
	if l.replies == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()
	if err := l.client.Publish(ctx, l.replies, resp); err != nil {
		l.logger.Warn("Failed to publish reply", "action", resp.Action, "error", err)
	}
}
