package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/JoeShih716/virtual-audience/internal/core/domain"
	"github.com/JoeShih716/virtual-audience/internal/core/ports"
)

// RedisPublisher RedisSink 需要的 Redis 操作 (由 pkg/redis.Client 實作)
type RedisPublisher interface {
	Publish(ctx context.Context, channel string, message any) error
	SetStruct(ctx context.Context, key string, value any, expiration ...time.Duration) error
}

// RedisConfig Redis 輸出設定
type RedisConfig struct {
	Channel  string        `yaml:"channel" env:"SIM_CHANNEL"` // 直播頻道名稱
	StatsTTL time.Duration `yaml:"stats_ttl"`
}

// EventsChannel Pub/Sub 事件頻道
func (c RedisConfig) EventsChannel() string {
	return fmt.Sprintf("audience:%s:events", c.Channel)
}

// CommandsChannel 外部控制指令頻道
func (c RedisConfig) CommandsChannel() string {
	return fmt.Sprintf("audience:%s:commands", c.Channel)
}

// RepliesChannel 控制指令的回覆頻道
func (c RedisConfig) RepliesChannel() string {
	return fmt.Sprintf("audience:%s:replies", c.Channel)
}

// ViewersKey 最新觀眾數快照的鍵
func (c RedisConfig) ViewersKey() string {
	return fmt.Sprintf("audience:%s:viewers", c.Channel)
}

// LockKey 單一頻道的模擬程序鎖
func (c RedisConfig) LockKey() string {
	return fmt.Sprintf("audience:%s:lock", c.Channel)
}

// RedisSink 把事件以 JSON 發佈到 Redis 頻道，並保留帶 TTL 的觀眾數快照
type RedisSink struct {
	cfg    RedisConfig
	client RedisPublisher
}

var _ ports.EventSink = (*RedisSink)(nil)

// NewRedisSink 建立 Redis 輸出端
func NewRedisSink(cfg RedisConfig, client RedisPublisher) *RedisSink {
	return &RedisSink{cfg: cfg, client: client}
}

// Publish 發佈事件；觀眾數事件另外寫入快照鍵
func (s *RedisSink) Publish(ctx context.Context, env domain.Envelope) error {
	if err := s.client.Publish(ctx, s.cfg.EventsChannel(), env); err != nil {
		return fmt.Errorf("publish %s: %w", env.Type, err)
	}
	if env.Type == domain.EventViewerCount {
		if err := s.client.SetStruct(ctx, s.cfg.ViewersKey(), env.Payload, s.cfg.StatsTTL); err != nil {
			return fmt.Errorf("store viewer snapshot: %w", err)
		}
	}
	return nil
}
