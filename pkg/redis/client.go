package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound 鍵不存在
var ErrNotFound = errors.New("redis: key not found")

// Config 定義 Redis 連線配置
type Config struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`         // Redis 伺服器地址 (e.g., "localhost:6379")
	Password string `yaml:"password" env:"REDIS_PASSWORD"` // Redis 密碼 (若無則留空)
	DB       int    `yaml:"db" env:"REDIS_DB"`             // 使用的資料庫編號
}

// Client 封裝 redis.Client 以提供更簡易的介面
type Client struct {
	rdb *redis.Client
}

// NewClient 建立並回傳一個新的 Redis 客戶端實例
//
// 參數:
//
//	ctx: context.Context - 連線測試使用的上下文
//	cfg: Config - Redis 連線配置資訊
//
// 回傳值:
//
//	*Client: 封裝後的 Redis 客戶端實例
//	error: 若連線失敗則回傳錯誤
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close 關閉 Redis 連線
func (c *Client) Close() error {
	return c.rdb.Close()
}

// SetStruct 將結構體序列化為 JSON 並儲存到 Redis
//
// 參數:
//
//	ctx: context.Context - 上下文
//	key: string - Redis 鍵
//	value: any - 要儲存的結構體 (必須能被 json.Marshal)
//	expiration: ...time.Duration - (選填) 過期時間，若不填則預設為 0 (不過期)
func (c *Client) SetStruct(ctx context.Context, key string, value any, expiration ...time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	var exp time.Duration
	if len(expiration) > 0 {
		exp = expiration[0]
	}

	return c.rdb.Set(ctx, key, data, exp).Err()
}

// GetStruct 從 Redis 讀取 JSON 並反序列化為結構體；鍵不存在時回傳 ErrNotFound
//
// 參數:
//
//	ctx: context.Context - 上下文
//	key: string - Redis 鍵
//	dest: any - 目標結構體的指標 (必須能被 json.Unmarshal)
func (c *Client) GetStruct(ctx context.Context, key string, dest any) error {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	} else if err != nil {
		return err
	}

	if err := json.Unmarshal(val, dest); err != nil {
		return fmt.Errorf("failed to unmarshal value: %w", err)
	}
	return nil
}

// AcquireLock 嘗試獲取分散式鎖 (使用 SETNX)。
// 同一個頻道只允許一個模擬程序發佈事件。
//
// 參數:
//
//	ctx: context.Context - 上下文
//	key: string - 鎖的鍵名
//	value: string - 鎖的持有者標識 (用於釋放與續約時驗證)
//	expiration: time.Duration - 鎖的自動過期時間
//
// 回傳值:
//
//	bool: 是否成功獲取鎖
//	error: Redis 系統錯誤
func (c *Client) AcquireLock(ctx context.Context, key, value string, expiration time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, key, value, expiration).Result()
}

// 只有持有者才能續約或釋放
const (
	extendScript = `
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("pexpire", KEYS[1], ARGV[2])
		else
			return 0
		end
	`
	releaseScript = `
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`
)

// ExtendLock 續約分散式鎖
//
// 回傳值:
//
//	bool: 是否仍持有鎖 (false 代表鎖已過期或被他人取得)
//	error: Redis 系統錯誤
func (c *Client) ExtendLock(ctx context.Context, key, value string, expiration time.Duration) (bool, error) {
	n, err := c.rdb.Eval(ctx, extendScript, []string{key}, value, expiration.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ReleaseLock 釋放分散式鎖
// 只有當鎖的值與傳入的 value 相符時才會刪除，確保不會釋放別人的鎖。
func (c *Client) ReleaseLock(ctx context.Context, key, value string) error {
	return c.rdb.Eval(ctx, releaseScript, []string{key}, value).Err()
}
