package redis

import (
	"context"
	"encoding/json"
	"fmt"
)

// MessageHandler 定義訂閱訊息的處理函式類型
//
// 參數:
//
//	payload: string - 接收到的訊息內容
type MessageHandler func(payload string)

// Publish 發送訊息到指定頻道。非 string / []byte 的內容會先序列化為 JSON。
//
// 參數:
//
//	ctx: context.Context - 上下文
//	channel: string - 目標頻道名稱
//	message: any - 要發送的訊息內容
//
// 回傳值:
//
//	error: 若發送失敗則回傳錯誤
func (c *Client) Publish(ctx context.Context, channel string, message any) error {
	switch message.(type) {
	case string, []byte:
	default:
		data, err := json.Marshal(message)
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}
		message = data
	}
	return c.rdb.Publish(ctx, channel, message).Err()
}

// Subscribe 訂閱指定頻道並處理接收到的訊息
// 此方法會啟動一個背景 goroutine 來處理接收到的訊息，ctx 結束時停止訂閱。
//
// 參數:
//
//	ctx: context.Context - 上下文
//	channel: string - 要訂閱的頻道名稱
//	handler: MessageHandler - 訊息處理函式
//
// 回傳值:
//
//	error: 若訂閱失敗則回傳錯誤
func (c *Client) Subscribe(ctx context.Context, channel string, handler MessageHandler) error {
	pubsub := c.rdb.Subscribe(ctx, channel)

	// Receive 會等待直到接收到訂閱確認訊息或發生錯誤
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				handler(msg.Payload)
			}
		}
	}()

	return nil
}
