// Package task 提供可取消的延遲任務抽象。
//
// 所有排程器 (生命週期、經濟事件、按讚、投票、Raid) 都是「自我重新排程的延遲回呼鏈」，
// 它們透過 Group 持有尚未觸發的 Handle，並在 Stop 或內容移除時批次取消。
package task

import (
	"sync"
	"time"
)

// Handle 已排程任務的取消把手
type Handle interface {
	// Stop 取消任務；若任務已觸發或已取消則回傳 false
	Stop() bool
}

// Scheduler 延遲任務排程器
type Scheduler interface {
	// Now 排程器目前時間 (Manual 為虛擬時間)
	Now() time.Time

	// AfterFunc 在 d 之後執行 fn
	AfterFunc(d time.Duration, fn func()) Handle
}

// Real 以 time.AfterFunc 實作的排程器。
// 所有回呼經由同一把鎖序列化執行，使整個引擎行為等同單執行緒的協作式排程。
type Real struct {
	mu sync.Mutex
}

var _ Scheduler = (*Real)(nil)

// NewReal 建立真實時間排程器
func NewReal() *Real {
	return &Real{}
}

func (r *Real) Now() time.Time {
	return time.Now()
}

func (r *Real) AfterFunc(d time.Duration, fn func()) Handle {
	if d < 0 {
		d = 0
	}
	return time.AfterFunc(d, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		fn()
	})
}
