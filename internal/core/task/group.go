package task

import (
	"sync"
	"time"
)

// ID Group 內的任務編號
type ID uint64

// Group 追蹤一組尚未觸發的任務，支援單筆與批次取消。
// 已取消的任務即使底層 timer 已觸發，也保證不會執行 fn。
type Group struct {
	sched Scheduler

	mu      sync.Mutex
	next    ID
	epoch   uint64
	handles map[ID]Handle
}

// NewGroup 建立任務群組
func NewGroup(s Scheduler) *Group {
	return &Group{
		sched:   s,
		handles: make(map[ID]Handle),
	}
}

// Scheduler 回傳底層排程器
func (g *Group) Scheduler() Scheduler {
	return g.sched
}

// Schedule 在 d 之後執行 fn，回傳可用於 Cancel 的任務編號
func (g *Group) Schedule(d time.Duration, fn func()) ID {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.next++
	id := g.next
	g.handles[id] = g.sched.AfterFunc(d, func() {
		g.mu.Lock()
		_, ok := g.handles[id]
		delete(g.handles, id)
		g.mu.Unlock()

		if ok {
			fn()
		}
	})
	return id
}

// Every 建立自我重新排程的任務鏈：每次觸發後以 next() 取得新的延遲再排下一輪。
// 延遲每輪重新抽樣，多條鏈之間不會同步成固定節奏。
// CancelAll 之後，正在執行中的那一輪也不會再排下一輪。
func (g *Group) Every(next func() time.Duration, fn func()) {
	g.mu.Lock()
	epoch := g.epoch
	g.mu.Unlock()

	var loop func()
	loop = func() {
		fn()

		g.mu.Lock()
		alive := g.epoch == epoch
		g.mu.Unlock()
		if alive {
			g.Schedule(next(), loop)
		}
	}
	g.Schedule(next(), loop)
}

// Cancel 取消單一任務
func (g *Group) Cancel(id ID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	h, ok := g.handles[id]
	if !ok {
		return false
	}
	delete(g.handles, id)
	h.Stop()
	return true
}

// CancelAll 取消所有尚未觸發的任務，並終止所有 Every 任務鏈
//
// 回傳值:
//
//	int: 被取消的任務數
func (g *Group) CancelAll() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := len(g.handles)
	for id, h := range g.handles {
		h.Stop()
		delete(g.handles, id)
	}
	g.epoch++
	return n
}

// Len 尚未觸發的任務數
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.handles)
}
