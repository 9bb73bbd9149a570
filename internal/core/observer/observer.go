// Package observer 提供各管理器共用的監聽者列表。
// 取代全域事件匯流排：每個管理器持有自己的 List，由 Orchestrator 註冊與解除。
package observer

import (
	"sync"
)

// ID 監聽者編號
type ID uint64

// List 事件監聽者列表
type List[T any] struct {
	mu        sync.RWMutex
	next      ID
	listeners map[ID]func(T)
	order     []ID
}

// Add 註冊監聽者
func (l *List[T]) Add(fn func(T)) ID {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.listeners == nil {
		l.listeners = make(map[ID]func(T))
	}
	l.next++
	l.listeners[l.next] = fn
	l.order = append(l.order, l.next)
	return l.next
}

// Remove 解除監聽者
func (l *List[T]) Remove(id ID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.listeners[id]; !ok {
		return false
	}
	delete(l.listeners, id)
	for i, v := range l.order {
		if v == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	return true
}

// Len 監聽者數量
func (l *List[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.listeners)
}

// Emit 依註冊順序通知所有監聽者。
// 監聽者在鎖外執行，可安全地在回呼中 Add/Remove。
func (l *List[T]) Emit(ev T) {
	l.mu.RLock()
	fns := make([]func(T), 0, len(l.order))
	for _, id := range l.order {
		fns = append(fns, l.listeners[id])
	}
	l.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}
