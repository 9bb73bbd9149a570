package task

import (
	"sync"
	"time"
)

// Keyed 依內容 ID (訊息 ID、投票 ID) 分組的任務集合。
// 不同排程器各自持有自己的 Keyed，不共用取消登記表。
type Keyed[K comparable] struct {
	group *Group

	mu   sync.Mutex
	keys map[K]map[ID]struct{}
}

// NewKeyed 建立依 key 分組的任務集合
func NewKeyed[K comparable](s Scheduler) *Keyed[K] {
	return &Keyed[K]{
		group: NewGroup(s),
		keys:  make(map[K]map[ID]struct{}),
	}
}

// Schedule 在 key 底下排入任務
func (k *Keyed[K]) Schedule(key K, d time.Duration, fn func()) ID {
	k.mu.Lock()
	defer k.mu.Unlock()

	var id ID
	id = k.group.Schedule(d, func() {
		k.mu.Lock()
		k.forget(key, id)
		k.mu.Unlock()
		fn()
	})

	set, ok := k.keys[key]
	if !ok {
		set = make(map[ID]struct{})
		k.keys[key] = set
	}
	set[id] = struct{}{}
	return id
}

// CancelKey 取消 key 底下所有任務
func (k *Keyed[K]) CancelKey(key K) int {
	k.mu.Lock()
	defer k.mu.Unlock()

	set := k.keys[key]
	n := 0
	for id := range set {
		if k.group.Cancel(id) {
			n++
		}
	}
	delete(k.keys, key)
	return n
}

// CancelAll 取消所有任務
func (k *Keyed[K]) CancelAll() int {
	k.mu.Lock()
	defer k.mu.Unlock()

	clear(k.keys)
	return k.group.CancelAll()
}

// Pending key 底下尚未觸發的任務數
func (k *Keyed[K]) Pending(key K) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.keys[key])
}

// Len 全部尚未觸發的任務數
func (k *Keyed[K]) Len() int {
	return k.group.Len()
}

func (k *Keyed[K]) forget(key K, id ID) {
	set, ok := k.keys[key]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(k.keys, key)
	}
}
