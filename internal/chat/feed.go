// Package chat 保存最近的聊天訊息與投票，供按讚與投票排程器在觸發時查驗。
// 只存在記憶體中，不做持久化。
package chat

import (
	"sync"

	"github.com/JoeShih716/virtual-audience/internal/core/domain"
	"github.com/JoeShih716/virtual-audience/internal/core/observer"
	"github.com/JoeShih716/virtual-audience/internal/core/task"
)

// DefaultCapacity 預設保留的訊息數
const DefaultCapacity = 200

// Feed 有容量上限的最近訊息列表
type Feed struct {
	capacity int
	clock    task.Scheduler

	mu    sync.RWMutex
	byID  map[string]*domain.ChatMessage
	order []string // 舊 -> 新

	added   observer.List[domain.ChatMessage]
	removed observer.List[string]
	likes   observer.List[domain.LikeEvent]
}

// NewFeed 建立訊息列表；capacity <= 0 時使用 DefaultCapacity
func NewFeed(capacity int, clock task.Scheduler) *Feed {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Feed{
		capacity: capacity,
		clock:    clock,
		byID:     make(map[string]*domain.ChatMessage),
	}
}

// Add 加入訊息；未指定 ID 或時間時自動補上。超過容量時淘汰最舊的訊息。
func (f *Feed) Add(msg domain.ChatMessage) domain.ChatMessage {
	if msg.ID == "" {
		msg.ID = domain.NewMessageID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = f.clock.Now()
	}
	if msg.Kind == "" {
		msg.Kind = domain.MessageKindChat
	}

	f.mu.Lock()
	if old, ok := f.byID[msg.ID]; ok {
		// 相同 ID 視為編輯：保留排序位置與已累積的按讚
		likes, likedBy := old.Likes, old.LikedBy
		*old = msg.Clone()
		old.Likes, old.LikedBy = likes, likedBy
		out := old.Clone()
		f.mu.Unlock()
		return out
	}
	stored := msg.Clone()
	f.byID[msg.ID] = &stored
	f.order = append(f.order, msg.ID)

	var evicted []string
	for len(f.order) > f.capacity {
		id := f.order[0]
		f.order = f.order[1:]
		delete(f.byID, id)
		evicted = append(evicted, id)
	}
	f.mu.Unlock()

	for _, id := range evicted {
		f.removed.Emit(id)
	}
	f.added.Emit(msg)
	return msg
}

// Remove 移除訊息
func (f *Feed) Remove(id string) bool {
	f.mu.Lock()
	if _, ok := f.byID[id]; !ok {
		f.mu.Unlock()
		return false
	}
	delete(f.byID, id)
	for i, v := range f.order {
		if v == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	f.mu.Unlock()

	f.removed.Emit(id)
	return true
}

// Get 取得訊息複本
func (f *Feed) Get(id string) (domain.ChatMessage, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	m, ok := f.byID[id]
	if !ok {
		return domain.ChatMessage{}, false
	}
	return m.Clone(), true
}

// Recent 最近 n 則訊息 (舊 -> 新)；n <= 0 回傳全部
func (f *Feed) Recent(n int) []domain.ChatMessage {
	f.mu.RLock()
	defer f.mu.RUnlock()

	ids := f.order
	if n > 0 && len(ids) > n {
		ids = ids[len(ids)-n:]
	}
	out := make([]domain.ChatMessage, 0, len(ids))
	for _, id := range ids {
		out = append(out, f.byID[id].Clone())
	}
	return out
}

// Len 目前訊息數
func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.order)
}

// AddLike 對訊息按讚。訊息不存在或已按過讚時回傳 false。
//
// 參數:
//
//	id: string - 訊息 ID
//	username: string - 按讚者
//	retro: bool - 是否為補按 (retroactive)
func (f *Feed) AddLike(id, username string, retro bool) (domain.ChatMessage, bool) {
	f.mu.Lock()
	m, ok := f.byID[id]
	if !ok || m.LikedByUser(username) || m.Username == username {
		f.mu.Unlock()
		return domain.ChatMessage{}, false
	}
	m.Likes++
	m.LikedBy = append(m.LikedBy, username)
	out := m.Clone()
	f.mu.Unlock()

	f.likes.Emit(domain.LikeEvent{
		MessageID: id,
		Username:  username,
		Likes:     out.Likes,
		LikedBy:   out.LikedBy,
		Retro:     retro,
		At:        f.clock.Now(),
	})
	return out, true
}

// OnAdded 註冊新訊息監聽
func (f *Feed) OnAdded(fn func(domain.ChatMessage)) observer.ID {
	return f.added.Add(fn)
}

// OnRemoved 註冊訊息移除監聽 (含容量淘汰)
func (f *Feed) OnRemoved(fn func(id string)) observer.ID {
	return f.removed.Add(fn)
}

// OnLikesChanged 註冊按讚數變動監聽
func (f *Feed) OnLikesChanged(fn func(domain.LikeEvent)) observer.ID {
	return f.likes.Add(fn)
}

// 三類監聽各自編號，解除時需呼叫對應的方法

func (f *Feed) RemoveAddedListener(id observer.ID) bool   { return f.added.Remove(id) }
func (f *Feed) RemoveRemovedListener(id observer.ID) bool { return f.removed.Remove(id) }
func (f *Feed) RemoveLikesListener(id observer.ID) bool   { return f.likes.Remove(id) }
