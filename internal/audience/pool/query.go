package pool

import (
	"github.com/JoeShih716/virtual-audience/internal/core/domain"
)

// 以下為唯讀存取：只取讀鎖、只回傳複本，不會變更任何狀態。

// Get 依 ID 取得使用者複本；不存在時回傳 nil
func (p *Pool) Get(userID string) *domain.SyntheticUser {
	p.mu.RLock()
	defer p.mu.RUnlock()

	u, ok := p.users[userID]
	if !ok {
		return nil
	}
	c := u.Clone()
	return &c
}

// GetByUsername 依名稱取得使用者複本
func (p *Pool) GetByUsername(username string) *domain.SyntheticUser {
	p.mu.RLock()
	defer p.mu.RUnlock()

	id, ok := p.byName[username]
	if !ok {
		return nil
	}
	c := p.users[id].Clone()
	return &c
}

// All 所有使用者 (依建立順序)
func (p *Pool) All() []domain.SyntheticUser {
	return p.Select(func(*domain.SyntheticUser) bool { return true })
}

// ByState 指定狀態的使用者
func (p *Pool) ByState(state domain.UserState) []domain.SyntheticUser {
	return p.Select(func(u *domain.SyntheticUser) bool { return u.State == state })
}

// Select 依條件篩選使用者複本。pred 只能讀取，不應修改參數。
func (p *Pool) Select(pred func(u *domain.SyntheticUser) bool) []domain.SyntheticUser {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]domain.SyntheticUser, 0)
	for _, id := range p.order {
		if u := p.users[id]; pred(u) {
			out = append(out, u.Clone())
		}
	}
	return out
}

// Count 指定狀態的人數
func (p *Pool) Count(state domain.UserState) int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	n := 0
	for _, u := range p.users {
		if u.State == state {
			n++
		}
	}
	return n
}

// ViewerCount 在場人數 (lurking + active)
func (p *Pool) ViewerCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	n := 0
	for _, u := range p.users {
		if u.Present() {
			n++
		}
	}
	return n
}

// Total 觀眾池總人數
func (p *Pool) Total() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.users)
}

// Stats 觀眾池統計快照
func (p *Pool) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var s Stats
	s.Total = len(p.users)
	for _, u := range p.users {
		switch u.State {
		case domain.StateOffline:
			s.Offline++
		case domain.StateLurking:
			s.Lurking++
		case domain.StateActive:
			s.Active++
		}
		if u.IsSubscriber() {
			s.Subscribers++
		}
		if u.IsModerator {
			s.Moderators++
		}
		if u.Moderation.Banned {
			s.Banned++
		}
	}
	s.Viewers = s.Lurking + s.Active
	return s
}
