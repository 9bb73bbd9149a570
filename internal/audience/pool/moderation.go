package pool

import (
	"time"

	"github.com/JoeShih716/virtual-audience/internal/core/domain"
)

// Ban 封鎖使用者；在場者立即離線。
// Moderator 不可被封鎖。
func (p *Pool) Ban(userID, by, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	u, ok := p.users[userID]
	if !ok {
		return domain.Reject(domain.ErrUserNotFound, "user %s", userID)
	}
	if u.IsModerator {
		return domain.Reject(domain.ErrModeratorProtected, "cannot ban moderator %s", u.Username)
	}

	now := p.clock.Now()
	u.Moderation.Banned = true
	p.appendModLocked(u, domain.ModAction{Kind: "ban", By: by, Reason: reason, At: now})
	if u.Present() {
		p.transitionLocked(u, domain.StateOffline, now)
	}
	p.logger.Info("User banned", "user", u.Username, "by", by, "reason", reason)
	return nil
}

// Unban 解除封鎖
func (p *Pool) Unban(userID, by string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	u, ok := p.users[userID]
	if !ok {
		return domain.Reject(domain.ErrUserNotFound, "user %s", userID)
	}
	if !u.Moderation.Banned {
		return nil
	}
	u.Moderation.Banned = false
	p.appendModLocked(u, domain.ModAction{Kind: "unban", By: by, At: p.clock.Now()})
	return nil
}

// Timeout 禁言一段時間；禁言中的觀眾不會被選為訊息作者
func (p *Pool) Timeout(userID, by string, d time.Duration, reason string) error {
	if d <= 0 {
		return domain.Reject(domain.ErrInvalidAmount, "timeout must be positive, got %s", d)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	u, ok := p.users[userID]
	if !ok {
		return domain.Reject(domain.ErrUserNotFound, "user %s", userID)
	}

	now := p.clock.Now()
	u.Moderation.TimedOut = true
	u.Moderation.TimeoutUntil = now.Add(d)
	p.appendModLocked(u, domain.ModAction{Kind: "timeout", By: by, Reason: reason, Duration: d, At: now})
	return nil
}

// Warn 警告使用者，回傳累計警告次數
func (p *Pool) Warn(userID, by, reason string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	u, ok := p.users[userID]
	if !ok {
		return 0, domain.Reject(domain.ErrUserNotFound, "user %s", userID)
	}
	u.Moderation.Warnings++
	p.appendModLocked(u, domain.ModAction{Kind: "warn", By: by, Reason: reason, At: p.clock.Now()})
	return u.Moderation.Warnings, nil
}

// ClearExpiredTimeouts 清除已到期的禁言旗標，回傳清除數量
func (p *Pool) ClearExpiredTimeouts() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clock.Now()
	n := 0
	for _, u := range p.users {
		if u.Moderation.TimedOut && !now.Before(u.Moderation.TimeoutUntil) {
			u.Moderation.TimedOut = false
			u.Moderation.TimeoutUntil = time.Time{}
			n++
		}
	}
	return n
}

func (p *Pool) appendModLocked(u *domain.SyntheticUser, action domain.ModAction) {
	u.Moderation.Log = append(u.Moderation.Log, action)
}
