package pool

import (
	"github.com/JoeShih716/virtual-audience/internal/audience/profile"
	"github.com/JoeShih716/virtual-audience/internal/core/domain"
	"github.com/JoeShih716/virtual-audience/internal/core/ports"
)

// Pool 同時是 Bits 錢包：Bits 存放在使用者實體上
var _ ports.BitWallet = (*Pool)(nil)

// Balance 查詢 Bits 餘額
func (p *Pool) Balance(userID string) (int64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	u, ok := p.users[userID]
	if !ok {
		return 0, domain.Reject(domain.ErrUserNotFound, "user %s", userID)
	}
	return u.Bits, nil
}

// Deduct 扣除 Bits；餘額不足時拒絕且不變更任何狀態
func (p *Pool) Deduct(userID string, amount int64, reason string) (int64, error) {
	if amount <= 0 {
		return 0, domain.Reject(domain.ErrInvalidAmount, "amount must be positive, got %d", amount)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	u, ok := p.users[userID]
	if !ok {
		return 0, domain.Reject(domain.ErrUserNotFound, "user %s", userID)
	}
	if u.Bits < amount {
		return u.Bits, domain.Reject(domain.ErrInsufficientBalance, "%s has %d bits, needs %d", u.Username, u.Bits, amount)
	}

	u.Bits -= amount
	p.refreshBadgesLocked(u)
	p.logger.Debug("Bits deducted", "user", u.Username, "amount", amount, "balance", u.Bits, "reason", reason)
	return u.Bits, nil
}

// Add 增加 Bits
func (p *Pool) Add(userID string, amount int64, reason string) (int64, error) {
	if amount <= 0 {
		return 0, domain.Reject(domain.ErrInvalidAmount, "amount must be positive, got %d", amount)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	u, ok := p.users[userID]
	if !ok {
		return 0, domain.Reject(domain.ErrUserNotFound, "user %s", userID)
	}
	u.Bits += amount
	p.refreshBadgesLocked(u)
	p.logger.Debug("Bits added", "user", u.Username, "amount", amount, "balance", u.Bits, "reason", reason)
	return u.Bits, nil
}

// Transfer 原子轉帳：全部檢查通過才同時變更雙方餘額
func (p *Pool) Transfer(fromID, toID string, amount int64, reason string) error {
	if amount <= 0 {
		return domain.Reject(domain.ErrInvalidAmount, "amount must be positive, got %d", amount)
	}
	if fromID == toID {
		return domain.Reject(domain.ErrSelfTransfer, "user %s", fromID)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	from, ok := p.users[fromID]
	if !ok {
		return domain.Reject(domain.ErrUserNotFound, "sender %s", fromID)
	}
	to, ok := p.users[toID]
	if !ok {
		return domain.Reject(domain.ErrUserNotFound, "recipient %s", toID)
	}
	if to.Moderation.Banned {
		return domain.Reject(domain.ErrUserBanned, "recipient %s", to.Username)
	}
	if from.Bits < amount {
		return domain.Reject(domain.ErrInsufficientBalance, "%s has %d bits, needs %d", from.Username, from.Bits, amount)
	}

	from.Bits -= amount
	to.Bits += amount
	if from.Bits < 0 {
		// 不應發生：前面已檢查
		p.logger.Error("Negative balance after transfer", "user", from.Username, "balance", from.Bits)
	}
	p.refreshBadgesLocked(from)
	p.refreshBadgesLocked(to)
	p.logger.Debug("Bits transferred", "from", from.Username, "to", to.Username, "amount", amount, "reason", reason)
	return nil
}

// AddSubscriberMonths 累加訂閱月數 (只增不減) 並更新等級
//
// 回傳值:
//
//	int: 更新後的訂閱月數
//	error: 使用者不存在或月數不合法
func (p *Pool) AddSubscriberMonths(userID string, months int, tier domain.SubTier) (int, error) {
	if months <= 0 {
		return 0, domain.Reject(domain.ErrInvalidAmount, "months must be positive, got %d", months)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	u, ok := p.users[userID]
	if !ok {
		return 0, domain.Reject(domain.ErrUserNotFound, "user %s", userID)
	}
	u.SubscriberMonths += months
	if tier != domain.SubTierNone {
		u.SubTier = tier
	}
	p.refreshBadgesLocked(u)
	return u.SubscriberMonths, nil
}

func (p *Pool) refreshBadgesLocked(u *domain.SyntheticUser) {
	u.Badges = profile.Badges(u.SubscriberMonths, u.Bits, u.IsModerator)
}
