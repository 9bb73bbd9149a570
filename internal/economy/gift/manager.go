// Package gift 處理觀眾之間的 Bits 贈送。
package gift

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/JoeShih716/virtual-audience/internal/audience/pool"
	"github.com/JoeShih716/virtual-audience/internal/core/domain"
	"github.com/JoeShih716/virtual-audience/internal/core/observer"
	"github.com/JoeShih716/virtual-audience/internal/core/ports"
	"github.com/JoeShih716/virtual-audience/internal/core/random"
	"github.com/JoeShih716/virtual-audience/internal/core/task"
)

// Config Bits 贈送設定
type Config struct {
	Cooldown          time.Duration `yaml:"cooldown"` // 同一贈送者兩次贈送的最短間隔
	AIProbability     float64       `yaml:"ai_probability"`
	AIAmounts         []int64       `yaml:"ai_amounts"`
	ZeroBalanceChance float64       `yaml:"zero_balance_chance"`
	LongTenureChance  float64       `yaml:"long_tenure_chance"`
	LongTenureMonths  int           `yaml:"long_tenure_months"`
	HistoryLimit      int           `yaml:"history_limit"`
}

// DefaultConfig 預設設定
func DefaultConfig() Config {
	return Config{
		Cooldown:          time.Minute,
		AIProbability:     0.1,
		AIAmounts:         []int64{10, 50, 100, 250, 500, 1000},
		ZeroBalanceChance: 0.5,
		LongTenureChance:  0.3,
		LongTenureMonths:  12,
		HistoryLimit:      500,
	}
}

// Manager Bits 贈送管理器
type Manager struct {
	cfg    Config
	pool   *pool.Pool
	wallet ports.BitWallet
	clock  task.Scheduler
	rnd    *random.Source
	logger *slog.Logger

	mu       sync.Mutex
	lastGift map[string]time.Time
	history  []domain.GiftEvent

	listeners observer.List[domain.GiftEvent]
}

// New 建立 Bits 贈送管理器
func New(cfg Config, p *pool.Pool, wallet ports.BitWallet, s task.Scheduler, rnd *random.Source, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:      cfg,
		pool:     p,
		wallet:   wallet,
		clock:    s,
		rnd:      rnd,
		logger:   logger.With("component", "bit_gifting"),
		lastGift: make(map[string]time.Time),
	}
}

// IsOnCooldown 贈送者是否冷卻中
func (m *Manager) IsOnCooldown(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.onCooldownLocked(userID, m.clock.Now())
}

func (m *Manager) onCooldownLocked(userID string, now time.Time) bool {
	last, ok := m.lastGift[userID]
	return ok && now.Sub(last) < m.cfg.Cooldown
}

// GiftBits 手動贈送 Bits。任何檢查失敗都不會變更雙方餘額。
//
// 參數:
//
//	fromID: string - 贈送者
//	toID: string - 接收者
//	amount: int64 - 數量
//
// 回傳值:
//
//	domain.GiftEvent: 成功時的事件
//	error: *domain.RejectError (ErrInvalidAmount / ErrSelfTransfer / ErrUserNotFound / ErrOnCooldown / ErrInsufficientBalance)
func (m *Manager) GiftBits(fromID, toID string, amount int64) (domain.GiftEvent, error) {
	return m.gift(fromID, toID, amount, false)
}

func (m *Manager) gift(fromID, toID string, amount int64, ai bool) (domain.GiftEvent, error) {
	if amount <= 0 {
		return domain.GiftEvent{}, domain.Reject(domain.ErrInvalidAmount, "gift amount must be positive, got %d", amount)
	}
	if fromID == toID {
		return domain.GiftEvent{}, domain.Reject(domain.ErrSelfTransfer, "user %s", fromID)
	}
	from := m.pool.Get(fromID)
	if from == nil {
		return domain.GiftEvent{}, domain.Reject(domain.ErrUserNotFound, "sender %s", fromID)
	}
	to := m.pool.Get(toID)
	if to == nil {
		return domain.GiftEvent{}, domain.Reject(domain.ErrUserNotFound, "recipient %s", toID)
	}

	m.mu.Lock()
	now := m.clock.Now()
	if m.onCooldownLocked(fromID, now) {
		m.mu.Unlock()
		return domain.GiftEvent{}, domain.Reject(domain.ErrOnCooldown, "%s gifted recently", from.Username)
	}
	if err := m.wallet.Transfer(fromID, toID, amount, "gift"); err != nil {
		m.mu.Unlock()
		return domain.GiftEvent{}, err
	}
	m.lastGift[fromID] = now

	ev := domain.GiftEvent{
		ID:           domain.NewEventID(),
		FromID:       fromID,
		FromUsername: from.Username,
		ToID:         toID,
		ToUsername:   to.Username,
		Amount:       amount,
		Effect: domain.Effect{
			Kind:      "gift_bits",
			Color:     "#9146FF",
			Duration:  4 * time.Second,
			Intensity: min(1, float64(amount)/1000),
			Text:      fmt.Sprintf("%s gifted %d bits to %s", from.Username, amount, to.Username),
		},
		AI: ai,
		At: now,
	}
	m.history = append(m.history, ev)
	if limit := m.cfg.HistoryLimit; limit > 0 && len(m.history) > limit {
		m.history = m.history[len(m.history)-limit:]
	}
	m.mu.Unlock()

	m.logger.Info("Bits gifted", "from", from.Username, "to", to.Username, "amount", amount, "ai", ai)
	m.listeners.Emit(ev)
	return ev, nil
}

// ChooseRecipient 依優先順序挑選接收者：
// 先以 ZeroBalanceChance 選零餘額觀眾，再以 LongTenureChance 選長期訂閱者，否則隨機。
// 抽中的集合為空時往下一層遞補。
func (m *Manager) ChooseRecipient(candidates []domain.SyntheticUser) *domain.SyntheticUser {
	if len(candidates) == 0 {
		return nil
	}

	var zero, tenured []domain.SyntheticUser
	for _, u := range candidates {
		if u.Bits == 0 {
			zero = append(zero, u)
		}
		if u.SubscriberMonths >= m.cfg.LongTenureMonths {
			tenured = append(tenured, u)
		}
	}

	var tiers [][]domain.SyntheticUser
	switch r := m.rnd.Float64(); {
	case r < m.cfg.ZeroBalanceChance:
		tiers = [][]domain.SyntheticUser{zero, tenured, candidates}
	case r < m.cfg.ZeroBalanceChance+m.cfg.LongTenureChance:
		tiers = [][]domain.SyntheticUser{tenured, candidates}
	default:
		tiers = [][]domain.SyntheticUser{candidates}
	}
	for _, set := range tiers {
		if u, ok := random.Pick(m.rnd, set); ok {
			return &u
		}
	}
	return nil
}

// AttemptAIGift 通過機率門檻後，挑一位有 Bits 且不在冷卻中的 active 觀眾送給另一位 active 觀眾
func (m *Manager) AttemptAIGift() *domain.GiftEvent {
	if !m.rnd.Chance(m.cfg.AIProbability) || len(m.cfg.AIAmounts) == 0 {
		return nil
	}

	minAmount := slices.Min(m.cfg.AIAmounts)
	active := m.pool.Select(func(u *domain.SyntheticUser) bool {
		return u.State == domain.StateActive && !u.Moderation.Banned
	})

	m.mu.Lock()
	now := m.clock.Now()
	gifters := make([]domain.SyntheticUser, 0)
	for _, u := range active {
		if u.Bits >= minAmount && !m.onCooldownLocked(u.ID, now) {
			gifters = append(gifters, u)
		}
	}
	m.mu.Unlock()

	from, ok := random.Pick(m.rnd, gifters)
	if !ok {
		return nil
	}
	recipients := slices.DeleteFunc(slices.Clone(active), func(u domain.SyntheticUser) bool {
		return u.ID == from.ID
	})
	to := m.ChooseRecipient(recipients)
	if to == nil {
		return nil
	}

	affordable := slices.DeleteFunc(slices.Clone(m.cfg.AIAmounts), func(a int64) bool { return a > from.Bits })
	amount, ok := random.Pick(m.rnd, affordable)
	if !ok {
		return nil
	}

	ev, err := m.gift(from.ID, to.ID, amount, true)
	if err != nil {
		m.logger.Debug("AI gift rejected", "from", from.Username, "error", err)
		return nil
	}
	return &ev
}

// AddListener 註冊贈送事件監聽
func (m *Manager) AddListener(fn func(domain.GiftEvent)) observer.ID {
	return m.listeners.Add(fn)
}

// RemoveListener 解除贈送事件監聽
func (m *Manager) RemoveListener(id observer.ID) bool {
	return m.listeners.Remove(id)
}

// History 贈送紀錄複本
func (m *Manager) History() []domain.GiftEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.history)
}
