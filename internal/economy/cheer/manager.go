// Package cheer 處理 Bits 贊助：等級判定、扣款與 AI 贊助。
package cheer

import (
	"cmp"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/virtual-audience/internal/audience/pool"
	"github.com/JoeShih716/virtual-audience/internal/core/domain"
	"github.com/JoeShih716/virtual-audience/internal/core/observer"
	"github.com/JoeShih716/virtual-audience/internal/core/ports"
	"github.com/JoeShih716/virtual-audience/internal/core/random"
	"github.com/JoeShih716/virtual-audience/internal/core/task"
)

// Config Bits 贊助設定
type Config struct {
	Tiers         []domain.CheerTier `yaml:"tiers"`
	MaxAmount     int64              `yaml:"max_amount"`
	AIProbability float64            `yaml:"ai_probability"`
	AIAmounts     []int64            `yaml:"ai_amounts"`
	RevenuePerBit string             `yaml:"revenue_per_bit"` // 美元，decimal 字串
	HistoryLimit  int                `yaml:"history_limit"`
}

// DefaultConfig 預設設定
func DefaultConfig() Config {
	return Config{
		Tiers: []domain.CheerTier{
			{Name: "gray", Threshold: 1, Color: "#979797", Animation: "bounce", Duration: 3 * time.Second},
			{Name: "purple", Threshold: 100, Color: "#9C3EE8", Animation: "spin", Duration: 4 * time.Second},
			{Name: "green", Threshold: 1000, Color: "#1DB2A5", Animation: "burst", Duration: 5 * time.Second},
			{Name: "blue", Threshold: 5000, Color: "#0099FE", Animation: "rain", Duration: 7 * time.Second},
			{Name: "red", Threshold: 10000, Color: "#F43021", Animation: "explosion", Duration: 10 * time.Second},
			{Name: "gold", Threshold: 100000, Color: "#FFD700", Animation: "supernova", Duration: 15 * time.Second},
		},
		MaxAmount:     100000,
		AIProbability: 0.15,
		AIAmounts:     []int64{1, 10, 50, 100, 250, 500, 1000, 5000},
		RevenuePerBit: "0.01",
		HistoryLimit:  500,
	}
}

var messages = map[domain.Personality][]string{
	domain.PersonalityHype:       {"LETS GOOOO", "HYPE HYPE HYPE", "POG", "this stream is insane"},
	domain.PersonalityMeme:       {"take my bits lol", "KEKW", "for the memes", "bits go brrr"},
	domain.PersonalityWholesome:  {"love this community <3", "thanks for streaming!", "you deserve it"},
	domain.PersonalityAnalyst:    {"great strategy there", "well played", "that was the optimal line"},
	domain.PersonalityContrarian: {"fine, I'll cheer", "still think you're wrong"},
}

// Manager Bits 贊助管理器
type Manager struct {
	cfg     Config
	tiers   []domain.CheerTier // 依門檻由大到小
	revenue decimal.Decimal

	pool   *pool.Pool
	wallet ports.BitWallet
	clock  task.Scheduler
	rnd    *random.Source
	logger *slog.Logger

	mu      sync.Mutex
	history []domain.CheerEvent

	listeners observer.List[domain.CheerEvent]
}

// New 建立 Bits 贊助管理器
func New(cfg Config, p *pool.Pool, wallet ports.BitWallet, s task.Scheduler, rnd *random.Source, logger *slog.Logger) *Manager {
	tiers := slices.Clone(cfg.Tiers)
	slices.SortFunc(tiers, func(a, b domain.CheerTier) int {
		return cmp.Compare(b.Threshold, a.Threshold)
	})
	rev, err := decimal.NewFromString(cfg.RevenuePerBit)
	if err != nil {
		logger.Warn("Invalid revenue_per_bit, using 0.01", "value", cfg.RevenuePerBit, "error", err)
		rev = decimal.NewFromFloat(0.01)
	}
	return &Manager{
		cfg:     cfg,
		tiers:   tiers,
		revenue: rev,
		pool:    p,
		wallet:  wallet,
		clock:   s,
		rnd:     rnd,
		logger:  logger.With("component", "bit_cheering"),
	}
}

// TierFor 由大到小掃描，回傳門檻 <= amount 的最高等級；低於所有門檻時回傳最低等級
func (m *Manager) TierFor(amount int64) domain.CheerTier {
	if len(m.tiers) == 0 {
		return domain.CheerTier{}
	}
	for _, t := range m.tiers {
		if amount >= t.Threshold {
			return t
		}
	}
	return m.tiers[len(m.tiers)-1]
}

// Cheer 手動贊助；餘額不足時不扣款並回傳 ErrInsufficientBalance
func (m *Manager) Cheer(userID string, amount int64, message string) (domain.CheerEvent, error) {
	return m.cheer(userID, amount, message, false)
}

func (m *Manager) cheer(userID string, amount int64, message string, ai bool) (domain.CheerEvent, error) {
	if amount <= 0 || (m.cfg.MaxAmount > 0 && amount > m.cfg.MaxAmount) {
		return domain.CheerEvent{}, domain.Reject(domain.ErrInvalidAmount, "cheer amount %d out of range", amount)
	}
	user := m.pool.Get(userID)
	if user == nil {
		return domain.CheerEvent{}, domain.Reject(domain.ErrUserNotFound, "user %s", userID)
	}
	if user.Moderation.Banned {
		return domain.CheerEvent{}, domain.Reject(domain.ErrUserBanned, "user %s", user.Username)
	}
	if _, err := m.wallet.Deduct(userID, amount, "cheer"); err != nil {
		return domain.CheerEvent{}, err
	}

	tier := m.TierFor(amount)
	ev := domain.CheerEvent{
		ID:       domain.NewEventID(),
		UserID:   userID,
		Username: user.Username,
		Amount:   amount,
		Tier:     tier,
		Message:  message,
		Revenue:  m.revenue.Mul(decimal.NewFromInt(amount)),
		Effect: domain.Effect{
			Kind:      "cheer_" + tier.Animation,
			Color:     tier.Color,
			Duration:  tier.Duration,
			Intensity: intensity(amount),
			Text:      fmt.Sprintf("%s cheered %d bits!", user.Username, amount),
		},
		AI: ai,
		At: m.clock.Now(),
	}

	m.mu.Lock()
	m.history = append(m.history, ev)
	if limit := m.cfg.HistoryLimit; limit > 0 && len(m.history) > limit {
		m.history = m.history[len(m.history)-limit:]
	}
	m.mu.Unlock()

	m.logger.Info("Bits cheered", "user", user.Username, "amount", amount, "tier", tier.Name, "ai", ai)
	m.listeners.Emit(ev)
	return ev, nil
}

// AttemptAICheer 通過機率門檻後，挑一位有 Bits 的 active 觀眾贊助其負擔得起的金額
func (m *Manager) AttemptAICheer() *domain.CheerEvent {
	if !m.rnd.Chance(m.cfg.AIProbability) {
		return nil
	}

	now := m.clock.Now()
	cheerers := m.pool.Select(func(u *domain.SyntheticUser) bool {
		return u.State == domain.StateActive && u.Bits > 0 && !u.Muted(now)
	})
	u, ok := random.Pick(m.rnd, cheerers)
	if !ok {
		return nil
	}

	affordable := make([]int64, 0, len(m.cfg.AIAmounts))
	for _, a := range m.cfg.AIAmounts {
		if a <= u.Bits {
			affordable = append(affordable, a)
		}
	}
	amount, ok := random.Pick(m.rnd, affordable)
	if !ok {
		amount = u.Bits
	}
	amount = min(amount, m.cfg.MaxAmount)

	ev, err := m.cheer(u.ID, amount, m.message(u.Personality, amount), true)
	if err != nil {
		m.logger.Debug("AI cheer rejected", "user", u.Username, "error", err)
		return nil
	}
	return &ev
}

func (m *Manager) message(p domain.Personality, amount int64) string {
	text, ok := random.Pick(m.rnd, messages[p])
	if !ok {
		text = "GG"
	}
	return strings.TrimSpace(fmt.Sprintf("Cheer%d %s", amount, text))
}

// AddListener 註冊贊助事件監聽
func (m *Manager) AddListener(fn func(domain.CheerEvent)) observer.ID {
	return m.listeners.Add(fn)
}

// RemoveListener 解除贊助事件監聽
func (m *Manager) RemoveListener(id observer.ID) bool {
	return m.listeners.Remove(id)
}

// History 贊助紀錄複本
func (m *Manager) History() []domain.CheerEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.history)
}

// intensity 以對數尺度把金額映射到 [0.1, 1]
func intensity(amount int64) float64 {
	if amount <= 1 {
		return 0.1
	}
	v := math.Log10(float64(amount)) / 5
	return math.Max(0.1, math.Min(1, v))
}
