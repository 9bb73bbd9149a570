// Package points 管理 Channel Points：帳本、定期累積與兌換目錄 (各項目獨立冷卻)。
package points

import (
	"cmp"
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

// Config Channel Points 設定
type Config struct {
	AccumulationInterval random.Window      `yaml:"accumulation_interval"`
	AccumulationMin      int64              `yaml:"accumulation_min"`
	AccumulationMax      int64              `yaml:"accumulation_max"`
	SubscriberMultiplier float64            `yaml:"subscriber_multiplier"`
	InitialMax           int64              `yaml:"initial_max"` // 首次累積時給予的隨機起始點數上限
	AIProbability        float64            `yaml:"ai_probability"`
	HistoryLimit         int                `yaml:"history_limit"`
	Redemptions          []RedemptionConfig `yaml:"redemptions"`
}

// DefaultConfig 預設設定
func DefaultConfig() Config {
	return Config{
		AccumulationInterval: random.Window{Min: 10 * time.Second, Max: 15 * time.Second},
		AccumulationMin:      10,
		AccumulationMax:      50,
		SubscriberMultiplier: 1.2,
		InitialMax:           2000,
		AIProbability:        0.3,
		HistoryLimit:         500,
		Redemptions:          defaultRedemptions(),
	}
}

// Manager Channel Points 管理器
type Manager struct {
	cfg    Config
	pool   *pool.Pool
	clock  task.Scheduler
	rnd    *random.Source
	logger *slog.Logger

	accumulation *task.Group

	mu       sync.Mutex
	balances map[string]int64
	seeded   map[string]bool
	catalog  map[string]domain.RedemptionDefinition
	lastUsed map[string]time.Time
	history  []domain.RedemptionEvent
	running  bool

	listeners observer.List[domain.RedemptionEvent]
}

var _ ports.PointGranter = (*Manager)(nil)

// New 建立 Channel Points 管理器
func New(cfg Config, p *pool.Pool, s task.Scheduler, rnd *random.Source, logger *slog.Logger) *Manager {
	m := &Manager{
		cfg:          cfg,
		pool:         p,
		clock:        s,
		rnd:          rnd,
		logger:       logger.With("component", "channel_points"),
		accumulation: task.NewGroup(s),
		balances:     make(map[string]int64),
		seeded:       make(map[string]bool),
		catalog:      make(map[string]domain.RedemptionDefinition),
		lastUsed:     make(map[string]time.Time),
	}
	for _, rc := range cfg.Redemptions {
		m.catalog[rc.ID] = rc.Definition()
	}
	return m
}

// Register 新增或取代兌換目錄項目。
// Effect 在管理器的鎖內執行，不可回呼管理器。
func (m *Manager) Register(def domain.RedemptionDefinition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.catalog[def.ID] = def
}

// Catalog 兌換目錄 (依價格排序)
func (m *Manager) Catalog() []domain.RedemptionDefinition {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.RedemptionDefinition, 0, len(m.catalog))
	for _, def := range m.catalog {
		out = append(out, def)
	}
	slices.SortFunc(out, func(a, b domain.RedemptionDefinition) int {
		return cmp.Or(cmp.Compare(a.Cost, b.Cost), cmp.Compare(a.ID, b.ID))
	})
	return out
}

// Balance 點數餘額
func (m *Manager) Balance(userID string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[userID]
}

// Grant 發放點數，回傳新餘額；amount <= 0 不變更
func (m *Manager) Grant(userID string, amount int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if amount > 0 {
		m.balances[userID] += amount
	}
	m.seeded[userID] = true
	return m.balances[userID]
}

// Accumulate 對所有 active 觀眾發放一輪隨機點數。
// 第一次被發放的觀眾額外取得一筆隨機起始點數，模擬之前累積的餘額。
//
// 回傳值:
//
//	int: 本輪取得點數的人數
func (m *Manager) Accumulate() int {
	active := m.pool.ByState(domain.StateActive)

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range active {
		amount := m.rnd.Int64Between(m.cfg.AccumulationMin, m.cfg.AccumulationMax)
		if u.IsSubscriber() && m.cfg.SubscriberMultiplier > 0 {
			amount = int64(float64(amount) * m.cfg.SubscriberMultiplier)
		}
		if !m.seeded[u.ID] {
			m.seeded[u.ID] = true
			amount += m.rnd.Int64Between(0, m.cfg.InitialMax)
		}
		m.balances[u.ID] += amount
	}
	if len(active) > 0 {
		m.logger.Debug("Points accumulated", "users", len(active))
	}
	return len(active)
}

// StartAccumulation 啟動定期累積；已啟動時回傳 false
func (m *Manager) StartAccumulation() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return false
	}
	m.running = true
	m.accumulation.Every(func() time.Duration {
		return m.cfg.AccumulationInterval.Sample(m.rnd)
	}, func() { m.Accumulate() })
	return true
}

// StopAccumulation 停止定期累積；未啟動時回傳 false
func (m *Manager) StopAccumulation() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return false
	}
	m.running = false
	m.accumulation.CancelAll()
	return true
}

// Accumulating 定期累積是否運行中
func (m *Manager) Accumulating() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// IsOnCooldown 兌換項目是否冷卻中 (冷卻為全頻道共用)
func (m *Manager) IsOnCooldown(redemptionID string) bool {
	return m.CooldownRemaining(redemptionID) > 0
}

// CooldownRemaining 剩餘冷卻時間；未知項目或未冷卻回傳 0
func (m *Manager) CooldownRemaining(redemptionID string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cooldownRemainingLocked(redemptionID, m.clock.Now())
}

func (m *Manager) cooldownRemainingLocked(redemptionID string, now time.Time) time.Duration {
	def, ok := m.catalog[redemptionID]
	if !ok {
		return 0
	}
	last, used := m.lastUsed[redemptionID]
	if !used {
		return 0
	}
	return max(0, last.Add(def.Cooldown).Sub(now))
}

// Redeem 手動兌換。全部檢查通過才扣點；效果套用失敗時退還點數並回傳 ErrEffectFailed。
//
// 參數:
//
//	userID: string - 兌換者
//	redemptionID: string - 目錄項目 ID
//
// 回傳值:
//
//	domain.RedemptionEvent: 成功時的事件
//	error: *domain.RejectError (ErrUnknownRedemption / ErrUserNotFound / ErrOnCooldown / ErrInsufficientBalance / ErrEffectFailed)
func (m *Manager) Redeem(userID, redemptionID string) (domain.RedemptionEvent, error) {
	return m.redeem(userID, redemptionID, false)
}

func (m *Manager) redeem(userID, redemptionID string, ai bool) (domain.RedemptionEvent, error) {
	user := m.pool.Get(userID)
	if user == nil {
		return domain.RedemptionEvent{}, domain.Reject(domain.ErrUserNotFound, "user %s", userID)
	}
	if user.Moderation.Banned {
		return domain.RedemptionEvent{}, domain.Reject(domain.ErrUserBanned, "user %s", user.Username)
	}

	m.mu.Lock()
	def, ok := m.catalog[redemptionID]
	if !ok {
		m.mu.Unlock()
		return domain.RedemptionEvent{}, domain.Reject(domain.ErrUnknownRedemption, "redemption %q", redemptionID)
	}
	now := m.clock.Now()
	if remaining := m.cooldownRemainingLocked(redemptionID, now); remaining > 0 {
		m.mu.Unlock()
		return domain.RedemptionEvent{}, domain.Reject(domain.ErrOnCooldown, "%s available in %s", def.Name, remaining.Round(time.Second))
	}
	balance := m.balances[userID]
	if balance < def.Cost {
		m.mu.Unlock()
		return domain.RedemptionEvent{}, domain.Reject(domain.ErrInsufficientBalance, "%s needs %d points, has %d", def.Name, def.Cost, balance)
	}

	prevUsed, hadUsed := m.lastUsed[redemptionID]
	m.balances[userID] = balance - def.Cost
	m.lastUsed[redemptionID] = now

	var effect *domain.Effect
	if def.Effect != nil {
		effect = def.Effect(*user)
	}
	if effect == nil {
		m.balances[userID] = balance
		if hadUsed {
			m.lastUsed[redemptionID] = prevUsed
		} else {
			delete(m.lastUsed, redemptionID)
		}
		m.mu.Unlock()
		m.logger.Warn("Redemption effect failed, points refunded", "user", user.Username, "redemption", redemptionID)
		return domain.RedemptionEvent{}, domain.Reject(domain.ErrEffectFailed, "%s refunded %d points", def.Name, def.Cost)
	}

	ev := domain.RedemptionEvent{
		ID:           domain.NewEventID(),
		RedemptionID: def.ID,
		Name:         def.Name,
		UserID:       userID,
		Username:     user.Username,
		Cost:         def.Cost,
		Balance:      m.balances[userID],
		Effect:       *effect,
		AI:           ai,
		At:           now,
	}
	m.history = append(m.history, ev)
	if limit := m.cfg.HistoryLimit; limit > 0 && len(m.history) > limit {
		m.history = m.history[len(m.history)-limit:]
	}
	m.mu.Unlock()

	m.logger.Info("Points redeemed", "user", user.Username, "redemption", def.Name, "cost", def.Cost, "ai", ai)
	m.listeners.Emit(ev)
	return ev, nil
}

// AttemptAIRedemption 通過機率門檻後，挑一位付得起任一可用項目的 active 觀眾進行兌換。
// 沒有合格組合時回傳 nil。
func (m *Manager) AttemptAIRedemption() *domain.RedemptionEvent {
	if !m.rnd.Chance(m.cfg.AIProbability) {
		return nil
	}

	type candidate struct {
		userID       string
		redemptionID string
	}
	active := m.pool.ByState(domain.StateActive)

	m.mu.Lock()
	now := m.clock.Now()
	candidates := make([]candidate, 0)
	for _, u := range active {
		if u.Moderation.Banned {
			continue
		}
		for _, def := range m.catalog {
			if m.balances[u.ID] >= def.Cost && m.cooldownRemainingLocked(def.ID, now) == 0 {
				candidates = append(candidates, candidate{userID: u.ID, redemptionID: def.ID})
			}
		}
	}
	m.mu.Unlock()

	// map 迭代順序不固定，排序後再抽樣以維持同種子可重現
	slices.SortFunc(candidates, func(a, b candidate) int {
		return cmp.Or(cmp.Compare(a.userID, b.userID), cmp.Compare(a.redemptionID, b.redemptionID))
	})
	c, ok := random.Pick(m.rnd, candidates)
	if !ok {
		return nil
	}
	ev, err := m.redeem(c.userID, c.redemptionID, true)
	if err != nil {
		m.logger.Debug("AI redemption rejected", "error", err)
		return nil
	}
	return &ev
}

// AddListener 註冊兌換事件監聽
func (m *Manager) AddListener(fn func(domain.RedemptionEvent)) observer.ID {
	return m.listeners.Add(fn)
}

// RemoveListener 解除兌換事件監聽
func (m *Manager) RemoveListener(id observer.ID) bool {
	return m.listeners.Remove(id)
}

// History 兌換紀錄複本 (舊 -> 新)
func (m *Manager) History() []domain.RedemptionEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.history)
}
