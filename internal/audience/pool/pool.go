// Package pool 是虛擬觀眾的權威登記處。
//
// 所有狀態變更都在單一鎖內「先檢查再變更」完成，不會在變更途中讓出；
// 唯讀存取一律回傳複本，UI 大量輪詢也無法破壞不變量。
package pool

import (
	"log/slog"
	"sync"
	"time"

	"github.com/JoeShih716/virtual-audience/internal/audience/profile"
	"github.com/JoeShih716/virtual-audience/internal/core/domain"
	"github.com/JoeShih716/virtual-audience/internal/core/random"
	"github.com/JoeShih716/virtual-audience/internal/core/task"
)

// Config 觀眾池設定
type Config struct {
	RosterSizePerPersonality int           `yaml:"roster_size_per_personality"`
	MinLurk                  time.Duration `yaml:"min_lurk"`     // lurking -> active 的最短停留時間
	MinPresence              time.Duration `yaml:"min_presence"` // 離開前的最短在場時間
	UsernameAttempts         int           `yaml:"username_attempts"`
	TraceLimit               int           `yaml:"trace_limit"` // 每位使用者保留的狀態轉換紀錄數
}

// DefaultConfig 預設設定
func DefaultConfig() Config {
	return Config{
		RosterSizePerPersonality: 25,
		MinLurk:                  10 * time.Second,
		MinPresence:              30 * time.Second,
		UsernameAttempts:         10,
		TraceLimit:               32,
	}
}

// Stats 觀眾池統計
type Stats struct {
	Total       int `json:"total"`
	Offline     int `json:"offline"`
	Lurking     int `json:"lurking"`
	Active      int `json:"active"`
	Viewers     int `json:"viewers"`
	Subscribers int `json:"subscribers"`
	Moderators  int `json:"moderators"`
	Banned      int `json:"banned"`
}

// Pool 虛擬觀眾池
type Pool struct {
	cfg    Config
	clock  task.Scheduler
	rnd    *random.Source
	logger *slog.Logger

	mu          sync.RWMutex
	users       map[string]*domain.SyntheticUser
	byName      map[string]string
	order       []string // 插入順序，確保同一種子下結果可重現
	initialized bool
}

// New 建立觀眾池
func New(cfg Config, clock task.Scheduler, rnd *random.Source, logger *slog.Logger) *Pool {
	return &Pool{
		cfg:    cfg,
		clock:  clock,
		rnd:    rnd,
		logger: logger.With("component", "user_pool"),
		users:  make(map[string]*domain.SyntheticUser),
		byName: make(map[string]string),
	}
}

// Config 回傳設定
func (p *Pool) Config() Config {
	return p.cfg
}

// Initialize 依個性建立固定數量的離線觀眾。
// 名稱唯一性以有限重試 + 後綴保證；仍然衝突時記錄錯誤並略過，不會失敗。
//
// 回傳值:
//
//	int: 本次新增的觀眾數 (重複呼叫為 0)
func (p *Pool) Initialize() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return 0
	}
	p.initialized = true

	now := p.clock.Now()
	taken := func(name string) bool {
		_, ok := p.byName[name]
		return ok
	}

	created := 0
	for _, personality := range domain.Personalities() {
		for i := 0; i < p.cfg.RosterSizePerPersonality; i++ {
			name, ok := profile.UniqueUsername(p.rnd, personality, taken, p.cfg.UsernameAttempts)
			if !ok {
				p.logger.Error("Username collision, skipping user", "username", name, "personality", personality)
				continue
			}
			u := profile.NewUser(p.rnd, name, personality, now)
			if err := p.insertLocked(u); err != nil {
				p.logger.Error("Failed to insert generated user", "username", name, "error", err)
				continue
			}
			created++
		}
	}

	p.logger.Info("User pool initialized", "users", created)
	return created
}

// Insert 直接放入一位使用者 (Moderator Registry 使用)。
// 名稱或 ID 重複時拒絕。
func (p *Pool) Insert(u *domain.SyntheticUser) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.insertLocked(u)
}

func (p *Pool) insertLocked(u *domain.SyntheticUser) error {
	if _, exists := p.byName[u.Username]; exists {
		return domain.Reject(domain.ErrDuplicateUser, "username %q already exists", u.Username)
	}
	if _, exists := p.users[u.ID]; exists {
		return domain.Reject(domain.ErrDuplicateUser, "user id %q already exists", u.ID)
	}
	if u.Badges == nil {
		u.Badges = make([]domain.Badge, 0)
	}
	p.users[u.ID] = u
	p.byName[u.Username] = u.ID
	p.order = append(p.order, u.ID)
	return nil
}

// Join 隨機挑一位離線觀眾進入 lurking。
// 沒有離線觀眾時回傳 nil，這是正常的穩態情況。
func (p *Pool) Join() *domain.SyntheticUser {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clock.Now()
	candidates := p.filterLocked(func(u *domain.SyntheticUser) bool {
		return u.State == domain.StateOffline && !u.Moderation.Banned
	})
	u, ok := random.Pick(p.rnd, candidates)
	if !ok {
		return nil
	}
	if !p.transitionLocked(u, domain.StateLurking, now) {
		return nil
	}
	u.JoinedAt = now
	c := u.Clone()
	return &c
}

// ActivateLurker 從停留超過 MinLurk 的 lurker 中隨機挑一位轉為 active
func (p *Pool) ActivateLurker() *domain.SyntheticUser {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clock.Now()
	candidates := p.filterLocked(func(u *domain.SyntheticUser) bool {
		return u.State == domain.StateLurking &&
			!u.Moderation.Banned &&
			now.Sub(u.StateSince) >= p.cfg.MinLurk
	})
	u, ok := random.Pick(p.rnd, candidates)
	if !ok {
		return nil
	}
	if !p.transitionLocked(u, domain.StateActive, now) {
		return nil
	}
	c := u.Clone()
	return &c
}

// Leave 從在場超過 MinPresence 的觀眾中隨機挑一位離線。
// Moderator 永遠在場，不會被挑中。
func (p *Pool) Leave() *domain.SyntheticUser {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clock.Now()
	candidates := p.filterLocked(func(u *domain.SyntheticUser) bool {
		return u.Present() && !u.IsModerator && now.Sub(u.JoinedAt) >= p.cfg.MinPresence
	})
	u, ok := random.Pick(p.rnd, candidates)
	if !ok {
		return nil
	}
	if !p.transitionLocked(u, domain.StateOffline, now) {
		return nil
	}
	c := u.Clone()
	return &c
}

// PickActiveUser 依活躍度加權抽出一位 active 觀眾，並累加其訊息數。
// 指定個性找不到人時退回任何 active 觀眾；完全沒有 active 觀眾時回傳 nil，
// 由呼叫端自行補救 (例如先 ActivateLurker)。
func (p *Pool) PickActiveUser(personality domain.Personality) *domain.SyntheticUser {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clock.Now()
	active := p.filterLocked(func(u *domain.SyntheticUser) bool {
		return u.State == domain.StateActive && !u.Muted(now)
	})
	if len(active) == 0 {
		return nil
	}

	candidates := active
	if personality != domain.AnyPersonality {
		filtered := make([]*domain.SyntheticUser, 0, len(active))
		for _, u := range active {
			if u.Personality == personality {
				filtered = append(filtered, u)
			}
		}
		if len(filtered) > 0 {
			candidates = filtered
		}
	}

	weights := make([]float64, len(candidates))
	for i, u := range candidates {
		weights[i] = u.ActivityLevel
	}
	idx := p.rnd.WeightedIndex(weights)
	if idx < 0 {
		idx = p.rnd.IntN(len(candidates))
	}

	u := candidates[idx]
	u.MessageCount++
	c := u.Clone()
	return &c
}

// PickLikers 回傳最多 count 位不重複的 active 觀眾 (排除作者)，並累加其按讚數
func (p *Pool) PickLikers(count int, excludeUsername string) []domain.SyntheticUser {
	if count <= 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	candidates := p.filterLocked(func(u *domain.SyntheticUser) bool {
		return u.State == domain.StateActive && !u.Moderation.Banned && u.Username != excludeUsername
	})
	p.rnd.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	if len(candidates) > count {
		candidates = candidates[:count]
	}

	out := make([]domain.SyntheticUser, 0, len(candidates))
	for _, u := range candidates {
		u.LikesGiven++
		out = append(out, u.Clone())
	}
	return out
}

// RecordLike 累加單一使用者的按讚數 (排程按讚實際觸發時呼叫)
func (p *Pool) RecordLike(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	u, ok := p.users[userID]
	if !ok {
		return false
	}
	u.LikesGiven++
	return true
}

// transitionLocked 套用狀態轉換；不合法的轉換記錄為錯誤並拒絕
func (p *Pool) transitionLocked(u *domain.SyntheticUser, to domain.UserState, now time.Time) bool {
	if !domain.CanTransition(u.State, to) {
		p.logger.Error("Illegal state transition rejected", "user", u.Username, "from", u.State, "to", to)
		return false
	}
	u.Trace = append(u.Trace, domain.Transition{From: u.State, To: to, At: now})
	if limit := p.cfg.TraceLimit; limit > 0 && len(u.Trace) > limit {
		u.Trace = u.Trace[len(u.Trace)-limit:]
	}
	u.State = to
	u.StateSince = now
	return true
}

func (p *Pool) filterLocked(pred func(u *domain.SyntheticUser) bool) []*domain.SyntheticUser {
	out := make([]*domain.SyntheticUser, 0)
	for _, id := range p.order {
		if u := p.users[id]; pred(u) {
			out = append(out, u)
		}
	}
	return out
}

// Clock 回傳觀眾池使用的時鐘
func (p *Pool) Clock() task.Scheduler {
	return p.clock
}
