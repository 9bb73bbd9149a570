// Package moderator 在啟動時注入固定的 Moderator 名單。
package moderator

import (
	"log/slog"
	"sync"

	"github.com/JoeShih716/virtual-audience/internal/audience/pool"
	"github.com/JoeShih716/virtual-audience/internal/audience/profile"
	"github.com/JoeShih716/virtual-audience/internal/core/domain"
	"github.com/JoeShih716/virtual-audience/internal/core/ports"
)

// Spec 單一 Moderator 設定
type Spec struct {
	Username    string             `yaml:"username"`
	Personality domain.Personality `yaml:"personality"`
	Color       string             `yaml:"color"`
	Bits        int64              `yaml:"bits"`
	Points      int64              `yaml:"points"`
	Months      int                `yaml:"months"`
}

// Config Moderator 名單
type Config struct {
	Moderators []Spec `yaml:"moderators"`
}

// DefaultConfig 預設名單
func DefaultConfig() Config {
	return Config{
		Moderators: []Spec{
			{Username: "StreamGuardian", Personality: domain.PersonalityWholesome, Color: "#00AD03", Bits: 50000, Points: 250000, Months: 48},
			{Username: "NightOwlMod", Personality: domain.PersonalityAnalyst, Color: "#1E90FF", Bits: 25000, Points: 150000, Months: 36},
			{Username: "ChatSheriff", Personality: domain.PersonalityHype, Color: "#FF4500", Bits: 10000, Points: 100000, Months: 24},
		},
	}
}

// Registry Moderator 注入器；第一次 EnsureJoined 之後即為 no-op
type Registry struct {
	cfg    Config
	pool   *pool.Pool
	ledger ports.PointGranter
	logger *slog.Logger

	mu     sync.Mutex
	joined bool
	names  map[string]string // username -> user id
}

// New 建立 Moderator 注入器。ledger 可為 nil (不發放 Channel Points)。
func New(cfg Config, p *pool.Pool, ledger ports.PointGranter, logger *slog.Logger) *Registry {
	return &Registry{
		cfg:    cfg,
		pool:   p,
		ledger: ledger,
		logger: logger.With("component", "moderators"),
		names:  make(map[string]string),
	}
}

// EnsureJoined 第一次呼叫時建立並放入所有 Moderator (永遠 active)，之後呼叫不做任何事。
//
// 回傳值:
//
//	[]domain.SyntheticUser: 本次新加入的 Moderator (重複呼叫為空)
func (r *Registry) EnsureJoined() []domain.SyntheticUser {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.joined {
		return nil
	}
	r.joined = true

	now := r.pool.Clock().Now()
	out := make([]domain.SyntheticUser, 0, len(r.cfg.Moderators))
	for _, spec := range r.cfg.Moderators {
		u := domain.NewSyntheticUser(spec.Username, spec.Personality)
		u.IsModerator = true
		u.State = domain.StateActive
		u.JoinedAt = now
		u.StateSince = now
		u.Trace = []domain.Transition{
			{From: domain.StateOffline, To: domain.StateLurking, At: now},
			{From: domain.StateLurking, To: domain.StateActive, At: now},
		}
		u.ActivityLevel = 0.9
		u.Bits = spec.Bits
		u.SubscriberMonths = spec.Months
		if spec.Months > 0 {
			u.SubTier = domain.SubTier3
		}
		u.Color = spec.Color
		u.AvatarURL = "https://api.dicebear.com/7.x/bottts/svg?seed=" + spec.Username
		u.Bio = "Keeping chat friendly since day one."
		u.AccountCreated = now.AddDate(-5, 0, 0)
		u.Badges = profile.Badges(u.SubscriberMonths, u.Bits, true)

		if err := r.pool.Insert(u); err != nil {
			r.logger.Error("Failed to insert moderator", "username", spec.Username, "error", err)
			continue
		}
		if r.ledger != nil && spec.Points > 0 {
			r.ledger.Grant(u.ID, spec.Points)
		}
		r.names[u.Username] = u.ID
		out = append(out, u.Clone())
	}

	r.logger.Info("Moderators joined", "count", len(out))
	return out
}

// IsModerator 名稱是否屬於已注入的 Moderator
func (r *Registry) IsModerator(username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.names[username]
	return ok
}

// Usernames 已注入的 Moderator 名稱
func (r *Registry) Usernames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.names))
	for _, spec := range r.cfg.Moderators {
		if _, ok := r.names[spec.Username]; ok {
			out = append(out, spec.Username)
		}
	}
	return out
}
