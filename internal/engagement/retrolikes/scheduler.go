// Package retrolikes 持續對最近訊息補上零星的按讚，讓讚數緩慢成長而非一次爆發。
// 與 likes 套件各自持有自己的排程，不共用取消登記表。
package retrolikes

import (
	"log/slog"
	"sync"
	"time"

	"github.com/JoeShih716/virtual-audience/internal/audience/pool"
	"github.com/JoeShih716/virtual-audience/internal/chat"
	"github.com/JoeShih716/virtual-audience/internal/core/domain"
	"github.com/JoeShih716/virtual-audience/internal/core/random"
	"github.com/JoeShih716/virtual-audience/internal/core/task"
)

// Config 補按讚設定
type Config struct {
	Interval    random.Window `yaml:"interval"`
	WindowSize  int           `yaml:"window_size"`
	LikeCeiling int           `yaml:"like_ceiling"`
	MinReadAge  time.Duration `yaml:"min_read_age"`
	Probability float64       `yaml:"probability"`
	MinLikes    int           `yaml:"min_likes"`
	MaxLikes    int           `yaml:"max_likes"`
	Delay       random.Window `yaml:"delay"`
}

// DefaultConfig 預設設定
func DefaultConfig() Config {
	return Config{
		Interval:    random.Window{Min: time.Second, Max: 4 * time.Second},
		WindowSize:  20,
		LikeCeiling: 8,
		MinReadAge:  3 * time.Second,
		Probability: 0.6,
		MinLikes:    1,
		MaxLikes:    2,
		Delay:       random.Window{Min: 500 * time.Millisecond, Max: 4 * time.Second},
	}
}

// Scheduler 補按讚排程器
type Scheduler struct {
	cfg    Config
	pool   *pool.Pool
	feed   *chat.Feed
	rnd    *random.Source
	logger *slog.Logger

	loop  *task.Group
	likes *task.Keyed[string]

	mu      sync.Mutex
	running bool
}

// New 建立補按讚排程器
func New(cfg Config, p *pool.Pool, feed *chat.Feed, s task.Scheduler, rnd *random.Source, logger *slog.Logger) *Scheduler {
	sc := &Scheduler{
		cfg:    cfg,
		pool:   p,
		feed:   feed,
		rnd:    rnd,
		logger: logger.With("component", "retro_likes"),
		loop:   task.NewGroup(s),
		likes:  task.NewKeyed[string](s),
	}
	feed.OnRemoved(func(id string) { sc.likes.CancelKey(id) })
	return sc
}

// Start 啟動週期檢查；已啟動時回傳 false
func (s *Scheduler) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return false
	}
	s.running = true
	s.loop.Every(func() time.Duration { return s.cfg.Interval.Sample(s.rnd) }, func() { s.Tick() })
	return true
}

// Stop 停止週期檢查並取消尚未觸發的補讚
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return false
	}
	s.running = false
	s.loop.CancelAll()
	s.likes.CancelAll()
	return true
}

// Running 是否運行中
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Pending 尚未觸發的補讚數
func (s *Scheduler) Pending() int {
	return s.likes.Len()
}

// Eligible 最近視窗中可補讚的訊息：未達上限、非 Moderator、已過最短閱讀時間
func (s *Scheduler) Eligible() []domain.ChatMessage {
	now := s.pool.Clock().Now()
	out := make([]domain.ChatMessage, 0)
	for _, m := range s.feed.Recent(s.cfg.WindowSize) {
		if m.IsModerator || m.Kind == domain.MessageKindSystem {
			continue
		}
		if m.Likes+s.likes.Pending(m.ID) >= s.cfg.LikeCeiling {
			continue
		}
		if now.Sub(m.CreatedAt) < s.cfg.MinReadAge {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Tick 執行一輪：挑一則合格訊息，依機率安排 1~2 個延遲補讚
//
// 回傳值:
//
//	int: 本輪安排的補讚數
func (s *Scheduler) Tick() int {
	msg, ok := random.Pick(s.rnd, s.Eligible())
	if !ok || !s.rnd.Chance(s.cfg.Probability) {
		return 0
	}

	room := s.cfg.LikeCeiling - msg.Likes - s.likes.Pending(msg.ID)
	want := min(s.rnd.IntBetween(s.cfg.MinLikes, s.cfg.MaxLikes), room)
	if want <= 0 {
		return 0
	}

	now := s.pool.Clock().Now()
	candidates := s.pool.Select(func(u *domain.SyntheticUser) bool {
		return u.State == domain.StateActive && u.Username != msg.Username && !u.Muted(now) && !msg.LikedByUser(u.Username)
	})
	s.rnd.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })
	if len(candidates) > want {
		candidates = candidates[:want]
	}

	for _, u := range candidates {
		userID, username, msgID := u.ID, u.Username, msg.ID
		s.likes.Schedule(msgID, s.cfg.Delay.Sample(s.rnd), func() { s.fire(msgID, userID, username) })
	}
	return len(candidates)
}

func (s *Scheduler) fire(msgID, userID, username string) {
	u := s.pool.Get(userID)
	if u == nil || u.State != domain.StateActive || u.Moderation.Banned {
		return
	}
	if _, ok := s.feed.AddLike(msgID, username, true); ok {
		s.pool.RecordLike(userID)
	}
}
