// Package likes 為新訊息安排錯開的按讚。
//
// 每位 active 觀眾各自擲骰決定是否按讚，再依個性與內容計算延遲；
// 觸發時再確認訊息仍存在、觀眾仍在場且尚未按讚。
package likes

import (
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/JoeShih716/virtual-audience/internal/audience/pool"
	"github.com/JoeShih716/virtual-audience/internal/chat"
	"github.com/JoeShih716/virtual-audience/internal/core/domain"
	"github.com/JoeShih716/virtual-audience/internal/core/random"
	"github.com/JoeShih716/virtual-audience/internal/core/task"
)

// Config 按讚排程設定
type Config struct {
	BaseProbability      float64 `yaml:"base_probability"`
	ModeratorProbability float64 `yaml:"moderator_probability"`
	HypeBonus            float64 `yaml:"hype_bonus"`
	FunnyBonus           float64 `yaml:"funny_bonus"`
	QuestionBonus        float64 `yaml:"question_bonus"`
	LongMessageBonus     float64 `yaml:"long_message_bonus"`
	ShortMessagePenalty  float64 `yaml:"short_message_penalty"`
	LongMessageChars     int     `yaml:"long_message_chars"`
	ShortMessageChars    int     `yaml:"short_message_chars"`
	MaxProbability       float64 `yaml:"max_probability"`

	ReadingPerChar time.Duration `yaml:"reading_per_char"`
	DecisionTime   random.Window `yaml:"decision_time"`
	FastFactor     float64       `yaml:"fast_factor"` // hype/meme 觀眾對熱烈/好笑內容的加速倍率
	SlowFactor     float64       `yaml:"slow_factor"` // analyst/lurker 的減速倍率
	MinDelay       time.Duration `yaml:"min_delay"`
	MaxDelay       time.Duration `yaml:"max_delay"`

	HypeMarkers  []string `yaml:"hype_markers"`
	FunnyMarkers []string `yaml:"funny_markers"`
}

// DefaultConfig 預設設定
func DefaultConfig() Config {
	return Config{
		BaseProbability:      0.12,
		ModeratorProbability: 0.6,
		HypeBonus:            0.15,
		FunnyBonus:           0.12,
		QuestionBonus:        0.05,
		LongMessageBonus:     0.05,
		ShortMessagePenalty:  0.05,
		LongMessageChars:     80,
		ShortMessageChars:    8,
		MaxProbability:       0.9,
		ReadingPerChar:       40 * time.Millisecond,
		DecisionTime:         random.Window{Min: 500 * time.Millisecond, Max: 3 * time.Second},
		FastFactor:           0.6,
		SlowFactor:           1.6,
		MinDelay:             800 * time.Millisecond,
		MaxDelay:             20 * time.Second,
		HypeMarkers:          []string{"pog", "hype", "lets go", "let's go", "gg", "clutch", "insane", "!!!", "w stream"},
		FunnyMarkers:         []string{"lol", "lmao", "kekw", "haha", "xd", "omegalul", "💀", "😂"},
	}
}

// Scheduler 按讚排程器
type Scheduler struct {
	cfg    Config
	pool   *pool.Pool
	feed   *chat.Feed
	rnd    *random.Source
	logger *slog.Logger
	tasks  *task.Keyed[string]

	mu        sync.Mutex
	scheduled map[string]map[string]bool // message id -> username
}

// New 建立按讚排程器；訊息被移除時自動取消其排程
func New(cfg Config, p *pool.Pool, feed *chat.Feed, s task.Scheduler, rnd *random.Source, logger *slog.Logger) *Scheduler {
	sc := &Scheduler{
		cfg:       cfg,
		pool:      p,
		feed:      feed,
		rnd:       rnd,
		logger:    logger.With("component", "staggered_likes"),
		tasks:     task.NewKeyed[string](s),
		scheduled: make(map[string]map[string]bool),
	}
	feed.OnRemoved(func(id string) { sc.CancelMessage(id) })
	return sc
}

// Content 訊息內容特徵
type Content struct {
	Hype     bool
	Funny    bool
	Question bool
	Chars    int
}

// Analyze 分析訊息內容
func (s *Scheduler) Analyze(text string) Content {
	lower := strings.ToLower(text)
	return Content{
		Hype:     containsAny(lower, s.cfg.HypeMarkers),
		Funny:    containsAny(lower, s.cfg.FunnyMarkers),
		Question: strings.Contains(text, "?"),
		Chars:    utf8.RuneCountInString(text),
	}
}

// LikeProbability 單一觀眾對此訊息按讚的機率
func (s *Scheduler) LikeProbability(msg domain.ChatMessage) float64 {
	p := s.cfg.BaseProbability
	if msg.IsModerator {
		p = s.cfg.ModeratorProbability
	}

	c := s.Analyze(msg.Text)
	if c.Hype {
		p += s.cfg.HypeBonus
	}
	if c.Funny {
		p += s.cfg.FunnyBonus
	}
	if c.Question {
		p += s.cfg.QuestionBonus
	}
	switch {
	case c.Chars >= s.cfg.LongMessageChars:
		p += s.cfg.LongMessageBonus
	case c.Chars <= s.cfg.ShortMessageChars:
		p -= s.cfg.ShortMessagePenalty
	}
	return min(max(p, 0), s.cfg.MaxProbability)
}

// Delay 閱讀時間 (與長度成正比) + 隨機決定時間，再依個性與內容縮放並限制在 [MinDelay, MaxDelay]
func (s *Scheduler) Delay(user domain.SyntheticUser, msg domain.ChatMessage) time.Duration {
	c := s.Analyze(msg.Text)
	d := time.Duration(c.Chars)*s.cfg.ReadingPerChar + s.cfg.DecisionTime.Sample(s.rnd)

	switch user.Personality {
	case domain.PersonalityHype, domain.PersonalityMeme:
		if c.Hype || c.Funny {
			d = time.Duration(float64(d) * s.cfg.FastFactor)
		}
	case domain.PersonalityAnalyst, domain.PersonalityLurker:
		d = time.Duration(float64(d) * s.cfg.SlowFactor)
	}
	return min(max(d, s.cfg.MinDelay), s.cfg.MaxDelay)
}

// ScheduleLikes 為訊息安排按讚。沒有 active 觀眾時安排 0 個，不是錯誤。
//
// 回傳值:
//
//	int: 本次安排的按讚數
func (s *Scheduler) ScheduleLikes(msg domain.ChatMessage) int {
	prob := s.LikeProbability(msg)
	now := s.pool.Clock().Now()
	candidates := s.pool.Select(func(u *domain.SyntheticUser) bool {
		return u.State == domain.StateActive && u.Username != msg.Username && !u.Muted(now)
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.scheduled[msg.ID]
	if !ok {
		set = make(map[string]bool)
	}

	n := 0
	for _, u := range candidates {
		if set[u.Username] || msg.LikedByUser(u.Username) || !s.rnd.Chance(prob) {
			continue
		}
		set[u.Username] = true
		userID, username, msgID := u.ID, u.Username, msg.ID
		s.tasks.Schedule(msgID, s.Delay(u, msg), func() { s.fire(msgID, userID, username) })
		n++
	}
	if len(set) > 0 {
		s.scheduled[msg.ID] = set
	}
	if n > 0 {
		s.logger.Debug("Likes scheduled", "message", msg.ID, "count", n, "probability", prob)
	}
	return n
}

func (s *Scheduler) fire(msgID, userID, username string) {
	u := s.pool.Get(userID)
	if u == nil || u.State != domain.StateActive || u.Moderation.Banned {
		return
	}
	if _, ok := s.feed.AddLike(msgID, username, false); !ok {
		return
	}
	s.pool.RecordLike(userID)
}

// CancelMessage 取消訊息所有尚未觸發的按讚
func (s *Scheduler) CancelMessage(msgID string) int {
	s.mu.Lock()
	delete(s.scheduled, msgID)
	s.mu.Unlock()
	return s.tasks.CancelKey(msgID)
}

// CancelAll 取消所有尚未觸發的按讚
func (s *Scheduler) CancelAll() int {
	s.mu.Lock()
	clear(s.scheduled)
	s.mu.Unlock()
	return s.tasks.CancelAll()
}

// Pending 訊息尚未觸發的按讚數
func (s *Scheduler) Pending(msgID string) int {
	return s.tasks.Pending(msgID)
}

// Total 全部尚未觸發的按讚數
func (s *Scheduler) Total() int {
	return s.tasks.Len()
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if m != "" && strings.Contains(s, m) {
			return true
		}
	}
	return false
}
