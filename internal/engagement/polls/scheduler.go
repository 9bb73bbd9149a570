// Package polls 為進行中的投票安排觀眾投票。
// 參與率、選項偏好與投票時間點都依個性而定；選項在觸發當下才依當時票數決定。
package polls

import (
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/JoeShih716/virtual-audience/internal/audience/pool"
	"github.com/JoeShih716/virtual-audience/internal/chat"
	"github.com/JoeShih716/virtual-audience/internal/core/domain"
	"github.com/JoeShih716/virtual-audience/internal/core/random"
	"github.com/JoeShih716/virtual-audience/internal/core/task"
)

// Fraction 投票時間點，以投票總時長的比例表示
type Fraction struct {
	From float64 `yaml:"from"`
	To   float64 `yaml:"to"`
}

// Config 投票排程設定
type Config struct {
	Participation    map[domain.Personality]float64  `yaml:"participation"`
	Windows          map[domain.Personality]Fraction `yaml:"windows"`
	LogicalKeywords  []string                        `yaml:"logical_keywords"`
	PositiveKeywords []string                        `yaml:"positive_keywords"`
}

// DefaultConfig 預設設定
func DefaultConfig() Config {
	return Config{
		Participation: map[domain.Personality]float64{
			domain.PersonalityHype:       0.9,
			domain.PersonalityMeme:       0.7,
			domain.PersonalityAnalyst:    0.8,
			domain.PersonalityLurker:     0.3,
			domain.PersonalityWholesome:  0.75,
			domain.PersonalityContrarian: 0.85,
			domain.PersonalityBandwagon:  0.8,
			domain.PersonalityCasual:     0.5,
		},
		Windows: map[domain.Personality]Fraction{
			domain.PersonalityHype:       {From: 0, To: 0.2},
			domain.PersonalityMeme:       {From: 0.05, To: 0.4},
			domain.PersonalityAnalyst:    {From: 0.3, To: 0.7},
			domain.PersonalityLurker:     {From: 0.6, To: 0.95},
			domain.PersonalityWholesome:  {From: 0.1, To: 0.5},
			domain.PersonalityContrarian: {From: 0.4, To: 0.8},
			domain.PersonalityBandwagon:  {From: 0.5, To: 0.9},
			domain.PersonalityCasual:     {From: 0.1, To: 0.9},
		},
		LogicalKeywords:  []string{"optimal", "logical", "best", "efficient", "smart", "strategy", "data", "safe"},
		PositiveKeywords: []string{"love", "yes", "happy", "good", "great", "fun", "cute", "nice", "kind", "wholesome"},
	}
}

// Scheduler 投票排程器
type Scheduler struct {
	cfg    Config
	pool   *pool.Pool
	board  *chat.Polls
	rnd    *random.Source
	logger *slog.Logger
	tasks  *task.Keyed[string]

	mu        sync.Mutex
	scheduled map[string]map[string]bool // poll id -> username
}

// New 建立投票排程器；投票結束時自動取消剩餘排程
func New(cfg Config, p *pool.Pool, board *chat.Polls, s task.Scheduler, rnd *random.Source, logger *slog.Logger) *Scheduler {
	sc := &Scheduler{
		cfg:       cfg,
		pool:      p,
		board:     board,
		rnd:       rnd,
		logger:    logger.With("component", "poll_voting"),
		tasks:     task.NewKeyed[string](s),
		scheduled: make(map[string]map[string]bool),
	}
	board.OnEnded(func(p domain.Poll) { sc.CancelPoll(p.ID) })
	return sc
}

// Delay 依個性在投票時長的對應比例區間內取一個延遲
func (s *Scheduler) Delay(p domain.Personality, duration time.Duration) time.Duration {
	w, ok := s.cfg.Windows[p]
	if !ok {
		w = Fraction{From: 0.1, To: 0.9}
	}
	frac := s.rnd.FloatBetween(w.From, w.To)
	return time.Duration(frac * float64(duration))
}

// SchedulePoll 為每位 active 觀眾擲骰決定是否投票；同一投票不會重複安排同一人
//
// 回傳值:
//
//	int: 本次安排的投票數
func (s *Scheduler) SchedulePoll(poll domain.Poll) int {
	if poll.Ended {
		return 0
	}
	now := s.pool.Clock().Now()
	voters := s.pool.Select(func(u *domain.SyntheticUser) bool {
		return u.State == domain.StateActive && !u.Muted(now)
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.scheduled[poll.ID]
	if !ok {
		set = make(map[string]bool)
		s.scheduled[poll.ID] = set
	}

	n := 0
	for _, u := range voters {
		if set[u.Username] || slices.Contains(poll.Voters, u.Username) {
			continue
		}
		if !s.rnd.Chance(s.cfg.Participation[u.Personality]) {
			continue
		}
		set[u.Username] = true
		pollID, userID, username, personality := poll.ID, u.ID, u.Username, u.Personality
		s.tasks.Schedule(pollID, s.Delay(personality, poll.Duration), func() {
			s.fire(pollID, userID, username, personality)
		})
		n++
	}
	s.logger.Debug("Votes scheduled", "poll", poll.ID, "count", n)
	return n
}

func (s *Scheduler) fire(pollID, userID, username string, personality domain.Personality) {
	poll, ok := s.board.Get(pollID)
	if !ok || poll.Ended {
		return
	}
	u := s.pool.Get(userID)
	if u == nil || u.State != domain.StateActive || u.Moderation.Banned {
		return
	}
	option := s.ChooseOption(personality, poll)
	if option < 0 {
		return
	}
	if _, err := s.board.Vote(pollID, username, option); err != nil {
		s.logger.Debug("Scheduled vote rejected", "poll", pollID, "user", username, "error", err)
	}
}

// ChooseOption 依個性選擇選項 (以當下票數計算)：
// contrarian 選最少票、bandwagon 選最多票、analyst 偏好理性關鍵字、wholesome 偏好正面關鍵字，
// hype/meme 依票數加權，其他隨機。
func (s *Scheduler) ChooseOption(p domain.Personality, poll domain.Poll) int {
	n := len(poll.Options)
	if n == 0 {
		return -1
	}

	switch p {
	case domain.PersonalityContrarian:
		return s.extreme(poll.Options, func(a, b int) bool { return a < b })
	case domain.PersonalityBandwagon:
		if poll.TotalVotes() == 0 {
			return s.rnd.IntN(n)
		}
		return s.extreme(poll.Options, func(a, b int) bool { return a > b })
	case domain.PersonalityAnalyst:
		if idx, ok := s.keywordPick(poll.Options, s.cfg.LogicalKeywords); ok {
			return idx
		}
		return s.weighted(poll.Options)
	case domain.PersonalityWholesome:
		if idx, ok := s.keywordPick(poll.Options, s.cfg.PositiveKeywords); ok {
			return idx
		}
		return s.rnd.IntN(n)
	case domain.PersonalityHype, domain.PersonalityMeme:
		return s.weighted(poll.Options)
	}
	return s.rnd.IntN(n)
}

// extreme 回傳 better 意義下票數最極端的選項，同票時隨機
func (s *Scheduler) extreme(options []domain.PollOption, better func(a, b int) bool) int {
	best := []int{0}
	for i := 1; i < len(options); i++ {
		switch v, cur := options[i].Votes, options[best[0]].Votes; {
		case better(v, cur):
			best = []int{i}
		case v == cur:
			best = append(best, i)
		}
	}
	idx, _ := random.Pick(s.rnd, best)
	return idx
}

// weighted 依 (票數 + 1) 加權隨機
func (s *Scheduler) weighted(options []domain.PollOption) int {
	weights := make([]float64, len(options))
	for i, o := range options {
		weights[i] = float64(o.Votes + 1)
	}
	return s.rnd.WeightedIndex(weights)
}

func (s *Scheduler) keywordPick(options []domain.PollOption, keywords []string) (int, bool) {
	matched := make([]int, 0)
	for i, o := range options {
		text := strings.ToLower(o.Text)
		for _, k := range keywords {
			if strings.Contains(text, k) {
				matched = append(matched, i)
				break
			}
		}
	}
	return random.Pick(s.rnd, matched)
}

// CancelPoll 取消投票所有尚未觸發的排程
func (s *Scheduler) CancelPoll(pollID string) int {
	s.mu.Lock()
	delete(s.scheduled, pollID)
	s.mu.Unlock()
	return s.tasks.CancelKey(pollID)
}

// CancelAll 取消所有投票排程
func (s *Scheduler) CancelAll() int {
	s.mu.Lock()
	clear(s.scheduled)
	s.mu.Unlock()
	return s.tasks.CancelAll()
}

// Pending 投票尚未觸發的排程數
func (s *Scheduler) Pending(pollID string) int {
	return s.tasks.Pending(pollID)
}
