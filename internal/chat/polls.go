package chat

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JoeShih716/virtual-audience/internal/core/domain"
	"github.com/JoeShih716/virtual-audience/internal/core/observer"
	"github.com/JoeShih716/virtual-audience/internal/core/task"
)

// Polls 投票看板：保存票數並在時間到時自動結束
type Polls struct {
	clock  task.Scheduler
	timers *task.Keyed[string]

	mu    sync.RWMutex
	polls map[string]*domain.Poll

	votes observer.List[domain.VoteEvent]
	ended observer.List[domain.Poll]
}

// NewPolls 建立投票看板
func NewPolls(clock task.Scheduler) *Polls {
	return &Polls{
		clock:  clock,
		timers: task.NewKeyed[string](clock),
		polls:  make(map[string]*domain.Poll),
	}
}

// Create 建立投票 (至少兩個選項，時間必須為正)
func (b *Polls) Create(question string, options []string, duration time.Duration) (domain.Poll, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return domain.Poll{}, domain.Reject(domain.ErrInvalidPoll, "question is empty")
	}
	if len(options) < 2 {
		return domain.Poll{}, domain.Reject(domain.ErrInvalidPoll, "need at least 2 options, got %d", len(options))
	}
	if duration <= 0 {
		return domain.Poll{}, domain.Reject(domain.ErrInvalidPoll, "duration must be positive, got %s", duration)
	}

	p := &domain.Poll{
		ID:        uuid.NewString(),
		Question:  question,
		Options:   make([]domain.PollOption, 0, len(options)),
		Duration:  duration,
		CreatedAt: b.clock.Now(),
	}
	for _, o := range options {
		p.Options = append(p.Options, domain.PollOption{Text: o})
	}

	b.mu.Lock()
	b.polls[p.ID] = p
	out := p.Clone()
	b.mu.Unlock()

	id := p.ID
	b.timers.Schedule(id, duration, func() { _, _ = b.End(id) })
	return out, nil
}

// Vote 投票。每位使用者每個投票只能投一次。
func (b *Polls) Vote(pollID, username string, option int) (domain.Poll, error) {
	b.mu.Lock()
	p, ok := b.polls[pollID]
	if !ok {
		b.mu.Unlock()
		return domain.Poll{}, domain.Reject(domain.ErrPollNotFound, "poll %s", pollID)
	}
	if p.Ended {
		b.mu.Unlock()
		return domain.Poll{}, domain.Reject(domain.ErrPollEnded, "poll %s", pollID)
	}
	if option < 0 || option >= len(p.Options) {
		b.mu.Unlock()
		return domain.Poll{}, domain.Reject(domain.ErrInvalidPoll, "option %d out of range", option)
	}
	if slices.Contains(p.Voters, username) {
		b.mu.Unlock()
		return domain.Poll{}, domain.Reject(domain.ErrAlreadyVoted, "%s on poll %s", username, pollID)
	}
	p.Options[option].Votes++
	p.Voters = append(p.Voters, username)
	out := p.Clone()
	b.mu.Unlock()

	b.votes.Emit(domain.VoteEvent{
		PollID:   pollID,
		Username: username,
		Option:   option,
		Options:  out.Options,
		At:       b.clock.Now(),
	})
	return out, nil
}

// End 結束投票；重複結束回傳 ErrPollEnded
func (b *Polls) End(pollID string) (domain.Poll, error) {
	b.mu.Lock()
	p, ok := b.polls[pollID]
	if !ok {
		b.mu.Unlock()
		return domain.Poll{}, domain.Reject(domain.ErrPollNotFound, "poll %s", pollID)
	}
	if p.Ended {
		b.mu.Unlock()
		return domain.Poll{}, domain.Reject(domain.ErrPollEnded, "poll %s", pollID)
	}
	p.Ended = true
	out := p.Clone()
	b.mu.Unlock()

	b.timers.CancelKey(pollID)
	b.ended.Emit(out)
	return out, nil
}

// Get 取得投票複本
func (b *Polls) Get(pollID string) (domain.Poll, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	p, ok := b.polls[pollID]
	if !ok {
		return domain.Poll{}, false
	}
	return p.Clone(), true
}

// Active 進行中的投票
func (b *Polls) Active() []domain.Poll {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]domain.Poll, 0)
	for _, p := range b.polls {
		if !p.Ended {
			out = append(out, p.Clone())
		}
	}
	return out
}

// OnVote 註冊投票監聽
func (b *Polls) OnVote(fn func(domain.VoteEvent)) observer.ID {
	return b.votes.Add(fn)
}

// OnEnded 註冊投票結束監聽
func (b *Polls) OnEnded(fn func(domain.Poll)) observer.ID {
	return b.ended.Add(fn)
}

// Close 取消所有自動結束計時
func (b *Polls) Close() {
	b.timers.CancelAll()
}
