// Package simulation 持有整個虛擬觀眾模擬的所有元件。
//
// 每個 Simulation 是獨立的上下文：不使用全域單例，測試可以同時建立多個實例，
// 並以 task.Manual 與固定種子完整重現。
package simulation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/JoeShih716/virtual-audience/internal/audience/lifecycle"
	"github.com/JoeShih716/virtual-audience/internal/audience/moderator"
	"github.com/JoeShih716/virtual-audience/internal/audience/pool"
	"github.com/JoeShih716/virtual-audience/internal/chat"
	"github.com/JoeShih716/virtual-audience/internal/core/domain"
	"github.com/JoeShih716/virtual-audience/internal/core/ports"
	"github.com/JoeShih716/virtual-audience/internal/core/random"
	"github.com/JoeShih716/virtual-audience/internal/core/task"
	"github.com/JoeShih716/virtual-audience/internal/economy/cheer"
	"github.com/JoeShih716/virtual-audience/internal/economy/gift"
	"github.com/JoeShih716/virtual-audience/internal/economy/points"
	"github.com/JoeShih716/virtual-audience/internal/economy/subs"
	"github.com/JoeShih716/virtual-audience/internal/engagement/likes"
	"github.com/JoeShih716/virtual-audience/internal/engagement/polls"
	"github.com/JoeShih716/virtual-audience/internal/engagement/retrolikes"
	"github.com/JoeShih716/virtual-audience/internal/orchestrator"
	"github.com/JoeShih716/virtual-audience/internal/raid"
)

// Options 外部注入的依賴；零值欄位使用預設 (真實時鐘、依設定種子、slog.Default)
type Options struct {
	Scheduler task.Scheduler
	Rand      *random.Source
	Logger    *slog.Logger
	Sink      ports.EventSink   // 對外事件輸出，可為 nil
	Messages  ports.MessageSink // Raid 訊息輸出，可為 nil
}

// Simulation 模擬上下文
type Simulation struct {
	cfg    Config
	clock  task.Scheduler
	rnd    *random.Source
	sink   ports.EventSink
	logger *slog.Logger

	pool       *pool.Pool
	moderators *moderator.Registry
	lifecycle  *lifecycle.Scheduler
	feed       *chat.Feed
	board      *chat.Polls
	points     *points.Manager
	cheer      *cheer.Manager
	gift       *gift.Manager
	subs       *subs.Manager
	likes      *likes.Scheduler
	retro      *retrolikes.Scheduler
	voting     *polls.Scheduler
	raid       *raid.Simulator
	engagement *orchestrator.Orchestrator

	sweeps *task.Group

	mu      sync.Mutex
	running bool
}

// New 建立模擬上下文並產生觀眾名單 (尚未啟動任何排程)
//
// 參數:
//
//	cfg: Config - 各元件設定
//	opts: Options - 時鐘、亂數、Logger 與輸出端
//
// 回傳值:
//
//	*Simulation: 模擬上下文
func New(cfg Config, opts Options) *Simulation {
	clock := opts.Scheduler
	if clock == nil {
		clock = task.NewReal()
	}
	rnd := opts.Rand
	if rnd == nil {
		if cfg.Seed != 0 {
			rnd = random.New(cfg.Seed)
		} else {
			rnd = random.NewFromTime()
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Simulation{
		cfg:    cfg,
		clock:  clock,
		rnd:    rnd,
		sink:   opts.Sink,
		logger: logger.With("component", "simulation"),
		sweeps: task.NewGroup(clock),
	}

	s.pool = pool.New(cfg.Pool, clock, rnd, logger)
	s.points = points.New(cfg.Points, s.pool, clock, rnd, logger)
	s.moderators = moderator.New(cfg.Moderators, s.pool, s.points, logger)
	s.lifecycle = lifecycle.New(cfg.Lifecycle, s.pool, clock, rnd, logger)
	s.feed = chat.NewFeed(cfg.FeedCapacity, clock)
	s.board = chat.NewPolls(clock)
	s.cheer = cheer.New(cfg.Cheer, s.pool, s.pool, clock, rnd, logger)
	s.gift = gift.New(cfg.Gift, s.pool, s.pool, clock, rnd, logger)
	s.subs = subs.New(cfg.Subs, s.pool, clock, rnd, logger)
	s.likes = likes.New(cfg.Likes, s.pool, s.feed, clock, rnd, logger)
	s.retro = retrolikes.New(cfg.RetroLikes, s.pool, s.feed, clock, rnd, logger)
	s.voting = polls.New(cfg.Polls, s.pool, s.board, clock, rnd, logger)
	s.raid = raid.New(cfg.Raid, s.lifecycle, s.pool, s.feed, opts.Messages, clock, rnd, logger)
	s.engagement = orchestrator.New(cfg.Orchestrator, orchestrator.Managers{
		Cheer:  s.cheer,
		Gift:   s.gift,
		Subs:   s.subs,
		Points: s.points,
	}, opts.Sink, clock, rnd, logger)

	s.wire()
	s.pool.Initialize()
	return s
}

// wire 把元件事件接到 EventSink；這些監聽在整個生命週期內有效
func (s *Simulation) wire() {
	s.lifecycle.OnViewerCountChanged(func(ev domain.ViewerCountEvent) {
		s.publish(domain.NewEnvelope(domain.EventViewerCount, "", ev.At, ev))
	})
	s.feed.OnAdded(func(msg domain.ChatMessage) {
		s.likes.ScheduleLikes(msg)
		if msg.Kind == domain.MessageKindRaid {
			s.publish(domain.NewEnvelope(domain.EventSyntheticChat, msg.ID, msg.CreatedAt, msg))
		}
	})
	s.feed.OnLikesChanged(func(ev domain.LikeEvent) {
		s.publish(domain.NewEnvelope(domain.EventMessageLiked, "", ev.At, ev))
	})
	s.board.OnVote(func(ev domain.VoteEvent) {
		s.publish(domain.NewEnvelope(domain.EventPollVote, "", ev.At, ev))
	})
	s.raid.OnStarted(func(ev domain.RaidEvent) {
		s.publish(domain.NewEnvelope(domain.EventRaidStarted, ev.RaidID+"-start", ev.At, ev))
	})
	s.raid.OnEnded(func(ev domain.RaidEvent) {
		s.publish(domain.NewEnvelope(domain.EventRaidEnded, ev.RaidID+"-end", ev.At, ev))
	})
}

// Start 加入 Moderator 並啟動所有週期性排程；已啟動時回傳 false
func (s *Simulation) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return false
	}
	s.running = true

	s.moderators.EnsureJoined()
	s.lifecycle.Start()
	s.retro.Start()
	s.engagement.Start()
	if s.cfg.ModerationSweep > 0 {
		s.sweeps.Every(func() time.Duration { return s.cfg.ModerationSweep }, func() {
			if n := s.pool.ClearExpiredTimeouts(); n > 0 {
				s.logger.Debug("Timeouts expired", "count", n)
			}
		})
	}

	s.logger.Info("Simulation started", "users", s.pool.Total(), "viewers", s.pool.ViewerCount())
	return true
}

// Stop 停止所有排程並取消所有尚未觸發的任務；未啟動時回傳 false
func (s *Simulation) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return false
	}
	s.running = false

	s.lifecycle.Stop()
	s.retro.Stop()
	s.engagement.Stop()
	s.sweeps.CancelAll()
	if s.raid.Active() {
		_ = s.raid.Stop()
	}
	s.likes.CancelAll()
	s.voting.CancelAll()
	s.board.Close()
	s.subs.Close()

	s.logger.Info("Simulation stopped")
	return true
}

// Running 是否運行中
func (s *Simulation) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// publish 送出事件封包；失敗只記錄
func (s *Simulation) publish(env domain.Envelope) {
	if s.sink == nil {
		return
	}
	ctx := context.Background()
	if s.cfg.PublishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.PublishTimeout)
		defer cancel()
	}
	if err := s.sink.Publish(ctx, env); err != nil {
		s.logger.Warn("Failed to publish event", "type", env.Type, "error", err)
	}
}

// Pool 觀眾池
func (s *Simulation) Pool() *pool.Pool { return s.pool }

// Moderators Moderator 名單
func (s *Simulation) Moderators() *moderator.Registry { return s.moderators }

// Lifecycle 觀眾生命週期排程器
func (s *Simulation) Lifecycle() *lifecycle.Scheduler { return s.lifecycle }

// Feed 最近訊息
func (s *Simulation) Feed() *chat.Feed { return s.feed }

// Polls 投票看板
func (s *Simulation) Polls() *chat.Polls { return s.board }

// Points Channel Points 管理器
func (s *Simulation) Points() *points.Manager { return s.points }

// Cheer Bits 贊助管理器
func (s *Simulation) CheerManager() *cheer.Manager { return s.cheer }

// Gift Bits 贈送管理器
func (s *Simulation) Gift() *gift.Manager { return s.gift }

// Subs 訂閱管理器
func (s *Simulation) Subs() *subs.Manager { return s.subs }

// Likes 按讚排程器
func (s *Simulation) Likes() *likes.Scheduler { return s.likes }

// Raid Raid 模擬器
func (s *Simulation) Raid() *raid.Simulator { return s.raid }

// Engagement 互動編排器
func (s *Simulation) Engagement() *orchestrator.Orchestrator { return s.engagement }
