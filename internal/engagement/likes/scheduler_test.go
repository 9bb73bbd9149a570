package likes

import (
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/virtual-audience/internal/audience/pool"
	"github.com/JoeShih716/virtual-audience/internal/chat"
	"github.com/JoeShih716/virtual-audience/internal/core/domain"
	"github.com/JoeShih716/virtual-audience/internal/core/random"
	"github.com/JoeShih716/virtual-audience/internal/core/task"
)

type fixture struct {
	sched *Scheduler
	pool  *pool.Pool
	feed  *chat.Feed
	clock *task.Manual
}

func setup(t *testing.T, cfg Config, active int) fixture {
	t.Helper()
	clock := task.NewManual(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	rnd := random.New(17)
	pcfg := pool.DefaultConfig()
	pcfg.RosterSizePerPersonality = 0
	p := pool.New(pcfg, clock, rnd, slog.Default())
	for i := 0; i < active; i++ {
		personality := domain.Personalities()[i%len(domain.Personalities())]
		u := domain.NewSyntheticUser(fmt.Sprintf("viewer_%d", i), personality)
		u.State = domain.StateActive
		require.NoError(t, p.Insert(u))
	}
	feed := chat.NewFeed(0, clock)
	return fixture{
		sched: New(cfg, p, feed, clock, rnd, slog.Default()),
		pool:  p,
		feed:  feed,
		clock: clock,
	}
}

func TestScheduleLikes_ModeratorMessageWithNoActiveUsers(t *testing.T) {
	f := setup(t, DefaultConfig(), 0)
	msg := f.feed.Add(domain.ChatMessage{Username: "StreamGuardian", Text: "Welcome in everyone!", IsModerator: true})

	assert.Equal(t, 0, f.sched.ScheduleLikes(msg))
	assert.Equal(t, 0, f.sched.Pending(msg.ID))
}

func TestLikeProbability(t *testing.T) {
	f := setup(t, DefaultConfig(), 0)
	cfg := DefaultConfig()

	plain := domain.ChatMessage{Text: "nice weather today folks"}
	mod := domain.ChatMessage{Text: "nice weather today folks", IsModerator: true}
	hype := domain.ChatMessage{Text: "LETS GO that was INSANE"}
	short := domain.ChatMessage{Text: "ok"}

	assert.InDelta(t, cfg.BaseProbability, f.sched.LikeProbability(plain), 1e-9)
	assert.Greater(t, f.sched.LikeProbability(mod), f.sched.LikeProbability(plain))
	assert.Greater(t, f.sched.LikeProbability(hype), f.sched.LikeProbability(plain))
	assert.Less(t, f.sched.LikeProbability(short), f.sched.LikeProbability(plain))
	assert.LessOrEqual(t, f.sched.LikeProbability(domain.ChatMessage{Text: "POG LOL what?", IsModerator: true}), cfg.MaxProbability)
}

func TestDelay_Bounded(t *testing.T) {
	f := setup(t, DefaultConfig(), 0)
	cfg := DefaultConfig()

	long := domain.ChatMessage{Text: string(make([]byte, 2000))}
	for _, p := range domain.Personalities() {
		u := domain.SyntheticUser{Personality: p}
		for i := 0; i < 50; i++ {
			d := f.sched.Delay(u, long)
			assert.GreaterOrEqual(t, d, cfg.MinDelay)
			assert.LessOrEqual(t, d, cfg.MaxDelay)
		}
	}

	hypeMsg := domain.ChatMessage{Text: "pog pog pog this is hype"}
	var fast, slow time.Duration
	for i := 0; i < 200; i++ {
		fast += f.sched.Delay(domain.SyntheticUser{Personality: domain.PersonalityHype}, hypeMsg)
		slow += f.sched.Delay(domain.SyntheticUser{Personality: domain.PersonalityAnalyst}, hypeMsg)
	}
	assert.Less(t, fast, slow)
}

func TestScheduleLikes_FiresStaggered(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BaseProbability = 1
	f := setup(t, cfg, 8)

	msg := f.feed.Add(domain.ChatMessage{Username: "viewer_0", Text: "what a play"})
	n := f.sched.ScheduleLikes(msg)
	assert.Equal(t, 7, n, "everyone but the author")
	assert.Equal(t, 0, f.sched.ScheduleLikes(msg), "no double scheduling")

	f.clock.Advance(cfg.MinDelay - time.Millisecond)
	got, _ := f.feed.Get(msg.ID)
	assert.Equal(t, 0, got.Likes, "nothing before the minimum delay")

	f.clock.Advance(cfg.MaxDelay)
	got, _ = f.feed.Get(msg.ID)
	assert.Equal(t, 7, got.Likes)
	assert.NotContains(t, got.LikedBy, "viewer_0")
	assert.Equal(t, 0, f.sched.Pending(msg.ID))
}

func TestScheduleLikes_CancelledWhenMessageRemoved(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BaseProbability = 1
	f := setup(t, cfg, 5)

	msg := f.feed.Add(domain.ChatMessage{Username: "someone", Text: "hello chat"})
	require.Equal(t, 5, f.sched.ScheduleLikes(msg))

	require.True(t, f.feed.Remove(msg.ID))
	assert.Equal(t, 0, f.sched.Pending(msg.ID))

	before := f.clock.Fired()
	f.clock.Advance(time.Minute)
	assert.Equal(t, before, f.clock.Fired())
}

func TestScheduleLikes_SkipsUsersWhoLeft(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BaseProbability = 1
	f := setup(t, cfg, 3)

	msg := f.feed.Add(domain.ChatMessage{Username: "someone", Text: "hello chat"})
	require.Equal(t, 3, f.sched.ScheduleLikes(msg))

	leaver := f.pool.GetByUsername("viewer_1")
	require.NoError(t, f.pool.Ban(leaver.ID, "mod", "spam"))

	f.clock.Advance(time.Minute)
	got, _ := f.feed.Get(msg.ID)
	assert.Equal(t, 2, got.Likes)
	assert.NotContains(t, got.LikedBy, "viewer_1")
}
