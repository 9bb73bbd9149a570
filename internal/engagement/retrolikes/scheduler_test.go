package retrolikes

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

func setup(t *testing.T, cfg Config, active int) (*Scheduler, *chat.Feed, *task.Manual) {
	t.Helper()
	clock := task.NewManual(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	rnd := random.New(13)
	pcfg := pool.DefaultConfig()
	pcfg.RosterSizePerPersonality = 0
	p := pool.New(pcfg, clock, rnd, slog.Default())
	for i := 0; i < active; i++ {
		u := domain.NewSyntheticUser(fmt.Sprintf("viewer_%d", i), domain.PersonalityCasual)
		u.State = domain.StateActive
		require.NoError(t, p.Insert(u))
	}
	feed := chat.NewFeed(0, clock)
	return New(cfg, p, feed, clock, rnd, slog.Default()), feed, clock
}

func TestEligible(t *testing.T) {
	s, feed, clock := setup(t, DefaultConfig(), 3)

	fresh := feed.Add(domain.ChatMessage{Username: "a", Text: "just posted"})
	assert.Empty(t, s.Eligible(), "not read yet")

	clock.Advance(DefaultConfig().MinReadAge)
	feed.Add(domain.ChatMessage{Username: "mod", Text: "rules", IsModerator: true})
	full := feed.Add(domain.ChatMessage{Username: "b", Text: "popular", Likes: 8})
	clock.Advance(DefaultConfig().MinReadAge)

	eligible := s.Eligible()
	require.Len(t, eligible, 1)
	assert.Equal(t, fresh.ID, eligible[0].ID)
	assert.NotEqual(t, full.ID, eligible[0].ID)
}

func TestTick_AddsOneOrTwoLikes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Probability = 1
	s, feed, clock := setup(t, cfg, 5)

	msg := feed.Add(domain.ChatMessage{Username: "viewer_0", Text: "old message"})
	clock.Advance(cfg.MinReadAge)

	n := s.Tick()
	assert.GreaterOrEqual(t, n, 1)
	assert.LessOrEqual(t, n, 2)

	clock.Advance(cfg.Delay.Max)
	got, _ := feed.Get(msg.ID)
	assert.Equal(t, n, got.Likes)
	assert.NotContains(t, got.LikedBy, "viewer_0")
}

func TestTick_RespectsCeiling(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Probability = 1
	cfg.LikeCeiling = 3
	s, feed, clock := setup(t, cfg, 10)

	msg := feed.Add(domain.ChatMessage{Username: "someone", Text: "trickle"})
	clock.Advance(cfg.MinReadAge)

	for i := 0; i < 20; i++ {
		s.Tick()
		clock.Advance(cfg.Delay.Max)
	}
	got, _ := feed.Get(msg.ID)
	assert.Equal(t, 3, got.Likes)
}

func TestStartStop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Probability = 1
	s, feed, clock := setup(t, cfg, 10)
	msg := feed.Add(domain.ChatMessage{Username: "someone", Text: "trickle"})

	require.True(t, s.Start())
	assert.False(t, s.Start())
	clock.Advance(30 * time.Second)
	got, _ := feed.Get(msg.ID)
	assert.Positive(t, got.Likes)

	require.True(t, s.Stop())
	assert.Equal(t, 0, s.Pending())
	before, _ := feed.Get(msg.ID)
	clock.Advance(time.Minute)
	after, _ := feed.Get(msg.ID)
	assert.Equal(t, before.Likes, after.Likes)
}
