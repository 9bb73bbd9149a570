package simulation_test

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/JoeShih716/virtual-audience/internal/core/domain"
	"github.com/JoeShih716/virtual-audience/internal/core/random"
	"github.com/JoeShih716/virtual-audience/internal/core/task"
	"github.com/JoeShih716/virtual-audience/internal/raid"
	"github.com/JoeShih716/virtual-audience/internal/simulation"
	mock_ports "github.com/JoeShih716/virtual-audience/test/mocks/core/ports"
)

// quietConfig 關閉所有機率性行為，只留下測試主動觸發的事件
func quietConfig() simulation.Config {
	cfg := simulation.DefaultConfig()
	cfg.Pool.RosterSizePerPersonality = 4
	cfg.Lifecycle.BaseJoinProbability = 0
	cfg.Lifecycle.MinJoinProbability = 0
	cfg.Lifecycle.ActivateProbability = 0
	cfg.RetroLikes.Probability = 0
	cfg.Cheer.AIProbability = 0
	cfg.Gift.AIProbability = 0
	cfg.Subs.AISubscribeProbability = 0
	cfg.Subs.AIGiftSubProbability = 0
	cfg.Points.AIProbability = 0
	return cfg
}

type recorder struct {
	mu   sync.Mutex
	envs []domain.Envelope
}

func (r *recorder) add(env domain.Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envs = append(r.envs, env)
}

func (r *recorder) count(t domain.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.envs {
		if e.Type == t {
			n++
		}
	}
	return n
}

func (r *recorder) last(t domain.EventType) (domain.Envelope, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.envs) - 1; i >= 0; i-- {
		if r.envs[i].Type == t {
			return r.envs[i], true
		}
	}
	return domain.Envelope{}, false
}

type fixture struct {
	sim      *simulation.Simulation
	clock    *task.Manual
	events   *recorder
	messages *mock_ports.MockMessageSink
}

func setup(t *testing.T, cfg simulation.Config) fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	sink := mock_ports.NewMockEventSink(ctrl)
	messages := mock_ports.NewMockMessageSink(ctrl)

	rec := &recorder{}
	sink.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(func(_ any, env domain.Envelope) error {
		rec.add(env)
		return nil
	}).AnyTimes()

	clock := task.NewManual(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	sim := simulation.New(cfg, simulation.Options{
		Scheduler: clock,
		Rand:      random.New(99),
		Logger:    slog.Default(),
		Sink:      sink,
		Messages:  messages,
	})
	return fixture{sim: sim, clock: clock, events: rec, messages: messages}
}

func TestStartStop(t *testing.T) {
	f := setup(t, simulation.DefaultConfig())

	require.True(t, f.sim.Start())
	assert.False(t, f.sim.Start())
	assert.Len(t, f.sim.Snapshot().Moderators, 3)
	assert.Equal(t, 3, f.sim.Pool().Stats().Moderators)

	f.messages.EXPECT().PostSynthetic(gomock.Any()).AnyTimes()
	f.clock.Advance(2 * time.Minute)
	f.sim.PostMessage(domain.ChatMessage{Username: "streamer", Text: "thanks for hanging out lol"})
	_, err := f.sim.CreatePoll("next game?", []string{"chess", "tetris"}, time.Minute)
	require.NoError(t, err)
	require.NoError(t, f.sim.StartRaid(raid.Request{RaiderCount: 5, RaiderUsername: "pal", Intensity: raid.IntensityMedium}))

	require.True(t, f.sim.Stop())
	assert.False(t, f.sim.Stop())
	assert.False(t, f.sim.Running())
	assert.False(t, f.sim.Raid().Active())
	assert.Equal(t, 0, f.clock.Pending(), "stop cancels every outstanding task")

	fired := f.clock.Fired()
	f.clock.Advance(time.Hour)
	assert.Equal(t, fired, f.clock.Fired())
}

func TestPostMessage_SchedulesLikes(t *testing.T) {
	cfg := quietConfig()
	cfg.Likes.BaseProbability = 1
	cfg.Likes.MaxProbability = 1
	f := setup(t, cfg)
	f.sim.Start()
	defer f.sim.Stop()

	msg := f.sim.PostMessage(domain.ChatMessage{Username: "streamer", Text: "hello chat, how is everyone"})
	require.NotEmpty(t, msg.ID)
	assert.Equal(t, 3, f.sim.Likes().Pending(msg.ID), "every active moderator schedules a like")

	f.clock.Advance(cfg.Likes.MaxDelay)

	got, ok := f.sim.Feed().Get(msg.ID)
	require.True(t, ok)
	assert.Equal(t, 3, got.Likes)
	assert.Equal(t, 3, f.events.count(domain.EventMessageLiked))
	assert.Zero(t, f.sim.Likes().Pending(msg.ID))
}

func TestRemoveMessage_CancelsLikes(t *testing.T) {
	cfg := quietConfig()
	cfg.Likes.BaseProbability = 1
	cfg.Likes.MaxProbability = 1
	f := setup(t, cfg)
	f.sim.Start()
	defer f.sim.Stop()

	msg := f.sim.PostMessage(domain.ChatMessage{Username: "streamer", Text: "oops wrong chat"})
	require.True(t, f.sim.RemoveMessage(msg.ID))
	assert.Zero(t, f.sim.Likes().Pending(msg.ID))

	f.clock.Advance(time.Minute)
	assert.Zero(t, f.events.count(domain.EventMessageLiked))
}

func TestCreatePoll_VotesArriveBeforeEnd(t *testing.T) {
	cfg := quietConfig()
	for p := range cfg.Polls.Participation {
		cfg.Polls.Participation[p] = 1
	}
	f := setup(t, cfg)
	f.sim.Start()
	defer f.sim.Stop()

	poll, err := f.sim.CreatePoll("best strategy?", []string{"safe play", "yolo"}, time.Minute)
	require.NoError(t, err)

	f.clock.Advance(time.Minute)

	got, ok := f.sim.Polls().Get(poll.ID)
	require.True(t, ok)
	assert.True(t, got.Ended)
	assert.Equal(t, 3, got.TotalVotes())
	assert.Equal(t, 3, f.events.count(domain.EventPollVote))

	_, err = f.sim.EndPoll(poll.ID)
	assert.ErrorIs(t, err, domain.ErrPollEnded)
}

func TestRaid_PublishesLifecycleEnvelopes(t *testing.T) {
	f := setup(t, quietConfig())
	f.sim.Start()
	defer f.sim.Stop()

	var posted int
	f.messages.EXPECT().PostSynthetic(gomock.Any()).Do(func(domain.ChatMessage) { posted++ }).AnyTimes()

	require.NoError(t, f.sim.StartRaid(raid.Request{RaiderCount: 5, RaiderUsername: "pal", Intensity: raid.IntensityLow, Duration: 20 * time.Second}))
	assert.ErrorIs(t, f.sim.StartRaid(raid.Request{RaiderCount: 5, RaiderUsername: "other", Intensity: raid.IntensityLow}), domain.ErrRaidActive)
	assert.Equal(t, 1, f.events.count(domain.EventRaidStarted))

	f.clock.Advance(21 * time.Second)

	assert.False(t, f.sim.Raid().Active())
	assert.Equal(t, 1, f.events.count(domain.EventRaidEnded))
	assert.Equal(t, 5, f.sim.Raid().Status().Joined)
	assert.Equal(t, 5, posted, "low intensity posts a message every 3s, capped at 5")
	assert.Equal(t, posted, f.events.count(domain.EventSyntheticChat))
	assert.ErrorIs(t, f.sim.StopRaid(), domain.ErrRaidInactive)
}

func TestEconomy_ForwardedWhileRunning(t *testing.T) {
	f := setup(t, quietConfig())
	f.sim.Start()
	defer f.sim.Stop()

	mod := f.sim.Pool().GetByUsername("StreamGuardian")
	require.NotNil(t, mod)

	_, err := f.sim.Cheer(mod.ID, 100, "Cheer100")
	require.NoError(t, err)
	_, err = f.sim.Redeem(mod.ID, "hydrate")
	require.NoError(t, err)

	assert.Equal(t, 1, f.events.count(domain.EventCheer))
	assert.Equal(t, 1, f.events.count(domain.EventRedemption))
	snap := f.sim.Snapshot()
	assert.Equal(t, 1, snap.Engagement.Cheers)
	assert.Equal(t, 1, snap.Engagement.Redemptions)
}

func TestSurge_AddsViewers(t *testing.T) {
	f := setup(t, quietConfig())
	f.sim.Start()
	defer f.sim.Stop()

	before := f.sim.Pool().ViewerCount()
	assert.Positive(t, f.sim.TriggerSurge(10))
	f.clock.Advance(2 * time.Second)
	assert.Equal(t, before+10, f.sim.Pool().ViewerCount())
	assert.Positive(t, f.events.count(domain.EventViewerCount))
}

func TestBan_PublishesViewerCount(t *testing.T) {
	f := setup(t, quietConfig())
	f.sim.Start()
	defer f.sim.Stop()

	f.sim.TriggerSurge(3)
	f.clock.Advance(2 * time.Second)

	var target string
	for _, u := range f.sim.Pool().All() {
		if u.Present() && !u.IsModerator {
			target = u.ID
			break
		}
	}
	require.NotEmpty(t, target)

	before := f.events.count(domain.EventViewerCount)
	viewers := f.sim.Pool().ViewerCount()
	require.NoError(t, f.sim.Ban(target, "streamer", "spam"))

	require.Equal(t, before+1, f.events.count(domain.EventViewerCount))
	env, ok := f.events.last(domain.EventViewerCount)
	require.True(t, ok)
	ev, ok := env.Payload.(domain.ViewerCountEvent)
	require.True(t, ok)
	assert.Equal(t, viewers-1, ev.Viewers)

	// 已離線者再被封鎖不影響人數，不補發事件
	require.NoError(t, f.sim.Ban(target, "streamer", "again"))
	assert.Equal(t, before+1, f.events.count(domain.EventViewerCount))

	mod := f.sim.Pool().GetByUsername("StreamGuardian")
	require.NotNil(t, mod)
	assert.ErrorIs(t, f.sim.Ban(mod.ID, "streamer", "oops"), domain.ErrModeratorProtected)
	assert.Equal(t, before+1, f.events.count(domain.EventViewerCount))
}

func TestIndependentContexts(t *testing.T) {
	a := setup(t, quietConfig())
	b := setup(t, quietConfig())

	names := func(s *simulation.Simulation) []string {
		var out []string
		for _, u := range s.Pool().All() {
			out = append(out, u.Username)
		}
		return out
	}
	assert.Equal(t, names(a.sim), names(b.sim), "same seed yields the same roster")

	a.sim.Start()
	defer a.sim.Stop()
	assert.Equal(t, 3, a.sim.Pool().Stats().Moderators)
	assert.Zero(t, b.sim.Pool().Stats().Moderators, "contexts do not share state")
}
