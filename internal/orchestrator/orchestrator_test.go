package orchestrator_test

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/JoeShih716/virtual-audience/internal/audience/pool"
	"github.com/JoeShih716/virtual-audience/internal/core/domain"
	"github.com/JoeShih716/virtual-audience/internal/core/random"
	"github.com/JoeShih716/virtual-audience/internal/core/task"
	"github.com/JoeShih716/virtual-audience/internal/economy/cheer"
	"github.com/JoeShih716/virtual-audience/internal/economy/gift"
	"github.com/JoeShih716/virtual-audience/internal/economy/points"
	"github.com/JoeShih716/virtual-audience/internal/economy/subs"
	"github.com/JoeShih716/virtual-audience/internal/orchestrator"
	mock_ports "github.com/JoeShih716/virtual-audience/test/mocks/core/ports"
)

type env struct {
	clock    *task.Manual
	rnd      *random.Source
	pool     *pool.Pool
	managers orchestrator.Managers
}

func newEnv(t *testing.T) env {
	t.Helper()
	clock := task.NewManual(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	rnd := random.New(21)
	pcfg := pool.DefaultConfig()
	pcfg.RosterSizePerPersonality = 0
	p := pool.New(pcfg, clock, rnd, slog.Default())

	cheerCfg := cheer.DefaultConfig()
	cheerCfg.AIProbability = 0
	giftCfg := gift.DefaultConfig()
	giftCfg.AIProbability = 0
	subsCfg := subs.DefaultConfig()
	subsCfg.AISubscribeProbability = 0
	subsCfg.AIGiftSubProbability = 0
	pointsCfg := points.DefaultConfig()
	pointsCfg.AIProbability = 0

	return env{
		clock: clock,
		rnd:   rnd,
		pool:  p,
		managers: orchestrator.Managers{
			Cheer:  cheer.New(cheerCfg, p, p, clock, rnd, slog.Default()),
			Gift:   gift.New(giftCfg, p, p, clock, rnd, slog.Default()),
			Subs:   subs.New(subsCfg, p, clock, rnd, slog.Default()),
			Points: points.New(pointsCfg, p, clock, rnd, slog.Default()),
		},
	}
}

func (e env) addUser(t *testing.T, name string, bits int64) *domain.SyntheticUser {
	t.Helper()
	u := domain.NewSyntheticUser(name, domain.PersonalityHype)
	u.State = domain.StateActive
	u.Bits = bits
	require.NoError(t, e.pool.Insert(u))
	return u
}

func TestStartStop(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	e := newEnv(t)
	o := orchestrator.New(orchestrator.DefaultConfig(), e.managers, mock_ports.NewMockEventSink(ctrl), e.clock, e.rnd, slog.Default())

	require.True(t, o.Start())
	assert.False(t, o.Start())
	assert.True(t, o.Running())
	assert.Equal(t, 5, o.Pending())
	assert.True(t, e.managers.Points.Accumulating())

	e.clock.Advance(10 * time.Minute)
	assert.Equal(t, 5, o.Pending(), "each check keeps exactly one outstanding task")

	require.True(t, o.Stop())
	assert.False(t, o.Stop())
	assert.Equal(t, 0, o.Pending())
	assert.False(t, e.managers.Points.Accumulating())
	assert.Equal(t, 0, e.clock.Pending())
}

func TestForwarding(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	e := newEnv(t)
	sink := mock_ports.NewMockEventSink(ctrl)
	o := orchestrator.New(orchestrator.DefaultConfig(), e.managers, sink, e.clock, e.rnd, slog.Default())

	fan := e.addUser(t, "big_fan", 1000)
	friend := e.addUser(t, "friend", 0)

	var published []domain.Envelope
	sink.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(func(_ any, env domain.Envelope) error {
		published = append(published, env)
		return nil
	}).Times(3)

	o.Start()

	_, err := e.managers.Cheer.Cheer(fan.ID, 100, "Cheer100")
	require.NoError(t, err)
	_, err = e.managers.Gift.GiftBits(fan.ID, friend.ID, 50)
	require.NoError(t, err)
	_, err = e.managers.Subs.Subscribe(friend.ID, domain.SubTier1, "")
	require.NoError(t, err)

	require.Len(t, published, 3)
	assert.Equal(t, domain.EventCheer, published[0].Type)
	assert.Equal(t, domain.EventBitGift, published[1].Type)
	assert.Equal(t, domain.EventSubscription, published[2].Type)
	assert.IsType(t, domain.CheerEvent{}, published[0].Payload)

	st := o.Stats()
	assert.Equal(t, 1, st.Cheers)
	assert.Equal(t, 1, st.BitGifts)
	assert.Equal(t, 1, st.Subscriptions)
	assert.Equal(t, int64(100), st.BitsCheered)
	assert.Equal(t, int64(50), st.BitsGifted)
	assert.True(t, st.Revenue.GreaterThan(decimal.NewFromInt(1)), "revenue=%s", st.Revenue)
	// Bits 贈送只是使用者之間的轉移，不計入收益
	want := published[0].Payload.(domain.CheerEvent).Revenue.Add(published[2].Payload.(domain.SubscriptionEvent).Revenue)
	assert.True(t, want.Equal(st.Revenue), "want=%s got=%s", want, st.Revenue)

	o.Stop()

	// 停止後監聽已解除，不會再送出
	_, err = e.managers.Cheer.Cheer(fan.ID, 100, "after stop")
	require.NoError(t, err)
	assert.Equal(t, 1, o.Stats().Cheers)
}

func TestPublishErrorIsCounted(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	e := newEnv(t)
	sink := mock_ports.NewMockEventSink(ctrl)
	sink.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("redis down"))

	o := orchestrator.New(orchestrator.DefaultConfig(), e.managers, sink, e.clock, e.rnd, slog.Default())
	o.Start()
	defer o.Stop()

	fan := e.addUser(t, "fan", 10)
	_, err := e.managers.Cheer.Cheer(fan.ID, 10, "")
	require.NoError(t, err, "sink failures never reach the caller")
	assert.Equal(t, 1, o.Stats().PublishErrors)
}

func TestAIChecksProduceEvents(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	e := newEnv(t)
	cfg := cheer.DefaultConfig()
	cfg.AIProbability = 1
	managers := orchestrator.Managers{Cheer: cheer.New(cfg, e.pool, e.pool, e.clock, e.rnd, slog.Default())}
	e.addUser(t, "whale", 100000)

	sink := mock_ports.NewMockEventSink(ctrl)
	sink.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).MinTimes(1)

	o := orchestrator.New(orchestrator.DefaultConfig(), managers, sink, e.clock, e.rnd, slog.Default())
	require.True(t, o.Start())
	assert.Equal(t, 1, o.Pending())

	e.clock.Advance(orchestrator.DefaultConfig().CheerInterval.Max)
	o.Stop()

	st := o.Stats()
	assert.GreaterOrEqual(t, st.Cheers, 1)
	assert.Len(t, managers.Cheer.History(), st.Cheers)
	assert.True(t, managers.Cheer.History()[0].AI)
}
