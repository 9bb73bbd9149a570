package subs

import (
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/virtual-audience/internal/audience/pool"
	"github.com/JoeShih716/virtual-audience/internal/core/domain"
	"github.com/JoeShih716/virtual-audience/internal/core/random"
	"github.com/JoeShih716/virtual-audience/internal/core/task"
)

func setup(t *testing.T, cfg Config) (*Manager, *pool.Pool, *task.Manual) {
	t.Helper()
	clock := task.NewManual(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	rnd := random.New(21)
	pcfg := pool.DefaultConfig()
	pcfg.RosterSizePerPersonality = 0
	p := pool.New(pcfg, clock, rnd, slog.Default())
	return New(cfg, p, clock, rnd, slog.Default()), p, clock
}

func addUsers(t *testing.T, p *pool.Pool, n int) []*domain.SyntheticUser {
	t.Helper()
	out := make([]*domain.SyntheticUser, 0, n)
	for i := 0; i < n; i++ {
		u := domain.NewSyntheticUser(fmt.Sprintf("viewer_%d", i), domain.PersonalityCasual)
		u.State = domain.StateActive
		require.NoError(t, p.Insert(u))
		out = append(out, u)
	}
	return out
}

func TestIsMilestone(t *testing.T) {
	m, _, _ := setup(t, DefaultConfig())
	for _, months := range []int{3, 6, 12, 24, 36, 48, 60} {
		assert.True(t, m.IsMilestone(months), "months=%d", months)
	}
	for _, months := range []int{0, 1, 2, 4, 13, 59, 61, 72} {
		assert.False(t, m.IsMilestone(months), "months=%d", months)
	}
}

func TestSubscribe(t *testing.T) {
	m, p, _ := setup(t, DefaultConfig())
	u := addUsers(t, p, 1)[0]

	ev, err := m.Subscribe(u.ID, domain.SubTierNone, "hi")
	require.NoError(t, err)
	assert.Equal(t, domain.SubKindNew, ev.Kind)
	assert.Equal(t, domain.SubTier1, ev.Tier)
	assert.Equal(t, 1, ev.Months)
	assert.True(t, ev.Revenue.Equal(decimal.RequireFromString("4.99")))

	ev, err = m.Subscribe(u.ID, domain.SubTier3, "")
	require.NoError(t, err)
	assert.Equal(t, domain.SubKindResub, ev.Kind)
	assert.Equal(t, 2, ev.Months)

	ev, err = m.Subscribe(u.ID, domain.SubTier3, "")
	require.NoError(t, err)
	assert.True(t, ev.Milestone)
	assert.Equal(t, 3, p.Get(u.ID).SubscriberMonths)

	_, err = m.Subscribe(u.ID, "4000", "")
	assert.True(t, errors.Is(err, domain.ErrInvalidTier))
	_, err = m.Subscribe("ghost", domain.SubTier1, "")
	assert.True(t, errors.Is(err, domain.ErrUserNotFound))
	assert.Equal(t, 3, p.Get(u.ID).SubscriberMonths)
}

func TestGiftSubscription(t *testing.T) {
	m, p, _ := setup(t, DefaultConfig())
	users := addUsers(t, p, 2)

	ev, err := m.GiftSubscription(users[0].ID, users[1].ID, domain.SubTier1)
	require.NoError(t, err)
	assert.Equal(t, domain.SubKindGift, ev.Kind)
	assert.Equal(t, users[0].Username, ev.GifterUsername)
	assert.Equal(t, 1, p.Get(users[1].ID).SubscriberMonths)
	assert.Equal(t, 0, p.Get(users[0].ID).SubscriberMonths)

	_, err = m.GiftSubscription(users[0].ID, users[0].ID, domain.SubTier1)
	assert.True(t, errors.Is(err, domain.ErrSelfTransfer))
}

func TestCommunityGift(t *testing.T) {
	m, p, _ := setup(t, DefaultConfig())
	users := addUsers(t, p, 4)

	events, err := m.CommunityGift(users[0].ID, 10, domain.SubTier1)
	require.NoError(t, err)
	assert.Len(t, events, 3, "only three other viewers are present")
	for _, ev := range events {
		assert.Equal(t, domain.SubKindGifted, ev.Kind)
		assert.NotEqual(t, users[0].ID, ev.UserID)
	}

	lonely, _, _ := setup(t, DefaultConfig())
	_, err = lonely.CommunityGift("ghost", 5, domain.SubTier1)
	assert.True(t, errors.Is(err, domain.ErrUserNotFound))
}

func TestSubTrain_ThreeWithinWindow(t *testing.T) {
	m, p, clock := setup(t, DefaultConfig())
	users := addUsers(t, p, 3)

	var trains []domain.SubTrainEvent
	m.AddTrainListener(func(ev domain.SubTrainEvent) { trains = append(trains, ev) })

	for i, u := range users {
		if i > 0 {
			clock.Advance(5 * time.Second)
		}
		_, err := m.Subscribe(u.ID, domain.SubTier1, "")
		require.NoError(t, err)
	}
	assert.True(t, m.TrainPending())

	clock.Advance(time.Minute)
	require.Len(t, trains, 1)
	assert.Equal(t, 3, trains[0].TrainCount)
	assert.False(t, m.TrainPending())
}

func TestSubTrain_FourthExtendsPendingTrain(t *testing.T) {
	m, p, clock := setup(t, DefaultConfig())
	users := addUsers(t, p, 5)

	var trains []domain.SubTrainEvent
	m.AddTrainListener(func(ev domain.SubTrainEvent) { trains = append(trains, ev) })

	for i := 0; i < 3; i++ {
		_, err := m.Subscribe(users[i].ID, domain.SubTier1, "")
		require.NoError(t, err)
		clock.Advance(time.Second)
	}
	_, err := m.Subscribe(users[3].ID, domain.SubTier1, "")
	require.NoError(t, err)

	clock.Advance(time.Minute)
	require.Len(t, trains, 1)
	assert.Equal(t, 4, trains[0].TrainCount)
	assert.Len(t, trains[0].Usernames, 4)

	t.Run("window cleared after the train fires", func(t *testing.T) {
		_, err := m.Subscribe(users[4].ID, domain.SubTier1, "")
		require.NoError(t, err)
		clock.Advance(time.Minute)
		assert.Len(t, trains, 1)
	})
}

func TestSubTrain_OutsideWindow(t *testing.T) {
	m, p, clock := setup(t, DefaultConfig())
	users := addUsers(t, p, 3)

	for _, u := range users {
		_, err := m.Subscribe(u.ID, domain.SubTier1, "")
		require.NoError(t, err)
		clock.Advance(20 * time.Second)
	}
	assert.False(t, m.TrainPending())
	assert.Empty(t, m.Trains())
}

func TestClose_CancelsPendingTrain(t *testing.T) {
	m, p, clock := setup(t, DefaultConfig())
	users := addUsers(t, p, 3)
	for _, u := range users {
		_, err := m.Subscribe(u.ID, domain.SubTier1, "")
		require.NoError(t, err)
	}
	require.True(t, m.TrainPending())

	m.Close()
	clock.Advance(time.Minute)
	assert.Empty(t, m.Trains())
}

func TestAIAttempts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AISubscribeProbability = 1
	cfg.AIGiftSubProbability = 1
	cfg.CommunityGiftChance = 0
	m, p, _ := setup(t, cfg)

	assert.Nil(t, m.AttemptAISubscribe())
	assert.Nil(t, m.AttemptAIGiftSub())

	addUsers(t, p, 3)
	ev := m.AttemptAISubscribe()
	require.NotNil(t, ev)
	assert.True(t, ev.AI)

	gifts := m.AttemptAIGiftSub()
	require.Len(t, gifts, 1)
	assert.NotEqual(t, gifts[0].GifterID, gifts[0].UserID)
	assert.Len(t, m.History(), 2)
}
