package points

import (
	"errors"
	"log/slog"
	"testing"
	"time"

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
	rnd := random.New(11)
	pcfg := pool.DefaultConfig()
	pcfg.RosterSizePerPersonality = 0
	p := pool.New(pcfg, clock, rnd, slog.Default())
	return New(cfg, p, clock, rnd, slog.Default()), p, clock
}

func addUser(t *testing.T, p *pool.Pool, name string, state domain.UserState) *domain.SyntheticUser {
	t.Helper()
	u := domain.NewSyntheticUser(name, domain.PersonalityHype)
	u.State = state
	require.NoError(t, p.Insert(u))
	return u
}

func TestRedeem_HighlightBombExactBalance(t *testing.T) {
	m, p, _ := setup(t, DefaultConfig())
	u := addUser(t, p, "viewer", domain.StateActive)
	m.Grant(u.ID, 500)

	require.False(t, m.IsOnCooldown(HighlightBombID))

	ev, err := m.Redeem(u.ID, HighlightBombID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), ev.Balance)
	assert.Equal(t, int64(0), m.Balance(u.ID))
	assert.True(t, m.IsOnCooldown(HighlightBombID))
	assert.Equal(t, "highlight", ev.Effect.Kind)
	assert.NotEmpty(t, ev.ID)
}

func TestRedeem_OnCooldownLeavesBalance(t *testing.T) {
	m, p, clock := setup(t, DefaultConfig())
	a := addUser(t, p, "first", domain.StateActive)
	b := addUser(t, p, "second", domain.StateActive)
	m.Grant(a.ID, 500)
	m.Grant(b.ID, 900)

	_, err := m.Redeem(a.ID, HighlightBombID)
	require.NoError(t, err)

	clock.Advance(30 * time.Second)
	assert.True(t, m.IsOnCooldown(HighlightBombID))
	assert.Equal(t, 30*time.Second, m.CooldownRemaining(HighlightBombID))

	_, err = m.Redeem(b.ID, HighlightBombID)
	assert.True(t, errors.Is(err, domain.ErrOnCooldown))
	assert.Equal(t, int64(900), m.Balance(b.ID))

	clock.Advance(30 * time.Second)
	assert.False(t, m.IsOnCooldown(HighlightBombID))
	_, err = m.Redeem(b.ID, HighlightBombID)
	assert.NoError(t, err)
	assert.Equal(t, int64(400), m.Balance(b.ID))
}

func TestRedeem_Rejections(t *testing.T) {
	m, p, _ := setup(t, DefaultConfig())
	u := addUser(t, p, "poor", domain.StateActive)
	m.Grant(u.ID, 99)

	tests := []struct {
		name         string
		userID       string
		redemptionID string
		want         error
	}{
		{"unknown redemption", u.ID, "nope", domain.ErrUnknownRedemption},
		{"unknown user", "ghost", "hydrate", domain.ErrUserNotFound},
		{"insufficient", u.ID, "hydrate", domain.ErrInsufficientBalance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Redeem(tt.userID, tt.redemptionID)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)

			var reject *domain.RejectError
			assert.True(t, errors.As(err, &reject))
			assert.Equal(t, int64(99), m.Balance(u.ID))
		})
	}
	assert.Empty(t, m.History())
}

func TestRedeem_EffectFailureRefunds(t *testing.T) {
	m, p, _ := setup(t, DefaultConfig())
	u := addUser(t, p, "unlucky", domain.StateActive)
	m.Grant(u.ID, 1000)

	m.Register(domain.RedemptionDefinition{
		ID:       "broken",
		Name:     "Broken Effect",
		Cost:     300,
		Cooldown: time.Minute,
		Effect:   func(domain.SyntheticUser) *domain.Effect { return nil },
	})

	_, err := m.Redeem(u.ID, "broken")
	assert.True(t, errors.Is(err, domain.ErrEffectFailed))
	assert.Equal(t, int64(1000), m.Balance(u.ID))
	assert.False(t, m.IsOnCooldown("broken"))
	assert.Empty(t, m.History())
}

func TestListenersAndHistory(t *testing.T) {
	m, p, _ := setup(t, DefaultConfig())
	u := addUser(t, p, "fan", domain.StateActive)
	m.Grant(u.ID, 10000)

	var got []domain.RedemptionEvent
	id := m.AddListener(func(ev domain.RedemptionEvent) { got = append(got, ev) })

	_, err := m.Redeem(u.ID, "hydrate")
	require.NoError(t, err)
	require.True(t, m.RemoveListener(id))
	_, err = m.Redeem(u.ID, "confetti")
	require.NoError(t, err)

	assert.Len(t, got, 1)
	assert.Len(t, m.History(), 2)
}

func TestAccumulation(t *testing.T) {
	m, p, clock := setup(t, DefaultConfig())
	active := addUser(t, p, "watcher", domain.StateActive)
	lurker := addUser(t, p, "shadow", domain.StateLurking)

	assert.Equal(t, 1, m.Accumulate())
	first := m.Balance(active.ID)
	assert.GreaterOrEqual(t, first, int64(10))
	assert.Equal(t, int64(0), m.Balance(lurker.ID))

	require.True(t, m.StartAccumulation())
	assert.False(t, m.StartAccumulation())
	clock.Advance(time.Minute)
	assert.Greater(t, m.Balance(active.ID), first)

	require.True(t, m.StopAccumulation())
	after := m.Balance(active.ID)
	clock.Advance(time.Minute)
	assert.Equal(t, after, m.Balance(active.ID))
}

func TestAttemptAIRedemption(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AIProbability = 0
	m, p, _ := setup(t, cfg)
	u := addUser(t, p, "rich", domain.StateActive)
	m.Grant(u.ID, 5000)

	assert.Nil(t, m.AttemptAIRedemption(), "probability gate closed")

	m.cfg.AIProbability = 1
	ev := m.AttemptAIRedemption()
	require.NotNil(t, ev)
	assert.True(t, ev.AI)
	assert.Equal(t, 5000-ev.Cost, m.Balance(u.ID))

	// 持續兌換直到沒有付得起且不在冷卻中的項目
	for m.AttemptAIRedemption() != nil {
	}
	for _, def := range m.Catalog() {
		if !m.IsOnCooldown(def.ID) {
			assert.Less(t, m.Balance(u.ID), def.Cost)
		}
	}
}
