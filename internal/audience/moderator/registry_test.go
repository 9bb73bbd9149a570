package moderator

import (
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

type fakeLedger struct {
	granted map[string]int64
}

func (f *fakeLedger) Grant(userID string, amount int64) int64 {
	f.granted[userID] += amount
	return f.granted[userID]
}

func TestEnsureJoined(t *testing.T) {
	clock := task.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	p := pool.New(pool.DefaultConfig(), clock, random.New(1), slog.Default())
	ledger := &fakeLedger{granted: map[string]int64{}}
	r := New(DefaultConfig(), p, ledger, slog.Default())

	mods := r.EnsureJoined()
	require.Len(t, mods, 3)

	for _, m := range mods {
		got := p.GetByUsername(m.Username)
		require.NotNil(t, got)
		assert.True(t, got.IsModerator)
		assert.Equal(t, domain.StateActive, got.State)
		assert.Positive(t, got.Bits)
		assert.Positive(t, ledger.granted[got.ID])
		assert.True(t, r.IsModerator(got.Username))

		kinds := map[string]bool{}
		for _, b := range got.Badges {
			kinds[b.Kind] = true
		}
		assert.True(t, kinds["moderator"])
		assert.True(t, kinds["verified"])
	}

	t.Run("repeat call is a no-op", func(t *testing.T) {
		assert.Empty(t, r.EnsureJoined())
		assert.Equal(t, 3, p.Total())
		assert.Equal(t, 3, p.ViewerCount())
	})

	assert.False(t, r.IsModerator("somebody_else"))
	assert.Equal(t, []string{"StreamGuardian", "NightOwlMod", "ChatSheriff"}, r.Usernames())
}
