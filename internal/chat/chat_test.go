package chat

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/virtual-audience/internal/core/domain"
	"github.com/JoeShih716/virtual-audience/internal/core/task"
)

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func TestFeed_CapacityEviction(t *testing.T) {
	f := NewFeed(3, task.NewManual(epoch))

	var removed []string
	f.OnRemoved(func(id string) { removed = append(removed, id) })

	ids := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		m := f.Add(domain.ChatMessage{Username: "u", Text: "hi"})
		require.NotEmpty(t, m.ID)
		ids = append(ids, m.ID)
	}

	assert.Equal(t, 3, f.Len())
	assert.Equal(t, ids[:2], removed)

	recent := f.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, ids[3], recent[0].ID)
	assert.Equal(t, ids[4], recent[1].ID)
}

func TestFeed_AddLike(t *testing.T) {
	f := NewFeed(0, task.NewManual(epoch))
	m := f.Add(domain.ChatMessage{ID: "m1", Username: "author", Text: "PogChamp"})

	var events []domain.LikeEvent
	f.OnLikesChanged(func(ev domain.LikeEvent) { events = append(events, ev) })

	got, ok := f.AddLike(m.ID, "fan", false)
	require.True(t, ok)
	assert.Equal(t, 1, got.Likes)

	_, ok = f.AddLike(m.ID, "fan", true)
	assert.False(t, ok, "duplicate like")
	_, ok = f.AddLike(m.ID, "author", false)
	assert.False(t, ok, "author cannot like own message")
	_, ok = f.AddLike("missing", "fan", false)
	assert.False(t, ok)

	require.Len(t, events, 1)
	assert.Equal(t, []string{"fan"}, events[0].LikedBy)

	require.True(t, f.Remove(m.ID))
	_, ok = f.Get(m.ID)
	assert.False(t, ok)
	assert.False(t, f.Remove(m.ID))
}

func TestPolls_Lifecycle(t *testing.T) {
	clock := task.NewManual(epoch)
	b := NewPolls(clock)

	_, err := b.Create("pick one", []string{"only"}, time.Minute)
	assert.True(t, errors.Is(err, domain.ErrInvalidPoll))

	p, err := b.Create("best snack?", []string{"chips", "fruit"}, time.Minute)
	require.NoError(t, err)

	_, err = b.Vote(p.ID, "alice", 1)
	require.NoError(t, err)
	_, err = b.Vote(p.ID, "alice", 0)
	assert.True(t, errors.Is(err, domain.ErrAlreadyVoted))
	_, err = b.Vote(p.ID, "bob", 5)
	assert.True(t, errors.Is(err, domain.ErrInvalidPoll))

	var ended []domain.Poll
	b.OnEnded(func(p domain.Poll) { ended = append(ended, p) })

	clock.Advance(time.Minute)
	require.Len(t, ended, 1)
	assert.Equal(t, 1, ended[0].Options[1].Votes)

	_, err = b.Vote(p.ID, "carol", 0)
	assert.True(t, errors.Is(err, domain.ErrPollEnded))
	_, err = b.End(p.ID)
	assert.True(t, errors.Is(err, domain.ErrPollEnded))
	assert.Empty(t, b.Active())
}

func TestFeed_EditKeepsLikes(t *testing.T) {
	f := NewFeed(0, task.NewManual(epoch))
	f.Add(domain.ChatMessage{ID: "m1", Username: "author", Text: "frist"})
	f.Add(domain.ChatMessage{ID: "m2", Username: "other", Text: "hi"})

	_, ok := f.AddLike("m1", "fan", false)
	require.True(t, ok)

	edited := f.Add(domain.ChatMessage{ID: "m1", Username: "author", Text: "first"})
	assert.Equal(t, "first", edited.Text)
	assert.Equal(t, 1, edited.Likes)
	assert.Equal(t, []string{"fan"}, edited.LikedBy)
	assert.Equal(t, 2, f.Len())

	_, ok = f.AddLike("m1", "fan", false)
	assert.False(t, ok, "like set survives the edit")

	recent := f.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "m1", recent[0].ID, "edit keeps the original position")
}
