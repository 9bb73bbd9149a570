package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/JoeShih716/virtual-audience/internal/core/domain"
	"github.com/JoeShih716/virtual-audience/internal/infrastructure/notify"
	mock_ports "github.com/JoeShih716/virtual-audience/test/mocks/core/ports"
)

var at = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

type fakeRedis struct {
	published map[string][]any
	stored    map[string]any
	ttl       time.Duration
	err       error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{published: map[string][]any{}, stored: map[string]any{}}
}

func (f *fakeRedis) Publish(_ context.Context, channel string, message any) error {
	if f.err != nil {
		return f.err
	}
	f.published[channel] = append(f.published[channel], message)
	return nil
}

func (f *fakeRedis) SetStruct(_ context.Context, key string, value any, expiration ...time.Duration) error {
	f.stored[key] = value
	if len(expiration) > 0 {
		f.ttl = expiration[0]
	}
	return nil
}

func TestRedisSink(t *testing.T) {
	rdb := newFakeRedis()
	sink := notify.NewRedisSink(notify.RedisConfig{Channel: "demo", StatsTTL: time.Minute}, rdb)

	cheer := domain.NewEnvelope(domain.EventCheer, "1", at, domain.CheerEvent{Amount: 100})
	require.NoError(t, sink.Publish(context.Background(), cheer))
	assert.Len(t, rdb.published["audience:demo:events"], 1)
	assert.Empty(t, rdb.stored, "only viewer counts are snapshotted")

	viewers := domain.ViewerCountEvent{Viewers: 42, Active: 10, Lurking: 32, At: at}
	require.NoError(t, sink.Publish(context.Background(), domain.NewEnvelope(domain.EventViewerCount, "", at, viewers)))
	assert.Equal(t, viewers, rdb.stored["audience:demo:viewers"])
	assert.Equal(t, time.Minute, rdb.ttl)

	t.Run("publish error is wrapped", func(t *testing.T) {
		boom := errors.New("connection refused")
		rdb.err = boom
		err := sink.Publish(context.Background(), cheer)
		assert.ErrorIs(t, err, boom)
	})
}

type fakeBroadcaster struct {
	msgs [][]byte
	full bool
}

func (f *fakeBroadcaster) Broadcast(msg []byte) bool {
	if f.full {
		return false
	}
	f.msgs = append(f.msgs, msg)
	return true
}

func TestOverlaySink(t *testing.T) {
	b := &fakeBroadcaster{}
	sink := notify.NewOverlaySink(b)

	env := domain.NewEnvelope(domain.EventRedemption, "r-1", at, domain.RedemptionEvent{Name: "Highlight Bomb", Cost: 500})
	require.NoError(t, sink.Publish(context.Background(), env))
	require.Len(t, b.msgs, 1)

	var decoded struct {
		Type    domain.EventType       `json:"type"`
		ID      string                 `json:"id"`
		Payload domain.RedemptionEvent `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(b.msgs[0], &decoded))
	assert.Equal(t, domain.EventRedemption, decoded.Type)
	assert.Equal(t, "Highlight Bomb", decoded.Payload.Name)

	b.full = true
	assert.ErrorIs(t, sink.Publish(context.Background(), env), notify.ErrDropped)
}

func TestFanout_ContinuesPastFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	first := mock_ports.NewMockEventSink(ctrl)
	second := mock_ports.NewMockEventSink(ctrl)
	boom := errors.New("down")

	env := domain.NewEnvelope(domain.EventSubTrain, "t-1", at, domain.SubTrainEvent{TrainCount: 3})
	first.EXPECT().Publish(gomock.Any(), env).Return(boom)
	second.EXPECT().Publish(gomock.Any(), env).Return(nil)

	err := notify.Fanout{first, second}.Publish(context.Background(), env)
	assert.ErrorIs(t, err, boom)
}

func TestAsync_DeliversInOrderAndDrainsOnClose(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	next := mock_ports.NewMockEventSink(ctrl)
	var mu sync.Mutex
	var ids []string
	next.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, env domain.Envelope) error {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		mu.Lock()
		ids = append(ids, env.ID)
		mu.Unlock()
		return nil
	}).Times(3)

	a := notify.NewAsync(next, 8, time.Second, slog.Default())
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, a.Publish(context.Background(), domain.NewEnvelope(domain.EventCheer, id, at, nil)))
	}
	a.Close()
	a.Close()

	assert.Equal(t, []string{"a", "b", "c"}, ids)
	assert.ErrorIs(t, a.Publish(context.Background(), domain.NewEnvelope(domain.EventCheer, "late", at, nil)), notify.ErrDropped)
}

func TestLogSink(t *testing.T) {
	sink := notify.NewLogSink(slog.Default(), slog.LevelDebug)
	assert.NoError(t, sink.Publish(context.Background(), domain.NewEnvelope(domain.EventPollVote, "", at, nil)))
}
