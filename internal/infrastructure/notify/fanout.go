package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/JoeShih716/virtual-audience/internal/core/domain"
	"github.com/JoeShih716/virtual-audience/internal/core/ports"
)

// Fanout 依序送給所有輸出端；單一輸出端失敗不影響其他輸出端
type Fanout []ports.EventSink

var _ ports.EventSink = Fanout(nil)

// Publish 送給每個輸出端並合併錯誤
func (f Fanout) Publish(ctx context.Context, env domain.Envelope) error {
	var errs []error
	for _, sink := range f {
		if err := sink.Publish(ctx, env); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Async 以背景 goroutine 送出事件，模擬器端永遠不會被慢速輸出端卡住。
// 佇列已滿時直接丟棄並回傳 ErrDropped。
type Async struct {
	next    ports.EventSink
	timeout time.Duration
	logger  *slog.Logger

	queue chan domain.Envelope
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

var _ ports.EventSink = (*Async)(nil)

// NewAsync 建立非同步輸出端並啟動背景送出
//
// 參數:
//
//	next: ports.EventSink - 實際的輸出端
//	size: int - 佇列長度
//	timeout: time.Duration - 每筆事件的送出逾時
//	logger: *slog.Logger - 日誌
func NewAsync(next ports.EventSink, size int, timeout time.Duration, logger *slog.Logger) *Async {
	if size <= 0 {
		size = 1024
	}
	a := &Async{
		next:    next,
		timeout: timeout,
		logger:  logger.With("component", "async_sink"),
		queue:   make(chan domain.Envelope, size),
		done:    make(chan struct{}),
	}
	go a.loop()
	return a
}

// Publish 排入佇列後立即返回
func (a *Async) Publish(_ context.Context, env domain.Envelope) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return ErrDropped
	}
	select {
	case a.queue <- env:
		return nil
	default:
		return ErrDropped
	}
}

// Close 停止接收新事件，送完佇列中剩餘的事件後返回
func (a *Async) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()

	<-a.done
}

func (a *Async) loop() {
	defer close(a.done)
	for env := range a.queue {
		a.deliver(env)
	}
}

func (a *Async) deliver(env domain.Envelope) {
	ctx := context.Background()
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	if err := a.next.Publish(ctx, env); err != nil {
		a.logger.Warn("Failed to deliver event", "type", env.Type, "id", env.ID, "error", err)
	}
}
