// Package orchestrator 以各自的抖動週期驅動 AI 經濟行為，並把事件轉送到 EventSink。
package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/virtual-audience/internal/core/domain"
	"github.com/JoeShih716/virtual-audience/internal/core/observer"
	"github.com/JoeShih716/virtual-audience/internal/core/ports"
	"github.com/JoeShih716/virtual-audience/internal/core/random"
	"github.com/JoeShih716/virtual-audience/internal/core/task"
	"github.com/JoeShih716/virtual-audience/internal/economy/cheer"
	"github.com/JoeShih716/virtual-audience/internal/economy/gift"
	"github.com/JoeShih716/virtual-audience/internal/economy/points"
	"github.com/JoeShih716/virtual-audience/internal/economy/subs"
)

// Config 各項檢查的週期範圍
type Config struct {
	CheerInterval      random.Window `yaml:"cheer_interval"`
	GiftInterval       random.Window `yaml:"gift_interval"`
	SubInterval        random.Window `yaml:"sub_interval"`
	GiftSubInterval    random.Window `yaml:"gift_sub_interval"`
	RedemptionInterval random.Window `yaml:"redemption_interval"`
	PublishTimeout     time.Duration `yaml:"publish_timeout"`
}

// DefaultConfig 預設設定
func DefaultConfig() Config {
	return Config{
		CheerInterval:      random.Window{Min: 20 * time.Second, Max: 45 * time.Second},
		GiftInterval:       random.Window{Min: 30 * time.Second, Max: 60 * time.Second},
		SubInterval:        random.Window{Min: 25 * time.Second, Max: 50 * time.Second},
		GiftSubInterval:    random.Window{Min: 45 * time.Second, Max: 90 * time.Second},
		RedemptionInterval: random.Window{Min: 15 * time.Second, Max: 40 * time.Second},
		PublishTimeout:     2 * time.Second,
	}
}

// Managers 被驅動的經濟管理器；nil 代表不啟用該項
type Managers struct {
	Cheer  *cheer.Manager
	Gift   *gift.Manager
	Subs   *subs.Manager
	Points *points.Manager
}

// Stats 本次運行期間轉送的事件統計
type Stats struct {
	Cheers        int             `json:"cheers"`
	BitGifts      int             `json:"bit_gifts"`
	Subscriptions int             `json:"subscriptions"`
	SubTrains     int             `json:"sub_trains"`
	Redemptions   int             `json:"redemptions"`
	BitsCheered   int64           `json:"bits_cheered"`
	BitsGifted    int64           `json:"bits_gifted"`
	PointsSpent   int64           `json:"points_spent"`
	Revenue       decimal.Decimal `json:"revenue"`
	PublishErrors int             `json:"publish_errors"`
}

type registration struct {
	remove func(observer.ID) bool
	id     observer.ID
}

// Orchestrator 互動編排器
type Orchestrator struct {
	cfg      Config
	managers Managers
	sink     ports.EventSink
	rnd      *random.Source
	logger   *slog.Logger

	checks *task.Group

	mu            sync.Mutex
	running       bool
	registrations []registration
	stats         Stats
}

// New 建立互動編排器
func New(cfg Config, managers Managers, sink ports.EventSink, s task.Scheduler, rnd *random.Source, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		managers: managers,
		sink:     sink,
		rnd:      rnd,
		logger:   logger.With("component", "engagement_orchestrator"),
		checks:   task.NewGroup(s),
		stats:    Stats{Revenue: decimal.Zero},
	}
}

// Start 註冊事件監聽並啟動各項檢查；已啟動時回傳 false
func (o *Orchestrator) Start() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running {
		return false
	}
	o.running = true
	o.registerLocked()

	m := o.managers
	if m.Cheer != nil {
		o.every(o.cfg.CheerInterval, func() { m.Cheer.AttemptAICheer() })
	}
	if m.Gift != nil {
		o.every(o.cfg.GiftInterval, func() { m.Gift.AttemptAIGift() })
	}
	if m.Subs != nil {
		o.every(o.cfg.SubInterval, func() { m.Subs.AttemptAISubscribe() })
		o.every(o.cfg.GiftSubInterval, func() { m.Subs.AttemptAIGiftSub() })
	}
	if m.Points != nil {
		o.every(o.cfg.RedemptionInterval, func() { m.Points.AttemptAIRedemption() })
		m.Points.StartAccumulation()
	}

	o.logger.Info("Engagement orchestrator started", "checks", o.checks.Len())
	return true
}

// Stop 取消所有檢查並解除監聽；未啟動時回傳 false
func (o *Orchestrator) Stop() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.running {
		return false
	}
	o.running = false
	o.checks.CancelAll()
	if o.managers.Points != nil {
		o.managers.Points.StopAccumulation()
	}
	for _, r := range o.registrations {
		r.remove(r.id)
	}
	o.registrations = nil

	o.logger.Info("Engagement orchestrator stopped")
	return true
}

// Running 是否運行中
func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// Pending 尚未觸發的檢查數 (每項檢查固定一個)
func (o *Orchestrator) Pending() int {
	return o.checks.Len()
}

// Stats 統計複本
func (o *Orchestrator) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stats
}

func (o *Orchestrator) every(w random.Window, fn func()) {
	o.checks.Every(func() time.Duration { return w.Sample(o.rnd) }, fn)
}

func (o *Orchestrator) registerLocked() {
	m := o.managers
	add := func(remove func(observer.ID) bool, id observer.ID) {
		o.registrations = append(o.registrations, registration{remove: remove, id: id})
	}

	if m.Cheer != nil {
		add(m.Cheer.RemoveListener, m.Cheer.AddListener(func(ev domain.CheerEvent) {
			o.count(func(s *Stats) {
				s.Cheers++
				s.BitsCheered += ev.Amount
				s.Revenue = s.Revenue.Add(ev.Revenue)
			})
			o.forward(domain.NewEnvelope(domain.EventCheer, ev.ID, ev.At, ev))
		}))
	}
	if m.Gift != nil {
		add(m.Gift.RemoveListener, m.Gift.AddListener(func(ev domain.GiftEvent) {
			o.count(func(s *Stats) {
				s.BitGifts++
				s.BitsGifted += ev.Amount
			})
			o.forward(domain.NewEnvelope(domain.EventBitGift, ev.ID, ev.At, ev))
		}))
	}
	if m.Subs != nil {
		add(m.Subs.RemoveListener, m.Subs.AddListener(func(ev domain.SubscriptionEvent) {
			o.count(func(s *Stats) {
				s.Subscriptions++
				s.Revenue = s.Revenue.Add(ev.Revenue)
			})
			o.forward(domain.NewEnvelope(domain.EventSubscription, ev.ID, ev.At, ev))
		}))
		add(m.Subs.RemoveTrainListener, m.Subs.AddTrainListener(func(ev domain.SubTrainEvent) {
			o.count(func(s *Stats) { s.SubTrains++ })
			o.forward(domain.NewEnvelope(domain.EventSubTrain, ev.ID, ev.At, ev))
		}))
	}
	if m.Points != nil {
		add(m.Points.RemoveListener, m.Points.AddListener(func(ev domain.RedemptionEvent) {
			o.count(func(s *Stats) {
				s.Redemptions++
				s.PointsSpent += ev.Cost
			})
			o.forward(domain.NewEnvelope(domain.EventRedemption, ev.ID, ev.At, ev))
		}))
	}
}

func (o *Orchestrator) count(fn func(s *Stats)) {
	o.mu.Lock()
	fn(&o.stats)
	o.mu.Unlock()
}

// forward 送出事件；失敗只記錄，不影響模擬
func (o *Orchestrator) forward(env domain.Envelope) {
	if o.sink == nil {
		return
	}
	ctx := context.Background()
	if o.cfg.PublishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.PublishTimeout)
		defer cancel()
	}

	if err := o.sink.Publish(ctx, env); err != nil {
		o.count(func(s *Stats) { s.PublishErrors++ })
		o.logger.Warn("Failed to publish event", "type", env.Type, "id", env.ID, "error", err)
	}
}
