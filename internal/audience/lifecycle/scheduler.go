// Package lifecycle 依目標觀眾數讓虛擬觀眾在 offline / lurking / active 之間流動。
//
// join、leave、activate 三條任務鏈各自以抖動延遲自我重新排程，週期互相漂移，不會同步。
package lifecycle

import (
	"log/slog"
	"sync"
	"time"

	"github.com/JoeShih716/virtual-audience/internal/audience/pool"
	"github.com/JoeShih716/virtual-audience/internal/core/domain"
	"github.com/JoeShih716/virtual-audience/internal/core/observer"
	"github.com/JoeShih716/virtual-audience/internal/core/random"
	"github.com/JoeShih716/virtual-audience/internal/core/task"
)

// Config 生命週期排程設定
type Config struct {
	JoinInterval     random.Window `yaml:"join_interval"`
	LeaveInterval    random.Window `yaml:"leave_interval"`
	ActivateInterval random.Window `yaml:"activate_interval"`

	SoftViewerCeiling int `yaml:"soft_viewer_ceiling"`
	SoftViewerFloor   int `yaml:"soft_viewer_floor"`
	MaxActive         int `yaml:"max_active"`

	BaseJoinProbability  float64 `yaml:"base_join_probability"`
	MinJoinProbability   float64 `yaml:"min_join_probability"`
	BaseLeaveProbability float64 `yaml:"base_leave_probability"`
	MaxLeaveProbability  float64 `yaml:"max_leave_probability"`
	MinLeaveProbability  float64 `yaml:"min_leave_probability"`
	ActivateProbability  float64 `yaml:"activate_probability"`

	SurgeJoinSpacing     time.Duration `yaml:"surge_join_spacing"`
	SurgeActivateSpacing time.Duration `yaml:"surge_activate_spacing"`
	SurgeActivateRatio   float64       `yaml:"surge_activate_ratio"` // 湧入觀眾中轉為 active 的比例
}

// DefaultConfig 預設設定
func DefaultConfig() Config {
	return Config{
		JoinInterval:         random.Window{Min: 2 * time.Second, Max: 6 * time.Second},
		LeaveInterval:        random.Window{Min: 5 * time.Second, Max: 15 * time.Second},
		ActivateInterval:     random.Window{Min: 3 * time.Second, Max: 8 * time.Second},
		SoftViewerCeiling:    120,
		SoftViewerFloor:      30,
		MaxActive:            60,
		BaseJoinProbability:  0.8,
		MinJoinProbability:   0.05,
		BaseLeaveProbability: 0.1,
		MaxLeaveProbability:  0.6,
		MinLeaveProbability:  0.02,
		ActivateProbability:  0.5,
		SurgeJoinSpacing:     150 * time.Millisecond,
		SurgeActivateSpacing: 400 * time.Millisecond,
		SurgeActivateRatio:   0.6,
	}
}

// Scheduler 生命週期排程器
type Scheduler struct {
	cfg    Config
	pool   *pool.Pool
	rnd    *random.Source
	logger *slog.Logger

	chains *task.Group // join / leave / activate 任務鏈
	surges *task.Group // TriggerSurge 排出的一次性任務

	mu      sync.Mutex
	running bool

	viewers observer.List[domain.ViewerCountEvent]
}

// New 建立生命週期排程器
func New(cfg Config, p *pool.Pool, s task.Scheduler, rnd *random.Source, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		pool:   p,
		rnd:    rnd,
		logger: logger.With("component", "lifecycle"),
		chains: task.NewGroup(s),
		surges: task.NewGroup(s),
	}
}

// Start 啟動三條任務鏈；已啟動時回傳 false 且不會重複排程
func (s *Scheduler) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return false
	}
	s.running = true

	s.chains.Every(func() time.Duration { return s.cfg.JoinInterval.Sample(s.rnd) }, s.tickJoin)
	s.chains.Every(func() time.Duration { return s.cfg.LeaveInterval.Sample(s.rnd) }, s.tickLeave)
	s.chains.Every(func() time.Duration { return s.cfg.ActivateInterval.Sample(s.rnd) }, s.tickActivate)

	s.logger.Info("Lifecycle scheduler started")
	return true
}

// Stop 取消所有任務鏈與湧入任務；未啟動時仍會取消湧入任務，並回傳 false
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	surges := s.surges.CancelAll()
	if !s.running {
		return false
	}
	s.running = false

	n := s.chains.CancelAll() + surges
	s.logger.Info("Lifecycle scheduler stopped", "cancelled", n)
	return true
}

// Running 是否運行中
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Pending 尚未觸發的任務數 (任務鏈 + 湧入)
func (s *Scheduler) Pending() int {
	return s.chains.Len() + s.surges.Len()
}

// OnViewerCountChanged 註冊觀眾數變動監聽
func (s *Scheduler) OnViewerCountChanged(fn func(domain.ViewerCountEvent)) observer.ID {
	return s.viewers.Add(fn)
}

// RemoveViewerListener 解除觀眾數變動監聽
func (s *Scheduler) RemoveViewerListener(id observer.ID) bool {
	return s.viewers.Remove(id)
}

// JoinProbability 觀眾數越接近上限，加入機率越低
func (s *Scheduler) JoinProbability(viewers int) float64 {
	ceiling := s.cfg.SoftViewerCeiling
	if ceiling <= 0 || viewers >= ceiling {
		return s.cfg.MinJoinProbability
	}
	p := s.cfg.BaseJoinProbability * (1 - float64(viewers)/float64(ceiling))
	return max(p, s.cfg.MinJoinProbability)
}

// LeaveProbability 觀眾數超過下限後，離開機率隨人數上升
func (s *Scheduler) LeaveProbability(viewers int) float64 {
	floor := s.cfg.SoftViewerFloor
	if viewers <= floor {
		return s.cfg.MinLeaveProbability
	}
	span := s.cfg.SoftViewerCeiling - floor
	ratio := 1.0
	if span > 0 {
		ratio = min(1, float64(viewers-floor)/float64(span))
	}
	return s.cfg.BaseLeaveProbability + (s.cfg.MaxLeaveProbability-s.cfg.BaseLeaveProbability)*ratio
}

// ForceJoin 不經機率直接讓一位觀眾加入
func (s *Scheduler) ForceJoin() *domain.SyntheticUser {
	u := s.pool.Join()
	if u != nil {
		s.emitViewerCount()
	}
	return u
}

// ForceActivate 不經機率與上限直接啟用一位 lurker
func (s *Scheduler) ForceActivate() *domain.SyntheticUser {
	u := s.pool.ActivateLurker()
	if u != nil {
		s.emitViewerCount()
	}
	return u
}

// TriggerSurge 模擬觀眾暴增：先連續強制加入，停留滿 MinLurk 之後再連續強制啟用。
//
// 參數:
//
//	count: int - 湧入人數
//
// 回傳值:
//
//	int: 排入的任務數
func (s *Scheduler) TriggerSurge(count int) int {
	if count <= 0 {
		return 0
	}

	scheduled := 0
	for i := 0; i < count; i++ {
		s.surges.Schedule(time.Duration(i)*s.cfg.SurgeJoinSpacing, func() { s.ForceJoin() })
		scheduled++
	}

	activations := int(float64(count) * s.cfg.SurgeActivateRatio)
	warmup := time.Duration(count-1)*s.cfg.SurgeJoinSpacing + s.pool.Config().MinLurk
	for i := 0; i < activations; i++ {
		s.surges.Schedule(warmup+time.Duration(i)*s.cfg.SurgeActivateSpacing, func() { s.ForceActivate() })
		scheduled++
	}

	s.logger.Info("Audience surge triggered", "joins", count, "activations", activations)
	return scheduled
}

func (s *Scheduler) tickJoin() {
	if !s.rnd.Chance(s.JoinProbability(s.pool.ViewerCount())) {
		return
	}
	if u := s.ForceJoin(); u != nil {
		s.logger.Debug("Viewer joined", "user", u.Username)
	}
}

func (s *Scheduler) tickLeave() {
	if !s.rnd.Chance(s.LeaveProbability(s.pool.ViewerCount())) {
		return
	}
	if u := s.pool.Leave(); u != nil {
		s.logger.Debug("Viewer left", "user", u.Username)
		s.emitViewerCount()
	}
}

func (s *Scheduler) tickActivate() {
	if s.cfg.MaxActive > 0 && s.pool.Count(domain.StateActive) >= s.cfg.MaxActive {
		return
	}
	if !s.rnd.Chance(s.cfg.ActivateProbability) {
		return
	}
	if u := s.ForceActivate(); u != nil {
		s.logger.Debug("Lurker activated", "user", u.Username)
	}
}

// NotifyViewerCount 由外部操作 (例如封鎖) 改變在場人數後，補發一次人數事件
func (s *Scheduler) NotifyViewerCount() {
	s.emitViewerCount()
}

func (s *Scheduler) emitViewerCount() {
	st := s.pool.Stats()
	s.viewers.Emit(domain.ViewerCountEvent{
		Viewers: st.Viewers,
		Active:  st.Active,
		Lurking: st.Lurking,
		At:      s.pool.Clock().Now(),
	})
}
