// Package raid 模擬 Raid：限時的觀眾湧入、啟用與訊息爆發。
//
// 加入、啟用、訊息三組計時器彼此獨立；停止時三組全部取消。
// 每個回呼都帶有世代編號，過期的回呼不會有任何動作。
package raid

import (
	"log/slog"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/JoeShih716/virtual-audience/internal/chat"
	"github.com/JoeShih716/virtual-audience/internal/core/domain"
	"github.com/JoeShih716/virtual-audience/internal/core/observer"
	"github.com/JoeShih716/virtual-audience/internal/core/ports"
	"github.com/JoeShih716/virtual-audience/internal/core/random"
	"github.com/JoeShih716/virtual-audience/internal/core/task"
)

// Audience Raid 驅動的觀眾生命週期操作 (由 lifecycle.Scheduler 實作)
type Audience interface {
	ForceJoin() *domain.SyntheticUser
	ForceActivate() *domain.SyntheticUser
}

// Authors 挑選訊息作者 (由 pool.Pool 實作)
type Authors interface {
	PickActiveUser(p domain.Personality) *domain.SyntheticUser
}

// Config Raid 設定
type Config struct {
	Presets         map[string]Preset   `yaml:"presets"`
	Templates       map[string][]string `yaml:"templates"`
	DefaultDuration time.Duration       `yaml:"default_duration"`
	MaxRaiders      int                 `yaml:"max_raiders"`
}

// DefaultConfig 預設設定
func DefaultConfig() Config {
	return Config{
		Presets:         defaultPresets(),
		Templates:       defaultTemplates(),
		DefaultDuration: time.Minute,
		MaxRaiders:      1000,
	}
}

// Request 手動 Raid 請求
type Request struct {
	RaiderCount    int           `json:"raider_count"`
	RaiderUsername string        `json:"raider_username"`
	Intensity      string        `json:"intensity"`
	Duration       time.Duration `json:"duration"`
}

// Status Raid 狀態快照
type Status struct {
	Active             bool          `json:"active"`
	RaidID             string        `json:"raid_id,omitempty"`
	RaiderUsername     string        `json:"raider_username,omitempty"`
	RaiderCount        int           `json:"raider_count"`
	Intensity          string        `json:"intensity,omitempty"`
	Duration           time.Duration `json:"duration"`
	StartedAt          time.Time     `json:"started_at,omitzero"`
	Joined             int           `json:"joined"`
	Activated          int           `json:"activated"`
	Messages           int           `json:"messages"`
	PendingJoins       int           `json:"pending_joins"`
	PendingActivations int           `json:"pending_activations"`
	PendingMessages    int           `json:"pending_messages"`
}

// Simulator Raid 模擬器 (同一時間只會有一場 Raid)
type Simulator struct {
	cfg      Config
	audience Audience
	authors  Authors
	feed     *chat.Feed
	messages ports.MessageSink
	clock    task.Scheduler
	rnd      *random.Source
	logger   *slog.Logger

	joins       *task.Group
	activations *task.Group
	chatter     *task.Group
	timeout     *task.Group

	mu         sync.Mutex
	generation uint64
	status     Status

	started observer.List[domain.RaidEvent]
	ended   observer.List[domain.RaidEvent]
}

// New 建立 Raid 模擬器。messages 可為 nil。
func New(cfg Config, audience Audience, authors Authors, feed *chat.Feed, messages ports.MessageSink, s task.Scheduler, rnd *random.Source, logger *slog.Logger) *Simulator {
	return &Simulator{
		cfg:         cfg,
		audience:    audience,
		authors:     authors,
		feed:        feed,
		messages:    messages,
		clock:       s,
		rnd:         rnd,
		logger:      logger.With("component", "raid"),
		joins:       task.NewGroup(s),
		activations: task.NewGroup(s),
		chatter:     task.NewGroup(s),
		timeout:     task.NewGroup(s),
	}
}

// Intensities 可用的強度名稱 (排序後)
func (r *Simulator) Intensities() []string {
	out := make([]string, 0, len(r.cfg.Presets))
	for name := range r.cfg.Presets {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Start 開始一場 Raid
//
// 參數:
//
//	req: Request - raider 數、raider 名稱、強度、持續時間 (0 使用預設)
//
// 回傳值:
//
//	error: ErrRaidActive / ErrUnknownIntensity / ErrInvalidAmount
func (r *Simulator) Start(req Request) error {
	preset, ok := r.cfg.Presets[req.Intensity]
	if !ok {
		return domain.Reject(domain.ErrUnknownIntensity, "intensity %q", req.Intensity)
	}
	if req.RaiderCount <= 0 || (r.cfg.MaxRaiders > 0 && req.RaiderCount > r.cfg.MaxRaiders) {
		return domain.Reject(domain.ErrInvalidAmount, "raider count %d out of range", req.RaiderCount)
	}
	if strings.TrimSpace(req.RaiderUsername) == "" {
		req.RaiderUsername = "mystery_raider"
	}
	if req.Duration <= 0 {
		req.Duration = r.cfg.DefaultDuration
	}

	r.mu.Lock()
	if r.status.Active {
		r.mu.Unlock()
		return domain.Reject(domain.ErrRaidActive, "raid from %s in progress", r.status.RaiderUsername)
	}
	r.generation++
	gen := r.generation
	now := r.clock.Now()
	r.status = Status{
		Active:         true,
		RaidID:         domain.NewEventID(),
		RaiderUsername: req.RaiderUsername,
		RaiderCount:    req.RaiderCount,
		Intensity:      req.Intensity,
		Duration:       req.Duration,
		StartedAt:      now,
	}

	for i := 0; i < req.RaiderCount; i++ {
		r.joins.Schedule(time.Duration(i)*preset.WaveDelay, func() { r.join(gen) })
	}
	activations := int(math.Ceil(float64(req.RaiderCount) * preset.ActivationRate))
	for i := 0; i < activations; i++ {
		r.activations.Schedule(preset.ActivationDelay+time.Duration(i)*preset.ActivationSpacing, func() { r.activate(gen) })
	}
	for i := 0; i < preset.MessageCount; i++ {
		r.chatter.Schedule(time.Duration(i+1)*preset.MessageFrequency, func() { r.message(gen) })
	}
	r.timeout.Schedule(req.Duration, func() { r.expire(gen) })
	ev := r.eventLocked(now)
	r.mu.Unlock()

	r.logger.Info("Raid started", "raider", req.RaiderUsername, "count", req.RaiderCount, "intensity", req.Intensity, "duration", req.Duration)
	r.started.Emit(ev)
	return nil
}

// Stop 停止進行中的 Raid，取消三組計時器與自動結束計時器
func (r *Simulator) Stop() error {
	r.mu.Lock()
	if !r.status.Active {
		r.mu.Unlock()
		return domain.Reject(domain.ErrRaidInactive, "nothing to stop")
	}
	ev := r.stopLocked()
	r.mu.Unlock()

	r.logger.Info("Raid stopped", "raider", ev.RaiderUsername, "joined", ev.Joined, "activated", ev.Activated, "messages", ev.Messages)
	r.ended.Emit(ev)
	return nil
}

func (r *Simulator) stopLocked() domain.RaidEvent {
	r.generation++
	r.joins.CancelAll()
	r.activations.CancelAll()
	r.chatter.CancelAll()
	r.timeout.CancelAll()
	r.status.Active = false
	return r.eventLocked(r.clock.Now())
}

// Active 是否有進行中的 Raid
func (r *Simulator) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status.Active
}

// Status 目前 (或最後一場) Raid 的狀態
func (r *Simulator) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.status
	s.PendingJoins = r.joins.Len()
	s.PendingActivations = r.activations.Len()
	s.PendingMessages = r.chatter.Len()
	return s
}

// OnStarted 註冊 Raid 開始監聽
func (r *Simulator) OnStarted(fn func(domain.RaidEvent)) observer.ID {
	return r.started.Add(fn)
}

// OnEnded 註冊 Raid 結束監聽 (手動停止或時間到)
func (r *Simulator) OnEnded(fn func(domain.RaidEvent)) observer.ID {
	return r.ended.Add(fn)
}

// current 回呼觸發時確認世代仍有效
func (r *Simulator) current(gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status.Active && r.generation == gen
}

func (r *Simulator) join(gen uint64) {
	if !r.current(gen) {
		return
	}
	if r.audience.ForceJoin() == nil {
		return
	}
	r.mu.Lock()
	if r.generation == gen {
		r.status.Joined++
	}
	r.mu.Unlock()
}

func (r *Simulator) activate(gen uint64) {
	if !r.current(gen) {
		return
	}
	if r.audience.ForceActivate() == nil {
		return
	}
	r.mu.Lock()
	if r.generation == gen {
		r.status.Activated++
	}
	r.mu.Unlock()
}

func (r *Simulator) message(gen uint64) {
	if !r.current(gen) {
		return
	}
	r.mu.Lock()
	raider := r.status.RaiderUsername
	r.mu.Unlock()

	msg := domain.ChatMessage{
		ID:        domain.NewMessageID(),
		Username:  raider,
		Text:      r.Render(raider),
		Kind:      domain.MessageKindRaid,
		CreatedAt: r.clock.Now(),
	}
	author := r.authors.PickActiveUser(domain.AnyPersonality)
	if author == nil {
		r.audience.ForceActivate()
		author = r.authors.PickActiveUser(domain.AnyPersonality)
	}
	if author != nil {
		msg.UserID = author.ID
		msg.Username = author.Username
		msg.IsModerator = author.IsModerator
	}

	if r.feed != nil {
		msg = r.feed.Add(msg)
	}
	if r.messages != nil {
		r.messages.PostSynthetic(msg)
	}

	r.mu.Lock()
	if r.generation == gen {
		r.status.Messages++
	}
	r.mu.Unlock()
}

func (r *Simulator) expire(gen uint64) {
	r.mu.Lock()
	if !r.status.Active || r.generation != gen {
		r.mu.Unlock()
		return
	}
	ev := r.stopLocked()
	r.mu.Unlock()

	r.logger.Info("Raid finished", "raider", ev.RaiderUsername, "joined", ev.Joined, "activated", ev.Activated, "messages", ev.Messages)
	r.ended.Emit(ev)
}

// Render 隨機選一種訊息類別與模板，並代入 raider 名稱
func (r *Simulator) Render(raider string) string {
	kinds := make([]string, 0, len(r.cfg.Templates))
	for k := range r.cfg.Templates {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	kind, ok := random.Pick(r.rnd, kinds)
	if !ok {
		return raider + " raid!"
	}
	tmpl, ok := random.Pick(r.rnd, r.cfg.Templates[kind])
	if !ok {
		return raider + " raid!"
	}
	return strings.ReplaceAll(tmpl, "{raider}", raider)
}

func (r *Simulator) eventLocked(at time.Time) domain.RaidEvent {
	return domain.RaidEvent{
		RaidID:         r.status.RaidID,
		RaiderUsername: r.status.RaiderUsername,
		RaiderCount:    r.status.RaiderCount,
		Intensity:      r.status.Intensity,
		Duration:       r.status.Duration,
		Joined:         r.status.Joined,
		Activated:      r.status.Activated,
		Messages:       r.status.Messages,
		At:             at,
	}
}
