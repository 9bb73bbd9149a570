// Package subs 處理訂閱：新訂、續訂、贈訂、社群贈訂，以及 sub train 偵測。
package subs

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/virtual-audience/internal/audience/pool"
	"github.com/JoeShih716/virtual-audience/internal/audience/profile"
	"github.com/JoeShih716/virtual-audience/internal/core/domain"
	"github.com/JoeShih716/virtual-audience/internal/core/observer"
	"github.com/JoeShih716/virtual-audience/internal/core/random"
	"github.com/JoeShih716/virtual-audience/internal/core/task"
)

// Config 訂閱設定
type Config struct {
	TierPrices      map[string]string `yaml:"tier_prices"` // tier -> 美元 (decimal 字串)
	MilestoneMonths []int             `yaml:"milestone_months"`

	AISubscribeProbability float64 `yaml:"ai_subscribe_probability"`
	AIGiftSubProbability   float64 `yaml:"ai_gift_sub_probability"`
	PrimeChance            float64 `yaml:"prime_chance"`
	CommunityGiftChance    float64 `yaml:"community_gift_chance"`
	CommunityGiftSizes     []int   `yaml:"community_gift_sizes"`

	TrainThreshold int           `yaml:"train_threshold"`
	TrainWindow    time.Duration `yaml:"train_window"`
	TrainSettle    time.Duration `yaml:"train_settle"` // 達門檻後等待多久才發出 train，期間的訂閱會併入
	HistoryLimit   int           `yaml:"history_limit"`
}

// DefaultConfig 預設設定
func DefaultConfig() Config {
	return Config{
		TierPrices: map[string]string{
			string(domain.SubTier1): "4.99",
			string(domain.SubTier2): "9.99",
			string(domain.SubTier3): "24.99",
		},
		MilestoneMonths:        []int{3, 6, 12, 24, 36, 48, 60},
		AISubscribeProbability: 0.08,
		AIGiftSubProbability:   0.04,
		PrimeChance:            0.2,
		CommunityGiftChance:    0.3,
		CommunityGiftSizes:     []int{5, 10, 20},
		TrainThreshold:         3,
		TrainWindow:            30 * time.Second,
		TrainSettle:            5 * time.Second,
		HistoryLimit:           500,
	}
}

type trainEntry struct {
	at       time.Time
	username string
}

type pendingTrain struct {
	count     int
	usernames []string
	startedAt time.Time
}

// Manager 訂閱管理器
type Manager struct {
	cfg    Config
	prices map[domain.SubTier]decimal.Decimal

	pool   *pool.Pool
	clock  task.Scheduler
	rnd    *random.Source
	logger *slog.Logger
	timers *task.Group

	mu      sync.Mutex
	history []domain.SubscriptionEvent
	trains  []domain.SubTrainEvent
	window  []trainEntry
	pending *pendingTrain

	listeners      observer.List[domain.SubscriptionEvent]
	trainListeners observer.List[domain.SubTrainEvent]
}

// New 建立訂閱管理器
func New(cfg Config, p *pool.Pool, s task.Scheduler, rnd *random.Source, logger *slog.Logger) *Manager {
	logger = logger.With("component", "subscriptions")
	prices := make(map[domain.SubTier]decimal.Decimal, len(cfg.TierPrices))
	for tier, price := range cfg.TierPrices {
		d, err := decimal.NewFromString(price)
		if err != nil {
			logger.Warn("Invalid tier price, ignoring", "tier", tier, "price", price, "error", err)
			continue
		}
		prices[domain.SubTier(tier)] = d
	}
	return &Manager{
		cfg:    cfg,
		prices: prices,
		pool:   p,
		clock:  s,
		rnd:    rnd,
		logger: logger,
		timers: task.NewGroup(s),
	}
}

// IsMilestone 月數是否為里程碑 (精確比對)
func (m *Manager) IsMilestone(months int) bool {
	return slices.Contains(m.cfg.MilestoneMonths, months)
}

// Price 訂閱等級的估計金額
func (m *Manager) Price(tier domain.SubTier) decimal.Decimal {
	return m.prices[tier]
}

func normalizeTier(tier domain.SubTier) (domain.SubTier, error) {
	switch tier {
	case domain.SubTierNone:
		return domain.SubTier1, nil
	case domain.SubTier1, domain.SubTier2, domain.SubTier3:
		return tier, nil
	}
	return "", domain.Reject(domain.ErrInvalidTier, "tier %q", tier)
}

// Subscribe 訂閱或續訂，訂閱月數 +1
func (m *Manager) Subscribe(userID string, tier domain.SubTier, message string) (domain.SubscriptionEvent, error) {
	return m.subscribe(userID, tier, message, "", false)
}

func (m *Manager) subscribe(userID string, tier domain.SubTier, message string, kind domain.SubKind, ai bool) (domain.SubscriptionEvent, error) {
	tier, err := normalizeTier(tier)
	if err != nil {
		return domain.SubscriptionEvent{}, err
	}
	user := m.pool.Get(userID)
	if user == nil {
		return domain.SubscriptionEvent{}, domain.Reject(domain.ErrUserNotFound, "user %s", userID)
	}
	if user.Moderation.Banned {
		return domain.SubscriptionEvent{}, domain.Reject(domain.ErrUserBanned, "user %s", user.Username)
	}

	if kind == "" {
		kind = domain.SubKindNew
		if user.IsSubscriber() {
			kind = domain.SubKindResub
		}
	}
	months, err := m.pool.AddSubscriberMonths(userID, 1, tier)
	if err != nil {
		return domain.SubscriptionEvent{}, err
	}

	ev := domain.SubscriptionEvent{
		ID:        domain.NewEventID(),
		Kind:      kind,
		UserID:    userID,
		Username:  user.Username,
		Tier:      tier,
		Months:    months,
		Milestone: m.IsMilestone(months),
		Message:   message,
		Revenue:   m.prices[tier],
		Effect:    m.effect(user.Username, kind, months, tier),
		AI:        ai,
		At:        m.clock.Now(),
	}
	if kind == domain.SubKindPrime {
		ev.Revenue = decimal.Zero
	}
	m.record(ev)
	return ev, nil
}

// GiftSubscription 贈送一份訂閱給指定觀眾
func (m *Manager) GiftSubscription(gifterID, recipientID string, tier domain.SubTier) (domain.SubscriptionEvent, error) {
	return m.giftSub(gifterID, recipientID, tier, domain.SubKindGift, false)
}

func (m *Manager) giftSub(gifterID, recipientID string, tier domain.SubTier, kind domain.SubKind, ai bool) (domain.SubscriptionEvent, error) {
	tier, err := normalizeTier(tier)
	if err != nil {
		return domain.SubscriptionEvent{}, err
	}
	if gifterID == recipientID {
		return domain.SubscriptionEvent{}, domain.Reject(domain.ErrSelfTransfer, "user %s", gifterID)
	}
	gifter := m.pool.Get(gifterID)
	if gifter == nil {
		return domain.SubscriptionEvent{}, domain.Reject(domain.ErrUserNotFound, "gifter %s", gifterID)
	}
	recipient := m.pool.Get(recipientID)
	if recipient == nil {
		return domain.SubscriptionEvent{}, domain.Reject(domain.ErrUserNotFound, "recipient %s", recipientID)
	}
	if recipient.Moderation.Banned {
		return domain.SubscriptionEvent{}, domain.Reject(domain.ErrUserBanned, "recipient %s", recipient.Username)
	}

	months, err := m.pool.AddSubscriberMonths(recipientID, 1, tier)
	if err != nil {
		return domain.SubscriptionEvent{}, err
	}

	ev := domain.SubscriptionEvent{
		ID:             domain.NewEventID(),
		Kind:           kind,
		UserID:         recipientID,
		Username:       recipient.Username,
		GifterID:       gifterID,
		GifterUsername: gifter.Username,
		Tier:           tier,
		Months:         months,
		Milestone:      m.IsMilestone(months),
		Revenue:        m.prices[tier],
		Effect:         m.effect(recipient.Username, kind, months, tier),
		AI:             ai,
		At:             m.clock.Now(),
	}
	m.record(ev)
	return ev, nil
}

// CommunityGift 一次贈送 count 份訂閱給在場觀眾 (優先未訂閱者)。
// 沒有任何合格接收者時回傳 ErrNoRecipients；人數不足時只送給現有的人。
func (m *Manager) CommunityGift(gifterID string, count int, tier domain.SubTier) ([]domain.SubscriptionEvent, error) {
	return m.communityGift(gifterID, count, tier, false)
}

func (m *Manager) communityGift(gifterID string, count int, tier domain.SubTier, ai bool) ([]domain.SubscriptionEvent, error) {
	if count <= 0 {
		return nil, domain.Reject(domain.ErrInvalidAmount, "gift count must be positive, got %d", count)
	}
	if _, err := normalizeTier(tier); err != nil {
		return nil, err
	}
	if m.pool.Get(gifterID) == nil {
		return nil, domain.Reject(domain.ErrUserNotFound, "gifter %s", gifterID)
	}

	eligible := func(u *domain.SyntheticUser) bool {
		return u.Present() && u.ID != gifterID && !u.Moderation.Banned
	}
	recipients := m.pool.Select(func(u *domain.SyntheticUser) bool {
		return eligible(u) && !u.IsSubscriber()
	})
	if len(recipients) < count {
		subscribed := m.pool.Select(func(u *domain.SyntheticUser) bool {
			return eligible(u) && u.IsSubscriber()
		})
		m.rnd.Shuffle(len(subscribed), func(i, j int) { subscribed[i], subscribed[j] = subscribed[j], subscribed[i] })
		recipients = append(recipients, subscribed...)
	} else {
		m.rnd.Shuffle(len(recipients), func(i, j int) { recipients[i], recipients[j] = recipients[j], recipients[i] })
	}
	if len(recipients) == 0 {
		return nil, domain.Reject(domain.ErrNoRecipients, "no viewers to receive gifted subs")
	}
	if len(recipients) > count {
		recipients = recipients[:count]
	}

	events := make([]domain.SubscriptionEvent, 0, len(recipients))
	for _, r := range recipients {
		ev, err := m.giftSub(gifterID, r.ID, tier, domain.SubKindGifted, ai)
		if err != nil {
			m.logger.Warn("Community gift skipped recipient", "recipient", r.Username, "error", err)
			continue
		}
		events = append(events, ev)
	}
	m.logger.Info("Community gift", "gifter", gifterID, "count", len(events))
	return events, nil
}

// AttemptAISubscribe 通過機率門檻後讓一位 active 觀眾訂閱或續訂
func (m *Manager) AttemptAISubscribe() *domain.SubscriptionEvent {
	if !m.rnd.Chance(m.cfg.AISubscribeProbability) {
		return nil
	}
	now := m.clock.Now()
	candidates := m.pool.Select(func(u *domain.SyntheticUser) bool {
		return u.State == domain.StateActive && !u.Muted(now)
	})
	u, ok := random.Pick(m.rnd, candidates)
	if !ok {
		return nil
	}

	tier := profile.SubTier(m.rnd)
	kind := domain.SubKind("")
	if !u.IsSubscriber() && m.rnd.Chance(m.cfg.PrimeChance) {
		kind, tier = domain.SubKindPrime, domain.SubTier1
	}
	ev, err := m.subscribe(u.ID, tier, subMessage(m.rnd, u.SubscriberMonths+1), kind, true)
	if err != nil {
		m.logger.Debug("AI subscription rejected", "user", u.Username, "error", err)
		return nil
	}
	return &ev
}

// AttemptAIGiftSub 通過機率門檻後讓一位 active 觀眾贈訂 (單筆或社群贈訂)
func (m *Manager) AttemptAIGiftSub() []domain.SubscriptionEvent {
	if !m.rnd.Chance(m.cfg.AIGiftSubProbability) {
		return nil
	}
	active := m.pool.Select(func(u *domain.SyntheticUser) bool {
		return u.State == domain.StateActive && !u.Moderation.Banned
	})
	gifter, ok := random.Pick(m.rnd, active)
	if !ok {
		return nil
	}

	if size, ok := random.Pick(m.rnd, m.cfg.CommunityGiftSizes); ok && m.rnd.Chance(m.cfg.CommunityGiftChance) {
		events, err := m.communityGift(gifter.ID, size, domain.SubTier1, true)
		if err != nil {
			m.logger.Debug("AI community gift rejected", "gifter", gifter.Username, "error", err)
			return nil
		}
		return events
	}

	others := slices.DeleteFunc(active, func(u domain.SyntheticUser) bool { return u.ID == gifter.ID })
	unsubscribed := slices.DeleteFunc(slices.Clone(others), func(u domain.SyntheticUser) bool { return u.IsSubscriber() })
	recipient, ok := random.Pick(m.rnd, unsubscribed)
	if !ok {
		if recipient, ok = random.Pick(m.rnd, others); !ok {
			return nil
		}
	}
	ev, err := m.giftSub(gifter.ID, recipient.ID, domain.SubTier1, domain.SubKindGift, true)
	if err != nil {
		m.logger.Debug("AI gift sub rejected", "gifter", gifter.Username, "error", err)
		return nil
	}
	return []domain.SubscriptionEvent{ev}
}

// record 寫入歷史並更新 sub train 視窗。
// 視窗內達門檻時等待 TrainSettle 再發出；等待期間的新訂閱只會累加同一班 train。
func (m *Manager) record(ev domain.SubscriptionEvent) {
	m.mu.Lock()
	m.history = append(m.history, ev)
	if limit := m.cfg.HistoryLimit; limit > 0 && len(m.history) > limit {
		m.history = m.history[len(m.history)-limit:]
	}

	cutoff := ev.At.Add(-m.cfg.TrainWindow)
	m.window = slices.DeleteFunc(m.window, func(e trainEntry) bool { return e.at.Before(cutoff) })
	m.window = append(m.window, trainEntry{at: ev.At, username: ev.Username})

	switch {
	case m.pending != nil:
		m.pending.count++
		m.pending.usernames = append(m.pending.usernames, ev.Username)
	case m.cfg.TrainThreshold > 0 && len(m.window) >= m.cfg.TrainThreshold:
		p := &pendingTrain{count: len(m.window), startedAt: m.window[0].at}
		for _, e := range m.window {
			p.usernames = append(p.usernames, e.username)
		}
		m.pending = p
		m.timers.Schedule(m.cfg.TrainSettle, m.fireTrain)
	}
	m.mu.Unlock()

	m.logger.Info("Subscription", "kind", ev.Kind, "user", ev.Username, "tier", ev.Tier, "months", ev.Months, "ai", ev.AI)
	m.listeners.Emit(ev)
}

func (m *Manager) fireTrain() {
	m.mu.Lock()
	p := m.pending
	m.pending = nil
	m.window = nil
	if p == nil {
		m.mu.Unlock()
		return
	}
	ev := domain.SubTrainEvent{
		ID:         domain.NewEventID(),
		TrainCount: p.count,
		Usernames:  p.usernames,
		StartedAt:  p.startedAt,
		At:         m.clock.Now(),
		Effect: domain.Effect{
			Kind:      "sub_train",
			Color:     "#9146FF",
			Duration:  time.Duration(min(p.count, 20)) * time.Second,
			Intensity: min(1, float64(p.count)/10),
			Text:      fmt.Sprintf("SUB TRAIN x%d!", p.count),
		},
	}
	m.trains = append(m.trains, ev)
	m.mu.Unlock()

	m.logger.Info("Sub train", "count", ev.TrainCount)
	m.trainListeners.Emit(ev)
}

// Close 取消等待中的 sub train 並清空視窗
func (m *Manager) Close() {
	m.timers.CancelAll()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = nil
	m.window = nil
}

// TrainPending 是否有等待發出的 sub train
func (m *Manager) TrainPending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending != nil
}

// AddListener 註冊訂閱事件監聽
func (m *Manager) AddListener(fn func(domain.SubscriptionEvent)) observer.ID {
	return m.listeners.Add(fn)
}

// RemoveListener 解除訂閱事件監聽
func (m *Manager) RemoveListener(id observer.ID) bool {
	return m.listeners.Remove(id)
}

// AddTrainListener 註冊 sub train 監聽
func (m *Manager) AddTrainListener(fn func(domain.SubTrainEvent)) observer.ID {
	return m.trainListeners.Add(fn)
}

// RemoveTrainListener 解除 sub train 監聽
func (m *Manager) RemoveTrainListener(id observer.ID) bool {
	return m.trainListeners.Remove(id)
}

// History 訂閱紀錄複本
func (m *Manager) History() []domain.SubscriptionEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.history)
}

// Trains sub train 紀錄複本
func (m *Manager) Trains() []domain.SubTrainEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.trains)
}

func (m *Manager) effect(username string, kind domain.SubKind, months int, tier domain.SubTier) domain.Effect {
	text := fmt.Sprintf("%s subscribed!", username)
	switch kind {
	case domain.SubKindResub:
		text = fmt.Sprintf("%s resubscribed for %d months!", username, months)
	case domain.SubKindPrime:
		text = fmt.Sprintf("%s subscribed with Prime!", username)
	case domain.SubKindGift, domain.SubKindGifted:
		text = fmt.Sprintf("%s received a gift sub!", username)
	}
	intensity := 0.4
	switch tier {
	case domain.SubTier2:
		intensity = 0.7
	case domain.SubTier3:
		intensity = 1
	}
	if m.IsMilestone(months) {
		intensity = min(1, intensity+0.3)
	}
	return domain.Effect{Kind: "subscription", Color: "#9146FF", Duration: 5 * time.Second, Intensity: intensity, Text: text}
}

var subMessages = []string{
	"love the streams!",
	"happy to support",
	"best community on the site",
	"here for the long haul",
	"",
}

func subMessage(rnd *random.Source, months int) string {
	if months > 1 && rnd.Chance(0.5) {
		return fmt.Sprintf("%d months already, time flies", months)
	}
	msg, _ := random.Pick(rnd, subMessages)
	return msg
}
