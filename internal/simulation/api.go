package simulation

import (
	"time"

	"github.com/JoeShih716/virtual-audience/internal/audience/pool"
	"github.com/JoeShih716/virtual-audience/internal/core/domain"
	"github.com/JoeShih716/virtual-audience/internal/orchestrator"
	"github.com/JoeShih716/virtual-audience/internal/raid"
)

// PostMessage 加入一則聊天訊息 (主播或外部 AI 產生) 並排程虛擬觀眾的按讚
func (s *Simulation) PostMessage(msg domain.ChatMessage) domain.ChatMessage {
	if msg.UserID == "" && msg.Username != "" {
		if u := s.pool.GetByUsername(msg.Username); u != nil {
			msg.UserID = u.ID
			msg.IsModerator = u.IsModerator
		}
	}
	return s.feed.Add(msg)
}

// RemoveMessage 移除訊息，並取消其尚未觸發的按讚
func (s *Simulation) RemoveMessage(id string) bool {
	return s.feed.Remove(id)
}

// CreatePoll 建立投票並排程虛擬觀眾投票
func (s *Simulation) CreatePoll(question string, options []string, duration time.Duration) (domain.Poll, error) {
	poll, err := s.board.Create(question, options, duration)
	if err != nil {
		return domain.Poll{}, err
	}
	n := s.voting.SchedulePoll(poll)
	s.logger.Info("Poll created", "poll", poll.ID, "options", len(poll.Options), "scheduled_votes", n)
	return poll, nil
}

// EndPoll 提前結束投票，尚未觸發的投票一併取消
func (s *Simulation) EndPoll(id string) (domain.Poll, error) {
	return s.board.End(id)
}

// Redeem 手動兌換 Channel Points
func (s *Simulation) Redeem(userID, redemptionID string) (domain.RedemptionEvent, error) {
	return s.points.Redeem(userID, redemptionID)
}

// Cheer 手動 Bits 贊助
func (s *Simulation) Cheer(userID string, amount int64, message string) (domain.CheerEvent, error) {
	return s.cheer.Cheer(userID, amount, message)
}

// GiftBits 手動 Bits 贈送
func (s *Simulation) GiftBits(fromID, toID string, amount int64) (domain.GiftEvent, error) {
	return s.gift.GiftBits(fromID, toID, amount)
}

// Subscribe 手動訂閱 / 續訂
func (s *Simulation) Subscribe(userID string, tier domain.SubTier, message string) (domain.SubscriptionEvent, error) {
	return s.subs.Subscribe(userID, tier, message)
}

// GiftSubscription 手動贈訂
func (s *Simulation) GiftSubscription(gifterID, recipientID string, tier domain.SubTier) (domain.SubscriptionEvent, error) {
	return s.subs.GiftSubscription(gifterID, recipientID, tier)
}

// CommunityGift 社群贈訂
func (s *Simulation) CommunityGift(gifterID string, count int, tier domain.SubTier) ([]domain.SubscriptionEvent, error) {
	return s.subs.CommunityGift(gifterID, count, tier)
}

// StartRaid 開始 Raid
func (s *Simulation) StartRaid(req raid.Request) error {
	return s.raid.Start(req)
}

// StopRaid 停止 Raid
func (s *Simulation) StopRaid() error {
	return s.raid.Stop()
}

// TriggerSurge 觀眾暴增
func (s *Simulation) TriggerSurge(count int) int {
	return s.lifecycle.TriggerSurge(count)
}

// Ban 封鎖使用者；在場者被移出時補發人數事件
func (s *Simulation) Ban(userID, by, reason string) error {
	u := s.pool.Get(userID)
	if err := s.pool.Ban(userID, by, reason); err != nil {
		return err
	}
	if u != nil && u.Present() {
		s.lifecycle.NotifyViewerCount()
	}
	return nil
}

// Timeout 禁言使用者
func (s *Simulation) Timeout(userID, by string, d time.Duration, reason string) error {
	return s.pool.Timeout(userID, by, d, reason)
}

// Snapshot 模擬器狀態快照 (供 UI 輪詢與 Redis 統計)
type Snapshot struct {
	Running      bool               `json:"running"`
	Audience     pool.Stats         `json:"audience"`
	Messages     int                `json:"messages"`
	PendingLikes int                `json:"pending_likes"`
	ActivePolls  []domain.Poll      `json:"active_polls"`
	Raid         raid.Status        `json:"raid"`
	Engagement   orchestrator.Stats `json:"engagement"`
	SubTrains    int                `json:"sub_trains"`
	Moderators   []string           `json:"moderators"`
	At           time.Time          `json:"at"`
}

// Snapshot 取得目前狀態 (全部為複本)
func (s *Simulation) Snapshot() Snapshot {
	return Snapshot{
		Running:      s.Running(),
		Audience:     s.pool.Stats(),
		Messages:     s.feed.Len(),
		PendingLikes: s.likes.Total(),
		ActivePolls:  s.board.Active(),
		Raid:         s.raid.Status(),
		Engagement:   s.engagement.Stats(),
		SubTrains:    len(s.subs.Trains()),
		Moderators:   s.moderators.Usernames(),
		At:           s.clock.Now(),
	}
}
