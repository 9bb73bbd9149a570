package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType 對外事件類型
type EventType string

const (
	EventCheer         EventType = "cheer"
	EventBitGift       EventType = "bit_gift"
	EventSubscription  EventType = "subscription"
	EventSubTrain      EventType = "sub_train"
	EventRedemption    EventType = "redemption"
	EventRaidStarted   EventType = "raid_started"
	EventRaidEnded     EventType = "raid_ended"
	EventViewerCount   EventType = "viewer_count"
	EventMessageLiked  EventType = "message_liked"
	EventPollVote      EventType = "poll_vote"
	EventSyntheticChat EventType = "synthetic_chat"
)

// Effect 事件附帶的視覺/行為效果，供呈現層使用
type Effect struct {
	Kind      string        `json:"kind"`
	Color     string        `json:"color,omitempty"`
	Duration  time.Duration `json:"duration"`
	Intensity float64       `json:"intensity"`
	Text      string        `json:"text,omitempty"`
}

// CheerTier Bits 贊助等級
type CheerTier struct {
	Name      string        `json:"name" yaml:"name"`
	Threshold int64         `json:"threshold" yaml:"threshold"`
	Color     string        `json:"color" yaml:"color"`
	Animation string        `json:"animation" yaml:"animation"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
}

// CheerEvent 一次 Bits 贊助
type CheerEvent struct {
	ID       string          `json:"id"`
	UserID   string          `json:"user_id"`
	Username string          `json:"username"`
	Amount   int64           `json:"amount"`
	Tier     CheerTier       `json:"tier"`
	Message  string          `json:"message,omitempty"`
	Revenue  decimal.Decimal `json:"revenue"`
	Effect   Effect          `json:"effect"`
	AI       bool            `json:"ai"`
	At       time.Time       `json:"at"`
}

// GiftEvent 一次 Bits 贈送 (使用者 -> 使用者)
type GiftEvent struct {
	ID           string    `json:"id"`
	FromID       string    `json:"from_id"`
	FromUsername string    `json:"from_username"`
	ToID         string    `json:"to_id"`
	ToUsername   string    `json:"to_username"`
	Amount       int64     `json:"amount"`
	Effect       Effect    `json:"effect"`
	AI           bool      `json:"ai"`
	At           time.Time `json:"at"`
}

// SubKind 訂閱事件種類
type SubKind string

const (
	SubKindNew    SubKind = "new"
	SubKindResub  SubKind = "resub"
	SubKindGift   SubKind = "gift"
	SubKindPrime  SubKind = "prime"
	SubKindGifted SubKind = "community_gift"
)

// SubscriptionEvent 一次訂閱 (新訂、續訂或贈訂)
type SubscriptionEvent struct {
	ID             string          `json:"id"`
	Kind           SubKind         `json:"kind"`
	UserID         string          `json:"user_id"`
	Username       string          `json:"username"`
	GifterID       string          `json:"gifter_id,omitempty"`
	GifterUsername string          `json:"gifter_username,omitempty"`
	Tier           SubTier         `json:"tier"`
	Months         int             `json:"months"`
	Milestone      bool            `json:"milestone"`
	Message        string          `json:"message,omitempty"`
	Revenue        decimal.Decimal `json:"revenue"`
	Effect         Effect          `json:"effect"`
	AI             bool            `json:"ai"`
	At             time.Time       `json:"at"`
}

// SubTrainEvent 短時間內連續訂閱所觸發的 sub train
type SubTrainEvent struct {
	ID         string    `json:"id"`
	TrainCount int       `json:"train_count"`
	Usernames  []string  `json:"usernames"`
	StartedAt  time.Time `json:"started_at"`
	At         time.Time `json:"at"`
	Effect     Effect    `json:"effect"`
}

// RedemptionEvent 一次 Channel Points 兌換
type RedemptionEvent struct {
	ID           string    `json:"id"`
	RedemptionID string    `json:"redemption_id"`
	Name         string    `json:"name"`
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	Cost         int64     `json:"cost"`
	Balance      int64     `json:"balance"` // 兌換後餘額
	Effect       Effect    `json:"effect"`
	AI           bool      `json:"ai"`
	At           time.Time `json:"at"`
}

// RedemptionDefinition 兌換目錄項目。
// 僅 lastUsed 會變動，由 points.Manager 持有。
type RedemptionDefinition struct {
	ID       string
	Name     string
	Cost     int64
	Cooldown time.Duration
	// Effect 產生效果；回傳 nil 代表效果套用失敗，呼叫端需退還點數
	Effect func(user SyntheticUser) *Effect
}

// RaidEvent Raid 開始/結束
type RaidEvent struct {
	RaidID         string        `json:"raid_id"`
	RaiderUsername string        `json:"raider_username"`
	RaiderCount    int           `json:"raider_count"`
	Intensity      string        `json:"intensity"`
	Duration       time.Duration `json:"duration"`
	Joined         int           `json:"joined"`
	Activated      int           `json:"activated"`
	Messages       int           `json:"messages"`
	At             time.Time     `json:"at"`
}

// ViewerCountEvent 觀眾數變動
type ViewerCountEvent struct {
	Viewers int       `json:"viewers"`
	Active  int       `json:"active"`
	Lurking int       `json:"lurking"`
	At      time.Time `json:"at"`
}

// LikeEvent 訊息按讚
type LikeEvent struct {
	MessageID string    `json:"message_id"`
	Username  string    `json:"username"`
	Likes     int       `json:"likes"`
	LikedBy   []string  `json:"liked_by"`
	Retro     bool      `json:"retro"`
	At        time.Time `json:"at"`
}

// VoteEvent 投票
type VoteEvent struct {
	PollID   string       `json:"poll_id"`
	Username string       `json:"username"`
	Option   int          `json:"option"`
	Options  []PollOption `json:"options"`
	At       time.Time    `json:"at"`
}

// Envelope 送往外部 (通知層/AI 產生層) 的事件封包
type Envelope struct {
	Type    EventType `json:"type"`
	ID      string    `json:"id"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload"`
}

// NewEnvelope 包裝事件
func NewEnvelope(t EventType, id string, at time.Time, payload any) Envelope {
	if id == "" {
		id = NewEventID()
	}
	return Envelope{Type: t, ID: id, At: at, Payload: payload}
}
