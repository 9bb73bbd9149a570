package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Personality 虛擬觀眾的個性標籤。
// 影響訊息風格、投票選擇、按讚速度與經濟行為。
type Personality string

const (
	// AnyPersonality 用於 PickActiveUser，表示不篩選個性
	AnyPersonality Personality = ""

	PersonalityHype       Personality = "hype"
	PersonalityMeme       Personality = "meme"
	PersonalityAnalyst    Personality = "analyst"
	PersonalityLurker     Personality = "lurker"
	PersonalityWholesome  Personality = "wholesome"
	PersonalityContrarian Personality = "contrarian"
	PersonalityBandwagon  Personality = "bandwagon"
	PersonalityCasual     Personality = "casual"
)

var personalities = []Personality{
	PersonalityHype,
	PersonalityMeme,
	PersonalityAnalyst,
	PersonalityLurker,
	PersonalityWholesome,
	PersonalityContrarian,
	PersonalityBandwagon,
	PersonalityCasual,
}

// Personalities 回傳所有個性 (固定順序)
func Personalities() []Personality {
	return slices.Clone(personalities)
}

// Valid 是否為已知個性
func (p Personality) Valid() bool {
	return slices.Contains(personalities, p)
}

// UserState 使用者在觀眾池中的生命週期狀態
type UserState string

const (
	StateOffline UserState = "offline"
	StateLurking UserState = "lurking"
	StateActive  UserState = "active"
)

// CanTransition 檢查狀態轉換是否合法。
// 合法路徑: offline -> lurking -> active, lurking|active -> offline。
// 不允許 offline -> active 或 active -> lurking。
func CanTransition(from, to UserState) bool {
	switch from {
	case StateOffline:
		return to == StateLurking
	case StateLurking:
		return to == StateActive || to == StateOffline
	case StateActive:
		return to == StateOffline
	}
	return false
}

// SubTier 訂閱等級 (沿用 Twitch 的 1000/2000/3000 表示法)
type SubTier string

const (
	SubTierNone SubTier = ""
	SubTier1    SubTier = "1000"
	SubTier2    SubTier = "2000"
	SubTier3    SubTier = "3000"
)

// Badge 顯示用徽章
type Badge struct {
	Kind  string `json:"kind"`            // subscriber, bits, moderator, vip, founder, verified
	Label string `json:"label"`           // 顯示文字
	Level int    `json:"level,omitempty"` // 月數或 bits 門檻
}

// ModAction 管理動作紀錄
type ModAction struct {
	Kind     string        `json:"kind"` // ban, unban, timeout, warn
	By       string        `json:"by"`
	Reason   string        `json:"reason,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	At       time.Time     `json:"at"`
}

// Moderation 使用者的管理狀態
type Moderation struct {
	Banned       bool        `json:"banned"`
	TimedOut     bool        `json:"timed_out"`
	TimeoutUntil time.Time   `json:"timeout_until,omitzero"`
	Warnings     int         `json:"warnings"`
	Log          []ModAction `json:"log,omitempty"`
}

// Transition 一次狀態轉換紀錄
type Transition struct {
	From UserState `json:"from"`
	To   UserState `json:"to"`
	At   time.Time `json:"at"`
}

// SyntheticUser 代表一個虛擬觀眾。
// 除了 Channel Points (由 points.Manager 帳本持有) 以外，所有經濟狀態都放在這裡。
type SyntheticUser struct {
	ID          string      `json:"id"`
	Username    string      `json:"username"`
	Personality Personality `json:"personality"`
	IsModerator bool        `json:"is_moderator"`

	State      UserState    `json:"state"`
	JoinedAt   time.Time    `json:"joined_at,omitzero"`
	StateSince time.Time    `json:"state_since,omitzero"`
	Trace      []Transition `json:"-"`

	MessageCount  int     `json:"message_count"`
	LikesGiven    int     `json:"likes_given"`
	ActivityLevel float64 `json:"activity_level"` // [0,1]，加權抽選權重

	Bits             int64   `json:"bits"`
	SubscriberMonths int     `json:"subscriber_months"`
	SubTier          SubTier `json:"sub_tier,omitempty"`
	Badges           []Badge `json:"badges"`

	Color          string    `json:"color"`
	AvatarURL      string    `json:"avatar_url"`
	Bio            string    `json:"bio"`
	AccountCreated time.Time `json:"account_created"`

	Moderation Moderation `json:"moderation"`
}

// NewSyntheticUser 建立一個離線狀態的虛擬觀眾
//
// 參數:
//
//	username: string - 顯示名稱 (呼叫端需保證唯一)
//	p: Personality - 個性
//
// 回傳值:
//
//	*SyntheticUser: 初始化後的使用者物件
func NewSyntheticUser(username string, p Personality) *SyntheticUser {
	return &SyntheticUser{
		ID:          uuid.NewString(),
		Username:    username,
		Personality: p,
		State:       StateOffline,
		Badges:      make([]Badge, 0),
	}
}

// Present 是否在觀眾池中 (lurking 或 active)
func (u *SyntheticUser) Present() bool {
	return u.State == StateLurking || u.State == StateActive
}

// IsSubscriber 是否為訂閱者
func (u *SyntheticUser) IsSubscriber() bool {
	return u.SubscriberMonths > 0
}

// Muted 是否處於封鎖或禁言中
func (u *SyntheticUser) Muted(now time.Time) bool {
	if u.Moderation.Banned {
		return true
	}
	return u.Moderation.TimedOut && now.Before(u.Moderation.TimeoutUntil)
}

// Clone 深拷貝，供唯讀存取使用，避免外部修改觀眾池內部狀態
func (u *SyntheticUser) Clone() SyntheticUser {
	c := *u
	c.Badges = slices.Clone(u.Badges)
	c.Trace = slices.Clone(u.Trace)
	c.Moderation.Log = slices.Clone(u.Moderation.Log)
	return c
}
