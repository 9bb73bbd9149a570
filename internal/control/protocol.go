package control

import "encoding/json"

// Action 外部控制指令
type Action string

const (
	ActionPostMessage   Action = "post_message"
	ActionRemoveMessage Action = "remove_message"
	ActionCreatePoll    Action = "create_poll"
	ActionEndPoll       Action = "end_poll"
	ActionRedeem        Action = "redeem"
	ActionCheer         Action = "cheer"
	ActionGiftBits      Action = "gift_bits"
	ActionSubscribe     Action = "subscribe"
	ActionGiftSub       Action = "gift_sub"
	ActionCommunityGift Action = "community_gift"
	ActionStartRaid     Action = "start_raid"
	ActionStopRaid      Action = "stop_raid"
	ActionSurge         Action = "surge"
	ActionTimeout       Action = "timeout"
	ActionBan           Action = "ban"
	ActionSnapshot      Action = "snapshot"
	ActionCatalog       Action = "catalog"
)

// Envelope 指令封包
type Envelope struct {
	Action  Action          `json:"action"`            // 指令代碼
	Payload json.RawMessage `json:"payload,omitempty"` // 具體請求內容
}

// Response 指令回應
type Response struct {
	Action Action `json:"action"`           // 對應的指令代碼
	Data   any    `json:"data,omitempty"`   // 成功時的資料
	Error  string `json:"error,omitempty"`  // 失敗時的錯誤訊息
	Reason string `json:"reason,omitempty"` // 驗證失敗的分類 (例如 "insufficient balance")
}

type postMessageReq struct {
	Username string `json:"username"`
	Text     string `json:"text"`
}

type idReq struct {
	ID string `json:"id"`
}

type createPollReq struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	DurationSec int      `json:"duration_sec"`
}

type redeemReq struct {
	Username     string `json:"username"`
	RedemptionID string `json:"redemption_id"`
}

type cheerReq struct {
	Username string `json:"username"`
	Amount   int64  `json:"amount"`
	Message  string `json:"message"`
}

type giftBitsReq struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

type subscribeReq struct {
	Username string `json:"username"`
	Tier     string `json:"tier"`
	Message  string `json:"message"`
}

type giftSubReq struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Tier  string `json:"tier"`
	Count int    `json:"count"`
}

type raidReq struct {
	RaiderCount    int    `json:"raider_count"`
	RaiderUsername string `json:"raider_username"`
	Intensity      string `json:"intensity"`
	DurationSec    int    `json:"duration_sec"`
}

type surgeReq struct {
	Count int `json:"count"`
}

type moderationReq struct {
	Username    string `json:"username"`
	By          string `json:"by"`
	Reason      string `json:"reason"`
	DurationSec int    `json:"duration_sec"`
}
