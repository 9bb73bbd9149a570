package domain

import (
	"slices"
	"time"
)

// MessageKind 訊息來源類型
type MessageKind string

const (
	MessageKindChat   MessageKind = "chat"   // 一般聊天 (外部 AI 產生或主播輸入)
	MessageKindRaid   MessageKind = "raid"   // Raid 模擬器產生
	MessageKindSystem MessageKind = "system" // 系統公告
)

// ChatMessage 聊天室中的一則訊息。
// 訊息本體由外部 (UI/AI) 產生，核心只維護最近訊息的按讚狀態。
type ChatMessage struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id,omitempty"`
	Username    string      `json:"username"`
	Text        string      `json:"text"`
	Kind        MessageKind `json:"kind"`
	IsModerator bool        `json:"is_moderator"`
	CreatedAt   time.Time   `json:"created_at"`
	Likes       int         `json:"likes"`
	LikedBy     []string    `json:"liked_by,omitempty"`
}

// Clone 深拷貝
func (m *ChatMessage) Clone() ChatMessage {
	c := *m
	c.LikedBy = slices.Clone(m.LikedBy)
	return c
}

// LikedByUser 該使用者是否已按讚
func (m *ChatMessage) LikedByUser(username string) bool {
	return slices.Contains(m.LikedBy, username)
}

// PollOption 投票選項
type PollOption struct {
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

// Poll 聊天室投票
type Poll struct {
	ID        string        `json:"id"`
	Question  string        `json:"question"`
	Options   []PollOption  `json:"options"`
	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"created_at"`
	Ended     bool          `json:"ended"`
	Voters    []string      `json:"voters,omitempty"`
}

// Clone 深拷貝
func (p *Poll) Clone() Poll {
	c := *p
	c.Options = slices.Clone(p.Options)
	c.Voters = slices.Clone(p.Voters)
	return c
}

// TotalVotes 總票數
func (p *Poll) TotalVotes() int {
	total := 0
	for _, o := range p.Options {
		total += o.Votes
	}
	return total
}
