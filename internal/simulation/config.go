package simulation

import (
	"time"

	"github.com/JoeShih716/virtual-audience/internal/audience/lifecycle"
	"github.com/JoeShih716/virtual-audience/internal/audience/moderator"
	"github.com/JoeShih716/virtual-audience/internal/audience/pool"
	"github.com/JoeShih716/virtual-audience/internal/chat"
	"github.com/JoeShih716/virtual-audience/internal/economy/cheer"
	"github.com/JoeShih716/virtual-audience/internal/economy/gift"
	"github.com/JoeShih716/virtual-audience/internal/economy/points"
	"github.com/JoeShih716/virtual-audience/internal/economy/subs"
	"github.com/JoeShih716/virtual-audience/internal/engagement/likes"
	"github.com/JoeShih716/virtual-audience/internal/engagement/polls"
	"github.com/JoeShih716/virtual-audience/internal/engagement/retrolikes"
	"github.com/JoeShih716/virtual-audience/internal/orchestrator"
	"github.com/JoeShih716/virtual-audience/internal/raid"
)

// Config 模擬器的全部設定，每個元件一張表
type Config struct {
	Seed            uint64              `yaml:"seed" env:"SIM_SEED"` // 0 代表以時間為種子
	FeedCapacity    int                 `yaml:"feed_capacity"`
	ModerationSweep time.Duration       `yaml:"moderation_sweep"` // 清除過期禁言的週期
	PublishTimeout  time.Duration       `yaml:"publish_timeout"`
	Pool            pool.Config         `yaml:"pool"`
	Moderators      moderator.Config    `yaml:"moderators"`
	Lifecycle       lifecycle.Config    `yaml:"lifecycle"`
	Points          points.Config       `yaml:"points"`
	Cheer           cheer.Config        `yaml:"cheer"`
	Gift            gift.Config         `yaml:"gift"`
	Subs            subs.Config         `yaml:"subs"`
	Likes           likes.Config        `yaml:"likes"`
	RetroLikes      retrolikes.Config   `yaml:"retro_likes"`
	Polls           polls.Config        `yaml:"polls"`
	Raid            raid.Config         `yaml:"raid"`
	Orchestrator    orchestrator.Config `yaml:"orchestrator"`
}

// DefaultConfig 預設設定
func DefaultConfig() Config {
	return Config{
		FeedCapacity:    chat.DefaultCapacity,
		ModerationSweep: 5 * time.Second,
		PublishTimeout:  2 * time.Second,
		Pool:            pool.DefaultConfig(),
		Moderators:      moderator.DefaultConfig(),
		Lifecycle:       lifecycle.DefaultConfig(),
		Points:          points.DefaultConfig(),
		Cheer:           cheer.DefaultConfig(),
		Gift:            gift.DefaultConfig(),
		Subs:            subs.DefaultConfig(),
		Likes:           likes.DefaultConfig(),
		RetroLikes:      retrolikes.DefaultConfig(),
		Polls:           polls.DefaultConfig(),
		Raid:            raid.DefaultConfig(),
		Orchestrator:    orchestrator.DefaultConfig(),
	}
}
