package points

import (
	"fmt"
	"time"

	"github.com/JoeShih716/virtual-audience/internal/core/domain"
)

// RedemptionConfig 兌換目錄設定
type RedemptionConfig struct {
	ID       string        `yaml:"id"`
	Name     string        `yaml:"name"`
	Cost     int64         `yaml:"cost"`
	Cooldown time.Duration `yaml:"cooldown"`
	Effect   string        `yaml:"effect"`
	Color    string        `yaml:"color"`
	Duration time.Duration `yaml:"duration"`
}

// HighlightBombID 最常用來驗證冷卻的兌換項目
const HighlightBombID = "highlight_bomb"

func defaultRedemptions() []RedemptionConfig {
	return []RedemptionConfig{
		{ID: "hydrate", Name: "Hydrate!", Cost: 100, Cooldown: 2 * time.Minute, Effect: "water_drop", Color: "#4FC3F7", Duration: 3 * time.Second},
		{ID: "confetti", Name: "Confetti Blast", Cost: 250, Cooldown: 30 * time.Second, Effect: "confetti", Color: "#FFD54F", Duration: 4 * time.Second},
		{ID: HighlightBombID, Name: "Highlight Bomb", Cost: 500, Cooldown: time.Minute, Effect: "highlight", Color: "#FF4081", Duration: 8 * time.Second},
		{ID: "song_request", Name: "Song Request", Cost: 750, Cooldown: 90 * time.Second, Effect: "music_note", Color: "#7C4DFF", Duration: 5 * time.Second},
		{ID: "emote_only", Name: "Emote Only (1 min)", Cost: 1500, Cooldown: 5 * time.Minute, Effect: "emote_rain", Color: "#69F0AE", Duration: time.Minute},
		{ID: "spotlight", Name: "Chat Spotlight", Cost: 3000, Cooldown: 3 * time.Minute, Effect: "spotlight", Color: "#FFFFFF", Duration: 15 * time.Second},
	}
}

// Definition 由設定產生兌換定義，效果固定成功
func (c RedemptionConfig) Definition() domain.RedemptionDefinition {
	return domain.RedemptionDefinition{
		ID:       c.ID,
		Name:     c.Name,
		Cost:     c.Cost,
		Cooldown: c.Cooldown,
		Effect: func(u domain.SyntheticUser) *domain.Effect {
			return &domain.Effect{
				Kind:      c.Effect,
				Color:     c.Color,
				Duration:  c.Duration,
				Intensity: 1,
				Text:      fmt.Sprintf("%s redeemed %s", u.Username, c.Name),
			}
		},
	}
}
