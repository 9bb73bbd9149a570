package raid

import (
	"time"
)

// Preset Raid 強度設定
type Preset struct {
	WaveDelay         time.Duration `yaml:"wave_delay"`         // 相鄰兩位 raider 加入的間隔
	ActivationDelay   time.Duration `yaml:"activation_delay"`   // 開始啟用前的暖身時間
	ActivationRate    float64       `yaml:"activation_rate"`    // raider 中轉為 active 的比例
	ActivationSpacing time.Duration `yaml:"activation_spacing"` // 相鄰兩次啟用的間隔
	MessageFrequency  time.Duration `yaml:"message_frequency"`
	MessageCount      int           `yaml:"message_count"`
}

// 強度名稱
const (
	IntensityLow     = "low"
	IntensityMedium  = "medium"
	IntensityHigh    = "high"
	IntensityExtreme = "extreme"
)

func defaultPresets() map[string]Preset {
	return map[string]Preset{
		IntensityLow: {
			WaveDelay:         800 * time.Millisecond,
			ActivationDelay:   12 * time.Second,
			ActivationRate:    0.3,
			ActivationSpacing: 1500 * time.Millisecond,
			MessageFrequency:  3 * time.Second,
			MessageCount:      5,
		},
		IntensityMedium: {
			WaveDelay:         500 * time.Millisecond,
			ActivationDelay:   11 * time.Second,
			ActivationRate:    0.5,
			ActivationSpacing: time.Second,
			MessageFrequency:  2 * time.Second,
			MessageCount:      10,
		},
		IntensityHigh: {
			WaveDelay:         300 * time.Millisecond,
			ActivationDelay:   10500 * time.Millisecond,
			ActivationRate:    0.7,
			ActivationSpacing: 600 * time.Millisecond,
			MessageFrequency:  1200 * time.Millisecond,
			MessageCount:      20,
		},
		IntensityExtreme: {
			WaveDelay:         150 * time.Millisecond,
			ActivationDelay:   10 * time.Second,
			ActivationRate:    0.9,
			ActivationSpacing: 300 * time.Millisecond,
			MessageFrequency:  600 * time.Millisecond,
			MessageCount:      40,
		},
	}
}

func defaultTemplates() map[string][]string {
	return map[string][]string{
		"arrival": {
			"{raider} raid has arrived! 🎉",
			"WE'RE HERE FROM {raider}'s STREAM",
			"{raider} sent us, hello!",
			"raid from {raider} checking in",
		},
		"hype": {
			"{raider} RAID LETS GOOO",
			"RAID HYPE 🔥🔥🔥",
			"{raider} raiders in the house!",
			"POGGERS raid from {raider}",
		},
		"question": {
			"what game is this?",
			"{raider} said you're awesome, true?",
			"how long have you been live?",
		},
		"engagement": {
			"love the vibes in here",
			"followed! {raider} has great taste",
			"this chat is so welcoming",
		},
	}
}
