// Package profile 產生虛擬觀眾的外觀屬性：名稱、頭像、簡介、顏色、資歷、Bits 與徽章。
// 全部為純函式，不持有狀態；亂數來源由呼叫端注入。
package profile

import (
	"fmt"
	"net/url"
	"time"

	"github.com/JoeShih716/virtual-audience/internal/core/domain"
	"github.com/JoeShih716/virtual-audience/internal/core/random"
)

// 訂閱月數徽章門檻 (由大到小)
var subBadgeLevels = []int{60, 48, 36, 24, 12, 9, 6, 3, 2, 1}

// Bits 徽章門檻 (由大到小)
var bitBadgeLevels = []int64{100000, 50000, 25000, 10000, 5000, 1000, 100, 1}

// Username 依個性產生一個候選名稱 (不保證唯一)
func Username(rnd *random.Source, p domain.Personality) string {
	pre, ok := random.Pick(rnd, prefixes[p])
	if !ok {
		pre, _ = random.Pick(rnd, prefixes[domain.PersonalityCasual])
	}
	noun, _ := random.Pick(rnd, nouns)
	style, _ := random.Pick(rnd, suffixStyles)

	name := pre + noun
	switch {
	case style == "_":
		name = fmt.Sprintf("%s_%d", name, rnd.IntBetween(1, 999))
	case style != "":
		name += style
	}
	if rnd.Chance(0.35) {
		name = fmt.Sprintf("%s%d", name, rnd.IntBetween(1, 99))
	}
	return name
}

// UniqueUsername 以有限次數重試產生不重複名稱，失敗時改用數字後綴。
//
// 參數:
//
//	rnd: *random.Source - 亂數來源
//	p: domain.Personality - 個性
//	taken: func(string) bool - 名稱是否已被使用
//	attempts: int - 重試次數上限
//
// 回傳值:
//
//	string: 名稱
//	bool: 是否成功取得未使用的名稱
func UniqueUsername(rnd *random.Source, p domain.Personality, taken func(string) bool, attempts int) (string, bool) {
	name := ""
	for i := 0; i < attempts; i++ {
		name = Username(rnd, p)
		if !taken(name) {
			return name, true
		}
	}
	for n := 2; n < 2+attempts*100; n++ {
		candidate := fmt.Sprintf("%s_%d", name, n)
		if !taken(candidate) {
			return candidate, true
		}
	}
	return name, false
}

// AvatarURL 以名稱為種子的頭像連結
func AvatarURL(rnd *random.Source, seed string) string {
	style, _ := random.Pick(rnd, avatarStyles)
	return fmt.Sprintf("https://api.dicebear.com/7.x/%s/svg?seed=%s", style, url.QueryEscape(seed))
}

// Bio 個人簡介
func Bio(rnd *random.Source, p domain.Personality) string {
	bio, ok := random.Pick(rnd, bios[p])
	if !ok {
		return ""
	}
	return bio
}

// Color 聊天室名稱顏色
func Color(rnd *random.Source) string {
	c, _ := random.Pick(rnd, colors)
	return c
}

// AccountCreated 帳號建立時間 (30 天 ~ 約 8 年前)
func AccountCreated(rnd *random.Source, now time.Time) time.Time {
	days := rnd.IntBetween(30, 3000)
	return now.Add(-time.Duration(days) * 24 * time.Hour)
}

// ActivityLevel 依個性抽出活躍度
func ActivityLevel(rnd *random.Source, p domain.Personality) float64 {
	r, ok := activityRange[p]
	if !ok {
		r = [2]float64{0.3, 0.6}
	}
	return rnd.FloatBetween(r[0], r[1])
}

// InitialBits 初始 Bits 餘額；多數觀眾為 0
func InitialBits(rnd *random.Source, p domain.Personality) int64 {
	prof, ok := bitsProfile[p]
	if !ok || !rnd.Chance(prof.chance) {
		return 0
	}
	return rnd.Int64Between(prof.min, prof.max)
}

// InitialSubMonths 初始訂閱月數；約一半觀眾未訂閱，老訂閱者機率遞減
func InitialSubMonths(rnd *random.Source, p domain.Personality) int {
	chance := 0.45
	switch p {
	case domain.PersonalityWholesome, domain.PersonalityHype:
		chance = 0.6
	case domain.PersonalityLurker:
		chance = 0.3
	}
	if !rnd.Chance(chance) {
		return 0
	}
	switch r := rnd.Float64(); {
	case r < 0.5:
		return rnd.IntBetween(1, 6)
	case r < 0.8:
		return rnd.IntBetween(7, 18)
	case r < 0.95:
		return rnd.IntBetween(19, 36)
	default:
		return rnd.IntBetween(37, 72)
	}
}

// SubTier 抽出訂閱等級 (Tier 1 為主)
func SubTier(rnd *random.Source) domain.SubTier {
	switch idx := rnd.WeightedIndex([]float64{85, 10, 5}); idx {
	case 1:
		return domain.SubTier2
	case 2:
		return domain.SubTier3
	default:
		return domain.SubTier1
	}
}

// SubBadgeLevel 訂閱徽章等級 (小於等於月數的最大門檻)
func SubBadgeLevel(months int) int {
	for _, lv := range subBadgeLevels {
		if months >= lv {
			return lv
		}
	}
	return 0
}

// BitBadgeLevel Bits 徽章等級 (小於等於 bits 的最大門檻)
func BitBadgeLevel(bits int64) int64 {
	for _, lv := range bitBadgeLevels {
		if bits >= lv {
			return lv
		}
	}
	return 0
}

// Badges 由訂閱月數、Bits 與身分推導徽章列表
func Badges(months int, bits int64, moderator bool) []domain.Badge {
	badges := make([]domain.Badge, 0, 4)
	if moderator {
		badges = append(badges,
			domain.Badge{Kind: "moderator", Label: "Moderator"},
			domain.Badge{Kind: "verified", Label: "Verified"},
			domain.Badge{Kind: "turbo", Label: "Turbo"},
		)
	}
	if lv := SubBadgeLevel(months); lv > 0 {
		label := fmt.Sprintf("%d-Month Subscriber", lv)
		if lv >= 12 && lv%12 == 0 {
			label = fmt.Sprintf("%d-Year Subscriber", lv/12)
		}
		badges = append(badges, domain.Badge{Kind: "subscriber", Label: label, Level: lv})
	}
	if months >= 36 {
		badges = append(badges, domain.Badge{Kind: "founder", Label: "Founder"})
	}
	if lv := BitBadgeLevel(bits); lv > 0 {
		badges = append(badges, domain.Badge{Kind: "bits", Label: fmt.Sprintf("cheer %d", lv), Level: int(lv)})
	}
	return badges
}

// NewUser 產生一個完整外觀的離線虛擬觀眾
func NewUser(rnd *random.Source, username string, p domain.Personality, now time.Time) *domain.SyntheticUser {
	u := domain.NewSyntheticUser(username, p)
	u.AvatarURL = AvatarURL(rnd, username)
	u.Bio = Bio(rnd, p)
	u.Color = Color(rnd)
	u.AccountCreated = AccountCreated(rnd, now)
	u.ActivityLevel = ActivityLevel(rnd, p)
	u.Bits = InitialBits(rnd, p)
	u.SubscriberMonths = InitialSubMonths(rnd, p)
	if u.SubscriberMonths > 0 {
		u.SubTier = SubTier(rnd)
	}
	u.Badges = Badges(u.SubscriberMonths, u.Bits, false)
	return u
}
