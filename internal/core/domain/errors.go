package domain

import (
	"errors"
	"fmt"
)

// 經濟行為與模擬器共用的驗證錯誤。
// 「沒有可選的候選人」不屬於錯誤，各元件以 nil / false 回傳。
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrUserBanned          = errors.New("user is banned")
	ErrModeratorProtected  = errors.New("moderators cannot be banned")
	ErrDuplicateUser       = errors.New("duplicate user")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrSelfTransfer        = errors.New("source and target are the same user")
	ErrOnCooldown          = errors.New("on cooldown")
	ErrUnknownRedemption   = errors.New("unknown redemption")
	ErrEffectFailed        = errors.New("redemption effect failed")
	ErrInvalidTier         = errors.New("invalid subscription tier")
	ErrNoRecipients        = errors.New("no eligible recipients")
	ErrRaidActive          = errors.New("raid already active")
	ErrRaidInactive        = errors.New("no active raid")
	ErrUnknownIntensity    = errors.New("unknown raid intensity")
	ErrPollNotFound        = errors.New("poll not found")
	ErrPollEnded           = errors.New("poll already ended")
	ErrInvalidPoll         = errors.New("invalid poll")
	ErrMessageNotFound     = errors.New("message not found")
	ErrAlreadyVoted        = errors.New("user already voted")
)

// RejectError 驗證失敗的結果。
// Reason 為 sentinel error (供 errors.Is 判斷)，Message 為可顯示給使用者的說明。
type RejectError struct {
	Reason  error
	Message string
}

func (e *RejectError) Error() string {
	if e.Message == "" {
		return e.Reason.Error()
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func (e *RejectError) Unwrap() error {
	return e.Reason
}

// Reject 建立 RejectError
func Reject(reason error, format string, args ...any) error {
	return &RejectError{Reason: reason, Message: fmt.Sprintf(format, args...)}
}
