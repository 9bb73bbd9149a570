package ports

// BitWallet 定義 Bits 餘額操作介面。
// Bits 存放在使用者實體上，由觀眾池實作；Cheer/Gift 管理器只透過此介面扣款與轉帳。
// 所有操作皆為「先檢查再變更」，餘額不足時拒絕而不是歸零。
type BitWallet interface {
	// Balance 查詢使用者 Bits 餘額
	Balance(userID string) (int64, error)

	// Deduct 扣除 Bits，回傳扣款後餘額
	Deduct(userID string, amount int64, reason string) (int64, error)

	// Add 增加 Bits，回傳加款後餘額
	Add(userID string, amount int64, reason string) (int64, error)

	// Transfer 原子轉帳；from 與 to 不可相同
	Transfer(fromID, toID string, amount int64, reason string) error
}

// PointGranter 發放 Channel Points (Moderator Registry 啟動時使用)
type PointGranter interface {
	Grant(userID string, amount int64) int64
}
