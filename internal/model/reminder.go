package model

import "time"

// Reminder はアイテムに紐づく通知予定レコードを表す。
// 配信自体は外部の送信側が行い、このレコードは受動的に保持されるだけである。
type Reminder struct {
	ID             string
	ItemID         string
	TelegramChatID string
	ScheduledTime  time.Time
	Sent           bool
	CreatedAt      time.Time
}

// Clone はリマインダーのコピーを返す。
func (r *Reminder) Clone() *Reminder {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// ReminderPatch はリマインダーの作成・部分更新の入力を表す。
type ReminderPatch struct {
	ID             Optional[string]
	ItemID         Optional[string]
	TelegramChatID Optional[string]
	ScheduledTime  Optional[string] // 未パース
	Sent           Optional[bool]
}

// IsEmpty はいずれのフィールドも指定されていない場合にtrueを返す。
func (p ReminderPatch) IsEmpty() bool {
	return !p.ID.Set && !p.ItemID.Set && !p.TelegramChatID.Set &&
		!p.ScheduledTime.Set && !p.Sent.Set
}

// ReminderFilter はリマインダー一覧の絞り込み条件を表す。
type ReminderFilter struct {
	ItemID    string
	Sent      *bool
	DueBefore *time.Time
}
