// Package model はドメインモデルを定義する。
package model

import (
	"slices"
	"time"
)

// ItemType はアイテムの種別を表す。
// 種別によって期限（deadline）と予定日時（scheduledAt）のどちらが有効かが決まる。
type ItemType string

const (
	// ItemTypeTask は期限付きのタスク。Deadlineが有効。
	ItemTypeTask ItemType = "task"
	// ItemTypeReminder はリマインダー種別のアイテム。ScheduledAtが有効。
	ItemTypeReminder ItemType = "reminder"
)

// Valid は定義済みの種別かどうかを返す。
func (t ItemType) Valid() bool {
	return t == ItemTypeTask || t == ItemTypeReminder
}

// Item はタスクまたはリマインダー種別のアイテムを表す。
type Item struct {
	ID             string
	Type           ItemType
	Title          string
	Details        string
	Tags           []string // 小文字化・重複排除済み
	TelegramChatID *string
	ScheduledAt    *time.Time // Type=reminder の場合のみ有効
	Deadline       *time.Time // Type=task の場合のみ有効
	Completed      bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Clone はアイテムのディープコピーを返す。
// ストア内部の値を呼び出し側と共有しないために使用する。
func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	c := *i
	c.Tags = slices.Clone(i.Tags)
	if c.Tags == nil {
		c.Tags = []string{}
	}
	if i.TelegramChatID != nil {
		v := *i.TelegramChatID
		c.TelegramChatID = &v
	}
	if i.ScheduledAt != nil {
		v := *i.ScheduledAt
		c.ScheduledAt = &v
	}
	if i.Deadline != nil {
		v := *i.Deadline
		c.Deadline = &v
	}
	return &c
}

// DueAt は種別に応じた期日（Deadline または ScheduledAt）を返す。
func (i *Item) DueAt() *time.Time {
	if i.Type == ItemTypeReminder {
		return i.ScheduledAt
	}
	return i.Deadline
}

// HasTag は指定タグ名（小文字比較）を持つかどうかを返す。
func (i *Item) HasTag(name string) bool {
	for _, t := range i.Tags {
		if t == name {
			return true
		}
	}
	return false
}

// ItemPatch はアイテムの作成・部分更新の入力を表す。
// 各フィールドはJSONオブジェクトのキーの有無に対応する三値（未指定/null/値）を持つ。
type ItemPatch struct {
	ID             Optional[string]
	Type           Optional[ItemType]
	Title          Optional[string]
	Details        Optional[string]
	Tags           Optional[[]string]
	TelegramChatID Optional[string]
	Datetime       Optional[string] // 未パースの予定日時（reminder用）
	Deadline       Optional[string] // 未パースの期限（task用）
	Completed      Optional[bool]
}

// IsEmpty はいずれのフィールドも指定されていない場合にtrueを返す。
func (p ItemPatch) IsEmpty() bool {
	return !p.ID.Set && !p.Type.Set && !p.Title.Set && !p.Details.Set &&
		!p.Tags.Set && !p.TelegramChatID.Set && !p.Datetime.Set &&
		!p.Deadline.Set && !p.Completed.Set
}

// ItemFilter はアイテム一覧の絞り込み条件を表す。
// ゼロ値のフィールドは条件に含めない。複数指定時はAND結合となる。
type ItemFilter struct {
	Type      ItemType
	Tag       string
	Search    string
	Completed *bool
}
