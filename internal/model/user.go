package model

import "time"

// User はサービス利用ユーザーを表す。
type User struct {
	ID             string
	Name           string
	Email          *string // 小文字化・トリム済み
	TelegramChatID *string
	Timezone       *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Clone はユーザーのディープコピーを返す。
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Email = cloneString(u.Email)
	c.TelegramChatID = cloneString(u.TelegramChatID)
	c.Timezone = cloneString(u.Timezone)
	return &c
}

// UserPatch はユーザーの作成・部分更新の入力を表す。
type UserPatch struct {
	ID             Optional[string]
	Name           Optional[string]
	Email          Optional[string]
	TelegramChatID Optional[string]
	Timezone       Optional[string]
}

// IsEmpty はいずれのフィールドも指定されていない場合にtrueを返す。
func (p UserPatch) IsEmpty() bool {
	return !p.ID.Set && !p.Name.Set && !p.Email.Set &&
		!p.TelegramChatID.Set && !p.Timezone.Set
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
