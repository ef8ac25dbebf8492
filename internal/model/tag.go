package model

import "time"

// Tag はアイテムに付与されたタグ名の登録簿エントリ。
// アイテムへのタグ付与時に暗黙的に作成され、APIから削除されることはない。
type Tag struct {
	Name      string
	Color     *string
	CreatedAt time.Time
}

// Clone はタグのコピーを返す。
func (t *Tag) Clone() *Tag {
	if t == nil {
		return nil
	}
	c := *t
	if t.Color != nil {
		v := *t.Color
		c.Color = &v
	}
	return &c
}
