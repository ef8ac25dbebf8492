// Package normalize は入力値の正規化（日時パース、タグ整形）を提供する。
package normalize

import (
	"strings"
	"time"
)

// timeLayouts はParseTimeが受け付けるISO-8601形式の一覧。
// 秒の小数部はtime.Parseが自動的に受け付けるためレイアウトには含めない。
var timeLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04Z07:00",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTime はISO-8601形式の日時文字列を寛容にパースする。
// 空文字列やパース失敗時はエラーではなくnilを返す。呼び出し側は失敗と未指定を同一に扱う。
// 末尾のZは+00:00に置換してからパースする。オフセットなしの値はUTCとして扱う。
func ParseTime(raw string) *time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	if strings.HasSuffix(s, "Z") {
		s = strings.TrimSuffix(s, "Z") + "+00:00"
	}

	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
