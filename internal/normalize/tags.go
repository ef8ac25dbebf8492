package normalize

import "strings"

// Tags はカンマ区切りのタグ文字列を正規化済みのタグ列に変換する。
func Tags(raw string) []string {
	return TagList(strings.Split(raw, ","))
}

// TagList はタグ列をトリム・小文字化し、空要素と重複を除いて返す。
// 初出順を維持する。結果は常に非nil。正規化済みの入力に対しては同じ列を返す。
func TagList(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, tag := range raw {
		name := strings.ToLower(strings.TrimSpace(tag))
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
