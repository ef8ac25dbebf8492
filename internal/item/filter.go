package item

import (
	"net/url"
	"sort"
	"strings"

	"github.com/hitoshi/remindo/internal/model"
)

// FilterFromQuery はクエリパラメータからアイテムの絞り込み条件を組み立てる。
// completedはパラメータが存在する場合のみ条件となり、"true"（大文字小文字無視）以外はfalse扱い。
func FilterFromQuery(q url.Values) model.ItemFilter {
	f := model.ItemFilter{
		Type:   model.ItemType(q.Get("type")),
		Tag:    q.Get("tag"),
		Search: q.Get("search"),
	}
	if q.Has("completed") {
		completed := strings.EqualFold(q.Get("completed"), "true")
		f.Completed = &completed
	}
	return f
}

// Filter は条件に一致するアイテムを元の順序のまま返す。複数条件はAND結合。
func Filter(items []*model.Item, f model.ItemFilter) []*model.Item {
	tag := strings.ToLower(strings.TrimSpace(f.Tag))
	search := strings.ToLower(f.Search)

	out := make([]*model.Item, 0, len(items))
	for _, it := range items {
		if f.Type != "" && it.Type != f.Type {
			continue
		}
		if tag != "" && !it.HasTag(tag) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(it.Title), search) &&
			!strings.Contains(strings.ToLower(it.Details), search) {
			continue
		}
		if f.Completed != nil && it.Completed != *f.Completed {
			continue
		}
		out = append(out, it)
	}
	return out
}

// SortAgenda はホーム画面用に期日の昇順（期日なしは末尾）、次に作成日時の昇順で並べ替える。
func SortAgenda(items []*model.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		di, dj := items[i].DueAt(), items[j].DueAt()
		switch {
		case di != nil && dj != nil && !di.Equal(*dj):
			return di.Before(*dj)
		case di != nil && dj == nil:
			return true
		case di == nil && dj != nil:
			return false
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}
