package reminder

import (
	"net/url"
	"strings"

	"github.com/hitoshi/remindo/internal/model"
	"github.com/hitoshi/remindo/internal/normalize"
)

// FilterFromQuery はクエリパラメータからリマインダーの絞り込み条件を組み立てる。
// itemIdとitem_idの両方を受け付ける。dueBeforeはパースできない場合は無視する。
func FilterFromQuery(q url.Values) model.ReminderFilter {
	f := model.ReminderFilter{ItemID: q.Get("itemId")}
	if f.ItemID == "" {
		f.ItemID = q.Get("item_id")
	}
	if q.Has("sent") {
		sent := strings.EqualFold(q.Get("sent"), "true")
		f.Sent = &sent
	}
	if raw := q.Get("dueBefore"); raw != "" {
		f.DueBefore = normalize.ParseTime(raw)
	}
	return f
}

// Filter は条件に一致するリマインダーを元の順序のまま返す。
func Filter(reminders []*model.Reminder, f model.ReminderFilter) []*model.Reminder {
	out := make([]*model.Reminder, 0, len(reminders))
	for _, r := range reminders {
		if f.ItemID != "" && r.ItemID != f.ItemID {
			continue
		}
		if f.Sent != nil && r.Sent != *f.Sent {
			continue
		}
		if f.DueBefore != nil && !r.ScheduledTime.Before(*f.DueBefore) {
			continue
		}
		out = append(out, r)
	}
	return out
}
