package reminder

import (
	"strings"
	"time"

	"github.com/hitoshi/remindo/internal/model"
)

// BuildReminder はパッチを既存リマインダーにマージした新しい値を返す。
// scheduledはパース済みのscheduledTime（パッチで未指定ならnil）。
// itemIdは作成時のみ設定され、更新では変更されない。
func BuildReminder(p model.ReminderPatch, scheduled *time.Time, existing *model.Reminder, now time.Time, newID func() string) *model.Reminder {
	now = now.UTC().Truncate(time.Microsecond)

	var rem *model.Reminder
	if existing == nil {
		id := ""
		if p.ID.HasValue() {
			id = strings.TrimSpace(p.ID.Value)
		}
		if id == "" {
			id = newID()
		}
		rem = &model.Reminder{ID: id, CreatedAt: now}
		if p.ItemID.HasValue() {
			rem.ItemID = strings.TrimSpace(p.ItemID.Value)
		}
	} else {
		rem = existing.Clone()
	}

	if p.TelegramChatID.HasValue() {
		rem.TelegramChatID = strings.TrimSpace(p.TelegramChatID.Value)
	}
	if scheduled != nil {
		rem.ScheduledTime = scheduled.UTC().Truncate(time.Microsecond)
	}
	if p.Sent.Set {
		rem.Sent = p.Sent.HasValue() && p.Sent.Value
	}
	return rem
}
