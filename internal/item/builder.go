package item

import (
	"strings"
	"time"

	"github.com/hitoshi/remindo/internal/model"
	"github.com/hitoshi/remindo/internal/normalize"
)

// BuildItem はパッチを既存アイテムにマージした新しいアイテムを返す。
// existingがnilの場合はデフォルト値から新規作成する。
// パッチで指定されたキーのみを上書きし、existing自体は変更しない。
// 入力値の検証（タイトル必須など）は呼び出し側で事前に行うこと。
func BuildItem(p model.ItemPatch, existing *model.Item, now time.Time, newID func() string) *model.Item {
	now = now.UTC().Truncate(time.Microsecond)

	var item *model.Item
	if existing == nil {
		id := ""
		if p.ID.HasValue() {
			id = strings.TrimSpace(p.ID.Value)
		}
		if id == "" {
			id = newID()
		}
		item = &model.Item{
			ID:        id,
			Type:      model.ItemTypeTask,
			Tags:      []string{},
			CreatedAt: now,
			UpdatedAt: now,
		}
	} else {
		item = existing.Clone()
		item.UpdatedAt = model.NextUpdatedAt(existing.UpdatedAt, now)
	}

	if p.Type.Set {
		item.Type = model.ItemTypeTask
		if !p.Type.Null {
			item.Type = p.Type.Value
		}
	}
	if p.Title.HasValue() {
		item.Title = strings.TrimSpace(p.Title.Value)
	}
	if p.Details.Set {
		item.Details = p.Details.Value
		if p.Details.Null {
			item.Details = ""
		}
	}
	if p.Tags.Set {
		item.Tags = []string{}
		if !p.Tags.Null {
			item.Tags = normalize.TagList(p.Tags.Value)
		}
	}
	if p.TelegramChatID.Set {
		item.TelegramChatID = nil
		if v := strings.TrimSpace(p.TelegramChatID.Value); !p.TelegramChatID.Null && v != "" {
			item.TelegramChatID = &v
		}
	}
	if p.Completed.Set {
		item.Completed = p.Completed.HasValue() && p.Completed.Value
	}

	// 種別によって有効な日時フィールドが決まり、もう一方は常にnil
	switch item.Type {
	case model.ItemTypeReminder:
		if p.Datetime.Set {
			item.ScheduledAt = parseOptionalTime(p.Datetime)
		}
		item.Deadline = nil
	default:
		if p.Deadline.Set {
			item.Deadline = parseOptionalTime(p.Deadline)
		}
		item.ScheduledAt = nil
	}

	return item
}

// parseOptionalTime はnullまたはパース失敗時にnilを返す。
func parseOptionalTime(o model.Optional[string]) *time.Time {
	if !o.HasValue() {
		return nil
	}
	t := normalize.ParseTime(o.Value)
	if t == nil {
		return nil
	}
	v := t.Truncate(time.Microsecond)
	return &v
}
