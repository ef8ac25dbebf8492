package repository

import (
	"context"
	"time"

	"github.com/hitoshi/remindo/internal/model"
)

// MemoryReminderRepo はメモリ上のリマインダーリポジトリ。
type MemoryReminderRepo struct {
	db *memoryDB
}

// FindByID は指定IDのリマインダーを取得する。見つからない場合はnilを返す。
func (r *MemoryReminderRepo) FindByID(_ context.Context, id string) (*model.Reminder, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	return r.db.reminders[id].Clone(), nil
}

// List は全リマインダーを挿入順で返す。
func (r *MemoryReminderRepo) List(_ context.Context) ([]*model.Reminder, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]*model.Reminder, 0, len(r.db.reminderOrder))
	for _, id := range r.db.reminderOrder {
		out = append(out, r.db.reminders[id].Clone())
	}
	return out, nil
}

// Save はリマインダーをUPSERTする。
func (r *MemoryReminderRepo) Save(_ context.Context, reminder *model.Reminder) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, exists := r.db.reminders[reminder.ID]; !exists {
		r.db.reminderOrder = append(r.db.reminderOrder, reminder.ID)
	}
	r.db.reminders[reminder.ID] = reminder.Clone()
	return nil
}

// Update は書き込みロック下でリマインダーを読み込み、fnで変更して書き戻す。
func (r *MemoryReminderRepo) Update(_ context.Context, id string, fn func(reminder *model.Reminder)) (*model.Reminder, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	current, ok := r.db.reminders[id]
	if !ok {
		return nil, nil
	}

	updated := current.Clone()
	fn(updated)
	updated.ID = id
	r.db.reminders[id] = updated.Clone()
	return updated, nil
}

// Delete は指定IDのリマインダーを削除する。
func (r *MemoryReminderRepo) Delete(_ context.Context, id string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.reminders[id]; !ok {
		return false, nil
	}
	delete(r.db.reminders, id)
	r.db.reminderOrder = removeID(r.db.reminderOrder, id)
	return true, nil
}

// DeleteSentBefore は送信済みかつcutoffより前に予定されていたリマインダーを削除する。
func (r *MemoryReminderRepo) DeleteSentBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var deleted int64
	for _, id := range append([]string(nil), r.db.reminderOrder...) {
		rem := r.db.reminders[id]
		if !rem.Sent || !rem.ScheduledTime.Before(cutoff) {
			continue
		}
		delete(r.db.reminders, id)
		r.db.reminderOrder = removeID(r.db.reminderOrder, id)
		deleted++
	}
	return deleted, nil
}

// compile-time interface check
var _ ReminderRepository = (*MemoryReminderRepo)(nil)
